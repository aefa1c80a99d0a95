// Package servicetest provides an in-memory store implementing the service
// store interfaces, for tests that need the full stack without postgres.
package servicetest

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/merchantkit/voucher-service/internal/models"
	"github.com/merchantkit/voucher-service/internal/repository"
)

// MemStore holds discounts, codes and usages behind one mutex. The Discounts,
// Codes and Usages facets implement the service store interfaces. Lookups
// return copies so callers never alias the canonical records; Record mutates
// the canonical records under the lock, mirroring the SQL store's atomic
// increments.
type MemStore struct {
	mu        sync.Mutex
	discounts map[uuid.UUID]*models.Discount
	codes     []*models.VoucherCode
	usages    []models.DiscountUsage
}

func NewMemStore() *MemStore {
	return &MemStore{
		discounts: make(map[uuid.UUID]*models.Discount),
	}
}

func (m *MemStore) Discounts() *MemDiscounts { return &MemDiscounts{m} }
func (m *MemStore) Codes() *MemCodes         { return &MemCodes{m} }
func (m *MemStore) Usages() *MemUsages       { return &MemUsages{m} }

// MemDiscounts implements service.DiscountStore.
type MemDiscounts struct{ s *MemStore }

func (f *MemDiscounts) Insert(ctx context.Context, d *models.Discount) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	cp := *d
	now := time.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	f.s.discounts[d.ID] = &cp
	return nil
}

func (f *MemDiscounts) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Discount, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	d, ok := f.s.discounts[id]
	if !ok || d.TenantID != tenantID {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (f *MemDiscounts) List(ctx context.Context, tenantID uuid.UUID) ([]models.Discount, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.Discount
	for _, d := range f.s.discounts {
		if d.TenantID == tenantID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *MemDiscounts) Update(ctx context.Context, d *models.Discount) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	existing, ok := f.s.discounts[d.ID]
	if !ok || existing.TenantID != d.TenantID {
		return sql.ErrNoRows
	}
	cp := *d
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now()
	f.s.discounts[d.ID] = &cp
	return nil
}

func (f *MemDiscounts) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	d, ok := f.s.discounts[id]
	if !ok || d.TenantID != tenantID {
		return sql.ErrNoRows
	}
	delete(f.s.discounts, id)
	// FK cascade
	kept := f.s.codes[:0]
	for _, c := range f.s.codes {
		if c.DiscountID != id {
			kept = append(kept, c)
		}
	}
	f.s.codes = kept
	keptUsages := f.s.usages[:0]
	for _, u := range f.s.usages {
		if u.DiscountID != id {
			keptUsages = append(keptUsages, u)
		}
	}
	f.s.usages = keptUsages
	return nil
}

func (f *MemDiscounts) ToggleActive(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	d, ok := f.s.discounts[id]
	if !ok || d.TenantID != tenantID {
		return false, sql.ErrNoRows
	}
	d.IsActive = !d.IsActive
	return d.IsActive, nil
}

// MemCodes implements service.CodeStore.
type MemCodes struct{ s *MemStore }

func (f *MemCodes) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.VoucherCode, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, c := range f.s.codes {
		if c.TenantID == tenantID && c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *MemCodes) Exists(ctx context.Context, tenantID uuid.UUID, code string, excludeID *uuid.UUID) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, c := range f.s.codes {
		if excludeID != nil && c.ID == *excludeID {
			continue
		}
		if c.TenantID == tenantID && strings.EqualFold(c.Code, code) {
			return true, nil
		}
	}
	return false, nil
}

func (f *MemCodes) ListByDiscount(ctx context.Context, tenantID, discountID uuid.UUID) ([]models.VoucherCode, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.VoucherCode
	for _, c := range f.s.codes {
		if c.TenantID == tenantID && c.DiscountID == discountID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *MemCodes) FirstForDiscount(ctx context.Context, tenantID, discountID uuid.UUID) (*models.VoucherCode, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, c := range f.s.codes {
		if c.TenantID == tenantID && c.DiscountID == discountID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *MemCodes) ListExisting(ctx context.Context, tenantID uuid.UUID) (map[string]struct{}, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	set := make(map[string]struct{})
	for _, c := range f.s.codes {
		if c.TenantID == tenantID {
			set[c.Code] = struct{}{}
		}
	}
	return set, nil
}

func (f *MemCodes) Insert(ctx context.Context, c *models.VoucherCode) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.codes {
		if existing.TenantID == c.TenantID && existing.Code == c.Code {
			return repository.ErrCodeTaken
		}
	}
	cp := *c
	now := time.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	f.s.codes = append(f.s.codes, &cp)
	return nil
}

func (f *MemCodes) InsertBatch(ctx context.Context, codes []models.VoucherCode) ([]models.VoucherCode, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	taken := make(map[string]struct{}, len(f.s.codes))
	for _, c := range f.s.codes {
		taken[c.TenantID.String()+"|"+c.Code] = struct{}{}
	}
	var inserted []models.VoucherCode
	for _, c := range codes {
		key := c.TenantID.String() + "|" + c.Code
		if _, dup := taken[key]; dup {
			continue
		}
		taken[key] = struct{}{}
		cp := c
		now := time.Now()
		cp.CreatedAt = now
		cp.UpdatedAt = now
		f.s.codes = append(f.s.codes, &cp)
		inserted = append(inserted, cp)
	}
	return inserted, nil
}

func (f *MemCodes) Deactivate(ctx context.Context, tenantID, codeID uuid.UUID) (uuid.UUID, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, c := range f.s.codes {
		if c.TenantID == tenantID && c.ID == codeID {
			c.Status = models.CodeStatusDeactivated
			return c.DiscountID, nil
		}
	}
	return uuid.Nil, sql.ErrNoRows
}

// MemUsages implements service.UsageStore.
type MemUsages struct{ s *MemStore }

func (f *MemUsages) Record(ctx context.Context, u *models.DiscountUsage) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	d, ok := f.s.discounts[u.DiscountID]
	if !ok {
		return sql.ErrNoRows
	}
	if d.UsageLimit != nil && d.UsedCount >= *d.UsageLimit {
		return repository.ErrLimitExceeded
	}

	var code *models.VoucherCode
	if u.VoucherCodeID != nil {
		for _, c := range f.s.codes {
			if c.ID == *u.VoucherCodeID {
				code = c
				break
			}
		}
		if code == nil {
			return sql.ErrNoRows
		}
		if code.UsageLimit != nil && code.UsedCount >= *code.UsageLimit {
			return repository.ErrCodeLimitExceeded
		}
	}

	d.UsedCount++
	if code != nil {
		code.UsedCount++
		now := time.Now()
		code.UsedAt = &now
	}
	cp := *u
	cp.CreatedAt = time.Now()
	f.s.usages = append(f.s.usages, cp)
	return nil
}

func (f *MemUsages) CountByCustomer(ctx context.Context, discountID uuid.UUID, customerID string) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	n := 0
	for _, u := range f.s.usages {
		if u.DiscountID == discountID && u.CustomerID != nil && *u.CustomerID == customerID {
			n++
		}
	}
	return n, nil
}

func (f *MemUsages) ListByDiscount(ctx context.Context, discountID uuid.UUID) ([]models.DiscountUsage, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.DiscountUsage
	for _, u := range f.s.usages {
		if u.DiscountID == discountID {
			out = append(out, u)
		}
	}
	return out, nil
}

// --- direct state access for assertions ---

// Discount returns a copy of the stored discount, or nil.
func (m *MemStore) Discount(id uuid.UUID) *models.Discount {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.discounts[id]
	if !ok {
		return nil
	}
	cp := *d
	return &cp
}

// Code returns a copy of the stored code row by string, or nil.
func (m *MemStore) Code(tenantID uuid.UUID, code string) *models.VoucherCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.TenantID == tenantID && c.Code == code {
			cp := *c
			return &cp
		}
	}
	return nil
}

// UsageCount returns the number of ledger rows for a discount.
func (m *MemStore) UsageCount(discountID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.usages {
		if u.DiscountID == discountID {
			n++
		}
	}
	return n
}

// DiscountCount returns how many discounts are stored.
func (m *MemStore) DiscountCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.discounts)
}
