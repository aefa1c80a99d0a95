package cache

import (
	"sync"

	"github.com/google/uuid"

	"github.com/merchantkit/voucher-service/internal/models"
)

// Entry pairs a voucher code with its owning discount, keyed by the
// normalized code string.
type Entry struct {
	Discount *models.Discount
	Code     *models.VoucherCode
}

// DiscountCache is a small in-process read cache for the validate path.
// Entries are dropped whenever the underlying discount or code is mutated;
// the recording path never reads from here.
type DiscountCache struct {
	mu    sync.RWMutex
	store map[string]Entry
}

func NewDiscountCache() *DiscountCache {
	return &DiscountCache{
		store: make(map[string]Entry),
	}
}

func key(tenantID uuid.UUID, code string) string {
	return tenantID.String() + "|" + code
}

func (c *DiscountCache) Get(tenantID uuid.UUID, code string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.store[key(tenantID, code)]
	return e, ok
}

func (c *DiscountCache) Set(tenantID uuid.UUID, code string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key(tenantID, code)] = e
}

// DeleteDiscount drops every cached code belonging to the discount, used
// whenever the discount or its counters are mutated. Eviction is always by
// discount: a counter change invalidates every code of that discount, not
// just the one the caller touched.
func (c *DiscountCache) DeleteDiscount(discountID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.store {
		if e.Discount != nil && e.Discount.ID == discountID {
			delete(c.store, k)
		}
	}
}
