package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/merchantkit/voucher-service/internal/cache"
	"github.com/merchantkit/voucher-service/internal/models"
	"github.com/merchantkit/voucher-service/internal/repository"
)

// DiscountInput carries the mutable configuration of a discount for the
// create and update paths.
type DiscountInput struct {
	Name               string
	Description        string
	Kind               models.DiscountKind
	Type               models.DiscountType
	Value              decimal.Decimal
	Scope              models.DiscountScope
	Code               string
	MinOrderAmount     *decimal.Decimal
	MinQuantity        *int
	UsageLimit         *int
	MaxUsesPerCustomer *int
	SingleUse          bool
	StartsAt           *time.Time
	EndsAt             *time.Time
	IsActive           bool
	ProductIDs         []string
	CollectionIDs      []string
	Metadata           models.Metadata
}

// DiscountService owns the discount lifecycle: create, update, duplicate,
// toggle, delete. Usage counters are never touched here; only the usage
// recorder mutates those.
type DiscountService struct {
	discounts DiscountStore
	codes     CodeStore
	codeSvc   *CodeService
	cache     *cache.DiscountCache
	logger    *slog.Logger
}

func NewDiscountService(discounts DiscountStore, codes CodeStore, codeSvc *CodeService, c *cache.DiscountCache, logger *slog.Logger) *DiscountService {
	return &DiscountService{
		discounts: discounts,
		codes:     codes,
		codeSvc:   codeSvc,
		cache:     c,
		logger:    logger,
	}
}

// validateRules checks the configuration invariants before anything is
// persisted: non-negative value, percentage at most 100, coherent window.
func validateRules(in *DiscountInput) error {
	switch in.Kind {
	case models.KindSale, models.KindVoucher:
	default:
		return fmt.Errorf("%w: unknown discount kind %q", ErrInvalidFormat, in.Kind)
	}
	switch in.Type {
	case models.TypePercentage, models.TypeFixed, models.TypeFreeShipping, models.TypeBuyXGetY:
	default:
		return fmt.Errorf("%w: unknown discount type %q", ErrInvalidFormat, in.Type)
	}
	switch in.Scope {
	case models.ScopeEntireOrder, models.ScopeSpecificProducts:
	default:
		return fmt.Errorf("%w: unknown discount scope %q", ErrInvalidFormat, in.Scope)
	}
	if in.Value.IsNegative() {
		return fmt.Errorf("%w: value must not be negative", ErrInvalidFormat)
	}
	if in.Type == models.TypePercentage && in.Value.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: percentage value must be between 0 and 100", ErrInvalidFormat)
	}
	if in.MinOrderAmount != nil && in.MinOrderAmount.IsNegative() {
		return fmt.Errorf("%w: min_order_amount must not be negative", ErrInvalidFormat)
	}
	if in.UsageLimit != nil && *in.UsageLimit < 1 {
		return fmt.Errorf("%w: usage_limit must be at least 1", ErrInvalidFormat)
	}
	if in.MaxUsesPerCustomer != nil && *in.MaxUsesPerCustomer < 1 {
		return fmt.Errorf("%w: max_uses_per_customer must be at least 1", ErrInvalidFormat)
	}
	if in.StartsAt != nil && in.EndsAt != nil && !in.StartsAt.Before(*in.EndsAt) {
		return fmt.Errorf("%w: starts_at must be before ends_at", ErrInvalidFormat)
	}
	return nil
}

// Create validates and persists a discount. Voucher-kind discounts get a
// code: the supplied one after format/uniqueness checks, or a generated one
// when none is given. Code validation happens before the discount row is
// written, and a failed code write removes the row again, so a bad code never
// leaves a half-created discount behind.
func (s *DiscountService) Create(ctx context.Context, tenantID uuid.UUID, in DiscountInput) (*models.Discount, *models.VoucherCode, error) {
	if err := validateRules(&in); err != nil {
		return nil, nil, err
	}

	var code string
	manual := in.Code != ""
	if in.Kind == models.KindVoucher && manual {
		var err error
		code, err = s.codeSvc.ValidateNewCode(ctx, tenantID, in.Code, nil)
		if err != nil {
			return nil, nil, err
		}
	}

	d := buildDiscount(tenantID, in)
	if err := s.discounts.Insert(ctx, d); err != nil {
		return nil, nil, err
	}

	var vc *models.VoucherCode
	if d.Kind == models.KindVoucher {
		if manual {
			vc = &models.VoucherCode{
				ID:                uuid.New(),
				DiscountID:        d.ID,
				TenantID:          tenantID,
				Code:              code,
				Status:            models.CodeStatusActive,
				IsManuallyCreated: true,
			}
			if err := s.codes.Insert(ctx, vc); err != nil {
				s.rollbackDiscount(ctx, tenantID, d.ID)
				if errors.Is(err, repository.ErrCodeTaken) {
					return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateCode, code)
				}
				return nil, nil, err
			}
		} else {
			generated, err := s.codeSvc.Generate(ctx, d, 1, "", nil)
			if err != nil {
				s.rollbackDiscount(ctx, tenantID, d.ID)
				return nil, nil, err
			}
			vc = &generated[0]
		}
	}

	s.logger.Info("discount created", "tenant_id", tenantID, "discount_id", d.ID, "kind", d.Kind)
	return d, vc, nil
}

func (s *DiscountService) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Discount, error) {
	d, err := s.discounts.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNotFound
	}
	return d, nil
}

func (s *DiscountService) List(ctx context.Context, tenantID uuid.UUID) ([]models.Discount, error) {
	return s.discounts.List(ctx, tenantID)
}

// Update replaces the mutable configuration of a discount. Kind and the
// usage counter are immutable.
func (s *DiscountService) Update(ctx context.Context, tenantID, id uuid.UUID, in DiscountInput) (*models.Discount, error) {
	existing, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	in.Kind = existing.Kind
	if err := validateRules(&in); err != nil {
		return nil, err
	}

	d := buildDiscount(tenantID, in)
	d.ID = existing.ID
	d.UsedCount = existing.UsedCount
	d.CreatedAt = existing.CreatedAt

	if err := s.discounts.Update(ctx, d); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.cache.DeleteDiscount(id)
	return d, nil
}

func (s *DiscountService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := s.discounts.Delete(ctx, tenantID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	s.cache.DeleteDiscount(id)
	s.logger.Info("discount deleted", "tenant_id", tenantID, "discount_id", id)
	return nil
}

func (s *DiscountService) ToggleActive(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	active, err := s.discounts.ToggleActive(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, err
	}
	s.cache.DeleteDiscount(id)
	return active, nil
}

// Duplicate copies a discount's configuration under a fresh code derived from
// the original's (SUMMER becomes SUMMER_COPY, then SUMMER_COPY1, ...). The
// copy starts deactivated with its window and counters cleared, so it must
// be explicitly reactivated.
func (s *DiscountService) Duplicate(ctx context.Context, tenantID, id uuid.UUID) (*models.Discount, *models.VoucherCode, error) {
	src, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}

	dup := *src
	dup.ID = uuid.New()
	dup.StartsAt = nil
	dup.EndsAt = nil
	dup.IsActive = false
	dup.UsedCount = 0

	var newCode string
	srcCode, err := s.codes.FirstForDiscount(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}
	if srcCode != nil {
		newCode, err = s.codeSvc.DuplicateCode(ctx, tenantID, srcCode.Code)
		if err != nil {
			return nil, nil, err
		}
	}

	if err := s.discounts.Insert(ctx, &dup); err != nil {
		return nil, nil, err
	}

	var vc *models.VoucherCode
	if newCode != "" {
		vc = &models.VoucherCode{
			ID:         uuid.New(),
			DiscountID: dup.ID,
			TenantID:   tenantID,
			Code:       newCode,
			Status:     models.CodeStatusActive,
		}
		if err := s.codes.Insert(ctx, vc); err != nil {
			s.rollbackDiscount(ctx, tenantID, dup.ID)
			if errors.Is(err, repository.ErrCodeTaken) {
				return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateCode, newCode)
			}
			return nil, nil, err
		}
	}

	s.logger.Info("discount duplicated",
		"tenant_id", tenantID, "source_id", id, "discount_id", dup.ID)
	return &dup, vc, nil
}

// GenerateCodes batch-generates voucher codes for an existing discount.
func (s *DiscountService) GenerateCodes(ctx context.Context, tenantID, id uuid.UUID, quantity int, prefix string, usageLimit *int) ([]models.VoucherCode, error) {
	d, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return s.codeSvc.Generate(ctx, d, quantity, prefix, usageLimit)
}

func (s *DiscountService) ListCodes(ctx context.Context, tenantID, id uuid.UUID) ([]models.VoucherCode, error) {
	if _, err := s.Get(ctx, tenantID, id); err != nil {
		return nil, err
	}
	return s.codes.ListByDiscount(ctx, tenantID, id)
}

// DeactivateCode marks one code unusable; its usage history stays.
func (s *DiscountService) DeactivateCode(ctx context.Context, tenantID, codeID uuid.UUID) error {
	discountID, err := s.codes.Deactivate(ctx, tenantID, codeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	s.cache.DeleteDiscount(discountID)
	return nil
}

// rollbackDiscount removes a freshly inserted discount whose code write
// failed, so a voucher-kind discount is never left behind without a code.
func (s *DiscountService) rollbackDiscount(ctx context.Context, tenantID, id uuid.UUID) {
	if err := s.discounts.Delete(ctx, tenantID, id); err != nil {
		s.logger.Error("orphaned discount cleanup failed",
			"tenant_id", tenantID, "discount_id", id, "error", err)
	}
}

func buildDiscount(tenantID uuid.UUID, in DiscountInput) *models.Discount {
	return &models.Discount{
		ID:                 uuid.New(),
		TenantID:           tenantID,
		Name:               in.Name,
		Description:        in.Description,
		Kind:               in.Kind,
		Type:               in.Type,
		Value:              in.Value,
		Scope:              in.Scope,
		MinOrderAmount:     in.MinOrderAmount,
		MinQuantity:        in.MinQuantity,
		UsageLimit:         in.UsageLimit,
		MaxUsesPerCustomer: in.MaxUsesPerCustomer,
		SingleUse:          in.SingleUse,
		StartsAt:           in.StartsAt,
		EndsAt:             in.EndsAt,
		IsActive:           in.IsActive,
		ProductIDs:         pq.StringArray(in.ProductIDs),
		CollectionIDs:      pq.StringArray(in.CollectionIDs),
		Metadata:           in.Metadata,
	}
}
