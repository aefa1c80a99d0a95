package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/merchantkit/voucher-service/internal/cache"
	"github.com/merchantkit/voucher-service/internal/models"
	"github.com/merchantkit/voucher-service/internal/repository"
)

// RedemptionService runs the redemption gate sequence and records usage.
// Validate is side-effect free and may serve from cache; Redeem always reads
// fresh state before writing.
type RedemptionService struct {
	discounts DiscountStore
	codes     CodeStore
	usages    UsageStore
	cache     *cache.DiscountCache
	logger    *slog.Logger

	now func() time.Time
}

func NewRedemptionService(discounts DiscountStore, codes CodeStore, usages UsageStore, c *cache.DiscountCache, logger *slog.Logger) *RedemptionService {
	return &RedemptionService{
		discounts: discounts,
		codes:     codes,
		usages:    usages,
		cache:     c,
		logger:    logger,
		now:       time.Now,
	}
}

func reject(reason models.RejectionReason, message string) models.RedemptionResult {
	return models.RedemptionResult{Valid: false, Reason: reason, Message: message}
}

// Validate runs the gate sequence against current state without mutating
// anything. Validating the same code twice with unchanged state yields the
// same result both times.
func (s *RedemptionService) Validate(ctx context.Context, req models.RedemptionRequest) (models.RedemptionResult, error) {
	code := NormalizeCode(req.Code)

	if e, ok := s.cache.Get(req.TenantID, code); ok {
		return s.evaluate(ctx, e.Discount, e.Code, req)
	}

	d, vc, err := s.lookup(ctx, req.TenantID, code)
	if err != nil {
		return models.RedemptionResult{}, err
	}
	if d == nil {
		return reject(models.ReasonNotFound, "Invalid code"), nil
	}
	s.cache.Set(req.TenantID, code, cache.Entry{Discount: d, Code: vc})
	return s.evaluate(ctx, d, vc, req)
}

// Redeem validates against fresh state and, when valid, records the usage:
// one ledger row plus the counter increments, atomically. Every cached code of
// the discount is dropped afterwards so the next validation sees the new
// counts.
func (s *RedemptionService) Redeem(ctx context.Context, req models.RedemptionRequest) (models.RedemptionResult, error) {
	code := NormalizeCode(req.Code)

	d, vc, err := s.lookup(ctx, req.TenantID, code)
	if err != nil {
		return models.RedemptionResult{}, err
	}
	if d == nil {
		return reject(models.ReasonNotFound, "Invalid code"), nil
	}

	res, err := s.evaluate(ctx, d, vc, req)
	if err != nil || !res.Valid {
		return res, err
	}

	usage := &models.DiscountUsage{
		ID:         uuid.New(),
		DiscountID: d.ID,
		CustomerID: req.CustomerID,
		OrderID:    req.OrderID,
		Amount:     res.Amount,
	}
	if vc != nil {
		usage.VoucherCodeID = &vc.ID
	}

	if err := s.usages.Record(ctx, usage); err != nil {
		switch {
		case errors.Is(err, repository.ErrLimitExceeded):
			// Raced another redemption for the last remaining slot.
			s.cache.DeleteDiscount(d.ID)
			return reject(models.ReasonLimitReached, "This discount has reached its usage limit"), nil
		case errors.Is(err, repository.ErrCodeLimitExceeded):
			s.cache.DeleteDiscount(d.ID)
			return reject(models.ReasonCodeLimitReached, "This code has reached its usage limit"), nil
		}
		return models.RedemptionResult{}, err
	}

	// The counters changed, so every cached code of this discount is stale,
	// not just the one redeemed.
	s.cache.DeleteDiscount(d.ID)
	s.logger.Info("redemption recorded",
		"tenant_id", req.TenantID, "discount_id", d.ID, "usage_id", usage.ID,
		"amount", res.Amount)

	res.UsageID = &usage.ID
	return res, nil
}

// ListUsages returns the append-only redemption ledger for a discount.
func (s *RedemptionService) ListUsages(ctx context.Context, tenantID, discountID uuid.UUID) ([]models.DiscountUsage, error) {
	d, err := s.discounts.GetByID(ctx, tenantID, discountID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNotFound
	}
	return s.usages.ListByDiscount(ctx, discountID)
}

func (s *RedemptionService) lookup(ctx context.Context, tenantID uuid.UUID, code string) (*models.Discount, *models.VoucherCode, error) {
	vc, err := s.codes.GetByCode(ctx, tenantID, code)
	if err != nil {
		return nil, nil, err
	}
	if vc == nil {
		return nil, nil, nil
	}
	d, err := s.discounts.GetByID(ctx, tenantID, vc.DiscountID)
	if err != nil {
		return nil, nil, err
	}
	if d == nil {
		// Code row orphaned mid-delete; treat as absent.
		return nil, nil, nil
	}
	return d, vc, nil
}

// evaluate runs the ordered gates. The order is part of the contract: it
// decides which rejection a caller sees when several conditions fail at once.
func (s *RedemptionService) evaluate(ctx context.Context, d *models.Discount, vc *models.VoucherCode, req models.RedemptionRequest) (models.RedemptionResult, error) {
	now := s.now().UTC()

	if !d.IsActive || vc == nil || vc.Status != models.CodeStatusActive {
		return reject(models.ReasonInactive, "Invalid code"), nil
	}
	if d.StartsAt != nil && now.Before(*d.StartsAt) {
		return reject(models.ReasonNotYetActive, "This discount is not active yet"), nil
	}
	if d.EndsAt != nil && now.After(*d.EndsAt) {
		return reject(models.ReasonExpired, "This discount has expired"), nil
	}
	if d.LimitReached() {
		return reject(models.ReasonLimitReached, "This discount has reached its usage limit"), nil
	}
	if d.SingleUse && vc.UsedCount > 0 {
		return reject(models.ReasonAlreadyUsed, "This code has already been used"), nil
	}
	if vc.LimitReached() {
		return reject(models.ReasonCodeLimitReached, "This code has reached its usage limit"), nil
	}
	if d.MinOrderAmount != nil && req.OrderTotal.LessThan(*d.MinOrderAmount) {
		return reject(models.ReasonBelowMinimum,
			fmt.Sprintf("Minimum order amount of %s required", d.MinOrderAmount.String())), nil
	}
	if d.MinQuantity != nil && req.ItemCount < *d.MinQuantity {
		return reject(models.ReasonBelowMinimumQuantity,
			fmt.Sprintf("Minimum of %d items required", *d.MinQuantity)), nil
	}
	if req.CustomerID != nil && d.MaxUsesPerCustomer != nil {
		n, err := s.usages.CountByCustomer(ctx, d.ID, *req.CustomerID)
		if err != nil {
			return models.RedemptionResult{}, err
		}
		if n >= *d.MaxUsesPerCustomer {
			return reject(models.ReasonAlreadyUsedByCustomer, "You have already used this discount"), nil
		}
	}

	return models.RedemptionResult{
		Valid:         true,
		DiscountID:    d.ID,
		VoucherCodeID: vc.ID,
		Type:          d.Type,
		Value:         d.Value,
		Amount:        DiscountAmount(d.Type, d.Value, req.OrderTotal),
	}, nil
}
