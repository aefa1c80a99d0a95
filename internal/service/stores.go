package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/merchantkit/voucher-service/internal/models"
)

// Store interfaces required by the services (interfaces so tests can supply
// in-memory implementations). Lookups return nil, nil when no row matches.

type DiscountStore interface {
	Insert(ctx context.Context, d *models.Discount) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Discount, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]models.Discount, error)
	Update(ctx context.Context, d *models.Discount) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	ToggleActive(ctx context.Context, tenantID, id uuid.UUID) (bool, error)
}

type CodeStore interface {
	GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.VoucherCode, error)
	Exists(ctx context.Context, tenantID uuid.UUID, code string, excludeID *uuid.UUID) (bool, error)
	ListByDiscount(ctx context.Context, tenantID, discountID uuid.UUID) ([]models.VoucherCode, error)
	FirstForDiscount(ctx context.Context, tenantID, discountID uuid.UUID) (*models.VoucherCode, error)
	ListExisting(ctx context.Context, tenantID uuid.UUID) (map[string]struct{}, error)
	Insert(ctx context.Context, c *models.VoucherCode) error
	InsertBatch(ctx context.Context, codes []models.VoucherCode) ([]models.VoucherCode, error)
	Deactivate(ctx context.Context, tenantID, codeID uuid.UUID) (uuid.UUID, error)
}

type UsageStore interface {
	Record(ctx context.Context, u *models.DiscountUsage) error
	CountByCustomer(ctx context.Context, discountID uuid.UUID, customerID string) (int, error)
	ListByDiscount(ctx context.Context, discountID uuid.UUID) ([]models.DiscountUsage, error)
}
