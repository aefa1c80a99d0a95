package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/merchantkit/voucher-service/internal/models"
)

const discountColumns = `
	id, tenant_id, name, description, kind, type, value, scope,
	min_order_amount, min_quantity, usage_limit, used_count,
	max_uses_per_customer, single_use, starts_at, ends_at, is_active,
	product_ids, collection_ids, metadata, created_at, updated_at`

type DiscountRepo struct {
	db *sqlx.DB
}

func NewDiscountRepo(db *sqlx.DB) *DiscountRepo {
	return &DiscountRepo{db: db}
}

func (r *DiscountRepo) Insert(ctx context.Context, d *models.Discount) error {
	query := `
		INSERT INTO discounts
		(id, tenant_id, name, description, kind, type, value, scope,
		 min_order_amount, min_quantity, usage_limit, used_count,
		 max_uses_per_customer, single_use, starts_at, ends_at, is_active,
		 product_ids, collection_ids, metadata, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,NOW(),NOW())
	`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.TenantID, d.Name, d.Description, d.Kind, d.Type, d.Value, d.Scope,
		d.MinOrderAmount, d.MinQuantity, d.UsageLimit, d.UsedCount,
		d.MaxUsesPerCustomer, d.SingleUse, d.StartsAt, d.EndsAt, d.IsActive,
		d.ProductIDs, d.CollectionIDs, d.Metadata,
	)
	if err != nil {
		return fmt.Errorf("insert discount: %w", err)
	}
	return nil
}

// GetByID returns the discount, or nil when no row matches the tenant/id pair.
func (r *DiscountRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Discount, error) {
	var d models.Discount
	query := `SELECT` + discountColumns + `
		FROM discounts WHERE tenant_id = $1 AND id = $2`
	err := r.db.GetContext(ctx, &d, query, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get discount: %w", err)
	}
	return &d, nil
}

func (r *DiscountRepo) List(ctx context.Context, tenantID uuid.UUID) ([]models.Discount, error) {
	var out []models.Discount
	query := `SELECT` + discountColumns + `
		FROM discounts WHERE tenant_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &out, query, tenantID); err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	return out, nil
}

func (r *DiscountRepo) Update(ctx context.Context, d *models.Discount) error {
	query := `
		UPDATE discounts SET
			name = $3, description = $4, type = $5, value = $6, scope = $7,
			min_order_amount = $8, min_quantity = $9, usage_limit = $10,
			max_uses_per_customer = $11, single_use = $12,
			starts_at = $13, ends_at = $14, is_active = $15,
			product_ids = $16, collection_ids = $17, metadata = $18,
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
	`
	res, err := r.db.ExecContext(ctx, query,
		d.TenantID, d.ID,
		d.Name, d.Description, d.Type, d.Value, d.Scope,
		d.MinOrderAmount, d.MinQuantity, d.UsageLimit,
		d.MaxUsesPerCustomer, d.SingleUse,
		d.StartsAt, d.EndsAt, d.IsActive,
		d.ProductIDs, d.CollectionIDs, d.Metadata,
	)
	if err != nil {
		return fmt.Errorf("update discount: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update discount: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the discount; codes and usage rows cascade via FK.
func (r *DiscountRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM discounts WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete discount: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete discount: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ToggleActive flips is_active and returns the new state.
func (r *DiscountRepo) ToggleActive(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	var active bool
	query := `
		UPDATE discounts SET is_active = NOT is_active, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
		RETURNING is_active
	`
	err := r.db.GetContext(ctx, &active, query, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, sql.ErrNoRows
		}
		return false, fmt.Errorf("toggle discount: %w", err)
	}
	return active, nil
}
