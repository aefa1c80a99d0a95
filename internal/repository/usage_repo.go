package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/merchantkit/voucher-service/internal/models"
)

// ErrLimitExceeded is returned by Record when the atomic increment finds the
// discount usage limit already exhausted, i.e. two redemptions validated
// against the same remaining slot. ErrCodeLimitExceeded is the same condition
// on the voucher code counter. Nothing is written in either case.
var (
	ErrLimitExceeded     = errors.New("usage limit exceeded")
	ErrCodeLimitExceeded = errors.New("code usage limit exceeded")
)

type UsageRepo struct {
	db *sqlx.DB
}

func NewUsageRepo(db *sqlx.DB) *UsageRepo {
	return &UsageRepo{db: db}
}

// Record appends the usage row and increments the discount counter (and the
// voucher code counter when a code id is set) in a single transaction. The
// increments are plain SQL `used_count + 1` updates guarded by the limit, so
// concurrent redemptions serialize on the row and can never lose an update or
// push a counter past its limit.
func (r *UsageRepo) Record(ctx context.Context, u *models.DiscountUsage) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO discount_usages
		(id, discount_id, voucher_code_id, customer_id, order_id, discount_amount, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW())
	`, u.ID, u.DiscountID, u.VoucherCodeID, u.CustomerID, u.OrderID, u.Amount)
	if err != nil {
		return fmt.Errorf("insert usage: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE discounts
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)
	`, u.DiscountID)
	if err != nil {
		return fmt.Errorf("increment discount used_count: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("increment discount used_count: %w", err)
	} else if n == 0 {
		return ErrLimitExceeded
	}

	if u.VoucherCodeID != nil {
		res, err := tx.ExecContext(ctx, `
			UPDATE voucher_codes
			SET used_count = used_count + 1, used_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)
		`, *u.VoucherCodeID)
		if err != nil {
			return fmt.Errorf("increment code used_count: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("increment code used_count: %w", err)
		} else if n == 0 {
			return ErrCodeLimitExceeded
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit usage: %w", err)
	}
	committed = true
	return nil
}

// CountByCustomer returns how many times a customer has redeemed a discount.
func (r *UsageRepo) CountByCustomer(ctx context.Context, discountID uuid.UUID, customerID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM discount_usages
		WHERE discount_id = $1 AND customer_id = $2
	`, discountID, customerID)
	if err != nil {
		return 0, fmt.Errorf("count usages: %w", err)
	}
	return n, nil
}

func (r *UsageRepo) ListByDiscount(ctx context.Context, discountID uuid.UUID) ([]models.DiscountUsage, error) {
	var out []models.DiscountUsage
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, discount_id, voucher_code_id, customer_id, order_id, discount_amount, created_at
		FROM discount_usages
		WHERE discount_id = $1
		ORDER BY created_at DESC
	`, discountID)
	if err != nil {
		return nil, fmt.Errorf("list usages: %w", err)
	}
	return out, nil
}
