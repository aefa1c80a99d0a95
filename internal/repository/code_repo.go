package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/merchantkit/voucher-service/internal/models"
)

// ErrCodeTaken reports a (tenant_id, code) unique violation on insert.
var ErrCodeTaken = errors.New("code already taken")

const codeColumns = `
	id, discount_id, tenant_id, code, status, used_count, usage_limit,
	is_manually_created, used_at, created_at, updated_at`

type CodeRepo struct {
	db *sqlx.DB
}

func NewCodeRepo(db *sqlx.DB) *CodeRepo {
	return &CodeRepo{db: db}
}

// GetByCode looks a code up by its normalized string within the tenant.
// Returns nil when absent.
func (r *CodeRepo) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.VoucherCode, error) {
	var c models.VoucherCode
	query := `SELECT` + codeColumns + `
		FROM voucher_codes WHERE tenant_id = $1 AND code = $2`
	err := r.db.GetContext(ctx, &c, query, tenantID, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get code: %w", err)
	}
	return &c, nil
}

// Exists reports whether the code is already taken within the tenant,
// case-insensitively, optionally excluding one code row (the record being
// updated).
func (r *CodeRepo) Exists(ctx context.Context, tenantID uuid.UUID, code string, excludeID *uuid.UUID) (bool, error) {
	var n int
	query := `
		SELECT COUNT(*) FROM voucher_codes
		WHERE tenant_id = $1 AND LOWER(code) = LOWER($2)
	`
	args := []interface{}{tenantID, code}
	if excludeID != nil {
		query += ` AND id <> $3`
		args = append(args, *excludeID)
	}
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return false, fmt.Errorf("code exists: %w", err)
	}
	return n > 0, nil
}

func (r *CodeRepo) ListByDiscount(ctx context.Context, tenantID, discountID uuid.UUID) ([]models.VoucherCode, error) {
	var out []models.VoucherCode
	query := `SELECT` + codeColumns + `
		FROM voucher_codes
		WHERE tenant_id = $1 AND discount_id = $2
		ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &out, query, tenantID, discountID); err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}
	return out, nil
}

// FirstForDiscount returns the oldest code of a discount (the one assigned at
// creation), or nil when the discount has none.
func (r *CodeRepo) FirstForDiscount(ctx context.Context, tenantID, discountID uuid.UUID) (*models.VoucherCode, error) {
	var c models.VoucherCode
	query := `SELECT` + codeColumns + `
		FROM voucher_codes
		WHERE tenant_id = $1 AND discount_id = $2
		ORDER BY created_at ASC LIMIT 1`
	err := r.db.GetContext(ctx, &c, query, tenantID, discountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("first code: %w", err)
	}
	return &c, nil
}

// ListExisting returns every code string stored for the tenant, used to seed
// the generator's uniqueness set.
func (r *CodeRepo) ListExisting(ctx context.Context, tenantID uuid.UUID) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT code FROM voucher_codes WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list existing codes: %w", err)
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("list existing codes: %w", err)
		}
		set[code] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list existing codes: %w", err)
	}
	return set, nil
}

// Insert writes one code row. A unique violation on (tenant_id, code) is
// reported as ErrCodeTaken so the caller can surface a duplicate instead of a
// storage failure when two writers race past the uniqueness pre-check.
func (r *CodeRepo) Insert(ctx context.Context, c *models.VoucherCode) error {
	query := `
		INSERT INTO voucher_codes
		(id, discount_id, tenant_id, code, status, used_count, usage_limit,
		 is_manually_created, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW())
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.DiscountID, c.TenantID, c.Code, c.Status, c.UsedCount,
		c.UsageLimit, c.IsManuallyCreated,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrCodeTaken
		}
		return fmt.Errorf("insert code: %w", err)
	}
	return nil
}

// InsertBatch inserts the given codes in one statement. Codes that collide
// with rows written by a concurrent generator are skipped (ON CONFLICT DO
// NOTHING) and the subset actually inserted is returned; the caller retries
// only what is missing.
func (r *CodeRepo) InsertBatch(ctx context.Context, codes []models.VoucherCode) ([]models.VoucherCode, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	var (
		sb   strings.Builder
		args []interface{}
	)
	sb.WriteString(`
		INSERT INTO voucher_codes
		(id, discount_id, tenant_id, code, status, used_count, usage_limit,
		 is_manually_created, created_at, updated_at)
		VALUES `)
	for i, c := range codes {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 8
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,NOW(),NOW())",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)
		args = append(args,
			c.ID, c.DiscountID, c.TenantID, c.Code, c.Status, c.UsedCount,
			c.UsageLimit, c.IsManuallyCreated)
	}
	sb.WriteString(` ON CONFLICT (tenant_id, code) DO NOTHING RETURNING code`)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("insert codes batch: %w", err)
	}
	defer rows.Close()

	inserted := make(map[string]struct{}, len(codes))
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("insert codes batch: %w", err)
		}
		inserted[code] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("insert codes batch: %w", err)
	}

	out := make([]models.VoucherCode, 0, len(inserted))
	for _, c := range codes {
		if _, ok := inserted[c.Code]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Deactivate marks a code unusable without touching its usage history. It
// returns the owning discount id so callers can drop any cached entries.
func (r *CodeRepo) Deactivate(ctx context.Context, tenantID, codeID uuid.UUID) (uuid.UUID, error) {
	var discountID uuid.UUID
	err := r.db.QueryRowContext(ctx, `
		UPDATE voucher_codes SET status = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
		RETURNING discount_id
	`, tenantID, codeID, models.CodeStatusDeactivated).Scan(&discountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, sql.ErrNoRows
		}
		return uuid.Nil, fmt.Errorf("deactivate code: %w", err)
	}
	return discountID, nil
}
