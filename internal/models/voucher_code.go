package models

import (
	"time"

	"github.com/google/uuid"
)

type CodeStatus string

const (
	CodeStatusActive      CodeStatus = "active"
	CodeStatusUsed        CodeStatus = "used"
	CodeStatusExpired     CodeStatus = "expired"
	CodeStatusDeactivated CodeStatus = "deactivated"
)

// VoucherCode is one redeemable string belonging to a discount. Codes are
// stored normalized (trimmed, uppercase) and are unique per tenant.
type VoucherCode struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	DiscountID        uuid.UUID  `db:"discount_id" json:"discount_id"`
	TenantID          uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	Code              string     `db:"code" json:"code"`
	Status            CodeStatus `db:"status" json:"status"`
	UsedCount         int        `db:"used_count" json:"used_count"`
	UsageLimit        *int       `db:"usage_limit" json:"usage_limit,omitempty"`
	IsManuallyCreated bool       `db:"is_manually_created" json:"is_manually_created"`
	UsedAt            *time.Time `db:"used_at" json:"used_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// LimitReached reports whether the per-code usage limit is exhausted.
func (c *VoucherCode) LimitReached() bool {
	return c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit
}
