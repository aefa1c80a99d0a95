package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountUsage is one append-only ledger entry recording a redemption.
// Rows are never updated or deleted; counters on the discount and code are
// incremented in the same transaction that inserts the row.
type DiscountUsage struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	DiscountID    uuid.UUID       `db:"discount_id" json:"discount_id"`
	VoucherCodeID *uuid.UUID      `db:"voucher_code_id" json:"voucher_code_id,omitempty"`
	CustomerID    *string         `db:"customer_id" json:"customer_id,omitempty"`
	OrderID       *string         `db:"order_id" json:"order_id,omitempty"`
	Amount        decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
