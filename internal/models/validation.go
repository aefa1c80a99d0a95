package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RejectionReason identifies which redemption gate rejected a code. Gates are
// evaluated in a fixed order and the first failing gate wins, so the reason a
// caller sees is deterministic even when several conditions fail at once.
type RejectionReason string

const (
	ReasonNotFound              RejectionReason = "not_found"
	ReasonInactive              RejectionReason = "inactive"
	ReasonNotYetActive          RejectionReason = "not_yet_active"
	ReasonExpired               RejectionReason = "expired"
	ReasonLimitReached          RejectionReason = "limit_reached"
	ReasonAlreadyUsed           RejectionReason = "already_used"
	ReasonCodeLimitReached      RejectionReason = "code_limit_reached"
	ReasonBelowMinimum          RejectionReason = "below_minimum"
	ReasonBelowMinimumQuantity  RejectionReason = "below_minimum_quantity"
	ReasonAlreadyUsedByCustomer RejectionReason = "already_used_by_customer"
)

// RedemptionRequest carries the order context a code is validated against.
// TenantID is always explicit; the core never reads ambient session state.
type RedemptionRequest struct {
	TenantID   uuid.UUID
	Code       string
	OrderTotal decimal.Decimal
	ItemCount  int
	CustomerID *string
	OrderID    *string
}

// RedemptionResult is the outcome of validating (and optionally recording) a
// redemption. Rejections are values, not errors: Valid is false, Reason and
// Message say why. On success the computed amount and the identifiers needed
// to record usage are filled in.
type RedemptionResult struct {
	Valid         bool             `json:"valid"`
	Reason        RejectionReason  `json:"reason,omitempty"`
	Message       string           `json:"message,omitempty"`
	DiscountID    uuid.UUID        `json:"discount_id,omitempty"`
	VoucherCodeID uuid.UUID        `json:"voucher_code_id,omitempty"`
	Type          DiscountType     `json:"type,omitempty"`
	Value         decimal.Decimal  `json:"value,omitempty"`
	Amount        decimal.Decimal  `json:"amount,omitempty"`
	UsageID       *uuid.UUID       `json:"usage_id,omitempty"`
}
