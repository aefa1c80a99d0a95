package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type DiscountKind string

const (
	KindSale    DiscountKind = "sale"
	KindVoucher DiscountKind = "voucher"
)

type DiscountType string

const (
	TypePercentage   DiscountType = "percentage"
	TypeFixed        DiscountType = "fixed"
	TypeFreeShipping DiscountType = "free_shipping"
	TypeBuyXGetY     DiscountType = "buy_x_get_y"
)

type DiscountScope string

const (
	ScopeEntireOrder      DiscountScope = "entire_order"
	ScopeSpecificProducts DiscountScope = "specific_products"
)

// Metadata is a free-form string map stored as JSONB.
type Metadata map[string]string

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("metadata: unsupported scan type %T", src)
	}
	return json.Unmarshal(b, m)
}

type Discount struct {
	ID                 uuid.UUID        `db:"id" json:"id"`
	TenantID           uuid.UUID        `db:"tenant_id" json:"tenant_id"`
	Name               string           `db:"name" json:"name"`
	Description        string           `db:"description" json:"description,omitempty"`
	Kind               DiscountKind     `db:"kind" json:"kind"`
	Type               DiscountType     `db:"type" json:"type"`
	Value              decimal.Decimal  `db:"value" json:"value"`
	Scope              DiscountScope    `db:"scope" json:"scope"`
	MinOrderAmount     *decimal.Decimal `db:"min_order_amount" json:"min_order_amount,omitempty"`
	MinQuantity        *int             `db:"min_quantity" json:"min_quantity,omitempty"`
	UsageLimit         *int             `db:"usage_limit" json:"usage_limit,omitempty"`
	UsedCount          int              `db:"used_count" json:"used_count"`
	MaxUsesPerCustomer *int             `db:"max_uses_per_customer" json:"max_uses_per_customer,omitempty"`
	SingleUse          bool             `db:"single_use" json:"single_use"`
	StartsAt           *time.Time       `db:"starts_at" json:"starts_at,omitempty"`
	EndsAt             *time.Time       `db:"ends_at" json:"ends_at,omitempty"`
	IsActive           bool             `db:"is_active" json:"is_active"`
	ProductIDs         pq.StringArray   `db:"product_ids" json:"product_ids,omitempty"`
	CollectionIDs      pq.StringArray   `db:"collection_ids" json:"collection_ids,omitempty"`
	Metadata           Metadata         `db:"metadata" json:"metadata,omitempty"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

// LimitReached reports whether the discount-level usage limit is exhausted.
func (d *Discount) LimitReached() bool {
	return d.UsageLimit != nil && d.UsedCount >= *d.UsageLimit
}
