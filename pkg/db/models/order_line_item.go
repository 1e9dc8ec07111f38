package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLineItem is one product entry inside an order. Dropship items carry the
// supplier reference and the wholesale price agreed with that supplier.
type OrderLineItem struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID        uuid.UUID        `gorm:"column:order_id;type:uuid;not null" json:"order_id"`
	ProductID      uuid.UUID        `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	Name           string           `gorm:"column:name;not null" json:"name"`
	UnitPrice      decimal.Decimal  `gorm:"column:unit_price;type:numeric(14,2);not null" json:"unit_price"`
	Qty            int              `gorm:"column:qty;not null" json:"qty"`
	IsDigital      bool             `gorm:"column:is_digital;not null;default:false" json:"is_digital"`
	StoragePath    *string          `gorm:"column:storage_path" json:"-"`
	SupplierUserID *uuid.UUID       `gorm:"column:supplier_user_id;type:uuid" json:"supplier_user_id,omitempty"`
	WholesalePrice *decimal.Decimal `gorm:"column:wholesale_price;type:numeric(14,2)" json:"wholesale_price,omitempty"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// IsDropship reports whether the line item is fulfilled by a third-party supplier.
func (i OrderLineItem) IsDropship() bool {
	return i.SupplierUserID != nil && *i.SupplierUserID != uuid.Nil
}

// LineTotal returns unit price times quantity.
func (i OrderLineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Qty)))
}
