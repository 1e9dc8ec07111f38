package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylivhq/payliv-backend/pkg/enums"
)

// DropshipOrderItem is one supplier's fulfillment obligation carved out of a
// parent order at finalization time. Fulfillment status is forward-only and
// independent of the parent order's payment status.
type DropshipOrderItem struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID           uuid.UUID               `gorm:"column:order_id;type:uuid;not null" json:"order_id"`
	LineItemID        uuid.UUID               `gorm:"column:line_item_id;type:uuid;not null;uniqueIndex:ux_dropship_items_line_item" json:"line_item_id"`
	SupplierUserID    uuid.UUID               `gorm:"column:supplier_user_id;type:uuid;not null" json:"supplier_user_id"`
	SellerStoreID     uuid.UUID               `gorm:"column:seller_store_id;type:uuid;not null" json:"seller_store_id"`
	SellerUserID      uuid.UUID               `gorm:"column:seller_user_id;type:uuid;not null" json:"seller_user_id"`
	ProductID         uuid.UUID               `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	Qty               int                     `gorm:"column:qty;not null" json:"qty"`
	WholesalePrice    decimal.Decimal         `gorm:"column:wholesale_price;type:numeric(14,2);not null" json:"wholesale_price"`
	SellerPrice       decimal.Decimal         `gorm:"column:seller_price;type:numeric(14,2);not null" json:"seller_price"`
	FulfillmentStatus enums.FulfillmentStatus `gorm:"column:fulfillment_status;type:fulfillment_status;not null;default:'confirmed'" json:"fulfillment_status"`
	ShippedAt         *time.Time              `gorm:"column:shipped_at" json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time              `gorm:"column:delivered_at" json:"delivered_at,omitempty"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
