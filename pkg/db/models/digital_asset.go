package models

import (
	"time"

	"github.com/google/uuid"
)

// DigitalAsset is an unlocked download entitlement created at finalization for
// digital line items. Retrieval requires the order id plus the customer email
// used at checkout; the download reference itself is signed at lookup time.
type DigitalAsset struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID       uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_digital_assets_order_line_item,priority:1" json:"order_id"`
	LineItemID    uuid.UUID `gorm:"column:line_item_id;type:uuid;not null;uniqueIndex:ux_digital_assets_order_line_item,priority:2" json:"line_item_id"`
	ProductID     uuid.UUID `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	ProductName   string    `gorm:"column:product_name;not null" json:"product_name"`
	StoragePath   string    `gorm:"column:storage_path;not null" json:"-"`
	CustomerEmail string    `gorm:"column:customer_email;not null" json:"-"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
