package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylivhq/payliv-backend/pkg/enums"
)

// Order represents a single checkout transaction against one store.
//
// Status only ever moves forward along unpaid -> pending -> paid -> delivered
// (cancelled is reachable from unpaid/pending); every mutation goes through the
// order state machine, never direct writes. TotalAmount is frozen at creation.
type Order struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StoreID         uuid.UUID              `gorm:"column:store_id;type:uuid;not null" json:"store_id"`
	SellerUserID    uuid.UUID              `gorm:"column:seller_user_id;type:uuid;not null" json:"seller_user_id"`
	CustomerName    string                 `gorm:"column:customer_name;not null" json:"customer_name"`
	CustomerPhone   string                 `gorm:"column:customer_phone;not null" json:"customer_phone"`
	CustomerEmail   string                 `gorm:"column:customer_email;not null" json:"customer_email"`
	CustomerAddress string                 `gorm:"column:customer_address" json:"customer_address,omitempty"`
	Status          enums.OrderStatus      `gorm:"column:status;type:order_status;not null;default:'unpaid'" json:"status"`
	Currency        enums.Currency         `gorm:"column:currency;type:text;not null;default:'XOF'" json:"currency"`
	TotalAmount     decimal.Decimal        `gorm:"column:total_amount;type:numeric(14,2);not null" json:"total_amount"`
	PaymentMethod   enums.PaymentMethod    `gorm:"column:payment_method;type:payment_method;not null;default:'mobile_money'" json:"payment_method"`
	Provider        *enums.PaymentProvider `gorm:"column:provider;type:text" json:"provider,omitempty"`
	ProviderTxID    *string                `gorm:"column:provider_tx_id" json:"provider_tx_id,omitempty"`
	Items           []OrderLineItem        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	PaidAt          *time.Time             `gorm:"column:paid_at" json:"paid_at,omitempty"`
	DeliveredAt     *time.Time             `gorm:"column:delivered_at" json:"delivered_at,omitempty"`
	CancelledAt     *time.Time             `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
