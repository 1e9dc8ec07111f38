package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylivhq/payliv-backend/pkg/enums"
)

// LedgerEntry records an immutable balance movement. Entries referencing an
// order double as the finalization marker: their presence means the order's
// credits were already applied.
type LedgerEntry struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID             `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	Type        enums.LedgerEntryType `gorm:"column:type;type:ledger_entry_type;not null" json:"type"`
	Amount      decimal.Decimal       `gorm:"column:amount;type:numeric(14,2);not null" json:"amount"`
	OrderID     *uuid.UUID            `gorm:"column:order_id;type:uuid;uniqueIndex:ux_ledger_entries_order_user_type" json:"order_id,omitempty"`
	PayoutID    *uuid.UUID            `gorm:"column:payout_id;type:uuid" json:"payout_id,omitempty"`
	ActorUserID *uuid.UUID            `gorm:"column:actor_user_id;type:uuid" json:"actor_user_id,omitempty"`
	Reason      *string               `gorm:"column:reason" json:"reason,omitempty"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
