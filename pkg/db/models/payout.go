package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylivhq/payliv-backend/pkg/enums"
)

// Payout is a user's withdrawal request against their ledger balance.
// Approved and rejected are terminal; approval debits the ledger exactly once.
type Payout struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID          uuid.UUID          `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	Amount          decimal.Decimal    `gorm:"column:amount;type:numeric(14,2);not null" json:"amount"`
	Method          string             `gorm:"column:method;not null" json:"method"`
	PhoneNumber     string             `gorm:"column:phone_number;not null" json:"phone_number"`
	Status          enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;default:'pending'" json:"status"`
	RejectionReason *string            `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`
	ProcessedBy     *uuid.UUID         `gorm:"column:processed_by;type:uuid" json:"processed_by,omitempty"`
	RequestedAt     time.Time          `gorm:"column:requested_at;autoCreateTime" json:"requested_at"`
	ProcessedAt     *time.Time         `gorm:"column:processed_at" json:"processed_at,omitempty"`
}
