package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/paylivhq/payliv-backend/pkg/enums"
)

// Notification is a pending-outbox email row. Rows are inserted inside the
// transaction that produced them and dispatched asynchronously by the
// notify-worker; the dedupe key makes enqueueing idempotent per side effect.
type Notification struct {
	ID        uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DedupeKey string                   `gorm:"column:dedupe_key;not null;uniqueIndex:ux_notifications_dedupe_key" json:"dedupe_key"`
	Kind      enums.NotificationKind   `gorm:"column:kind;type:text;not null" json:"kind"`
	Recipient string                   `gorm:"column:recipient;not null" json:"recipient"`
	Subject   string                   `gorm:"column:subject;not null" json:"subject"`
	BodyHTML  string                   `gorm:"column:body_html;not null" json:"-"`
	Status    enums.NotificationStatus `gorm:"column:status;type:notification_status;not null;default:'pending'" json:"status"`
	Attempts  int                      `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError *string                  `gorm:"column:last_error" json:"last_error,omitempty"`
	OrderID   *uuid.UUID               `gorm:"column:order_id;type:uuid" json:"order_id,omitempty"`
	PayoutID  *uuid.UUID               `gorm:"column:payout_id;type:uuid" json:"payout_id,omitempty"`
	ClaimedAt *time.Time               `gorm:"column:claimed_at" json:"-"`
	SentAt    *time.Time               `gorm:"column:sent_at" json:"sent_at,omitempty"`
	CreatedAt time.Time                `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time                `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
