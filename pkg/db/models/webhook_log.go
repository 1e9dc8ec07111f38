package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/paylivhq/payliv-backend/pkg/enums"
)

// WebhookLog is the append-only audit record of an inbound provider event.
// The raw payload is written before any processing and never mutated; only the
// status and error columns are updated as processing resolves.
type WebhookLog struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Provider  enums.PaymentProvider  `gorm:"column:provider;type:text;not null" json:"provider"`
	Payload   json.RawMessage        `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	Status    enums.WebhookLogStatus `gorm:"column:status;type:webhook_log_status;not null;default:'received'" json:"status"`
	OrderID   *uuid.UUID             `gorm:"column:order_id;type:uuid" json:"order_id,omitempty"`
	Error     *string                `gorm:"column:error" json:"error,omitempty"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
