package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PayoutLog is the append-only diagnostic trail for the payout subsystem,
// kept separate from the webhook log.
type PayoutLog struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PayoutID  *uuid.UUID      `gorm:"column:payout_id;type:uuid" json:"payout_id,omitempty"`
	Function  string          `gorm:"column:function;not null" json:"function"`
	Level     string          `gorm:"column:level;not null;default:'info'" json:"level"`
	Payload   json.RawMessage `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
