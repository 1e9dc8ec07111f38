package models

import (
	"time"

	"github.com/google/uuid"
)

// UserContact is the read-only contact projection kept in sync by the
// identity gateway. Used only to address seller and supplier notifications.
type UserContact struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	Email     string    `gorm:"column:email;not null"`
	Name      string    `gorm:"column:name;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
