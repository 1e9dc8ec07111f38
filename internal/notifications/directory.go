package notifications

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paylivhq/payliv-backend/pkg/db/models"
)

// Directory resolves user ids to email addresses. An empty address with a nil
// error means the user has no contact on file.
type Directory interface {
	EmailFor(ctx context.Context, userID uuid.UUID) (string, error)
}

type gormDirectory struct {
	db *gorm.DB
}

// NewDirectory reads addresses from the contact projection table.
func NewDirectory(db *gorm.DB) Directory {
	return &gormDirectory{db: db}
}

func (d *gormDirectory) EmailFor(ctx context.Context, userID uuid.UUID) (string, error) {
	var contact models.UserContact
	err := d.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&contact).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("resolving contact for user %s: %w", userID, err)
	}
	return contact.Email, nil
}
