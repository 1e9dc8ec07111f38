package webhooks

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paylivhq/payliv-backend/pkg/db/models"
	"github.com/paylivhq/payliv-backend/pkg/enums"
)

// Repository owns the append-only webhook log. The raw payload is written
// before any processing; only status, order reference and error get updated.
type Repository interface {
	Insert(ctx context.Context, log *models.WebhookLog) error
	Resolve(ctx context.Context, id uuid.UUID, status enums.WebhookLogStatus, orderID *uuid.UUID, errText *string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds the GORM-backed webhook log repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Insert(ctx context.Context, log *models.WebhookLog) error {
	if len(log.Payload) == 0 {
		log.Payload = json.RawMessage(`{}`)
	}
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *gormRepository) Resolve(ctx context.Context, id uuid.UUID, status enums.WebhookLogStatus, orderID *uuid.UUID, errText *string) error {
	updates := map[string]any{"status": status}
	if orderID != nil {
		updates["order_id"] = *orderID
	}
	if errText != nil {
		updates["error"] = *errText
	}
	return r.db.WithContext(ctx).
		Model(&models.WebhookLog{}).
		Where("id = ?", id).
		Updates(updates).Error
}
