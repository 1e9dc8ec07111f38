package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paylivhq/payliv-backend/pkg/db/models"
	"github.com/paylivhq/payliv-backend/pkg/enums"
)

// Repository owns persistence for the notification outbox.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, notification *models.Notification) error
	ClaimPending(ctx context.Context, limit int) ([]models.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkAttemptFailed(ctx context.Context, id uuid.UUID, attempt int, lastError string, exhausted bool) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds the GORM-backed outbox repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

func (r *gormRepository) Insert(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// claimLease is how long a claimed row stays invisible to other workers. A
// worker that dies mid-batch loses its claim after the lease and the rows are
// swept again; at-least-once delivery is acceptable for email.
const claimLease = 2 * time.Minute

// ClaimPending claims the oldest pending rows for this worker in one guarded
// update. SKIP LOCKED plus the claim stamp keeps concurrent worker replicas
// off each other's batches.
func (r *gormRepository) ClaimPending(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var claimed []models.Notification
	err := r.db.WithContext(ctx).Raw(`
		UPDATE notifications
		SET claimed_at = now(), updated_at = now()
		WHERE id IN (
			SELECT id FROM notifications
			WHERE status = ?
			  AND (claimed_at IS NULL OR claimed_at < now() - ?::interval)
			ORDER BY created_at ASC
			LIMIT ?
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`,
		enums.NotificationStatusPending,
		fmt.Sprintf("%d seconds", int(claimLease.Seconds())),
		limit,
	).Scan(&claimed).Error
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *gormRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     enums.NotificationStatusSent,
			"sent_at":    now,
			"claimed_at": nil,
			"last_error": nil,
			"updated_at": now,
		}).Error
}

// MarkAttemptFailed records a delivery failure. The row stays pending until
// the attempt budget is exhausted, then flips to failed for good.
func (r *gormRepository) MarkAttemptFailed(ctx context.Context, id uuid.UUID, attempt int, lastError string, exhausted bool) error {
	status := enums.NotificationStatusPending
	if exhausted {
		status = enums.NotificationStatusFailed
	}
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"attempts":   attempt,
			"claimed_at": nil,
			"last_error": lastError,
			"updated_at": time.Now().UTC(),
		}).Error
}
