package payouts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paylivhq/payliv-backend/pkg/db/models"
	"github.com/paylivhq/payliv-backend/pkg/enums"
)

// Repository owns persistence for payouts and their append-only log trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, payout *models.Payout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Payout, error)
	ListByStatus(ctx context.Context, status enums.PayoutStatus, limit int) ([]models.Payout, error)
	UpdateStatusGuarded(ctx context.Context, id uuid.UUID, from enums.PayoutStatus, updates map[string]any) (int64, error)
	InsertLog(ctx context.Context, log *models.PayoutLog) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds the GORM-backed payout repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

func (r *gormRepository) Insert(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&payout).Error
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *gormRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Payout, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	var list []models.Payout
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("requested_at DESC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *gormRepository) ListByStatus(ctx context.Context, status enums.PayoutStatus, limit int) ([]models.Payout, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	var list []models.Payout
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("requested_at ASC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateStatusGuarded flips the payout only from the expected prior status,
// so two admins deciding the same payout cannot both win.
func (r *gormRepository) UpdateStatusGuarded(ctx context.Context, id uuid.UUID, from enums.PayoutStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *gormRepository) InsertLog(ctx context.Context, log *models.PayoutLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}
