package assets

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/paylivhq/payliv-backend/pkg/db/models"
)

// Repository owns persistence for unlocked digital assets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, asset *models.DigitalAsset) error
	ListByOrderAndEmail(ctx context.Context, orderID uuid.UUID, email string) ([]models.DigitalAsset, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds the GORM-backed asset repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

// Insert unlocks one asset. Re-unlocking the same order line is a no-op.
func (r *gormRepository) Insert(ctx context.Context, asset *models.DigitalAsset) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(asset).Error
}

func (r *gormRepository) ListByOrderAndEmail(ctx context.Context, orderID uuid.UUID, email string) ([]models.DigitalAsset, error) {
	var list []models.DigitalAsset
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND customer_email = ?", orderID, email).
		Order("created_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
