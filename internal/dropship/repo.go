package dropship

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/paylivhq/payliv-backend/pkg/db/models"
	"github.com/paylivhq/payliv-backend/pkg/enums"
)

// Repository owns persistence for dropship order items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, item *models.DropshipOrderItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.DropshipOrderItem, error)
	ListBySupplier(ctx context.Context, supplierUserID uuid.UUID, limit int) ([]models.DropshipOrderItem, error)
	UpdateStatusGuarded(ctx context.Context, id uuid.UUID, from enums.FulfillmentStatus, updates map[string]any) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds the GORM-backed dropship repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

// Insert creates the fulfillment record. Re-running finalization for the same
// line item is a no-op thanks to the line item uniqueness.
func (r *gormRepository) Insert(ctx context.Context, item *models.DropshipOrderItem) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(item).Error
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.DropshipOrderItem, error) {
	var item models.DropshipOrderItem
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *gormRepository) ListBySupplier(ctx context.Context, supplierUserID uuid.UUID, limit int) ([]models.DropshipOrderItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	var list []models.DropshipOrderItem
	err := r.db.WithContext(ctx).
		Where("supplier_user_id = ?", supplierUserID).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateStatusGuarded advances fulfillment only from the expected prior
// status, mirroring the order state machine's guarded writes.
func (r *gormRepository) UpdateStatusGuarded(ctx context.Context, id uuid.UUID, from enums.FulfillmentStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DropshipOrderItem{}).
		Where("id = ? AND fulfillment_status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}
