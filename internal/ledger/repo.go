package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/paylivhq/payliv-backend/pkg/db/models"
	"github.com/paylivhq/payliv-backend/pkg/enums"
)

// Repository owns persistence for ledger accounts and entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAccountByUser(ctx context.Context, userID uuid.UUID) (*models.LedgerAccount, error)
	CreateAccount(ctx context.Context, account *models.LedgerAccount) error
	AddToBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (int64, error)
	DebitBalanceGuarded(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (int64, error)
	InsertEntry(ctx context.Context, entry *models.LedgerEntry) error
	HasEntryForOrder(ctx context.Context, orderID, userID uuid.UUID, entryType enums.LedgerEntryType) (bool, error)
	ListEntriesByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.LedgerEntry, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds the GORM-backed ledger repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

func (r *gormRepository) FindAccountByUser(ctx context.Context, userID uuid.UUID) (*models.LedgerAccount, error) {
	var account models.LedgerAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *gormRepository) CreateAccount(ctx context.Context, account *models.LedgerAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// AddToBalance applies a relative balance change in a single statement.
func (r *gormRepository) AddToBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LedgerAccount{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": gorm.Expr("now()"),
		})
	return res.RowsAffected, res.Error
}

// DebitBalanceGuarded subtracts amount only while the balance stays
// non-negative. Zero rows affected means the funds were not there.
func (r *gormRepository) DebitBalanceGuarded(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LedgerAccount{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": gorm.Expr("now()"),
		})
	return res.RowsAffected, res.Error
}

func (r *gormRepository) InsertEntry(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *gormRepository) HasEntryForOrder(ctx context.Context, orderID, userID uuid.UUID, entryType enums.LedgerEntryType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("order_id = ? AND user_id = ? AND type = ?", orderID, userID, entryType).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormRepository) ListEntriesByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
