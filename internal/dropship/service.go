package dropship

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paylivhq/payliv-backend/internal/notifications"
	"github.com/paylivhq/payliv-backend/pkg/db/models"
	"github.com/paylivhq/payliv-backend/pkg/enums"
	"github.com/paylivhq/payliv-backend/pkg/errors"
	"github.com/paylivhq/payliv-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

const maxAdvanceAttempts = 3

// Service tracks supplier fulfillment. Status moves strictly forward through
// confirmed, shipped, delivered and never touches the parent order or the
// ledger; delivery confirmation is informational only.
type Service struct {
	repo      Repository
	tx        txRunner
	notify    *notifications.Service
	directory notifications.Directory
	logg      *logger.Logger
}

func NewService(repo Repository, tx txRunner, notify *notifications.Service, directory notifications.Directory, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dropship repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notification service is required")
	}
	if directory == nil {
		return nil, fmt.Errorf("contact directory is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Service{repo: repo, tx: tx, notify: notify, directory: directory, logg: logg}, nil
}

// Get returns one fulfillment record.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.DropshipOrderItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "dropship item not found")
		}
		return nil, fmt.Errorf("finding dropship item: %w", err)
	}
	return item, nil
}

// ListForSupplier returns the supplier's fulfillment queue, newest first.
func (s *Service) ListForSupplier(ctx context.Context, supplierUserID uuid.UUID, limit int) ([]models.DropshipOrderItem, error) {
	return s.repo.ListBySupplier(ctx, supplierUserID, limit)
}

// AdvanceInput is a fulfillment status change request.
type AdvanceInput struct {
	ItemID  uuid.UUID
	Target  enums.FulfillmentStatus
	ActorID uuid.UUID
	// AdminOverride lets operators move items owned by other suppliers.
	AdminOverride bool
}

// Advance moves the item forward. Suppliers may only touch their own items;
// skipping over shipped straight to delivered is allowed.
func (s *Service) Advance(ctx context.Context, input AdvanceInput) (*models.DropshipOrderItem, error) {
	if !input.Target.IsValid() {
		return nil, errors.New(errors.CodeValidation, "unknown fulfillment status")
	}
	if input.ActorID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "actor is required")
	}

	ctx = s.logg.WithActorID(ctx, input.ActorID.String())

	for attempt := 0; attempt < maxAdvanceAttempts; attempt++ {
		item, err := s.Get(ctx, input.ItemID)
		if err != nil {
			return nil, err
		}
		if !input.AdminOverride && item.SupplierUserID != input.ActorID {
			return nil, errors.New(errors.CodeForbidden, "item belongs to another supplier")
		}
		if item.FulfillmentStatus == input.Target {
			return item, nil
		}
		if !item.FulfillmentStatus.CanAdvanceTo(input.Target) {
			return nil, errors.New(errors.CodeStateConflict, "fulfillment status only moves forward").
				WithDetails(map[string]any{
					"current":   item.FulfillmentStatus.String(),
					"requested": input.Target.String(),
				})
		}

		var updated *models.DropshipOrderItem
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			rows, err := repo.UpdateStatusGuarded(ctx, item.ID, item.FulfillmentStatus, advanceUpdates(input.Target))
			if err != nil {
				return fmt.Errorf("advancing fulfillment: %w", err)
			}
			if rows == 0 {
				return errRaced
			}
			updated, err = repo.FindByID(ctx, item.ID)
			if err != nil {
				return err
			}
			return s.enqueueSellerUpdate(ctx, tx, updated)
		})
		if err != nil {
			if stdErrors.Is(err, errRaced) {
				continue
			}
			return nil, err
		}

		ctx = s.logg.WithFields(ctx, map[string]any{
			"dropship_item_id": item.ID.String(),
			"status":           input.Target.String(),
		})
		s.logg.Info(ctx, "fulfillment status advanced")
		return updated, nil
	}

	return nil, errors.New(errors.CodeStateConflict, "item kept changing under concurrent updates")
}

var errRaced = stdErrors.New("lost fulfillment status race")

func (s *Service) enqueueSellerUpdate(ctx context.Context, tx *gorm.DB, item *models.DropshipOrderItem) error {
	sellerEmail, err := s.directory.EmailFor(ctx, item.SellerUserID)
	if err != nil {
		return err
	}
	switch item.FulfillmentStatus {
	case enums.FulfillmentStatusShipped:
		return s.notify.Enqueue(ctx, tx, notifications.DropshipShipped(item, sellerEmail))
	case enums.FulfillmentStatusDelivered:
		return s.notify.Enqueue(ctx, tx, notifications.DropshipDelivered(item, sellerEmail))
	default:
		return nil
	}
}

func advanceUpdates(target enums.FulfillmentStatus) map[string]any {
	now := time.Now().UTC()
	updates := map[string]any{
		"fulfillment_status": target,
		"updated_at":         now,
	}
	switch target {
	case enums.FulfillmentStatusShipped:
		updates["shipped_at"] = now
	case enums.FulfillmentStatusDelivered:
		updates["delivered_at"] = now
	}
	return updates
}
