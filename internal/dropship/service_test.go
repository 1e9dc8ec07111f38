package dropship

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paylivhq/payliv-backend/internal/notifications"
	"github.com/paylivhq/payliv-backend/pkg/db/models"
	"github.com/paylivhq/payliv-backend/pkg/enums"
	pkgerrors "github.com/paylivhq/payliv-backend/pkg/errors"
	"github.com/paylivhq/payliv-backend/pkg/logger"
)

type fakeDropshipRepo struct {
	item *models.DropshipOrderItem
}

func (f *fakeDropshipRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeDropshipRepo) Insert(ctx context.Context, item *models.DropshipOrderItem) error {
	return nil
}

func (f *fakeDropshipRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.DropshipOrderItem, error) {
	if f.item == nil || f.item.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *f.item
	return &copied, nil
}

func (f *fakeDropshipRepo) ListBySupplier(ctx context.Context, supplierUserID uuid.UUID, limit int) ([]models.DropshipOrderItem, error) {
	if f.item != nil && f.item.SupplierUserID == supplierUserID {
		return []models.DropshipOrderItem{*f.item}, nil
	}
	return nil, nil
}

func (f *fakeDropshipRepo) UpdateStatusGuarded(ctx context.Context, id uuid.UUID, from enums.FulfillmentStatus, updates map[string]any) (int64, error) {
	if f.item == nil || f.item.ID != id || f.item.FulfillmentStatus != from {
		return 0, nil
	}
	if v, ok := updates["fulfillment_status"].(enums.FulfillmentStatus); ok {
		f.item.FulfillmentStatus = v
	}
	if v, ok := updates["shipped_at"].(time.Time); ok {
		f.item.ShippedAt = &v
	}
	if v, ok := updates["delivered_at"].(time.Time); ok {
		f.item.DeliveredAt = &v
	}
	return 1, nil
}

type fakeNotificationRepo struct {
	rows []*models.Notification
}

func (f *fakeNotificationRepo) WithTx(tx *gorm.DB) notifications.Repository { return f }

func (f *fakeNotificationRepo) Insert(ctx context.Context, row *models.Notification) error {
	row.ID = uuid.New()
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeNotificationRepo) ClaimPending(ctx context.Context, limit int) ([]models.Notification, error) {
	return nil, nil
}

func (f *fakeNotificationRepo) MarkSent(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeNotificationRepo) MarkAttemptFailed(ctx context.Context, id uuid.UUID, attempt int, lastError string, exhausted bool) error {
	return nil
}

type fakeDirectory struct{}

func (fakeDirectory) EmailFor(ctx context.Context, userID uuid.UUID) (string, error) {
	return "seller@example.com", nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func seedItem(status enums.FulfillmentStatus) *models.DropshipOrderItem {
	return &models.DropshipOrderItem{
		ID:                uuid.New(),
		OrderID:           uuid.New(),
		LineItemID:        uuid.New(),
		SupplierUserID:    uuid.New(),
		SellerStoreID:     uuid.New(),
		SellerUserID:      uuid.New(),
		ProductID:         uuid.New(),
		Qty:               2,
		FulfillmentStatus: status,
	}
}

func newTestService(t *testing.T, repo *fakeDropshipRepo, notifyRepo *fakeNotificationRepo) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	notifySvc, err := notifications.NewService(notifyRepo, logg)
	if err != nil {
		t.Fatalf("notification service: %v", err)
	}
	svc, err := NewService(repo, fakeTxRunner{}, notifySvc, fakeDirectory{}, logg)
	if err != nil {
		t.Fatalf("dropship service: %v", err)
	}
	return svc
}

func TestAdvanceShippedNotifiesSeller(t *testing.T) {
	item := seedItem(enums.FulfillmentStatusConfirmed)
	repo := &fakeDropshipRepo{item: item}
	notifyRepo := &fakeNotificationRepo{}
	svc := newTestService(t, repo, notifyRepo)

	updated, err := svc.Advance(context.Background(), AdvanceInput{
		ItemID:  item.ID,
		Target:  enums.FulfillmentStatusShipped,
		ActorID: item.SupplierUserID,
	})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if updated.FulfillmentStatus != enums.FulfillmentStatusShipped {
		t.Fatalf("expected shipped, got %s", updated.FulfillmentStatus)
	}
	if updated.ShippedAt == nil {
		t.Fatal("expected shipped_at recorded")
	}
	if len(notifyRepo.rows) != 1 || notifyRepo.rows[0].Kind != enums.NotificationKindDropshipShipped {
		t.Fatalf("expected a dropship_shipped notification, got %+v", notifyRepo.rows)
	}
}

func TestAdvanceSkipStraightToDelivered(t *testing.T) {
	item := seedItem(enums.FulfillmentStatusConfirmed)
	repo := &fakeDropshipRepo{item: item}
	notifyRepo := &fakeNotificationRepo{}
	svc := newTestService(t, repo, notifyRepo)

	updated, err := svc.Advance(context.Background(), AdvanceInput{
		ItemID:  item.ID,
		Target:  enums.FulfillmentStatusDelivered,
		ActorID: item.SupplierUserID,
	})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if updated.FulfillmentStatus != enums.FulfillmentStatusDelivered {
		t.Fatalf("expected delivered, got %s", updated.FulfillmentStatus)
	}
	if len(notifyRepo.rows) != 1 || notifyRepo.rows[0].Kind != enums.NotificationKindDropshipDelivered {
		t.Fatalf("expected a dropship_delivered notification, got %+v", notifyRepo.rows)
	}
}

func TestAdvanceNeverMovesBackward(t *testing.T) {
	item := seedItem(enums.FulfillmentStatusShipped)
	svc := newTestService(t, &fakeDropshipRepo{item: item}, &fakeNotificationRepo{})

	_, err := svc.Advance(context.Background(), AdvanceInput{
		ItemID:  item.ID,
		Target:  enums.FulfillmentStatusConfirmed,
		ActorID: item.SupplierUserID,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestAdvanceForeignItemForbidden(t *testing.T) {
	item := seedItem(enums.FulfillmentStatusConfirmed)
	svc := newTestService(t, &fakeDropshipRepo{item: item}, &fakeNotificationRepo{})

	_, err := svc.Advance(context.Background(), AdvanceInput{
		ItemID:  item.ID,
		Target:  enums.FulfillmentStatusShipped,
		ActorID: uuid.New(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestAdvanceAdminOverrideBypassesOwnership(t *testing.T) {
	item := seedItem(enums.FulfillmentStatusConfirmed)
	svc := newTestService(t, &fakeDropshipRepo{item: item}, &fakeNotificationRepo{})

	updated, err := svc.Advance(context.Background(), AdvanceInput{
		ItemID:        item.ID,
		Target:        enums.FulfillmentStatusShipped,
		ActorID:       uuid.New(),
		AdminOverride: true,
	})
	if err != nil {
		t.Fatalf("advance with override: %v", err)
	}
	if updated.FulfillmentStatus != enums.FulfillmentStatusShipped {
		t.Fatalf("expected shipped, got %s", updated.FulfillmentStatus)
	}
}

func TestAdvanceSameStatusIsNoop(t *testing.T) {
	item := seedItem(enums.FulfillmentStatusShipped)
	notifyRepo := &fakeNotificationRepo{}
	svc := newTestService(t, &fakeDropshipRepo{item: item}, notifyRepo)

	updated, err := svc.Advance(context.Background(), AdvanceInput{
		ItemID:  item.ID,
		Target:  enums.FulfillmentStatusShipped,
		ActorID: item.SupplierUserID,
	})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if updated.FulfillmentStatus != enums.FulfillmentStatusShipped || len(notifyRepo.rows) != 0 {
		t.Fatal("repeating the current status must change nothing")
	}
}
