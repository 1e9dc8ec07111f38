package finalize

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/paylivhq/payliv-backend/internal/assets"
	"github.com/paylivhq/payliv-backend/internal/dropship"
	"github.com/paylivhq/payliv-backend/internal/ledger"
	"github.com/paylivhq/payliv-backend/internal/notifications"
	"github.com/paylivhq/payliv-backend/internal/orders"
	"github.com/paylivhq/payliv-backend/pkg/db/models"
	"github.com/paylivhq/payliv-backend/pkg/enums"
	pkgerrors "github.com/paylivhq/payliv-backend/pkg/errors"
	"github.com/paylivhq/payliv-backend/pkg/logger"
)

type fakeOrderRepo struct {
	order *models.Order
}

func (f *fakeOrderRepo) WithTx(tx *gorm.DB) orders.Repository            { return f }
func (f *fakeOrderRepo) Create(ctx context.Context, o *models.Order) error { return nil }

func (f *fakeOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if f.order == nil || f.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *f.order
	return &copied, nil
}

func (f *fakeOrderRepo) UpdateStatusGuarded(ctx context.Context, id uuid.UUID, from enums.OrderStatus, updates map[string]any) (int64, error) {
	return 0, nil
}

func (f *fakeOrderRepo) ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.Order, error) {
	return nil, nil
}

type fakeLedgerRepo struct {
	accounts map[uuid.UUID]*models.LedgerAccount
	entries  []*models.LedgerEntry
	entryErr error
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{accounts: map[uuid.UUID]*models.LedgerAccount{}}
}

func (f *fakeLedgerRepo) WithTx(tx *gorm.DB) ledger.Repository { return f }

func (f *fakeLedgerRepo) FindAccountByUser(ctx context.Context, userID uuid.UUID) (*models.LedgerAccount, error) {
	account, ok := f.accounts[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return account, nil
}

func (f *fakeLedgerRepo) CreateAccount(ctx context.Context, account *models.LedgerAccount) error {
	account.ID = uuid.New()
	f.accounts[account.UserID] = account
	return nil
}

func (f *fakeLedgerRepo) AddToBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (int64, error) {
	account, ok := f.accounts[userID]
	if !ok {
		return 0, nil
	}
	account.Balance = account.Balance.Add(amount)
	return 1, nil
}

func (f *fakeLedgerRepo) DebitBalanceGuarded(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (int64, error) {
	account, ok := f.accounts[userID]
	if !ok || account.Balance.LessThan(amount) {
		return 0, nil
	}
	account.Balance = account.Balance.Sub(amount)
	return 1, nil
}

func (f *fakeLedgerRepo) InsertEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if f.entryErr != nil {
		err := f.entryErr
		f.entryErr = nil
		return err
	}
	entry.ID = uuid.New()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLedgerRepo) HasEntryForOrder(ctx context.Context, orderID, userID uuid.UUID, entryType enums.LedgerEntryType) (bool, error) {
	for _, entry := range f.entries {
		if entry.OrderID != nil && *entry.OrderID == orderID && entry.UserID == userID && entry.Type == entryType {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedgerRepo) ListEntriesByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.LedgerEntry, error) {
	return nil, nil
}

type fakeDropshipRepo struct {
	items []*models.DropshipOrderItem
}

func (f *fakeDropshipRepo) WithTx(tx *gorm.DB) dropship.Repository { return f }

func (f *fakeDropshipRepo) Insert(ctx context.Context, item *models.DropshipOrderItem) error {
	item.ID = uuid.New()
	f.items = append(f.items, item)
	return nil
}

func (f *fakeDropshipRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.DropshipOrderItem, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeDropshipRepo) ListBySupplier(ctx context.Context, supplierUserID uuid.UUID, limit int) ([]models.DropshipOrderItem, error) {
	return nil, nil
}

func (f *fakeDropshipRepo) UpdateStatusGuarded(ctx context.Context, id uuid.UUID, from enums.FulfillmentStatus, updates map[string]any) (int64, error) {
	return 0, nil
}

type fakeAssetRepo struct {
	assets []*models.DigitalAsset
}

func (f *fakeAssetRepo) WithTx(tx *gorm.DB) assets.Repository { return f }

func (f *fakeAssetRepo) Insert(ctx context.Context, asset *models.DigitalAsset) error {
	asset.ID = uuid.New()
	f.assets = append(f.assets, asset)
	return nil
}

func (f *fakeAssetRepo) ListByOrderAndEmail(ctx context.Context, orderID uuid.UUID, email string) ([]models.DigitalAsset, error) {
	return nil, nil
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

func (f *fakeNotificationRepo) kinds() []enums.NotificationKind {
	out := make([]enums.NotificationKind, 0, len(f.rows))
	for _, row := range f.rows {
		out = append(out, row.Kind)
	}
	return out
}

type fakeDirectory struct {
	emails map[uuid.UUID]string
}

func (f *fakeDirectory) EmailFor(ctx context.Context, userID uuid.UUID) (string, error) {
	return f.emails[userID], nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fixture struct {
	svc        *Service
	orderRepo  *fakeOrderRepo
	ledgerRepo *fakeLedgerRepo
	dropship   *fakeDropshipRepo
	assets     *fakeAssetRepo
	notify     *fakeNotificationRepo

	order      *models.Order
	sellerID   uuid.UUID
	supplierID uuid.UUID
}

// newFixture builds a paid order worth 15,000: a direct item at 10,000 and a
// dropship item sold at 5,000 with a 3,000 wholesale price.
func newFixture(t *testing.T, feeBPS int64) *fixture {
	t.Helper()

	sellerID := uuid.New()
	supplierID := uuid.New()
	order := &models.Order{
		ID:            uuid.New(),
		StoreID:       uuid.New(),
		SellerUserID:  sellerID,
		CustomerName:  "Awa Diallo",
		CustomerEmail: "Awa@Example.com",
		Status:        enums.OrderStatusPaid,
		Currency:      enums.CurrencyXOF,
		TotalAmount:   decimal.NewFromInt(15000),
	}
	wholesale := decimal.NewFromInt(3000)
	order.Items = []models.OrderLineItem{
		{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: uuid.New(),
			Name:      "Handmade bag",
			UnitPrice: decimal.NewFromInt(10000),
			Qty:       1,
		},
		{
			ID:             uuid.New(),
			OrderID:        order.ID,
			ProductID:      uuid.New(),
			Name:           "Phone case",
			UnitPrice:      decimal.NewFromInt(5000),
			Qty:            1,
			SupplierUserID: &supplierID,
			WholesalePrice: &wholesale,
		},
	}

	orderRepo := &fakeOrderRepo{order: order}
	ledgerRepo := newFakeLedgerRepo()
	dropshipRepo := &fakeDropshipRepo{}
	assetRepo := &fakeAssetRepo{}
	notifyRepo := &fakeNotificationRepo{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	ledgerSvc, err := ledger.NewService(ledgerRepo, fakeTxRunner{}, logg)
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}
	notifySvc, err := notifications.NewService(notifyRepo, logg)
	if err != nil {
		t.Fatalf("notification service: %v", err)
	}
	directory := &fakeDirectory{emails: map[uuid.UUID]string{
		sellerID:   "seller@example.com",
		supplierID: "supplier@example.com",
	}}

	svc, err := NewService(fakeTxRunner{}, orderRepo, ledgerSvc, dropshipRepo, assetRepo, notifySvc, directory, logg, feeBPS)
	if err != nil {
		t.Fatalf("finalize service: %v", err)
	}

	return &fixture{
		svc:        svc,
		orderRepo:  orderRepo,
		ledgerRepo: ledgerRepo,
		dropship:   dropshipRepo,
		assets:     assetRepo,
		notify:     notifyRepo,
		order:      order,
		sellerID:   sellerID,
		supplierID: supplierID,
	}
}

func TestEnsureFinalizedSplitsOrder(t *testing.T) {
	f := newFixture(t, 0)

	if err := f.svc.EnsureFinalized(context.Background(), f.order.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// Seller keeps the direct 10,000 plus the 2,000 margin on the dropship line.
	if !f.ledgerRepo.accounts[f.sellerID].Balance.Equal(decimal.NewFromInt(12000)) {
		t.Fatalf("expected seller balance 12000 got %s", f.ledgerRepo.accounts[f.sellerID].Balance)
	}
	if !f.ledgerRepo.accounts[f.supplierID].Balance.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("expected supplier balance 3000 got %s", f.ledgerRepo.accounts[f.supplierID].Balance)
	}

	if len(f.dropship.items) != 1 {
		t.Fatalf("expected one dropship item, got %d", len(f.dropship.items))
	}
	item := f.dropship.items[0]
	if item.SupplierUserID != f.supplierID || !item.WholesalePrice.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("dropship item mis-built: %+v", item)
	}
	if item.FulfillmentStatus != enums.FulfillmentStatusConfirmed {
		t.Fatalf("expected confirmed fulfillment, got %s", item.FulfillmentStatus)
	}

	kinds := f.notify.kinds()
	want := map[enums.NotificationKind]bool{
		enums.NotificationKindOrderConfirmation: false,
		enums.NotificationKindSellerNewSale:     false,
		enums.NotificationKindSupplierNewItem:   false,
	}
	for _, kind := range kinds {
		want[kind] = true
	}
	for kind, seen := range want {
		if !seen {
			t.Fatalf("expected %s notification, queued: %v", kind, kinds)
		}
	}
}

func TestEnsureFinalizedAppliesPlatformFee(t *testing.T) {
	f := newFixture(t, 250)

	if err := f.svc.EnsureFinalized(context.Background(), f.order.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// 2.5% of the 12,000 seller gross is 300.
	if !f.ledgerRepo.accounts[f.sellerID].Balance.Equal(decimal.NewFromInt(11700)) {
		t.Fatalf("expected seller balance 11700 got %s", f.ledgerRepo.accounts[f.sellerID].Balance)
	}
	// The fee never touches the supplier share.
	if !f.ledgerRepo.accounts[f.supplierID].Balance.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("expected supplier balance 3000 got %s", f.ledgerRepo.accounts[f.supplierID].Balance)
	}
}

func TestEnsureFinalizedIsIdempotent(t *testing.T) {
	f := newFixture(t, 0)

	if err := f.svc.EnsureFinalized(context.Background(), f.order.ID); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := f.svc.EnsureFinalized(context.Background(), f.order.ID); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if !f.ledgerRepo.accounts[f.sellerID].Balance.Equal(decimal.NewFromInt(12000)) {
		t.Fatalf("second run must not double-credit, balance %s", f.ledgerRepo.accounts[f.sellerID].Balance)
	}
	if len(f.dropship.items) != 1 {
		t.Fatalf("second run must not duplicate fan-out, got %d items", len(f.dropship.items))
	}
}

func TestEnsureFinalizedLostMarkerRaceIsSuccess(t *testing.T) {
	f := newFixture(t, 0)
	f.ledgerRepo.entryErr = &pgconn.PgError{Code: "23505", ConstraintName: "ux_ledger_entries_order_user_type"}

	if err := f.svc.EnsureFinalized(context.Background(), f.order.ID); err != nil {
		t.Fatalf("lost race must read as success, got %v", err)
	}
	if len(f.dropship.items) != 0 {
		t.Fatal("the losing run must do no further work")
	}
}

func TestEnsureFinalizedRejectsUnpaidOrders(t *testing.T) {
	f := newFixture(t, 0)
	f.order.Status = enums.OrderStatusUnpaid

	err := f.svc.EnsureFinalized(context.Background(), f.order.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestEnsureFinalizedUnlocksDigitalItems(t *testing.T) {
	f := newFixture(t, 0)
	storagePath := "assets/ebook-v2.pdf"
	f.order.Items = append(f.order.Items, models.OrderLineItem{
		ID:          uuid.New(),
		OrderID:     f.order.ID,
		ProductID:   uuid.New(),
		Name:        "E-book",
		UnitPrice:   decimal.NewFromInt(2000),
		Qty:         1,
		IsDigital:   true,
		StoragePath: &storagePath,
	})

	if err := f.svc.EnsureFinalized(context.Background(), f.order.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if len(f.assets.assets) != 1 {
		t.Fatalf("expected one unlocked asset, got %d", len(f.assets.assets))
	}
	asset := f.assets.assets[0]
	if asset.CustomerEmail != "awa@example.com" {
		t.Fatalf("expected lowercased checkout email, got %q", asset.CustomerEmail)
	}
	if asset.StoragePath != storagePath {
		t.Fatalf("expected storage path carried over, got %q", asset.StoragePath)
	}
}

func TestEnsureFinalizedSkipsDigitalItemsWithoutFiles(t *testing.T) {
	f := newFixture(t, 0)
	f.order.Items = append(f.order.Items, models.OrderLineItem{
		ID:        uuid.New(),
		OrderID:   f.order.ID,
		ProductID: uuid.New(),
		Name:      "Consultation",
		UnitPrice: decimal.NewFromInt(2000),
		Qty:       1,
		IsDigital: true,
	})

	if err := f.svc.EnsureFinalized(context.Background(), f.order.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(f.assets.assets) != 0 {
		t.Fatal("items without a stored file unlock nothing")
	}
}

func TestComputeSplitAggregatesPerSupplier(t *testing.T) {
	supplierID := uuid.New()
	w1 := decimal.NewFromInt(1000)
	w2 := decimal.NewFromInt(2000)
	order := &models.Order{
		SellerUserID: uuid.New(),
		Items: []models.OrderLineItem{
			{UnitPrice: decimal.NewFromInt(1500), Qty: 2, SupplierUserID: &supplierID, WholesalePrice: &w1},
			{UnitPrice: decimal.NewFromInt(2500), Qty: 1, SupplierUserID: &supplierID, WholesalePrice: &w2},
		},
	}

	split := computeSplit(order, 0)
	if len(split.SupplierTotals) != 1 {
		t.Fatalf("expected one aggregated supplier total, got %d", len(split.SupplierTotals))
	}
	// 1000*2 + 2000*1 wholesale, 3000+2500 gross sales.
	if !split.SupplierTotals[supplierID].Equal(decimal.NewFromInt(4000)) {
		t.Fatalf("expected supplier total 4000 got %s", split.SupplierTotals[supplierID])
	}
	if !split.SellerNet.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("expected seller margin 1500 got %s", split.SellerNet)
	}
}
