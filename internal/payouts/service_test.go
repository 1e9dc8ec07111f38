package payouts

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/paylivhq/payliv-backend/internal/ledger"
	"github.com/paylivhq/payliv-backend/internal/notifications"
	"github.com/paylivhq/payliv-backend/pkg/db/models"
	"github.com/paylivhq/payliv-backend/pkg/enums"
	pkgerrors "github.com/paylivhq/payliv-backend/pkg/errors"
	"github.com/paylivhq/payliv-backend/pkg/logger"
)

type fakePayoutRepo struct {
	payouts map[uuid.UUID]*models.Payout
	logs    []*models.PayoutLog
}

func newFakePayoutRepo() *fakePayoutRepo {
	return &fakePayoutRepo{payouts: map[uuid.UUID]*models.Payout{}}
}

func (f *fakePayoutRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakePayoutRepo) Insert(ctx context.Context, payout *models.Payout) error {
	payout.ID = uuid.New()
	f.payouts[payout.ID] = payout
	return nil
}

func (f *fakePayoutRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	payout, ok := f.payouts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *payout
	return &copied, nil
}

func (f *fakePayoutRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Payout, error) {
	var list []models.Payout
	for _, payout := range f.payouts {
		if payout.UserID == userID {
			list = append(list, *payout)
		}
	}
	return list, nil
}

func (f *fakePayoutRepo) ListByStatus(ctx context.Context, status enums.PayoutStatus, limit int) ([]models.Payout, error) {
	var list []models.Payout
	for _, payout := range f.payouts {
		if payout.Status == status {
			list = append(list, *payout)
		}
	}
	return list, nil
}

func (f *fakePayoutRepo) UpdateStatusGuarded(ctx context.Context, id uuid.UUID, from enums.PayoutStatus, updates map[string]any) (int64, error) {
	payout, ok := f.payouts[id]
	if !ok || payout.Status != from {
		return 0, nil
	}
	if v, ok := updates["status"].(enums.PayoutStatus); ok {
		payout.Status = v
	}
	if v, ok := updates["processed_by"].(uuid.UUID); ok {
		actor := v
		payout.ProcessedBy = &actor
	}
	if v, ok := updates["processed_at"].(time.Time); ok {
		payout.ProcessedAt = &v
	}
	if v, ok := updates["rejection_reason"].(string); ok {
		reason := v
		payout.RejectionReason = &reason
	}
	return 1, nil
}

func (f *fakePayoutRepo) InsertLog(ctx context.Context, log *models.PayoutLog) error {
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakePayoutRepo) logFunctions() []string {
	out := make([]string, 0, len(f.logs))
	for _, log := range f.logs {
		out = append(out, log.Function)
	}
	return out
}

type fakeLedgerRepo struct {
	accounts map[uuid.UUID]*models.LedgerAccount
	entries  []*models.LedgerEntry
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
	entry.ID = uuid.New()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLedgerRepo) HasEntryForOrder(ctx context.Context, orderID, userID uuid.UUID, entryType enums.LedgerEntryType) (bool, error) {
	return false, nil
}

func (f *fakeLedgerRepo) ListEntriesByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.LedgerEntry, error) {
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

type fakeDirectory struct{}

func (fakeDirectory) EmailFor(ctx context.Context, userID uuid.UUID) (string, error) {
	return "user@example.com", nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fixture struct {
	svc        *Service
	repo       *fakePayoutRepo
	ledgerRepo *fakeLedgerRepo
	notify     *fakeNotificationRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newFakePayoutRepo()
	ledgerRepo := newFakeLedgerRepo()
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
	svc, err := NewService(repo, fakeTxRunner{}, ledgerSvc, notifySvc, fakeDirectory{}, nil, logg)
	if err != nil {
		t.Fatalf("payout service: %v", err)
	}
	return &fixture{svc: svc, repo: repo, ledgerRepo: ledgerRepo, notify: notifyRepo}
}

func (f *fixture) seedBalance(userID uuid.UUID, balance int64) {
	f.ledgerRepo.accounts[userID] = &models.LedgerAccount{
		ID:      uuid.New(),
		UserID:  userID,
		Balance: decimal.NewFromInt(balance),
	}
}

func (f *fixture) seedPendingPayout(userID uuid.UUID, amount int64) *models.Payout {
	payout := &models.Payout{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      decimal.NewFromInt(amount),
		Method:      "wave",
		PhoneNumber: "+221770000000",
		Status:      enums.PayoutStatusPending,
	}
	f.repo.payouts[payout.ID] = payout
	return payout
}

func TestRequestRejectedWhenBalanceTooLow(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.seedBalance(userID, 100)

	_, err := f.svc.Request(context.Background(), RequestInput{
		UserID:      userID,
		Amount:      decimal.NewFromInt(500),
		Method:      "wave",
		PhoneNumber: "+221770000000",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientBalance {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if len(f.repo.payouts) != 0 {
		t.Fatal("a rejected request must not be persisted")
	}
}

func TestRequestRecordsPendingPayout(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.seedBalance(userID, 5000)

	payout, err := f.svc.Request(context.Background(), RequestInput{
		UserID:      userID,
		Amount:      decimal.NewFromInt(2000),
		Method:      "orange_money",
		PhoneNumber: "+221770000000",
	})
	if err != nil {
		t.Fatalf("request payout: %v", err)
	}
	if payout.Status != enums.PayoutStatusPending {
		t.Fatalf("expected pending, got %s", payout.Status)
	}
	// Requesting reserves nothing; only approval moves money.
	if !f.ledgerRepo.accounts[userID].Balance.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("balance must be untouched, got %s", f.ledgerRepo.accounts[userID].Balance)
	}
	if funcs := f.repo.logFunctions(); len(funcs) != 1 || funcs[0] != "payout_requested" {
		t.Fatalf("expected a payout_requested log, got %v", funcs)
	}
}

func TestDecideRejectRequiresReason(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Decide(context.Background(), DecideInput{
		PayoutID: uuid.New(),
		Approve:  false,
		ActorID:  uuid.New(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecideTerminalPayoutConflicts(t *testing.T) {
	f := newFixture(t)
	payout := f.seedPendingPayout(uuid.New(), 2000)
	payout.Status = enums.PayoutStatusApproved

	_, err := f.svc.Decide(context.Background(), DecideInput{
		PayoutID: payout.ID,
		Approve:  true,
		ActorID:  uuid.New(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestApproveDebitsBalanceOnce(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	actorID := uuid.New()
	f.seedBalance(userID, 5000)
	payout := f.seedPendingPayout(userID, 2000)

	decided, err := f.svc.Decide(context.Background(), DecideInput{
		PayoutID: payout.ID,
		Approve:  true,
		ActorID:  actorID,
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if decided.Status != enums.PayoutStatusApproved {
		t.Fatalf("expected approved, got %s", decided.Status)
	}
	if decided.ProcessedBy == nil || *decided.ProcessedBy != actorID {
		t.Fatal("expected the deciding admin recorded")
	}
	if !f.ledgerRepo.accounts[userID].Balance.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("expected balance 3000 got %s", f.ledgerRepo.accounts[userID].Balance)
	}
	if len(f.ledgerRepo.entries) != 1 || !f.ledgerRepo.entries[0].Amount.Equal(decimal.NewFromInt(-2000)) {
		t.Fatalf("expected a single -2000 entry, got %+v", f.ledgerRepo.entries)
	}
	if len(f.notify.rows) != 1 || f.notify.rows[0].Kind != enums.NotificationKindPayoutApproved {
		t.Fatalf("expected a payout_approved notification, got %+v", f.notify.rows)
	}
}

func TestApproveBlockedWhenFundsAreGone(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.seedBalance(userID, 1000)
	payout := f.seedPendingPayout(userID, 2000)

	_, err := f.svc.Decide(context.Background(), DecideInput{
		PayoutID: payout.ID,
		Approve:  true,
		ActorID:  uuid.New(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientBalance {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if !f.ledgerRepo.accounts[userID].Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("balance must be untouched, got %s", f.ledgerRepo.accounts[userID].Balance)
	}
	if len(f.ledgerRepo.entries) != 0 {
		t.Fatal("a blocked approval must write no ledger entry")
	}
	// The blocked attempt still leaves an audit trail.
	found := false
	for _, fn := range f.repo.logFunctions() {
		if fn == "payout_approval_blocked" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a payout_approval_blocked log, got %v", f.repo.logFunctions())
	}
}

func TestRejectNeverTouchesLedger(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.seedBalance(userID, 5000)
	payout := f.seedPendingPayout(userID, 2000)

	decided, err := f.svc.Decide(context.Background(), DecideInput{
		PayoutID: payout.ID,
		Approve:  false,
		Reason:   "unverified phone number",
		ActorID:  uuid.New(),
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if decided.Status != enums.PayoutStatusRejected {
		t.Fatalf("expected rejected, got %s", decided.Status)
	}
	if decided.RejectionReason == nil || *decided.RejectionReason != "unverified phone number" {
		t.Fatal("expected the rejection reason recorded")
	}
	if !f.ledgerRepo.accounts[userID].Balance.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("rejection must not move money, balance %s", f.ledgerRepo.accounts[userID].Balance)
	}
	if len(f.notify.rows) != 1 || f.notify.rows[0].Kind != enums.NotificationKindPayoutRejected {
		t.Fatalf("expected a payout_rejected notification, got %+v", f.notify.rows)
	}
}
