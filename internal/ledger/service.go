package ledger

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/paylivhq/payliv-backend/pkg/db"
	"github.com/paylivhq/payliv-backend/pkg/db/models"
	"github.com/paylivhq/payliv-backend/pkg/enums"
	"github.com/paylivhq/payliv-backend/pkg/errors"
	"github.com/paylivhq/payliv-backend/pkg/logger"
)

// ErrAlreadyApplied signals that the entry for this order, user and type was
// written by an earlier run. The balance was not touched again.
var ErrAlreadyApplied = stdErrors.New("ledger entry already applied")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service mediates all balance movements. Balances never change outside of an
// entry insert, and every entry insert happens in the caller's transaction.
type Service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

func NewService(repo Repository, tx txRunner, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Service{repo: repo, tx: tx, logg: logg}, nil
}

// EnsureAccount returns the user's account, creating it on first use. Safe
// under concurrent callers: a lost insert race falls back to the winner's row.
func (s *Service) EnsureAccount(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.LedgerAccount, error) {
	repo := s.repo.WithTx(tx)

	account, err := repo.FindAccountByUser(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("finding ledger account: %w", err)
	}

	account = &models.LedgerAccount{UserID: userID, Balance: decimal.Zero}
	if err := repo.CreateAccount(ctx, account); err != nil {
		if db.IsUniqueViolation(err, "ux_ledger_accounts_user") {
			return repo.FindAccountByUser(ctx, userID)
		}
		return nil, fmt.Errorf("creating ledger account: %w", err)
	}
	return account, nil
}

// CreditInput describes a positive balance movement tied to an order.
type CreditInput struct {
	UserID  uuid.UUID
	Amount  decimal.Decimal
	Type    enums.LedgerEntryType
	OrderID uuid.UUID
}

// Credit applies an order-scoped credit inside tx. The entry row is written
// first so the partial unique index makes re-runs collide before any balance
// change; a collision returns ErrAlreadyApplied and leaves the balance alone.
func (s *Service) Credit(ctx context.Context, tx *gorm.DB, input CreditInput) error {
	if input.Amount.IsNegative() {
		return errors.New(errors.CodeValidation, "credit amount must not be negative")
	}
	if input.OrderID == uuid.Nil {
		return errors.New(errors.CodeValidation, "credit requires an order reference")
	}

	repo := s.repo.WithTx(tx)

	if _, err := s.EnsureAccount(ctx, tx, input.UserID); err != nil {
		return err
	}

	orderID := input.OrderID
	entry := &models.LedgerEntry{
		UserID:  input.UserID,
		Type:    input.Type,
		Amount:  input.Amount,
		OrderID: &orderID,
	}
	if err := repo.InsertEntry(ctx, entry); err != nil {
		if db.IsUniqueViolation(err, "ux_ledger_entries_order_user_type") {
			return ErrAlreadyApplied
		}
		return fmt.Errorf("inserting ledger entry: %w", err)
	}

	if input.Amount.IsZero() {
		// Zero-amount entries exist only as applied-markers.
		return nil
	}

	rows, err := repo.AddToBalance(ctx, input.UserID, input.Amount)
	if err != nil {
		return fmt.Errorf("crediting balance: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("ledger account vanished for user %s", input.UserID)
	}
	return nil
}

// DebitInput describes a payout withdrawal from a user's balance.
type DebitInput struct {
	UserID   uuid.UUID
	Amount   decimal.Decimal
	PayoutID uuid.UUID
	ActorID  *uuid.UUID
}

// Debit withdraws funds inside tx, guarded so the balance cannot go negative.
func (s *Service) Debit(ctx context.Context, tx *gorm.DB, input DebitInput) error {
	if !input.Amount.IsPositive() {
		return errors.New(errors.CodeValidation, "debit amount must be positive")
	}

	repo := s.repo.WithTx(tx)

	if _, err := s.EnsureAccount(ctx, tx, input.UserID); err != nil {
		return err
	}

	rows, err := repo.DebitBalanceGuarded(ctx, input.UserID, input.Amount)
	if err != nil {
		return fmt.Errorf("debiting balance: %w", err)
	}
	if rows == 0 {
		return errors.New(errors.CodeInsufficientBalance, "balance below requested amount").
			WithDetails(map[string]any{"requested": input.Amount.String()})
	}

	payoutID := input.PayoutID
	entry := &models.LedgerEntry{
		UserID:      input.UserID,
		Type:        enums.LedgerEntryTypePayoutDebit,
		Amount:      input.Amount.Neg(),
		PayoutID:    &payoutID,
		ActorUserID: input.ActorID,
	}
	if err := repo.InsertEntry(ctx, entry); err != nil {
		return fmt.Errorf("inserting debit entry: %w", err)
	}
	return nil
}

// HasOrderEntry reports whether an entry of the given type already exists for
// this order and user. Finalization uses it as its applied-marker probe.
func (s *Service) HasOrderEntry(ctx context.Context, orderID, userID uuid.UUID, entryType enums.LedgerEntryType) (bool, error) {
	return s.repo.HasEntryForOrder(ctx, orderID, userID, entryType)
}

// Balance returns the user's current balance, zero when no account exists yet.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	account, err := s.repo.FindAccountByUser(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("finding ledger account: %w", err)
	}
	return account.Balance, nil
}

// Entries lists the user's most recent ledger entries.
func (s *Service) Entries(ctx context.Context, userID uuid.UUID, limit int) ([]models.LedgerEntry, error) {
	return s.repo.ListEntriesByUser(ctx, userID, limit)
}

// AdjustInput is a manual correction made by an operator.
type AdjustInput struct {
	UserID  uuid.UUID
	Amount  decimal.Decimal
	Reason  string
	ActorID uuid.UUID
}

// Adjust applies a signed manual correction. Negative adjustments obey the
// same non-negative balance guard as payouts.
func (s *Service) Adjust(ctx context.Context, input AdjustInput) (*models.LedgerEntry, error) {
	if input.Amount.IsZero() {
		return nil, errors.New(errors.CodeValidation, "adjustment amount must be non-zero")
	}
	if input.Reason == "" {
		return nil, errors.New(errors.CodeValidation, "adjustment reason is required")
	}
	if input.ActorID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "adjustment actor is required")
	}

	var entry *models.LedgerEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := s.EnsureAccount(ctx, tx, input.UserID); err != nil {
			return err
		}

		if input.Amount.IsPositive() {
			if _, err := repo.AddToBalance(ctx, input.UserID, input.Amount); err != nil {
				return fmt.Errorf("applying adjustment credit: %w", err)
			}
		} else {
			rows, err := repo.DebitBalanceGuarded(ctx, input.UserID, input.Amount.Neg())
			if err != nil {
				return fmt.Errorf("applying adjustment debit: %w", err)
			}
			if rows == 0 {
				return errors.New(errors.CodeInsufficientBalance, "adjustment would drive balance negative")
			}
		}

		actorID := input.ActorID
		reason := input.Reason
		entry = &models.LedgerEntry{
			UserID:      input.UserID,
			Type:        enums.LedgerEntryTypeAdjustment,
			Amount:      input.Amount,
			ActorUserID: &actorID,
			Reason:      &reason,
		}
		return repo.InsertEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id":  input.UserID.String(),
		"actor_id": input.ActorID.String(),
		"amount":   input.Amount.String(),
	})
	s.logg.Info(ctx, "manual ledger adjustment applied")
	return entry, nil
}
