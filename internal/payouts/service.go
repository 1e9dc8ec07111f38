package payouts

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/paylivhq/payliv-backend/internal/ledger"
	"github.com/paylivhq/payliv-backend/internal/notifications"
	"github.com/paylivhq/payliv-backend/pkg/db/models"
	"github.com/paylivhq/payliv-backend/pkg/enums"
	"github.com/paylivhq/payliv-backend/pkg/errors"
	"github.com/paylivhq/payliv-backend/pkg/logger"
	"github.com/paylivhq/payliv-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages withdrawal requests. Requesting never moves money; only an
// approval debits the balance, and the debit is re-validated at that moment
// regardless of what the balance looked like at request time.
type Service struct {
	repo      Repository
	tx        txRunner
	ledger    *ledger.Service
	notify    *notifications.Service
	directory notifications.Directory
	metrics   *metrics.PipelineMetrics
	logg      *logger.Logger
}

func NewService(
	repo Repository,
	tx txRunner,
	ledgerSvc *ledger.Service,
	notify *notifications.Service,
	directory notifications.Directory,
	m *metrics.PipelineMetrics,
	logg *logger.Logger,
) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payout repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service is required")
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
	return &Service{
		repo:      repo,
		tx:        tx,
		ledger:    ledgerSvc,
		notify:    notify,
		directory: directory,
		metrics:   m,
		logg:      logg,
	}, nil
}

// RequestInput is a user's withdrawal request.
type RequestInput struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Method      string
	PhoneNumber string
}

// Request records a pending payout. The balance check here is advisory only;
// the authoritative check happens again at approval.
func (s *Service) Request(ctx context.Context, input RequestInput) (*models.Payout, error) {
	if input.UserID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user is required")
	}
	if !input.Amount.IsPositive() {
		return nil, errors.New(errors.CodeValidation, "payout amount must be positive")
	}
	if input.Method == "" || input.PhoneNumber == "" {
		return nil, errors.New(errors.CodeValidation, "payout method and phone number are required")
	}

	balance, err := s.ledger.Balance(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(input.Amount) {
		return nil, errors.New(errors.CodeInsufficientBalance, "balance below requested amount").
			WithDetails(map[string]any{
				"balance":   balance.String(),
				"requested": input.Amount.String(),
			})
	}

	payout := &models.Payout{
		UserID:      input.UserID,
		Amount:      input.Amount,
		Method:      input.Method,
		PhoneNumber: input.PhoneNumber,
		Status:      enums.PayoutStatusPending,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Insert(ctx, payout); err != nil {
			return fmt.Errorf("creating payout: %w", err)
		}
		return s.appendLog(ctx, repo, payout.ID, "payout_requested", "info", map[string]any{
			"user_id": input.UserID.String(),
			"amount":  input.Amount.String(),
			"method":  input.Method,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "payout_id", payout.ID.String()), "payout requested")
	return payout, nil
}

// Get returns one payout.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	payout, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "payout not found")
		}
		return nil, fmt.Errorf("finding payout: %w", err)
	}
	return payout, nil
}

// ListForUser returns the user's payouts, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Payout, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}

// ListPending returns the review queue, oldest first.
func (s *Service) ListPending(ctx context.Context, limit int) ([]models.Payout, error) {
	return s.repo.ListByStatus(ctx, enums.PayoutStatusPending, limit)
}

// DecideInput is an admin ruling on a pending payout.
type DecideInput struct {
	PayoutID uuid.UUID
	Approve  bool
	Reason   string
	ActorID  uuid.UUID
}

// Decide approves or rejects a pending payout.
//
// Approval re-validates and debits the balance in the same transaction that
// flips the status; if the funds are gone the transaction rolls back and the
// payout stays pending. Rejection never touches the ledger and requires a
// reason the user will see.
func (s *Service) Decide(ctx context.Context, input DecideInput) (*models.Payout, error) {
	if input.ActorID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "actor is required")
	}
	if !input.Approve && input.Reason == "" {
		return nil, errors.New(errors.CodeValidation, "rejection requires a reason")
	}

	payout, err := s.Get(ctx, input.PayoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status.IsTerminal() {
		return nil, errors.New(errors.CodeStateConflict, "payout already processed").
			WithDetails(map[string]any{"current": payout.Status.String()})
	}

	ctx = s.logg.WithActorID(ctx, input.ActorID.String())
	ctx = s.logg.WithField(ctx, "payout_id", payout.ID.String())

	if input.Approve {
		err = s.approve(ctx, payout, input.ActorID)
	} else {
		err = s.reject(ctx, payout, input.ActorID, input.Reason)
	}
	if err != nil {
		return nil, err
	}

	decision := "approved"
	if !input.Approve {
		decision = "rejected"
	}
	s.metrics.IncPayoutDecision(decision)
	s.logg.Info(ctx, "payout "+decision)
	return s.Get(ctx, payout.ID)
}

func (s *Service) approve(ctx context.Context, payout *models.Payout, actorID uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rows, err := repo.UpdateStatusGuarded(ctx, payout.ID, enums.PayoutStatusPending, decisionUpdates(enums.PayoutStatusApproved, actorID, nil))
		if err != nil {
			return fmt.Errorf("approving payout: %w", err)
		}
		if rows == 0 {
			return errors.New(errors.CodeStateConflict, "payout already processed")
		}

		actor := actorID
		if err := s.ledger.Debit(ctx, tx, ledger.DebitInput{
			UserID:   payout.UserID,
			Amount:   payout.Amount,
			PayoutID: payout.ID,
			ActorID:  &actor,
		}); err != nil {
			return err
		}

		if err := s.appendLog(ctx, repo, payout.ID, "payout_approved", "info", map[string]any{
			"actor_id": actorID.String(),
			"amount":   payout.Amount.String(),
		}); err != nil {
			return err
		}

		email, err := s.directory.EmailFor(ctx, payout.UserID)
		if err != nil {
			return err
		}
		approved := *payout
		approved.Status = enums.PayoutStatusApproved
		return s.notify.Enqueue(ctx, tx, notifications.PayoutApproved(&approved, email))
	})
	if err != nil {
		typed := errors.As(err)
		if typed != nil && typed.Code() == errors.CodeInsufficientBalance {
			// The whole transaction rolled back; record the failed attempt
			// outside of it so the trail survives.
			s.logFailedApproval(ctx, payout, actorID)
		}
		return err
	}
	return nil
}

func (s *Service) reject(ctx context.Context, payout *models.Payout, actorID uuid.UUID, reason string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rows, err := repo.UpdateStatusGuarded(ctx, payout.ID, enums.PayoutStatusPending, decisionUpdates(enums.PayoutStatusRejected, actorID, &reason))
		if err != nil {
			return fmt.Errorf("rejecting payout: %w", err)
		}
		if rows == 0 {
			return errors.New(errors.CodeStateConflict, "payout already processed")
		}

		if err := s.appendLog(ctx, repo, payout.ID, "payout_rejected", "info", map[string]any{
			"actor_id": actorID.String(),
			"reason":   reason,
		}); err != nil {
			return err
		}

		email, err := s.directory.EmailFor(ctx, payout.UserID)
		if err != nil {
			return err
		}
		rejected := *payout
		rejected.Status = enums.PayoutStatusRejected
		rejected.RejectionReason = &reason
		return s.notify.Enqueue(ctx, tx, notifications.PayoutRejected(&rejected, email))
	})
}

func (s *Service) logFailedApproval(ctx context.Context, payout *models.Payout, actorID uuid.UUID) {
	err := s.appendLog(ctx, s.repo, payout.ID, "payout_approval_blocked", "warn", map[string]any{
		"actor_id": actorID.String(),
		"amount":   payout.Amount.String(),
		"cause":    "insufficient balance at approval",
	})
	if err != nil {
		s.logg.Error(ctx, "recording blocked approval", err)
	}
}

func (s *Service) appendLog(ctx context.Context, repo Repository, payoutID uuid.UUID, function, level string, payload map[string]any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payout log: %w", err)
	}
	id := payoutID
	return repo.InsertLog(ctx, &models.PayoutLog{
		PayoutID: &id,
		Function: function,
		Level:    level,
		Payload:  raw,
	})
}

func decisionUpdates(target enums.PayoutStatus, actorID uuid.UUID, reason *string) map[string]any {
	updates := map[string]any{
		"status":       target,
		"processed_by": actorID,
		"processed_at": time.Now().UTC(),
	}
	if reason != nil {
		updates["rejection_reason"] = *reason
	}
	return updates
}
