package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paylivhq/payliv-backend/pkg/db"
	"github.com/paylivhq/payliv-backend/pkg/db/models"
	"github.com/paylivhq/payliv-backend/pkg/enums"
	"github.com/paylivhq/payliv-backend/pkg/logger"
)

// EnqueueInput is one email to queue. The dedupe key ties it to the side
// effect that produced it, so re-running that side effect is a no-op here.
type EnqueueInput struct {
	DedupeKey string
	Kind      enums.NotificationKind
	Recipient string
	Subject   string
	BodyHTML  string
	OrderID   *uuid.UUID
	PayoutID  *uuid.UUID
}

// Service queues notifications inside the caller's transaction.
type Service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

// Enqueue inserts a pending outbox row. An existing row under the same dedupe
// key means a prior run already queued it; that is success, not an error.
func (s *Service) Enqueue(ctx context.Context, tx *gorm.DB, input EnqueueInput) error {
	if input.DedupeKey == "" {
		return fmt.Errorf("notification dedupe key is required")
	}
	if input.Recipient == "" {
		// Recipient addresses come from upstream records that may predate
		// address capture. Skipping beats blocking finalization.
		s.logg.Warn(s.logg.WithField(ctx, "kind", string(input.Kind)), "notification skipped, no recipient address")
		return nil
	}
	if !input.Kind.IsValid() {
		return fmt.Errorf("unknown notification kind %q", input.Kind)
	}

	row := &models.Notification{
		DedupeKey: input.DedupeKey,
		Kind:      input.Kind,
		Recipient: input.Recipient,
		Subject:   input.Subject,
		BodyHTML:  input.BodyHTML,
		Status:    enums.NotificationStatusPending,
		OrderID:   input.OrderID,
		PayoutID:  input.PayoutID,
	}
	if err := s.repo.WithTx(tx).Insert(ctx, row); err != nil {
		if db.IsUniqueViolation(err, "ux_notifications_dedupe_key") {
			return nil
		}
		return fmt.Errorf("queueing notification: %w", err)
	}
	return nil
}
