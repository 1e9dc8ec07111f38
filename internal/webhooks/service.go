package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/paylivhq/payliv-backend/internal/orders"
	"github.com/paylivhq/payliv-backend/pkg/db/models"
	"github.com/paylivhq/payliv-backend/pkg/enums"
	"github.com/paylivhq/payliv-backend/pkg/errors"
	"github.com/paylivhq/payliv-backend/pkg/logger"
	"github.com/paylivhq/payliv-backend/pkg/metrics"
)

// Parser turns one provider's callback into a normalized event. Signature
// verification happens here too; a bad signature is an unauthorized error,
// a malformed body a validation error.
type Parser interface {
	Provider() enums.PaymentProvider
	Parse(body []byte, header http.Header) (orders.ProviderEvent, error)
}

// Applier folds a normalized event into the order state machine.
type Applier interface {
	ApplyProviderEvent(ctx context.Context, ev orders.ProviderEvent) (orders.ApplyOutcome, error)
}

// Ack is what a handled webhook reports back to the provider.
type Ack struct {
	Result  string    `json:"result"`
	OrderID uuid.UUID `json:"order_id"`
}

// Service is the inbound webhook pipeline: log the raw payload, parse, claim
// the duplicate guard, apply, and resolve the log row.
type Service struct {
	repo    Repository
	guard   *Guard
	applier Applier
	metrics *metrics.PipelineMetrics
	logg    *logger.Logger
}

func NewService(repo Repository, guard *Guard, applier Applier, m *metrics.PipelineMetrics, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("webhook log repository is required")
	}
	if guard == nil {
		return nil, fmt.Errorf("duplicate guard is required")
	}
	if applier == nil {
		return nil, fmt.Errorf("event applier is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Service{repo: repo, guard: guard, applier: applier, metrics: m, logg: logg}, nil
}

// Process handles one raw delivery.
//
// The log row is inserted before anything else; if even that fails the
// provider gets a retryable error and nothing was consumed. After the row is
// durable, non-retryable problems resolve the row and tell the provider to
// stop, while retryable ones release the duplicate guard so the next delivery
// gets a clean run.
func (s *Service) Process(ctx context.Context, parser Parser, body []byte, header http.Header) (Ack, error) {
	provider := parser.Provider()
	start := time.Now()
	defer func() {
		s.metrics.ObserveWebhookDuration(provider.String(), time.Since(start))
	}()

	ctx = s.logg.WithProvider(ctx, provider.String())

	logRow := &models.WebhookLog{
		Provider: provider,
		Payload:  json.RawMessage(body),
		Status:   enums.WebhookLogStatusReceived,
	}
	if err := s.repo.Insert(ctx, logRow); err != nil {
		s.metrics.IncWebhookOutcome(provider.String(), "error")
		return Ack{}, errors.Wrap(errors.CodeDependency, err, "recording inbound event")
	}

	ev, err := parser.Parse(body, header)
	if err != nil {
		s.resolve(ctx, logRow.ID, enums.WebhookLogStatusDiscarded, nil, err)
		s.metrics.IncWebhookOutcome(provider.String(), "rejected")
		s.logg.Warn(s.logg.WithField(ctx, "cause", err.Error()), "inbound event rejected")
		return Ack{}, err
	}

	ctx = s.logg.WithOrderID(ctx, ev.OrderID.String())
	orderID := ev.OrderID

	if !s.guard.CheckAndMark(ctx, ev) {
		s.resolve(ctx, logRow.ID, enums.WebhookLogStatusDiscarded, &orderID, nil)
		s.metrics.IncWebhookOutcome(provider.String(), "duplicate")
		s.logg.Info(ctx, "duplicate delivery short-circuited")
		return Ack{Result: string(orders.ResultDuplicate), OrderID: ev.OrderID}, nil
	}

	outcome, err := s.applier.ApplyProviderEvent(ctx, ev)
	if err != nil {
		if errors.IsRetryable(err) {
			s.guard.Release(ctx, ev)
		}
		s.resolve(ctx, logRow.ID, enums.WebhookLogStatusError, &orderID, err)
		s.metrics.IncWebhookOutcome(provider.String(), "error")
		return Ack{}, err
	}

	status := enums.WebhookLogStatusProcessed
	if outcome.Result != orders.ResultApplied {
		status = enums.WebhookLogStatusDiscarded
	}
	s.resolve(ctx, logRow.ID, status, &orderID, nil)
	s.metrics.IncWebhookOutcome(provider.String(), string(outcome.Result))

	return Ack{Result: string(outcome.Result), OrderID: ev.OrderID}, nil
}

// resolve updates the log row; the delivery's fate never depends on it.
func (s *Service) resolve(ctx context.Context, id uuid.UUID, status enums.WebhookLogStatus, orderID *uuid.UUID, cause error) {
	var errText *string
	if cause != nil {
		text := cause.Error()
		errText = &text
	}
	if err := s.repo.Resolve(ctx, id, status, orderID, errText); err != nil {
		s.logg.Error(ctx, "resolving webhook log", err)
	}
}
