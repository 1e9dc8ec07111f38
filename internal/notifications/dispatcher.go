package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/paylivhq/payliv-backend/pkg/config"
	"github.com/paylivhq/payliv-backend/pkg/logger"
	"github.com/paylivhq/payliv-backend/pkg/mailer"
	"github.com/paylivhq/payliv-backend/pkg/metrics"
)

// Dispatcher sweeps the pending outbox and hands each row to the mail sender.
// Failures are retried on later sweeps until the attempt budget runs out.
type Dispatcher struct {
	repo        Repository
	sender      mailer.Sender
	metrics     *metrics.PipelineMetrics
	logg        *logger.Logger
	batchSize   int
	interval    time.Duration
	maxAttempts int
}

func NewDispatcher(repo Repository, sender mailer.Sender, m *metrics.PipelineMetrics, logg *logger.Logger, cfg config.NotifyConfig) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("mail sender is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	interval := time.Duration(cfg.PollIntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = 2 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Dispatcher{
		repo:        repo,
		sender:      sender,
		metrics:     m,
		logg:        logg,
		batchSize:   cfg.BatchSize,
		interval:    interval,
		maxAttempts: maxAttempts,
	}, nil
}

// Run polls until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logg.Info(ctx, "notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.logg.Info(ctx, "notification dispatcher stopping")
			return ctx.Err()
		case <-ticker.C:
			if _, err := d.RunOnce(ctx); err != nil {
				d.logg.Error(ctx, "notification sweep failed", err)
			}
		}
	}
}

// RunOnce claims and processes one batch, returning how many emails went out.
// Claiming keeps concurrent worker replicas from sweeping the same rows.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	pending, err := d.repo.ClaimPending(ctx, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claiming pending notifications: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	sent := 0
	for _, row := range pending {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		rowCtx := d.logg.WithFields(ctx, map[string]any{
			"notification_id": row.ID.String(),
			"kind":            string(row.Kind),
		})

		err := d.sender.Send(ctx, mailer.Message{
			To:      row.Recipient,
			Subject: row.Subject,
			HTML:    row.BodyHTML,
		})
		if err != nil {
			attempt := row.Attempts + 1
			exhausted := attempt >= d.maxAttempts
			if markErr := d.repo.MarkAttemptFailed(ctx, row.ID, attempt, err.Error(), exhausted); markErr != nil {
				d.logg.Error(rowCtx, "recording notification failure", markErr)
			}
			d.metrics.IncNotificationDispatch("error")
			if exhausted {
				d.logg.Error(rowCtx, "notification dropped after max attempts", err)
			} else {
				d.logg.Warn(rowCtx, "notification send failed, will retry")
			}
			continue
		}

		if err := d.repo.MarkSent(ctx, row.ID); err != nil {
			// The email went out; a missed status update means one extra
			// delivery on the next sweep at worst.
			d.logg.Error(rowCtx, "recording notification success", err)
			continue
		}
		d.metrics.IncNotificationDispatch("sent")
		sent++
	}

	if sent > 0 {
		d.logg.Info(d.logg.WithField(ctx, "sent", sent), "notification batch dispatched")
	}
	return sent, nil
}
