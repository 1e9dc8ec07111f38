package webhooks

import (
	"context"
	"fmt"
	"time"

	"github.com/paylivhq/payliv-backend/internal/orders"
	"github.com/paylivhq/payliv-backend/pkg/logger"
	"github.com/paylivhq/payliv-backend/pkg/redis"
)

// Guard is the Redis fast path for duplicate provider deliveries. It is
// advisory only: the order state machine and the ledger uniqueness rules stay
// authoritative, so a Redis outage degrades to slower duplicate handling, not
// to double processing.
type Guard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	logg  *logger.Logger
}

func NewGuard(store redis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) (*Guard, error) {
	if store == nil {
		return nil, fmt.Errorf("idempotency store is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Guard{store: store, ttl: ttl, logg: logg}, nil
}

func (g *Guard) key(ev orders.ProviderEvent) string {
	scope := "webhook:" + ev.Provider.String()
	return g.store.IdempotencyKey(scope, fmt.Sprintf("%s:%s", ev.ProviderTxID, ev.Status))
}

// CheckAndMark claims the event. False means an identical event was already
// fully processed within the TTL. Redis failures fail open.
func (g *Guard) CheckAndMark(ctx context.Context, ev orders.ProviderEvent) bool {
	claimed, err := g.store.SetNX(ctx, g.key(ev), time.Now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		g.logg.Warn(ctx, "duplicate guard unavailable, proceeding without it")
		return true
	}
	return claimed
}

// Release frees the claim after a retryable failure so the provider's retry
// is not mistaken for a duplicate.
func (g *Guard) Release(ctx context.Context, ev orders.ProviderEvent) {
	if err := g.store.Del(ctx, g.key(ev)); err != nil {
		g.logg.Warn(ctx, "releasing duplicate guard failed, ttl will clear it")
	}
}
