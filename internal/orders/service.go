package orders

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/paylivhq/payliv-backend/pkg/db/models"
	"github.com/paylivhq/payliv-backend/pkg/enums"
	"github.com/paylivhq/payliv-backend/pkg/errors"
	"github.com/paylivhq/payliv-backend/pkg/logger"
)

// Finalizer runs the post-payment side effects for a paid order. It must be
// safe to call any number of times per order.
type Finalizer interface {
	EnsureFinalized(ctx context.Context, orderID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// maxApplyAttempts bounds the read/decide/guarded-write loop when concurrent
// deliveries keep invalidating the expected prior status.
const maxApplyAttempts = 3

// Service is the order state machine. Every status change flows through the
// guarded update in the repository; callers never write status directly.
type Service struct {
	repo      Repository
	tx        txRunner
	finalizer Finalizer
	logg      *logger.Logger
}

func NewService(repo Repository, tx txRunner, finalizer Finalizer, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if finalizer == nil {
		return nil, fmt.Errorf("finalizer is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Service{repo: repo, tx: tx, finalizer: finalizer, logg: logg}, nil
}

// Create persists a new unpaid order. The total is computed server-side from
// the line items; client-supplied totals are never trusted.
func (s *Service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	total := decimal.Zero
	items := make([]models.OrderLineItem, 0, len(input.Items))
	for _, in := range input.Items {
		item := models.OrderLineItem{
			ProductID:      in.ProductID,
			Name:           in.Name,
			UnitPrice:      in.UnitPrice,
			Qty:            in.Qty,
			IsDigital:      in.IsDigital,
			SupplierUserID: in.SupplierUserID,
			WholesalePrice: in.WholesalePrice,
		}
		if in.IsDigital && in.StoragePath != "" {
			path := in.StoragePath
			item.StoragePath = &path
		}
		total = total.Add(item.LineTotal())
		items = append(items, item)
	}

	order := &models.Order{
		StoreID:         input.StoreID,
		SellerUserID:    input.SellerUserID,
		CustomerName:    input.CustomerName,
		CustomerPhone:   input.CustomerPhone,
		CustomerEmail:   input.CustomerEmail,
		CustomerAddress: input.CustomerAddress,
		Status:          enums.OrderStatusUnpaid,
		Currency:        input.Currency,
		TotalAmount:     total,
		PaymentMethod:   input.PaymentMethod,
		Items:           items,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "order created")
	return order, nil
}

func validateCreate(input CreateOrderInput) error {
	if input.StoreID == uuid.Nil || input.SellerUserID == uuid.Nil {
		return errors.New(errors.CodeValidation, "store and seller are required")
	}
	if input.CustomerName == "" || input.CustomerPhone == "" || input.CustomerEmail == "" {
		return errors.New(errors.CodeValidation, "customer contact details are required")
	}
	if !input.Currency.IsValid() {
		return errors.New(errors.CodeValidation, "unknown currency")
	}
	if !input.PaymentMethod.IsValid() {
		return errors.New(errors.CodeValidation, "unknown payment method")
	}
	if len(input.Items) == 0 {
		return errors.New(errors.CodeValidation, "order requires at least one line item")
	}
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil || item.Name == "" {
			return errors.New(errors.CodeValidation, fmt.Sprintf("item %d is missing product details", i))
		}
		if item.Qty <= 0 {
			return errors.New(errors.CodeValidation, fmt.Sprintf("item %d quantity must be positive", i))
		}
		if item.UnitPrice.IsNegative() {
			return errors.New(errors.CodeValidation, fmt.Sprintf("item %d unit price must not be negative", i))
		}
		if item.SupplierUserID != nil && *item.SupplierUserID != uuid.Nil {
			if item.WholesalePrice == nil {
				return errors.New(errors.CodeValidation, fmt.Sprintf("item %d requires a wholesale price", i))
			}
			if item.WholesalePrice.IsNegative() || item.WholesalePrice.GreaterThan(item.UnitPrice) {
				return errors.New(errors.CodeValidation, fmt.Sprintf("item %d wholesale price must be between zero and the unit price", i))
			}
		}
	}
	return nil
}

// Get returns the order with its line items.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "order not found")
		}
		return nil, fmt.Errorf("finding order: %w", err)
	}
	return order, nil
}

// ListByStore returns a store's most recent orders.
func (s *Service) ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.Order, error) {
	return s.repo.ListByStore(ctx, storeID, limit)
}

// ApplyProviderEvent folds one inbound payment notification into the order.
//
// The loop re-reads the order whenever the guarded write loses to a concurrent
// delivery, so out-of-order and duplicated callbacks resolve to duplicate or
// stale outcomes instead of corrupting state. A paid outcome triggers
// finalization before returning; finalization failures surface as retryable
// errors while the status change itself stays committed, so the provider's
// retry lands on the duplicate path and completes the side effects.
func (s *Service) ApplyProviderEvent(ctx context.Context, ev ProviderEvent) (ApplyOutcome, error) {
	if err := validateEvent(ev); err != nil {
		return ApplyOutcome{}, err
	}

	ctx = s.logg.WithOrderID(ctx, ev.OrderID.String())
	ctx = s.logg.WithProvider(ctx, ev.Provider.String())

	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		order, err := s.Get(ctx, ev.OrderID)
		if err != nil {
			return ApplyOutcome{}, err
		}

		if outcome, done, err := s.resolveWithoutWrite(ctx, order, ev); done {
			return outcome, err
		}

		target := targetStatus(ev.Status)
		if target == enums.OrderStatusPaid {
			if err := checkAmount(order, ev); err != nil {
				return ApplyOutcome{}, err
			}
		}

		rows, err := s.repo.UpdateStatusGuarded(ctx, order.ID, order.Status, transitionUpdates(target, ev))
		if err != nil {
			return ApplyOutcome{}, fmt.Errorf("transitioning order: %w", err)
		}
		if rows == 0 {
			// Lost the race; re-read and decide again.
			continue
		}

		updated, err := s.Get(ctx, order.ID)
		if err != nil {
			return ApplyOutcome{}, err
		}

		outcome := ApplyOutcome{
			Result:     ResultApplied,
			Order:      updated,
			BecamePaid: target == enums.OrderStatusPaid,
		}
		s.logg.Info(s.logg.WithField(ctx, "status", target.String()), "provider event applied")

		if outcome.BecamePaid {
			if err := s.finalizer.EnsureFinalized(ctx, order.ID); err != nil {
				return outcome, errors.Wrap(errors.CodeInternal, err, "order paid but finalization incomplete")
			}
		}
		return outcome, nil
	}

	return ApplyOutcome{}, errors.New(errors.CodeStateConflict, "order kept changing under concurrent deliveries")
}

// resolveWithoutWrite handles the cases that never touch the status column.
func (s *Service) resolveWithoutWrite(ctx context.Context, order *models.Order, ev ProviderEvent) (ApplyOutcome, bool, error) {
	target := targetStatus(ev.Status)

	if order.Status.IsTerminal() {
		if sameTransaction(order, ev) && target == enums.OrderStatusPaid {
			// Re-delivery of the confirmation we already honored. Finalization
			// is re-entered so a failed earlier run can catch up.
			if err := s.finalizer.EnsureFinalized(ctx, order.ID); err != nil {
				return ApplyOutcome{Result: ResultDuplicate, Order: order}, true,
					errors.Wrap(errors.CodeInternal, err, "duplicate confirmation but finalization incomplete")
			}
			return ApplyOutcome{Result: ResultDuplicate, Order: order}, true, nil
		}
		s.logg.Warn(s.logg.WithField(ctx, "status", order.Status.String()), "stale provider event against settled order")
		return ApplyOutcome{Result: ResultStale, Order: order}, true, nil
	}

	if target == order.Status {
		return ApplyOutcome{Result: ResultDuplicate, Order: order}, true, nil
	}
	if target == enums.OrderStatusPending && order.Status != enums.OrderStatusUnpaid {
		// A late "payment initiated" after we already moved forward.
		return ApplyOutcome{Result: ResultStale, Order: order}, true, nil
	}
	return ApplyOutcome{}, false, nil
}

func validateEvent(ev ProviderEvent) error {
	if !ev.Provider.IsValid() {
		return errors.New(errors.CodeValidation, "unknown payment provider")
	}
	if ev.OrderID == uuid.Nil {
		return errors.New(errors.CodeValidation, "event is missing the order reference")
	}
	if ev.ProviderTxID == "" {
		return errors.New(errors.CodeValidation, "event is missing the provider transaction id")
	}
	if !ev.Status.IsValid() {
		return errors.New(errors.CodeValidation, "unknown event status")
	}
	return nil
}

func checkAmount(order *models.Order, ev ProviderEvent) error {
	if ev.Amount.IsZero() {
		return nil
	}
	if !ev.Amount.Equal(order.TotalAmount) {
		return errors.New(errors.CodeValidation, "confirmed amount does not match the order total").
			WithDetails(map[string]any{
				"expected": order.TotalAmount.String(),
				"received": ev.Amount.String(),
			})
	}
	if ev.Currency != "" && ev.Currency != order.Currency.String() {
		return errors.New(errors.CodeValidation, "confirmed currency does not match the order")
	}
	return nil
}

func targetStatus(status EventStatus) enums.OrderStatus {
	switch status {
	case EventStatusPaid:
		return enums.OrderStatusPaid
	case EventStatusPending:
		return enums.OrderStatusPending
	default:
		return enums.OrderStatusCancelled
	}
}

func sameTransaction(order *models.Order, ev ProviderEvent) bool {
	if order.Provider == nil || order.ProviderTxID == nil {
		return false
	}
	return *order.Provider == ev.Provider && *order.ProviderTxID == ev.ProviderTxID
}

func transitionUpdates(target enums.OrderStatus, ev ProviderEvent) map[string]any {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":         target,
		"provider":       ev.Provider,
		"provider_tx_id": ev.ProviderTxID,
		"updated_at":     now,
	}
	switch target {
	case enums.OrderStatusPaid:
		updates["paid_at"] = now
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = now
	}
	return updates
}

var manualRank = map[enums.OrderStatus]int{
	enums.OrderStatusUnpaid:    0,
	enums.OrderStatusPending:   1,
	enums.OrderStatusPaid:      2,
	enums.OrderStatusDelivered: 3,
}

// SetStatusInput is an operator-initiated status change.
type SetStatusInput struct {
	OrderID uuid.UUID
	Target  enums.OrderStatus
	ActorID uuid.UUID
}

// SetStatus applies a manual transition under the same monotonic rules the
// provider path uses: forward only, cancel only before payment. Marking an
// order paid by hand records the manual provider and runs finalization.
func (s *Service) SetStatus(ctx context.Context, input SetStatusInput) (*models.Order, error) {
	if !input.Target.IsValid() {
		return nil, errors.New(errors.CodeValidation, "unknown order status")
	}
	if input.ActorID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "actor is required")
	}

	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())
	ctx = s.logg.WithActorID(ctx, input.ActorID.String())

	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		order, err := s.Get(ctx, input.OrderID)
		if err != nil {
			return nil, err
		}
		if order.Status == input.Target {
			return order, nil
		}
		if err := checkManualTransition(order.Status, input.Target); err != nil {
			return nil, err
		}

		rows, err := s.repo.UpdateStatusGuarded(ctx, order.ID, order.Status, manualUpdates(input.Target))
		if err != nil {
			return nil, fmt.Errorf("transitioning order: %w", err)
		}
		if rows == 0 {
			continue
		}

		updated, err := s.Get(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		s.logg.Info(s.logg.WithField(ctx, "status", input.Target.String()), "order status set manually")

		if input.Target == enums.OrderStatusPaid {
			if err := s.finalizer.EnsureFinalized(ctx, order.ID); err != nil {
				return updated, errors.Wrap(errors.CodeInternal, err, "order paid but finalization incomplete")
			}
		}
		return updated, nil
	}

	return nil, errors.New(errors.CodeStateConflict, "order kept changing under concurrent updates")
}

func checkManualTransition(from, to enums.OrderStatus) error {
	if to == enums.OrderStatusCancelled {
		if from == enums.OrderStatusUnpaid || from == enums.OrderStatusPending {
			return nil
		}
		return errors.New(errors.CodeStateConflict, "only unpaid or pending orders can be cancelled").
			WithDetails(map[string]any{"current": from.String()})
	}
	fromRank, ok := manualRank[from]
	if !ok {
		return errors.New(errors.CodeStateConflict, "cancelled orders accept no further changes")
	}
	toRank, ok := manualRank[to]
	if !ok {
		return errors.New(errors.CodeStateConflict, "unsupported target status")
	}
	if toRank <= fromRank {
		return errors.New(errors.CodeStateConflict, "order status only moves forward").
			WithDetails(map[string]any{"current": from.String(), "requested": to.String()})
	}
	return nil
}

func manualUpdates(target enums.OrderStatus) map[string]any {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":     target,
		"updated_at": now,
	}
	switch target {
	case enums.OrderStatusPaid:
		updates["provider"] = enums.PaymentProviderManual
		updates["paid_at"] = now
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = now
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = now
	}
	return updates
}
