package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylivhq/payliv-backend/pkg/db/models"
	"github.com/paylivhq/payliv-backend/pkg/enums"
)

// EventStatus is the canonical payment state extracted from a provider
// callback, independent of each provider's own vocabulary.
type EventStatus string

const (
	EventStatusPending   EventStatus = "pending"
	EventStatusPaid      EventStatus = "paid"
	EventStatusFailed    EventStatus = "failed"
	EventStatusCancelled EventStatus = "cancelled"
)

// IsValid reports whether the value is a known EventStatus.
func (e EventStatus) IsValid() bool {
	switch e {
	case EventStatusPending, EventStatusPaid, EventStatusFailed, EventStatusCancelled:
		return true
	default:
		return false
	}
}

// ProviderEvent is one normalized inbound payment notification.
type ProviderEvent struct {
	Provider     enums.PaymentProvider
	OrderID      uuid.UUID
	ProviderTxID string
	Status       EventStatus
	Amount       decimal.Decimal
	Currency     string
}

// ApplyResult labels what an inbound event did to the order.
type ApplyResult string

const (
	// ResultApplied means the event moved the order to a new status.
	ResultApplied ApplyResult = "applied"
	// ResultDuplicate means the order was already where the event points;
	// re-deliveries of the same transaction land here.
	ResultDuplicate ApplyResult = "duplicate"
	// ResultStale means a terminal order refused an unrelated or out-of-order
	// event. Stale events are recorded and dropped, never an error.
	ResultStale ApplyResult = "stale"
)

// ApplyOutcome reports how ApplyProviderEvent resolved.
type ApplyOutcome struct {
	Result     ApplyResult
	Order      *models.Order
	BecamePaid bool
}

// CreateLineItemInput is one product row of a checkout request.
type CreateLineItemInput struct {
	ProductID      uuid.UUID
	Name           string
	UnitPrice      decimal.Decimal
	Qty            int
	IsDigital      bool
	SupplierUserID *uuid.UUID
	WholesalePrice *decimal.Decimal
	StoragePath    string
}

// CreateOrderInput captures a new checkout.
type CreateOrderInput struct {
	StoreID         uuid.UUID
	SellerUserID    uuid.UUID
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   string
	CustomerAddress string
	Currency        enums.Currency
	PaymentMethod   enums.PaymentMethod
	Items           []CreateLineItemInput
}
