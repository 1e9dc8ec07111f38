package enums

import "fmt"

// FulfillmentStatus tracks a dropship order item through supplier fulfillment.
type FulfillmentStatus string

const (
	FulfillmentStatusConfirmed FulfillmentStatus = "confirmed"
	FulfillmentStatusShipped   FulfillmentStatus = "shipped"
	FulfillmentStatusDelivered FulfillmentStatus = "delivered"
)

var validFulfillmentStatuses = []FulfillmentStatus{
	FulfillmentStatusConfirmed,
	FulfillmentStatusShipped,
	FulfillmentStatusDelivered,
}

var fulfillmentRank = map[FulfillmentStatus]int{
	FulfillmentStatusConfirmed: 0,
	FulfillmentStatusShipped:   1,
	FulfillmentStatusDelivered: 2,
}

// String implements fmt.Stringer.
func (f FulfillmentStatus) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FulfillmentStatus.
func (f FulfillmentStatus) IsValid() bool {
	for _, candidate := range validFulfillmentStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}

// CanAdvanceTo reports whether target is strictly forward of the current status.
func (f FulfillmentStatus) CanAdvanceTo(target FulfillmentStatus) bool {
	from, ok := fulfillmentRank[f]
	if !ok {
		return false
	}
	to, ok := fulfillmentRank[target]
	if !ok {
		return false
	}
	return to > from
}

// ParseFulfillmentStatus converts raw input into a FulfillmentStatus.
func ParseFulfillmentStatus(value string) (FulfillmentStatus, error) {
	for _, candidate := range validFulfillmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment status %q", value)
}
