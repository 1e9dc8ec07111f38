package enums

import "fmt"

// NotificationStatus tracks a queued notification through dispatch.
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

var validNotificationStatuses = []NotificationStatus{
	NotificationStatusPending,
	NotificationStatusSent,
	NotificationStatusFailed,
}

// IsValid reports whether the value is a known NotificationStatus.
func (n NotificationStatus) IsValid() bool {
	for _, candidate := range validNotificationStatuses {
		if candidate == n {
			return true
		}
	}
	return false
}

// NotificationKind labels why a notification was queued.
type NotificationKind string

const (
	NotificationKindOrderConfirmation NotificationKind = "order_confirmation"
	NotificationKindSellerNewSale     NotificationKind = "seller_new_sale"
	NotificationKindSupplierNewItem   NotificationKind = "supplier_new_item"
	NotificationKindDropshipShipped   NotificationKind = "dropship_shipped"
	NotificationKindDropshipDelivered NotificationKind = "dropship_delivered"
	NotificationKindPayoutApproved    NotificationKind = "payout_approved"
	NotificationKindPayoutRejected    NotificationKind = "payout_rejected"
)

var validNotificationKinds = []NotificationKind{
	NotificationKindOrderConfirmation,
	NotificationKindSellerNewSale,
	NotificationKindSupplierNewItem,
	NotificationKindDropshipShipped,
	NotificationKindDropshipDelivered,
	NotificationKindPayoutApproved,
	NotificationKindPayoutRejected,
}

// IsValid reports whether the value is a known NotificationKind.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw input into a NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
