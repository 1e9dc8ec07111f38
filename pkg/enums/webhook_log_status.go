package enums

import "fmt"

// WebhookLogStatus tracks what happened to an inbound provider event.
type WebhookLogStatus string

const (
	WebhookLogStatusReceived  WebhookLogStatus = "received"
	WebhookLogStatusProcessed WebhookLogStatus = "processed"
	WebhookLogStatusDiscarded WebhookLogStatus = "discarded"
	WebhookLogStatusError     WebhookLogStatus = "error"
)

var validWebhookLogStatuses = []WebhookLogStatus{
	WebhookLogStatusReceived,
	WebhookLogStatusProcessed,
	WebhookLogStatusDiscarded,
	WebhookLogStatusError,
}

// String implements fmt.Stringer.
func (w WebhookLogStatus) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WebhookLogStatus.
func (w WebhookLogStatus) IsValid() bool {
	for _, candidate := range validWebhookLogStatuses {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWebhookLogStatus converts raw input into a WebhookLogStatus.
func ParseWebhookLogStatus(value string) (WebhookLogStatus, error) {
	for _, candidate := range validWebhookLogStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid webhook log status %q", value)
}
