package cinetpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylivhq/payliv-backend/internal/orders"
	"github.com/paylivhq/payliv-backend/pkg/enums"
	pkgerrors "github.com/paylivhq/payliv-backend/pkg/errors"
)

const secret = "test-site-secret"

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func notificationBody(status string, orderID uuid.UUID) []byte {
	return []byte(fmt.Sprintf(`{
		"cpm_trans_id": "cp_789",
		"cpm_site_id": "site_1",
		"cpm_trans_status": %q,
		"cpm_amount": 2500,
		"cpm_currency": "xof",
		"cpm_custom": {"order_id": %q}
	}`, status, orderID))
}

func signedHeader(body []byte) http.Header {
	header := http.Header{}
	header.Set("X-Token", sign(body))
	return header
}

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	parser, err := NewParser(secret, "site_1")
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	return parser
}

func TestParseAcceptedNotification(t *testing.T) {
	parser := newTestParser(t)
	orderID := uuid.New()
	body := notificationBody("ACCEPTED", orderID)

	ev, err := parser.Parse(body, signedHeader(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Provider != enums.PaymentProviderCinetpay {
		t.Fatalf("expected cinetpay provider, got %s", ev.Provider)
	}
	if ev.OrderID != orderID || ev.ProviderTxID != "cp_789" {
		t.Fatalf("unexpected identifiers: %+v", ev)
	}
	if ev.Status != orders.EventStatusPaid {
		t.Fatalf("expected paid, got %s", ev.Status)
	}
	if !ev.Amount.Equal(decimal.NewFromInt(2500)) || ev.Currency != "XOF" {
		t.Fatalf("unexpected amount %s %s", ev.Amount, ev.Currency)
	}
}

func TestParseRejectsMissingToken(t *testing.T) {
	parser := newTestParser(t)
	body := notificationBody("ACCEPTED", uuid.New())

	_, err := parser.Parse(body, http.Header{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestParseRejectsTamperedBody(t *testing.T) {
	parser := newTestParser(t)
	body := notificationBody("ACCEPTED", uuid.New())
	header := signedHeader(body)
	tampered := notificationBody("ACCEPTED", uuid.New())

	_, err := parser.Parse(tampered, header)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestParseRejectsForeignSite(t *testing.T) {
	parser, err := NewParser(secret, "site_2")
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	body := notificationBody("ACCEPTED", uuid.New())

	_, err = parser.Parse(body, signedHeader(body))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for another site's notification, got %v", err)
	}
}

func TestParseAcceptsAnySiteWhenUnconfigured(t *testing.T) {
	parser, err := NewParser(secret, "")
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	body := notificationBody("ACCEPTED", uuid.New())

	if _, err := parser.Parse(body, signedHeader(body)); err != nil {
		t.Fatalf("parse: %v", err)
	}
}

func TestParseStatusMapping(t *testing.T) {
	parser := newTestParser(t)
	cases := map[string]orders.EventStatus{
		"ACCEPTED": orders.EventStatusPaid,
		"WAITING":  orders.EventStatusPending,
		"PENDING":  orders.EventStatusPending,
		"REFUSED":  orders.EventStatusFailed,
		"CANCELED": orders.EventStatusCancelled,
	}
	for raw, want := range cases {
		body := notificationBody(raw, uuid.New())
		ev, err := parser.Parse(body, signedHeader(body))
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if ev.Status != want {
			t.Fatalf("status %q: expected %s got %s", raw, want, ev.Status)
		}
	}
}

func TestParseRejectsMissingTransactionID(t *testing.T) {
	parser := newTestParser(t)
	body := []byte(fmt.Sprintf(`{"cpm_trans_status": "ACCEPTED", "cpm_custom": {"order_id": %q}}`, uuid.New()))

	_, err := parser.Parse(body, signedHeader(body))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
