package paydunya

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylivhq/payliv-backend/internal/orders"
	"github.com/paylivhq/payliv-backend/pkg/enums"
	pkgerrors "github.com/paylivhq/payliv-backend/pkg/errors"
)

const masterKey = "test-master-key"

func validHash() string {
	sum := sha512.Sum512([]byte(masterKey))
	return hex.EncodeToString(sum[:])
}

func ipnBody(hash, status string, orderID uuid.UUID) []byte {
	return []byte(fmt.Sprintf(`{
		"hash": %q,
		"status": %q,
		"invoice": {
			"token": "tok_abc",
			"total_amount": 2500,
			"currency": "xof",
			"custom_data": {"order_id": %q}
		}
	}`, hash, status, orderID))
}

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	parser, err := NewParser(masterKey)
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	return parser
}

func TestParseCompletedInvoice(t *testing.T) {
	parser := newTestParser(t)
	orderID := uuid.New()

	ev, err := parser.Parse(ipnBody(validHash(), "completed", orderID), nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Provider != enums.PaymentProviderPaydunya {
		t.Fatalf("expected paydunya provider, got %s", ev.Provider)
	}
	if ev.OrderID != orderID || ev.ProviderTxID != "tok_abc" {
		t.Fatalf("unexpected identifiers: %+v", ev)
	}
	if ev.Status != orders.EventStatusPaid {
		t.Fatalf("expected paid, got %s", ev.Status)
	}
	if !ev.Amount.Equal(decimal.NewFromInt(2500)) || ev.Currency != "XOF" {
		t.Fatalf("unexpected amount %s %s", ev.Amount, ev.Currency)
	}
}

func TestParseRejectsWrongHash(t *testing.T) {
	parser := newTestParser(t)

	_, err := parser.Parse(ipnBody("deadbeef", "completed", uuid.New()), nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestParseRejectsMalformedBody(t *testing.T) {
	parser := newTestParser(t)

	_, err := parser.Parse([]byte(`{not json`), nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseRejectsMissingOrderReference(t *testing.T) {
	parser := newTestParser(t)
	body := []byte(fmt.Sprintf(`{"hash": %q, "status": "completed", "invoice": {"token": "tok_abc"}}`, validHash()))

	_, err := parser.Parse(body, nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseStatusMapping(t *testing.T) {
	parser := newTestParser(t)
	cases := map[string]orders.EventStatus{
		"completed": orders.EventStatusPaid,
		"pending":   orders.EventStatusPending,
		"cancelled": orders.EventStatusCancelled,
		"failed":    orders.EventStatusFailed,
	}
	for raw, want := range cases {
		ev, err := parser.Parse(ipnBody(validHash(), raw, uuid.New()), nil)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if ev.Status != want {
			t.Fatalf("status %q: expected %s got %s", raw, want, ev.Status)
		}
	}
}

func TestParseUnknownStatusRejected(t *testing.T) {
	parser := newTestParser(t)

	_, err := parser.Parse(ipnBody(validHash(), "reversed", uuid.New()), nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
