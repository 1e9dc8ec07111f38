package paydunya

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylivhq/payliv-backend/internal/orders"
	"github.com/paylivhq/payliv-backend/pkg/enums"
	"github.com/paylivhq/payliv-backend/pkg/errors"
)

// payload is the PayDunya IPN body. The hash field is the SHA-512 of the
// master key and authenticates the delivery.
type payload struct {
	Hash    string `json:"hash"`
	Status  string `json:"status"`
	Invoice struct {
		Token       string      `json:"token"`
		TotalAmount json.Number `json:"total_amount"`
		Currency    string      `json:"currency"`
		CustomData  struct {
			OrderID string `json:"order_id"`
		} `json:"custom_data"`
	} `json:"invoice"`
}

// Parser verifies and normalizes PayDunya instant payment notifications.
type Parser struct {
	expectedHash string
}

func NewParser(masterKey string) (*Parser, error) {
	if masterKey == "" {
		return nil, fmt.Errorf("paydunya master key is required")
	}
	sum := sha512.Sum512([]byte(masterKey))
	return &Parser{expectedHash: hex.EncodeToString(sum[:])}, nil
}

func (p *Parser) Provider() enums.PaymentProvider {
	return enums.PaymentProviderPaydunya
}

func (p *Parser) Parse(body []byte, _ http.Header) (orders.ProviderEvent, error) {
	var in payload
	if err := json.Unmarshal(body, &in); err != nil {
		return orders.ProviderEvent{}, errors.Wrap(errors.CodeValidation, err, "malformed paydunya payload")
	}

	if subtle.ConstantTimeCompare([]byte(strings.ToLower(in.Hash)), []byte(p.expectedHash)) != 1 {
		return orders.ProviderEvent{}, errors.New(errors.CodeUnauthorized, "paydunya hash mismatch")
	}

	if in.Invoice.Token == "" {
		return orders.ProviderEvent{}, errors.New(errors.CodeValidation, "paydunya payload is missing the invoice token")
	}
	orderID, err := uuid.Parse(in.Invoice.CustomData.OrderID)
	if err != nil {
		return orders.ProviderEvent{}, errors.New(errors.CodeValidation, "paydunya payload is missing the order reference")
	}

	status, err := mapStatus(in.Status)
	if err != nil {
		return orders.ProviderEvent{}, err
	}

	amount := decimal.Zero
	if in.Invoice.TotalAmount != "" {
		amount, err = decimal.NewFromString(in.Invoice.TotalAmount.String())
		if err != nil {
			return orders.ProviderEvent{}, errors.New(errors.CodeValidation, "paydunya amount is not numeric")
		}
	}

	return orders.ProviderEvent{
		Provider:     enums.PaymentProviderPaydunya,
		OrderID:      orderID,
		ProviderTxID: in.Invoice.Token,
		Status:       status,
		Amount:       amount,
		Currency:     strings.ToUpper(in.Invoice.Currency),
	}, nil
}

func mapStatus(raw string) (orders.EventStatus, error) {
	switch strings.ToLower(raw) {
	case "completed":
		return orders.EventStatusPaid, nil
	case "pending":
		return orders.EventStatusPending, nil
	case "cancelled", "canceled":
		return orders.EventStatusCancelled, nil
	case "failed":
		return orders.EventStatusFailed, nil
	default:
		return "", errors.New(errors.CodeValidation, fmt.Sprintf("unknown paydunya status %q", raw))
	}
}
