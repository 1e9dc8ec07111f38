package cinetpay

import (
	"crypto/hmac"
	"crypto/sha256"
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

// tokenHeader carries the HMAC-SHA256 of the raw body keyed with the site's
// secret. CinetPay sends it on every notification.
const tokenHeader = "X-Token"

type payload struct {
	TransID     string      `json:"cpm_trans_id"`
	SiteID      string      `json:"cpm_site_id"`
	TransStatus string      `json:"cpm_trans_status"`
	Amount      json.Number `json:"cpm_amount"`
	Currency    string      `json:"cpm_currency"`
	Custom      struct {
		OrderID string `json:"order_id"`
	} `json:"cpm_custom"`
}

// Parser verifies and normalizes CinetPay payment notifications.
type Parser struct {
	secret []byte
	siteID string
}

// NewParser builds the parser. siteID is optional; when set, notifications
// for any other site are rejected even if correctly signed.
func NewParser(secret, siteID string) (*Parser, error) {
	if secret == "" {
		return nil, fmt.Errorf("cinetpay secret is required")
	}
	return &Parser{secret: []byte(secret), siteID: siteID}, nil
}

func (p *Parser) Provider() enums.PaymentProvider {
	return enums.PaymentProviderCinetpay
}

func (p *Parser) Parse(body []byte, header http.Header) (orders.ProviderEvent, error) {
	token := header.Get(tokenHeader)
	if token == "" {
		return orders.ProviderEvent{}, errors.New(errors.CodeUnauthorized, "cinetpay token header is missing")
	}
	mac := hmac.New(sha256.New, p.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(strings.ToLower(token)), []byte(expected)) {
		return orders.ProviderEvent{}, errors.New(errors.CodeUnauthorized, "cinetpay token mismatch")
	}

	var in payload
	if err := json.Unmarshal(body, &in); err != nil {
		return orders.ProviderEvent{}, errors.Wrap(errors.CodeValidation, err, "malformed cinetpay payload")
	}
	if in.TransID == "" {
		return orders.ProviderEvent{}, errors.New(errors.CodeValidation, "cinetpay payload is missing the transaction id")
	}
	if p.siteID != "" && in.SiteID != p.siteID {
		return orders.ProviderEvent{}, errors.New(errors.CodeUnauthorized, "cinetpay notification is for another site")
	}
	orderID, err := uuid.Parse(in.Custom.OrderID)
	if err != nil {
		return orders.ProviderEvent{}, errors.New(errors.CodeValidation, "cinetpay payload is missing the order reference")
	}

	status, err := mapStatus(in.TransStatus)
	if err != nil {
		return orders.ProviderEvent{}, err
	}

	amount := decimal.Zero
	if in.Amount != "" {
		amount, err = decimal.NewFromString(in.Amount.String())
		if err != nil {
			return orders.ProviderEvent{}, errors.New(errors.CodeValidation, "cinetpay amount is not numeric")
		}
	}

	return orders.ProviderEvent{
		Provider:     enums.PaymentProviderCinetpay,
		OrderID:      orderID,
		ProviderTxID: in.TransID,
		Status:       status,
		Amount:       amount,
		Currency:     strings.ToUpper(in.Currency),
	}, nil
}

func mapStatus(raw string) (orders.EventStatus, error) {
	switch strings.ToUpper(raw) {
	case "ACCEPTED":
		return orders.EventStatusPaid, nil
	case "WAITING", "PENDING":
		return orders.EventStatusPending, nil
	case "REFUSED":
		return orders.EventStatusFailed, nil
	case "CANCELED", "CANCELLED":
		return orders.EventStatusCancelled, nil
	default:
		return "", errors.New(errors.CodeValidation, fmt.Sprintf("unknown cinetpay status %q", raw))
	}
}
