package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylivhq/payliv-backend/api/middleware"
	"github.com/paylivhq/payliv-backend/api/responses"
	"github.com/paylivhq/payliv-backend/api/validators"
	internalledger "github.com/paylivhq/payliv-backend/internal/ledger"
	"github.com/paylivhq/payliv-backend/pkg/logger"
)

// MyBalance returns the calling user's balance with recent entries.
func MyBalance(svc *internalledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.ActorIDFromContext(r.Context())

		balance, err := svc.Balance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.Entries(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"balance": balance,
			"entries": entries,
		})
	}
}

type adjustLedgerRequest struct {
	UserID string          `json:"user_id" validate:"required,uuid"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" validate:"required,max=500"`
}

// AdminAdjustLedger applies a signed manual correction to a user's balance.
func AdminAdjustLedger(svc *internalledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body adjustLedgerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, _ := uuid.Parse(body.UserID)

		entry, err := svc.Adjust(r.Context(), internalledger.AdjustInput{
			UserID:  userID,
			Amount:  body.Amount,
			Reason:  body.Reason,
			ActorID: middleware.ActorIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}
