package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/paylivhq/payliv-backend/api/middleware"
	"github.com/paylivhq/payliv-backend/api/responses"
	"github.com/paylivhq/payliv-backend/api/validators"
	internalpayouts "github.com/paylivhq/payliv-backend/internal/payouts"
	"github.com/paylivhq/payliv-backend/pkg/logger"
)

type requestPayoutRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method" validate:"required,max=50"`
	PhoneNumber string          `json:"phone_number" validate:"required,max=30"`
}

// RequestPayout records a withdrawal request for the calling user.
func RequestPayout(svc *internalpayouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body requestPayoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.Request(r.Context(), internalpayouts.RequestInput{
			UserID:      middleware.ActorIDFromContext(r.Context()),
			Amount:      body.Amount,
			Method:      body.Method,
			PhoneNumber: body.PhoneNumber,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payout)
	}
}

// MyPayouts lists the calling user's payouts.
func MyPayouts(svc *internalpayouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListForUser(r.Context(), middleware.ActorIDFromContext(r.Context()), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminPendingPayouts lists the review queue, oldest first.
func AdminPendingPayouts(svc *internalpayouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListPending(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type decidePayoutRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Reason   string `json:"reason" validate:"max=500"`
}

// AdminDecidePayout approves or rejects a pending payout.
func AdminDecidePayout(svc *internalpayouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payoutID, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body decidePayoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.Decide(r.Context(), internalpayouts.DecideInput{
			PayoutID: payoutID,
			Approve:  body.Decision == "approve",
			Reason:   body.Reason,
			ActorID:  middleware.ActorIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	}
}
