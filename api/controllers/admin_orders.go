package controllers

import (
	"net/http"

	"github.com/paylivhq/payliv-backend/api/middleware"
	"github.com/paylivhq/payliv-backend/api/responses"
	"github.com/paylivhq/payliv-backend/api/validators"
	internalorders "github.com/paylivhq/payliv-backend/internal/orders"
	"github.com/paylivhq/payliv-backend/pkg/enums"
	pkgerrors "github.com/paylivhq/payliv-backend/pkg/errors"
	"github.com/paylivhq/payliv-backend/pkg/logger"
)

type setOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminSetOrderStatus applies a manual status transition under the state
// machine's monotonic rules.
func AdminSetOrderStatus(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body setOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status"))
			return
		}

		order, err := svc.SetStatus(r.Context(), internalorders.SetStatusInput{
			OrderID: orderID,
			Target:  target,
			ActorID: middleware.ActorIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type finalizeOrderRequest struct {
	Provider     string `json:"provider" validate:"required"`
	ProviderTxID string `json:"provider_tx_id" validate:"required"`
}

// AdminFinalizeOrder reconciles an order against a payment the provider
// confirmed out of band. With a body, the provider transaction is replayed
// through the state machine so a stuck pending order moves to paid with the
// real reference on record; without one, finalization side effects are simply
// re-run for an already-paid order.
func AdminFinalizeOrder(ordersSvc *internalorders.Service, finalizer internalorders.Finalizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if r.ContentLength != 0 {
			var body finalizeOrderRequest
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			provider, err := enums.ParsePaymentProvider(body.Provider)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment provider"))
				return
			}

			// Amount is left zero: the operator vouches for the payment, the
			// state machine still enforces ordering and duplicate handling.
			outcome, err := ordersSvc.ApplyProviderEvent(r.Context(), internalorders.ProviderEvent{
				Provider:     provider,
				OrderID:      orderID,
				ProviderTxID: body.ProviderTxID,
				Status:       internalorders.EventStatusPaid,
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, outcome.Order)
			return
		}

		if err := finalizer.EnsureFinalized(r.Context(), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := ordersSvc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
