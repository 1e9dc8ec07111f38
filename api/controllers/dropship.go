package controllers

import (
	"net/http"

	"github.com/paylivhq/payliv-backend/api/middleware"
	"github.com/paylivhq/payliv-backend/api/responses"
	"github.com/paylivhq/payliv-backend/api/validators"
	internaldropship "github.com/paylivhq/payliv-backend/internal/dropship"
	"github.com/paylivhq/payliv-backend/pkg/enums"
	pkgerrors "github.com/paylivhq/payliv-backend/pkg/errors"
	"github.com/paylivhq/payliv-backend/pkg/logger"
)

type advanceFulfillmentRequest struct {
	Status string `json:"status" validate:"required,oneof=shipped delivered"`
}

// SupplierDropshipItems lists the calling supplier's fulfillment queue.
func SupplierDropshipItems(svc *internaldropship.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListForSupplier(r.Context(), middleware.ActorIDFromContext(r.Context()), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// AdvanceDropshipItem moves one item forward. Admins may move items they do
// not own; suppliers only their own.
func AdvanceDropshipItem(svc *internaldropship.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body advanceFulfillmentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseFulfillmentStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown fulfillment status"))
			return
		}

		item, err := svc.Advance(r.Context(), internaldropship.AdvanceInput{
			ItemID:        itemID,
			Target:        target,
			ActorID:       middleware.ActorIDFromContext(r.Context()),
			AdminOverride: middleware.ActorRoleFromContext(r.Context()) == middleware.RoleAdmin,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}
