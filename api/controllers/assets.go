package controllers

import (
	"net/http"
	"strings"

	"github.com/paylivhq/payliv-backend/api/responses"
	internalassets "github.com/paylivhq/payliv-backend/internal/assets"
	pkgerrors "github.com/paylivhq/payliv-backend/pkg/errors"
	"github.com/paylivhq/payliv-backend/pkg/logger"
)

// OrderDownloads returns signed download references for a paid order's
// digital items. The caller proves entitlement with the checkout email.
func OrderDownloads(svc *internalassets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		email := strings.TrimSpace(r.URL.Query().Get("email"))
		if email == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "email is required"))
			return
		}

		downloads, err := svc.ListForCustomer(r.Context(), orderID, email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, downloads)
	}
}

// AuthorizeDownload is the auth subrequest endpoint for the file gateway: it
// answers 204 when the signed token matches the requested path and is still
// within its expiry window.
func AuthorizeDownload(svc *internalassets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimSpace(r.URL.Query().Get("path"))
		token := strings.TrimSpace(r.URL.Query().Get("token"))

		if err := svc.AuthorizeDownload(path, token); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
