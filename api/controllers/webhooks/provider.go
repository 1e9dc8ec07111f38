package webhooks

import (
	"io"
	"net/http"

	"github.com/paylivhq/payliv-backend/api/responses"
	internalwebhooks "github.com/paylivhq/payliv-backend/internal/webhooks"
	pkgerrors "github.com/paylivhq/payliv-backend/pkg/errors"
	"github.com/paylivhq/payliv-backend/pkg/logger"
)

// maxPayloadBytes bounds inbound callback bodies; provider notifications are
// small and anything bigger is noise.
const maxPayloadBytes = 1 << 20

// Handle terminates one provider's callback endpoint.
func Handle(svc *internalwebhooks.Service, parser internalwebhooks.Parser, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read callback body"))
			return
		}

		ack, err := svc.Process(r.Context(), parser, body, r.Header)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ack)
	}
}
