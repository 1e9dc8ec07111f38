package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/paylivhq/payliv-backend/api/responses"
	pkgerrors "github.com/paylivhq/payliv-backend/pkg/errors"
	"github.com/paylivhq/payliv-backend/pkg/logger"
)

// Authentication happens at the edge gateway; by the time a request reaches
// this service the gateway has already verified the caller and forwards their
// identity in these headers.
const (
	actorIDHeader   = "X-Actor-Id"
	actorRoleHeader = "X-Actor-Role"
)

const (
	RoleSeller   = "seller"
	RoleSupplier = "supplier"
	RoleAdmin    = "admin"
)

type contextKey string

const (
	ctxActorID   contextKey = "actor_id"
	ctxActorRole contextKey = "actor_role"
)

// Actor lifts the gateway identity headers into the request context. Requests
// without an identity pass through; route guards decide what needs one.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if raw := r.Header.Get(actorIDHeader); raw != "" {
				actorID, err := uuid.Parse(raw)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "malformed actor identity"))
					return
				}
				ctx = context.WithValue(ctx, ctxActorID, actorID)
				if logg != nil {
					ctx = logg.WithActorID(ctx, actorID.String())
				}
			}
			if role := r.Header.Get(actorRoleHeader); role != "" {
				ctx = context.WithValue(ctx, ctxActorRole, role)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorIDFromContext returns the caller's id, or uuid.Nil when anonymous.
func ActorIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxActorID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// ActorRoleFromContext returns the caller's role, or "".
func ActorRoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxActorRole).(string); ok {
		return v
	}
	return ""
}

// RequireActor rejects anonymous requests.
func RequireActor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ActorIDFromContext(r.Context()) == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects callers whose role matches none of the allowed ones.
func RequireRole(logg *logger.Logger, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ActorIDFromContext(r.Context()) == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity required"))
				return
			}
			if _, ok := allowed[ActorRoleFromContext(r.Context())]; !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role not allowed"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
