package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/resinart/storefront-api/api/responses"
	"github.com/resinart/storefront-api/api/validators"
	pkgAuth "github.com/resinart/storefront-api/pkg/auth"
	"github.com/resinart/storefront-api/pkg/auth/revocation"
	"github.com/resinart/storefront-api/pkg/config"
	"github.com/resinart/storefront-api/pkg/enums"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
	"github.com/resinart/storefront-api/pkg/logger"
)

// AccountChecker resolves the current role of an account and fails when it is gone or blocked.
type AccountChecker interface {
	ActiveRole(ctx context.Context, userID uuid.UUID) (enums.UserRole, error)
}

// Auth validates a bearer token and seeds the request context with the caller identity.
func Auth(cfg config.JWTConfig, revoked revocation.Checker, accounts AccountChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := validators.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "not authorized, no token"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "not authorized, token failed"))
				return
			}

			if revoked != nil && claims.ID != "" {
				isRevoked, err := revoked.IsRevoked(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate token"))
					return
				}
				if isRevoked {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "token has been revoked"))
					return
				}
			}

			role := claims.Role
			if accounts != nil {
				current, err := accounts.ActiveRole(r.Context(), claims.UserID)
				if err != nil {
					if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
						err = pkgerrors.New(pkgerrors.CodeUnauthorized, "user no longer exists")
					}
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
				role = current
			}

			ctx := WithUserID(r.Context(), claims.UserID.String())
			ctx = context.WithValue(ctx, ctxRole, string(role))
			if claims.ExpiresAt != nil {
				ctx = WithToken(ctx, claims.ID, claims.ExpiresAt.Time)
			}

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    claims.UserID.String(),
					"actor_role": string(role),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
