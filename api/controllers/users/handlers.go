package users

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/resinart/storefront-api/api/middleware"
	"github.com/resinart/storefront-api/api/responses"
	"github.com/resinart/storefront-api/api/validators"
	"github.com/resinart/storefront-api/internal/authz"
	"github.com/resinart/storefront-api/internal/users"
	"github.com/resinart/storefront-api/pkg/enums"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
	"github.com/resinart/storefront-api/pkg/logger"
	"github.com/resinart/storefront-api/pkg/types"
)

// Service is the admin account surface used by these handlers.
type Service interface {
	List(ctx context.Context, params users.ListParams) (types.Page[users.UserDTO], error)
	SetStatus(ctx context.Context, actor authz.Actor, userID uuid.UUID, active bool) (*users.UserDTO, error)
}

type statusRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// List returns the paginated user directory. Supports search and role filters.
func List(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}
		page, limit, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := users.ListParams{
			Page:   page,
			Limit:  limit,
			Search: strings.TrimSpace(r.URL.Query().Get("search")),
		}
		if role := strings.TrimSpace(r.URL.Query().Get("role")); role != "" {
			parsed, err := enums.ParseUserRole(role)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
				return
			}
			params.Role = parsed
		}
		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SetStatus blocks or unblocks an account.
func SetStatus(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		userID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req statusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.SetStatus(r.Context(), actor, userID, *req.IsActive)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		msg := "user unblocked"
		if !user.IsActive {
			msg = "user blocked"
		}
		responses.WriteMessage(w, msg, user)
	}
}
