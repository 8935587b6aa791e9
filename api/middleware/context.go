package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/resinart/storefront-api/internal/authz"
	"github.com/resinart/storefront-api/pkg/enums"
)

type contextKey string

const (
	ctxUserID       contextKey = "user_id"
	ctxRole         contextKey = "actor_role"
	ctxTokenID      contextKey = "token_id"
	ctxTokenExpires contextKey = "token_expires"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// TokenFromContext returns the access token id and expiry seeded by Auth.
func TokenFromContext(ctx context.Context) (string, time.Time) {
	if ctx == nil {
		return "", time.Time{}
	}
	jti, _ := ctx.Value(ctxTokenID).(string)
	exp, _ := ctx.Value(ctxTokenExpires).(time.Time)
	return jti, exp
}

// ActorFromContext builds the caller identity. ok is false for anonymous requests.
func ActorFromContext(ctx context.Context) (authz.Actor, bool) {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return authz.Actor{}, false
	}
	return authz.Actor{UserID: id, Role: enums.UserRole(RoleFromContext(ctx))}, true
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithActor seeds both identity values, mainly for handler tests.
func WithActor(ctx context.Context, actor authz.Actor) context.Context {
	ctx = WithUserID(ctx, actor.UserID.String())
	return context.WithValue(ctx, ctxRole, string(actor.Role))
}

// WithToken records the access token id and expiry for logout.
func WithToken(ctx context.Context, jti string, expires time.Time) context.Context {
	ctx = context.WithValue(ctx, ctxTokenID, jti)
	return context.WithValue(ctx, ctxTokenExpires, expires)
}
