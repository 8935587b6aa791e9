// Package authz holds the access predicates shared by handlers and services.
package authz

import (
	"github.com/google/uuid"

	"github.com/resinart/storefront-api/pkg/enums"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// CanAccess reports whether the actor may read or act on a resource owned by ownerID.
func (a Actor) CanAccess(ownerID uuid.UUID) bool {
	if a.UserID == uuid.Nil {
		return false
	}
	return a.IsAdmin() || a.UserID == ownerID
}

// Owns reports whether the actor is the owner, regardless of role.
func (a Actor) Owns(ownerID uuid.UUID) bool {
	return a.UserID != uuid.Nil && a.UserID == ownerID
}
