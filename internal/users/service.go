package users

import (
	"context"

	"github.com/google/uuid"

	"github.com/resinart/storefront-api/internal/authz"
	"github.com/resinart/storefront-api/pkg/enums"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
	"github.com/resinart/storefront-api/pkg/types"
)

// Service covers the admin user surface and the account check used by auth middleware.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	return &Service{repo: repo}, nil
}

// ActiveRole returns the account's role, failing when it is missing or blocked.
func (s *Service) ActiveRole(ctx context.Context, userID uuid.UUID) (enums.UserRole, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return "", pkgerrors.FromDB(err, "user not found")
	}
	if !user.IsActive {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "account is blocked")
	}
	return user.Role, nil
}

func (s *Service) List(ctx context.Context, params ListParams) (types.Page[UserDTO], error) {
	rows, total, err := s.repo.List(ctx, params)
	if err != nil {
		return types.Page[UserDTO]{}, pkgerrors.FromDB(err, "")
	}
	return types.NewPage(FromModels(rows), params.Page, params.Limit, total), nil
}

// SetStatus blocks or unblocks an account. Admins cannot block themselves.
func (s *Service) SetStatus(ctx context.Context, actor authz.Actor, userID uuid.UUID, active bool) (*UserDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if actor.UserID == userID && !active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "you cannot block your own account")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "user not found")
	}
	if err := s.repo.SetActive(ctx, userID, active); err != nil {
		return nil, pkgerrors.FromDB(err, "")
	}
	user.IsActive = active
	return FromModel(user), nil
}
