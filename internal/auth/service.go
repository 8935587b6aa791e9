package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resinart/storefront-api/api/validators"
	"github.com/resinart/storefront-api/internal/notifications"
	"github.com/resinart/storefront-api/internal/users"
	pkgAuth "github.com/resinart/storefront-api/pkg/auth"
	"github.com/resinart/storefront-api/pkg/config"
	"github.com/resinart/storefront-api/pkg/db/models"
	"github.com/resinart/storefront-api/pkg/enums"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
	"github.com/resinart/storefront-api/pkg/security"
)

const invalidCredentialsMessage = "invalid email or password"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req ProfileRequest) (*users.UserDTO, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateProfile(ctx context.Context, id uuid.UUID, update users.ProfileUpdate) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	SetResetToken(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error
}

type tokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

type service struct {
	users       userRepository
	revocations tokenRevoker
	notifier    notifications.Notifier
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	baseURL     string
	now         func() time.Time
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	Revocations    tokenRevoker
	Notifier       notifications.Notifier
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	PublicBaseURL  string
}

func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Revocations == nil {
		return nil, fmt.Errorf("token revocation store is required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	return &service{
		users:       params.UserRepo,
		revocations: params.Revocations,
		notifier:    params.Notifier,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		baseURL:     strings.TrimRight(params.PublicBaseURL, "/"),
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	email := validators.NormalizeEmail(req.Email)
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an account with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.FromDB(err, "")
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Name:         validators.SanitizeString(req.Name, 120),
		Email:        email,
		PasswordHash: hash,
		Phone:        validators.SanitizeOptional(req.Phone, 32),
		Role:         enums.UserRoleCustomer,
	})
	if err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "an account with this email already exists")
		}
		return nil, pkgerrors.FromDB(err, "")
	}

	s.notifier.Dispatch(ctx, notifications.Task{
		UserID:  user.ID,
		Email:   user.Email,
		Type:    enums.NotificationTypeAccount,
		Title:   "Welcome to the shop",
		Message: fmt.Sprintf("Hi %s, your account is ready.", user.Name),
	})

	return s.issueToken(user, s.now())
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now
	return s.issueToken(user, now)
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "user not found")
	}
	return users.FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, req ProfileRequest) (*users.UserDTO, error) {
	update := users.ProfileUpdate{
		Name:    validators.SanitizeOptional(req.Name, 120),
		Phone:   validators.SanitizeOptional(req.Phone, 32),
		Address: validators.SanitizeOptional(req.Address, 1000),
	}
	if err := s.users.UpdateProfile(ctx, userID, update); err != nil {
		return nil, pkgerrors.FromDB(err, "user not found")
	}
	return s.Me(ctx, userID)
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return pkgerrors.FromDB(err, "user not found")
	}
	valid, err := security.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
	}
	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return pkgerrors.FromDB(err, "")
	}
	return nil
}

// ForgotPassword never reveals whether the email is registered.
func (s *service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	user, err := s.users.FindByEmail(ctx, validators.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.FromDB(err, "")
	}
	if !user.IsActive {
		return nil
	}

	raw, hashed, err := security.GenerateResetToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	ttl := s.passwordCfg.ResetTokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	if err := s.users.SetResetToken(ctx, user.ID, hashed, s.now().Add(ttl)); err != nil {
		return pkgerrors.FromDB(err, "")
	}

	// email only; the raw token must not land in the in-app inbox
	s.notifier.Dispatch(ctx, notifications.Task{
		Email: user.Email,
		Type:  enums.NotificationTypeAccount,
		Title: "Reset your password",
		Message: fmt.Sprintf("Use this link to choose a new password. It expires in %s.\n\n%s/reset-password?token=%s",
			ttl, s.baseURL, raw),
	})
	return nil
}

func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	user, err := s.users.FindByResetTokenHash(ctx, security.HashResetToken(strings.TrimSpace(req.Token)), s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired reset token")
		}
		return pkgerrors.FromDB(err, "")
	}
	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return pkgerrors.FromDB(err, "")
	}
	return nil
}

func (s *service) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if strings.TrimSpace(jti) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "token has no id")
	}
	ttl := expiresAt.Sub(s.now())
	if err := s.revocations.Revoke(ctx, jti, ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke token")
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := validators.NormalizeEmail(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is blocked, contact support")
	}
	return user, nil
}

func (s *service) issueToken(user *models.User, now time.Time) (*TokenResponse, error) {
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenResponse{
		Token:     token,
		ExpiresIn: int64(s.jwtCfg.TTL().Seconds()),
		User:      users.FromModel(user),
	}, nil
}
