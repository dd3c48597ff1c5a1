package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/account-console/internal/auth"
	"github.com/spec-kit/account-console/internal/config"
	"github.com/spec-kit/account-console/internal/domain"
	"github.com/spec-kit/account-console/internal/repository"
	"github.com/spec-kit/account-console/internal/validation"
	apperrors "github.com/spec-kit/account-console/pkg/util"
)

// AuthService coordinates login and credential flows.
type AuthService struct {
	accounts   repository.AccountRepository
	admins     repository.AdminRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	now        func() time.Time
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	AccountRepo repository.AccountRepository
	AdminRepo   repository.AdminRepository
	Clock       func() time.Time
}

// Session is an issued access token.
type Session struct {
	AccessToken string
	Token       domain.Token
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		accounts:   deps.AccountRepo,
		admins:     deps.AdminRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		now:        now,
	}
}

var errInvalidCredentials = apperrors.NewUnauthorized("invalid credentials")

// LoginUser authenticates an end-user. Suspended and withdrawn accounts are refused.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.Account, *Session, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, errInvalidCredentials
		}
		return nil, nil, err
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, nil, errInvalidCredentials
	}
	if !auth.CanSignIn(account.Status) {
		return nil, nil, apperrors.NewForbidden("account is " + string(account.Status))
	}

	session, err := s.issue(account.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, nil, err
	}

	at := s.now()
	if auth.NeedsRehash(account.PasswordHash, s.bcryptCost) {
		// a failed upgrade keeps the old hash usable; the next login retries
		if hash, err := auth.HashPassword(password, s.bcryptCost); err == nil {
			if err := s.accounts.UpdatePassword(ctx, account.ID, hash, at); err == nil {
				account.PasswordHash = hash
			}
		}
	}
	if err := s.accounts.TouchLogin(ctx, account.ID, at); err != nil {
		return nil, nil, err
	}
	account.LastLoginAt = &at
	return account, session, nil
}

// LoginAdmin authenticates an administrator and returns a role-bearing token.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (*domain.Administrator, *Session, error) {
	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, errInvalidCredentials
		}
		return nil, nil, err
	}
	if err := auth.ComparePassword(admin.PasswordHash, password); err != nil {
		return nil, nil, errInvalidCredentials
	}
	if !admin.Active {
		return nil, nil, apperrors.NewForbidden("administrator is disabled")
	}

	role := admin.Role
	session, err := s.issue(admin.ID, domain.SubjectTypeAdmin, &role)
	if err != nil {
		return nil, nil, err
	}
	return admin, session, nil
}

// ChangePassword verifies the current password and stores a strong new one.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	if strength := validation.ValidatePasswordStrength(newPassword); !strength.Valid {
		return apperrors.NewValidationError("new password is too weak", map[string]any{
			validation.FieldPassword: strength.Errors,
		})
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("account", map[string]any{"id": accountID})
		}
		return err
	}
	if err := auth.ComparePassword(account.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("current password is incorrect")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return s.accounts.UpdatePassword(ctx, accountID, hash, s.now())
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(subjectID string, kind domain.SubjectType, role *domain.AdminRole) (*Session, error) {
	meta, signed, err := s.tokenMgr.GenerateToken(subjectID, kind, role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{AccessToken: signed, Token: meta}, nil
}
