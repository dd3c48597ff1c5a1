package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/account-console/internal/domain"
	"github.com/spec-kit/account-console/internal/repository"
	apperrors "github.com/spec-kit/account-console/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	SubjectType domain.SubjectType
	Account     *domain.Account
	Admin       *domain.Administrator
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens   *TokenManager
	accounts repository.AccountRepository
	admins   repository.AdminRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, accounts repository.AccountRepository, admins repository.AdminRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, accounts: accounts, admins: admins}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	principal := &Principal{SubjectType: claims.Kind}

	switch claims.Kind {
	case domain.SubjectTypeUser:
		account, err := m.accounts.GetByID(c.UserContext(), claims.SubjectID())
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewUnauthorized("account not found")
			}
			return apperrors.MapError(err)
		}
		if !CanSignIn(account.Status) {
			return apperrors.NewUnauthorized("account is " + string(account.Status))
		}
		principal.Account = account
	case domain.SubjectTypeAdmin:
		admin, err := m.admins.GetByID(c.UserContext(), claims.SubjectID())
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewUnauthorized("administrator not found")
			}
			return apperrors.MapError(err)
		}
		if !admin.Active {
			return apperrors.NewUnauthorized("administrator is disabled")
		}
		principal.Admin = admin
	default:
		return apperrors.NewUnauthorized("unknown subject")
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// CanSignIn reports whether an account in status may hold a session.
func CanSignIn(status domain.AccountStatus) bool {
	return status == domain.AccountStatusPending || status == domain.AccountStatusActive
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
