package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/spec-kit/account-console/internal/domain"
	"github.com/spec-kit/account-console/internal/repository/mocks"
	apperrors "github.com/spec-kit/account-console/pkg/util"
)

func newProtectedApp(m *AuthMiddleware, guard fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
		},
	})
	app.Get("/protected", m.Handle, guard, func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		return c.SendString(string(principal.SubjectType))
	})
	return app
}

func bearer(t *testing.T, tm *TokenManager, id string, kind domain.SubjectType) string {
	t.Helper()
	_, signed, err := tm.GenerateToken(id, kind, nil)
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestAuthMiddleware(t *testing.T) {
	ctrl := gomock.NewController(t)
	accounts := mocks.NewMockAccountRepository(ctrl)
	admins := mocks.NewMockAdminRepository(ctrl)
	tm := NewTokenManager("secret", 5)
	m := NewAuthMiddleware(tm, accounts, admins)

	cases := []struct {
		name   string
		header func() string
		setup  func()
		guard  fiber.Handler
		status int
	}{
		{
			name:   "missing header",
			header: func() string { return "" },
			setup:  func() {},
			guard:  RequireUser(),
			status: http.StatusUnauthorized,
		},
		{
			name:   "malformed header",
			header: func() string { return "Token abc" },
			setup:  func() {},
			guard:  RequireUser(),
			status: http.StatusUnauthorized,
		},
		{
			name:   "active user",
			header: func() string { return bearer(t, tm, "u1", domain.SubjectTypeUser) },
			setup: func() {
				accounts.EXPECT().GetByID(gomock.Any(), "u1").
					Return(&domain.Account{ID: "u1", Status: domain.AccountStatusActive}, nil)
			},
			guard:  RequireUser(),
			status: http.StatusOK,
		},
		{
			name:   "withdrawn user",
			header: func() string { return bearer(t, tm, "u2", domain.SubjectTypeUser) },
			setup: func() {
				accounts.EXPECT().GetByID(gomock.Any(), "u2").
					Return(&domain.Account{ID: "u2", Status: domain.AccountStatusWithdrawn}, nil)
			},
			guard:  RequireUser(),
			status: http.StatusUnauthorized,
		},
		{
			name:   "unknown user",
			header: func() string { return bearer(t, tm, "u3", domain.SubjectTypeUser) },
			setup: func() {
				accounts.EXPECT().GetByID(gomock.Any(), "u3").Return(nil, pgx.ErrNoRows)
			},
			guard:  RequireUser(),
			status: http.StatusUnauthorized,
		},
		{
			name:   "user on admin route",
			header: func() string { return bearer(t, tm, "u1", domain.SubjectTypeUser) },
			setup: func() {
				accounts.EXPECT().GetByID(gomock.Any(), "u1").
					Return(&domain.Account{ID: "u1", Status: domain.AccountStatusActive}, nil)
			},
			guard:  RequireAdmin(),
			status: http.StatusForbidden,
		},
		{
			name:   "operator on admin-only route",
			header: func() string { return bearer(t, tm, "a1", domain.SubjectTypeAdmin) },
			setup: func() {
				admins.EXPECT().GetByID(gomock.Any(), "a1").
					Return(&domain.Administrator{ID: "a1", Role: domain.AdminRoleOperator, Active: true}, nil)
			},
			guard:  RequireAdmin(domain.AdminRoleAdmin),
			status: http.StatusForbidden,
		},
		{
			name:   "admin",
			header: func() string { return bearer(t, tm, "a2", domain.SubjectTypeAdmin) },
			setup: func() {
				admins.EXPECT().GetByID(gomock.Any(), "a2").
					Return(&domain.Administrator{ID: "a2", Role: domain.AdminRoleAdmin, Active: true}, nil)
			},
			guard:  RequireAdmin(domain.AdminRoleAdmin),
			status: http.StatusOK,
		},
		{
			name:   "disabled admin",
			header: func() string { return bearer(t, tm, "a3", domain.SubjectTypeAdmin) },
			setup: func() {
				admins.EXPECT().GetByID(gomock.Any(), "a3").
					Return(&domain.Administrator{ID: "a3", Role: domain.AdminRoleAdmin}, nil)
			},
			guard:  RequireAdmin(),
			status: http.StatusUnauthorized,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.setup()
			app := newProtectedApp(m, tc.guard)

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if h := tc.header(); h != "" {
				req.Header.Set("Authorization", h)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
