package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/spec-kit/account-console/internal/api/http/handlers"
	"github.com/spec-kit/account-console/internal/audit"
	"github.com/spec-kit/account-console/internal/auth"
	"github.com/spec-kit/account-console/internal/config"
	"github.com/spec-kit/account-console/internal/domain"
	"github.com/spec-kit/account-console/internal/events"
	"github.com/spec-kit/account-console/internal/observability"
	"github.com/spec-kit/account-console/internal/repository/mocks"
	"github.com/spec-kit/account-console/internal/service"
)

var testNow = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

type pingOK struct{}

func (pingOK) Ping(context.Context) error { return nil }

type envelope struct {
	Data       json.RawMessage `json:"data"`
	Pagination map[string]int  `json:"pagination"`
	Error      *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type RouterSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	accounts  *mocks.MockAccountRepository
	admins    *mocks.MockAdminRepository
	tokens    *mocks.MockVerificationTokenRepository
	auditLogs *mocks.MockAuditLogRepository
	locker    *mocks.MockAccountLocker
	tm        *auth.TokenManager
	app       *fiber.App
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.accounts = mocks.NewMockAccountRepository(s.ctrl)
	s.admins = mocks.NewMockAdminRepository(s.ctrl)
	s.tokens = mocks.NewMockVerificationTokenRepository(s.ctrl)
	s.auditLogs = mocks.NewMockAuditLogRepository(s.ctrl)
	s.locker = mocks.NewMockAccountLocker(s.ctrl)

	cfg := config.Config{
		App:     config.AppConfig{Name: "account-console", Version: "test"},
		Auth:    config.AuthConfig{JWTSecret: "router-secret", AccessTokenTTLMinutes: 10, BcryptCost: 4},
		Console: config.ConsoleConfig{Collation: language.Japanese, DefaultPageSize: 20, MaxPageSize: 100},
	}
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	clock := func() time.Time { return testNow }
	recorder := audit.NewRecorder(s.auditLogs,
		audit.WithClock(clock),
		audit.WithIDGenerator(func() string { return "audit-42" }))
	dispatcher := events.NewInMemoryDispatcher(logger)

	authService := service.NewAuthService(cfg, service.AuthDependencies{AccountRepo: s.accounts, AdminRepo: s.admins, Clock: clock})
	accountService := service.NewAccountService(cfg, service.AccountDependencies{
		AccountRepo:           s.accounts,
		VerificationTokenRepo: s.tokens,
		Locker:                s.locker,
		Recorder:              recorder,
		Dispatcher:            dispatcher,
		Metrics:               metrics,
		Logger:                logger,
		Clock:                 clock,
	})
	consoleService := service.NewAdminConsoleService(cfg.Console, service.AdminConsoleDependencies{
		AccountRepo:  s.accounts,
		AuditLogRepo: s.auditLogs,
		Locker:       s.locker,
		Recorder:     recorder,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
		Clock:        clock,
	})
	s.tm = authService.TokenManager()

	s.app = fiber.New()
	RegisterMiddlewares(s.app, logger, metrics, time.Second)
	RegisterRoutes(s.app, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{"postgres": pingOK{}}),
		Users:          handlers.NewUsersHandler(accountService, authService),
		Admin:          handlers.NewAdminHandler(consoleService, authService),
		AuthMiddleware: auth.NewAuthMiddleware(s.tm, s.accounts, s.admins),
		Metrics:        metrics,
	})
}

func (s *RouterSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RouterSuite) adminToken() string {
	role := domain.AdminRoleAdmin
	_, signed, err := s.tm.GenerateToken("admin-1", domain.SubjectTypeAdmin, &role)
	s.Require().NoError(err)
	s.admins.EXPECT().GetByID(gomock.Any(), "admin-1").
		Return(&domain.Administrator{ID: "admin-1", Name: "Sato", Role: role, Active: true}, nil)
	return signed
}

func (s *RouterSuite) do(method, target, token, body string) (int, envelope) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		s.Require().NoError(json.Unmarshal(raw, &env))
	}
	return resp.StatusCode, env
}

func (s *RouterSuite) account(status domain.AccountStatus) *domain.Account {
	return &domain.Account{
		ID:           "user-1",
		Name:         "Tanaka Taro",
		Email:        "taro@example.com",
		Status:       status,
		RegisteredAt: testNow.Add(-48 * time.Hour),
		UpdatedAt:    testNow.Add(-48 * time.Hour),
	}
}

func (s *RouterSuite) TestHealthLive() {
	status, _ := s.do(fiber.MethodGet, "/health/live", "", "")
	s.Equal(fiber.StatusOK, status)
}

func (s *RouterSuite) TestHealthReady() {
	status, _ := s.do(fiber.MethodGet, "/health/ready", "", "")
	s.Equal(fiber.StatusOK, status)
}

func (s *RouterSuite) TestAdminRoutesRequireToken() {
	status, env := s.do(fiber.MethodGet, "/admin/users", "", "")
	s.Equal(fiber.StatusUnauthorized, status)
	s.Require().NotNil(env.Error)
	s.Equal("UNAUTHORIZED", env.Error.Code)
}

func (s *RouterSuite) TestChangeStatusAccepted() {
	token := s.adminToken()
	s.locker.EXPECT().Acquire(gomock.Any(), "user-1").Return(func() {}, nil)
	s.accounts.EXPECT().GetByID(gomock.Any(), "user-1").Return(s.account(domain.AccountStatusActive), nil)
	s.accounts.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), domain.AccountStatusActive).Return(nil)
	s.auditLogs.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

	status, env := s.do(fiber.MethodPost, "/admin/users/user-1/status", token,
		`{"new_status":"suspended","reason":"fraud review"}`)
	s.Equal(fiber.StatusOK, status)

	var data struct {
		User struct {
			Status string `json:"status"`
		} `json:"user"`
		AuditLogID string `json:"audit_log_id"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &data))
	s.Equal("suspended", data.User.Status)
	s.Equal("audit-42", data.AuditLogID)
}

func (s *RouterSuite) TestChangeStatusRejected() {
	token := s.adminToken()
	s.locker.EXPECT().Acquire(gomock.Any(), "user-1").Return(func() {}, nil)
	s.accounts.EXPECT().GetByID(gomock.Any(), "user-1").Return(s.account(domain.AccountStatusWithdrawn), nil)
	s.auditLogs.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

	status, env := s.do(fiber.MethodPost, "/admin/users/user-1/status", token,
		`{"new_status":"active","reason":"mistake"}`)
	s.Equal(fiber.StatusUnprocessableEntity, status)
	s.Require().NotNil(env.Error)
	s.Equal("TRANSITION_REJECTED", env.Error.Code)
	s.Equal("audit-42", env.Error.Details["audit_log_id"])
}

func (s *RouterSuite) TestListUsers() {
	token := s.adminToken()
	verified := *s.account(domain.AccountStatusActive)
	verified.EmailVerified = true
	other := domain.Account{ID: "user-2", Name: "Aoki", Email: "aoki@example.com", Status: domain.AccountStatusPending}
	s.accounts.EXPECT().List(gomock.Any()).Return([]domain.Account{verified, other}, nil)

	status, env := s.do(fiber.MethodGet, "/admin/users?email_verified=true&q=TARO&sort_by=name&sort_order=desc", token, "")
	s.Equal(fiber.StatusOK, status)

	var items []struct {
		ID string `json:"id"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &items))
	s.Require().Len(items, 1)
	s.Equal("user-1", items[0].ID)
	s.Equal(1, env.Pagination["total_items"])
}

func (s *RouterSuite) TestListUsersInvalidQuery() {
	token := s.adminToken()

	status, env := s.do(fiber.MethodGet, "/admin/users?status=deleted&sort_by=age", token, "")
	s.Equal(fiber.StatusBadRequest, status)
	s.Require().NotNil(env.Error)
	s.Equal("VALIDATION_FAILED", env.Error.Code)
	s.Contains(env.Error.Details, "status")
	s.Contains(env.Error.Details, "sort_by")
}

func (s *RouterSuite) TestStatuses() {
	token := s.adminToken()

	status, env := s.do(fiber.MethodGet, "/admin/statuses", token, "")
	s.Equal(fiber.StatusOK, status)
	var items []map[string]string
	s.Require().NoError(json.Unmarshal(env.Data, &items))
	s.Len(items, 4)
	s.Equal("pending", items[0]["value"])
}

func (s *RouterSuite) TestSignUpValidation() {
	status, env := s.do(fiber.MethodPost, "/auth/users/signup", "",
		`{"name":"","email":"a@b","password":"short","accepted_terms":false}`)
	s.Equal(fiber.StatusBadRequest, status)
	s.Require().NotNil(env.Error)
	s.Equal("VALIDATION_FAILED", env.Error.Code)
	s.Len(env.Error.Details, 4)
}

func (s *RouterSuite) TestUserCannotReachAdmin() {
	_, signed, err := s.tm.GenerateToken("user-1", domain.SubjectTypeUser, nil)
	s.Require().NoError(err)
	s.accounts.EXPECT().GetByID(gomock.Any(), "user-1").Return(s.account(domain.AccountStatusActive), nil)

	status, env := s.do(fiber.MethodGet, "/admin/users", signed, "")
	s.Equal(fiber.StatusForbidden, status)
	s.Require().NotNil(env.Error)
	s.Equal("FORBIDDEN", env.Error.Code)
}

func (s *RouterSuite) TestWithdrawWithoutBody() {
	_, signed, err := s.tm.GenerateToken("user-1", domain.SubjectTypeUser, nil)
	s.Require().NoError(err)
	s.accounts.EXPECT().GetByID(gomock.Any(), "user-1").Return(s.account(domain.AccountStatusActive), nil).Times(2)
	s.locker.EXPECT().Acquire(gomock.Any(), "user-1").Return(func() {}, nil)
	s.accounts.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), domain.AccountStatusActive).Return(nil)
	s.auditLogs.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

	status, env := s.do(fiber.MethodPost, "/me/withdraw", signed, "")
	s.Equal(fiber.StatusOK, status)
	s.Contains(string(env.Data), `"status":"withdrawn"`)
}

func (s *RouterSuite) TestMetricsEndpoint() {
	status, _ := s.do(fiber.MethodGet, "/metrics", "", "")
	s.Equal(fiber.StatusOK, status)
}
