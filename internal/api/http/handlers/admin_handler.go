package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-console/internal/api/dto"
	"github.com/spec-kit/account-console/internal/domain"
	"github.com/spec-kit/account-console/internal/query"
	"github.com/spec-kit/account-console/internal/repository"
	"github.com/spec-kit/account-console/internal/service"
	apperrors "github.com/spec-kit/account-console/pkg/util"
)

// AdminHandler exposes the administrator console endpoints.
type AdminHandler struct {
	console *service.AdminConsoleService
	auth    *service.AuthService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(consoleService *service.AdminConsoleService, authService *service.AuthService) *AdminHandler {
	return &AdminHandler{console: consoleService, auth: authService}
}

// Login handles POST /auth/admins/login.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	admin, session, err := h.auth.LoginAdmin(c.UserContext(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"admin": dto.AdminResponse{ID: admin.ID, Name: admin.Name, Email: admin.Email, Role: string(admin.Role)},
		"auth":  dto.AuthResponse{Token: session.AccessToken, ExpiresAt: session.Token.ExpiresAt},
	}})
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	filter, err := parseUserListFilter(c)
	if err != nil {
		return err
	}
	page, err := h.console.ListAccounts(c.UserContext(), filter, parseInt(c.Query("page"), 1), parseInt(c.Query("page_size"), 0))
	if err != nil {
		return err
	}
	items := make([]dto.AccountResponse, 0, len(page.Accounts))
	for i := range page.Accounts {
		items = append(items, dto.NewAccountResponse(&page.Accounts[i]))
	}
	return c.JSON(fiber.Map{
		"data":       items,
		"pagination": dto.NewPaginationResponse(page.Pagination),
	})
}

// GetUser handles GET /admin/users/:id.
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	account, err := h.console.GetAccount(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}

// ChangeStatus handles POST /admin/users/:id/status.
func (h *AdminHandler) ChangeStatus(c *fiber.Ctx) error {
	admin, err := adminPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.StatusChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	outcome, err := h.console.ChangeStatus(c.UserContext(), *admin, c.Params("id"),
		domain.AccountStatus(strings.TrimSpace(req.NewStatus)), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StatusChangeResponse{
		User:       dto.NewAccountResponse(outcome.Account),
		AuditLogID: outcome.AuditEntry.ID,
	}})
}

// ListAuditLogs handles GET /admin/audit-logs.
func (h *AdminHandler) ListAuditLogs(c *fiber.Ctx) error {
	filter, err := parseAuditLogFilter(c)
	if err != nil {
		return err
	}
	page, err := h.console.ListAuditLogs(c.UserContext(), filter, parseInt(c.Query("page"), 1), parseInt(c.Query("page_size"), 0))
	if err != nil {
		return err
	}
	items := make([]dto.AuditLogResponse, 0, len(page.Entries))
	for _, entry := range page.Entries {
		items = append(items, dto.NewAuditLogResponse(entry))
	}
	return c.JSON(fiber.Map{
		"data":       items,
		"pagination": dto.NewPaginationResponse(page.Pagination),
	})
}

// Statuses handles GET /admin/statuses.
func (h *AdminHandler) Statuses(c *fiber.Ctx) error {
	statuses := domain.AccountStatuses()
	items := make([]dto.StatusOption, 0, len(statuses))
	for _, status := range statuses {
		items = append(items, dto.StatusOption{Value: string(status), Label: status.Label()})
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseUserListFilter(c *fiber.Ctx) (query.UserListFilter, error) {
	filter := query.UserListFilter{SearchTerm: c.Query("q")}
	invalid := map[string]any{}

	if raw := c.Query("status"); raw != "" {
		if status, ok := domain.ParseAccountStatus(raw); ok {
			filter.Status = &status
		} else {
			invalid["status"] = "is not a known account status"
		}
	}
	if raw := c.Query("email_verified"); raw != "" {
		if verified, err := strconv.ParseBool(raw); err == nil {
			filter.EmailVerified = &verified
		} else {
			invalid["email_verified"] = "must be true or false"
		}
	}
	if sortBy, err := query.ParseSortField(c.Query("sort_by")); err == nil {
		filter.SortBy = sortBy
	} else {
		invalid["sort_by"] = err.Error()
	}
	if order, err := query.ParseSortOrder(c.Query("sort_order")); err == nil {
		filter.SortOrder = order
	} else {
		invalid["sort_order"] = err.Error()
	}

	if len(invalid) > 0 {
		return query.UserListFilter{}, apperrors.NewValidationError("invalid list query", invalid)
	}
	return filter, nil
}

func parseAuditLogFilter(c *fiber.Ctx) (repository.AuditLogFilter, error) {
	filter := repository.AuditLogFilter{}
	invalid := map[string]any{}

	if userID := c.Query("user_id"); userID != "" {
		filter.TargetUserID = &userID
	}
	if adminID := c.Query("admin_id"); adminID != "" {
		filter.AdminID = &adminID
	}
	if action := c.Query("action"); action != "" {
		a := domain.AuditAction(action)
		filter.Action = &a
	}
	if result := c.Query("result"); result != "" {
		r := domain.AuditResult(result)
		if r != domain.AuditResultSuccess && r != domain.AuditResultFailure {
			invalid["result"] = "must be success or failure"
		}
		filter.Result = &r
	}
	from, err := parseTime(c.Query("from"))
	if err != nil {
		invalid["from"] = "must be an RFC3339 timestamp"
	}
	to, err := parseTime(c.Query("to"))
	if err != nil {
		invalid["to"] = "must be an RFC3339 timestamp"
	}
	filter.From, filter.To = from, to

	if len(invalid) > 0 {
		return repository.AuditLogFilter{}, apperrors.NewValidationError("invalid audit log query", invalid)
	}
	return filter, nil
}
