package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-console/internal/api/dto"
	"github.com/spec-kit/account-console/internal/service"
	"github.com/spec-kit/account-console/internal/validation"
)

// UsersHandler exposes sign-up, login and self-service endpoints for end-users.
type UsersHandler struct {
	accounts *service.AccountService
	auth     *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(accountService *service.AccountService, authService *service.AuthService) *UsersHandler {
	return &UsersHandler{accounts: accountService, auth: authService}
}

// SignUp handles POST /auth/users/signup.
func (h *UsersHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	account, err := h.accounts.SignUp(c.UserContext(), validation.SignUpInput{
		Name:          req.Name,
		Email:         req.Email,
		Password:      req.Password,
		AcceptedTerms: req.AcceptedTerms,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"user": dto.NewAccountResponse(account),
	}})
}

// Login handles POST /auth/users/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	account, session, err := h.auth.LoginUser(c.UserContext(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"user": dto.NewAccountResponse(account),
		"auth": dto.AuthResponse{Token: session.AccessToken, ExpiresAt: session.Token.ExpiresAt},
	}})
}

// VerifyEmail handles POST /auth/users/verify-email.
func (h *UsersHandler) VerifyEmail(c *fiber.Ctx) error {
	var req dto.VerifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	account, err := h.accounts.VerifyEmail(c.UserContext(), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user": dto.NewAccountResponse(account)}})
}

// Me handles GET /me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, err := accountPrincipal(c)
	if err != nil {
		return err
	}
	account, err := h.accounts.GetProfile(c.UserContext(), principal.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}

// UpdateMe handles PUT /me.
func (h *UsersHandler) UpdateMe(c *fiber.Ctx) error {
	principal, err := accountPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ProfileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	account, err := h.accounts.UpdateProfile(c.UserContext(), principal.ID, service.ProfileInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}

// Withdraw handles POST /me/withdraw. An empty body withdraws without a reason.
func (h *UsersHandler) Withdraw(c *fiber.Ctx) error {
	principal, err := accountPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.WithdrawalRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid payload")
		}
	}
	outcome, err := h.accounts.Withdraw(c.UserContext(), principal.ID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StatusChangeResponse{
		User:       dto.NewAccountResponse(outcome.Account),
		AuditLogID: outcome.AuditEntry.ID,
	}})
}

// ChangePassword handles POST /me/password.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	principal, err := accountPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.PasswordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.CurrentPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "current_password required")
	}
	if err := h.auth.ChangePassword(c.UserContext(), principal.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
