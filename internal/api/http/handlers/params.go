package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-console/internal/auth"
	"github.com/spec-kit/account-console/internal/domain"
)

func parseTime(val string) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func accountPrincipal(c *fiber.Ctx) (*domain.Account, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Account == nil {
		return nil, fiber.NewError(http.StatusUnauthorized, "end-user required")
	}
	return principal.Account, nil
}

func adminPrincipal(c *fiber.Ctx) (*domain.Administrator, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Admin == nil {
		return nil, fiber.NewError(http.StatusUnauthorized, "administrator required")
	}
	return principal.Admin, nil
}
