package domain

import "time"

// AdminRole enumerates console operator roles.
type AdminRole string

const (
	AdminRoleOperator AdminRole = "OPERATOR"
	AdminRoleAdmin    AdminRole = "ADMIN"
)

// Administrator models a console operator allowed to manage accounts.
type Administrator struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         AdminRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
