package dto

import (
	"time"

	"github.com/spec-kit/account-console/internal/domain"
)

// SignUpRequest payload for new users.
type SignUpRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	AcceptedTerms bool   `json:"accepted_terms"`
}

// LoginRequest payload for user and administrator login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyEmailRequest payload for email confirmation.
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// ProfileUpdateRequest payload for PUT /me.
type ProfileUpdateRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// WithdrawalRequest payload; the reason is optional.
type WithdrawalRequest struct {
	Reason string `json:"reason"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Status        string     `json:"status"`
	StatusLabel   string     `json:"status_label"`
	EmailVerified bool       `json:"email_verified"`
	RegisteredAt  time.Time  `json:"registered_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

// NewAccountResponse maps a domain account.
func NewAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		ID:            account.ID,
		Name:          account.Name,
		Email:         account.Email,
		Status:        string(account.Status),
		StatusLabel:   account.Status.Label(),
		EmailVerified: account.EmailVerified,
		RegisteredAt:  account.RegisteredAt,
		UpdatedAt:     account.UpdatedAt,
		LastLoginAt:   account.LastLoginAt,
	}
}
