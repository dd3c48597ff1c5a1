package domain

import "time"

// AccountStatus represents lifecycle states for an end-user account.
type AccountStatus string

const (
	AccountStatusPending   AccountStatus = "pending"
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
	AccountStatusWithdrawn AccountStatus = "withdrawn"
)

var accountStatuses = []AccountStatus{
	AccountStatusPending,
	AccountStatusActive,
	AccountStatusSuspended,
	AccountStatusWithdrawn,
}

var accountStatusLabels = map[AccountStatus]string{
	AccountStatusPending:   "Pending verification",
	AccountStatusActive:    "Active",
	AccountStatusSuspended: "Suspended",
	AccountStatusWithdrawn: "Withdrawn",
}

// AccountStatuses returns every known status in display order.
func AccountStatuses() []AccountStatus {
	return append([]AccountStatus(nil), accountStatuses...)
}

// ParseAccountStatus converts raw input into a known status.
func ParseAccountStatus(raw string) (AccountStatus, bool) {
	status := AccountStatus(raw)
	return status, status.Valid()
}

// Valid reports whether the status is one of the four known states.
func (s AccountStatus) Valid() bool {
	_, ok := accountStatusLabels[s]
	return ok
}

// Label returns a human readable name for the status.
func (s AccountStatus) Label() string {
	if label, ok := accountStatusLabels[s]; ok {
		return label
	}
	return "Unknown"
}

// Account is the domain model for an end-user identity.
//
// Status is only assigned at creation (pending) and through lifecycle.Apply.
type Account struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  string
	Status        AccountStatus
	EmailVerified bool
	RegisteredAt  time.Time
	UpdatedAt     time.Time
	LastLoginAt   *time.Time
}
