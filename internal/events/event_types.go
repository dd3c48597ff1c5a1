package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/account-console/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountRegistered    EventType = "account_registered"
	EventAccountEmailVerified EventType = "account_email_verified"
	EventAccountStatusChanged EventType = "account_status_changed"
	EventAccountWithdrawn     EventType = "account_withdrawn"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.SubjectType `json:"type,omitempty"`
	UserID  *string            `json:"user_id,omitempty"`
	AdminID *string            `json:"admin_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	AccountID string      `json:"account_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New builds an event with a fresh id.
func New(eventType EventType, accountID string, actor Actor, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		AccountID: accountID,
		Actor:     actor,
		Timestamp: at,
		Payload:   payload,
	}
}

// AccountRegisteredPayload carries what the verification mail needs.
type AccountRegisteredPayload struct {
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	VerificationToken string    `json:"verification_token"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// AccountEmailVerifiedPayload payload.
type AccountEmailVerifiedPayload struct {
	Email     string `json:"email"`
	Activated bool   `json:"activated"`
}

// AccountStatusChangedPayload payload.
type AccountStatusChangedPayload struct {
	Name       string               `json:"name"`
	Email      string               `json:"email"`
	OldStatus  domain.AccountStatus `json:"old_status"`
	NewStatus  domain.AccountStatus `json:"new_status"`
	Reason     string               `json:"reason"`
	AuditLogID string               `json:"audit_log_id"`
}

// AccountWithdrawnPayload payload.
type AccountWithdrawnPayload struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Reason string `json:"reason,omitempty"`
}
