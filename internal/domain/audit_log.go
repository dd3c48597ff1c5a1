package domain

import "time"

// AuditAction names the audited operation.
type AuditAction string

const (
	AuditActionStatusChange      AuditAction = "status_change"
	AuditActionSelfWithdrawal    AuditAction = "self_withdrawal"
	AuditActionEmailVerification AuditAction = "email_verification"
)

// AuditResult is the outcome of an audited attempt.
type AuditResult string

const (
	AuditResultSuccess AuditResult = "success"
	AuditResultFailure AuditResult = "failure"
)

// AuditLogEntry is an immutable record of one attempted account change.
// PreviousStatus and NewStatus are nil for actions that are not status changes.
type AuditLogEntry struct {
	ID             string
	Timestamp      time.Time
	AdminID        string
	AdminName      string
	TargetUserID   string
	TargetUserName string
	Action         AuditAction
	PreviousStatus *AccountStatus
	NewStatus      *AccountStatus
	Reason         string
	Result         AuditResult
}

// IsStatusChange reports whether the entry carries a status pair.
func (e AuditLogEntry) IsStatusChange() bool {
	return e.PreviousStatus != nil && e.NewStatus != nil
}
