// Package lifecycle decides whether an account may move between statuses.
//
// Every function here is a pure decision over an account snapshot. Callers
// persist the new status and record the audit entry themselves.
package lifecycle

import (
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/account-console/internal/domain"
)

// ActorKind identifies who asked for a transition.
type ActorKind string

const (
	ActorAdmin  ActorKind = "admin"
	ActorOwner  ActorKind = "owner"
	ActorSystem ActorKind = "system"
)

// Actor is the caller-supplied identity behind a transition request.
type Actor struct {
	ID   string
	Name string
	Kind ActorKind
}

// SystemActor is used for transitions triggered by verification events.
var SystemActor = Actor{ID: "system", Name: "system", Kind: ActorSystem}

// Verdict is the accept/reject decision for one request.
type Verdict string

const (
	VerdictAccepted Verdict = "accepted"
	VerdictRejected Verdict = "rejected"
)

// Rejection explains why a request was rejected.
type Rejection string

const (
	RejectionNone           Rejection = ""
	RejectionUnknownStatus  Rejection = "unknown_status"
	RejectionNoOp           Rejection = "no_op_transition"
	RejectionReasonRequired Rejection = "reason_required"
	RejectionTerminalStatus Rejection = "terminal_status"
)

var rejectionMessages = map[Rejection]string{
	RejectionUnknownStatus:  "requested status is not a known account status",
	RejectionNoOp:           "account already has the requested status",
	RejectionReasonRequired: "a reason is required for this status change",
	RejectionTerminalStatus: "withdrawn accounts cannot change status",
}

// ActivationReason is recorded when email verification activates an account.
const ActivationReason = "email address verified"

var (
	ErrNotAccepted   = errors.New("transition was not accepted")
	ErrStaleSnapshot = errors.New("account no longer matches the evaluated snapshot")
)

// terminalStatuses have no outgoing transitions.
var terminalStatuses = map[domain.AccountStatus]struct{}{
	domain.AccountStatusWithdrawn: {},
}

// TransitionResult carries the verdict and everything needed to audit it.
// NewStatus is the authoritative status after the decision: the requested
// status when accepted, the unchanged current status when rejected.
type TransitionResult struct {
	Verdict         Verdict
	Rejection       Rejection
	Action          domain.AuditAction
	AccountID       string
	AccountName     string
	Actor           Actor
	PreviousStatus  domain.AccountStatus
	RequestedStatus domain.AccountStatus
	NewStatus       domain.AccountStatus
	Reason          string
}

// Accepted reports whether the transition is legal.
func (r TransitionResult) Accepted() bool {
	return r.Verdict == VerdictAccepted
}

// Message returns a user-facing explanation of the verdict.
func (r TransitionResult) Message() string {
	if r.Accepted() {
		return "status changed from " + string(r.PreviousStatus) + " to " + string(r.NewStatus)
	}
	if msg, ok := rejectionMessages[r.Rejection]; ok {
		return msg
	}
	return "status change rejected"
}

// RequestTransition evaluates an administrator-driven status change.
func RequestTransition(account domain.Account, requested domain.AccountStatus, reason string, actor Actor) TransitionResult {
	return evaluate(account, requested, reason, actor, domain.AuditActionStatusChange, true)
}

// RequestWithdrawal evaluates a self-service withdrawal by the account owner.
// The reason is optional on this path only.
func RequestWithdrawal(account domain.Account, reason string, owner Actor) TransitionResult {
	owner.Kind = ActorOwner
	return evaluate(account, domain.AccountStatusWithdrawn, reason, owner, domain.AuditActionSelfWithdrawal, false)
}

// RequestActivation evaluates the pending to active move that follows email verification.
func RequestActivation(account domain.Account) TransitionResult {
	return evaluate(account, domain.AccountStatusActive, ActivationReason, SystemActor, domain.AuditActionEmailVerification, true)
}

func evaluate(account domain.Account, requested domain.AccountStatus, reason string, actor Actor, action domain.AuditAction, reasonRequired bool) TransitionResult {
	result := TransitionResult{
		Verdict:         VerdictRejected,
		Action:          action,
		AccountID:       account.ID,
		AccountName:     account.Name,
		Actor:           actor,
		PreviousStatus:  account.Status,
		RequestedStatus: requested,
		NewStatus:       account.Status,
		Reason:          strings.TrimSpace(reason),
	}

	switch {
	case !requested.Valid():
		result.Rejection = RejectionUnknownStatus
	case requested == account.Status:
		result.Rejection = RejectionNoOp
	case reasonRequired && result.Reason == "":
		result.Rejection = RejectionReasonRequired
	case isTerminal(account.Status):
		result.Rejection = RejectionTerminalStatus
	default:
		result.Verdict = VerdictAccepted
		result.NewStatus = requested
	}
	return result
}

func isTerminal(status domain.AccountStatus) bool {
	_, ok := terminalStatuses[status]
	return ok
}

// Apply writes an accepted result onto the account snapshot it was evaluated
// against. It is the only place that assigns Account.Status after creation.
func Apply(account *domain.Account, result TransitionResult, now time.Time) error {
	if !result.Accepted() {
		return ErrNotAccepted
	}
	if account == nil || account.ID != result.AccountID || account.Status != result.PreviousStatus {
		return ErrStaleSnapshot
	}
	account.Status = result.NewStatus
	if now.Before(account.RegisteredAt) {
		now = account.RegisteredAt
	}
	account.UpdatedAt = now
	return nil
}
