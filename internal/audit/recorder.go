// Package audit turns lifecycle verdicts into immutable audit log entries.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/account-console/internal/domain"
	"github.com/spec-kit/account-console/internal/lifecycle"
)

// NoReasonProvided is stored when an attempt carried a blank reason.
const NoReasonProvided = "no reason provided"

// Sink is the append-only destination for audit entries.
type Sink interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) error
}

// Recorder builds and appends one entry per attempted change.
type Recorder struct {
	sink  Sink
	now   func() time.Time
	newID func() string
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator overrides the entry id source.
func WithIDGenerator(newID func() string) Option {
	return func(r *Recorder) {
		if newID != nil {
			r.newID = newID
		}
	}
}

// NewRecorder creates a recorder writing to sink.
func NewRecorder(sink Sink, opts ...Option) *Recorder {
	r := &Recorder{
		sink:  sink,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends an entry whose result mirrors the verdict.
func (r *Recorder) Record(ctx context.Context, result lifecycle.TransitionResult) (domain.AuditLogEntry, error) {
	outcome := domain.AuditResultFailure
	if result.Accepted() {
		outcome = domain.AuditResultSuccess
	}
	return r.RecordOutcome(ctx, result, outcome)
}

// RecordOutcome appends an entry with an explicit result. Callers use it to
// record a failure for an accepted verdict whose store write did not happen.
func (r *Recorder) RecordOutcome(ctx context.Context, result lifecycle.TransitionResult, outcome domain.AuditResult) (domain.AuditLogEntry, error) {
	if r == nil {
		return domain.AuditLogEntry{}, errors.New("append audit entry: no audit recorder configured")
	}
	if outcome == domain.AuditResultSuccess && !result.Accepted() {
		outcome = domain.AuditResultFailure
	}

	previous := result.PreviousStatus
	requested := result.RequestedStatus
	entry := domain.AuditLogEntry{
		ID:             r.newID(),
		Timestamp:      r.now(),
		AdminID:        result.Actor.ID,
		AdminName:      result.Actor.Name,
		TargetUserID:   result.AccountID,
		TargetUserName: result.AccountName,
		Action:         result.Action,
		PreviousStatus: &previous,
		NewStatus:      &requested,
		Reason:         normalizeReason(result.Reason),
		Result:         outcome,
	}

	if r.sink == nil {
		return domain.AuditLogEntry{}, fmt.Errorf("append audit entry %s: no audit sink configured", entry.ID)
	}
	if err := r.sink.Append(ctx, entry); err != nil {
		return domain.AuditLogEntry{}, fmt.Errorf("append audit entry %s: %w", entry.ID, err)
	}
	return entry, nil
}

func normalizeReason(reason string) string {
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		return trimmed
	}
	return NoReasonProvided
}
