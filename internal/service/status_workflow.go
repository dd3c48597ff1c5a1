package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/account-console/internal/audit"
	"github.com/spec-kit/account-console/internal/domain"
	"github.com/spec-kit/account-console/internal/lifecycle"
	"github.com/spec-kit/account-console/internal/observability"
	"github.com/spec-kit/account-console/internal/repository"
	apperrors "github.com/spec-kit/account-console/pkg/util"
)

// StatusChangeOutcome is returned once a status change is stored and audited.
type StatusChangeOutcome struct {
	Account    *domain.Account
	Result     lifecycle.TransitionResult
	AuditEntry domain.AuditLogEntry
}

// decideFunc evaluates a transition against a freshly loaded snapshot.
type decideFunc func(account domain.Account) lifecycle.TransitionResult

// statusWorkflow runs every status change the same way: lock, load, decide,
// store, audit. Exactly one audit entry is appended once the verdict is known.
type statusWorkflow struct {
	accounts repository.AccountRepository
	locker   repository.AccountLocker
	recorder *audit.Recorder
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func (w *statusWorkflow) run(ctx context.Context, accountID string, decide decideFunc) (*StatusChangeOutcome, error) {
	release, lockErr := w.locker.Acquire(ctx, accountID)
	if lockErr == nil && release != nil {
		defer release()
	}

	account, err := w.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("account", map[string]any{"id": accountID})
		}
		return nil, apperrors.NewUnavailable("account store unavailable", err)
	}

	result := decide(*account)
	w.logVerdict(result)

	if lockErr != nil {
		entry, err := w.recordFailure(ctx, result)
		if err != nil {
			return nil, err
		}
		if errors.Is(lockErr, repository.ErrLockHeld) {
			return nil, apperrors.NewConflict("another status change for this account is in progress",
				map[string]any{"audit_log_id": entry.ID})
		}
		return nil, apperrors.NewUnavailable("status lock unavailable", lockErr)
	}

	if !result.Accepted() {
		entry, err := w.recordFailure(ctx, result)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.NewTransitionRejected(result.Message(), map[string]any{
			"rejection":      string(result.Rejection),
			"current_status": string(result.PreviousStatus),
			"audit_log_id":   entry.ID,
		})
	}

	updated := *account
	if err := lifecycle.Apply(&updated, result, w.now()); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	if err := w.accounts.UpdateStatus(ctx, &updated, result.PreviousStatus); err != nil {
		entry, auditErr := w.recordFailure(ctx, result)
		if auditErr != nil {
			return nil, auditErr
		}
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, apperrors.NewConflict("account status changed concurrently",
				map[string]any{"audit_log_id": entry.ID})
		}
		w.logger.Error("store status change", zap.String("account_id", accountID), zap.Error(err))
		return nil, apperrors.NewUnavailable("account store unavailable", err)
	}

	entry, err := w.recorder.Record(ctx, result)
	if err != nil {
		w.metrics.RecordAuditFailure()
		// The status is stored but unaudited: never report it as confirmed.
		w.logger.Error("status change stored without audit entry",
			zap.String("account_id", accountID),
			zap.String("previous_status", string(result.PreviousStatus)),
			zap.String("new_status", string(result.NewStatus)),
			zap.Error(err))
		return nil, apperrors.NewUnavailable("status change could not be confirmed", err)
	}
	w.metrics.RecordTransition(string(result.PreviousStatus), string(result.NewStatus), string(domain.AuditResultSuccess))

	return &StatusChangeOutcome{Account: &updated, Result: result, AuditEntry: entry}, nil
}

func (w *statusWorkflow) recordFailure(ctx context.Context, result lifecycle.TransitionResult) (domain.AuditLogEntry, error) {
	w.metrics.RecordTransition(string(result.PreviousStatus), string(result.RequestedStatus), string(domain.AuditResultFailure))
	entry, err := w.recorder.RecordOutcome(ctx, result, domain.AuditResultFailure)
	if err != nil {
		w.metrics.RecordAuditFailure()
		w.logger.Error("append failure audit entry", zap.String("account_id", result.AccountID), zap.Error(err))
		return domain.AuditLogEntry{}, apperrors.NewUnavailable("audit log unavailable", err)
	}
	return entry, nil
}

func (w *statusWorkflow) logVerdict(result lifecycle.TransitionResult) {
	w.logger.Info("status change evaluated",
		zap.String("account_id", result.AccountID),
		zap.String("actor_id", result.Actor.ID),
		zap.String("action", string(result.Action)),
		zap.String("previous_status", string(result.PreviousStatus)),
		zap.String("requested_status", string(result.RequestedStatus)),
		zap.String("verdict", string(result.Verdict)),
		zap.String("rejection", string(result.Rejection)))
}
