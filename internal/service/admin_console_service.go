package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/account-console/internal/audit"
	"github.com/spec-kit/account-console/internal/config"
	"github.com/spec-kit/account-console/internal/domain"
	"github.com/spec-kit/account-console/internal/events"
	"github.com/spec-kit/account-console/internal/lifecycle"
	"github.com/spec-kit/account-console/internal/observability"
	"github.com/spec-kit/account-console/internal/query"
	"github.com/spec-kit/account-console/internal/repository"
	apperrors "github.com/spec-kit/account-console/pkg/util"
)

// AdminConsoleService backs the administrator console.
type AdminConsoleService struct {
	accounts   repository.AccountRepository
	auditLogs  repository.AuditLogRepository
	engine     *query.Engine
	workflow   *statusWorkflow
	dispatcher events.Dispatcher
	console    config.ConsoleConfig
	now        func() time.Time
}

// AdminConsoleDependencies bundles collaborators for the console service.
type AdminConsoleDependencies struct {
	AccountRepo  repository.AccountRepository
	AuditLogRepo repository.AuditLogRepository
	Locker       repository.AccountLocker
	Recorder     *audit.Recorder
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Clock        func() time.Time
}

// AccountPage is one page of the filtered account list.
type AccountPage struct {
	Accounts   []domain.Account
	Pagination query.Pagination
}

// AuditLogPage is one page of audit entries, newest first.
type AuditLogPage struct {
	Entries    []domain.AuditLogEntry
	Pagination query.Pagination
}

// NewAdminConsoleService constructs the service.
func NewAdminConsoleService(cfg config.ConsoleConfig, deps AdminConsoleDependencies) *AdminConsoleService {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = audit.NewRecorder(deps.AuditLogRepo)
	}
	return &AdminConsoleService{
		accounts:  deps.AccountRepo,
		auditLogs: deps.AuditLogRepo,
		engine:    query.NewEngine(cfg.Collation),
		workflow: &statusWorkflow{
			accounts: deps.AccountRepo,
			locker:   deps.Locker,
			recorder: recorder,
			metrics:  deps.Metrics,
			logger:   logger,
			now:      now,
		},
		dispatcher: deps.Dispatcher,
		console:    cfg,
		now:        now,
	}
}

// ListAccounts filters, sorts and pages the account list.
func (s *AdminConsoleService) ListAccounts(ctx context.Context, filter query.UserListFilter, page, pageSize int) (*AccountPage, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	view := s.engine.FilterAndSort(accounts, filter)
	items, meta := query.Paginate(view, page, s.console.PageSize(pageSize))
	return &AccountPage{Accounts: items, Pagination: meta}, nil
}

// GetAccount returns one account.
func (s *AdminConsoleService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("account", map[string]any{"id": id})
		}
		return nil, err
	}
	return account, nil
}

// ChangeStatus moves an account to the requested status on behalf of admin.
// Accepted and rejected attempts both leave one audit entry.
func (s *AdminConsoleService) ChangeStatus(ctx context.Context, admin domain.Administrator, accountID string, requested domain.AccountStatus, reason string) (*StatusChangeOutcome, error) {
	actor := lifecycle.Actor{ID: admin.ID, Name: admin.Name, Kind: lifecycle.ActorAdmin}
	outcome, err := s.workflow.run(ctx, accountID, func(account domain.Account) lifecycle.TransitionResult {
		return lifecycle.RequestTransition(account, requested, reason, actor)
	})
	if err != nil {
		return nil, err
	}

	adminID := admin.ID
	s.publishEvent(ctx, events.New(events.EventAccountStatusChanged, accountID,
		events.Actor{Type: domain.SubjectTypeAdmin, AdminID: &adminID}, s.now(),
		events.AccountStatusChangedPayload{
			Name:       outcome.Account.Name,
			Email:      outcome.Account.Email,
			OldStatus:  outcome.Result.PreviousStatus,
			NewStatus:  outcome.Result.NewStatus,
			Reason:     outcome.AuditEntry.Reason,
			AuditLogID: outcome.AuditEntry.ID,
		}))
	return outcome, nil
}

// ListAuditLogs pages through audit entries matching filter.
func (s *AdminConsoleService) ListAuditLogs(ctx context.Context, filter repository.AuditLogFilter, page, pageSize int) (*AuditLogPage, error) {
	if page < 1 {
		page = 1
	}
	pageSize = s.console.PageSize(pageSize)
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	entries, total, err := s.auditLogs.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.AuditLogEntry{}
	}
	return &AuditLogPage{
		Entries: entries,
		Pagination: query.Pagination{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: total,
			TotalPages: (total + pageSize - 1) / pageSize,
		},
	}, nil
}

func (s *AdminConsoleService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
