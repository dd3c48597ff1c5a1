package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/account-console/internal/audit"
	"github.com/spec-kit/account-console/internal/auth"
	"github.com/spec-kit/account-console/internal/config"
	"github.com/spec-kit/account-console/internal/domain"
	"github.com/spec-kit/account-console/internal/events"
	"github.com/spec-kit/account-console/internal/lifecycle"
	"github.com/spec-kit/account-console/internal/observability"
	"github.com/spec-kit/account-console/internal/repository"
	"github.com/spec-kit/account-console/internal/validation"
	apperrors "github.com/spec-kit/account-console/pkg/util"
)

// AccountService coordinates the self-service flows of an end-user.
type AccountService struct {
	accounts         repository.AccountRepository
	tokens           repository.VerificationTokenRepository
	workflow         *statusWorkflow
	dispatcher       events.Dispatcher
	logger           *zap.Logger
	bcryptCost       int
	verificationTTL  time.Duration
	activateOnVerify bool
	now              func() time.Time
	newToken         func() string
}

// AccountDependencies bundles collaborators for the account service.
type AccountDependencies struct {
	AccountRepo           repository.AccountRepository
	VerificationTokenRepo repository.VerificationTokenRepository
	AuditLogRepo          repository.AuditLogRepository
	Locker                repository.AccountLocker
	Recorder              *audit.Recorder
	Dispatcher            events.Dispatcher
	Metrics               *observability.Metrics
	Logger                *zap.Logger
	Clock                 func() time.Time
}

// ProfileInput describes editable profile fields.
type ProfileInput struct {
	Name  string
	Email string
}

// NewAccountService constructs the service.
func NewAccountService(cfg config.Config, deps AccountDependencies) *AccountService {
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
	ttl := time.Duration(cfg.Auth.EmailVerificationTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AccountService{
		accounts: deps.AccountRepo,
		tokens:   deps.VerificationTokenRepo,
		workflow: &statusWorkflow{
			accounts: deps.AccountRepo,
			locker:   deps.Locker,
			recorder: recorder,
			metrics:  deps.Metrics,
			logger:   logger,
			now:      now,
		},
		dispatcher:       deps.Dispatcher,
		logger:           logger,
		bcryptCost:       cfg.Auth.BcryptCost,
		verificationTTL:  ttl,
		activateOnVerify: cfg.Console.ActivateOnVerify,
		now:              now,
		newToken:         uuid.NewString,
	}
}

// SignUp validates the form, creates a pending account and issues an email
// verification token.
func (s *AccountService) SignUp(ctx context.Context, input validation.SignUpInput) (*domain.Account, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if fieldErrs := validation.ValidateSignUp(input); len(fieldErrs) > 0 {
		return nil, apperrors.NewValidationError("sign-up input is invalid", fieldErrs.Details())
	}

	if err := s.ensureEmailAvailable(ctx, input.Email, ""); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	account := &domain.Account{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Status:       domain.AccountStatusPending,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, mapEmailTaken(err)
	}

	token := &domain.VerificationToken{
		AccountID: account.ID,
		Token:     s.newToken(),
		ExpiresAt: s.now().Add(s.verificationTTL),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, err
	}

	userID := account.ID
	s.publishEvent(ctx, events.New(events.EventAccountRegistered, account.ID,
		events.Actor{Type: domain.SubjectTypeUser, UserID: &userID}, s.now(),
		events.AccountRegisteredPayload{
			Name:              account.Name,
			Email:             account.Email,
			VerificationToken: token.Token,
			ExpiresAt:         token.ExpiresAt,
		}))
	return account, nil
}

// VerifyEmail consumes a verification token and marks the address verified.
// A pending account is activated when the console is configured to do so.
func (s *AccountService) VerifyEmail(ctx context.Context, tokenStr string) (*domain.Account, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, apperrors.NewValidationError("verification token is required", map[string]any{"token": "is required"})
	}

	token, err := s.tokens.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("verification token is invalid", map[string]any{"token": "is invalid"})
		}
		return nil, err
	}
	if !token.Usable(s.now()) {
		if token.UsedAt != nil {
			if account, ok := s.pendingActivation(ctx, token.AccountID); ok {
				return s.completeVerification(ctx, account, false), nil
			}
		}
		return nil, apperrors.NewValidationError("verification token has expired or was already used", map[string]any{"token": "is expired or used"})
	}
	if err := s.tokens.MarkUsed(ctx, token.ID); err != nil {
		if errors.Is(err, repository.ErrTokenUsed) {
			return nil, apperrors.NewValidationError("verification token has expired or was already used", map[string]any{"token": "is expired or used"})
		}
		return nil, err
	}

	account, err := s.loadAccount(ctx, token.AccountID)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.MarkEmailVerified(ctx, account.ID, s.now()); err != nil {
		return nil, err
	}
	account.EmailVerified = true

	return s.completeVerification(ctx, account, true), nil
}

// pendingActivation returns the account behind a spent token when its address
// is verified but the activation that should have followed never landed.
func (s *AccountService) pendingActivation(ctx context.Context, accountID string) (*domain.Account, bool) {
	if !s.activateOnVerify {
		return nil, false
	}
	account, err := s.loadAccount(ctx, accountID)
	if err != nil || !account.EmailVerified || account.Status != domain.AccountStatusPending {
		return nil, false
	}
	return account, true
}

// completeVerification activates a verified pending account. A failed
// activation leaves the address verified and the account pending; reusing the
// same link retries it.
func (s *AccountService) completeVerification(ctx context.Context, account *domain.Account, firstUse bool) *domain.Account {
	activated := false
	if s.activateOnVerify && account.Status == domain.AccountStatusPending {
		outcome, err := s.workflow.run(ctx, account.ID, lifecycle.RequestActivation)
		if err != nil {
			s.logger.Warn("activation after email verification failed",
				zap.String("account_id", account.ID),
				zap.Error(err))
		} else {
			account = outcome.Account
			account.EmailVerified = true
			activated = true
		}
	}

	if firstUse || activated {
		userID := account.ID
		s.publishEvent(ctx, events.New(events.EventAccountEmailVerified, account.ID,
			events.Actor{Type: domain.SubjectTypeUser, UserID: &userID}, s.now(),
			events.AccountEmailVerifiedPayload{Email: account.Email, Activated: activated}))
	}
	return account
}

// GetProfile returns the caller's own account.
func (s *AccountService) GetProfile(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.loadAccount(ctx, accountID)
}

// UpdateProfile edits the caller's name and email.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID string, input ProfileInput) (*domain.Account, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)

	fieldErrs := validation.FieldErrors{}
	if !validation.ValidateName(name) {
		fieldErrs[validation.FieldName] = "name is required"
	}
	if !validation.ValidateEmail(email) {
		fieldErrs[validation.FieldEmail] = "email address is invalid"
	}
	if len(fieldErrs) > 0 {
		return nil, apperrors.NewValidationError("profile input is invalid", fieldErrs.Details())
	}

	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(account.Email, email) {
		if err := s.ensureEmailAvailable(ctx, email, account.ID); err != nil {
			return nil, err
		}
	}

	account.Name = name
	account.Email = email
	account.UpdatedAt = s.now()
	if err := s.accounts.UpdateProfile(ctx, account); err != nil {
		return nil, mapEmailTaken(err)
	}
	return account, nil
}

// Withdraw closes the caller's own account. The reason may be empty.
func (s *AccountService) Withdraw(ctx context.Context, accountID, reason string) (*StatusChangeOutcome, error) {
	outcome, err := s.workflow.run(ctx, accountID, func(account domain.Account) lifecycle.TransitionResult {
		return lifecycle.RequestWithdrawal(account, reason, lifecycle.Actor{ID: account.ID, Name: account.Name})
	})
	if err != nil {
		return nil, err
	}

	userID := accountID
	s.publishEvent(ctx, events.New(events.EventAccountWithdrawn, accountID,
		events.Actor{Type: domain.SubjectTypeUser, UserID: &userID}, s.now(),
		events.AccountWithdrawnPayload{
			Name:   outcome.Account.Name,
			Email:  outcome.Account.Email,
			Reason: outcome.Result.Reason,
		}))
	return outcome, nil
}

func (s *AccountService) loadAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("account", map[string]any{"id": id})
		}
		return nil, err
	}
	return account, nil
}

func (s *AccountService) ensureEmailAvailable(ctx context.Context, email, ownerID string) error {
	existing, err := s.accounts.GetByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != ownerID:
		return errEmailConflict()
	case err == nil, errors.Is(err, pgx.ErrNoRows):
		return nil
	default:
		return err
	}
}

func errEmailConflict() error {
	return apperrors.NewConflict("email already registered", map[string]any{validation.FieldEmail: "is already registered"})
}

func mapEmailTaken(err error) error {
	if errors.Is(err, repository.ErrEmailTaken) {
		return errEmailConflict()
	}
	return err
}

func (s *AccountService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
