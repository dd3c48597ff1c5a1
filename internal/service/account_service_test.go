package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/spec-kit/account-console/internal/audit"
	"github.com/spec-kit/account-console/internal/auth"
	"github.com/spec-kit/account-console/internal/config"
	"github.com/spec-kit/account-console/internal/domain"
	"github.com/spec-kit/account-console/internal/events"
	"github.com/spec-kit/account-console/internal/lifecycle"
	"github.com/spec-kit/account-console/internal/repository"
	"github.com/spec-kit/account-console/internal/repository/mocks"
	"github.com/spec-kit/account-console/internal/validation"
	apperrors "github.com/spec-kit/account-console/pkg/util"
)

type AccountServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	accounts  *mocks.MockAccountRepository
	tokens    *mocks.MockVerificationTokenRepository
	auditLogs *mocks.MockAuditLogRepository
	locker    *mocks.MockAccountLocker
	published []events.Event
	service   *AccountService
}

func TestAccountServiceSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceSuite))
}

func (s *AccountServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.accounts = mocks.NewMockAccountRepository(s.ctrl)
	s.tokens = mocks.NewMockVerificationTokenRepository(s.ctrl)
	s.auditLogs = mocks.NewMockAuditLogRepository(s.ctrl)
	s.locker = mocks.NewMockAccountLocker(s.ctrl)
	s.published = nil

	dispatcher := events.NewInMemoryDispatcher(nil)
	capture := func(_ context.Context, e events.Event) error {
		s.published = append(s.published, e)
		return nil
	}
	dispatcher.Subscribe(events.EventAccountRegistered, capture)
	dispatcher.Subscribe(events.EventAccountEmailVerified, capture)
	dispatcher.Subscribe(events.EventAccountWithdrawn, capture)

	cfg := config.Config{
		Auth:    config.AuthConfig{BcryptCost: 4, EmailVerificationTTLMinutes: 60},
		Console: config.ConsoleConfig{ActivateOnVerify: true},
	}
	s.service = NewAccountService(cfg, AccountDependencies{
		AccountRepo:           s.accounts,
		VerificationTokenRepo: s.tokens,
		Locker:                s.locker,
		Recorder: audit.NewRecorder(s.auditLogs,
			audit.WithClock(func() time.Time { return fixedNow }),
			audit.WithIDGenerator(func() string { return "audit-9" })),
		Dispatcher: dispatcher,
		Clock:      func() time.Time { return fixedNow },
	})
	s.service.newToken = func() string { return "verify-token" }
}

func (s *AccountServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *AccountServiceSuite) stored(status domain.AccountStatus) *domain.Account {
	return &domain.Account{
		ID:           "user-1",
		Name:         "Tanaka Taro",
		Email:        "taro@example.com",
		Status:       status,
		RegisteredAt: fixedNow.Add(-time.Hour),
		UpdatedAt:    fixedNow.Add(-time.Hour),
	}
}

func (s *AccountServiceSuite) TestSignUpValidation() {
	_, err := s.service.SignUp(context.Background(), validation.SignUpInput{
		Name:     "  ",
		Email:    "not-an-email",
		Password: "short",
	})
	s.Require().Error(err)
	s.True(apperrors.HasCode(err, "VALIDATION_FAILED"))

	details := apperrors.ToDomainError(err).Details
	s.Contains(details, validation.FieldName)
	s.Contains(details, validation.FieldEmail)
	s.Contains(details, validation.FieldPassword)
	s.Contains(details, validation.FieldAcceptedTerms)
}

func (s *AccountServiceSuite) TestSignUpDuplicateEmail() {
	s.accounts.EXPECT().GetByEmail(gomock.Any(), "taro@example.com").Return(s.stored(domain.AccountStatusActive), nil)

	_, err := s.service.SignUp(context.Background(), validation.SignUpInput{
		Name:          "Tanaka Taro",
		Email:         " taro@example.com ",
		Password:      "password1",
		AcceptedTerms: true,
	})
	s.True(apperrors.HasCode(err, "CONFLICT"))
}

func (s *AccountServiceSuite) TestSignUpLosesEmailRace() {
	s.accounts.EXPECT().GetByEmail(gomock.Any(), "hanako@example.com").Return(nil, pgx.ErrNoRows)
	s.accounts.EXPECT().Create(gomock.Any(), gomock.Any()).Return(repository.ErrEmailTaken)

	_, err := s.service.SignUp(context.Background(), validation.SignUpInput{
		Name:          "Yamada Hanako",
		Email:         "hanako@example.com",
		Password:      "password1",
		AcceptedTerms: true,
	})
	s.True(apperrors.HasCode(err, "CONFLICT"))
	s.Empty(s.published)
}

func (s *AccountServiceSuite) TestSignUpCreatesPendingAccount() {
	s.accounts.EXPECT().GetByEmail(gomock.Any(), "hanako@example.com").Return(nil, pgx.ErrNoRows)
	s.accounts.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, acc *domain.Account) error {
			s.Equal(domain.AccountStatusPending, acc.Status)
			s.False(acc.EmailVerified)
			s.NoError(auth.ComparePassword(acc.PasswordHash, "password1"))
			acc.ID = "user-2"
			acc.RegisteredAt = fixedNow
			acc.UpdatedAt = fixedNow
			return nil
		})
	s.tokens.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, token *domain.VerificationToken) error {
			s.Equal("user-2", token.AccountID)
			s.Equal("verify-token", token.Token)
			s.Equal(fixedNow.Add(time.Hour), token.ExpiresAt)
			return nil
		})

	account, err := s.service.SignUp(context.Background(), validation.SignUpInput{
		Name:          "Yamada Hanako",
		Email:         "hanako@example.com",
		Password:      "password1",
		AcceptedTerms: true,
	})
	s.Require().NoError(err)
	s.Equal("user-2", account.ID)

	s.Require().Len(s.published, 1)
	payload, ok := s.published[0].Payload.(events.AccountRegisteredPayload)
	s.Require().True(ok)
	s.Equal("verify-token", payload.VerificationToken)
	s.Equal("hanako@example.com", payload.Email)
}

func (s *AccountServiceSuite) TestVerifyEmailActivatesPendingAccount() {
	token := &domain.VerificationToken{ID: "tok-1", AccountID: "user-1", Token: "verify-token", ExpiresAt: fixedNow.Add(time.Minute)}
	s.tokens.EXPECT().GetByToken(gomock.Any(), "verify-token").Return(token, nil)
	s.tokens.EXPECT().MarkUsed(gomock.Any(), "tok-1").Return(nil)
	s.accounts.EXPECT().GetByID(gomock.Any(), "user-1").Return(s.stored(domain.AccountStatusPending), nil).Times(2)
	s.accounts.EXPECT().MarkEmailVerified(gomock.Any(), "user-1", fixedNow).Return(nil)
	s.locker.EXPECT().Acquire(gomock.Any(), "user-1").Return(func() {}, nil)
	s.accounts.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), domain.AccountStatusPending).Return(nil)

	var entry domain.AuditLogEntry
	s.auditLogs.EXPECT().Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e domain.AuditLogEntry) error {
			entry = e
			return nil
		})

	account, err := s.service.VerifyEmail(context.Background(), "verify-token")
	s.Require().NoError(err)
	s.Equal(domain.AccountStatusActive, account.Status)
	s.True(account.EmailVerified)

	s.Equal(domain.AuditActionEmailVerification, entry.Action)
	s.Equal(lifecycle.SystemActor.ID, entry.AdminID)
	s.Equal(lifecycle.ActivationReason, entry.Reason)
	s.Equal(domain.AuditResultSuccess, entry.Result)

	s.Require().Len(s.published, 1)
	payload := s.published[0].Payload.(events.AccountEmailVerifiedPayload)
	s.True(payload.Activated)
}

func (s *AccountServiceSuite) TestVerifyEmailSurvivesBusyLockAndRetries() {
	verified := func() *domain.Account {
		acc := s.stored(domain.AccountStatusPending)
		acc.EmailVerified = true
		return acc
	}

	s.Run("activation blocked by lock", func() {
		token := &domain.VerificationToken{ID: "tok-1", AccountID: "user-1", Token: "verify-token", ExpiresAt: fixedNow.Add(time.Minute)}
		s.tokens.EXPECT().GetByToken(gomock.Any(), "verify-token").Return(token, nil)
		s.tokens.EXPECT().MarkUsed(gomock.Any(), "tok-1").Return(nil)
		s.accounts.EXPECT().GetByID(gomock.Any(), "user-1").Return(s.stored(domain.AccountStatusPending), nil).Times(2)
		s.accounts.EXPECT().MarkEmailVerified(gomock.Any(), "user-1", fixedNow).Return(nil)
		s.locker.EXPECT().Acquire(gomock.Any(), "user-1").Return(nil, repository.ErrLockHeld)
		s.auditLogs.EXPECT().Append(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, e domain.AuditLogEntry) error {
				s.Equal(domain.AuditResultFailure, e.Result)
				return nil
			})

		account, err := s.service.VerifyEmail(context.Background(), "verify-token")
		s.Require().NoError(err)
		s.True(account.EmailVerified)
		s.Equal(domain.AccountStatusPending, account.Status)
		s.Require().Len(s.published, 1)
		s.False(s.published[0].Payload.(events.AccountEmailVerifiedPayload).Activated)
	})

	s.Run("same link completes activation", func() {
		used := fixedNow.Add(-time.Minute)
		token := &domain.VerificationToken{ID: "tok-1", AccountID: "user-1", Token: "verify-token", ExpiresAt: fixedNow.Add(time.Minute), UsedAt: &used}
		s.tokens.EXPECT().GetByToken(gomock.Any(), "verify-token").Return(token, nil)
		s.accounts.EXPECT().GetByID(gomock.Any(), "user-1").Return(verified(), nil).Times(2)
		s.locker.EXPECT().Acquire(gomock.Any(), "user-1").Return(func() {}, nil)
		s.accounts.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), domain.AccountStatusPending).Return(nil)
		s.auditLogs.EXPECT().Append(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, e domain.AuditLogEntry) error {
				s.Equal(domain.AuditResultSuccess, e.Result)
				s.Equal(domain.AuditActionEmailVerification, e.Action)
				return nil
			})

		account, err := s.service.VerifyEmail(context.Background(), "verify-token")
		s.Require().NoError(err)
		s.Equal(domain.AccountStatusActive, account.Status)
		s.True(account.EmailVerified)
		s.Require().Len(s.published, 2)
		s.True(s.published[1].Payload.(events.AccountEmailVerifiedPayload).Activated)
	})
}

func (s *AccountServiceSuite) TestVerifyEmailRejectsUnusableTokens() {
	s.Run("expired", func() {
		expired := &domain.VerificationToken{ID: "tok-2", AccountID: "user-1", ExpiresAt: fixedNow.Add(-time.Second)}
		s.tokens.EXPECT().GetByToken(gomock.Any(), "old").Return(expired, nil)

		_, err := s.service.VerifyEmail(context.Background(), "old")
		s.True(apperrors.HasCode(err, "VALIDATION_FAILED"))
	})

	s.Run("used by an already active account", func() {
		used := fixedNow.Add(-time.Hour)
		spent := &domain.VerificationToken{ID: "tok-3", AccountID: "user-1", ExpiresAt: fixedNow.Add(time.Hour), UsedAt: &used}
		active := s.stored(domain.AccountStatusActive)
		active.EmailVerified = true
		s.tokens.EXPECT().GetByToken(gomock.Any(), "spent").Return(spent, nil)
		s.accounts.EXPECT().GetByID(gomock.Any(), "user-1").Return(active, nil)

		_, err := s.service.VerifyEmail(context.Background(), "spent")
		s.True(apperrors.HasCode(err, "VALIDATION_FAILED"))
	})

	s.Run("unknown", func() {
		s.tokens.EXPECT().GetByToken(gomock.Any(), "nope").Return(nil, pgx.ErrNoRows)

		_, err := s.service.VerifyEmail(context.Background(), "nope")
		s.True(apperrors.HasCode(err, "VALIDATION_FAILED"))
	})

	s.Run("blank", func() {
		_, err := s.service.VerifyEmail(context.Background(), "  ")
		s.True(apperrors.HasCode(err, "VALIDATION_FAILED"))
	})
}

func (s *AccountServiceSuite) TestWithdrawWithoutReason() {
	s.locker.EXPECT().Acquire(gomock.Any(), "user-1").Return(func() {}, nil)
	s.accounts.EXPECT().GetByID(gomock.Any(), "user-1").Return(s.stored(domain.AccountStatusActive), nil)
	s.accounts.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), domain.AccountStatusActive).Return(nil)

	var entry domain.AuditLogEntry
	s.auditLogs.EXPECT().Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e domain.AuditLogEntry) error {
			entry = e
			return nil
		})

	outcome, err := s.service.Withdraw(context.Background(), "user-1", "")
	s.Require().NoError(err)
	s.Equal(domain.AccountStatusWithdrawn, outcome.Account.Status)

	s.Equal(domain.AuditActionSelfWithdrawal, entry.Action)
	s.Equal("user-1", entry.AdminID)
	s.Equal("Tanaka Taro", entry.AdminName)
	s.Equal(audit.NoReasonProvided, entry.Reason)
	s.Equal(domain.AuditResultSuccess, entry.Result)
	s.Require().Len(s.published, 1)
	s.Equal(events.EventAccountWithdrawn, s.published[0].Type)
}

func (s *AccountServiceSuite) TestRecorderDefaultsToAuditRepository() {
	service := NewAccountService(config.Config{}, AccountDependencies{
		AccountRepo:  s.accounts,
		AuditLogRepo: s.auditLogs,
		Locker:       s.locker,
		Clock:        func() time.Time { return fixedNow },
	})

	s.locker.EXPECT().Acquire(gomock.Any(), "user-1").Return(func() {}, nil)
	s.accounts.EXPECT().GetByID(gomock.Any(), "user-1").Return(s.stored(domain.AccountStatusActive), nil)
	s.accounts.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), domain.AccountStatusActive).Return(nil)
	s.auditLogs.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

	outcome, err := service.Withdraw(context.Background(), "user-1", "moving away")
	s.Require().NoError(err)
	s.Equal(domain.AccountStatusWithdrawn, outcome.Account.Status)
	s.NotEmpty(outcome.AuditEntry.ID)
}

func (s *AccountServiceSuite) TestWithdrawTwiceIsRejected() {
	s.locker.EXPECT().Acquire(gomock.Any(), "user-1").Return(func() {}, nil)
	s.accounts.EXPECT().GetByID(gomock.Any(), "user-1").Return(s.stored(domain.AccountStatusWithdrawn), nil)
	s.auditLogs.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

	_, err := s.service.Withdraw(context.Background(), "user-1", "leaving")
	s.True(apperrors.HasCode(err, "TRANSITION_REJECTED"))
	s.Empty(s.published)
}

func (s *AccountServiceSuite) TestUpdateProfile() {
	s.Run("invalid input", func() {
		_, err := s.service.UpdateProfile(context.Background(), "user-1", ProfileInput{Name: "", Email: "a@b"})
		s.True(apperrors.HasCode(err, "VALIDATION_FAILED"))
	})

	s.Run("email taken", func() {
		s.accounts.EXPECT().GetByID(gomock.Any(), "user-1").Return(s.stored(domain.AccountStatusActive), nil)
		s.accounts.EXPECT().GetByEmail(gomock.Any(), "other@example.com").
			Return(&domain.Account{ID: "user-7"}, nil)

		_, err := s.service.UpdateProfile(context.Background(), "user-1", ProfileInput{Name: "Taro", Email: "other@example.com"})
		s.True(apperrors.HasCode(err, "CONFLICT"))
	})

	s.Run("email taken between lookup and write", func() {
		s.accounts.EXPECT().GetByID(gomock.Any(), "user-1").Return(s.stored(domain.AccountStatusActive), nil)
		s.accounts.EXPECT().GetByEmail(gomock.Any(), "fresh@example.com").Return(nil, pgx.ErrNoRows)
		s.accounts.EXPECT().UpdateProfile(gomock.Any(), gomock.Any()).Return(repository.ErrEmailTaken)

		_, err := s.service.UpdateProfile(context.Background(), "user-1", ProfileInput{Name: "Taro", Email: "fresh@example.com"})
		s.True(apperrors.HasCode(err, "CONFLICT"))
	})

	s.Run("rename", func() {
		s.accounts.EXPECT().GetByID(gomock.Any(), "user-1").Return(s.stored(domain.AccountStatusActive), nil)
		s.accounts.EXPECT().UpdateProfile(gomock.Any(), gomock.Any()).Return(nil)

		account, err := s.service.UpdateProfile(context.Background(), "user-1", ProfileInput{Name: " Taro ", Email: "TARO@example.com"})
		s.Require().NoError(err)
		s.Equal("Taro", account.Name)
		s.Equal("TARO@example.com", account.Email)
		s.Equal(domain.AccountStatusActive, account.Status)
		s.Equal(fixedNow, account.UpdatedAt)
	})
}

func (s *AccountServiceSuite) TestGetProfileNotFound() {
	s.accounts.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, pgx.ErrNoRows)

	_, err := s.service.GetProfile(context.Background(), "missing")
	s.True(apperrors.HasCode(err, "NOT_FOUND"))
}
