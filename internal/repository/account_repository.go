package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/account-console/internal/domain"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks github.com/spec-kit/account-console/internal/repository AccountRepository,AuditLogRepository,VerificationTokenRepository,AdminRepository,AccountLocker

// ErrStatusConflict is returned when a guarded status update finds the
// account in a different status than the one it was evaluated against.
var ErrStatusConflict = errors.New("account status changed concurrently")

// ErrEmailTaken is returned when a write collides with another account's email.
var ErrEmailTaken = errors.New("email already registered")

const uniqueViolation = "23505"

var emailConstraints = map[string]struct{}{
	"accounts_email_key":       {},
	"idx_accounts_email_lower": {},
}

// AccountRepository defines persistence access for end-user accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	UpdateProfile(ctx context.Context, account *domain.Account) error
	UpdateStatus(ctx context.Context, account *domain.Account, previous domain.AccountStatus) error
	MarkEmailVerified(ctx context.Context, id string, at time.Time) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountColumns = `id, name, email, password_hash, status, email_verified, registered_at, updated_at, last_login_at`

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (name, email, password_hash, status, email_verified)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, registered_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.Status,
		account.EmailVerified,
	).Scan(&account.ID, &account.RegisteredAt, &account.UpdatedAt)
	return translateEmailConflict(err)
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1`
	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email)=lower($1)`
	return scanAccount(r.pool.QueryRow(ctx, query, email))
}

func (r *accountRepository) List(ctx context.Context) ([]domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts ORDER BY registered_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *account)
	}
	return result, rows.Err()
}

func (r *accountRepository) UpdateProfile(ctx context.Context, account *domain.Account) error {
	const query = `
        UPDATE accounts SET name=$1, email=$2, updated_at=GREATEST($3, registered_at)
        WHERE id=$4
        RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		account.Name,
		account.Email,
		account.UpdatedAt,
		account.ID,
	).Scan(&account.UpdatedAt)
	return translateEmailConflict(err)
}

// translateEmailConflict turns a unique violation on the email columns into
// ErrEmailTaken. The pre-write lookup in the service does not close the race
// between two concurrent writers.
func translateEmailConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if _, ok := emailConstraints[pgErr.ConstraintName]; ok {
			return ErrEmailTaken
		}
	}
	return err
}

// UpdateStatus persists a status already applied to account. The write only
// lands while the stored status still equals previous.
func (r *accountRepository) UpdateStatus(ctx context.Context, account *domain.Account, previous domain.AccountStatus) error {
	const query = `
        UPDATE accounts SET status=$1, updated_at=GREATEST($2, registered_at)
        WHERE id=$3 AND status=$4`

	cmd, err := r.pool.Exec(ctx, query,
		account.Status,
		account.UpdatedAt,
		account.ID,
		previous,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.missingOrConflict(ctx, account.ID)
	}
	return nil
}

func (r *accountRepository) missingOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return pgx.ErrNoRows
	}
	return ErrStatusConflict
}

func (r *accountRepository) MarkEmailVerified(ctx context.Context, id string, at time.Time) error {
	const query = `
        UPDATE accounts SET email_verified=TRUE, updated_at=GREATEST($1, registered_at)
        WHERE id=$2`
	return r.execOne(ctx, query, at, id)
}

func (r *accountRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE accounts SET last_login_at=$1 WHERE id=$2`
	return r.execOne(ctx, query, at, id)
}

func (r *accountRepository) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	const query = `
        UPDATE accounts SET password_hash=$1, updated_at=GREATEST($2, registered_at)
        WHERE id=$3`
	return r.execOne(ctx, query, passwordHash, at, id)
}

func (r *accountRepository) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&account.Status,
		&account.EmailVerified,
		&account.RegisteredAt,
		&account.UpdatedAt,
		&account.LastLoginAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}
