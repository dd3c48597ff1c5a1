package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/account-console/internal/domain"
)

// ErrTokenUsed is returned when a token has already been consumed.
var ErrTokenUsed = errors.New("verification token already used")

// VerificationTokenRepository manages email verification token persistence.
type VerificationTokenRepository interface {
	Create(ctx context.Context, token *domain.VerificationToken) error
	GetByToken(ctx context.Context, token string) (*domain.VerificationToken, error)
	MarkUsed(ctx context.Context, id string) error
}

type verificationTokenRepository struct {
	pool *pgxpool.Pool
}

// NewVerificationTokenRepository constructs repository.
func NewVerificationTokenRepository(pool *pgxpool.Pool) VerificationTokenRepository {
	return &verificationTokenRepository{pool: pool}
}

func (r *verificationTokenRepository) Create(ctx context.Context, token *domain.VerificationToken) error {
	const query = `
        INSERT INTO email_verification_tokens (account_id, token, expires_at)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		token.AccountID,
		token.Token,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
}

func (r *verificationTokenRepository) GetByToken(ctx context.Context, tokenStr string) (*domain.VerificationToken, error) {
	const query = `
        SELECT id, account_id, token, expires_at, used_at, created_at
        FROM email_verification_tokens WHERE token=$1`
	var token domain.VerificationToken
	if err := r.pool.QueryRow(ctx, query, tokenStr).Scan(
		&token.ID,
		&token.AccountID,
		&token.Token,
		&token.ExpiresAt,
		&token.UsedAt,
		&token.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &token, nil
}

// MarkUsed consumes the token. A token that was already used is reported as missing.
func (r *verificationTokenRepository) MarkUsed(ctx context.Context, id string) error {
	const query = `
        UPDATE email_verification_tokens SET used_at=NOW()
        WHERE id=$1 AND used_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTokenUsed
	}
	return nil
}
