package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslateEmailConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"email key", &pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"}, ErrEmailTaken},
		{"case folded index", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "idx_accounts_email_lower"}), ErrEmailTaken},
		{"other unique", &pgconn.PgError{Code: "23505", ConstraintName: "accounts_pkey"}, nil},
		{"check violation", &pgconn.PgError{Code: "23514", ConstraintName: "accounts_email_key"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateEmailConflict(tt.err)
			if tt.want != nil {
				assert.ErrorIs(t, got, tt.want)
				return
			}
			assert.False(t, errors.Is(got, ErrEmailTaken))
			assert.Equal(t, tt.err, got)
		})
	}
}
