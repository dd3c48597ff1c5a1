package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/account-console/internal/domain"
)

// AuditLogFilter narrows audit log listings. Zero values are ignored.
type AuditLogFilter struct {
	TargetUserID *string
	AdminID      *string
	Action       *domain.AuditAction
	Result       *domain.AuditResult
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

// AuditLogRepository is the append-only audit sink. It deliberately exposes
// no update or delete.
type AuditLogRepository interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) error
	List(ctx context.Context, filter AuditLogFilter) ([]domain.AuditLogEntry, int, error)
}

type auditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository builds repository.
func NewAuditLogRepository(pool *pgxpool.Pool) AuditLogRepository {
	return &auditLogRepository{pool: pool}
}

func (r *auditLogRepository) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	const query = `
        INSERT INTO audit_logs (id, timestamp, admin_id, admin_name, target_user_id, target_user_name,
            action, previous_status, new_status, reason, result)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.Timestamp,
		entry.AdminID,
		entry.AdminName,
		entry.TargetUserID,
		entry.TargetUserName,
		entry.Action,
		entry.PreviousStatus,
		entry.NewStatus,
		entry.Reason,
		entry.Result,
	)
	return err
}

// List returns matching entries newest first together with the total match count.
func (r *auditLogRepository) List(ctx context.Context, filter AuditLogFilter) ([]domain.AuditLogEntry, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.TargetUserID != nil {
		args = append(args, *filter.TargetUserID)
		clauses = append(clauses, fmt.Sprintf("target_user_id=$%d", len(args)))
	}
	if filter.AdminID != nil {
		args = append(args, *filter.AdminID)
		clauses = append(clauses, fmt.Sprintf("admin_id=$%d", len(args)))
	}
	if filter.Action != nil {
		args = append(args, *filter.Action)
		clauses = append(clauses, fmt.Sprintf("action=$%d", len(args)))
	}
	if filter.Result != nil {
		args = append(args, *filter.Result)
		clauses = append(clauses, fmt.Sprintf("result=$%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("timestamp <= $%d", len(args)))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_logs WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, timestamp, admin_id, admin_name, target_user_id, target_user_name,
                    action, previous_status, new_status, reason, result
             FROM audit_logs WHERE ` + where + ` ORDER BY seq DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.AuditLogEntry
	for rows.Next() {
		var entry domain.AuditLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Timestamp,
			&entry.AdminID,
			&entry.AdminName,
			&entry.TargetUserID,
			&entry.TargetUserName,
			&entry.Action,
			&entry.PreviousStatus,
			&entry.NewStatus,
			&entry.Reason,
			&entry.Result,
		); err != nil {
			return nil, 0, err
		}
		result = append(result, entry)
	}
	return result, total, rows.Err()
}
