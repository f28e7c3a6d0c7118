package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelink/carelink/internal/platform/db"
)

type queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgRepository stores access log entries in Postgres.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *PgRepository) Insert(ctx context.Context, entry *Entry) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO access_log (id, user_id, resource_type, resource_id, clinic_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.UserID, entry.ResourceType, entry.ResourceID, entry.ClinicID, entry.OccurredAt)
	if err != nil {
		return fmt.Errorf("inserting access log entry: %w", err)
	}
	return nil
}

func (r *PgRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Entry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, user_id, resource_type, resource_id, clinic_id, occurred_at
		FROM access_log
		WHERE user_id = $1
		ORDER BY occurred_at DESC, id DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing access log: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.ResourceType, &e.ResourceID, &e.ClinicID, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scanning access log entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
