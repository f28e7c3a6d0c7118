package consent

import (
	"context"
	"errors"
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

// PgRepository stores consent entries in Postgres.
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

func (r *PgRepository) Record(ctx context.Context, entry *Entry) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO consent_entry (id, identity_id, clinic_id, category, status, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (identity_id, clinic_id, category)
		DO UPDATE SET status = EXCLUDED.status, recorded_at = EXCLUDED.recorded_at`,
		entry.ID, entry.IdentityID, entry.ClinicID, entry.Category, entry.Status, entry.RecordedAt)
	if err != nil {
		return fmt.Errorf("recording consent: %w", err)
	}
	return nil
}

func (r *PgRepository) ListByIdentity(ctx context.Context, identityID uuid.UUID) ([]*Entry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, identity_id, clinic_id, category, status, recorded_at
		FROM consent_entry
		WHERE identity_id = $1
		ORDER BY clinic_id, category`, identityID)
	if err != nil {
		return nil, fmt.Errorf("listing consent entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.IdentityID, &e.ClinicID, &e.Category, &e.Status, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning consent entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *PgRepository) Get(ctx context.Context, identityID, clinicID uuid.UUID, category Category) (*Entry, error) {
	var e Entry
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, identity_id, clinic_id, category, status, recorded_at
		FROM consent_entry
		WHERE identity_id = $1 AND clinic_id = $2 AND category = $3`,
		identityID, clinicID, category).
		Scan(&e.ID, &e.IdentityID, &e.ClinicID, &e.Category, &e.Status, &e.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting consent entry: %w", err)
	}
	return &e, nil
}
