package passcode

import (
	"context"
	"errors"
	"fmt"
	"time"

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

// PgRepository stores passcode requests in Postgres.
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

func (r *PgRepository) Create(ctx context.Context, req *Request) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO passcode_request (id, contact, code_hash, request_ip, device_id, attempts, created_at, expires_at, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		req.ID, req.Contact, req.CodeHash, req.RequestIP, req.DeviceID,
		req.Attempts, req.CreatedAt, req.ExpiresAt, req.VerifiedAt)
	if err != nil {
		return fmt.Errorf("creating passcode request: %w", err)
	}
	return nil
}

func (r *PgRepository) LatestPending(ctx context.Context, contact string) (*Request, error) {
	var req Request
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, contact, code_hash, request_ip, device_id, attempts, created_at, expires_at, verified_at
		FROM passcode_request
		WHERE contact = $1 AND verified_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`, contact).
		Scan(&req.ID, &req.Contact, &req.CodeHash, &req.RequestIP, &req.DeviceID,
			&req.Attempts, &req.CreatedAt, &req.ExpiresAt, &req.VerifiedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading pending passcode: %w", err)
	}
	return &req, nil
}

func (r *PgRepository) CountRecent(ctx context.Context, contact string, deviceID *string, ip string, since time.Time) (int, error) {
	var count int
	var err error
	if deviceID != nil && *deviceID != "" {
		err = r.conn(ctx).QueryRow(ctx, `
			SELECT COUNT(*) FROM passcode_request
			WHERE contact = $1 AND device_id = $2 AND created_at >= $3`,
			contact, *deviceID, since).Scan(&count)
	} else {
		err = r.conn(ctx).QueryRow(ctx, `
			SELECT COUNT(*) FROM passcode_request
			WHERE contact = $1 AND request_ip = $2 AND created_at >= $3`,
			contact, ip, since).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("counting recent passcode requests: %w", err)
	}
	return count, nil
}

func (r *PgRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE passcode_request SET attempts = attempts + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("incrementing passcode attempts: %w", err)
	}
	return nil
}

func (r *PgRepository) MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE passcode_request SET verified_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("marking passcode verified: %w", err)
	}
	return nil
}
