package identity

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

// PgIdentityRepository stores patient identities in Postgres.
type PgIdentityRepository struct {
	pool *pgxpool.Pool
}

func NewPgIdentityRepository(pool *pgxpool.Pool) *PgIdentityRepository {
	return &PgIdentityRepository{pool: pool}
}

func (r *PgIdentityRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *PgIdentityRepository) Create(ctx context.Context, ident *PatientIdentity) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_identity (id, primary_phone, email, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ident.ID, ident.PrimaryPhone, ident.Email, ident.DisplayName, ident.CreatedAt, ident.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating identity: %w", err)
	}
	return nil
}

func (r *PgIdentityRepository) GetByID(ctx context.Context, id uuid.UUID) (*PatientIdentity, error) {
	var ident PatientIdentity
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, primary_phone, email, display_name, created_at, updated_at
		FROM patient_identity WHERE id = $1`, id).
		Scan(&ident.ID, &ident.PrimaryPhone, &ident.Email, &ident.DisplayName, &ident.CreatedAt, &ident.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting identity: %w", err)
	}
	return &ident, nil
}

func (r *PgIdentityRepository) Update(ctx context.Context, ident *PatientIdentity) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_identity
		SET primary_phone = $2, email = $3, display_name = $4, updated_at = $5
		WHERE id = $1`,
		ident.ID, ident.PrimaryPhone, ident.Email, ident.DisplayName, ident.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating identity: %w", err)
	}
	return nil
}

// PgUserRepository stores portal users in Postgres.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *PgUserRepository) Create(ctx context.Context, user *PortalUser) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO portal_user (id, identity_id, phone, email, created_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.IdentityID, user.Phone, user.Email, user.CreatedAt, user.LastLoginAt)
	if err != nil {
		return fmt.Errorf("creating portal user: %w", err)
	}
	return nil
}

const userColumns = `id, identity_id, phone, email, created_at, last_login_at`

func (r *PgUserRepository) getOne(ctx context.Context, where string, arg any) (*PortalUser, error) {
	var user PortalUser
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+userColumns+` FROM portal_user WHERE `+where, arg).
		Scan(&user.ID, &user.IdentityID, &user.Phone, &user.Email, &user.CreatedAt, &user.LastLoginAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting portal user: %w", err)
	}
	return &user, nil
}

func (r *PgUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*PortalUser, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *PgUserRepository) GetByPhone(ctx context.Context, phone string) (*PortalUser, error) {
	return r.getOne(ctx, `phone = $1`, phone)
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (*PortalUser, error) {
	return r.getOne(ctx, `email = $1`, email)
}

func (r *PgUserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE portal_user SET last_login_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("touching last login: %w", err)
	}
	return nil
}

// PgLinkRepository stores patient links in Postgres.
type PgLinkRepository struct {
	pool *pgxpool.Pool
}

func NewPgLinkRepository(pool *pgxpool.Pool) *PgLinkRepository {
	return &PgLinkRepository{pool: pool}
}

func (r *PgLinkRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *PgLinkRepository) Upsert(ctx context.Context, link *PatientLink) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_link (id, identity_id, clinic_id, clinic_patient_id, verified_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (clinic_id, clinic_patient_id)
		DO UPDATE SET identity_id = EXCLUDED.identity_id, verified_at = EXCLUDED.verified_at`,
		link.ID, link.IdentityID, link.ClinicID, link.ClinicPatientID, link.VerifiedAt)
	if err != nil {
		return fmt.Errorf("upserting patient link: %w", err)
	}
	return nil
}

func (r *PgLinkRepository) ListByIdentity(ctx context.Context, identityID uuid.UUID) ([]*PatientLink, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, identity_id, clinic_id, clinic_patient_id, verified_at
		FROM patient_link
		WHERE identity_id = $1
		ORDER BY clinic_id, clinic_patient_id`, identityID)
	if err != nil {
		return nil, fmt.Errorf("listing patient links: %w", err)
	}
	defer rows.Close()

	var links []*PatientLink
	for rows.Next() {
		var l PatientLink
		if err := rows.Scan(&l.ID, &l.IdentityID, &l.ClinicID, &l.ClinicPatientID, &l.VerifiedAt); err != nil {
			return nil, fmt.Errorf("scanning patient link: %w", err)
		}
		links = append(links, &l)
	}
	return links, rows.Err()
}
