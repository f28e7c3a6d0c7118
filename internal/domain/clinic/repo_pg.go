package clinic

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelink/carelink/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgDirectoryRepository reads the clinic directory from Postgres.
type PgDirectoryRepository struct {
	pool *pgxpool.Pool
}

func NewPgDirectoryRepository(pool *pgxpool.Pool) *PgDirectoryRepository {
	return &PgDirectoryRepository{pool: pool}
}

func (r *PgDirectoryRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *PgDirectoryRepository) ListPortalEnabledByIDs(ctx context.Context, ids []uuid.UUID) ([]*Clinic, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, name, portal_enabled, created_at
		FROM clinic
		WHERE id = ANY($1) AND portal_enabled
		ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("listing clinics: %w", err)
	}
	defer rows.Close()

	var clinics []*Clinic
	for rows.Next() {
		var c Clinic
		if err := rows.Scan(&c.ID, &c.Name, &c.PortalEnabled, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning clinic: %w", err)
		}
		clinics = append(clinics, &c)
	}
	return clinics, rows.Err()
}

// PgPatientRepository reads clinic patient records from Postgres.
type PgPatientRepository struct {
	pool *pgxpool.Pool
}

func NewPgPatientRepository(pool *pgxpool.Pool) *PgPatientRepository {
	return &PgPatientRepository{pool: pool}
}

func (r *PgPatientRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *PgPatientRepository) FindByNormalizedContact(ctx context.Context, normalized string) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT p.id, p.clinic_id, p.full_name, p.contact, p.contact_normalized
		FROM clinic_patient p
		JOIN clinic c ON c.id = p.clinic_id
		WHERE c.portal_enabled AND p.contact_normalized = $1
		ORDER BY p.clinic_id, p.id`, normalized)
	if err != nil {
		return nil, fmt.Errorf("finding patients by contact: %w", err)
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.ClinicID, &p.FullName, &p.Contact, &p.ContactNormalized); err != nil {
			return nil, fmt.Errorf("scanning patient: %w", err)
		}
		patients = append(patients, &p)
	}
	return patients, rows.Err()
}
