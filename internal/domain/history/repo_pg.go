package history

import (
	"context"
	"errors"
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

// PgVisitRepository reads visits from Postgres.
type PgVisitRepository struct {
	pool *pgxpool.Pool
}

func NewPgVisitRepository(pool *pgxpool.Pool) *PgVisitRepository {
	return &PgVisitRepository{pool: pool}
}

func (r *PgVisitRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const visitSummarySelect = `
	SELECT v.id, v.clinic_id, v.clinic_patient_id, v.visit_date, v.reason, v.doctor_name,
		(SELECT MIN(v2.visit_date) FROM visit v2
		 WHERE v2.clinic_id = v.clinic_id
		   AND v2.clinic_patient_id = v.clinic_patient_id
		   AND v2.visit_date > v.visit_date) AS next_visit_date,
		EXISTS (SELECT 1 FROM doctor_note n WHERE n.visit_id = v.id) AS has_doctor_note
	FROM visit v`

func (r *PgVisitRepository) ListForPatients(ctx context.Context, refs []PatientRef, after *SortKey, limit int) ([]*VisitSummary, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	clinicIDs := make([]uuid.UUID, len(refs))
	patientIDs := make([]uuid.UUID, len(refs))
	for i, ref := range refs {
		clinicIDs[i] = ref.ClinicID
		patientIDs[i] = ref.PatientID
	}

	query := visitSummarySelect + `
	JOIN unnest($1::uuid[], $2::uuid[]) AS allowed(clinic_id, patient_id)
	  ON v.clinic_id = allowed.clinic_id AND v.clinic_patient_id = allowed.patient_id`
	args := []any{clinicIDs, patientIDs}
	if after != nil {
		query += `
	WHERE (v.visit_date, v.id) < ($3, $4)`
		args = append(args, after.VisitDate, after.VisitID)
	}
	query += `
	ORDER BY v.visit_date DESC, v.id DESC
	LIMIT $` + fmt.Sprint(len(args)+1)
	args = append(args, limit)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing visits: %w", err)
	}
	defer rows.Close()

	var visits []*VisitSummary
	for rows.Next() {
		var v VisitSummary
		if err := rows.Scan(&v.ID, &v.ClinicID, &v.ClinicPatientID, &v.VisitDate,
			&v.Reason, &v.DoctorName, &v.NextVisitDate, &v.HasDoctorNote); err != nil {
			return nil, fmt.Errorf("scanning visit: %w", err)
		}
		visits = append(visits, &v)
	}
	return visits, rows.Err()
}

func (r *PgVisitRepository) SortKeyOf(ctx context.Context, visitID uuid.UUID) (*SortKey, error) {
	var key SortKey
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT visit_date, id FROM visit WHERE id = $1`, visitID).
		Scan(&key.VisitDate, &key.VisitID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrVisitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading visit sort key: %w", err)
	}
	return &key, nil
}

func (r *PgVisitRepository) GetDetail(ctx context.Context, visitID uuid.UUID) (*VisitDetail, error) {
	var d VisitDetail
	err := r.conn(ctx).QueryRow(ctx, `
	SELECT v.id, v.clinic_id, v.clinic_patient_id, v.visit_date, v.reason, v.doctor_name,
		(SELECT MIN(v2.visit_date) FROM visit v2
		 WHERE v2.clinic_id = v.clinic_id
		   AND v2.clinic_patient_id = v.clinic_patient_id
		   AND v2.visit_date > v.visit_date) AS next_visit_date,
		EXISTS (SELECT 1 FROM doctor_note n WHERE n.visit_id = v.id) AS has_doctor_note,
		v.diagnosis, v.treatment
	FROM visit v
	WHERE v.id = $1`, visitID).
		Scan(&d.ID, &d.ClinicID, &d.ClinicPatientID, &d.VisitDate,
			&d.Reason, &d.DoctorName, &d.NextVisitDate, &d.HasDoctorNote,
			&d.Diagnosis, &d.Treatment)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrVisitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading visit detail: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, visit_id, author, body, created_at
		FROM doctor_note
		WHERE visit_id = $1
		ORDER BY created_at`, visitID)
	if err != nil {
		return nil, fmt.Errorf("listing doctor notes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var n DoctorNote
		if err := rows.Scan(&n.ID, &n.VisitID, &n.Author, &n.Body, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning doctor note: %w", err)
		}
		d.DoctorNotes = append(d.DoctorNotes, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &d, nil
}

// PgDocumentRepository reads document metadata from Postgres.
type PgDocumentRepository struct {
	pool *pgxpool.Pool
}

func NewPgDocumentRepository(pool *pgxpool.Pool) *PgDocumentRepository {
	return &PgDocumentRepository{pool: pool}
}

func (r *PgDocumentRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const documentColumns = `id, visit_id, clinic_id, clinic_patient_id, file_name, content_type, size_bytes, created_at`

func (r *PgDocumentRepository) GetMeta(ctx context.Context, docID uuid.UUID) (*Document, error) {
	var d Document
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+documentColumns+` FROM document WHERE id = $1`, docID).
		Scan(&d.ID, &d.VisitID, &d.ClinicID, &d.ClinicPatientID,
			&d.FileName, &d.ContentType, &d.SizeBytes, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}
	return &d, nil
}

func (r *PgDocumentRepository) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*Document, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+documentColumns+` FROM document WHERE visit_id = $1 ORDER BY created_at`, visitID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.VisitID, &d.ClinicID, &d.ClinicPatientID,
			&d.FileName, &d.ContentType, &d.SizeBytes, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}
