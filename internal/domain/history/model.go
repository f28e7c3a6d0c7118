// Package history assembles a patient's cross-clinic visit timeline. Every
// read is scoped by the caller's verified clinic links and the current consent
// ledger; a record outside that scope is indistinguishable from one that does
// not exist.
package history

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrVisitNotFound covers both a missing visit and a visit the caller may
	// not see. The two cases are deliberately not distinguishable.
	ErrVisitNotFound = errors.New("visit not found")
	// ErrDocumentNotFound covers missing and inaccessible documents alike.
	ErrDocumentNotFound = errors.New("document not found")
)

// VisitSummary is one timeline row.
type VisitSummary struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	ClinicID        uuid.UUID  `db:"clinic_id" json:"clinic_id"`
	ClinicName      string     `json:"clinic_name"`
	ClinicPatientID uuid.UUID  `db:"clinic_patient_id" json:"clinic_patient_id"`
	VisitDate       time.Time  `db:"visit_date" json:"visit_date"`
	Reason          *string    `db:"reason" json:"reason,omitempty"`
	DoctorName      *string    `db:"doctor_name" json:"doctor_name,omitempty"`
	// NextVisitDate is the date of the same patient's next-later visit at the
	// same clinic, when one exists.
	NextVisitDate *time.Time `db:"next_visit_date" json:"next_visit_date,omitempty"`
	HasDoctorNote bool       `db:"has_doctor_note" json:"has_doctor_note"`
}

// VisitDetail is the full record behind one timeline row.
type VisitDetail struct {
	VisitSummary
	Diagnosis   *string       `db:"diagnosis" json:"diagnosis,omitempty"`
	Treatment   *string       `db:"treatment" json:"treatment,omitempty"`
	DoctorNotes []*DoctorNote `json:"doctor_notes"`
	Documents   []*Document   `json:"documents"`
}

// DoctorNote is a free-text note attached to a visit.
type DoctorNote struct {
	ID        uuid.UUID `db:"id" json:"id"`
	VisitID   uuid.UUID `db:"visit_id" json:"visit_id"`
	Author    string    `db:"author" json:"author"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Document is the metadata of a file attached to a visit. The binary content
// lives in the blob store under the document id.
type Document struct {
	ID              uuid.UUID `db:"id" json:"id"`
	VisitID         uuid.UUID `db:"visit_id" json:"visit_id"`
	ClinicID        uuid.UUID `db:"clinic_id" json:"clinic_id"`
	ClinicPatientID uuid.UUID `db:"clinic_patient_id" json:"clinic_patient_id"`
	FileName        string    `db:"file_name" json:"file_name"`
	ContentType     string    `db:"content_type" json:"content_type"`
	SizeBytes       int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Page is one window of the timeline. NextCursor is nil on the last page.
type Page struct {
	Visits     []*VisitSummary `json:"visits"`
	NextCursor *string         `json:"next_cursor,omitempty"`
}
