package history

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PatientRef addresses one clinic-local patient record.
type PatientRef struct {
	ClinicID  uuid.UUID
	PatientID uuid.UUID
}

// SortKey is a visit's position in the global timeline order
// (visit_date DESC, id DESC).
type SortKey struct {
	VisitDate time.Time
	VisitID   uuid.UUID
}

// VisitRepository reads visit records across clinic stores.
type VisitRepository interface {
	// ListForPatients returns up to limit visits belonging to the given
	// patient records, ordered by visit date descending with visit id
	// descending as tie-break. A non-nil after key restricts the result to
	// visits strictly later in that order (older visits).
	ListForPatients(ctx context.Context, refs []PatientRef, after *SortKey, limit int) ([]*VisitSummary, error)
	// SortKeyOf returns the timeline position of a visit, or ErrVisitNotFound.
	SortKeyOf(ctx context.Context, visitID uuid.UUID) (*SortKey, error)
	// GetDetail returns the full visit record, or ErrVisitNotFound.
	GetDetail(ctx context.Context, visitID uuid.UUID) (*VisitDetail, error)
}

// DocumentRepository reads visit document metadata.
type DocumentRepository interface {
	// GetMeta returns a document's metadata, or ErrDocumentNotFound.
	GetMeta(ctx context.Context, docID uuid.UUID) (*Document, error)
	ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*Document, error)
}
