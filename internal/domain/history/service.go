package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/domain/audit"
	"github.com/carelink/carelink/internal/domain/consent"
	"github.com/carelink/carelink/internal/platform/blobstore"
	"github.com/carelink/carelink/pkg/pagination"
)

// Service reads a patient's cross-clinic history. The consent-derived clinic
// access set is recomputed on every call and every returned record is handed
// to the audit sink.
type Service struct {
	visits   VisitRepository
	docs     DocumentRepository
	consents *consent.Service
	blobs    blobstore.BlobStore
	auditor  audit.Sink
	logger   zerolog.Logger
}

func NewService(visits VisitRepository, docs DocumentRepository, consents *consent.Service, blobs blobstore.BlobStore, auditor audit.Sink, logger zerolog.Logger) *Service {
	return &Service{
		visits:   visits,
		docs:     docs,
		consents: consents,
		blobs:    blobs,
		auditor:  auditor,
		logger:   logger,
	}
}

// ListVisits returns one timeline page. An identity with no visible clinics
// gets an empty page without touching the visit stores.
func (s *Service) ListVisits(ctx context.Context, userID, identityID uuid.UUID, params pagination.Params) (*Page, error) {
	limit := pagination.ClampLimit(params.Limit)

	access, err := s.consents.ResolveClinicAccess(ctx, identityID, consent.CategoryVisits)
	if err != nil {
		return nil, fmt.Errorf("resolving clinic access: %w", err)
	}
	if len(access) == 0 {
		return &Page{Visits: []*VisitSummary{}}, nil
	}

	var after *SortKey
	cursorID, err := pagination.DecodeCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursorID != uuid.Nil {
		after, err = s.visits.SortKeyOf(ctx, cursorID)
		if errors.Is(err, ErrVisitNotFound) {
			return nil, pagination.ErrInvalidCursor
		}
		if err != nil {
			return nil, err
		}
	}

	var refs []PatientRef
	for clinicID, a := range access {
		for _, patientID := range a.PatientIDs {
			refs = append(refs, PatientRef{ClinicID: clinicID, PatientID: patientID})
		}
	}

	// Fetch one row past the page to learn whether another page exists.
	visits, err := s.visits.ListForPatients(ctx, refs, after, limit+1)
	if err != nil {
		return nil, fmt.Errorf("listing visits: %w", err)
	}

	page := &Page{}
	hasMore := len(visits) > limit
	if hasMore {
		visits = visits[:limit]
	}
	for _, v := range visits {
		if a, ok := access[v.ClinicID]; ok {
			v.ClinicName = a.ClinicName
		}
		s.auditor.Record(userID, audit.ResourceVisitSummary, v.ID, v.ClinicID)
	}
	page.Visits = visits
	if page.Visits == nil {
		page.Visits = []*VisitSummary{}
	}
	if hasMore && len(visits) > 0 {
		cursor := pagination.EncodeCursor(visits[len(visits)-1].ID)
		page.NextCursor = &cursor
	}
	return page, nil
}

// GetVisitDetail returns one full visit record. Visits outside the caller's
// access set report ErrVisitNotFound exactly like missing ones.
func (s *Service) GetVisitDetail(ctx context.Context, userID, identityID, visitID uuid.UUID) (*VisitDetail, error) {
	access, err := s.consents.ResolveClinicAccess(ctx, identityID, consent.CategoryVisits)
	if err != nil {
		return nil, fmt.Errorf("resolving clinic access: %w", err)
	}

	detail, err := s.visits.GetDetail(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if !allowed(access, detail.ClinicID, detail.ClinicPatientID) {
		return nil, ErrVisitNotFound
	}

	detail.ClinicName = access[detail.ClinicID].ClinicName
	docs, err := s.docs.ListByVisit(ctx, visitID)
	if err != nil {
		return nil, fmt.Errorf("listing visit documents: %w", err)
	}
	detail.Documents = docs
	if detail.Documents == nil {
		detail.Documents = []*Document{}
	}
	if detail.DoctorNotes == nil {
		detail.DoctorNotes = []*DoctorNote{}
	}

	s.auditor.Record(userID, audit.ResourceVisitDetail, detail.ID, detail.ClinicID)
	return detail, nil
}

// GetDocument returns a document's metadata and a reader over its content.
// The caller owns closing the reader.
func (s *Service) GetDocument(ctx context.Context, userID, identityID, docID uuid.UUID) (*Document, io.ReadCloser, error) {
	access, err := s.consents.ResolveClinicAccess(ctx, identityID, consent.CategoryVisits)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving clinic access: %w", err)
	}

	meta, err := s.docs.GetMeta(ctx, docID)
	if err != nil {
		return nil, nil, err
	}
	if !allowed(access, meta.ClinicID, meta.ClinicPatientID) {
		return nil, nil, ErrDocumentNotFound
	}

	content, size, err := s.blobs.Get(ctx, meta.ID.String())
	if errors.Is(err, blobstore.ErrBlobNotFound) {
		s.logger.Error().
			Str("document_id", meta.ID.String()).
			Msg("document metadata exists but blob is missing")
		return nil, nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading document content: %w", err)
	}
	if size > 0 {
		meta.SizeBytes = size
	}

	s.auditor.Record(userID, audit.ResourceDoctorNote, meta.ID, meta.ClinicID)
	return meta, content, nil
}

// ListClinics returns the caller's visible clinics for navigation.
func (s *Service) ListClinics(ctx context.Context, identityID uuid.UUID) ([]*consent.ClinicAccess, error) {
	access, err := s.consents.ResolveClinicAccess(ctx, identityID, consent.CategoryVisits)
	if err != nil {
		return nil, err
	}
	out := make([]*consent.ClinicAccess, 0, len(access))
	for _, a := range access {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClinicName < out[j].ClinicName })
	return out, nil
}

func allowed(access map[uuid.UUID]*consent.ClinicAccess, clinicID, patientID uuid.UUID) bool {
	a, ok := access[clinicID]
	if !ok {
		return false
	}
	for _, id := range a.PatientIDs {
		if id == patientID {
			return true
		}
	}
	return false
}
