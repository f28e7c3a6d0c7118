package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*Entry
	block   chan struct{}
}

func (m *memAuditRepo) Insert(_ context.Context, entry *Entry) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memAuditRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Entry
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memAuditRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func TestRecorder_WritesEntries(t *testing.T) {
	repo := &memAuditRepo{}
	rec := NewRecorder(repo, zerolog.Nop(), 16)
	rec.Start(context.Background())

	userID := uuid.New()
	rec.Record(userID, ResourceVisitSummary, uuid.New(), uuid.New())
	rec.Record(userID, ResourceVisitDetail, uuid.New(), uuid.New())
	rec.Close()

	if got := repo.count(); got != 2 {
		t.Errorf("persisted %d entries, want 2", got)
	}
	entries, _ := repo.ListByUser(context.Background(), userID, 10, 0)
	if len(entries) != 2 {
		t.Errorf("listed %d entries for user, want 2", len(entries))
	}
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	repo := &memAuditRepo{block: block}
	rec := NewRecorder(repo, zerolog.Nop(), 1)
	rec.Start(context.Background())

	userID := uuid.New()
	// The worker parks on the blocked insert, the queue holds one more, and
	// everything past that must be dropped without blocking this goroutine.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			rec.Record(userID, ResourceVisitSummary, uuid.New(), uuid.New())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	if rec.Dropped() == 0 {
		t.Error("expected some entries to be dropped")
	}
	close(block)
	rec.Close()
}

func TestRecorder_RecordAfterCloseDropsEntry(t *testing.T) {
	repo := &memAuditRepo{}
	rec := NewRecorder(repo, zerolog.Nop(), 16)
	rec.Start(context.Background())
	rec.Close()

	rec.Record(uuid.New(), ResourceVisitSummary, uuid.New(), uuid.New())

	if got := rec.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d after post-close Record, want 1", got)
	}
	if got := repo.count(); got != 0 {
		t.Errorf("persisted %d entries, want 0", got)
	}
}

func TestRecorder_CloseDrainsQueue(t *testing.T) {
	repo := &memAuditRepo{}
	rec := NewRecorder(repo, zerolog.Nop(), 64)
	rec.Start(context.Background())

	userID := uuid.New()
	for i := 0; i < 20; i++ {
		rec.Record(userID, ResourceDoctorNote, uuid.New(), uuid.New())
	}
	rec.Close()

	if got := repo.count(); got != 20 {
		t.Errorf("persisted %d entries after Close, want 20", got)
	}
}
