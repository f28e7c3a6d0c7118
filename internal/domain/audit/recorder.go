package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultQueueSize is the recorder's buffered queue capacity.
const DefaultQueueSize = 1024

// Sink accepts access records without blocking the caller. The history
// service depends on this interface so tests can capture records in memory.
type Sink interface {
	Record(userID uuid.UUID, resourceType string, resourceID, clinicID uuid.UUID)
}

// Recorder is an asynchronous Sink backed by a bounded queue and a single
// writer goroutine. When the queue is full the record is dropped and counted;
// an access log gap is preferable to a slow or failing read path.
type Recorder struct {
	queue  chan *Entry
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time

	wg        sync.WaitGroup
	closeOnce sync.Once

	mu      sync.Mutex
	closed  bool
	dropped uint64
}

func NewRecorder(repo Repository, logger zerolog.Logger, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Recorder{
		queue:  make(chan *Entry, queueSize),
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Start launches the writer goroutine. The context only bounds individual
// inserts; the worker itself runs until Close.
func (r *Recorder) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for entry := range r.queue {
			if err := r.repo.Insert(ctx, entry); err != nil {
				r.logger.Error().Err(err).
					Str("resource_type", entry.ResourceType).
					Str("resource_id", entry.ResourceID.String()).
					Msg("failed to write access log entry")
			}
		}
	}()
}

// Record enqueues one access for persistence. It never blocks and is safe to
// call at any time: a full queue or a closed recorder drops the entry with a
// warning.
func (r *Recorder) Record(userID uuid.UUID, resourceType string, resourceID, clinicID uuid.UUID) {
	entry := &Entry{
		ID:           uuid.New(),
		UserID:       userID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		ClinicID:     clinicID,
		OccurredAt:   r.now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		select {
		case r.queue <- entry:
			return
		default:
		}
	}
	r.dropped++
	r.logger.Warn().
		Uint64("dropped_total", r.dropped).
		Str("resource_type", resourceType).
		Msg("access log entry dropped")
}

// Dropped reports how many entries have been discarded since startup.
func (r *Recorder) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close stops accepting records and waits for the queue to drain. Records
// arriving afterwards are dropped, not panicked on.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.queue)
	})
	r.wg.Wait()
}
