package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rtmonitor/internal/domain/linelist"
	"github.com/okian/rtmonitor/pkg/metrics"
)

// MemoryStore keeps the current snapshot behind an atomic pointer. Publish
// swaps the pointer; Current never blocks.
type MemoryStore struct {
	snapshot atomic.Pointer[Snapshot]
	closed   atomic.Bool

	metricsUpdateInterval time.Duration
	now                   func() time.Time

	wg       sync.WaitGroup
	stopChan chan struct{}
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs a store and starts its metrics updater, which
// runs until Close or ctx is done.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		metricsUpdateInterval: 5 * time.Second,
		now:                   time.Now,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Publish implements Store.Publish.
func (s *MemoryStore) Publish(ctx context.Context, source string, records []*linelist.Record, report linelist.Report) (*Snapshot, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	snap := NewSnapshot(source, records, report, s.now())
	s.snapshot.Store(snap)

	metrics.RecordSnapshotPublished(float64(time.Since(start).Milliseconds()), snap.LoadedAt, len(snap.regions))
	metrics.UpdateRecordsIngested(snap.Len())
	metrics.UpdateRecoveredWithoutDate(report.RecoveredWithoutDate)
	return snap, nil
}

// Current implements Store.Current.
func (s *MemoryStore) Current(_ context.Context) (*Snapshot, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// Close gracefully shuts down the metrics updater.
func (s *MemoryStore) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

// startMetricsUpdater starts a background goroutine that reports the age
// of the current snapshot.
func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	snap := s.snapshot.Load()
	if snap == nil {
		return
	}
	metrics.UpdateSnapshotAge(s.now().Sub(snap.LoadedAt))
}
