// Package service wires ingestion, the snapshot store and the Rt pipeline
// into the operations the HTTP API exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/rtmonitor/internal/adapters/mq/queue"
	"github.com/okian/rtmonitor/internal/adapters/mq/worker"
	"github.com/okian/rtmonitor/internal/adapters/repository"
	"github.com/okian/rtmonitor/internal/adapters/source"
	"github.com/okian/rtmonitor/internal/domain/estimate"
	"github.com/okian/rtmonitor/internal/domain/filter"
	"github.com/okian/rtmonitor/internal/domain/linelist"
	"github.com/okian/rtmonitor/pkg/logger"
	"github.com/okian/rtmonitor/pkg/metrics"
)

const (
	defaultFetchTimeout   = 2 * time.Minute
	workerShutdownTimeout = 5 * time.Second
	reloadQueueCapacity   = 1
	reloadWorkerName      = "reload-worker"
	componentIngest       = "ingest"
	componentEvaluation   = "evaluation"
	errorTypeFetch        = "fetch_failed"
	errorTypePublish      = "publish_failed"
	errorTypePipeline     = "pipeline_failed"
	severityHigh          = "high"
	severityCritical      = "critical"
)

// Status describes the loaded data and the last reload attempt.
type Status struct {
	Ready        bool            `json:"ready"`
	SnapshotID   string          `json:"snapshot_id,omitempty"`
	Source       string          `json:"source,omitempty"`
	LoadedAt     time.Time       `json:"loaded_at,omitzero"`
	Records      int             `json:"records"`
	Regions      int             `json:"regions"`
	Report       linelist.Report `json:"report"`
	LastReloadAt time.Time       `json:"last_reload_at,omitzero"`
	LastError    string          `json:"last_error,omitempty"`
	PendingLoads int             `json:"pending_reloads"`
}

// Service owns the current snapshot and answers evaluations against it.
type Service struct {
	mu sync.RWMutex

	// Core components
	source   source.Source
	store    repository.Store
	pipeline *estimate.Pipeline
	queue    *queue.InMemoryQueue
	worker   *worker.Worker

	// Configuration
	refreshInterval time.Duration
	fetchTimeout    time.Duration

	// Last reload outcome
	statusMu     sync.Mutex
	lastReloadAt time.Time
	lastError    error

	// Ingest runs one at a time
	ingestMu sync.Mutex

	// State
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource sets where the line list is fetched from.
func WithSource(src source.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithStore sets the snapshot store. Without it Start creates an in-memory one.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithPipeline sets the Rt pipeline.
func WithPipeline(p *estimate.Pipeline) Option {
	return func(s *Service) {
		if p != nil {
			s.pipeline = p
		}
	}
}

// WithRefreshInterval schedules periodic reloads. Zero disables them.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshInterval = d
		}
	}
}

// WithFetchTimeout bounds one fetch from the source.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. A source is required before Start.
func New(opts ...Option) *Service {
	s := &Service{
		fetchTimeout: defaultFetchTimeout,
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the first snapshot, then starts the reload worker and the
// refresh timer. A failed first load is returned and nothing is started.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.source == nil {
		return ErrNoSource
	}
	if s.pipeline == nil {
		p, err := estimate.NewPipeline()
		if err != nil {
			return err
		}
		s.pipeline = p
	}
	ownStore := s.store == nil
	if ownStore {
		s.store = repository.NewMemoryStore(ctx)
	}

	s.logger.Info(ctx, "starting rt service...", logger.String("source", s.source.Name()))

	if _, err := s.ingest(ctx, "startup"); err != nil {
		if ownStore {
			_ = s.store.Close()
			s.store = nil
		}
		return err
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(reloadQueueCapacity))
	s.worker = worker.New(s.queue, s,
		worker.WithName(reloadWorkerName),
		worker.WithLogger(s.logger),
		worker.WithTimeout(s.fetchTimeout),
	)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker.Run(context.WithoutCancel(ctx))
	}()

	if s.refreshInterval > 0 {
		s.startRefresher(ctx)
	}

	s.started = true
	s.logger.Info(ctx, "rt service started",
		logger.Duration("refresh_interval", s.refreshInterval),
		logger.Duration("fetch_timeout", s.fetchTimeout),
	)
	return nil
}

// startRefresher enqueues a scheduled reload on every tick.
func (s *Service) startRefresher(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				err := s.queue.Enqueue(ctx, queue.NewRequest(queue.TriggerScheduled))
				if err != nil && !errors.Is(err, queue.ErrPending) {
					s.logger.Warn(ctx, "scheduled reload not queued", logger.Error(err))
				}
			}
		}
	}()
}

// Stop gracefully shuts down the service. A stopped service cannot be
// started again.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping rt service...")

	close(s.stopCh)
	_ = s.queue.Close()
	shutdownCtx, cancel := context.WithTimeout(ctx, workerShutdownTimeout)
	defer cancel()
	if err := s.worker.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "reload worker did not stop in time", logger.Error(err))
	}
	s.wg.Wait()
	_ = s.store.Close()

	s.started = false
	s.logger.Info(ctx, "rt service stopped")
}

// Reload implements worker.Reloader.
func (s *Service) Reload(ctx context.Context, r queue.Request) error {
	_, err := s.ingest(ctx, r.Trigger)
	return err
}

// RequestReload queues a manual reload. When one is already pending the new
// request is dropped and queue.ErrPending is returned with it.
func (s *Service) RequestReload(ctx context.Context) (queue.Request, error) {
	s.mu.RLock()
	started, q := s.started, s.queue
	s.mu.RUnlock()
	if !started {
		return queue.Request{}, ErrNotStarted
	}
	r := queue.NewRequest(queue.TriggerManual)
	if err := q.Enqueue(ctx, r); err != nil {
		return r, err
	}
	s.logger.Info(ctx, "reload queued", logger.String("request_id", r.ID))
	return r, nil
}

// Ingest fetches, normalizes and publishes a new snapshot synchronously.
// It returns ErrNotStarted before Start.
func (s *Service) Ingest(ctx context.Context) (*repository.Snapshot, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}
	return s.ingest(ctx, queue.TriggerManual)
}

func (s *Service) ingest(ctx context.Context, trigger string) (*repository.Snapshot, error) {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	start := time.Now()
	snap, err := s.fetchAndPublish(ctx)
	s.statusMu.Lock()
	s.lastReloadAt = time.Now()
	s.lastError = err
	s.statusMu.Unlock()
	if err != nil {
		s.logger.Error(ctx, "ingest failed",
			logger.String("source", s.source.Name()),
			logger.String("trigger", trigger),
			logger.Error(err),
		)
		return nil, err
	}

	metrics.RecordIngestDuration(float64(time.Since(start).Milliseconds()))
	for field, n := range snap.Report.Malformed {
		metrics.RecordMalformedDates(field, n)
	}
	s.logger.Info(ctx, "snapshot published",
		logger.String("snapshot_id", snap.ID),
		logger.String("trigger", trigger),
		logger.Int("records", snap.Len()),
		logger.Int("regions", len(snap.Regions())),
		logger.Int("malformed_dates", snap.Report.MalformedTotal()),
		logger.Int("missing_ids", snap.Report.MissingIDs),
		logger.Int("recovered_without_date", snap.Report.RecoveredWithoutDate),
		logger.Duration("took", time.Since(start)),
	)
	return snap, nil
}

func (s *Service) fetchAndPublish(ctx context.Context) (*repository.Snapshot, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	raws, err := s.source.Fetch(fetchCtx)
	if err != nil {
		metrics.RecordIngestError(s.source.Name())
		metrics.RecordErrorByComponent(componentIngest, errorTypeFetch)
		metrics.RecordErrorByType(errorTypeFetch, severityCritical)
		return nil, fmt.Errorf("%w: %s: %w", ErrIngest, s.source.Name(), err)
	}

	records, report := linelist.Normalize(raws)
	snap, err := s.store.Publish(ctx, s.source.Name(), records, report)
	if err != nil {
		metrics.RecordErrorByComponent(componentIngest, errorTypePublish)
		return nil, fmt.Errorf("%w: publish: %w", ErrIngest, err)
	}
	return snap, nil
}

// Evaluate runs the Rt pipeline for the given region and municipality on
// the current snapshot. Either may be empty.
func (s *Service) Evaluate(ctx context.Context, region, municipality string) (estimate.Evaluation, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return estimate.Evaluation{}, err
	}

	start := time.Now()
	sel := filter.NewSelector(region, municipality)
	ev, err := s.pipeline.Evaluate(snap.Records, sel)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordErrorByComponent(componentEvaluation, errorTypePipeline)
		metrics.RecordErrorByType(errorTypePipeline, severityHigh)
		metrics.RecordErrorLatency(componentEvaluation, errorTypePipeline, latency)
		return ev, fmt.Errorf("evaluate %s/%s: %w", sel.Region, sel.Municipality, err)
	}

	axis := 0
	if ev.Rt != nil {
		axis = len(ev.Rt.Axis)
		metrics.RecordUndefinedRtPoints(ev.Rt.Undefined)
	}
	if ev.Recovery.Fallback {
		metrics.RecordRecoveryFallback()
	}
	metrics.RecordEvaluation(ev.Status, latency, axis)

	s.logger.Debug(ctx, "evaluation finished",
		logger.String("snapshot_id", snap.ID),
		logger.String("region", sel.Region),
		logger.String("municipality", sel.Municipality),
		logger.String("status", ev.Status),
		logger.Int("days", axis),
		logger.Bool("recovery_fallback", ev.Recovery.Fallback),
	)
	return ev, nil
}

// Regions lists the regions of the current snapshot.
func (s *Service) Regions(ctx context.Context) ([]string, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Regions(), nil
}

// Municipalities lists the municipalities of region, or all of them when
// region is empty.
func (s *Service) Municipalities(ctx context.Context, region string) ([]string, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	if region != "" {
		region = linelist.Title(region)
	}
	return snap.Municipalities(region)
}

// Status reports the loaded snapshot and the last reload attempt.
func (s *Service) Status(ctx context.Context) Status {
	s.statusMu.Lock()
	st := Status{LastReloadAt: s.lastReloadAt}
	if s.lastError != nil {
		st.LastError = s.lastError.Error()
	}
	s.statusMu.Unlock()

	s.mu.RLock()
	if s.queue != nil {
		st.PendingLoads = s.queue.Len(ctx)
	}
	s.mu.RUnlock()

	snap, err := s.current(ctx)
	if err != nil {
		return st
	}
	st.Ready = true
	st.SnapshotID = snap.ID
	st.Source = snap.Source
	st.LoadedAt = snap.LoadedAt
	st.Records = snap.Len()
	st.Regions = len(snap.Regions())
	st.Report = snap.Report
	return st
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":         started,
		"refreshInterval": s.refreshInterval.String(),
		"fetchTimeout":    s.fetchTimeout.String(),
	}
	if s.source != nil {
		stats["source"] = s.source.Name()
	}
	if started {
		st := s.Status(ctx)
		stats["ready"] = st.Ready
		stats["records"] = st.Records
		stats["regions"] = st.Regions
		stats["snapshotId"] = st.SnapshotID
		stats["pendingReloads"] = st.PendingLoads
		if !st.LoadedAt.IsZero() {
			stats["snapshotAgeSeconds"] = time.Since(st.LoadedAt).Seconds()
		}
	}
	return stats
}

func (s *Service) current(ctx context.Context) (*repository.Snapshot, error) {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if store == nil {
		return nil, ErrNotReady
	}
	snap, err := store.Current(ctx)
	if errors.Is(err, repository.ErrNoSnapshot) {
		return nil, ErrNotReady
	}
	return snap, err
}
