// Package worker runs queued reload requests one at a time.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/rtmonitor/internal/adapters/mq/queue"
	"github.com/okian/rtmonitor/pkg/logger"
	"github.com/okian/rtmonitor/pkg/metrics"
)

// Reload outcome statuses reported to metrics.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Reloader re-ingests the line list and publishes a new snapshot.
type Reloader interface {
	Reload(ctx context.Context, r queue.Request) error
}

// Queue defines how the worker receives requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Request
}

// Worker drains the reload queue. Reloads never overlap.
type Worker struct {
	queue    Queue
	reloader Reloader
	name     string
	timeout  time.Duration

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// New creates a worker with configuration options.
func New(q Queue, r Reloader, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		reloader: r,
		name:     "reload-worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes requests until ctx is canceled, Shutdown is called or the
// queue is closed.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case r, ok := <-requests:
			if !ok {
				return
			}
			if err := w.process(ctx, r); err != nil {
				w.logger.Error(ctx, "reload failed", logger.String("request_id", r.ID), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker after the reload in progress, if any.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) process(ctx context.Context, r queue.Request) error {
	start := time.Now()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	w.logger.Info(ctx, "reload started",
		logger.String("request_id", r.ID),
		logger.String("trigger", r.Trigger),
		logger.Duration("waited", start.Sub(r.RequestedAt)),
	)
	err := w.reloader.Reload(ctx, r)
	latency := float64(time.Since(r.RequestedAt).Milliseconds())
	if err != nil {
		metrics.RecordReloadProcessed(StatusError, latency)
		metrics.RecordErrorByComponent("reload_worker", "reload_failed")
		metrics.RecordErrorLatency("reload_worker", "reload_failed", float64(time.Since(start).Milliseconds()))
		return fmt.Errorf("reload %s: %w", r.ID, err)
	}
	metrics.RecordReloadProcessed(StatusOK, latency)
	w.logger.Info(ctx, "reload finished",
		logger.String("request_id", r.ID),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}
