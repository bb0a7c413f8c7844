// Package queue carries reload requests from the HTTP layer and the refresh
// timer to the reload worker.
// A pending reload covers every request made before it runs, so requests
// beyond capacity are coalesced and reported as ErrPending.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rtmonitor/pkg/metrics"
)

const defaultQueueCapacity = 1

// Reload triggers.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// Request asks for the line list to be fetched again.
type Request struct {
	ID          string    `json:"id"`
	Trigger     string    `json:"trigger"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewRequest stamps a request with a fresh id and the current time.
func NewRequest(trigger string) Request {
	return Request{ID: uuid.NewString(), Trigger: trigger, RequestedAt: time.Now()}
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds r. It returns ErrPending when the queue is full and
	// ErrClosed after Close.
	Enqueue(ctx context.Context, r Request) error

	// Dequeue returns the channel requests are delivered on. The channel
	// is closed when the queue is closed; consumers stop on their own
	// context.
	Dequeue(ctx context.Context) <-chan Request

	// Len returns the number of pending requests.
	Len(ctx context.Context) int

	// Close stops accepting requests.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	requests chan Request
	capacity int
	mu       sync.RWMutex
	closed   bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.requests = make(chan Request, q.capacity)
	metrics.UpdateReloadQueueSize(0)
	return q
}

// Enqueue implements Queue.Enqueue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Request) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("reload_queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case q.requests <- r:
		metrics.RecordReloadRequest(r.Trigger, "queued")
		metrics.UpdateReloadQueueSize(len(q.requests))
		return nil
	default:
		metrics.RecordReloadRequest(r.Trigger, "coalesced")
		return ErrPending
	}
}

// Dequeue implements Queue.Dequeue. Requests are received straight from the
// buffer, so a request is pending until a consumer takes it.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Request {
	return q.requests
}

// Len implements Queue.Len.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.requests)
}

// Close implements Queue.Close. Pending requests are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.requests)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
