package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrQueueFull = errors.New("events: publish queue full")
	ErrClosed    = errors.New("events: publisher closed")
)

type job struct {
	topic string
	key   string
	event any
}

// Queue hands events to a background worker so Publish never waits on the
// broker. Events that do not fit in the buffer are rejected, not blocked on.
type Queue struct {
	next    Publisher
	timeout time.Duration
	log     *slog.Logger

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	done   chan struct{}
}

// NewQueue starts the worker. Each delivery to next gets its own timeout,
// detached from the caller's context.
func NewQueue(next Publisher, size int, timeout time.Duration, log *slog.Logger) *Queue {
	if log == nil {
		log = slog.Default()
	}
	q := &Queue{
		next:    next,
		timeout: timeout,
		log:     log,
		jobs:    make(chan job, size),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) Publish(_ context.Context, topic, key string, event any) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.jobs <- job{topic: topic, key: key, event: event}:
		return nil
	default:
		return fmt.Errorf("%w: dropped %s event %s", ErrQueueFull, topic, key)
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for j := range q.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		err := q.next.Publish(ctx, j.topic, j.key, j.event)
		cancel()
		if err != nil {
			q.log.Error("kafka_publish_error", "topic", j.topic, "key", j.key, "error", err)
		}
	}
}

// Close stops accepting events and waits until the queued ones are
// delivered or ctx ends.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
