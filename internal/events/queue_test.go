package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedPublisher blocks every delivery until release is closed.
type gatedPublisher struct {
	release chan struct{}
	err     error

	mu   sync.Mutex
	keys []string
}

func (g *gatedPublisher) Publish(ctx context.Context, _, key string, _ any) error {
	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keys = append(g.keys, key)
	return g.err
}

func (g *gatedPublisher) delivered() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.keys...)
}

func TestQueue_PublishDoesNotWaitForBroker(t *testing.T) {
	g := &gatedPublisher{release: make(chan struct{})}
	q := NewQueue(g, 4, time.Minute, nil)

	start := time.Now()
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, q.Publish(context.Background(), TopicOrders, k, OrderCreated{Type: "order_created"}))
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.Empty(t, g.delivered())

	close(g.release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Close(ctx))
	assert.Equal(t, []string{"a", "b", "c"}, g.delivered())

	assert.ErrorIs(t, q.Publish(context.Background(), TopicOrders, "d", nil), ErrClosed)
}

func TestQueue_FullBufferRejects(t *testing.T) {
	g := &gatedPublisher{release: make(chan struct{})}
	q := NewQueue(g, 1, time.Minute, nil)
	t.Cleanup(func() {
		close(g.release)
		_ = q.Close(context.Background())
	})

	var full error
	for i := 0; i < 5 && full == nil; i++ {
		full = q.Publish(context.Background(), TopicOrders, "k", nil)
	}
	assert.ErrorIs(t, full, ErrQueueFull)
}

func TestQueue_LogsDeliveryErrors(t *testing.T) {
	var buf bytes.Buffer
	g := &gatedPublisher{release: make(chan struct{}), err: errors.New("broker down")}
	close(g.release)
	q := NewQueue(g, 1, time.Second, slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, q.Publish(context.Background(), TopicOrders, "o-1", nil))
	require.NoError(t, q.Close(context.Background()))

	assert.Contains(t, buf.String(), `"msg":"kafka_publish_error"`)
	assert.Contains(t, buf.String(), `"key":"o-1"`)
}
