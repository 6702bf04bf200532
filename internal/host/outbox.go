package host

import (
	"context"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/sidebar/pkg/core"
)

// DefaultOutboxCapacity bounds the outbox when no capacity is given.
const DefaultOutboxCapacity = 256

// Outbox queues outbound messages until the host drains them.
// When full, the oldest message is dropped.
type Outbox struct {
	mu       sync.Mutex
	queue    []core.OutboundMessage
	capacity int
	notify   chan struct{}
	logger   *slog.Logger
}

// NewOutbox creates an outbox holding at most capacity messages.
func NewOutbox(capacity int, logger *slog.Logger) *Outbox {
	if capacity <= 0 {
		capacity = DefaultOutboxCapacity
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Outbox{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
		logger:   logger,
	}
}

// PostMessage enqueues msg.
func (o *Outbox) PostMessage(_ context.Context, msg core.OutboundMessage) error {
	o.mu.Lock()
	if len(o.queue) >= o.capacity {
		o.logger.Warn("outbox full, dropping oldest message", slog.String("type", o.queue[0].Type))
		o.queue = o.queue[1:]
	}
	o.queue = append(o.queue, msg)
	o.mu.Unlock()

	select {
	case o.notify <- struct{}{}:
	default:
	}
	return nil
}

// Drain removes and returns every queued message in FIFO order.
func (o *Outbox) Drain() []core.OutboundMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.queue
	o.queue = nil
	if out == nil {
		return []core.OutboundMessage{}
	}
	return out
}

// Len returns the number of queued messages.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// Wait blocks until a message is queued or ctx is done.
func (o *Outbox) Wait(ctx context.Context) error {
	if o.Len() > 0 {
		return nil
	}
	select {
	case <-o.notify:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
