package runtime

import (
	"context"
	"log/slog"
	"sync"

	"chat-gateway/domain"
	"chat-gateway/observability"
)

// OutboundQueue is the bounded per-session delivery buffer. Publish and
// deliver paths only enqueue and return immediately; a transport-side
// consumer drains the queue through Stream.
//
// Overflow policy: the oldest unsent non-SYSTEM envelope is dropped and
// logged. SYSTEM envelopes are never dropped; when the buffer holds nothing
// but SYSTEM envelopes, an incoming SYSTEM envelope is queued beyond capacity
// and an incoming non-SYSTEM envelope is discarded instead.
type OutboundQueue struct {
	mu       sync.Mutex
	log      *slog.Logger
	monitor  *observability.Monitoring
	capacity int
	items    []domain.Envelope
	notify   chan struct{}
	closed   bool
}

func NewOutboundQueue(log *slog.Logger, monitor *observability.Monitoring, capacity int) *OutboundQueue {
	return &OutboundQueue{
		log:      log,
		monitor:  monitor,
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// Push enqueues an envelope. Pushing onto a closed queue silently discards
// the payload: an in-flight publish for a disconnecting session completes
// without error.
func (q *OutboundQueue) Push(envelope domain.Envelope) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	if len(q.items) >= q.capacity {
		if !q.evictOldest(envelope.Kind) {
			// Nothing evictable and the incoming envelope is not SYSTEM.
			q.log.Warn("outbound queue full, discarding incoming envelope",
				"kind", envelope.Kind, "sender", envelope.Sender)
			q.monitor.IncrDropped()
			return
		}
	}

	q.items = append(q.items, envelope)
	q.signal()
}

// evictOldest removes the oldest non-SYSTEM envelope to make room.
// It reports false when no eviction happened and the incoming kind is not
// SYSTEM either; a SYSTEM envelope is always granted a slot.
func (q *OutboundQueue) evictOldest(incoming domain.Kind) bool {
	for i, item := range q.items {
		if item.Kind == domain.KindSystem {
			continue
		}
		q.log.Warn("outbound queue full, dropping oldest unsent envelope",
			"kind", item.Kind, "sender", item.Sender)
		q.monitor.IncrDropped()
		q.items = append(q.items[:i], q.items[i+1:]...)
		return true
	}
	return incoming == domain.KindSystem
}

// Close marks the queue terminal and discards anything still buffered.
// Close is idempotent.
func (q *OutboundQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.items = nil
	q.signal()
}

func (q *OutboundQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *OutboundQueue) pop() (domain.Envelope, bool, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return domain.Envelope{}, false, q.closed
	}
	envelope := q.items[0]
	q.items = q.items[1:]
	return envelope, true, q.closed
}

// Stream returns a lazy sequence of envelopes for one consumer. It ends when
// the queue is closed (session disconnect) or the context is cancelled.
// Stream can be called again after a consumer gives up; buffered envelopes
// are handed to whichever consumer pops them first.
func (q *OutboundQueue) Stream(ctx context.Context) <-chan domain.Envelope {
	out := make(chan domain.Envelope)
	go func() {
		defer close(out)
		for {
			envelope, ok, closed := q.pop()
			if ok {
				select {
				case out <- envelope:
					continue
				case <-ctx.Done():
					return
				}
			}
			if closed {
				return
			}
			select {
			case <-q.notify:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
