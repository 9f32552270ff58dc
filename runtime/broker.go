package runtime

import (
	"log/slog"
	"sync"
	"time"

	"chat-gateway/domain"
	"chat-gateway/errors"
	"chat-gateway/observability"
)

// topic is a named broadcast channel. Its lock covers the subscriber set and
// publication, which is what preserves per-topic arrival order: a publish
// holds the lock while appending to every subscriber queue, so no later
// publish can interleave and no unsubscribed session can still be appended to.
type topic struct {
	mu        sync.Mutex
	name      string
	members   map[domain.SessionID]*Session
	lastStamp time.Time
}

// Broker maintains named broadcast channels. Topics are created lazily on
// first subscription and removed when the last subscriber leaves; nothing is
// persisted.
type Broker struct {
	mu          sync.Mutex
	log         *slog.Logger
	monitor     *observability.Monitoring
	registry    *Registry
	topics      map[string]*topic
	memberships map[domain.SessionID]map[string]struct{}
}

func NewBroker(log *slog.Logger, monitor *observability.Monitoring, registry *Registry) *Broker {
	return &Broker{
		log:         log,
		monitor:     monitor,
		registry:    registry,
		topics:      make(map[string]*topic),
		memberships: make(map[domain.SessionID]map[string]struct{}),
	}
}

// Subscribe adds the session to the topic's subscriber set, creating the
// topic on first use. Fails with ErrUnknownSession if the session is gone.
func (b *Broker) Subscribe(id domain.SessionID, name string) error {
	session, ok := b.registry.get(id)
	if !ok {
		return errors.ErrUnknownSession
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[name]
	if !ok {
		t = &topic{name: name, members: make(map[domain.SessionID]*Session)}
		b.topics[name] = t
	}
	t.mu.Lock()
	t.members[id] = session
	t.mu.Unlock()

	if _, ok := b.memberships[id]; !ok {
		b.memberships[id] = make(map[string]struct{})
	}
	b.memberships[id][name] = struct{}{}
	return nil
}

// Unsubscribe removes the session from the topic. Unknown topics and
// non-members are silent no-ops.
func (b *Broker) Unsubscribe(id domain.SessionID, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unsubscribeLocked(id, name)
	if names, ok := b.memberships[id]; ok {
		delete(names, name)
		if len(names) == 0 {
			delete(b.memberships, id)
		}
	}
}

// DropSession removes the session from every topic it subscribed to.
// Called on disconnect; idempotent.
func (b *Broker) DropSession(id domain.SessionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name := range b.memberships[id] {
		b.unsubscribeLocked(id, name)
	}
	delete(b.memberships, id)
}

func (b *Broker) unsubscribeLocked(id domain.SessionID, name string) {
	t, ok := b.topics[name]
	if !ok {
		return
	}
	t.mu.Lock()
	delete(t.members, id)
	empty := len(t.members) == 0
	t.mu.Unlock()
	if empty {
		delete(b.topics, name)
	}
}

// Publish appends the envelope, in arrival order, to the outbound queue of
// every currently subscribed session. Publishing to a topic with zero
// subscribers is a silent no-op: fire-and-forget broadcast. PRIVATE
// envelopes never reach a topic; the broker refuses them.
func (b *Broker) Publish(name string, envelope domain.Envelope) {
	if envelope.Kind == domain.KindPrivate {
		b.log.Warn("refusing to publish PRIVATE envelope to a topic", "topic", name)
		return
	}

	b.mu.Lock()
	t, ok := b.topics[name]
	b.mu.Unlock()
	if !ok {
		b.log.Debug("publish to topic without subscribers, dropping",
			"topic", name, "kind", envelope.Kind)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Timestamps stay monotonically non-decreasing within this topic's
	// delivery order, even when envelopes were constructed concurrently.
	if envelope.Timestamp.Before(t.lastStamp) {
		envelope = envelope.WithTimestamp(t.lastStamp)
	} else {
		t.lastStamp = envelope.Timestamp
	}

	for _, session := range t.members {
		session.queue.Push(envelope)
		b.monitor.IncrPublished()
	}
}
