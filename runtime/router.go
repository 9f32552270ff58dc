package runtime

import (
	"log/slog"

	"chat-gateway/domain"
	"chat-gateway/observability"
)

// Router delivers an envelope to one identity's private inbox, regardless of
// topic subscriptions. Direct delivery fans out to every live session of the
// recipient (multiple tabs, multiple devices).
type Router struct {
	log      *slog.Logger
	monitor  *observability.Monitoring
	registry *Registry
}

func NewRouter(log *slog.Logger, monitor *observability.Monitoring, registry *Registry) *Router {
	return &Router{log: log, monitor: monitor, registry: registry}
}

// Deliver resolves the recipient and appends the envelope to each of their
// session queues. The kind is always forced to PRIVATE so private content
// never lands in a topic feed. A recipient with no live session is a silent
// drop: this is a best-effort real-time channel, not a message store.
func (r *Router) Deliver(recipient string, envelope domain.Envelope) {
	envelope = envelope.WithKind(domain.KindPrivate)

	ids := r.registry.Lookup(recipient)
	if len(ids) == 0 {
		r.log.Debug("no live session for recipient, dropping private envelope",
			"recipient", recipient, "sender", envelope.Sender)
		return
	}

	for _, id := range ids {
		session, ok := r.registry.get(id)
		if !ok {
			continue
		}
		session.queue.Push(envelope)
		r.monitor.IncrDelivered()
	}
}
