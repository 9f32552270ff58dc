package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"chat-gateway/contract"
	"chat-gateway/domain"
	"chat-gateway/errors"
)

// DefaultPublicTopic is the broadcast channel every authenticated session
// joins automatically.
const DefaultPublicTopic = "public"

// Gateway is the boundary between the transport layer and the messaging
// core. It validates the sender of every inbound message against the bound
// registry entry, classifies the envelope kind and routes it to the broker
// (broadcast kinds) or the router (targeted kinds).
//
// No error returned here is fatal to the process; each is scoped to the
// offending session or message, and the caller decides whether to notify the
// client or silently drop.
type Gateway struct {
	log         *slog.Logger
	registry    contract.IRegistry
	broker      contract.IBroker
	router      contract.IRouter
	sanitizer   contract.Sanitizer
	publicTopic string
}

func NewGateway(log *slog.Logger, registry contract.IRegistry, broker contract.IBroker,
	router contract.IRouter, sanitizer contract.Sanitizer, publicTopic string) *Gateway {
	if publicTopic == "" {
		publicTopic = DefaultPublicTopic
	}
	return &Gateway{
		log:         log,
		registry:    registry,
		broker:      broker,
		router:      router,
		sanitizer:   sanitizer,
		publicTopic: publicTopic,
	}
}

// OnConnect allocates a new unbound session.
func (g *Gateway) OnConnect() domain.SessionID {
	return g.registry.Connect()
}

// OnAuthenticate binds the authenticated identity to the session, subscribes
// it to the public topic and announces the arrival with a JOIN envelope.
// On failure the session stays CONNECTED and unbound.
func (g *Gateway) OnAuthenticate(id domain.SessionID, identity domain.Identity) error {
	if err := g.registry.Bind(id, identity); err != nil {
		return err
	}
	if err := g.broker.Subscribe(id, g.publicTopic); err != nil {
		return fmt.Errorf("subscribing %s to %s: %w", id, g.publicTopic, err)
	}

	envelope, err := domain.NewEnvelope(domain.KindJoin, identity.Name,
		fmt.Sprintf("%s has joined", identity.Name))
	if err != nil {
		return err
	}
	g.broker.Publish(g.publicTopic, envelope)
	g.log.Info("session authenticated", "session_id", id, "identity", identity.Name)
	return nil
}

// OnClientMessage dispatches one parsed client frame. Clients may only
// originate CHAT and PRIVATE; JOIN, LEAVE and SYSTEM are synthesized by the
// gateway and rejected here with ErrInvalidKind.
func (g *Gateway) OnClientMessage(id domain.SessionID, rawKind string, payload contract.ClientPayload) error {
	identity, ok := g.registry.Identity(id)
	if !ok {
		return errors.ErrUnknownSession
	}

	kind := domain.Kind(strings.ToUpper(strings.TrimSpace(rawKind)))
	if !kind.ClientOriginated() {
		return errors.ErrInvalidKind
	}

	switch kind {
	case domain.KindChat:
		content := payload.Content
		if g.sanitizer != nil {
			sanitized, matched := g.sanitizer.Sanitize(content)
			if len(matched) > 0 {
				g.log.Warn("message content censored",
					"identity", identity.Name, "matches", len(matched))
			}
			content = sanitized
		}
		envelope, err := domain.NewEnvelope(domain.KindChat, identity.Name, content)
		if err != nil {
			return err
		}
		g.broker.Publish(g.publicTopic, envelope)

	case domain.KindPrivate:
		if payload.Recipient == "" {
			return errors.ErrEmptyRecipient
		}
		envelope, err := domain.NewEnvelope(domain.KindPrivate, identity.Name, payload.Content)
		if err != nil {
			return err
		}
		g.router.Deliver(payload.Recipient, envelope)
	}
	return nil
}

// OnDisconnect tears down registry and broker state, then announces the
// departure with a LEAVE envelope when the session had been bound. It is
// idempotent: a second disconnect neither errors nor broadcasts again.
func (g *Gateway) OnDisconnect(id domain.SessionID) {
	identity, bound := g.registry.Identity(id)

	g.broker.DropSession(id)
	if !g.registry.Disconnect(id) {
		return
	}
	if !bound {
		return
	}

	envelope, err := domain.NewEnvelope(domain.KindLeave, identity.Name,
		fmt.Sprintf("%s has left", identity.Name))
	if err != nil {
		g.log.Error("building LEAVE envelope", "error", err)
		return
	}
	g.broker.Publish(g.publicTopic, envelope)
	g.log.Info("session closed", "session_id", id, "identity", identity.Name)
}

// BroadcastSystem publishes a server-originated announcement on the public
// topic. It is callable from application code without any session context
// and never reachable by untrusted clients.
func (g *Gateway) BroadcastSystem(content string) error {
	envelope, err := domain.NewEnvelope(domain.KindSystem, domain.SystemSender, content)
	if err != nil {
		return err
	}
	g.broker.Publish(g.publicTopic, envelope)
	return nil
}

// Stream exposes one session's outbound envelopes for the transport to drain.
func (g *Gateway) Stream(ctx context.Context, id domain.SessionID) (<-chan domain.Envelope, error) {
	return g.registry.Stream(ctx, id)
}
