package runtime

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chat-gateway/domain"
	"chat-gateway/errors"
	"chat-gateway/observability"

	"github.com/stretchr/testify/require"
)

func newTestBroker(t *testing.T) (*Broker, *Registry) {
	t.Helper()
	registry := NewRegistry(slog.Default(), observability.NewMonitoring(), 16)
	broker := NewBroker(slog.Default(), observability.NewMonitoring(), registry)
	return broker, registry
}

func requireSilent(t *testing.T, stream <-chan domain.Envelope) {
	t.Helper()
	select {
	case envelope := <-stream:
		require.Fail(t, "unexpected envelope", "got %s from %s", envelope.Kind, envelope.Sender)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroker_Subscribe(t *testing.T) {
	req := require.New(t)
	broker, registry := newTestBroker(t)

	err := broker.Subscribe("gone", "general")
	req.ErrorIs(err, errors.ErrUnknownSession)

	id := registry.Connect()
	req.NoError(broker.Subscribe(id, "general"))
}

func TestBroker_Publish(t *testing.T) {
	t.Run("should deliver to every subscriber in arrival order", func(t *testing.T) {
		req := require.New(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		broker, registry := newTestBroker(t)

		alice := registry.Connect()
		bob := registry.Connect()
		req.NoError(broker.Subscribe(alice, "general"))
		req.NoError(broker.Subscribe(bob, "general"))

		broker.Publish("general", mustEnvelope(t, domain.KindChat, "alice", "first"))
		broker.Publish("general", mustEnvelope(t, domain.KindChat, "bob", "second"))

		for _, id := range []domain.SessionID{alice, bob} {
			stream, err := registry.Stream(ctx, id)
			req.NoError(err)
			got := drain(t, stream, 2)
			req.Equal("first", got[0].Content)
			req.Equal("second", got[1].Content)
		}
	})

	t.Run("should be a silent no-op without subscribers", func(t *testing.T) {
		broker, _ := newTestBroker(t)

		broker.Publish("empty-room", mustEnvelope(t, domain.KindChat, "alice", "anyone here?"))
	})

	t.Run("should refuse PRIVATE envelopes", func(t *testing.T) {
		req := require.New(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		broker, registry := newTestBroker(t)

		id := registry.Connect()
		req.NoError(broker.Subscribe(id, "general"))

		broker.Publish("general", mustEnvelope(t, domain.KindPrivate, "alice", "secret"))

		stream, err := registry.Stream(ctx, id)
		req.NoError(err)
		requireSilent(t, stream)
	})

	t.Run("should not reach a late subscriber", func(t *testing.T) {
		req := require.New(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		broker, registry := newTestBroker(t)

		early := registry.Connect()
		req.NoError(broker.Subscribe(early, "general"))
		broker.Publish("general", mustEnvelope(t, domain.KindChat, "alice", "before"))

		late := registry.Connect()
		req.NoError(broker.Subscribe(late, "general"))
		broker.Publish("general", mustEnvelope(t, domain.KindChat, "alice", "after"))

		stream, err := registry.Stream(ctx, late)
		req.NoError(err)
		got := drain(t, stream, 1)
		req.Equal("after", got[0].Content)
	})

	t.Run("should keep delivery timestamps non-decreasing per topic", func(t *testing.T) {
		req := require.New(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		broker, registry := newTestBroker(t)

		id := registry.Connect()
		req.NoError(broker.Subscribe(id, "general"))

		newer := mustEnvelope(t, domain.KindChat, "alice", "newer")
		older := mustEnvelope(t, domain.KindChat, "bob", "older").
			WithTimestamp(newer.Timestamp.Add(-time.Second))

		broker.Publish("general", newer)
		broker.Publish("general", older)

		stream, err := registry.Stream(ctx, id)
		req.NoError(err)
		got := drain(t, stream, 2)
		req.False(got[1].Timestamp.Before(got[0].Timestamp))
	})
}

func TestBroker_Unsubscribe(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	broker, registry := newTestBroker(t)

	id := registry.Connect()
	req.NoError(broker.Subscribe(id, "general"))
	broker.Unsubscribe(id, "general")

	broker.Publish("general", mustEnvelope(t, domain.KindChat, "alice", "gone already"))

	stream, err := registry.Stream(ctx, id)
	req.NoError(err)
	requireSilent(t, stream)

	// Unknown topic and non-member are no-ops
	broker.Unsubscribe(id, "never-existed")
}

func TestBroker_DropSession(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	broker, registry := newTestBroker(t)

	id := registry.Connect()
	req.NoError(broker.Subscribe(id, "general"))
	req.NoError(broker.Subscribe(id, "random"))

	broker.DropSession(id)
	broker.DropSession(id) // idempotent

	broker.Publish("general", mustEnvelope(t, domain.KindChat, "alice", "one"))
	broker.Publish("random", mustEnvelope(t, domain.KindChat, "alice", "two"))

	stream, err := registry.Stream(ctx, id)
	req.NoError(err)
	requireSilent(t, stream)
}
