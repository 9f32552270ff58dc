package runtime

import (
	"log/slog"
	"testing"

	"chat-gateway/contract"
	"chat-gateway/domain"
	"chat-gateway/errors"
	"chat-gateway/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type gatewayMocks struct {
	registry  *mocks.MockIRegistry
	broker    *mocks.MockIBroker
	router    *mocks.MockIRouter
	sanitizer *mocks.MockSanitizer
}

func newTestGateway(t *testing.T) (*Gateway, gatewayMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := gatewayMocks{
		registry:  mocks.NewMockIRegistry(ctrl),
		broker:    mocks.NewMockIBroker(ctrl),
		router:    mocks.NewMockIRouter(ctrl),
		sanitizer: mocks.NewMockSanitizer(ctrl),
	}
	gateway := NewGateway(slog.Default(), m.registry, m.broker, m.router, m.sanitizer, "public")
	return gateway, m
}

func TestGateway_OnAuthenticate(t *testing.T) {
	alice := domain.Identity{Name: "alice", Role: domain.RoleUser}

	t.Run("should bind, subscribe and announce the arrival", func(t *testing.T) {
		req := require.New(t)
		gateway, m := newTestGateway(t)
		id := domain.SessionID("s1")

		m.registry.EXPECT().Bind(id, alice).Return(nil)
		m.broker.EXPECT().Subscribe(id, "public").Return(nil)
		m.broker.EXPECT().Publish("public", gomock.Any()).Do(
			func(_ string, envelope domain.Envelope) {
				req.Equal(domain.KindJoin, envelope.Kind)
				req.Equal("alice", envelope.Sender)
				req.Equal("alice has joined", envelope.Content)
			})

		req.NoError(gateway.OnAuthenticate(id, alice))
	})

	t.Run("should not announce anything when binding fails", func(t *testing.T) {
		req := require.New(t)
		gateway, m := newTestGateway(t)
		id := domain.SessionID("s1")

		m.registry.EXPECT().Bind(id, alice).Return(errors.ErrAlreadyBound)

		err := gateway.OnAuthenticate(id, alice)

		req.ErrorIs(err, errors.ErrAlreadyBound)
	})
}

func TestGateway_OnClientMessage(t *testing.T) {
	alice := domain.Identity{Name: "alice", Role: domain.RoleUser}
	id := domain.SessionID("s1")

	t.Run("should sanitize and broadcast a CHAT message", func(t *testing.T) {
		req := require.New(t)
		gateway, m := newTestGateway(t)

		m.registry.EXPECT().Identity(id).Return(alice, true)
		m.sanitizer.EXPECT().Sanitize("you ****").Return("you ****", []string{"word"})
		m.broker.EXPECT().Publish("public", gomock.Any()).Do(
			func(_ string, envelope domain.Envelope) {
				req.Equal(domain.KindChat, envelope.Kind)
				req.Equal("alice", envelope.Sender)
				req.Equal("you ****", envelope.Content)
			})

		err := gateway.OnClientMessage(id, " chat ", contract.ClientPayload{Content: "you ****"})

		req.NoError(err)
	})

	t.Run("should route a PRIVATE message to its recipient", func(t *testing.T) {
		req := require.New(t)
		gateway, m := newTestGateway(t)

		m.registry.EXPECT().Identity(id).Return(alice, true)
		m.router.EXPECT().Deliver("bob", gomock.Any()).Do(
			func(_ string, envelope domain.Envelope) {
				req.Equal(domain.KindPrivate, envelope.Kind)
				req.Equal("alice", envelope.Sender)
			})

		err := gateway.OnClientMessage(id, "PRIVATE",
			contract.ClientPayload{Content: "psst", Recipient: "bob"})

		req.NoError(err)
	})

	t.Run("should fail when the recipient is missing", func(t *testing.T) {
		req := require.New(t)
		gateway, m := newTestGateway(t)

		m.registry.EXPECT().Identity(id).Return(alice, true)

		err := gateway.OnClientMessage(id, "PRIVATE", contract.ClientPayload{Content: "psst"})

		req.ErrorIs(err, errors.ErrEmptyRecipient)
	})

	t.Run("should reject server-only kinds", func(t *testing.T) {
		req := require.New(t)
		gateway, m := newTestGateway(t)

		for _, kind := range []string{"JOIN", "LEAVE", "SYSTEM", "bogus"} {
			m.registry.EXPECT().Identity(id).Return(alice, true)

			err := gateway.OnClientMessage(id, kind, contract.ClientPayload{Content: "x"})

			req.ErrorIs(err, errors.ErrInvalidKind)
		}
	})

	t.Run("should fail for an unbound session", func(t *testing.T) {
		req := require.New(t)
		gateway, m := newTestGateway(t)

		m.registry.EXPECT().Identity(id).Return(domain.Identity{}, false)

		err := gateway.OnClientMessage(id, "CHAT", contract.ClientPayload{Content: "x"})

		req.ErrorIs(err, errors.ErrUnknownSession)
	})
}

func TestGateway_OnDisconnect(t *testing.T) {
	alice := domain.Identity{Name: "alice", Role: domain.RoleUser}
	id := domain.SessionID("s1")

	t.Run("should tear down and announce the departure", func(t *testing.T) {
		req := require.New(t)
		gateway, m := newTestGateway(t)

		m.registry.EXPECT().Identity(id).Return(alice, true)
		m.broker.EXPECT().DropSession(id)
		m.registry.EXPECT().Disconnect(id).Return(true)
		m.broker.EXPECT().Publish("public", gomock.Any()).Do(
			func(_ string, envelope domain.Envelope) {
				req.Equal(domain.KindLeave, envelope.Kind)
				req.Equal("alice has left", envelope.Content)
			})

		gateway.OnDisconnect(id)
	})

	t.Run("should not announce twice", func(t *testing.T) {
		gateway, m := newTestGateway(t)

		// Session already removed: no LEAVE broadcast
		m.registry.EXPECT().Identity(id).Return(domain.Identity{}, false)
		m.broker.EXPECT().DropSession(id)
		m.registry.EXPECT().Disconnect(id).Return(false)

		gateway.OnDisconnect(id)
	})

	t.Run("should stay quiet for a session that never authenticated", func(t *testing.T) {
		gateway, m := newTestGateway(t)

		m.registry.EXPECT().Identity(id).Return(domain.Identity{}, false)
		m.broker.EXPECT().DropSession(id)
		m.registry.EXPECT().Disconnect(id).Return(true)

		gateway.OnDisconnect(id)
	})
}

func TestGateway_BroadcastSystem(t *testing.T) {
	req := require.New(t)
	gateway, m := newTestGateway(t)

	m.broker.EXPECT().Publish("public", gomock.Any()).Do(
		func(_ string, envelope domain.Envelope) {
			req.Equal(domain.KindSystem, envelope.Kind)
			req.Equal(domain.SystemSender, envelope.Sender)
			req.Equal("maintenance at noon", envelope.Content)
		})

	req.NoError(gateway.BroadcastSystem("maintenance at noon"))
}
