//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-gateway/domain"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// IRegistry tracks live connections and the identity bound to each.
// Lifecycle per session: connect -> bind -> active -> disconnect.
type IRegistry interface {
	Connect() domain.SessionID
	Bind(id domain.SessionID, identity domain.Identity) error
	Identity(id domain.SessionID) (domain.Identity, bool)
	// Disconnect is idempotent; it reports whether a live session was removed.
	Disconnect(id domain.SessionID) bool
	// Lookup resolves every live session bound to the given identity name.
	Lookup(name string) []domain.SessionID
	// Stream exposes the session's outbound envelopes for the transport to
	// drain. The channel is closed at disconnect.
	Stream(ctx context.Context, id domain.SessionID) (<-chan domain.Envelope, error)
}

// IBroker maintains named broadcast channels and delivers a published
// envelope to every currently subscribed session, in arrival order.
type IBroker interface {
	Subscribe(id domain.SessionID, topic string) error
	Unsubscribe(id domain.SessionID, topic string)
	Publish(topic string, envelope domain.Envelope)
	// DropSession removes the session from every topic it subscribed to.
	DropSession(id domain.SessionID)
}

// IRouter delivers an envelope to every live session of one named identity,
// bypassing topic subscriptions.
type IRouter interface {
	Deliver(recipient string, envelope domain.Envelope)
}

// IGateway is the boundary the transport layer and the rest of the
// application use to feed the messaging core.
type IGateway interface {
	OnConnect() domain.SessionID
	OnAuthenticate(id domain.SessionID, identity domain.Identity) error
	OnClientMessage(id domain.SessionID, rawKind string, payload ClientPayload) error
	OnDisconnect(id domain.SessionID)
	BroadcastSystem(content string) error
	Stream(ctx context.Context, id domain.SessionID) (<-chan domain.Envelope, error)
}

// ClientPayload is the parsed body of an inbound client frame. The transport
// owns the wire framing; the gateway only sees this.
type ClientPayload struct {
	Content   string
	Recipient string
}

// Authenticator verifies credentials and returns the authenticated principal,
// or rejects.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (domain.Identity, error)
}

// Sanitizer rewrites user-submitted content before broadcast and reports the
// patterns it matched.
type Sanitizer interface {
	Sanitize(content string) (string, []string)
}

// UserStore is the durable record store for accounts.
type UserStore interface {
	Create(user domain.User) error
	GetByID(id uuid.UUID) (domain.User, error)
	GetByEmail(email string) (domain.User, error)
	Update(user domain.User) error
	Delete(id uuid.UUID) error
	List(cursor *string) ([]domain.User, *string, error)
}

// ReservationStore is the durable record store for viewing reservations.
type ReservationStore interface {
	Create(reservation domain.ViewingReservation) error
	Get(id uuid.UUID) (domain.ViewingReservation, error)
	Update(reservation domain.ViewingReservation) error
	Delete(id uuid.UUID) error
	ListByUser(userID uuid.UUID, cursor *string) ([]domain.ViewingReservation, *string, error)
}
