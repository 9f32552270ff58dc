// Package runtime hosts the messaging core: the connection registry, the
// topic broker, the direct router and the gateway facade. It carries no
// transport or storage logic.
package runtime

import (
	"context"
	"log/slog"
	"sync"

	"chat-gateway/domain"
	"chat-gateway/errors"
	"chat-gateway/observability"

	"github.com/google/uuid"
)

type Set map[domain.SessionID]struct{}

// Session is one live connection and its gateway-side state. It is created
// by the registry on connect and destroyed on disconnect; the broker and the
// router only touch its outbound queue.
type Session struct {
	ID domain.SessionID

	mu       sync.Mutex
	identity *domain.Identity
	state    domain.SessionState
	queue    *OutboundQueue
}

// Identity returns the bound principal, if the JOIN handshake completed.
func (s *Session) Identity() (domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return domain.Identity{}, false
	}
	return *s.identity, true
}

func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) bind(identity domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity != nil {
		return errors.ErrAlreadyBound
	}
	s.identity = &identity
	s.state = domain.StateBound
	return nil
}

func (s *Session) close() {
	s.mu.Lock()
	s.state = domain.StateDisconnected
	s.mu.Unlock()
	s.queue.Close()
}

// Registry tracks each live connection and the identity bound to it.
// An identity may hold several simultaneous sessions (multiple tabs or
// devices); Lookup returns all of them.
type Registry struct {
	mu            sync.RWMutex
	log           *slog.Logger
	monitor       *observability.Monitoring
	queueCapacity int
	sessions      map[domain.SessionID]*Session
	byIdentity    map[string]Set
}

func NewRegistry(log *slog.Logger, monitor *observability.Monitoring, queueCapacity int) *Registry {
	return &Registry{
		log:           log,
		monitor:       monitor,
		queueCapacity: queueCapacity,
		sessions:      make(map[domain.SessionID]*Session),
		byIdentity:    make(map[string]Set),
	}
}

// Connect allocates a new unbound session with its outbound queue.
func (r *Registry) Connect() domain.SessionID {
	session := &Session{
		ID:    domain.SessionID(uuid.NewString()),
		state: domain.StateConnected,
		queue: NewOutboundQueue(r.log, r.monitor, r.queueCapacity),
	}

	r.mu.Lock()
	r.sessions[session.ID] = session
	r.mu.Unlock()

	r.monitor.IncrSessionsConnected()
	r.log.Debug("session connected", "session_id", session.ID)
	return session.ID
}

// Bind attaches an authenticated identity to a session. Binding twice fails
// with ErrAlreadyBound; binding a gone session with ErrUnknownSession.
func (r *Registry) Bind(id domain.SessionID, identity domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return errors.ErrUnknownSession
	}
	if err := session.bind(identity); err != nil {
		return err
	}

	if _, ok := r.byIdentity[identity.Name]; !ok {
		r.byIdentity[identity.Name] = make(Set)
	}
	r.byIdentity[identity.Name][id] = struct{}{}
	return nil
}

// Identity resolves the principal bound to a session.
func (r *Registry) Identity(id domain.SessionID) (domain.Identity, bool) {
	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return domain.Identity{}, false
	}
	return session.Identity()
}

// Disconnect releases a session and closes its outbound queue. It is
// idempotent: disconnecting an already-removed session is a no-op and
// reports false.
func (r *Registry) Disconnect(id domain.SessionID) bool {
	r.mu.Lock()
	session, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.sessions, id)

	if identity, bound := session.Identity(); bound {
		if ids, ok := r.byIdentity[identity.Name]; ok {
			delete(ids, id)
			// No empty sets left behind, to avoid leaking identity names
			if len(ids) == 0 {
				delete(r.byIdentity, identity.Name)
			}
		}
	}
	r.mu.Unlock()

	session.close()
	r.monitor.IncrSessionsClosed()
	r.log.Debug("session disconnected", "session_id", id)
	return true
}

// Lookup returns every live session bound to the given identity name.
func (r *Registry) Lookup(name string) []domain.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, ok := r.byIdentity[name]
	if !ok {
		return nil
	}
	res := make([]domain.SessionID, 0, len(ids))
	for id := range ids {
		res = append(res, id)
	}
	return res
}

// Stream exposes the session's outbound envelopes; the channel is closed at
// disconnect or when ctx is cancelled.
func (r *Registry) Stream(ctx context.Context, id domain.SessionID) (<-chan domain.Envelope, error) {
	session, ok := r.get(id)
	if !ok {
		return nil, errors.ErrUnknownSession
	}
	return session.queue.Stream(ctx), nil
}

func (r *Registry) get(id domain.SessionID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	return session, ok
}
