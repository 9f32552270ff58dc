package transport

import (
	"context"
	"net/http"
	"time"

	"chat-gateway/contract"
	"chat-gateway/domain"

	"github.com/gorilla/websocket"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// wireEnvelope is the outbound frame shape:
// { kind, sender, content, timestamp } with an ISO-8601 timestamp.
type wireEnvelope struct {
	Kind      string `json:"kind"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

func toWire(e domain.Envelope) wireEnvelope {
	return wireEnvelope{
		Kind:      string(e.Kind),
		Sender:    e.Sender,
		Content:   e.Content,
		Timestamp: e.Timestamp.Format(time.RFC3339Nano),
	}
}

// clientFrame is the inbound frame shape parsed off the wire. The gateway
// only ever sees the (kind, payload) pair.
type clientFrame struct {
	Kind      string `json:"kind"`
	Content   string `json:"content"`
	Recipient string `json:"recipient,omitempty"`
}

func contractPayload(f clientFrame) contract.ClientPayload {
	return contract.ClientPayload{Content: f.Content, Recipient: f.Recipient}
}

// handleWebsocket upgrades the connection, binds the authenticated identity
// to a fresh session and runs the read/write pumps until the client leaves.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	claims, err := s.claimsFromRequest(r)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	identity := claims.Identity()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}

	sessionID := s.gateway.OnConnect()
	if err := s.gateway.OnAuthenticate(sessionID, identity); err != nil {
		s.log.Warn("websocket bind rejected",
			"session_id", sessionID, "identity", identity.Name, "error", err)
		s.gateway.OnDisconnect(sessionID)
		_ = conn.Close()
		return
	}

	// The request context dies with the HTTP handler; the pumps need their own.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer s.gateway.OnDisconnect(sessionID)
	defer conn.Close()

	go s.writePump(ctx, cancel, conn, sessionID)
	s.readPump(conn, sessionID, identity)
}

// readPump parses inbound frames and hands them to the gateway. Rejected
// messages (invalid kind, empty content) are logged and dropped; the
// connection stays open. A transport-level read error ends the session.
func (s *Server) readPump(conn *websocket.Conn, sessionID domain.SessionID, identity domain.Identity) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("websocket read error", "session_id", sessionID, "error", err)
			}
			return
		}

		err := s.gateway.OnClientMessage(sessionID, frame.Kind, contractPayload(frame))
		if err != nil {
			s.log.Warn("client message rejected",
				"session_id", sessionID,
				"identity", identity.Name,
				"kind", frame.Kind,
				"error", err)
		}
	}
}

// writePump drains the session's envelope stream onto the wire and keeps the
// connection alive with pings. It ends when the stream closes (disconnect)
// or a write fails.
func (s *Server) writePump(ctx context.Context, cancel context.CancelFunc,
	conn *websocket.Conn, sessionID domain.SessionID) {
	defer cancel()

	stream, err := s.gateway.Stream(ctx, sessionID)
	if err != nil {
		s.log.Error("opening outbound stream", "session_id", sessionID, "error", err)
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case envelope, ok := <-stream:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(s.writeTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := conn.WriteJSON(toWire(envelope)); err != nil {
				s.log.Warn("websocket write failed", "session_id", sessionID, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
