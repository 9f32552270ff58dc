package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"chat-gateway/auth"
	"chat-gateway/moderation"
	"chat-gateway/observability"
	"chat-gateway/repositories"
	"chat-gateway/runtime"
	"chat-gateway/services"
	"chat-gateway/transport"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type wireEnvelope struct {
	Kind      string `json:"kind"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type testStack struct {
	server *httptest.Server
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	req := require.New(t)

	// Reduced to 16 Mo for testing (avoid 20 Go of storage)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)

	log := logs.GetLoggerFromLevel(slog.LevelError)
	monitor := observability.NewMonitoring()
	registry := runtime.NewRegistry(log, monitor, 64)
	broker := runtime.NewBroker(log, monitor, registry)
	router := runtime.NewRouter(log, monitor, registry)

	censored, err := moderation.LoadDefaultWords()
	req.NoError(err)
	moderator, err := moderation.NewModerator(log, censored.Words, '*')
	req.NoError(err)

	gateway := runtime.NewGateway(log, registry, broker, router, moderator, "public")

	userRepository := repositories.NewUserRepository(db, log, nil)
	reservationRepository := repositories.NewReservationRepository(db, log, nil)
	tokens := auth.NewTokenManager([]byte("integration-test-key"), "chat-gateway", time.Hour)
	authenticator := auth.NewStoreAuthenticator(log, userRepository)
	userService := services.NewUserService(log, userRepository)
	authService := services.NewAuthService(log, authenticator, userRepository, tokens)
	reservationService := services.NewReservationService(log, reservationRepository)

	server := httptest.NewServer(transport.NewServer(log, gateway, authService,
		userService, reservationService, tokens, 5*time.Second).Routes())

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})
	return &testStack{server: server}
}

func (s *testStack) post(t *testing.T, path, token string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	request, err := http.NewRequest(http.MethodPost, s.server.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	return resp
}

func (s *testStack) register(t *testing.T, email, name, password string) {
	t.Helper()
	resp := s.post(t, "/register", "", map[string]string{
		"email":    email,
		"name":     name,
		"password": password,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func (s *testStack) login(t *testing.T, email, password string) string {
	t.Helper()
	resp := s.post(t, "/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload.Token
}

func (s *testStack) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(s.server.URL, "http") +
		"/ws?token=" + url.QueryEscape(token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) wireEnvelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var envelope wireEnvelope
	require.NoError(t, conn.ReadJSON(&envelope))
	return envelope
}

func Test_ChatScenario(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	stack.register(t, "alice@example.com", "alice", "Secret123456!")
	stack.register(t, "bob@example.com", "bob", "Secret123456!")

	aliceToken := stack.login(t, "alice@example.com", "Secret123456!")
	bobToken := stack.login(t, "bob@example.com", "Secret123456!")

	// When alice connects, she sees her own arrival
	alice := stack.dial(t, aliceToken)
	join := readEnvelope(t, alice)
	req.Equal("JOIN", join.Kind)
	req.Equal("alice has joined", join.Content)

	// When bob connects, both see his arrival
	bob := stack.dial(t, bobToken)
	req.Equal("bob has joined", readEnvelope(t, bob).Content)
	req.Equal("bob has joined", readEnvelope(t, alice).Content)

	// When alice chats, both receive the message
	req.NoError(alice.WriteJSON(map[string]string{"kind": "CHAT", "content": "hello everyone"}))
	for _, conn := range []*websocket.Conn{alice, bob} {
		envelope := readEnvelope(t, conn)
		req.Equal("CHAT", envelope.Kind)
		req.Equal("alice", envelope.Sender)
		req.Equal("hello everyone", envelope.Content)
	}

	// When alice whispers to bob, only bob receives it. The follow-up marker
	// proves nothing else was delivered to alice in between.
	req.NoError(alice.WriteJSON(map[string]string{
		"kind": "PRIVATE", "content": "just between us", "recipient": "bob",
	}))
	private := readEnvelope(t, bob)
	req.Equal("PRIVATE", private.Kind)
	req.Equal("alice", private.Sender)
	req.Equal("just between us", private.Content)

	req.NoError(alice.WriteJSON(map[string]string{"kind": "CHAT", "content": "marker one"}))
	req.Equal("marker one", readEnvelope(t, alice).Content)
	req.Equal("marker one", readEnvelope(t, bob).Content)

	// A private message to an absent user vanishes without an error
	req.NoError(alice.WriteJSON(map[string]string{
		"kind": "PRIVATE", "content": "anyone home?", "recipient": "carol",
	}))
	req.NoError(alice.WriteJSON(map[string]string{"kind": "CHAT", "content": "marker two"}))
	req.Equal("marker two", readEnvelope(t, alice).Content)
	req.Equal("marker two", readEnvelope(t, bob).Content)

	// A server-only kind is rejected but the connection survives
	req.NoError(alice.WriteJSON(map[string]string{"kind": "SYSTEM", "content": "fake notice"}))
	req.NoError(alice.WriteJSON(map[string]string{"kind": "CHAT", "content": "still here"}))
	req.Equal("still here", readEnvelope(t, alice).Content)
	req.Equal("still here", readEnvelope(t, bob).Content)

	// When bob leaves, alice is told
	req.NoError(bob.Close())
	leave := readEnvelope(t, alice)
	req.Equal("LEAVE", leave.Kind)
	req.Equal("bob has left", leave.Content)
}

func Test_ModerationScenario(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	stack.register(t, "alice@example.com", "alice", "Secret123456!")
	token := stack.login(t, "alice@example.com", "Secret123456!")

	alice := stack.dial(t, token)
	readEnvelope(t, alice) // own JOIN

	req.NoError(alice.WriteJSON(map[string]string{"kind": "CHAT", "content": "this is a scam"}))

	envelope := readEnvelope(t, alice)
	req.Equal("CHAT", envelope.Kind)
	req.NotContains(envelope.Content, "scam")
	req.Contains(envelope.Content, "****")
}

func Test_AdminBroadcastScenario(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	stack.register(t, "alice@example.com", "alice", "Secret123456!")
	token := stack.login(t, "alice@example.com", "Secret123456!")

	// A plain USER may not broadcast
	resp := stack.post(t, "/admin/broadcast", token, map[string]string{"content": "not allowed"})
	resp.Body.Close()
	req.Equal(http.StatusForbidden, resp.StatusCode)
}

func Test_WebsocketAuthScenario(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	wsURL := "ws" + strings.TrimPrefix(stack.server.URL, "http") + "/ws?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	req.Error(err)
	if resp != nil {
		defer resp.Body.Close()
		req.Equal(http.StatusUnauthorized, resp.StatusCode)
	}
}

func Test_ReservationScenario(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	stack.register(t, "alice@example.com", "alice", "Secret123456!")
	token := stack.login(t, "alice@example.com", "Secret123456!")

	// Book a viewing
	resp := stack.post(t, "/reservations", token, map[string]string{
		"property_name": "12 Main Street",
		"viewing_date":  time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"notes":         "first visit",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)
	var booked struct {
		ID string `json:"id"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&booked))
	resp.Body.Close()
	req.NotEmpty(booked.ID)

	// It shows up in the listing
	request, err := http.NewRequest(http.MethodGet, stack.server.URL+"/reservations", nil)
	req.NoError(err)
	request.Header.Set("Authorization", "Bearer "+token)
	listResp, err := http.DefaultClient.Do(request)
	req.NoError(err)
	defer listResp.Body.Close()
	req.Equal(http.StatusOK, listResp.StatusCode)

	var listing struct {
		Reservations []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"reservations"`
	}
	req.NoError(json.NewDecoder(listResp.Body).Decode(&listing))
	req.Len(listing.Reservations, 1)
	req.Equal(booked.ID, listing.Reservations[0].ID)
	req.Equal("PENDING", listing.Reservations[0].Status)

	// Cancelling flips the status
	cancelResp := stack.post(t,
		fmt.Sprintf("/reservations/%s/status", booked.ID), token,
		map[string]string{"status": "CANCELLED"})
	defer cancelResp.Body.Close()
	req.Equal(http.StatusOK, cancelResp.StatusCode)
}
