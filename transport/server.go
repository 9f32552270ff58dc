// Package transport owns the wire: HTTP endpoints for accounts, tokens and
// reservations plus the websocket endpoint feeding the gateway. The
// messaging core never sees framing, JSON or HTTP.
package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chat-gateway/auth"
	"chat-gateway/contract"
	"chat-gateway/domain"
	gwerrors "chat-gateway/errors"
	"chat-gateway/services"

	"github.com/gorilla/websocket"
)

type Server struct {
	log                *slog.Logger
	gateway            contract.IGateway
	authService        services.IAuthService
	userService        services.IUserService
	reservationService services.IReservationService
	tokens             *auth.TokenManager
	upgrader           websocket.Upgrader
	writeTimeout       time.Duration
}

func NewServer(log *slog.Logger, gateway contract.IGateway,
	authService services.IAuthService, userService services.IUserService,
	reservationService services.IReservationService,
	tokens *auth.TokenManager, writeTimeout time.Duration) *Server {
	return &Server{
		log:                log,
		gateway:            gateway,
		authService:        authService,
		userService:        userService,
		reservationService: reservationService,
		tokens:             tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		writeTimeout: writeTimeout,
	}
}

// Routes registers every endpoint on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /users", s.handleListUsers)
	mux.HandleFunc("GET /users/{id}", s.handleGetUser)
	mux.HandleFunc("PATCH /users/{id}", s.handleUpdateUser)
	mux.HandleFunc("DELETE /users/{id}", s.handleDeleteUser)
	mux.HandleFunc("POST /reservations", s.handleBookReservation)
	mux.HandleFunc("GET /reservations", s.handleListReservations)
	mux.HandleFunc("POST /reservations/{id}/status", s.handleReservationStatus)
	mux.HandleFunc("DELETE /reservations/{id}", s.handleDeleteReservation)
	mux.HandleFunc("POST /admin/broadcast", s.handleAdminBroadcast)
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	return mux
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.userService.Register(req)
	if err != nil {
		if errors.Is(err, gwerrors.ErrEmailTaken) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, toWireUser(user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, identity, err := s.authService.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, gwerrors.ErrBadCredentials) {
			s.writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"token": token,
		"name":  identity.Name,
		"role":  string(identity.Role),
	})
}

// handleAdminBroadcast lets an ADMIN push a SYSTEM announcement to the
// public topic without any session context.
func (s *Server) handleAdminBroadcast(w http.ResponseWriter, r *http.Request) {
	claims, err := s.claimsFromRequest(r)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	if claims.Role != domain.RoleAdmin {
		s.writeError(w, http.StatusForbidden, "admin role required")
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.gateway.BroadcastSystem(req.Content); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]bool{"sent": true})
}

// claimsFromRequest resolves the caller from a bearer token or, for the
// websocket path, a token query parameter.
func (s *Server) claimsFromRequest(r *http.Request) (*auth.CustomClaims, error) {
	token := r.URL.Query().Get("token")
	if header := r.Header.Get("Authorization"); token == "" && header != "" {
		token = strings.TrimPrefix(header, "Bearer ")
	}
	return s.tokens.Validate(token)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("writing response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
