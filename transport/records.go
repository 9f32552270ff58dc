package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"chat-gateway/auth"
	"chat-gateway/domain"
	gwerrors "chat-gateway/errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type wireUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toWireUser(u domain.User) wireUser {
	return wireUser{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		Phone:     u.Phone,
		Address:   u.Address,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

type wireReservation struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	PropertyName string `json:"property_name"`
	ViewingDate  string `json:"viewing_date"`
	Status       string `json:"status"`
	Notes        string `json:"notes,omitempty"`
}

func toWireReservation(r domain.ViewingReservation) wireReservation {
	return wireReservation{
		ID:           r.ID.String(),
		UserID:       r.UserID.String(),
		PropertyName: r.PropertyName,
		ViewingDate:  r.ViewingDate.Format(time.RFC3339),
		Status:       string(r.Status),
		Notes:        r.Notes,
	}
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, domain.RoleAdmin); !ok {
		return
	}

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}
	users, next, err := s.userService.List(cursor)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"users": lo.Map(users, func(u domain.User, _ int) wireUser {
			return toWireUser(u)
		}),
		"cursor": next,
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	_, id, ok := s.requireSelfOrAdmin(w, r)
	if !ok {
		return
	}

	user, err := s.userService.Get(id)
	if err != nil {
		s.writeRecordError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toWireUser(user))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	_, id, ok := s.requireSelfOrAdmin(w, r)
	if !ok {
		return
	}

	var req struct {
		Name    string `json:"name"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.userService.UpdateProfile(id, req.Name, req.Phone, req.Address)
	if err != nil {
		s.writeRecordError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toWireUser(user))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	_, id, ok := s.requireSelfOrAdmin(w, r)
	if !ok {
		return
	}
	if err := s.userService.Delete(id); err != nil {
		s.writeRecordError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBookReservation(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	var req struct {
		PropertyName string `json:"property_name"`
		ViewingDate  string `json:"viewing_date"`
		Notes        string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	viewingDate, err := time.Parse(time.RFC3339, req.ViewingDate)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "viewing_date must be RFC 3339")
		return
	}
	if req.PropertyName == "" {
		s.writeError(w, http.StatusBadRequest, "property_name is required")
		return
	}

	reservation, err := s.reservationService.Book(userID, req.PropertyName, viewingDate, req.Notes)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, toWireReservation(reservation))
}

func (s *Server) handleListReservations(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}
	reservations, next, err := s.reservationService.ListByUser(userID, cursor)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"reservations": lo.Map(reservations, func(r domain.ViewingReservation, _ int) wireReservation {
			return toWireReservation(r)
		}),
		"cursor": next,
	})
}

func (s *Server) handleReservationStatus(w http.ResponseWriter, r *http.Request) {
	_, reservation, ok := s.requireReservationAccess(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status := domain.ReservationStatus(req.Status)
	switch status {
	case domain.ReservationPending, domain.ReservationConfirmed, domain.ReservationCancelled:
	default:
		s.writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	updated, err := s.reservationService.UpdateStatus(reservation.ID, status)
	if err != nil {
		s.writeRecordError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toWireReservation(updated))
}

func (s *Server) handleDeleteReservation(w http.ResponseWriter, r *http.Request) {
	_, reservation, ok := s.requireReservationAccess(w, r)
	if !ok {
		return
	}
	if err := s.reservationService.Cancel(reservation.ID); err != nil {
		s.writeRecordError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) (*auth.CustomClaims, bool) {
	claims, err := s.claimsFromRequest(r)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "invalid token")
		return nil, false
	}
	return claims, true
}

func (s *Server) requireRole(w http.ResponseWriter, r *http.Request, role domain.Role) (*auth.CustomClaims, bool) {
	claims, ok := s.requireAuth(w, r)
	if !ok {
		return nil, false
	}
	if claims.Role != role {
		s.writeError(w, http.StatusForbidden, "insufficient role")
		return nil, false
	}
	return claims, true
}

// requireSelfOrAdmin authorizes record access to the record owner or an
// ADMIN, resolving the {id} path parameter.
func (s *Server) requireSelfOrAdmin(w http.ResponseWriter, r *http.Request) (*auth.CustomClaims, uuid.UUID, bool) {
	claims, ok := s.requireAuth(w, r)
	if !ok {
		return nil, uuid.Nil, false
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return nil, uuid.Nil, false
	}
	if claims.Role != domain.RoleAdmin && claims.UserID != id.String() {
		s.writeError(w, http.StatusForbidden, "not your record")
		return nil, uuid.Nil, false
	}
	return claims, id, true
}

// requireReservationAccess loads the reservation from the {id} path
// parameter and authorizes the owner or an ADMIN.
func (s *Server) requireReservationAccess(w http.ResponseWriter, r *http.Request) (*auth.CustomClaims, domain.ViewingReservation, bool) {
	claims, ok := s.requireAuth(w, r)
	if !ok {
		return nil, domain.ViewingReservation{}, false
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return nil, domain.ViewingReservation{}, false
	}
	reservation, err := s.reservationService.Get(id)
	if err != nil {
		s.writeRecordError(w, err)
		return nil, domain.ViewingReservation{}, false
	}
	if claims.Role != domain.RoleAdmin && claims.UserID != reservation.UserID.String() {
		s.writeError(w, http.StatusForbidden, "not your record")
		return nil, domain.ViewingReservation{}, false
	}
	return claims, reservation, true
}

func (s *Server) writeRecordError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gwerrors.ErrUserNotFound), errors.Is(err, gwerrors.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, gwerrors.ErrEmailTaken):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
