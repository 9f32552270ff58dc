package services

import (
	"log/slog"
	"time"

	"chat-gateway/contract"
	"chat-gateway/domain"

	"github.com/google/uuid"
)

type IReservationService interface {
	Book(userID uuid.UUID, propertyName string, viewingDate time.Time, notes string) (domain.ViewingReservation, error)
	Get(id uuid.UUID) (domain.ViewingReservation, error)
	ListByUser(userID uuid.UUID, cursor *string) ([]domain.ViewingReservation, *string, error)
	UpdateStatus(id uuid.UUID, status domain.ReservationStatus) (domain.ViewingReservation, error)
	Cancel(id uuid.UUID) error
}

type ReservationService struct {
	reservations contract.ReservationStore
	log          *slog.Logger
}

func NewReservationService(log *slog.Logger, reservations contract.ReservationStore) *ReservationService {
	return &ReservationService{reservations: reservations, log: log}
}

// Book creates a PENDING reservation for the given user and property.
func (s *ReservationService) Book(userID uuid.UUID, propertyName string,
	viewingDate time.Time, notes string) (domain.ViewingReservation, error) {
	now := time.Now().UTC()
	reservation := domain.ViewingReservation{
		ID:           uuid.New(),
		UserID:       userID,
		PropertyName: propertyName,
		ViewingDate:  viewingDate.UTC(),
		Status:       domain.ReservationPending,
		Notes:        notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.reservations.Create(reservation); err != nil {
		return domain.ViewingReservation{}, err
	}
	s.log.Info("reservation booked",
		"reservation_id", reservation.ID, "user_id", userID, "property", propertyName)
	return reservation, nil
}

func (s *ReservationService) Get(id uuid.UUID) (domain.ViewingReservation, error) {
	return s.reservations.Get(id)
}

func (s *ReservationService) ListByUser(userID uuid.UUID, cursor *string) ([]domain.ViewingReservation, *string, error) {
	return s.reservations.ListByUser(userID, cursor)
}

func (s *ReservationService) UpdateStatus(id uuid.UUID, status domain.ReservationStatus) (domain.ViewingReservation, error) {
	reservation, err := s.reservations.Get(id)
	if err != nil {
		return domain.ViewingReservation{}, err
	}
	reservation.Status = status
	reservation.UpdatedAt = time.Now().UTC()
	if err := s.reservations.Update(reservation); err != nil {
		return domain.ViewingReservation{}, err
	}
	return reservation, nil
}

func (s *ReservationService) Cancel(id uuid.UUID) error {
	_, err := s.UpdateStatus(id, domain.ReservationCancelled)
	return err
}
