package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationCancelled ReservationStatus = "CANCELLED"
)

// ViewingReservation is a property-viewing appointment booked by a user.
type ViewingReservation struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	PropertyName string
	ViewingDate  time.Time
	Status       ReservationStatus
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
