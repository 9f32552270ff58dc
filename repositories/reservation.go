package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"chat-gateway/domain"
	"chat-gateway/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	resaPrefix    = "resa:"
	resaIdxPrefix = "idx:resa:"
)

// ReservationRepository persists viewing reservations in BadgerDB.
// The record key is "resa:{user_id}:{viewing_date_padded}:{id}" so that a
// prefix scan per user comes back in chronological order; the 19-digit zero
// padding keeps lexicographic and time order aligned, and the trailing UUID
// disambiguates two reservations at the same nanosecond. A secondary index
// "idx:resa:{id}" maps the reservation id to its full record key.
type ReservationRepository struct {
	db       *badger.DB
	log      *slog.Logger
	pageSize *int
}

func NewReservationRepository(db *badger.DB, log *slog.Logger, pageSize *int) ReservationRepository {
	return ReservationRepository{db: db, log: log, pageSize: pageSize}
}

type diskReservation struct {
	ID           uuid.UUID                `json:"id"`
	UserID       uuid.UUID                `json:"user_id"`
	PropertyName string                   `json:"property_name"`
	ViewingDate  time.Time                `json:"viewing_date"`
	Status       domain.ReservationStatus `json:"status"`
	Notes        string                   `json:"notes,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

func reservationKey(r domain.ViewingReservation) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s",
		resaPrefix, r.UserID, r.ViewingDate.UnixNano(), r.ID))
}

func reservationIdxKey(id uuid.UUID) []byte {
	return []byte(resaIdxPrefix + id.String())
}

func (r ReservationRepository) Create(reservation domain.ViewingReservation) error {
	value, err := json.Marshal(fromReservation(reservation))
	if err != nil {
		return err
	}
	key := reservationKey(reservation)
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, value); err != nil {
			return err
		}
		return txn.Set(reservationIdxKey(reservation.ID), key)
	})
}

func (r ReservationRepository) Get(id uuid.UUID) (domain.ViewingReservation, error) {
	var reservation domain.ViewingReservation
	err := r.db.View(func(txn *badger.Txn) error {
		found, err := getReservation(txn, id)
		if err != nil {
			return err
		}
		reservation = found
		return nil
	})
	return reservation, err
}

// Update rewrites the record. A changed viewing date moves the record to a
// new chronological key and repoints the index.
func (r ReservationRepository) Update(reservation domain.ViewingReservation) error {
	value, err := json.Marshal(fromReservation(reservation))
	if err != nil {
		return err
	}
	newKey := reservationKey(reservation)
	return r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(reservationIdxKey(reservation.ID))
		if err == badger.ErrKeyNotFound {
			return errors.ErrNotFound
		}
		if err != nil {
			return err
		}
		var oldKey []byte
		if err := item.Value(func(key []byte) error {
			oldKey = append([]byte(nil), key...)
			return nil
		}); err != nil {
			return err
		}
		if string(oldKey) != string(newKey) {
			if err := txn.Delete(oldKey); err != nil {
				return err
			}
			if err := txn.Set(reservationIdxKey(reservation.ID), newKey); err != nil {
				return err
			}
		}
		return txn.Set(newKey, value)
	})
}

func (r ReservationRepository) Delete(id uuid.UUID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(reservationIdxKey(id))
		if err == badger.ErrKeyNotFound {
			return errors.ErrNotFound
		}
		if err != nil {
			return err
		}
		var key []byte
		if err := item.Value(func(k []byte) error {
			key = append([]byte(nil), k...)
			return nil
		}); err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete(reservationIdxKey(id))
	})
}

// ListByUser pages through one user's reservations in viewing-date order.
func (r ReservationRepository) ListByUser(userID uuid.UUID, cursor *string) ([]domain.ViewingReservation, *string, error) {
	var reservations []domain.ViewingReservation
	var lastKey string
	prefixStr := resaPrefix + userID.String() + ":"
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixStr)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		seekKey := prefix
		if cursor != nil {
			seekKey = append([]byte(prefixStr), []byte(*cursor)...)
		}
		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if r.pageSize != nil && len(reservations) == *r.pageSize {
				r.log.Debug(fmt.Sprintf("Maximum of %d reservations reached", *r.pageSize))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			err := item.Value(func(value []byte) error {
				var d diskReservation
				if err := json.Unmarshal(value, &d); err != nil {
					return err
				}
				reservations = append(reservations, toReservation(d))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if lastKey == "" {
		return reservations, nil, nil
	}
	return reservations, lo.ToPtr(lastKey), nil
}

func getReservation(txn *badger.Txn, id uuid.UUID) (domain.ViewingReservation, error) {
	item, err := txn.Get(reservationIdxKey(id))
	if err == badger.ErrKeyNotFound {
		return domain.ViewingReservation{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.ViewingReservation{}, err
	}
	var d diskReservation
	if err := item.Value(func(key []byte) error {
		record, err := txn.Get(key)
		if err != nil {
			return err
		}
		return record.Value(func(value []byte) error {
			return json.Unmarshal(value, &d)
		})
	}); err != nil {
		return domain.ViewingReservation{}, err
	}
	return toReservation(d), nil
}

func fromReservation(r domain.ViewingReservation) diskReservation {
	return diskReservation{
		ID:           r.ID,
		UserID:       r.UserID,
		PropertyName: r.PropertyName,
		ViewingDate:  r.ViewingDate,
		Status:       r.Status,
		Notes:        r.Notes,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toReservation(d diskReservation) domain.ViewingReservation {
	return domain.ViewingReservation{
		ID:           d.ID,
		UserID:       d.UserID,
		PropertyName: d.PropertyName,
		ViewingDate:  d.ViewingDate,
		Status:       d.Status,
		Notes:        d.Notes,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}
