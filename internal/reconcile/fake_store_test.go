// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/bcem/staysync/internal/models"
	"github.com/bcem/staysync/internal/store"
)

// memStore mimics the Postgres store: unique reservation ids, a unique
// (property, check-in date, check-out date) index and date-only stay lookup.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[string]*models.StoredBooking
	raw    map[string]models.BookingRow

	insertErr   error
	beforeWrite func(m *memStore) error // runs with mu held
	inserts     int
	upserts     int
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]*models.StoredBooking), raw: make(map[string]models.BookingRow)}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (m *memStore) FindByStay(_ context.Context, propertyID string, checkIn, checkOut time.Time) (*models.StoredBooking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findByStayLocked(propertyID, checkIn, checkOut, ""), nil
}

func (m *memStore) findByStayLocked(propertyID string, checkIn, checkOut time.Time, exclude string) *models.StoredBooking {
	for id, b := range m.rows {
		if id == exclude || b.PropertyID != propertyID || b.CheckIn == nil || b.CheckOut == nil {
			continue
		}
		if sameDay(*b.CheckIn, checkIn) && sameDay(*b.CheckOut, checkOut) {
			c := *b
			return &c
		}
	}
	return nil
}

func (m *memStore) FindByReservationID(_ context.Context, reservationID string) (*models.StoredBooking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.rows[reservationID]; ok {
		c := *b
		return &c, nil
	}
	return nil, nil
}

func (m *memStore) Insert(_ context.Context, row models.BookingRow) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.beforeWrite != nil {
		if err := m.beforeWrite(m); err != nil {
			return 0, err
		}
	}
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	b := fromRow(row)
	if _, ok := m.rows[b.ReservationID]; ok {
		return 0, store.ErrConflict
	}
	if b.HasStay() && m.findByStayLocked(b.PropertyID, *b.CheckIn, *b.CheckOut, "") != nil {
		return 0, store.ErrConflict
	}
	m.nextID++
	b.ID = m.nextID
	m.rows[b.ReservationID] = b
	m.raw[b.ReservationID] = row
	return b.ID, nil
}

func (m *memStore) Upsert(_ context.Context, row models.BookingRow) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.beforeWrite != nil {
		if err := m.beforeWrite(m); err != nil {
			return false, err
		}
	}
	b := fromRow(row)
	if b.HasStay() && m.findByStayLocked(b.PropertyID, *b.CheckIn, *b.CheckOut, b.ReservationID) != nil {
		return false, store.ErrConflict
	}
	if existing, ok := m.rows[b.ReservationID]; ok {
		b.ID = existing.ID
		b.CreatedAt = existing.CreatedAt
		m.rows[b.ReservationID] = b
		m.raw[b.ReservationID] = row
		return false, nil
	}
	m.nextID++
	b.ID = m.nextID
	m.rows[b.ReservationID] = b
	m.raw[b.ReservationID] = row
	return true, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memStore) get(id string) *models.StoredBooking {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id]
}

// put stores a booking directly, bypassing constraints.
func (m *memStore) put(rec models.BookingRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(rec)
}

func (m *memStore) putLocked(rec models.BookingRecord) {
	m.nextID++
	m.rows[rec.ReservationID] = &models.StoredBooking{ID: m.nextID, BookingRecord: rec.Clone()}
}

func fromRow(row models.BookingRow) *models.StoredBooking {
	b := &models.StoredBooking{}
	b.ReservationID = row.ReservationID
	b.Platform = models.Platform(row.Platform)
	b.Status = models.BookingStatus(row.Status)
	b.GuestName = row.GuestName
	b.GuestPhone = deref(row.GuestPhone)
	b.GuestEmail = deref(row.GuestEmail)
	b.PropertyID = deref(row.PropertyID)
	b.PropertyName = deref(row.PropertyName)
	b.CheckIn = parseTS(row.CheckInDate)
	b.CheckOut = parseTS(row.CheckOutDate)
	b.NumberOfGuests = row.NumberOfGuests
	b.TotalAmount = row.TotalAmount
	b.Currency = deref(row.Currency)
	b.EmailID = deref(row.EmailID)
	if t := parseTS(&row.CreatedAt); t != nil {
		b.CreatedAt = *t
	}
	if t := parseTS(&row.UpdatedAt); t != nil {
		b.UpdatedAt = *t
	}
	return b
}

func parseTS(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(models.TimestampLayout, *s)
	if err != nil {
		return nil
	}
	return &t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
