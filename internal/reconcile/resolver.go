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

// Package reconcile decides whether an extracted booking is new, an update
// to a stored stay, or a colliding reservation, and applies that decision.
//
// Identity is (property id, check-in date, check-out date). The reservation id
// of a matched stored booking is authoritative. A candidate that reuses the
// id of an unrelated stored booking is inserted under a renamed id so the
// existing row is never overwritten.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bcem/staysync/internal/models"
)

// BookingStore is the persistence the resolver and engine depend on.
// Find methods return nil, nil when nothing matches.
type BookingStore interface {
	FindByStay(ctx context.Context, propertyID string, checkIn, checkOut time.Time) (*models.StoredBooking, error)
	FindByReservationID(ctx context.Context, reservationID string) (*models.StoredBooking, error)
	Insert(ctx context.Context, row models.BookingRow) (int64, error)
	Upsert(ctx context.Context, row models.BookingRow) (bool, error)
}

// Action is the outcome of identity resolution.
type Action string

const (
	ActionInsert        Action = "insert"
	ActionUpdate        Action = "update"
	ActionInsertRenamed Action = "insert_renamed"

	// ActionUnchanged leaves the stored booking alone. It applies to
	// records without a stay whose id is already stored.
	ActionUnchanged Action = "unchanged"
)

// maxRenameAttempts bounds the search for an unused renamed id.
const maxRenameAttempts = 5

// Resolution is the resolver's verdict for one record.
type Resolution struct {
	Action Action

	// Record is a copy of the candidate with the reservation id the write
	// must use. The caller's record is never modified.
	Record models.BookingRecord

	// Existing is the stored booking that matched the stay, for ActionUpdate,
	// or the one holding the id, for ActionUnchanged.
	Existing *models.StoredBooking

	// OriginalID is the candidate's reservation id before any rewrite.
	OriginalID string

	// Unmatched is set when the record lacked a property id or either date,
	// so no identity lookup was possible.
	Unmatched bool
}

// Resolver classifies records against the store.
type Resolver struct {
	store  BookingStore
	suffix func() string
}

// NewResolver creates a resolver backed by store.
func NewResolver(store BookingStore) *Resolver {
	return &Resolver{store: store, suffix: randomSuffix}
}

func randomSuffix() string {
	return uuid.NewString()[:8]
}

// Resolve classifies rec. Lookup failures are returned as errors; every
// other outcome is expressed in the Resolution.
func (r *Resolver) Resolve(ctx context.Context, rec models.BookingRecord) (Resolution, error) {
	res := Resolution{
		Action:     ActionInsert,
		Record:     rec.Clone(),
		OriginalID: rec.ReservationID,
	}

	if !rec.HasStay() {
		res.Unmatched = true
		existing, err := r.store.FindByReservationID(ctx, rec.ReservationID)
		if err != nil {
			return Resolution{}, fmt.Errorf("find by reservation id: %w", err)
		}
		if existing != nil {
			res.Action = ActionUnchanged
			res.Existing = existing
		}
		return res, nil
	}

	match, err := r.store.FindByStay(ctx, rec.PropertyID, *rec.CheckIn, *rec.CheckOut)
	if err != nil {
		return Resolution{}, fmt.Errorf("find by stay: %w", err)
	}
	if match != nil {
		res.Action = ActionUpdate
		res.Existing = match
		res.Record.ReservationID = match.ReservationID
		return res, nil
	}

	taken, err := r.idTaken(ctx, rec.ReservationID)
	if err != nil {
		return Resolution{}, err
	}
	if !taken {
		return res, nil
	}

	for i := 0; i < maxRenameAttempts; i++ {
		candidate := rec.ReservationID + "-" + r.suffix()
		taken, err := r.idTaken(ctx, candidate)
		if err != nil {
			return Resolution{}, err
		}
		if taken {
			continue
		}

		slog.Warn("reservation id already used by a different stay, inserting under a new id",
			"original_id", rec.ReservationID,
			"reservation_id", candidate,
			"property_id", rec.PropertyID,
			"check_in", models.FormatDate(*rec.CheckIn),
			"check_out", models.FormatDate(*rec.CheckOut),
		)
		res.Action = ActionInsertRenamed
		res.Record.ReservationID = candidate
		return res, nil
	}
	return Resolution{}, fmt.Errorf("no free reservation id for %s after %d attempts", rec.ReservationID, maxRenameAttempts)
}

func (r *Resolver) idTaken(ctx context.Context, reservationID string) (bool, error) {
	existing, err := r.store.FindByReservationID(ctx, reservationID)
	if err != nil {
		return false, fmt.Errorf("find by reservation id: %w", err)
	}
	return existing != nil, nil
}
