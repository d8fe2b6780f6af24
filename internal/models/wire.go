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

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the canonical ISO-8601 form for date-times on the wire.
// Values are always written in UTC.
const TimestampLayout = "2006-01-02T15:04:05"

// DateLayout is the canonical ISO-8601 form for calendar dates.
const DateLayout = "2006-01-02"

// FormatTimestamp renders t in the canonical date-time format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// FormatDate renders the calendar date of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// SerializeValue converts a loosely typed value into a JSON-compatible one,
// recursing into maps, slices and RawData. time.Time becomes an ISO-8601 string.
func SerializeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return FormatTimestamp(val)
	case *time.Time:
		if val == nil {
			return nil
		}
		return FormatTimestamp(*val)
	case *RawData:
		if val == nil {
			return nil
		}
		out := make(map[string]any, val.Len())
		for _, k := range val.keys {
			out[k] = SerializeValue(val.values[k])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = SerializeValue(inner)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = inner
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = SerializeValue(inner)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = inner
		}
		return out
	case fmt.Stringer:
		return val.String()
	default:
		return val
	}
}

// BookingRow is the write-side representation of a booking: every temporal
// field is already a canonical string and the raw data is encoded JSON.
type BookingRow struct {
	ReservationID  string
	Platform       string
	Status         string
	GuestName      string
	GuestPhone     *string
	GuestEmail     *string
	CheckInDate    *string
	CheckOutDate   *string
	PropertyID     *string
	PropertyName   *string
	NumberOfGuests *int
	TotalAmount    *float64
	Currency       *string
	BookingDate    *string
	EmailID        *string
	RawData        []byte
	CreatedAt      string
	UpdatedAt      string
}

// NewBookingRow serialises a record for persistence. now stamps both audit
// columns; the store decides which of them an update is allowed to touch.
func NewBookingRow(b BookingRecord, now time.Time) (BookingRow, error) {
	raw, err := json.Marshal(b.RawData)
	if err != nil {
		return BookingRow{}, fmt.Errorf("encode raw data: %w", err)
	}

	row := BookingRow{
		ReservationID:  b.ReservationID,
		Platform:       string(b.Platform),
		Status:         string(b.Status),
		GuestName:      b.GuestName,
		GuestPhone:     optionalString(b.GuestPhone),
		GuestEmail:     optionalString(b.GuestEmail),
		CheckInDate:    optionalTime(b.CheckIn),
		CheckOutDate:   optionalTime(b.CheckOut),
		PropertyID:     optionalString(b.PropertyID),
		PropertyName:   optionalString(b.PropertyName),
		NumberOfGuests: b.NumberOfGuests,
		TotalAmount:    b.TotalAmount,
		Currency:       optionalString(b.Currency),
		EmailID:        optionalString(b.EmailID),
		RawData:        raw,
		CreatedAt:      FormatTimestamp(now),
		UpdatedAt:      FormatTimestamp(now),
	}
	if !b.BookingDate.IsZero() {
		row.BookingDate = optionalTime(&b.BookingDate)
	}
	return row, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTimestamp(*t)
	return &s
}
