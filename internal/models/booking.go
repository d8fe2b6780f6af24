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
	"fmt"
	"time"
)

// BookingStatus is the email type derived during extraction.
type BookingStatus string

const (
	StatusBooking   BookingStatus = "booking"
	StatusInquiry   BookingStatus = "inquiry"
	StatusCancelled BookingStatus = "cancelled"
	StatusOther     BookingStatus = "other"
)

// DefaultGuestName is used when no guest name could be extracted.
const DefaultGuestName = "Unknown Guest"

// BookingRecord is the structured result of extracting one email.
// A record is never mutated once returned by the extractor; stages that need
// to change it (identity resolution) work on a copy.
type BookingRecord struct {
	ReservationID  string        `json:"reservation_id"`
	Platform       Platform      `json:"platform"`
	Status         BookingStatus `json:"status"`
	GuestName      string        `json:"guest_name"`
	GuestPhone     string        `json:"guest_phone,omitempty"`
	GuestEmail     string        `json:"guest_email,omitempty"`
	CheckIn        *time.Time    `json:"check_in_date,omitempty"`
	CheckOut       *time.Time    `json:"check_out_date,omitempty"`
	PropertyID     string        `json:"property_id,omitempty"`
	PropertyName   string        `json:"property_name,omitempty"`
	NumberOfGuests *int          `json:"number_of_guests,omitempty"`
	TotalAmount    *float64      `json:"total_amount,omitempty"`
	Currency       string        `json:"currency,omitempty"`
	BookingDate    time.Time     `json:"booking_date"`
	EmailID        string        `json:"email_id"`
	RawData        *RawData      `json:"raw_data"`
}

// HasStay reports whether the record carries enough signal for identity
// matching: a property id and both stay dates.
func (b *BookingRecord) HasStay() bool {
	return b.PropertyID != "" && b.CheckIn != nil && b.CheckOut != nil
}

// PropertyKey returns the identifier used to scope crews and cleaning tasks.
// It falls back to the property name when no id was extracted.
func (b *BookingRecord) PropertyKey() string {
	if b.PropertyID != "" {
		return b.PropertyID
	}
	return b.PropertyName
}

// Clone returns a deep copy of the record.
func (b BookingRecord) Clone() BookingRecord {
	c := b
	if b.CheckIn != nil {
		t := *b.CheckIn
		c.CheckIn = &t
	}
	if b.CheckOut != nil {
		t := *b.CheckOut
		c.CheckOut = &t
	}
	if b.NumberOfGuests != nil {
		n := *b.NumberOfGuests
		c.NumberOfGuests = &n
	}
	if b.TotalAmount != nil {
		a := *b.TotalAmount
		c.TotalAmount = &a
	}
	c.RawData = b.RawData.Clone()
	return c
}

func (b BookingRecord) String() string {
	return fmt.Sprintf("Booking(reservation_id=%q, platform=%q, guest=%q, check_in=%s, check_out=%s)",
		b.ReservationID, b.Platform, b.GuestName, formatOptional(b.CheckIn), formatOptional(b.CheckOut))
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return "none"
	}
	return FormatTimestamp(*t)
}

// StoredBooking is a booking row as persisted by the sync engine.
type StoredBooking struct {
	ID int64
	BookingRecord
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Cleaning task statuses counted as outstanding load for a crew member.
const (
	TaskStatusPending   = "pending"
	TaskStatusConfirmed = "confirmed"
	TaskStatusDone      = "done"
)

// CleaningTask links a booking to a property clean on a given date.
type CleaningTask struct {
	ID            int64     `json:"id"`
	ReservationID string    `json:"reservation_id"`
	PropertyID    string    `json:"property_id"`
	ScheduledDate time.Time `json:"scheduled_date"`
	CrewID        string    `json:"crew_id,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// CrewMember is a cleaner on the roster. Owned by roster management; read-only here.
type CrewMember struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Active     bool   `json:"active"`
	PropertyID string `json:"property_id,omitempty"`
	Category   string `json:"category,omitempty"`
}
