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

import "time"

// EventType names a downstream booking event.
type EventType string

const (
	EventBookingCreated    EventType = "booking.created"
	EventBookingUpdated    EventType = "booking.updated"
	EventCleaningScheduled EventType = "cleaning.scheduled"
)

// BookingEvent is published after a booking or cleaning task is written.
// Notification and calendar workers consume it. Temporal fields use the
// canonical wire layouts.
type BookingEvent struct {
	Type          EventType `json:"type"`
	ReservationID string    `json:"reservation_id"`
	Platform      Platform  `json:"platform"`
	Status        string    `json:"status,omitempty"`
	Action        string    `json:"action,omitempty"`
	GuestName     string    `json:"guest_name,omitempty"`
	GuestPhone    string    `json:"guest_phone,omitempty"`
	GuestEmail    string    `json:"guest_email,omitempty"`
	PropertyID    string    `json:"property_id,omitempty"`
	PropertyName  string    `json:"property_name,omitempty"`
	CheckIn       *string   `json:"check_in_date,omitempty"`
	CheckOut      *string   `json:"check_out_date,omitempty"`
	ScheduledDate string    `json:"scheduled_date,omitempty"`
	CrewID        string    `json:"crew_id,omitempty"`
	EmailID       string    `json:"email_id,omitempty"`
	OccurredAt    string    `json:"occurred_at"`
}

// NewBookingEvent describes a synced booking.
func NewBookingEvent(typ EventType, b BookingRecord, action string, at time.Time) BookingEvent {
	return BookingEvent{
		Type:          typ,
		ReservationID: b.ReservationID,
		Platform:      b.Platform,
		Status:        string(b.Status),
		Action:        action,
		GuestName:     b.GuestName,
		GuestPhone:    b.GuestPhone,
		GuestEmail:    b.GuestEmail,
		PropertyID:    b.PropertyID,
		PropertyName:  b.PropertyName,
		CheckIn:       optionalTime(b.CheckIn),
		CheckOut:      optionalTime(b.CheckOut),
		EmailID:       b.EmailID,
		OccurredAt:    FormatTimestamp(at),
	}
}

// NewCleaningEvent describes a newly scheduled cleaning task.
func NewCleaningEvent(task CleaningTask, platform Platform, at time.Time) BookingEvent {
	return BookingEvent{
		Type:          EventCleaningScheduled,
		ReservationID: task.ReservationID,
		Platform:      platform,
		PropertyID:    task.PropertyID,
		ScheduledDate: FormatDate(task.ScheduledDate),
		CrewID:        task.CrewID,
		OccurredAt:    FormatTimestamp(at),
	}
}
