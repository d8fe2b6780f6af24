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

package extract

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bcem/staysync/internal/classify"
	"github.com/bcem/staysync/internal/models"
)

var received = time.Date(2025, time.January, 2, 9, 30, 0, 0, time.UTC)

func extractOrFail(t *testing.T, msg models.EmailMessage) models.BookingRecord {
	t.Helper()
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = received
	}
	rec, err := New().Extract(msg, classify.Platform(msg.Sender, msg.Subject))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return rec
}

// TestExtract_AirbnbSubjectOnly covers an Airbnb email whose only signal is its subject.
func TestExtract_AirbnbSubjectOnly(t *testing.T) {
	rec := extractOrFail(t, models.EmailMessage{
		ID:      "msg-1",
		Sender:  "noreply@airbnb.com",
		Subject: "Reservation ABC123 at Ocean View — Jan 10 to Jan 15",
	})

	if rec.Platform != models.PlatformAirbnb {
		t.Errorf("platform = %q, want airbnb", rec.Platform)
	}
	if rec.ReservationID != "ABC123" {
		t.Errorf("reservation id = %q, want ABC123", rec.ReservationID)
	}
	if rec.PropertyName != "Ocean View" {
		t.Errorf("property name = %q, want Ocean View", rec.PropertyName)
	}
	if rec.Status != models.StatusBooking {
		t.Errorf("status = %q, want booking", rec.Status)
	}
	if rec.GuestName != models.DefaultGuestName {
		t.Errorf("guest name = %q, want default", rec.GuestName)
	}
	if rec.CheckIn != nil || rec.CheckOut != nil {
		t.Errorf("expected no stay without a year, got %v - %v", rec.CheckIn, rec.CheckOut)
	}
	if rec.EmailID != "msg-1" || !rec.BookingDate.Equal(received) {
		t.Errorf("email id/booking date not carried over: %q %s", rec.EmailID, rec.BookingDate)
	}
}

func TestExtract_UnclassifiedPlatform(t *testing.T) {
	msg := models.EmailMessage{ID: "x", Sender: "friend@example.com", Subject: "Lunch?"}
	_, err := New().Extract(msg, models.PlatformUnknown)
	if !errors.Is(err, ErrUnclassifiedPlatform) {
		t.Fatalf("expected ErrUnclassifiedPlatform, got %v", err)
	}
}

// TestExtract_VrboSubjectStayAcrossNewYear verifies the subject date range and
// year rollover.
func TestExtract_VrboSubjectStayAcrossNewYear(t *testing.T) {
	rec := extractOrFail(t, models.EmailMessage{
		ID:      "msg-2",
		Sender:  "sender@messages.homeaway.com",
		Subject: "Vrbo #123456 Booking from Jane Smith: Dec 28 - Jan 3, 2025",
	})

	if rec.Platform != models.PlatformVrbo {
		t.Fatalf("platform = %q, want vrbo", rec.Platform)
	}
	if rec.ReservationID != "123456" {
		t.Errorf("reservation id = %q", rec.ReservationID)
	}
	if rec.GuestName != "Jane Smith" {
		t.Errorf("guest name = %q", rec.GuestName)
	}
	if rec.CheckIn == nil || rec.CheckOut == nil {
		t.Fatal("expected stay dates")
	}
	if !rec.CheckIn.Equal(day(2024, time.December, 28)) || !rec.CheckOut.Equal(day(2025, time.January, 3)) {
		t.Errorf("stay = %s - %s", rec.CheckIn, rec.CheckOut)
	}
}

// TestExtract_InquiryGuard verifies that Vrbo inquiries ignore confusable body
// labels for id, guest name and email, and get an INQ- id.
func TestExtract_InquiryGuard(t *testing.T) {
	rec := extractOrFail(t, models.EmailMessage{
		ID:       "msg-3",
		Sender:   "noreply@vrbo.com",
		Subject:  "Inquiry from Bob Jones: Mar 3 - Mar 7, 2025",
		TextBody: "Reservation ID: 99887766\nGuest: Someone Else\nEmail: other@example.com\nPhone: +1 555 123 4567\n",
	})

	if rec.Status != models.StatusInquiry {
		t.Errorf("status = %q, want inquiry", rec.Status)
	}
	if rec.ReservationID != "INQ-msg-3" {
		t.Errorf("reservation id = %q, want INQ-msg-3", rec.ReservationID)
	}
	if rec.GuestName != "Bob Jones" {
		t.Errorf("guest name = %q, want Bob Jones", rec.GuestName)
	}
	if rec.GuestEmail != "" {
		t.Errorf("guest email = %q, want empty", rec.GuestEmail)
	}
	if rec.GuestPhone != "+1 555 123 4567" {
		t.Errorf("guest phone = %q", rec.GuestPhone)
	}
}

// TestExtract_InquiryOnOtherPlatform verifies the guard only applies to the
// platform that has an inquiry variant.
func TestExtract_InquiryOnOtherPlatform(t *testing.T) {
	rec := extractOrFail(t, models.EmailMessage{
		ID:       "msg-4",
		Sender:   "automated@airbnb.com",
		Subject:  "Inquiry about Beach House",
		TextBody: "Reservation ID: 5544332211",
	})

	if rec.Status != models.StatusInquiry {
		t.Errorf("status = %q, want inquiry", rec.Status)
	}
	if rec.ReservationID != "5544332211" {
		t.Errorf("reservation id = %q, want 5544332211", rec.ReservationID)
	}
}

const bookingHTML = `<html><head><style>td { color: red; }</style></head><body>
<h1>Harbour Loft</h1>
<table>
<tr><td>Reservation ID</td><td>BK-778899</td></tr>
<tr><td>Guest name</td><td>Maria Lopez</td></tr>
<tr><td>Phone</td><td>+44 (20) 7946-0958</td></tr>
<tr><td>Number of guests</td><td>3</td></tr>
<tr><td>Total price</td><td>€1,250.00</td></tr>
<tr><td>Check-in</td><td>March 3, 2025</td></tr>
<tr><td>Check-out</td><td>March 8, 2025</td></tr>
</table>
<p><a href="https://www.booking.com/hotel/us/harbour.html?hotel_id=445566">View property</a></p>
</body></html>`

// TestExtract_StructuredHTML covers table rows, heading and link fallbacks.
func TestExtract_StructuredHTML(t *testing.T) {
	rec := extractOrFail(t, models.EmailMessage{
		ID:       "msg-5",
		Sender:   "noreply@booking.com",
		Subject:  "New booking",
		HTMLBody: bookingHTML,
	})

	if rec.Platform != models.PlatformBooking {
		t.Fatalf("platform = %q", rec.Platform)
	}
	if rec.ReservationID != "BK-778899" {
		t.Errorf("reservation id = %q", rec.ReservationID)
	}
	if rec.GuestName != "Maria Lopez" {
		t.Errorf("guest name = %q", rec.GuestName)
	}
	if rec.GuestPhone != "+44 (20) 7946-0958" {
		t.Errorf("guest phone = %q", rec.GuestPhone)
	}
	if rec.NumberOfGuests == nil || *rec.NumberOfGuests != 3 {
		t.Errorf("number of guests = %v", rec.NumberOfGuests)
	}
	if rec.TotalAmount == nil || *rec.TotalAmount != 1250 {
		t.Errorf("total amount = %v", rec.TotalAmount)
	}
	if rec.Currency != "EUR" {
		t.Errorf("currency = %q, want EUR", rec.Currency)
	}
	if rec.PropertyName != "Harbour Loft" {
		t.Errorf("property name = %q", rec.PropertyName)
	}
	if rec.PropertyID != "445566" {
		t.Errorf("property id = %q", rec.PropertyID)
	}
	if rec.CheckIn == nil || !rec.CheckIn.Equal(day(2025, time.March, 3)) {
		t.Errorf("check-in = %v", rec.CheckIn)
	}
	if rec.CheckOut == nil || !rec.CheckOut.Equal(day(2025, time.March, 8)) {
		t.Errorf("check-out = %v", rec.CheckOut)
	}
	if _, ok := rec.RawData.Get("html_table"); !ok {
		t.Error("expected table rows in raw data")
	}
}

func TestExtract_HeadingRejectsStatusAndDates(t *testing.T) {
	rec := extractOrFail(t, models.EmailMessage{
		ID:       "msg-6",
		Sender:   "hosts@plumguide.com",
		Subject:  "Booking ref PG-20931 confirmed",
		HTMLBody: "<h1>Your reservation is confirmed</h1><h2>Jan 10 - 15</h2><h2>Cliffside Cottage</h2>",
	})

	if rec.ReservationID != "PG-20931" {
		t.Errorf("reservation id = %q", rec.ReservationID)
	}
	if rec.PropertyName != "Cliffside Cottage" {
		t.Errorf("property name = %q, want Cliffside Cottage", rec.PropertyName)
	}
}

func TestExtract_CleaningPass(t *testing.T) {
	rec := extractOrFail(t, models.EmailMessage{
		ID:      "msg-7",
		Sender:  "noreply@vrbo.com",
		Subject: "Vrbo #445 Booking from Ann Lee: Jan 10 - Jan 15, 2025",
		TextBody: "Property:   Lakeside   Cabin, Jan 10 - 15\n" +
			"Phone: (555) 010.9999\n" +
			"Total: $1,234.50\n" +
			"Guests: 4 adults\n",
	})

	if rec.PropertyName != "Lakeside Cabin" {
		t.Errorf("property name = %q, want Lakeside Cabin", rec.PropertyName)
	}
	if rec.GuestPhone != "(555) 0109999" {
		t.Errorf("guest phone = %q", rec.GuestPhone)
	}
	if rec.TotalAmount == nil || *rec.TotalAmount != 1234.5 {
		t.Errorf("total amount = %v", rec.TotalAmount)
	}
	if rec.Currency != "USD" {
		t.Errorf("currency = %q, want USD", rec.Currency)
	}
	if rec.NumberOfGuests == nil || *rec.NumberOfGuests != 4 {
		t.Errorf("number of guests = %v", rec.NumberOfGuests)
	}
}

func TestExtract_GuestNameFallbacks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"traveler label", "Traveler: john carter Check-in Jan 10", "john carter"},
		{"booker suffix", "Samantha Reed Booker\nWelcome!", "Samantha Reed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := extractOrFail(t, models.EmailMessage{
				ID:       "msg-8",
				Sender:   "noreply@vrbo.com",
				Subject:  "Your reservation",
				TextBody: tt.body,
			})
			if rec.GuestName != tt.want {
				t.Errorf("guest name = %q, want %q", rec.GuestName, tt.want)
			}
		})
	}
}

func TestExtract_Cancellation(t *testing.T) {
	rec := extractOrFail(t, models.EmailMessage{
		ID:       "msg-9",
		Sender:   "automated@airbnb.com",
		Subject:  "Reservation HM4XZ2 update",
		TextBody: "We're writing to let you know your reservation has been cancelled.",
	})
	if rec.Status != models.StatusCancelled {
		t.Errorf("status = %q, want cancelled", rec.Status)
	}
	if rec.ReservationID != "HM4XZ2" {
		t.Errorf("reservation id = %q", rec.ReservationID)
	}
}

// TestExtract_ReservationIDAlwaysSet verifies the fallback ids.
func TestExtract_ReservationIDAlwaysSet(t *testing.T) {
	rec := extractOrFail(t, models.EmailMessage{
		ID:      "raw-42",
		Sender:  "noreply@booking.com",
		Subject: "Message from a guest",
	})
	if rec.ReservationID != "raw-42" {
		t.Errorf("reservation id = %q, want raw-42", rec.ReservationID)
	}

	rec = extractOrFail(t, models.EmailMessage{
		Sender:  "noreply@booking.com",
		Subject: "Message from a guest",
	})
	if strings.TrimSpace(rec.ReservationID) == "" {
		t.Error("reservation id empty for message without id")
	}
	again := extractOrFail(t, models.EmailMessage{
		Sender:  "noreply@booking.com",
		Subject: "Message from a guest",
	})
	if again.ReservationID != rec.ReservationID {
		t.Errorf("fallback id not stable: %q vs %q", rec.ReservationID, again.ReservationID)
	}
}

// TestExtract_StayInvariant verifies check-out is after check-in for every
// record produced from a set of awkward bodies.
func TestExtract_StayInvariant(t *testing.T) {
	bodies := []string{
		"Check-in: January 15, 2025 Check-out: January 10, 2025",
		"From March 9, 2025 to March 2, 2025",
		"Dates: 2025-06-01 2025-05-01 2025-06-04",
		"Arrival 1/5/2025, Departure 1/5/2025",
	}
	for _, body := range bodies {
		rec := extractOrFail(t, models.EmailMessage{
			ID: "msg-10", Sender: "noreply@vrbo.com", Subject: "Reservation", TextBody: body,
		})
		if rec.CheckIn != nil && rec.CheckOut != nil && !rec.CheckOut.After(*rec.CheckIn) {
			t.Errorf("body %q produced inverted stay %s - %s", body, rec.CheckIn, rec.CheckOut)
		}
	}
}
