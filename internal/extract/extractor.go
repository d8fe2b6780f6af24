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

// Package extract turns a classified booking email into a BookingRecord.
//
// Extraction runs in stages: status detection, subject patterns, the
// per-platform body pattern chain, guest-name fallbacks, date-range
// inference over the HTML text, structured HTML (tables, headings, links)
// and a final cleaning pass. A later stage never overwrites a field an
// earlier stage already set. Missing fields stay unset; only an
// unclassified platform is an error.
package extract

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bcem/staysync/internal/models"
)

// ErrUnclassifiedPlatform is returned when the email has no known platform.
var ErrUnclassifiedPlatform = errors.New("extract: unclassified platform")

// Extractor extracts booking records. The zero value is not usable; use New.
type Extractor struct {
	rules map[models.Platform]*platformRules
}

// New returns an Extractor with the built-in platform tables.
func New() *Extractor {
	return &Extractor{rules: rulesByPlatform}
}

// draft accumulates string values with set-once semantics. raw keeps every
// value as first seen, in discovery order, for the audit map.
type draft struct {
	values   map[string]string
	raw      *models.RawData
	checkIn  *time.Time
	checkOut *time.Time
}

func newDraft() *draft {
	return &draft{values: make(map[string]string), raw: models.NewRawData()}
}

func (d *draft) has(field string) bool {
	_, ok := d.values[field]
	return ok
}

func (d *draft) set(field, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" || d.has(field) {
		return false
	}
	d.values[field] = value
	d.raw.Set(field, value)
	return true
}

// setStay records a stay only when none is set yet and check-out is strictly
// after check-in.
func (d *draft) setStay(checkIn, checkOut time.Time) bool {
	if d.checkIn != nil || d.checkOut != nil || !checkOut.After(checkIn) {
		return false
	}
	d.checkIn, d.checkOut = &checkIn, &checkOut
	d.raw.Set(fieldCheckIn, checkIn)
	d.raw.Set(fieldCheckOut, checkOut)
	return true
}

// Extract builds a best-effort record from msg. It fails only with
// ErrUnclassifiedPlatform.
func (e *Extractor) Extract(msg models.EmailMessage, platform models.Platform) (models.BookingRecord, error) {
	rules, ok := e.rules[platform]
	if platform == models.PlatformUnknown || !ok {
		return models.BookingRecord{}, ErrUnclassifiedPlatform
	}

	doc := parseHTML(msg.HTMLBody)
	content := msg.TextBody + "\n" + doc.text
	d := newDraft()

	status := detectStatus(msg.Subject, content)
	inquiry := status == models.StatusInquiry && platform.SupportsInquiry()

	applyRules(d, rules.subject, msg.Subject, nil)
	if rules.subjectStay {
		if ci, co, ok := subjectStay(msg.Subject); ok {
			d.setStay(ci, co)
		}
	}

	var guard map[string]bool
	if inquiry {
		guard = inquiryGuarded
	}
	applyRules(d, rules.body, content, guard)

	if !d.has(fieldGuestName) {
		guestNameFallback(d, content)
	}

	stayText := doc.text
	if strings.TrimSpace(msg.HTMLBody) == "" {
		stayText = msg.TextBody
	}
	if ci, co, ok := inferStay(stayText); ok {
		d.setStay(ci, co)
	}

	structuredHTML(d, doc)

	rec := d.record(platform, status, msg)
	if rec.ReservationID == "" {
		rec.ReservationID = fallbackID(msg, inquiry)
		rec.RawData.Set("reservation_id_source", "fallback")
	}

	slog.Debug("booking extracted",
		"email_id", msg.ID,
		"platform", platform.String(),
		"status", string(rec.Status),
		"reservation_id", rec.ReservationID,
		"fields", rec.RawData.Len(),
	)
	return rec, nil
}

func detectStatus(subject, body string) models.BookingStatus {
	switch {
	case cancelSubject.MatchString(subject), cancelBody.MatchString(body):
		return models.StatusCancelled
	case inquirySubject.MatchString(subject):
		return models.StatusInquiry
	case bookingSubject.MatchString(subject):
		return models.StatusBooking
	default:
		return models.StatusOther
	}
}

func applyRules(d *draft, rules []fieldRule, text string, skip map[string]bool) {
	for _, r := range rules {
		if skip[r.field] || d.has(r.field) {
			continue
		}
		for _, re := range r.patterns {
			if m := re.FindStringSubmatch(text); m != nil && d.set(r.field, m[1]) {
				break
			}
		}
	}
}

// subjectStay parses "Jan 10 - Jan 15, 2025". The year belongs to check-out;
// a stay crossing New Year moves check-in into the previous year.
func subjectStay(subject string) (time.Time, time.Time, bool) {
	m := vrboSubjectStay.FindStringSubmatch(subject)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	ci, ok1 := ParseDate(m[1] + ", " + m[3])
	co, ok2 := ParseDate(m[2] + ", " + m[3])
	if !ok1 || !ok2 {
		return time.Time{}, time.Time{}, false
	}
	if !co.After(ci) {
		ci = ci.AddDate(-1, 0, 0)
	}
	return ci, co, true
}

func guestNameFallback(d *draft, content string) {
	for _, re := range guestNameFallbacks {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			if d.set(fieldGuestName, truncateAtNoise(m[1])) {
				return
			}
		}
	}
}

// structuredHTML reads label/value table rows, then headings and links.
func structuredHTML(d *draft, doc *htmlDoc) {
	var table *models.RawData
	var ci, co time.Time
	for _, row := range doc.rows {
		if len(row) < 2 {
			continue
		}
		key := strings.ToLower(row[0])
		value := row[1]
		if table == nil {
			table = models.NewRawData()
		}
		table.Set(row[0], value)

		switch {
		case strings.Contains(key, "reservation") && strings.Contains(key, "id"),
			strings.Contains(key, "confirmation"):
			d.set(fieldReservationID, value)
		case strings.Contains(key, "guest") && strings.Contains(key, "name"):
			d.set(fieldGuestName, value)
		case strings.Contains(key, "phone"):
			d.set(fieldGuestPhone, value)
		case strings.Contains(key, "email"):
			d.set(fieldGuestEmail, value)
		case strings.Contains(key, "property") && strings.Contains(key, "id"):
			d.set(fieldPropertyID, value)
		case strings.Contains(key, "property"):
			d.set(fieldPropertyName, value)
		case strings.Contains(key, "check") && strings.Contains(key, "in"),
			strings.Contains(key, "arrival"):
			if t, ok := ParseDate(value); ok && ci.IsZero() {
				ci = t
			}
		case strings.Contains(key, "check") && strings.Contains(key, "out"),
			strings.Contains(key, "departure"):
			if t, ok := ParseDate(value); ok && co.IsZero() {
				co = t
			}
		case strings.Contains(key, "guest"):
			d.set(fieldGuests, value)
		case strings.Contains(key, "total"):
			d.set(fieldTotalAmount, value)
		}
	}
	if table != nil {
		d.raw.Set("html_table", table)
	}
	if !ci.IsZero() && !co.IsZero() {
		d.setStay(ci, co)
	}

	if !d.has(fieldPropertyName) {
		for _, h := range doc.headings {
			if len(h) > 100 || headingReject.MatchString(h) || looksLikeDateRange(h) {
				continue
			}
			if d.set(fieldPropertyName, h) {
				break
			}
		}
	}

	if !d.has(fieldPropertyID) {
	hrefs:
		for _, href := range doc.hrefs {
			for _, re := range propertyIDHref {
				if m := re.FindStringSubmatch(href); m != nil && d.set(fieldPropertyID, m[1]) {
					break hrefs
				}
			}
		}
	}
}

// record runs the cleaning pass and assembles the final record.
func (d *draft) record(platform models.Platform, status models.BookingStatus, msg models.EmailMessage) models.BookingRecord {
	rec := models.BookingRecord{
		Platform:      platform,
		Status:        status,
		GuestName:     truncateAtNoise(d.values[fieldGuestName]),
		GuestPhone:    cleanPhone(d.values[fieldGuestPhone]),
		GuestEmail:    collapseSpace(d.values[fieldGuestEmail]),
		ReservationID: cleanReservationID(d.values[fieldReservationID]),
		PropertyID:    cleanReservationID(d.values[fieldPropertyID]),
		PropertyName:  cleanPropertyName(d.values[fieldPropertyName]),
		CheckIn:       d.checkIn,
		CheckOut:      d.checkOut,
		BookingDate:   msg.ReceivedAt,
		EmailID:       msg.ID,
		RawData:       d.raw,
	}
	if rec.GuestName == "" {
		rec.GuestName = models.DefaultGuestName
	}

	if v, ok := d.values[fieldGuests]; ok {
		if n, ok := cleanCount(v); ok {
			rec.NumberOfGuests = &n
		}
	}
	if v, ok := d.values[fieldTotalAmount]; ok {
		if amount, currency, ok := cleanAmount(v); ok {
			rec.TotalAmount = &amount
			if currency == "" {
				currency = defaultCurrency
			}
			rec.Currency = currency
		}
	}
	return rec
}

// fallbackID is used when no reservation id was found in the email.
func fallbackID(msg models.EmailMessage, inquiry bool) string {
	id := msg.ID
	if id == "" {
		seed := msg.Sender + "\x00" + msg.Subject + "\x00" + models.FormatTimestamp(msg.ReceivedAt)
		id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
	}
	if inquiry {
		return "INQ-" + id
	}
	return id
}
