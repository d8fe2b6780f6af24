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
	"regexp"

	"github.com/bcem/staysync/internal/models"
)

// Field keys. They double as raw-data keys on the extracted record.
const (
	fieldReservationID = "reservation_id"
	fieldGuestName     = "guest_name"
	fieldGuestPhone    = "guest_phone"
	fieldGuestEmail    = "guest_email"
	fieldPropertyID    = "property_id"
	fieldPropertyName  = "property_name"
	fieldGuests        = "number_of_guests"
	fieldTotalAmount   = "total_amount"
	fieldCheckIn       = "check_in_date"
	fieldCheckOut      = "check_out_date"
)

// fieldRule is an ordered list of patterns for one field. The first pattern
// whose first capture group is non-empty wins.
type fieldRule struct {
	field    string
	patterns []*regexp.Regexp
}

// platformRules drives extraction for one platform.
type platformRules struct {
	subject     []fieldRule
	subjectStay bool // subject may carry "Mon D - Mon D, YYYY"
	body        []fieldRule
}

// inquiryGuarded lists the fields the body chain must not fill for inquiry
// emails; inquiry templates reuse these labels for unrelated values.
var inquiryGuarded = map[string]bool{
	fieldReservationID: true,
	fieldGuestName:     true,
	fieldGuestEmail:    true,
}

func rule(field string, exprs ...string) fieldRule {
	r := fieldRule{field: field}
	for _, e := range exprs {
		r.patterns = append(r.patterns, regexp.MustCompile(e))
	}
	return r
}

// Body patterns. Labels are case-insensitive; every pattern needs either a
// label separator or a digit in the value, which keeps prose from matching.
var (
	reservationIDBody = rule(fieldReservationID,
		`(?i:reservation\s+(?:id|code|number|#))\s*[:#]?\s*([A-Z0-9]*\d[A-Z0-9\-]*)\b`,
		`(?i:reservation\s+(?:id|code|number))\s*:\s*([A-Z0-9][A-Z0-9\-]{3,})\b`,
		`(?i:confirmation(?:\s+(?:code|number))?)\s*[:#]\s*([A-Z0-9][A-Z0-9\-]{3,})\b`,
		`(?i:booking\s+(?:id|number|reference|ref))\s*[:#]?\s*([A-Z0-9]*\d[A-Z0-9\-]*)\b`,
	)
	guestNameBody = rule(fieldGuestName,
		`(?i:guest\s+name|guest|traveller|traveler)\s*:\s*([A-Z][A-Za-z'\-]+(?:[ \t]+[A-Z][A-Za-z'\-]+){0,3})`,
	)
	guestPhoneBody = rule(fieldGuestPhone,
		`\b(?i:phone|tel(?:ephone)?|mobile)(?:\s+(?i:number))?\s*:?\s*(\+?[\d(][\d\-() .]{6,}\d)`,
	)
	guestEmailBody = rule(fieldGuestEmail,
		`(?i:e-?mail(?:\s+address)?)\s*:?\s*([a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})`,
	)
	propertyIDBody = rule(fieldPropertyID,
		`(?i:property\s+(?:id|number|#)|listing\s+(?:id|#)|unit\s+id)\s*[:#]?\s*([A-Z0-9\-]*\d[A-Z0-9\-]*)\b`,
	)
	propertyNameBody = rule(fieldPropertyName,
		`(?i:property(?:\s+name)?|listing(?:\s+name)?|rental)\s*:\s*([^\n:]{2,100})`,
	)
	guestsBody = rule(fieldGuests,
		`(?i:number\s+of\s+guests|guests|travell?ers)\s*:?\s*(\d{1,2})\b`,
		`\b(\d{1,2})\s+(?i:guests|adults)\b`,
	)
	totalAmountBody = rule(fieldTotalAmount,
		`(?i:total(?:\s+(?:amount|payout|price|paid|cost))?|amount\s+paid|payout)\s*:?\s*((?:[$€£]|USD|EUR|GBP)?\s*\d[\d,]*(?:\.\d{1,2})?(?:\s*(?:USD|EUR|GBP))?)`,
	)
)

var (
	// vrboSubjectStay matches "Jan 10 - Jan 15, 2025" in Vrbo subjects.
	vrboSubjectStay = regexp.MustCompile(`(\w{3,9}\.? \d{1,2}) - (\w{3,9}\.? \d{1,2}), (\d{4})`)
)

// rulesByPlatform selects the extraction tables for each platform.
var rulesByPlatform = map[models.Platform]*platformRules{
	models.PlatformVrbo: {
		subject: []fieldRule{
			rule(fieldReservationID, `(?i)\b(?:vrbo|homeaway)\s*#\s*(\d+)`, `\b(HA-[A-Za-z0-9]{4,})\b`),
			rule(fieldGuestName, `(?i)\b(?:booking|inquiry|reservation)\s+from\s+([^:]+?)\s*:`),
		},
		subjectStay: true,
		body: []fieldRule{
			reservationIDBody, guestNameBody, guestPhoneBody, guestEmailBody,
			propertyIDBody, propertyNameBody, guestsBody, totalAmountBody,
		},
	},
	models.PlatformAirbnb: {
		subject: []fieldRule{
			rule(fieldReservationID, `\bReservation\s+(?:code\s+)?#?([A-Z0-9]{5,})\b`),
			rule(fieldGuestName,
				`(?i)\bfor\s+(.+?)\s+from\b`,
				`(?i)\breservation\s+confirmed\s*-\s*(.+?)\s+arrives\b`,
			),
			rule(fieldPropertyName, `\bat\s+(.+?)(?:\s+[—–-]\s+.*)?$`),
		},
		body: []fieldRule{
			reservationIDBody, guestNameBody, guestPhoneBody, guestEmailBody,
			propertyIDBody, propertyNameBody, guestsBody, totalAmountBody,
		},
	},
	models.PlatformBooking: {
		subject: []fieldRule{
			rule(fieldReservationID,
				`(?i)\bbooking\s+number\s*:?\s*(\d+)`,
				`(?i)\bconfirmation(?:\s+number)?\s*:?\s*(\d{6,})`,
			),
			rule(fieldGuestName, `(?i)\bguest\s*:\s*(.+)$`),
		},
		body: []fieldRule{
			reservationIDBody, guestNameBody, guestPhoneBody, guestEmailBody,
			propertyIDBody, propertyNameBody, guestsBody, totalAmountBody,
		},
	},
	models.PlatformPlumGuide: {
		subject: []fieldRule{
			rule(fieldReservationID, `(?i)\bbooking\s+(?:ref(?:erence)?|#)\s*:?\s*([A-Z0-9][A-Z0-9\-]{3,})\b`),
			rule(fieldGuestName, `(?i:from)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`),
		},
		body: []fieldRule{
			reservationIDBody, guestNameBody, guestPhoneBody, guestEmailBody,
			propertyIDBody, propertyNameBody, guestsBody, totalAmountBody,
		},
	},
}

// Status keywords.
var (
	cancelSubject  = regexp.MustCompile(`(?i)\bcancel(?:l?ed|lation|s)?\b`)
	cancelBody     = regexp.MustCompile(`(?i)\b(?:reservation|booking|stay)\s+(?:has\s+been\s+|was\s+|is\s+)?cancell?ed\b`)
	inquirySubject = regexp.MustCompile(`(?i)\b(?:inquiry|enquiry|question\s+from|request\s+to\s+book|booking\s+request)\b`)
	bookingSubject = regexp.MustCompile(`(?i)\b(?:reservation|booking|booked|confirmed|instant\s+book|new\s+stay)\b`)
)

// Guest-name fallbacks, tried in order once the chain left the name unset.
var guestNameFallbacks = []*regexp.Regexp{
	regexp.MustCompile(`(?i:guest)\s*:\s*([^\n]+)`),
	regexp.MustCompile(`(?i:traveler|traveller)\s*:\s*([^\n]+)`),
	regexp.MustCompile(`\b([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+){0,2})[ \t]+(?i:booker)\b`),
}

// nameNoise marks where a loosely captured name stops being a name.
var nameNoise = regexp.MustCompile(`(?i)\b(?:check[\s-]?in|check[\s-]?out|phone|e-?mail|guests?\b|arrival|departure|reservation|property|total|dates?\b)`)

// Structured-HTML fallbacks.
var (
	propertyIDHref = []*regexp.Regexp{
		regexp.MustCompile(`(?i)/(?:rooms|listings?|propert(?:y|ies)|units?|hotel|homes)/(\d{3,})`),
		regexp.MustCompile(`(?i)[?&](?:property_?id|listing_?id|unit_?id|hotel_?id)=(\d{3,})`),
	}
	headingReject = regexp.MustCompile(`(?i)reservation|booking`)
)
