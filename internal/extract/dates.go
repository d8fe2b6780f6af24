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
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order. Month-first numeric dates win over
// day-first ones; "13/01/2024" only parses as day-first.
var dateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"2 January, 2006",
	"2 Jan, 2006",
	"1/2/2006",
	"2/1/2006",
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

var (
	weekdayPrefix  = regexp.MustCompile(`(?i)^(?:mon|tue|wed|thu|fri|sat|sun)[a-z]*\.?,?\s+`)
	ordinalSuffix  = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)\b`)
	septAbbrev     = regexp.MustCompile(`(?i)\bsept\b`)
	abbrevPeriod   = regexp.MustCompile(`([A-Za-z]{3,})\.`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// ParseDate parses the date formats seen in platform emails. The second
// return value is false when no format matched; callers treat that as absent.
func ParseDate(s string) (time.Time, bool) {
	s = normalizeDate(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func normalizeDate(s string) string {
	s = whitespaceRuns.ReplaceAllString(strings.TrimSpace(s), " ")
	s = weekdayPrefix.ReplaceAllString(s, "")
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	s = septAbbrev.ReplaceAllString(s, "Sep")
	s = abbrevPeriod.ReplaceAllString(s, "$1")
	return strings.TrimRight(s, ".,; ")
}

const monthExpr = `(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*`

// dateExpr matches a single date-looking substring in any supported shape,
// with an optional leading weekday.
const dateExpr = `(?:(?:mon|tue|wed|thu|fri|sat|sun)[a-z]*\.?,?\s+)?` +
	`(?:` + monthExpr + `\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}` +
	`|\d{1,2}(?:st|nd|rd|th)?\s+` + monthExpr + `\.?,?\s+\d{4}` +
	`|\d{1,2}/\d{1,2}/\d{4}` +
	`|\d{4}-\d{2}-\d{2})`

var (
	anyDate       = regexp.MustCompile(`(?i)` + dateExpr)
	explicitRange = regexp.MustCompile(`(?i)\b(?:from|between)\s+(` + dateExpr + `)\s*(?:to|and|until|through|-|–|—)\s*(` + dateExpr + `)`)
	checkInLabel  = regexp.MustCompile(`(?i)\b(?:check[\s-]?in|arrival)(?:\s+date)?\s*[:\-–]?\s*(` + dateExpr + `)`)
	checkOutLabel = regexp.MustCompile(`(?i)\b(?:check[\s-]?out|departure)(?:\s+date)?\s*[:\-–]?\s*(` + dateExpr + `)`)
	clockTime     = regexp.MustCompile(`(?i)\b([01]?\d|2[0-3]):([0-5]\d)(?:\s*([ap])\.?m\b\.?)?`)

	// shortRange catches "Jan 10 - 15" or "Jan 10 to Jan 15" without years.
	shortRange = regexp.MustCompile(`(?i)\b` + monthExpr + `\.?\s+\d{1,2}(?:st|nd|rd|th)?\s*(?:-|–|—|to)\s*(?:` + monthExpr + `\.?\s+)?\d{1,2}\b`)
)

// inferStay finds a check-in/check-out pair in plain text. It tries an
// explicit "from X to Y" phrase, then labelled check-in/check-out dates, then
// the first adjacent pair of dates in document order. Every candidate pair
// must have check-out strictly after check-in; a violating pair is skipped.
func inferStay(text string) (checkIn, checkOut time.Time, ok bool) {
	if strings.TrimSpace(text) == "" {
		return time.Time{}, time.Time{}, false
	}

	checkIn, checkOut, ok = explicitStay(text)
	if !ok {
		checkIn, checkOut, ok = labelledStay(text)
	}
	if !ok {
		checkIn, checkOut, ok = positionalStay(text)
	}
	if !ok {
		return time.Time{}, time.Time{}, false
	}

	if times := clockTimes(text); len(times) >= 2 {
		ci := withClock(checkIn, times[0])
		co := withClock(checkOut, times[1])
		if co.After(ci) {
			checkIn, checkOut = ci, co
		}
	}
	return checkIn, checkOut, true
}

func explicitStay(text string) (time.Time, time.Time, bool) {
	for _, m := range explicitRange.FindAllStringSubmatch(text, -1) {
		ci, ok1 := ParseDate(m[1])
		co, ok2 := ParseDate(m[2])
		if ok1 && ok2 && co.After(ci) {
			return ci, co, true
		}
	}
	return time.Time{}, time.Time{}, false
}

func labelledStay(text string) (time.Time, time.Time, bool) {
	ci, ok1 := firstParsed(checkInLabel, text)
	co, ok2 := firstParsed(checkOutLabel, text)
	if ok1 && ok2 && co.After(ci) {
		return ci, co, true
	}
	return time.Time{}, time.Time{}, false
}

func firstParsed(re *regexp.Regexp, text string) (time.Time, bool) {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if t, ok := ParseDate(m[1]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func positionalStay(text string) (time.Time, time.Time, bool) {
	var dates []time.Time
	for _, m := range anyDate.FindAllString(text, -1) {
		if t, ok := ParseDate(m); ok {
			dates = append(dates, t)
		}
	}
	for i := 0; i+1 < len(dates); i++ {
		if dates[i+1].After(dates[i]) {
			return dates[i], dates[i+1], true
		}
	}
	return time.Time{}, time.Time{}, false
}

type clock struct{ hour, minute int }

func clockTimes(text string) []clock {
	var out []clock
	for _, m := range clockTime.FindAllStringSubmatch(text, -1) {
		h, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		switch strings.ToLower(m[3]) {
		case "p":
			if h < 12 {
				h += 12
			}
		case "a":
			if h == 12 {
				h = 0
			}
		}
		out = append(out, clock{hour: h, minute: minute})
	}
	return out
}

func withClock(day time.Time, c clock) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.hour, c.minute, 0, 0, day.Location())
}

// looksLikeDateRange reports whether s reads as a stay range rather than a name.
func looksLikeDateRange(s string) bool {
	if len(anyDate.FindAllString(s, 2)) >= 2 {
		return true
	}
	return shortRange.MatchString(s)
}
