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
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TestParseDate_SupportedFormats verifies each supported format yields the same calendar date.
func TestParseDate_SupportedFormats(t *testing.T) {
	want := day(2024, time.January, 15)
	inputs := []string{
		"January 15, 2024",
		"15 Jan 2024",
		"01/15/2024",
		"2024-01-15",
		"Jan 15, 2024",
		"15 January 2024",
		"Jan 15th, 2024",
		"Monday, January 15, 2024",
		"Jan. 15, 2024",
		"  January   15, 2024. ",
	}

	for _, in := range inputs {
		got, ok := ParseDate(in)
		if !ok {
			t.Errorf("ParseDate(%q) failed", in)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseDate_Normalisation(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"Sept 5, 2024", day(2024, time.September, 5)},
		{"21st March 2025", day(2025, time.March, 21)},
		{"13/01/2024", day(2024, time.January, 13)},
		{"Sat, Mar 1, 2025", day(2025, time.March, 1)},
	}

	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		if !ok || !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %s, %v; want %s", tt.in, got, ok, tt.want)
		}
	}
}

func TestParseDate_Unparseable(t *testing.T) {
	for _, in := range []string{"", "not a date", "Ocean View", "32/13/2024"} {
		if got, ok := ParseDate(in); ok {
			t.Errorf("ParseDate(%q) = %s, expected failure", in, got)
		}
	}
}

func TestInferStay_ExplicitRange(t *testing.T) {
	ci, co, ok := inferStay("Your stay from January 10, 2025 to January 15, 2025 is confirmed.")
	if !ok {
		t.Fatal("expected a stay")
	}
	if !ci.Equal(day(2025, time.January, 10)) || !co.Equal(day(2025, time.January, 15)) {
		t.Errorf("got %s - %s", ci, co)
	}
}

func TestInferStay_Labelled(t *testing.T) {
	text := "Booking summary\nArrival: 3 March 2025\nGuests: 2\nDeparture: 8 March 2025\n"
	ci, co, ok := inferStay(text)
	if !ok {
		t.Fatal("expected a stay")
	}
	if !ci.Equal(day(2025, time.March, 3)) || !co.Equal(day(2025, time.March, 8)) {
		t.Errorf("got %s - %s", ci, co)
	}
}

// TestInferStay_PositionalSkipsBackwardsPair verifies that a pair whose second
// date is not later is skipped and the search continues.
func TestInferStay_PositionalSkipsBackwardsPair(t *testing.T) {
	text := "Booked on March 5, 2025. Stay: February 1, 2025 March 8, 2025"
	ci, co, ok := inferStay(text)
	if !ok {
		t.Fatal("expected a stay")
	}
	if !ci.Equal(day(2025, time.February, 1)) || !co.Equal(day(2025, time.March, 8)) {
		t.Errorf("got %s - %s", ci, co)
	}
}

func TestInferStay_RejectsInvertedDates(t *testing.T) {
	if ci, co, ok := inferStay("Check-in: January 15, 2025 Check-out: January 10, 2025"); ok {
		t.Errorf("expected no stay, got %s - %s", ci, co)
	}
}

func TestInferStay_AttachesClockTimes(t *testing.T) {
	text := "Check-in: January 10, 2025 after 4:00 PM\nCheck-out: January 15, 2025 by 11:00 AM"
	ci, co, ok := inferStay(text)
	if !ok {
		t.Fatal("expected a stay")
	}
	if want := time.Date(2025, time.January, 10, 16, 0, 0, 0, time.UTC); !ci.Equal(want) {
		t.Errorf("check-in = %s, want %s", ci, want)
	}
	if want := time.Date(2025, time.January, 15, 11, 0, 0, 0, time.UTC); !co.Equal(want) {
		t.Errorf("check-out = %s, want %s", co, want)
	}
}

func TestInferStay_Empty(t *testing.T) {
	if _, _, ok := inferStay("   "); ok {
		t.Error("expected no stay for blank text")
	}
}

func TestLooksLikeDateRange(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Jan 10 - 15", true},
		{"March 3 to March 8", true},
		{"Jan 10, 2025 - Jan 15, 2025", true},
		{"Ocean View", false},
		{"Suite 10 - 12", false},
	}
	for _, tt := range tests {
		if got := looksLikeDateRange(tt.in); got != tt.want {
			t.Errorf("looksLikeDateRange(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
