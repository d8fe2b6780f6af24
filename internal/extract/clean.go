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
)

var (
	phoneJunk    = regexp.MustCompile(`[^\d+\-() ]`)
	amountJunk   = regexp.MustCompile(`[^\d.]`)
	nonDigits    = regexp.MustCompile(`\D`)
	currencyCode = regexp.MustCompile(`\b(USD|EUR|GBP|CAD|AUD|NZD|CHF)\b`)
)

// defaultCurrency applies when an amount was found without a currency marker.
const defaultCurrency = "USD"

var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"€", "EUR"},
	{"£", "GBP"},
	{"$", "USD"},
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cleanPhone(s string) string {
	return collapseSpace(phoneJunk.ReplaceAllString(s, ""))
}

// cleanAmount parses a money value such as "$1,234.50" and reports the
// currency it carried, if any.
func cleanAmount(s string) (amount float64, currency string, ok bool) {
	digits := amountJunk.ReplaceAllString(s, "")
	digits = strings.Trim(digits, ".")
	if digits == "" {
		return 0, "", false
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, "", false
	}
	return v, currencyOf(s), true
}

func currencyOf(s string) string {
	if m := currencyCode.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	for _, c := range currencySymbols {
		if strings.Contains(s, c.symbol) {
			return c.code
		}
	}
	return ""
}

func cleanCount(s string) (int, bool) {
	digits := nonDigits.ReplaceAllString(s, "")
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// cleanPropertyName drops a trailing ", Jan 10 - 15" style segment.
func cleanPropertyName(s string) string {
	s = collapseSpace(s)
	if i := strings.LastIndexByte(s, ','); i > 0 && looksLikeDateRange(s[i+1:]) {
		s = strings.TrimSpace(s[:i])
	}
	return strings.TrimRight(s, " .,;-")
}

func cleanReservationID(s string) string {
	return strings.Trim(collapseSpace(s), " .,;:#")
}

// truncateAtNoise cuts a loosely captured name at the first label-like word.
func truncateAtNoise(s string) string {
	if loc := nameNoise.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	return strings.Trim(collapseSpace(s), " .,;:-|")
}
