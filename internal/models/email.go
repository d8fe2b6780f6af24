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

// Package models defines the data structures shared across the booking sync service.
package models

import (
	"strings"
	"time"
)

// Platform is the vacation-rental service that issued a booking email.
type Platform string

const (
	PlatformUnknown   Platform = ""
	PlatformVrbo      Platform = "vrbo"
	PlatformAirbnb    Platform = "airbnb"
	PlatformBooking   Platform = "booking"
	PlatformPlumGuide Platform = "plumguide"
)

// Platforms lists every supported platform in classification order.
var Platforms = []Platform{PlatformVrbo, PlatformAirbnb, PlatformBooking, PlatformPlumGuide}

// ParsePlatform maps a case-insensitive name to a Platform.
// Unrecognised names return PlatformUnknown.
func ParsePlatform(s string) Platform {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Platforms {
		if p == known {
			return p
		}
	}
	return PlatformUnknown
}

// SupportsInquiry reports whether the platform sends pre-booking inquiry
// emails whose templates are handled separately from confirmations.
func (p Platform) SupportsInquiry() bool {
	return p == PlatformVrbo
}

// String returns the platform name, or "unknown" when unclassified.
func (p Platform) String() string {
	if p == PlatformUnknown {
		return "unknown"
	}
	return string(p)
}

// EmailMessage is a raw email as supplied by a mailbox source. It is never
// mutated after construction; the classifier result travels separately.
type EmailMessage struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	Sender     string    `json:"sender"`
	ReceivedAt time.Time `json:"received_at"`
	TextBody   string    `json:"text_body"`
	HTMLBody   string    `json:"html_body"`
	Folder     string    `json:"folder,omitempty"`
}
