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

// Package classify attributes an email to a vacation-rental platform using
// the sender domain first and subject keywords as a fallback.
package classify

import (
	"net/mail"
	"strings"

	"github.com/bcem/staysync/internal/models"
)

// domainPlatforms maps sender domains to platforms. Subdomains match too
// (e.g. "automated@messages.airbnb.com").
var domainPlatforms = map[string]models.Platform{
	"vrbo.com":        models.PlatformVrbo,
	"homeaway.com":    models.PlatformVrbo,
	"airbnb.com":      models.PlatformAirbnb,
	"airbnb.co.uk":    models.PlatformAirbnb,
	"booking.com":     models.PlatformBooking,
	"booking.co.uk":   models.PlatformBooking,
	"plumguide.com":   models.PlatformPlumGuide,
	"plumguide.co.uk": models.PlatformPlumGuide,
}

// subjectKeywords is checked in order; the first keyword found wins.
var subjectKeywords = []struct {
	keyword  string
	platform models.Platform
}{
	{"vrbo", models.PlatformVrbo},
	{"homeaway", models.PlatformVrbo},
	{"airbnb", models.PlatformAirbnb},
	{"booking.com", models.PlatformBooking},
	{"plumguide", models.PlatformPlumGuide},
	{"plum guide", models.PlatformPlumGuide},
}

// Platform returns the platform for a sender and subject, or
// models.PlatformUnknown when neither identifies one.
func Platform(sender, subject string) models.Platform {
	if p := byDomain(sender); p != models.PlatformUnknown {
		return p
	}

	subj := strings.ToLower(subject)
	for _, k := range subjectKeywords {
		if strings.Contains(subj, k.keyword) {
			return k.platform
		}
	}
	return models.PlatformUnknown
}

// byDomain walks the sender's domain from most to least specific so that
// "reply.airbnb.com" resolves through "airbnb.com".
func byDomain(sender string) models.Platform {
	domain := senderDomain(sender)
	for domain != "" {
		if p, ok := domainPlatforms[domain]; ok {
			return p
		}
		dot := strings.IndexByte(domain, '.')
		if dot < 0 {
			break
		}
		domain = domain[dot+1:]
	}
	return models.PlatformUnknown
}

// senderDomain extracts the lower-cased domain from an address that may carry
// a display name ("Airbnb <automated@airbnb.com>").
func senderDomain(sender string) string {
	addr := strings.TrimSpace(sender)
	if parsed, err := mail.ParseAddress(addr); err == nil {
		addr = parsed.Address
	} else if lt := strings.LastIndexByte(addr, '<'); lt >= 0 {
		addr = strings.TrimSuffix(addr[lt+1:], ">")
	}

	at := strings.LastIndexByte(addr, '@')
	if at < 0 {
		return ""
	}
	return strings.ToLower(strings.Trim(addr[at+1:], " >."))
}
