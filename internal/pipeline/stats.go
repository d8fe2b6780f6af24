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

package pipeline

import (
	"log/slog"
	"time"

	"github.com/bcem/staysync/internal/models"
)

// FailedEmail identifies a message that could not be synced.
type FailedEmail struct {
	EmailID string `json:"email_id"`
	Subject string `json:"subject"`
	Reason  string `json:"reason"`
}

// Stats summarises one processing run.
type Stats struct {
	EmailsProcessed int                     `json:"emails_processed"`
	BookingsParsed  int                     `json:"bookings_parsed"`
	NewBookings     int                     `json:"new_bookings"`
	UpdatedBookings int                     `json:"updated_bookings"`
	RenamedBookings int                     `json:"renamed_bookings"`
	Unchanged       int                     `json:"unchanged"`
	Skipped         int                     `json:"skipped"`
	Errors          int                     `json:"errors"`
	CleaningTasks   int                     `json:"cleaning_tasks"`
	TaskErrors      int                     `json:"task_errors"`
	ByPlatform      map[models.Platform]int `json:"by_platform"`
	FailedEmails    []FailedEmail           `json:"failed_emails,omitempty"`
	SyncErrors      []string                `json:"sync_errors,omitempty"`
	Elapsed         time.Duration           `json:"-"`
}

func newStats() *Stats {
	return &Stats{ByPlatform: make(map[models.Platform]int)}
}

func (s *Stats) fail(msg models.EmailMessage, reason string) {
	s.Errors++
	s.FailedEmails = append(s.FailedEmails, FailedEmail{
		EmailID: msg.ID,
		Subject: msg.Subject,
		Reason:  reason,
	})
}

// Log writes the run summary.
func (s *Stats) Log() {
	attrs := []any{
		"emails_processed", s.EmailsProcessed,
		"bookings_parsed", s.BookingsParsed,
		"new", s.NewBookings,
		"updated", s.UpdatedBookings,
		"renamed", s.RenamedBookings,
		"unchanged", s.Unchanged,
		"skipped", s.Skipped,
		"errors", s.Errors,
		"cleaning_tasks", s.CleaningTasks,
		"elapsed", s.Elapsed,
	}
	for p, n := range s.ByPlatform {
		attrs = append(attrs, "platform_"+p.String(), n)
	}
	slog.Info("processing run complete", attrs...)

	for _, f := range s.FailedEmails {
		slog.Warn("email failed", "email_id", f.EmailID, "subject", f.Subject, "reason", f.Reason)
	}
}
