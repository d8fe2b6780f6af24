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

package crew

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bcem/staysync/internal/metrics"
	"github.com/bcem/staysync/internal/models"
	"github.com/bcem/staysync/internal/store"
)

// TaskStore persists cleaning tasks.
type TaskStore interface {
	TaskExists(ctx context.Context, reservationID string) (bool, error)
	CreateTask(ctx context.Context, task models.CleaningTask) (int64, error)
}

// Skip reasons reported by Schedule.
const (
	SkipNotBooking = "not a confirmed booking"
	SkipNoCheckOut = "no check-out date"
	SkipNoProperty = "no property"
	SkipTaskExists = "task already exists"
)

// ScheduleResult describes what Schedule did.
type ScheduleResult struct {
	Task       *models.CleaningTask
	SkipReason string
}

// Created reports whether a task was written.
func (r ScheduleResult) Created() bool { return r.Task != nil }

// Scheduler creates one cleaning task per confirmed booking, on the
// check-out date, assigned to the least-loaded crew member when one exists.
type Scheduler struct {
	tasks    TaskStore
	assigner *Assigner
	now      func() time.Time
}

// NewScheduler creates a scheduler.
func NewScheduler(tasks TaskStore, assigner *Assigner) *Scheduler {
	return &Scheduler{tasks: tasks, assigner: assigner, now: time.Now}
}

// Schedule creates the cleaning task for rec unless it is not needed or
// already exists. An empty roster is not an error: the task is created
// unassigned.
func (s *Scheduler) Schedule(ctx context.Context, rec models.BookingRecord) (ScheduleResult, error) {
	switch {
	case rec.Status != models.StatusBooking:
		return ScheduleResult{SkipReason: SkipNotBooking}, nil
	case rec.CheckOut == nil:
		return ScheduleResult{SkipReason: SkipNoCheckOut}, nil
	case rec.PropertyKey() == "":
		return ScheduleResult{SkipReason: SkipNoProperty}, nil
	}

	exists, err := s.tasks.TaskExists(ctx, rec.ReservationID)
	if err != nil {
		return ScheduleResult{}, fmt.Errorf("check cleaning task for %s: %w", rec.ReservationID, err)
	}
	if exists {
		return ScheduleResult{SkipReason: SkipTaskExists}, nil
	}

	task := models.CleaningTask{
		ReservationID: rec.ReservationID,
		PropertyID:    rec.PropertyKey(),
		ScheduledDate: rec.CheckOut.UTC().Truncate(24 * time.Hour),
		Status:        models.TaskStatusPending,
		CreatedAt:     s.now().UTC(),
	}

	member, err := s.assigner.Pick(ctx, task.PropertyID)
	switch {
	case errors.Is(err, ErrNoCrewAvailable):
		slog.Warn("no crew available, creating unassigned cleaning task",
			"reservation_id", rec.ReservationID,
			"property_id", task.PropertyID,
		)
	case err != nil:
		return ScheduleResult{}, fmt.Errorf("assign crew for %s: %w", rec.ReservationID, err)
	default:
		task.CrewID = member.ID
	}

	id, err := s.tasks.CreateTask(ctx, task)
	if errors.Is(err, store.ErrConflict) {
		return ScheduleResult{SkipReason: SkipTaskExists}, nil
	}
	if err != nil {
		return ScheduleResult{}, fmt.Errorf("create cleaning task for %s: %w", rec.ReservationID, err)
	}
	task.ID = id

	metrics.IncrementCleaningTask(task.CrewID != "")
	slog.Info("cleaning task scheduled",
		"reservation_id", task.ReservationID,
		"property_id", task.PropertyID,
		"date", models.FormatDate(task.ScheduledDate),
		"crew_id", task.CrewID,
	)
	return ScheduleResult{Task: &task}, nil
}
