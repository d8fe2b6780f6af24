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

// Package crew assigns cleaning crews to bookings and schedules the
// resulting cleaning tasks.
package crew

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bcem/staysync/internal/models"
)

// ErrNoCrewAvailable is returned when the roster has no active members.
var ErrNoCrewAvailable = errors.New("crew: no crew available")

// DefaultOpenStatuses are the task statuses that count as a member's load.
var DefaultOpenStatuses = []string{models.TaskStatusPending, models.TaskStatusConfirmed}

// Roster is the read side of crew management.
type Roster interface {
	// ListActiveCrew returns active members in roster order. An empty
	// propertyID lists all active members.
	ListActiveCrew(ctx context.Context, propertyID string) ([]models.CrewMember, error)
	CountOpenTasks(ctx context.Context, crewID string, statuses []string) (int, error)
}

// Assigner picks the least-loaded active crew member.
type Assigner struct {
	roster   Roster
	statuses []string
}

// NewAssigner creates an assigner. A nil statuses slice uses DefaultOpenStatuses.
func NewAssigner(roster Roster, statuses []string) *Assigner {
	if len(statuses) == 0 {
		statuses = DefaultOpenStatuses
	}
	return &Assigner{roster: roster, statuses: statuses}
}

// Pick returns the active member with the fewest open tasks. Crew scoped to
// propertyID are preferred; when there are none the whole roster is used.
// Ties go to the member listed first.
func (a *Assigner) Pick(ctx context.Context, propertyID string) (*models.CrewMember, error) {
	crews, err := a.roster.ListActiveCrew(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list crew for property %q: %w", propertyID, err)
	}
	if len(crews) == 0 && propertyID != "" {
		crews, err = a.roster.ListActiveCrew(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("list crew: %w", err)
		}
	}
	if len(crews) == 0 {
		return nil, ErrNoCrewAvailable
	}

	best := -1
	bestLoad := 0
	for i, c := range crews {
		load, err := a.roster.CountOpenTasks(ctx, c.ID, a.statuses)
		if err != nil {
			slog.Warn("could not count crew tasks, using first crew member",
				"crew_id", c.ID,
				"error", err,
			)
			first := crews[0]
			return &first, nil
		}
		if best < 0 || load < bestLoad {
			best, bestLoad = i, load
		}
	}

	picked := crews[best]
	slog.Debug("crew picked",
		"crew_id", picked.ID,
		"property_id", propertyID,
		"open_tasks", bestLoad,
		"candidates", len(crews),
	)
	return &picked, nil
}
