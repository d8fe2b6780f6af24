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

package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/bcem/staysync/internal/models"
)

// ListActiveCrew returns active crew members in roster order (oldest first).
// An empty propertyID lists every active member.
func (s *Store) ListActiveCrew(ctx context.Context, propertyID string) ([]models.CrewMember, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), active,
		       COALESCE(property_id, ''), COALESCE(category, '')
		FROM cleaning_crews
		WHERE active AND ($1::text = '' OR property_id = $1::text)
		ORDER BY created_at, id
	`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var crews []models.CrewMember
	for rows.Next() {
		var c models.CrewMember
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Active, &c.PropertyID, &c.Category); err != nil {
			return nil, err
		}
		crews = append(crews, c)
	}
	return crews, rows.Err()
}

// CountOpenTasks counts the tasks assigned to crewID whose status is one of statuses.
func (s *Store) CountOpenTasks(ctx context.Context, crewID string, statuses []string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM cleaning_tasks WHERE crew_id = $1 AND status = ANY($2)
	`, crewID, statuses).Scan(&n)
	return n, err
}

// TaskExists reports whether a cleaning task was already created for a reservation.
func (s *Store) TaskExists(ctx context.Context, reservationID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM cleaning_tasks WHERE reservation_id = $1)
	`, reservationID).Scan(&exists)
	return exists, err
}

// CreateTask inserts a cleaning task. A task that already exists for the
// reservation returns ErrConflict.
func (s *Store) CreateTask(ctx context.Context, t models.CleaningTask) (int64, error) {
	var crewID *string
	if t.CrewID != "" {
		crewID = &t.CrewID
	}
	status := t.Status
	if status == "" {
		status = models.TaskStatusPending
	}

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO cleaning_tasks (reservation_id, property_id, scheduled_date, crew_id, status)
		VALUES ($1, $2, $3::text::date, $4, $5)
		ON CONFLICT (reservation_id) DO NOTHING
		RETURNING id
	`, t.ReservationID, t.PropertyID, models.FormatDate(t.ScheduledDate), crewID, status).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrConflict
	}
	if err != nil {
		return 0, mapError(err)
	}
	return id, nil
}
