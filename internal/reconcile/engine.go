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

package reconcile

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

// DefaultMaxAttempts bounds resolve-and-write attempts when the store keeps
// reporting unique-constraint conflicts from concurrent writers.
const DefaultMaxAttempts = 3

// PersistenceError reports a write the store rejected or failed.
type PersistenceError struct {
	ReservationID string
	Err           error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist booking %s: %v", e.ReservationID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SyncResult is the outcome of syncing one record. Callers branch on Success;
// Err is set only when Success is false.
type SyncResult struct {
	Success       bool
	IsNew         bool
	Action        Action
	ReservationID string
	Record        models.BookingRecord
	Attempts      int
	DryRun        bool
	Err           error
}

// EngineConfig holds the engine's dependencies.
type EngineConfig struct {
	Store       BookingStore
	MaxAttempts int
	DryRun      bool
	Now         func() time.Time
}

// Engine applies resolver decisions to the store.
type Engine struct {
	store       BookingStore
	resolver    *Resolver
	maxAttempts int
	dryRun      bool
	now         func() time.Time
}

// NewEngine creates a sync engine.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		store:       cfg.Store,
		resolver:    NewResolver(cfg.Store),
		maxAttempts: cfg.MaxAttempts,
		dryRun:      cfg.DryRun,
		now:         cfg.Now,
	}
}

// Sync resolves rec and writes it. It never panics or returns an error;
// failures are reported in the result.
//
// A unique-constraint conflict means another writer stored the same stay or
// id between lookup and write. The record is then resolved again, which
// turns it into an update or a renamed insert.
func (e *Engine) Sync(ctx context.Context, rec models.BookingRecord) SyncResult {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		res, err := e.resolver.Resolve(ctx, rec)
		if err != nil {
			return e.failure(rec, attempt, fmt.Errorf("resolve identity: %w", err))
		}

		row, err := models.NewBookingRow(res.Record, e.now())
		if err != nil {
			return e.failure(res.Record, attempt, err)
		}

		result := SyncResult{
			Action:        res.Action,
			ReservationID: res.Record.ReservationID,
			Record:        res.Record,
			Attempts:      attempt,
		}

		if res.Action == ActionUnchanged {
			slog.Info("booking without a stay already stored, leaving it unchanged",
				"reservation_id", result.ReservationID,
				"platform", res.Record.Platform.String(),
				"stored_platform", res.Existing.Platform.String(),
			)
			result.Success = true
			result.DryRun = e.dryRun
			return result
		}

		if e.dryRun {
			result.Success = true
			result.DryRun = true
			result.IsNew = res.Action != ActionUpdate
			return result
		}

		if res.Action == ActionUpdate {
			_, err = e.store.Upsert(ctx, row)
		} else {
			_, err = e.store.Insert(ctx, row)
			result.IsNew = err == nil
		}

		if errors.Is(err, store.ErrConflict) {
			lastErr = err
			metrics.SyncConflicts.Inc()
			slog.Warn("booking write conflicted, resolving again",
				"reservation_id", res.Record.ReservationID,
				"action", string(res.Action),
				"attempt", attempt,
			)
			continue
		}
		if err != nil {
			return e.failure(res.Record, attempt, err)
		}

		result.Success = true
		slog.Info("booking synced",
			"reservation_id", result.ReservationID,
			"platform", res.Record.Platform.String(),
			"action", string(result.Action),
			"is_new", result.IsNew,
		)
		return result
	}
	return e.failure(rec, e.maxAttempts, fmt.Errorf("gave up after %d attempts: %w", e.maxAttempts, lastErr))
}

func (e *Engine) failure(rec models.BookingRecord, attempts int, err error) SyncResult {
	perr := &PersistenceError{ReservationID: rec.ReservationID, Err: err}
	slog.Error("booking sync failed",
		"reservation_id", rec.ReservationID,
		"platform", rec.Platform.String(),
		"error", err,
	)
	return SyncResult{
		ReservationID: rec.ReservationID,
		Record:        rec,
		Attempts:      attempts,
		Err:           perr,
	}
}
