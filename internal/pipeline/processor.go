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

// Package pipeline runs mailbox messages through classification, extraction,
// identity resolution and crew scheduling, one message at a time.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/bcem/staysync/internal/classify"
	"github.com/bcem/staysync/internal/crew"
	"github.com/bcem/staysync/internal/extract"
	"github.com/bcem/staysync/internal/metrics"
	"github.com/bcem/staysync/internal/models"
	"github.com/bcem/staysync/internal/reconcile"
)

// Source lists mailbox messages.
type Source interface {
	ListSince(ctx context.Context, since time.Time, limit int) ([]models.EmailMessage, error)
}

// Syncer persists extracted records.
type Syncer interface {
	Sync(ctx context.Context, rec models.BookingRecord) reconcile.SyncResult
}

// TaskScheduler creates cleaning tasks for synced bookings.
type TaskScheduler interface {
	Schedule(ctx context.Context, rec models.BookingRecord) (crew.ScheduleResult, error)
}

// Deduper remembers processed message ids across runs.
type Deduper interface {
	IsNew(ctx context.Context, messageID string) (bool, error)
	Forget(ctx context.Context, messageID string) error
}

// Publisher emits downstream booking events.
type Publisher interface {
	Publish(ctx context.Context, event models.BookingEvent) error
}

// Options scope one processing run.
type Options struct {
	Since     time.Time
	Limit     int
	Platform  models.Platform // PlatformUnknown processes every platform
	DryRun    bool            // no dedup marks, tasks or events
	Reprocess bool            // ignore the dedup filter
}

// Config holds the processor's dependencies. Scheduler, Dedup and
// Publisher are optional.
type Config struct {
	Extractor *extract.Extractor
	Syncer    Syncer
	Scheduler TaskScheduler
	Dedup     Deduper
	Publisher Publisher
	Now       func() time.Time
}

// Processor runs the booking pipeline.
type Processor struct {
	extractor *extract.Extractor
	syncer    Syncer
	scheduler TaskScheduler
	dedup     Deduper
	publisher Publisher
	now       func() time.Time
}

// NewProcessor creates a processor.
func NewProcessor(cfg Config) *Processor {
	if cfg.Extractor == nil {
		cfg.Extractor = extract.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Processor{
		extractor: cfg.Extractor,
		syncer:    cfg.Syncer,
		scheduler: cfg.Scheduler,
		dedup:     cfg.Dedup,
		publisher: cfg.Publisher,
		now:       cfg.Now,
	}
}

// Run lists messages from src and processes them. Only a listing failure
// is returned as an error; per-message failures are recorded in Stats.
func (p *Processor) Run(ctx context.Context, src Source, opts Options) (*Stats, error) {
	msgs, err := src.ListSince(ctx, opts.Since, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return p.Process(ctx, msgs, opts), nil
}

// Process handles msgs oldest first so a later change to a reservation is
// applied after the original confirmation.
func (p *Processor) Process(ctx context.Context, msgs []models.EmailMessage, opts Options) *Stats {
	start := p.now()
	stats := newStats()

	ordered := make([]models.EmailMessage, len(msgs))
	copy(ordered, msgs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ReceivedAt.Before(ordered[j].ReceivedAt)
	})

	for i, msg := range ordered {
		if ctx.Err() != nil {
			slog.Warn("processing interrupted", "remaining", len(ordered)-i)
			break
		}
		if opts.Limit > 0 && stats.EmailsProcessed >= opts.Limit {
			break
		}
		p.processOne(ctx, msg, opts, stats)
	}

	stats.Elapsed = p.now().Sub(start)
	metrics.ObserveRun(stats.Elapsed)
	return stats
}

func (p *Processor) processOne(ctx context.Context, msg models.EmailMessage, opts Options, stats *Stats) {
	platform := classify.Platform(msg.Sender, msg.Subject)
	if platform == models.PlatformUnknown {
		stats.Skipped++
		metrics.IncrementEmail(platform.String(), "unclassified")
		slog.Debug("skipping unclassified email", "email_id", msg.ID, "sender", msg.Sender)
		return
	}
	if opts.Platform != models.PlatformUnknown && platform != opts.Platform {
		stats.Skipped++
		return
	}

	marked := false
	if p.dedup != nil && !opts.Reprocess && !opts.DryRun {
		isNew, err := p.dedup.IsNew(ctx, msg.ID)
		switch {
		case err != nil:
			slog.Warn("dedup check failed, processing anyway", "email_id", msg.ID, "error", err)
		case !isNew:
			stats.Skipped++
			metrics.IncrementEmail(platform.String(), "duplicate")
			return
		default:
			marked = true
		}
	}

	stats.EmailsProcessed++

	rec, err := p.extractor.Extract(msg, platform)
	if err != nil {
		stats.fail(msg, err.Error())
		metrics.IncrementEmail(platform.String(), "failed")
		p.forget(ctx, msg.ID, marked)
		return
	}
	stats.BookingsParsed++
	stats.ByPlatform[platform]++
	metrics.IncrementEmail(platform.String(), "parsed")

	slog.Info("booking extracted",
		"email_id", msg.ID,
		"platform", platform.String(),
		"reservation_id", rec.ReservationID,
		"status", string(rec.Status),
	)

	res := p.syncer.Sync(ctx, rec)
	if !res.Success {
		stats.fail(msg, res.Err.Error())
		stats.SyncErrors = append(stats.SyncErrors, fmt.Sprintf("%s: %v", res.ReservationID, res.Err))
		metrics.IncrementSyncFailure(platform.String())
		p.forget(ctx, msg.ID, marked)
		return
	}

	metrics.IncrementSync(platform.String(), string(res.Action))
	switch {
	case res.Action == reconcile.ActionUnchanged:
		stats.Unchanged++
		return
	case res.Action == reconcile.ActionInsertRenamed:
		stats.NewBookings++
		stats.RenamedBookings++
	case res.IsNew:
		stats.NewBookings++
	default:
		stats.UpdatedBookings++
	}

	if opts.DryRun || res.DryRun {
		return
	}

	eventType := models.EventBookingUpdated
	if res.IsNew {
		eventType = models.EventBookingCreated
	}
	p.publish(ctx, models.NewBookingEvent(eventType, res.Record, string(res.Action), p.now()))

	if p.scheduler == nil {
		return
	}
	sched, err := p.scheduler.Schedule(ctx, res.Record)
	if err != nil {
		slog.Error("cleaning task scheduling failed",
			"reservation_id", res.ReservationID,
			"error", err,
		)
		stats.TaskErrors++
		return
	}
	if !sched.Created() {
		slog.Debug("no cleaning task", "reservation_id", res.ReservationID, "reason", sched.SkipReason)
		return
	}
	stats.CleaningTasks++
	p.publish(ctx, models.NewCleaningEvent(*sched.Task, res.Record.Platform, p.now()))
}

func (p *Processor) publish(ctx context.Context, event models.BookingEvent) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, event); err != nil {
		slog.Warn("event publish failed",
			"type", string(event.Type),
			"reservation_id", event.ReservationID,
			"error", err,
		)
	}
}

// forget clears the dedup mark so the next run retries the message.
func (p *Processor) forget(ctx context.Context, messageID string, marked bool) {
	if !marked {
		return
	}
	if err := p.dedup.Forget(ctx, messageID); err != nil {
		slog.Warn("could not clear dedup mark", "email_id", messageID, "error", err)
	}
}
