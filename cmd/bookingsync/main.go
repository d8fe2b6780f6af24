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

// staysync — one-shot booking sync
//
// Reads recent booking emails from configured mailboxes, extracts and syncs
// the bookings, and schedules cleaning tasks. Also answers a few store
// queries for operators.
//
// Usage:
//
//	go run ./cmd/bookingsync/ [--mailbox <alias>] [--platform airbnb] [--since 168h] [--limit 50] [--dry-run] [--reprocess]
//	go run ./cmd/bookingsync/ --stats
//	go run ./cmd/bookingsync/ --list vrbo [--limit 20]
//	go run ./cmd/bookingsync/ --upcoming 336h
//	go run ./cmd/bookingsync/ --delete <reservation_id>
//	go run ./cmd/bookingsync/ --mailbox <alias> --message <graph_message_id>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bcem/staysync/internal/config"
	"github.com/bcem/staysync/internal/mailbox"
	"github.com/bcem/staysync/internal/models"
	"github.com/bcem/staysync/internal/pipeline"
	"github.com/bcem/staysync/internal/service"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code so deferred cleanup always runs.
func run(args []string) int {
	// --- CLI Flags ---
	fs := flag.NewFlagSet("bookingsync", flag.ContinueOnError)
	mailboxFlag := fs.String("mailbox", "", "Mailbox alias to process (empty = all configured mailboxes)")
	platformFlag := fs.String("platform", "", "Only process emails from this platform (vrbo, airbnb, booking, plumguide)")
	sinceFlag := fs.String("since", "", "Lookback duration (default from config, e.g. 168h)")
	limitFlag := fs.Int("limit", 0, "Maximum emails to process per mailbox (default from config)")
	dryRunFlag := fs.Bool("dry-run", false, "Resolve bookings without writing anything")
	reprocessFlag := fs.Bool("reprocess", false, "Ignore the processed-email filter")
	messageFlag := fs.String("message", "", "Reprocess a single message by Graph id and exit")
	statsFlag := fs.Bool("stats", false, "Print booking statistics and exit")
	listFlag := fs.String("list", "", "List stored bookings for a platform and exit")
	upcomingFlag := fs.String("upcoming", "", "List bookings checking in within this duration and exit")
	deleteFlag := fs.String("delete", "", "Delete a booking by reservation id and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		service.SetupLogging("info")
		slog.Error("failed to load configuration", "error", err)
		return 1
	}
	service.SetupLogging(cfg.LogLevel)

	var platform models.Platform
	if *platformFlag != "" {
		platform = models.ParsePlatform(*platformFlag)
		if platform == models.PlatformUnknown {
			fmt.Fprintf(os.Stderr, "Error: unknown --platform %q\n", *platformFlag)
			return 1
		}
	}

	lookback := cfg.Lookback
	if *sinceFlag != "" {
		lookback, err = time.ParseDuration(*sinceFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid --since duration %q: %v\n", *sinceFlag, err)
			return 1
		}
	}
	limit := cfg.MaxEmailsPerRun
	if *limitFlag > 0 {
		limit = *limitFlag
	}
	dryRun := cfg.DryRun || *dryRunFlag

	mailboxes := cfg.Mailboxes
	if *mailboxFlag != "" {
		m, ok := cfg.Mailbox(*mailboxFlag)
		if !ok {
			slog.Error("mailbox not found in configuration", "alias", *mailboxFlag)
			return 1
		}
		mailboxes = []config.MailboxConfig{m}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := service.Open(ctx, cfg, dryRun)
	if err != nil {
		slog.Error("failed to start", "error", err)
		return 1
	}
	defer svc.Close()

	// --- Store queries ---
	switch {
	case *statsFlag:
		st, err := svc.Store.Stats(ctx)
		if err != nil {
			slog.Error("stats query failed", "error", err)
			return 1
		}
		printJSON(st)
		return 0
	case *listFlag != "":
		p := models.ParsePlatform(*listFlag)
		if p == models.PlatformUnknown {
			fmt.Fprintf(os.Stderr, "Error: unknown --list platform %q\n", *listFlag)
			return 1
		}
		bookings, err := svc.Store.ListByPlatform(ctx, p, *limitFlag)
		if err != nil {
			slog.Error("list query failed", "error", err)
			return 1
		}
		printJSON(bookingsOut(bookings))
		return 0
	case *upcomingFlag != "":
		window, err := time.ParseDuration(*upcomingFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid --upcoming duration %q: %v\n", *upcomingFlag, err)
			return 1
		}
		now := time.Now().UTC()
		bookings, err := svc.Store.ListByCheckIn(ctx, now, now.Add(window))
		if err != nil {
			slog.Error("upcoming query failed", "error", err)
			return 1
		}
		printJSON(bookingsOut(bookings))
		return 0
	case *deleteFlag != "":
		deleted, err := svc.Store.Delete(ctx, *deleteFlag)
		if err != nil {
			slog.Error("delete failed", "error", err)
			return 1
		}
		slog.Info("delete complete", "reservation_id", *deleteFlag, "deleted", deleted)
		return 0
	}

	// --- Process mailboxes ---
	if len(mailboxes) == 0 {
		slog.Error("no mailboxes configured")
		return 1
	}

	opts := pipeline.Options{
		Since:     time.Now().UTC().Add(-lookback),
		Limit:     limit,
		Platform:  platform,
		DryRun:    dryRun,
		Reprocess: *reprocessFlag,
	}

	if *messageFlag != "" {
		if len(mailboxes) != 1 {
			fmt.Fprintln(os.Stderr, "Error: --message needs --mailbox when several mailboxes are configured")
			return 1
		}
		return reprocessMessage(ctx, svc, mailboxes[0], *messageFlag, opts)
	}

	slog.Info("starting booking sync",
		"mailboxes", len(mailboxes),
		"since", models.FormatTimestamp(opts.Since),
		"limit", limit,
		"platform", platform.String(),
		"dry_run", dryRun,
	)

	code := 0
	for _, m := range mailboxes {
		stats, err := svc.Processor.Run(ctx, service.Source(ctx, m), opts)
		if err != nil {
			slog.Error("mailbox run failed", "mailbox", m.Alias, "error", err)
			code = 1
			continue
		}
		slog.Info("mailbox processed", "mailbox", m.Alias)
		stats.Log()
		if stats.Errors > 0 {
			code = 1
		}
	}
	return code
}

// reprocessMessage fetches one message and runs it through the pipeline,
// bypassing the processed-email filter.
func reprocessMessage(ctx context.Context, svc *service.Service, m config.MailboxConfig, id string, opts pipeline.Options) int {
	msg, err := service.Source(ctx, m).FetchMessage(ctx, id)
	if errors.Is(err, mailbox.ErrMessageNotFound) {
		slog.Error("message not found", "mailbox", m.Alias, "message_id", id)
		return 1
	}
	if err != nil {
		slog.Error("fetch message failed", "mailbox", m.Alias, "message_id", id, "error", err)
		return 1
	}

	opts.Reprocess = true
	stats := svc.Processor.Process(ctx, []models.EmailMessage{msg}, opts)
	stats.Log()
	if stats.Errors > 0 {
		return 1
	}
	return 0
}

// storedBookingOut is the CLI view of a stored booking.
type storedBookingOut struct {
	ID        int64                `json:"id"`
	Booking   models.BookingRecord `json:"booking"`
	CreatedAt string               `json:"created_at"`
	UpdatedAt string               `json:"updated_at"`
}

func bookingsOut(bookings []models.StoredBooking) []storedBookingOut {
	out := make([]storedBookingOut, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, storedBookingOut{
			ID:        b.ID,
			Booking:   b.BookingRecord,
			CreatedAt: models.FormatTimestamp(b.CreatedAt),
			UpdatedAt: models.FormatTimestamp(b.UpdatedAt),
		})
	}
	return out
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("encode output", "error", err)
	}
}
