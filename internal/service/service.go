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

// Package service wires configuration into the running pipeline. Both
// entry points build their dependencies here.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/bcem/staysync/internal/config"
	"github.com/bcem/staysync/internal/crew"
	"github.com/bcem/staysync/internal/dedup"
	"github.com/bcem/staysync/internal/extract"
	"github.com/bcem/staysync/internal/mailbox"
	"github.com/bcem/staysync/internal/pipeline"
	"github.com/bcem/staysync/internal/queue"
	"github.com/bcem/staysync/internal/reconcile"
	"github.com/bcem/staysync/internal/store"
)

// Service owns the process-wide connections. Created once at start-up and
// closed at shutdown.
type Service struct {
	Pool      *pgxpool.Pool
	Store     *store.Store
	Redis     *redis.Client
	Publisher *queue.Publisher
	Processor *pipeline.Processor
}

// SetupLogging installs a JSON slog handler at the given level.
func SetupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
}

// Open connects to Postgres and Redis and builds the pipeline. A dry run
// resolves identities without writing bookings, tasks or events.
func Open(ctx context.Context, cfg *config.Config, dryRun bool) (*Service, error) {
	pool, err := store.Connect(ctx, cfg.DatabaseURL, cfg.SlowQueryThreshold)
	if err != nil {
		return nil, err
	}
	slog.Info("connected to PostgreSQL")

	st, err := store.New(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialise booking store: %w", err)
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)

	publisher := queue.NewPublisher(rdb, cfg.EventsQueue)
	if err := publisher.Ping(ctx); err != nil {
		rdb.Close()
		pool.Close()
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}
	slog.Info("connected to Redis")

	roster := crew.NewCachedRoster(st, rdb, cfg.CrewCacheTTL)
	scheduler := crew.NewScheduler(st, crew.NewAssigner(roster, cfg.TaskStatuses))

	proc := pipeline.NewProcessor(pipeline.Config{
		Extractor: extract.New(),
		Syncer:    reconcile.NewEngine(reconcile.EngineConfig{Store: st, DryRun: dryRun}),
		Scheduler: scheduler,
		Dedup:     dedup.NewFilter(rdb, cfg.DedupTTL),
		Publisher: publisher,
	})

	return &Service{
		Pool:      pool,
		Store:     st,
		Redis:     rdb,
		Publisher: publisher,
		Processor: proc,
	}, nil
}

// Close releases the connections.
func (s *Service) Close() {
	s.Redis.Close()
	s.Pool.Close()
}

// Source builds a Graph mailbox source authenticated with the mailbox's
// client credentials.
func Source(ctx context.Context, m config.MailboxConfig) *mailbox.GraphSource {
	creds := &clientcredentials.Config{
		ClientID:     m.ClientID,
		ClientSecret: m.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", m.TenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}
	return mailbox.NewGraphSource(mailbox.SourceConfig{
		HTTPClient:   creds.Client(ctx),
		GraphBaseURL: mailbox.DefaultGraphBaseURL,
		User:         m.User,
	})
}
