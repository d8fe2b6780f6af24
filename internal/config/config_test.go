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

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_URL", "REDIS_URL", "EVENTS_QUEUE", "MAX_EMAILS_PER_RUN", "DRY_RUN",
		"PORT", "LOG_LEVEL", "SLOW_QUERY_THRESHOLD", "LOOKBACK", "POLL_INTERVAL",
		"CREW_CACHE_TTL", "DEDUP_TTL",
	} {
		t.Setenv(k, "")
	}
}

const fullYAML = `
database:
  url: postgres://sync:${TEST_DB_PASSWORD}@db:5432/bookings
  slow_query_threshold: 500ms
redis:
  url: redis://cache:6379/1
  queues:
    events: booking-events
mailboxes:
  - alias: reservations
    tenant_id: 11111111-aaaa
    client_id: client
    client_secret: secret
    user: reservations@example.com
  - alias: disabled
    tenant_id: ""
    client_id: ""
    client_secret: ""
    user: old@example.com
  - tenant_id: 22222222-bbbb
    client_id: client2
    client_secret: secret2
    user: owner@example.com
processing:
  lookback: 72h
  max_emails_per_run: 25
  dry_run: true
  poll_interval: 10m
crew:
  cache_ttl: 1m
  task_statuses: [pending]
dedup:
  ttl: 48h
port: 9090
log_level: debug
`

func TestParse_FullConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_DB_PASSWORD", "hunter2")

	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.DatabaseURL != "postgres://sync:hunter2@db:5432/bookings" {
		t.Errorf("database url = %q", cfg.DatabaseURL)
	}
	if cfg.SlowQueryThreshold != 500*time.Millisecond {
		t.Errorf("slow query threshold = %s", cfg.SlowQueryThreshold)
	}
	if cfg.RedisURL != "redis://cache:6379/1" || cfg.EventsQueue != "booking-events" {
		t.Errorf("redis = %q / %q", cfg.RedisURL, cfg.EventsQueue)
	}
	if len(cfg.Mailboxes) != 2 {
		t.Fatalf("mailboxes = %d, want 2 (empty credentials skipped)", len(cfg.Mailboxes))
	}
	if cfg.Mailboxes[1].Alias != "owner@example.com" {
		t.Errorf("alias fallback = %q", cfg.Mailboxes[1].Alias)
	}
	if cfg.Lookback != 72*time.Hour || cfg.PollInterval != 10*time.Minute {
		t.Errorf("lookback = %s poll = %s", cfg.Lookback, cfg.PollInterval)
	}
	if cfg.MaxEmailsPerRun != 25 || !cfg.DryRun {
		t.Errorf("max = %d dry run = %v", cfg.MaxEmailsPerRun, cfg.DryRun)
	}
	if cfg.CrewCacheTTL != time.Minute || len(cfg.TaskStatuses) != 1 || cfg.TaskStatuses[0] != "pending" {
		t.Errorf("crew = %s %v", cfg.CrewCacheTTL, cfg.TaskStatuses)
	}
	if cfg.DedupTTL != 48*time.Hour || cfg.Port != 9090 || cfg.LogLevel != "debug" {
		t.Errorf("dedup = %s port = %d level = %q", cfg.DedupTTL, cfg.Port, cfg.LogLevel)
	}
}

func TestParse_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/bookings")

	cfg, err := Parse([]byte("mailboxes: []\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.DatabaseURL != "postgres://localhost/bookings" {
		t.Errorf("database url = %q", cfg.DatabaseURL)
	}
	if cfg.EventsQueue != "bookings" || cfg.MaxEmailsPerRun != 50 || cfg.Port != 8080 {
		t.Errorf("defaults = %q %d %d", cfg.EventsQueue, cfg.MaxEmailsPerRun, cfg.Port)
	}
	if cfg.Lookback != 7*24*time.Hour || cfg.SlowQueryThreshold != 200*time.Millisecond {
		t.Errorf("durations = %s %s", cfg.Lookback, cfg.SlowQueryThreshold)
	}
	if cfg.DryRun {
		t.Error("dry run defaulted to true")
	}
}

func TestParse_EnvOverridesEmptyYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/bookings")
	t.Setenv("LOOKBACK", "2h")
	t.Setenv("DRY_RUN", "true")

	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Lookback != 2*time.Hour || !cfg.DryRun {
		t.Errorf("lookback = %s dry run = %v", cfg.Lookback, cfg.DryRun)
	}
}

func TestParse_MissingDatabase(t *testing.T) {
	clearEnv(t)
	if _, err := Parse([]byte("port: 8080\n")); !errors.Is(err, ErrNoDatabase) {
		t.Fatalf("expected ErrNoDatabase, got %v", err)
	}
}

func TestParse_BadDuration(t *testing.T) {
	clearEnv(t)
	_, err := Parse([]byte("database:\n  url: postgres://x\nprocessing:\n  lookback: soon\n"))
	if err == nil {
		t.Fatal("expected duration parse error")
	}
}

func TestLoad_ReadsConfigPath(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  url: postgres://file/db\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://file/db" {
		t.Errorf("database url = %q", cfg.DatabaseURL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestConfig_Mailbox(t *testing.T) {
	cfg := &Config{Mailboxes: []MailboxConfig{{Alias: "Reservations"}}}
	if _, ok := cfg.Mailbox("reservations"); !ok {
		t.Error("alias lookup should be case-insensitive")
	}
	if _, ok := cfg.Mailbox("other"); ok {
		t.Error("unexpected match")
	}
}
