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

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoDatabase is returned when no database URL is configured.
var ErrNoDatabase = errors.New("config: database.url is required")

// MailboxConfig holds Graph credentials for one monitored mailbox.
type MailboxConfig struct {
	Alias        string
	TenantID     string
	ClientID     string
	ClientSecret string
	User         string // user id or UPN whose inbox is read
}

// Config holds all configuration for the booking sync service.
type Config struct {
	Mailboxes []MailboxConfig

	// Postgres
	DatabaseURL        string
	SlowQueryThreshold time.Duration

	// Redis
	RedisURL    string
	EventsQueue string
	DedupTTL    time.Duration

	// Processing
	Lookback        time.Duration
	MaxEmailsPerRun int
	DryRun          bool
	PollInterval    time.Duration

	// Crew
	CrewCacheTTL time.Duration
	TaskStatuses []string

	// Server (health and metrics only)
	Port     int
	LogLevel string
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Database struct {
		URL                string `yaml:"url"`
		SlowQueryThreshold string `yaml:"slow_query_threshold"`
	} `yaml:"database"`
	Redis struct {
		URL    string `yaml:"url"`
		Queues struct {
			Events string `yaml:"events"`
		} `yaml:"queues"`
	} `yaml:"redis"`
	Mailboxes []struct {
		Alias        string `yaml:"alias"`
		TenantID     string `yaml:"tenant_id"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		User         string `yaml:"user"`
	} `yaml:"mailboxes"`
	Processing struct {
		Lookback        string `yaml:"lookback"`
		MaxEmailsPerRun int    `yaml:"max_emails_per_run"`
		DryRun          bool   `yaml:"dry_run"`
		PollInterval    string `yaml:"poll_interval"`
	} `yaml:"processing"`
	Crew struct {
		CacheTTL     string   `yaml:"cache_ttl"`
		TaskStatuses []string `yaml:"task_statuses"`
	} `yaml:"crew"`
	Dedup struct {
		TTL string `yaml:"ttl"`
	} `yaml:"dedup"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables for settings the file leaves empty.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "/app/config/config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML content.
func Parse(data []byte) (*Config, error) {
	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	cfg := &Config{
		DatabaseURL:     firstNonEmpty(raw.Database.URL, os.Getenv("DATABASE_URL")),
		RedisURL:        firstNonEmpty(raw.Redis.URL, envOrDefault("REDIS_URL", "redis://localhost:6379/0")),
		EventsQueue:     firstNonEmpty(raw.Redis.Queues.Events, envOrDefault("EVENTS_QUEUE", "bookings")),
		MaxEmailsPerRun: firstPositive(raw.Processing.MaxEmailsPerRun, envOrDefaultInt("MAX_EMAILS_PER_RUN", 50)),
		DryRun:          raw.Processing.DryRun || envBool("DRY_RUN"),
		TaskStatuses:    raw.Crew.TaskStatuses,
		Port:            firstPositive(raw.Port, envOrDefaultInt("PORT", 8080)),
		LogLevel:        firstNonEmpty(raw.LogLevel, envOrDefault("LOG_LEVEL", "info")),
	}

	durations := []struct {
		name     string
		yamlVal  string
		env      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"database.slow_query_threshold", raw.Database.SlowQueryThreshold, "SLOW_QUERY_THRESHOLD", 200 * time.Millisecond, &cfg.SlowQueryThreshold},
		{"processing.lookback", raw.Processing.Lookback, "LOOKBACK", 7 * 24 * time.Hour, &cfg.Lookback},
		{"processing.poll_interval", raw.Processing.PollInterval, "POLL_INTERVAL", 5 * time.Minute, &cfg.PollInterval},
		{"crew.cache_ttl", raw.Crew.CacheTTL, "CREW_CACHE_TTL", 5 * time.Minute, &cfg.CrewCacheTTL},
		{"dedup.ttl", raw.Dedup.TTL, "DEDUP_TTL", 7 * 24 * time.Hour, &cfg.DedupTTL},
	}
	for _, d := range durations {
		if strings.TrimSpace(d.yamlVal) == "" {
			*d.dst = envOrDefaultDuration(d.env, d.fallback)
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.yamlVal))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = v
	}

	for _, m := range raw.Mailboxes {
		mc := MailboxConfig{
			Alias:        m.Alias,
			TenantID:     m.TenantID,
			ClientID:     m.ClientID,
			ClientSecret: m.ClientSecret,
			User:         m.User,
		}

		// Skip mailboxes with empty credentials (commented out in YAML)
		if mc.TenantID == "" || mc.ClientID == "" || mc.ClientSecret == "" || mc.User == "" {
			continue
		}
		if mc.Alias == "" {
			mc.Alias = mc.User
		}
		cfg.Mailboxes = append(cfg.Mailboxes, mc)
	}

	if cfg.DatabaseURL == "" {
		return nil, ErrNoDatabase
	}
	return cfg, nil
}

// Mailbox returns the mailbox with the given alias.
func (c *Config) Mailbox(alias string) (MailboxConfig, bool) {
	for _, m := range c.Mailboxes {
		if strings.EqualFold(m.Alias, alias) {
			return m, true
		}
	}
	return MailboxConfig{}, false
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
