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

// staysync — Booking Sync Service
//
// Long-running entry point. It:
//  1. Loads configuration from config.yaml
//  2. Connects to PostgreSQL and Redis
//  3. Polls every configured mailbox on an interval, one mailbox at a time
//  4. Serves /health and /metrics
//  5. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bcem/staysync/internal/config"
	"github.com/bcem/staysync/internal/mailbox"
	"github.com/bcem/staysync/internal/pipeline"
	"github.com/bcem/staysync/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		service.SetupLogging("info")
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	service.SetupLogging(cfg.LogLevel)

	slog.Info("starting booking sync service",
		"mailboxes", len(cfg.Mailboxes),
		"poll_interval", cfg.PollInterval,
		"lookback", cfg.Lookback,
		"dry_run", cfg.DryRun,
	)
	if len(cfg.Mailboxes) == 0 {
		slog.Error("no mailboxes configured")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := service.Open(ctx, cfg, cfg.DryRun)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}

	sources := make(map[string]*mailbox.GraphSource, len(cfg.Mailboxes))
	for _, m := range cfg.Mailboxes {
		sources[m.Alias] = service.Source(ctx, m)
	}

	// --- Poll Loop ---
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		poll(ctx, cfg, svc.Processor, sources)
	}()

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Publisher.Ping(r.Context()); err != nil {
			http.Error(w, "redis unhealthy", http.StatusServiceUnavailable)
			return
		}
		if err := svc.Store.Ping(r.Context()); err != nil {
			http.Error(w, "postgres unhealthy", http.StatusServiceUnavailable)
			return
		}
		breakers := make(map[string]string, len(sources))
		for alias, src := range sources {
			breakers[alias] = src.BreakerState()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": "healthy", "graph_breakers": breakers})
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		slog.Error("failed to listen", "addr", addr, "error", err)
		cancel()
		wg.Wait()
		svc.Close()
		os.Exit(1)
	}

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	stop := make(chan struct{})
	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		close(stop)
	}()

	slog.Info("booking sync service listening", "addr", addr)
	err = serve(server, ln, stop,
		func() {
			cancel()
			wg.Wait()
		},
		svc.Close,
	)
	if err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("booking sync service stopped")
}

// serve runs server on ln until stop is closed or serving fails. It then
// stops background work, drains in-flight requests and releases
// dependencies, in that order, before returning.
func serve(server *http.Server, ln net.Listener, stop <-chan struct{}, stopWork, release func()) error {
	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(ln) }()

	select {
	case err := <-errCh:
		stopWork()
		release()
		return err
	case <-stop:
	}

	stopWork()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error during shutdown", "error", err)
	}

	release()
	return nil
}

// poll processes every mailbox immediately and then once per interval.
// Mailboxes run sequentially so a single writer handles each run.
func poll(ctx context.Context, cfg *config.Config, proc *pipeline.Processor, sources map[string]*mailbox.GraphSource) {
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		for _, m := range cfg.Mailboxes {
			if ctx.Err() != nil {
				return
			}
			opts := pipeline.Options{
				Since:  time.Now().UTC().Add(-cfg.Lookback),
				Limit:  cfg.MaxEmailsPerRun,
				DryRun: cfg.DryRun,
			}
			stats, err := proc.Run(ctx, sources[m.Alias], opts)
			if err != nil {
				slog.Error("mailbox poll failed", "mailbox", m.Alias, "error", err)
				continue
			}
			stats.Log()
		}

		select {
		case <-ctx.Done():
			slog.Info("poll loop stopped")
			return
		case <-ticker.C:
		}
	}
}
