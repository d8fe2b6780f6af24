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

// Package metrics registers the Prometheus collectors for the booking pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EmailsProcessed counts emails by platform and outcome
	// (parsed, skipped, unclassified, failed, duplicate).
	EmailsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staysync_emails_processed_total",
			Help: "Emails processed by the booking pipeline",
		},
		[]string{"platform", "outcome"},
	)

	// BookingsSynced counts sync results by action (insert, update, insert_renamed).
	BookingsSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staysync_bookings_synced_total",
			Help: "Bookings written to the store",
		},
		[]string{"platform", "action"},
	)

	// SyncFailures counts bookings the store rejected.
	SyncFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staysync_sync_failures_total",
			Help: "Bookings that failed to persist",
		},
		[]string{"platform"},
	)

	// SyncConflicts counts unique-constraint retries in the sync engine.
	SyncConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "staysync_sync_conflicts_total",
			Help: "Unique-constraint conflicts resolved by retrying identity resolution",
		},
	)

	// CleaningTasks counts scheduled cleaning tasks by whether a crew was assigned.
	CleaningTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staysync_cleaning_tasks_total",
			Help: "Cleaning tasks created",
		},
		[]string{"assigned"},
	)

	// SlowQueries counts database statements slower than the tracer threshold.
	SlowQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "staysync_db_slow_queries_total",
			Help: "Database statements exceeding the slow-query threshold",
		},
	)

	// RunDuration observes the wall time of one pipeline run.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "staysync_run_duration_seconds",
			Help:    "Duration of a mailbox processing run",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3m
		},
	)
)

// IncrementEmail records one processed email.
func IncrementEmail(platform, outcome string) {
	EmailsProcessed.WithLabelValues(platform, outcome).Inc()
}

// IncrementSync records one successful booking write.
func IncrementSync(platform, action string) {
	BookingsSynced.WithLabelValues(platform, action).Inc()
}

// IncrementSyncFailure records one failed booking write.
func IncrementSyncFailure(platform string) {
	SyncFailures.WithLabelValues(platform).Inc()
}

// IncrementCleaningTask records a created cleaning task.
func IncrementCleaningTask(assigned bool) {
	label := "false"
	if assigned {
		label = "true"
	}
	CleaningTasks.WithLabelValues(label).Inc()
}

// ObserveRun records the duration of a processing run.
func ObserveRun(d time.Duration) {
	RunDuration.Observe(d.Seconds())
}
