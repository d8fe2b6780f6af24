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
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bcem/staysync/internal/metrics"
)

// DefaultSlowQueryThreshold applies when the configured threshold is zero.
const DefaultSlowQueryThreshold = 200 * time.Millisecond

const maxLoggedSQL = 200

type traceKey struct{}

type traceStart struct {
	at  time.Time
	sql string
}

// SlowQueryTracer logs statements that take longer than a threshold.
// It implements pgx.QueryTracer.
type SlowQueryTracer struct {
	threshold time.Duration
	now       func() time.Time
}

// NewSlowQueryTracer returns a tracer for the given threshold.
func NewSlowQueryTracer(threshold time.Duration) *SlowQueryTracer {
	if threshold <= 0 {
		threshold = DefaultSlowQueryThreshold
	}
	return &SlowQueryTracer{threshold: threshold, now: time.Now}
}

// TraceQueryStart records the start time and SQL on the context.
func (t *SlowQueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceKey{}, traceStart{at: t.now(), sql: data.SQL})
}

// TraceQueryEnd logs the statement when it exceeded the threshold.
func (t *SlowQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(traceKey{}).(traceStart)
	if !ok {
		return
	}
	took := t.now().Sub(start.at)
	if took <= t.threshold {
		return
	}

	sql := start.sql
	if len(sql) > maxLoggedSQL {
		sql = sql[:maxLoggedSQL] + "..."
	}
	slog.Warn("slow query",
		"sql", sql,
		"took", took,
		"command_tag", data.CommandTag.String(),
		"error", data.Err,
	)
	metrics.SlowQueries.Inc()
}
