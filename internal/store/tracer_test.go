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
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestSlowQueryTracer_LogsSlowStatements(t *testing.T) {
	logs := captureLogs(t)

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewSlowQueryTracer(100 * time.Millisecond)
	tr.now = func() time.Time { return clock }

	ctx := tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	clock = clock.Add(250 * time.Millisecond)
	tr.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

	if !strings.Contains(logs.String(), `"msg":"slow query"`) {
		t.Fatalf("expected slow query log, got %s", logs.String())
	}
	if !strings.Contains(logs.String(), `"sql":"SELECT 1"`) {
		t.Errorf("expected SQL in log, got %s", logs.String())
	}
}

func TestSlowQueryTracer_IgnoresFastStatements(t *testing.T) {
	logs := captureLogs(t)

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewSlowQueryTracer(100 * time.Millisecond)
	tr.now = func() time.Time { return clock }

	ctx := tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	clock = clock.Add(10 * time.Millisecond)
	tr.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

	if logs.Len() != 0 {
		t.Errorf("expected no log output, got %s", logs.String())
	}
}

func TestSlowQueryTracer_DefaultThreshold(t *testing.T) {
	if tr := NewSlowQueryTracer(0); tr.threshold != DefaultSlowQueryThreshold {
		t.Errorf("threshold = %s, want %s", tr.threshold, DefaultSlowQueryThreshold)
	}
}

func TestMapError_UniqueViolation(t *testing.T) {
	err := mapError(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "idx_bookings_stay"}))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	other := &pgconn.PgError{Code: "23502"}
	if err := mapError(other); errors.Is(err, ErrConflict) {
		t.Errorf("not-null violation mapped to ErrConflict")
	}
}
