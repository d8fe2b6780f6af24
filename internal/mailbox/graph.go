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

// Package mailbox reads booking emails from a Microsoft 365 mailbox through
// the Graph API.
package mailbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/bcem/staysync/internal/models"
)

// DefaultGraphBaseURL is the Graph v1.0 endpoint.
const DefaultGraphBaseURL = "https://graph.microsoft.com/v1.0"

const (
	defaultPageSize = 50
	defaultRate     = rate.Limit(4)
	defaultBurst    = 4

	messageFields = "id,subject,from,receivedDateTime,body,bodyPreview,parentFolderId"
)

// ErrMessageNotFound is returned by FetchMessage when Graph has no message
// with the requested id.
var ErrMessageNotFound = errors.New("mailbox: message not found")

// StatusError is a non-200 Graph response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("graph returned HTTP %d", e.Code)
}

// GraphSource lists messages from one user's mailbox.
type GraphSource struct {
	httpClient   *http.Client
	graphBaseURL string
	user         string
	pageSize     int
	limiter      *rate.Limiter
	breaker      *gobreaker.CircuitBreaker
}

// SourceConfig holds dependencies for a GraphSource.
type SourceConfig struct {
	HTTPClient   *http.Client // already authenticated (client credentials)
	GraphBaseURL string
	User         string
	PageSize     int
	RateLimit    rate.Limit // Graph requests per second

	// BreakerTimeout is how long the breaker stays open before probing
	// Graph again. Zero means 30s.
	BreakerTimeout time.Duration
}

// NewGraphSource creates a mailbox source.
func NewGraphSource(cfg SourceConfig) *GraphSource {
	base := cfg.GraphBaseURL
	if base == "" {
		base = DefaultGraphBaseURL
	}
	size := cfg.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRate
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GraphSource{
		httpClient:   client,
		graphBaseURL: base,
		user:         cfg.User,
		pageSize:     size,
		limiter:      rate.NewLimiter(limit, defaultBurst),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:         "graph:" + cfg.User,
			MaxRequests:  1,
			Interval:     time.Minute,
			Timeout:      timeout,
			IsSuccessful: healthyResponse,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("graph circuit breaker state changed",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		}),
	}
}

// healthyResponse decides what counts against the breaker. Throttling,
// server errors and transport failures do; client errors such as 401 or 404
// say nothing about Graph's health.
func healthyResponse(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code != http.StatusTooManyRequests && se.Code < 500
	}
	return false
}

// BreakerState reports the circuit breaker state for health output.
func (s *GraphSource) BreakerState() string {
	return s.breaker.State().String()
}

// messagesResponse is one page of the /messages list response.
type messagesResponse struct {
	Value    []graphMessage `json:"value"`
	NextLink string         `json:"@odata.nextLink"`
}

// ListSince returns messages received at or after since, oldest first, so
// that a later update to a reservation is applied after the original.
// A positive limit caps the number returned.
func (s *GraphSource) ListSince(ctx context.Context, since time.Time, limit int) ([]models.EmailMessage, error) {
	params := url.Values{}
	params.Set("$filter", fmt.Sprintf("receivedDateTime ge %s", since.UTC().Format(time.RFC3339)))
	params.Set("$select", messageFields)
	params.Set("$orderby", "receivedDateTime asc")
	params.Set("$top", fmt.Sprint(s.pageSize))

	var out []models.EmailMessage
	pages := 0
	next := s.userURL("messages") + "?" + params.Encode()
	for next != "" {
		var page messagesResponse
		if err := s.get(ctx, next, &page); err != nil {
			return out, fmt.Errorf("list messages page %d: %w", pages, err)
		}
		pages++

		for _, gm := range page.Value {
			out = append(out, gm.toEmail())
			if limit > 0 && len(out) >= limit {
				slog.Debug("mailbox listing hit limit", "user", s.user, "limit", limit, "pages", pages)
				return out, nil
			}
		}
		next = page.NextLink
	}

	slog.Info("mailbox listed",
		"user", s.user,
		"since", models.FormatTimestamp(since),
		"messages", len(out),
		"pages", pages,
	)
	return out, nil
}

// FetchMessage returns one message by id, or ErrMessageNotFound.
func (s *GraphSource) FetchMessage(ctx context.Context, messageID string) (models.EmailMessage, error) {
	target := s.userURL("messages", messageID) + "?" + url.Values{"$select": {messageFields}}.Encode()

	var gm graphMessage
	err := s.get(ctx, target, &gm)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return models.EmailMessage{}, fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	}
	if err != nil {
		return models.EmailMessage{}, fmt.Errorf("fetch message %s: %w", messageID, err)
	}
	return gm.toEmail(), nil
}

func (s *GraphSource) userURL(segments ...string) string {
	u := s.graphBaseURL + "/users/" + url.PathEscape(s.user)
	for _, seg := range segments {
		u += "/" + url.PathEscape(seg)
	}
	return u
}

// get waits for the rate limiter, then issues a GET through the breaker and
// decodes the JSON body into dst.
func (s *GraphSource) get(ctx context.Context, target string, dst any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.do(ctx, target, dst)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		slog.Warn("graph request rejected by circuit breaker", "user", s.user, "state", s.BreakerState())
	}
	return err
}

func (s *GraphSource) do(ctx context.Context, target string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", fmt.Sprintf("odata.maxpagesize=%d", s.pageSize))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode != http.StatusNotFound {
			slog.Error("graph request failed", "user", s.user, "status", resp.StatusCode, "body", string(body))
		}
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
