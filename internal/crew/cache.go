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

package crew

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bcem/staysync/internal/models"
)

// DefaultCacheTTL is how long a crew list stays cached.
const DefaultCacheTTL = 5 * time.Minute

const cacheKeyPrefix = "staysync:crews:"

// CachedRoster caches active-crew lists in Redis. Task counts are never
// cached; they change with every assignment. Redis failures fall through to
// the backing roster.
type CachedRoster struct {
	Roster
	rdb *redis.Client
	ttl time.Duration
}

// NewCachedRoster wraps backend with a Redis cache.
func NewCachedRoster(backend Roster, rdb *redis.Client, ttl time.Duration) *CachedRoster {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedRoster{Roster: backend, rdb: rdb, ttl: ttl}
}

func cacheKey(propertyID string) string {
	if propertyID == "" {
		return cacheKeyPrefix + "all"
	}
	return cacheKeyPrefix + propertyID
}

// ListActiveCrew serves from cache when possible.
func (c *CachedRoster) ListActiveCrew(ctx context.Context, propertyID string) ([]models.CrewMember, error) {
	key := cacheKey(propertyID)

	cached, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var crews []models.CrewMember
		if jsonErr := json.Unmarshal(cached, &crews); jsonErr == nil {
			return crews, nil
		}
		slog.Warn("discarding unreadable crew cache entry", "key", key)
	case errors.Is(err, redis.Nil):
		// miss
	default:
		slog.Warn("crew cache read failed", "key", key, "error", err)
	}

	crews, err := c.Roster.ListActiveCrew(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(crews)
	if err == nil {
		err = c.rdb.Set(ctx, key, data, c.ttl).Err()
	}
	if err != nil {
		slog.Warn("crew cache write failed", "key", key, "error", err)
	}
	return crews, nil
}
