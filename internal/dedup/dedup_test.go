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

package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNewFilter_DefaultTTL(t *testing.T) {
	if f := NewFilter(nil, 0); f.ttl != DefaultTTL {
		t.Errorf("ttl = %s, want %s", f.ttl, DefaultTTL)
	}
	if f := NewFilter(nil, time.Hour); f.ttl != time.Hour {
		t.Errorf("ttl = %s, want 1h", f.ttl)
	}
}

func TestKey(t *testing.T) {
	if got := key("AAMkAD="); got != "staysync:seen:AAMkAD=" {
		t.Errorf("key = %q", got)
	}
}

// TestFilter_RedisDown verifies errors surface instead of reporting a
// message as seen.
func TestFilter_RedisDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	f := NewFilter(rdb, time.Minute)
	isNew, err := f.IsNew(context.Background(), "msg-1")
	if err == nil {
		t.Fatal("expected error from unreachable redis")
	}
	if isNew {
		t.Error("IsNew reported true on error")
	}
	if err := f.Forget(context.Background(), "msg-1"); err == nil {
		t.Error("expected Forget error from unreachable redis")
	}
}
