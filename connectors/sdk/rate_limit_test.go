// Copyright 2025 AxonFlow
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

package sdk

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterAllowsBurst(t *testing.T) {
	limiter := NewRateLimiter(1, 3)
	for i := 0; i < 3; i++ {
		if !limiter.Allow() {
			t.Fatalf("call %d within burst was denied", i)
		}
	}
	if limiter.Allow() {
		t.Fatal("call past the burst was allowed without waiting")
	}
}

func TestRateLimiterWaitRefills(t *testing.T) {
	limiter := NewRateLimiter(100, 1)
	if !limiter.Allow() {
		t.Fatal("first call denied")
	}
	start := time.Now()
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("Wait took %v, expected ~10ms at 100/s", elapsed)
	}
}

func TestRateLimiterWaitHonorsContext(t *testing.T) {
	limiter := NewRateLimiter(0.001, 1)
	if !limiter.Allow() {
		t.Fatal("first call denied")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("Wait returned nil despite an exhausted bucket and expired context")
	}
}

func TestRateLimiterFromOptions(t *testing.T) {
	if l := RateLimiterFromOptions(nil); l != nil {
		t.Fatal("nil options should produce no limiter")
	}
	if l := RateLimiterFromOptions(map[string]interface{}{"rate_limit": 0}); l != nil {
		t.Fatal("zero rate_limit should produce no limiter")
	}

	l := RateLimiterFromOptions(map[string]interface{}{"rate_limit": 50, "rate_burst": float64(5)})
	if l == nil {
		t.Fatal("expected a limiter for rate_limit=50")
	}
	for i := 0; i < 5; i++ {
		if !l.Allow() {
			t.Fatalf("burst call %d denied", i)
		}
	}

	// YAML/JSON options may carry numbers as strings.
	if l := RateLimiterFromOptions(map[string]interface{}{"rate_limit": "25"}); l == nil {
		t.Fatal("string rate_limit should parse")
	}
}
