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
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"
)

// RateLimiter is a token bucket gating outbound connector calls: the
// bridge waits on it before every action step's Query/Execute, and a
// BaseConnector-embedding connector that doesn't override Query/Execute
// gets the same gate from the base implementation.
type RateLimiter struct {
	mu     sync.Mutex
	rate   float64 // tokens accrued per second
	burst  float64
	tokens float64
	last   time.Time
}

// NewRateLimiter allows rate calls per second with bursts up to burst.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rate:   rate,
		burst:  float64(burst),
		tokens: float64(burst),
		last:   time.Now(),
	}
}

// refill accrues tokens for the time elapsed since the last update.
// Callers hold mu.
func (r *RateLimiter) refill(now time.Time) {
	r.tokens = math.Min(r.burst, r.tokens+now.Sub(r.last).Seconds()*r.rate)
	r.last = now
}

// Allow consumes a token if one is free, without blocking.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refill(time.Now())
	if r.tokens < 1 {
		return false
	}
	r.tokens--
	return true
}

// Wait consumes a token, sleeping until one accrues or ctx ends.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		r.refill(now)
		if r.tokens >= 1 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - r.tokens) / r.rate * float64(time.Second))
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rate limiter: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// RateLimiterFromOptions builds a limiter from a connector config's
// options: "rate_limit" is calls per second, "rate_burst" the optional
// burst size (default 1). Returns nil when no rate_limit is configured,
// so an unconfigured service pays nothing.
func RateLimiterFromOptions(options map[string]interface{}) *RateLimiter {
	rate := optionFloat(options, "rate_limit")
	if rate <= 0 {
		return nil
	}
	burst := int(optionFloat(options, "rate_burst"))
	return NewRateLimiter(rate, burst)
}

func optionFloat(options map[string]interface{}, key string) float64 {
	switch v := options[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}
