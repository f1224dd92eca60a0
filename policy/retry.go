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

// Package policy implements the per-step error policy and retry/backoff
// loop (stop / continue / retry, fixed / exponential backoff, fallback
// steps): the step-kind-agnostic attempt function the interpreter wraps
// around every step body. It also carries the per-service circuit breaker
// the process executor uses to shed calls to an unhealthy connector.
package policy

import (
	"context"
	"math/rand"
	"time"

	"axonflow/workflowengine/engineerr"
	"axonflow/workflowengine/value"
)

// Action is a step's terminal-failure disposition.
type Action string

const (
	ActionStop     Action = "stop"
	ActionContinue Action = "continue"
	ActionRetry    Action = "retry"
)

// Backoff selects how the delay between attempts grows.
type Backoff string

const (
	BackoffFixed       Backoff = "fixed"
	BackoffExponential Backoff = "exponential"
)

// MaxBackoff caps exponential growth.
const MaxBackoff = 60 * time.Second

// Jitter proportion applied to every computed delay so retries from
// concurrent branches don't fire in lockstep.
const Jitter = 0.1

// Policy is the step-level error_handling contract.
type Policy struct {
	Action       Action
	MaxRetries   int
	RetryDelayMs int
	Backoff      Backoff
	FallbackStep string
}

// Default returns the zero-value policy's effective behavior: stop after
// the first failure, no retries.
func Default() Policy {
	return Policy{
		Action:       ActionStop,
		MaxRetries:   0,
		RetryDelayMs: 1000,
		Backoff:      BackoffExponential,
	}
}

// Normalize fills in zero-valued fields with their documented defaults so
// a partially-specified Policy from the loader is safe to run.
func (p Policy) Normalize() Policy {
	if p.Action == "" {
		p.Action = ActionStop
	}
	if p.RetryDelayMs == 0 {
		p.RetryDelayMs = 1000
	}
	if p.Backoff == "" {
		p.Backoff = BackoffExponential
	}
	return p
}

// AttemptFunc runs one execution attempt (0-indexed) of a step's body.
type AttemptFunc func(ctx context.Context, attempt int) (value.Value, error)

// Outcome is the result of running a policy's attempt loop to completion.
type Outcome struct {
	Result   value.Value
	Attempts int
	Err      error
}

// Run executes fn under p's retry/backoff contract. A CancelledError from
// fn propagates immediately without consuming a retry. The returned
// Attempts is the actual number of times fn was invoked.
func Run(ctx context.Context, p Policy, stepID string, fn AttemptFunc) Outcome {
	p = p.Normalize()
	attempt := 0
	for {
		result, err := fn(ctx, attempt)
		attempt++
		if err == nil {
			return Outcome{Result: result, Attempts: attempt}
		}
		if isCancelled(err) {
			return Outcome{Attempts: attempt, Err: err}
		}
		if attempt-1 >= p.MaxRetries {
			return Outcome{Attempts: attempt, Err: err}
		}

		delay := backoffDelay(p, attempt-1)
		select {
		case <-ctx.Done():
			return Outcome{
				Attempts: attempt,
				Err:      engineerr.New(engineerr.CancelledError, stepID, "cancelled while waiting to retry", ctx.Err()),
			}
		case <-time.After(delay):
		}
	}
}

func backoffDelay(p Policy, attempt int) time.Duration {
	base := time.Duration(p.RetryDelayMs) * time.Millisecond
	delay := base
	if p.Backoff == BackoffExponential {
		delay = base * time.Duration(intPow(2, attempt))
	}
	if delay > MaxBackoff {
		delay = MaxBackoff
	}
	if Jitter > 0 {
		spread := float64(delay) * Jitter
		delay = delay + time.Duration((rand.Float64()*2*spread)-spread)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}

func intPow(base, exp int) int64 {
	result := int64(1)
	b := int64(base)
	for exp > 0 {
		if exp%2 == 1 {
			result *= b
		}
		b *= b
		exp /= 2
	}
	return result
}

func isCancelled(err error) bool {
	e, ok := err.(*engineerr.Error)
	if !ok {
		return false
	}
	return e.Kind == engineerr.CancelledError
}
