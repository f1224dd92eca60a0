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

package action

import "sync"

// CancelSignal is the one-shot cancellation primitive threaded through
// every frame of an execution: action executors, retry sleeps,
// and parallel joins all subscribe to it instead of polling a bare context,
// so "cancel fires, every suspension point wakes" can be expressed as one
// close(chan) instead of plumbing context.Context through every external
// collaborator signature. A context.Context is still threaded alongside it
// for Go-idiomatic deadline propagation; CancelSignal carries a `reason`
// string the raw context can't.
type CancelSignal struct {
	mu       sync.Mutex
	done     chan struct{}
	reason   string
	fired    bool
}

// NewCancelSignal returns a signal that has not fired.
func NewCancelSignal() *CancelSignal {
	return &CancelSignal{done: make(chan struct{})}
}

// Cancel fires the signal with reason. Idempotent: only the first call's
// reason is kept.
func (c *CancelSignal) Cancel(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fired {
		return
	}
	c.fired = true
	c.reason = reason
	close(c.done)
}

// IsCancelled reports whether Cancel has been called.
func (c *CancelSignal) IsCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

// Reason returns the reason passed to Cancel, or "" if not yet fired.
func (c *CancelSignal) Reason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// Done returns a channel closed when Cancel fires, so sleeps and joins can
// select on it alongside their own timers/contexts.
func (c *CancelSignal) Done() <-chan struct{} {
	return c.done
}
