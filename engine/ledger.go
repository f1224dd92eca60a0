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

package engine

import (
	"sync"

	"axonflow/workflowengine/workflow"
)

// ledger is the append-only, completion-ordered StepResult record: the
// one shared structure every parallel branch writes into, so every append
// is serialized behind a mutex.
type ledger struct {
	mu      sync.Mutex
	entries []workflow.StepResult
}

func newLedger() *ledger {
	return &ledger{}
}

// Append records a step's terminal result in completion order.
func (l *ledger) Append(r workflow.StepResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, r)
}

// All returns a snapshot copy of every result recorded so far.
func (l *ledger) All() []workflow.StepResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]workflow.StepResult, len(l.entries))
	copy(out, l.entries)
	return out
}
