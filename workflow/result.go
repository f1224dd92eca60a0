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

package workflow

import (
	"time"

	"github.com/google/uuid"

	"axonflow/workflowengine/value"
)

// StepStatus is a StepResult's terminal (or in-flight) state.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusRunning   StepStatus = "running"
	StatusCompleted StepStatus = "completed"
	StatusFailed    StepStatus = "failed"
	StatusSkipped   StepStatus = "skipped"
)

// StepResult is one ledger entry. Exactly one terminal status
// is ever recorded per executed step; duration/ended_at are finalized when
// the entry is appended.
type StepResult struct {
	StepID string
	// AttemptID identifies this terminal record across retries/replays;
	// the driver and apiserver use it to correlate a ledger entry with
	// logs.
	AttemptID  string
	Status     StepStatus
	Output     value.Value
	Error      string
	StartedAt  time.Time
	EndedAt    time.Time
	DurationMs int64
	Attempts   int
}

// NewAttemptID mints a step-result correlation id.
func NewAttemptID() string {
	return uuid.NewString()
}

// WorkflowStatus is the driver's top-level outcome.
type WorkflowStatus string

const (
	WorkflowCompleted WorkflowStatus = "completed"
	WorkflowFailed    WorkflowStatus = "failed"
	WorkflowCancelled WorkflowStatus = "cancelled"
)

// Result is the deterministic record the driver returns:
// output is a snapshot of the root scope's user-created bindings at
// termination, with `inputs`/`steps` excluded.
type Result struct {
	// ExecutionID is this run's correlation id, keying the driver's
	// by-tenant/by-id indexes and the apiserver's GET endpoint.
	ExecutionID string
	Status      WorkflowStatus
	Output      map[string]value.Value
	StepResults []StepResult
	StartedAt   time.Time
	EndedAt     time.Time
}

// NewExecutionID mints a workflow execution correlation id.
func NewExecutionID() string {
	return uuid.NewString()
}
