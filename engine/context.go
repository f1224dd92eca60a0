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

// Package engine is the step interpreter, concurrency coordinator and
// workflow driver: the core of the execution engine. It
// dispatches on workflow.Step.Kind, pulls values through scope/expr/script,
// invokes the external action.ActionExecutor, and applies policy's
// retry/backoff contract, recursing into nested blocks for the control-flow
// kinds.
package engine

import (
	"time"

	"axonflow/workflowengine/action"
	"axonflow/workflowengine/engine/metrics"
	"axonflow/workflowengine/script"
)

// Config holds the engine-level tunables that the loader/config layer
// populates, analogous to connectors/config.Config's env-first defaults.
type Config struct {
	// DefaultWorkflowTimeout bounds an entire Execute call; zero disables
	// the workflow-level deadline (steps may still carry their own).
	DefaultWorkflowTimeout time.Duration
	// DefaultMaxConcurrent is used by a `parallel` step that doesn't set
	// its own max_concurrent; zero means "len(branches)" (unbounded).
	DefaultMaxConcurrent int
	// ScriptTimeoutCeiling caps a script step's requested timeout.
	ScriptTimeoutCeiling time.Duration
}

// DefaultConfig returns sane out-of-the-box values, overridable by the
// config loader.
func DefaultConfig() Config {
	return Config{
		DefaultWorkflowTimeout: 5 * time.Minute,
		DefaultMaxConcurrent:   0,
		ScriptTimeoutCeiling:   script.MaxTimeout,
	}
}

// execContext carries the collaborators and shared, concurrency-safe state
// for a single Driver.Execute call. It is read-only after construction
// except for Ledger (append-only, internally synchronized) — every field
// is safe to share across the goroutines a `parallel` step launches.
// context.Context is deliberately NOT stored here: it is threaded as an
// explicit parameter through every interpreter function instead, since
// each nested frame (loop iteration, parallel branch, step timeout) needs
// its own derived context and a shared mutable ctx field would race.
type execContext struct {
	Registry action.ActionRegistry
	Executor action.ActionExecutor
	Loader   WorkflowLoader
	Signal   *action.CancelSignal
	Ledger   *ledger
	Scripts  *script.Sandbox
	Metrics  *metrics.Recorder
	Driver   *Driver
	Config   Config

	WorkflowID string
	JWTSecret  []byte
}
