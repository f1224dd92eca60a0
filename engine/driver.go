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
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"axonflow/workflowengine/action"
	"axonflow/workflowengine/engine/metrics"
	"axonflow/workflowengine/engineerr"
	"axonflow/workflowengine/scope"
	"axonflow/workflowengine/script"
	"axonflow/workflowengine/value"
	"axonflow/workflowengine/workflow"
)

// Driver is the workflow driver: top-level sequencing, status roll-up,
// and the step-result ledger, plus a per-tenant execution index kept as
// driver-side bookkeeping for the HTTP surface.
type Driver struct {
	Registry  action.ActionRegistry
	Executor  action.ActionExecutor
	Loader    WorkflowLoader
	Config    Config
	Metrics   *metrics.Recorder
	JWTSecret []byte

	scripts *script.Sandbox

	mu       sync.Mutex
	byTenant map[string][]*workflow.Result
	byID     map[string]*workflow.Result
}

// NewDriver wires the two mandatory external collaborators and sane
// defaults for everything else; set the exported fields for
// optional collaborators (Loader, Metrics, JWTSecret) before first use.
func NewDriver(registry action.ActionRegistry, executor action.ActionExecutor) *Driver {
	return &Driver{
		Registry: registry,
		Executor: executor,
		Config:   DefaultConfig(),
		scripts:  script.New(),
		byTenant: map[string][]*workflow.Result{},
		byID:     map[string]*workflow.Result{},
	}
}

// Execute runs wf to completion against inputs, returning the
// deterministic WorkflowResult. A nil signal gets a fresh one-shot
// CancelSignal that is never fired by the caller; pass a live signal to
// support external cancellation.
func (d *Driver) Execute(ctx context.Context, wf *workflow.Workflow, inputs map[string]value.Value, signal *action.CancelSignal) (*workflow.Result, error) {
	return d.ExecuteForTenant(ctx, "", wf, inputs, signal)
}

// ExecuteForTenant is Execute plus per-tenant execution bookkeeping
// (ExecutionsByTenant below); tenant is opaque to the engine
// core and used only as an index key.
func (d *Driver) ExecuteForTenant(ctx context.Context, tenant string, wf *workflow.Workflow, inputs map[string]value.Value, signal *action.CancelSignal) (*workflow.Result, error) {
	if err := workflow.Validate(wf); err != nil {
		return nil, err
	}
	if signal == nil {
		signal = action.NewCancelSignal()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-signal.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()
	if d.Config.DefaultWorkflowTimeout > 0 {
		var tcancel context.CancelFunc
		runCtx, tcancel = context.WithTimeout(runCtx, d.Config.DefaultWorkflowTimeout)
		defer tcancel()
	}

	root := scope.Root(inputs)
	led := newLedger()
	ectx := &execContext{
		Registry:   d.Registry,
		Executor:   d.Executor,
		Loader:     d.Loader,
		Signal:     signal,
		Ledger:     led,
		Scripts:    d.scripts,
		Metrics:    d.Metrics,
		Driver:     d,
		Config:     d.Config,
		WorkflowID: wf.Meta.ID,
		JWTSecret:  d.JWTSecret,
	}

	log.Printf("[Workflow] %s started", wf.Meta.ID)
	started := time.Now()
	_, runErr := runBlock(ectx, runCtx, wf.Steps, root)
	ended := time.Now()

	status := workflow.WorkflowCompleted
	switch {
	case signal.IsCancelled():
		status = workflow.WorkflowCancelled
	case runErr != nil:
		var ee *engineerr.Error
		if errors.As(runErr, &ee) && ee.Kind == engineerr.CancelledError {
			status = workflow.WorkflowCancelled
		} else {
			status = workflow.WorkflowFailed
		}
	}
	log.Printf("[Workflow] %s %s", wf.Meta.ID, status)

	result := &workflow.Result{
		ExecutionID: workflow.NewExecutionID(),
		Status:      status,
		Output:      root.UserOutput(),
		StepResults: led.All(),
		StartedAt:   started,
		EndedAt:     ended,
	}
	if d.Metrics != nil {
		d.Metrics.ObserveWorkflow(string(status), ended.Sub(started))
	}

	d.mu.Lock()
	d.byTenant[tenant] = append(d.byTenant[tenant], result)
	d.byID[result.ExecutionID] = result
	d.mu.Unlock()

	return result, nil
}

// GetExecution looks up a past Result by its ExecutionID; the HTTP
// surface's GET /workflows/{id} handler is the main caller.
func (d *Driver) GetExecution(id string) (*workflow.Result, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.byID[id]
	return r, ok
}

// ExecutionsByTenant returns every Result recorded for tenant so far.
// Tenant scoping is driver-side bookkeeping, not part of the core result
// record.
func (d *Driver) ExecutionsByTenant(tenant string) []*workflow.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*workflow.Result, len(d.byTenant[tenant]))
	copy(out, d.byTenant[tenant])
	return out
}
