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
	"fmt"
	"time"

	"axonflow/workflowengine/engineerr"
	"axonflow/workflowengine/expr"
	"axonflow/workflowengine/policy"
	"axonflow/workflowengine/scope"
	"axonflow/workflowengine/value"
	"axonflow/workflowengine/workflow"
)

// blockFailure wraps a propagating step failure with the id and attempt
// count of the step that actually failed, so an enclosing `try` can fill
// its `error` binding's `step_id`/`attempts` fields without
// re-deriving them from the bare error text.
type blockFailure struct {
	err      error
	stepID   string
	attempts int
}

func (b *blockFailure) Error() string { return b.err.Error() }
func (b *blockFailure) Unwrap() error { return b.err }

// usesGenericConditionGate reports whether a step kind's `Condition` field
// is the generic header skip-gate, as opposed to a
// kind-specific field that happens to share the struct slot: `if`'s branch
// selector, `while`'s loop-continue test, and `filter`'s per-item
// predicate all reuse `Condition` for their own kind-specific purpose and
// never see it as a whole-step skip gate.
func usesGenericConditionGate(k workflow.Kind) bool {
	switch k {
	case workflow.KindIf, workflow.KindWhile, workflow.KindFilter:
		return false
	default:
		return true
	}
}

// executeStep runs the uniform pre-flight/retry/post-flight envelope
// around one step, appends its terminal StepResult to the
// shared ledger, and returns a non-nil error only when the enclosing
// block (siblings) must abort and propagate the failure further up —
// a `continue` policy, a successful fallback, or a skipped/completed step
// all return a nil error so the caller keeps iterating.
func executeStep(ectx *execContext, ctx context.Context, step *workflow.Step, siblings []workflow.Step, sc *scope.Frame) (workflow.StepResult, error) {
	start := time.Now()

	if ctx.Err() != nil {
		return recordCancelled(ectx, sc, step, start, ctx.Err())
	}

	if usesGenericConditionGate(step.Kind) && step.Condition != "" {
		condVal, err := expr.EvalString(step.Condition, sc.Snapshot())
		if err != nil {
			wrapped := engineerr.New(engineerr.ExpressionError, step.ID, "condition evaluation failed", err)
			res := finalizeResult(step, workflow.StatusFailed, nil, wrapped.Error(), start, 0)
			appendResult(ectx, sc, step, res)
			return res, wrapped
		}
		if !value.Truthy(condVal) {
			// A condition-skipped step does not bind output_variable at all,
			// rather than binding null.
			res := finalizeResult(step, workflow.StatusSkipped, nil, "", start, 0)
			appendResult(ectx, sc, step, res)
			return res, nil
		}
	}

	resolved, err := resolveStepInputs(step, sc.Snapshot())
	if err != nil {
		res := finalizeResult(step, workflow.StatusFailed, nil, err.Error(), start, 0)
		appendResult(ectx, sc, step, res)
		return res, err
	}

	stepCtx, cancel := stepDeadlineCtx(ctx, step)
	defer cancel()

	outcome := policy.Run(stepCtx, step.ErrorHandling, step.ID, func(attemptCtx context.Context, attempt int) (value.Value, error) {
		out, bodyErr := runBody(ectx, attemptCtx, step, sc, resolved)
		if bodyErr != nil && attemptCtx.Err() == context.DeadlineExceeded {
			var ee *engineerr.Error
			if !errors.As(bodyErr, &ee) || ee.Kind != engineerr.CancelledError {
				return nil, engineerr.New(engineerr.TimeoutError, step.ID, "step exceeded its deadline", bodyErr)
			}
		}
		return out, bodyErr
	})

	if outcome.Err == nil {
		res := finalizeResult(step, workflow.StatusCompleted, outcome.Result, "", start, outcome.Attempts)
		appendResult(ectx, sc, step, res)
		bindOutput(sc, step, outcome.Result)
		return res, nil
	}

	var ee *engineerr.Error
	isCancelled := errors.As(outcome.Err, &ee) && ee.Kind == engineerr.CancelledError

	res := finalizeResult(step, workflow.StatusFailed, nil, outcome.Err.Error(), start, outcome.Attempts)
	appendResult(ectx, sc, step, res)

	if isCancelled {
		return res, outcome.Err
	}

	pol := step.ErrorHandling.Normalize()
	if pol.Action == policy.ActionContinue {
		// A failing step with output_variable and policy continue publishes
		// null, never the last attempt's partial output.
		bindOutput(sc, step, nil)
		return res, nil
	}

	wrapped := &blockFailure{err: outcome.Err, stepID: step.ID, attempts: outcome.Attempts}
	if pol.FallbackStep != "" {
		if fb := findSibling(siblings, pol.FallbackStep); fb != nil {
			// The original step's own failure is already recorded; the
			// fallback substitutes for propagation.
			return executeStep(ectx, ctx, fb, siblings, sc)
		}
	}
	return res, wrapped
}

// runBlock executes a sequential list of steps against sc (no scope push
// of its own — callers that need an iteration/try/catch/finally/branch
// scope push before calling this). It returns the last *completed* step's
// output (the rule for `if`/`try`/branch bodies), or a non-nil error the
// moment a step's failure must propagate.
func runBlock(ectx *execContext, ctx context.Context, steps []workflow.Step, sc *scope.Frame) (value.Value, error) {
	var last value.Value
	for i := range steps {
		res, err := executeStep(ectx, ctx, &steps[i], steps, sc)
		if err != nil {
			return nil, err
		}
		if res.Status == workflow.StatusCompleted {
			last = res.Output
		}
	}
	return last, nil
}

func finalizeResult(step *workflow.Step, status workflow.StepStatus, output value.Value, errMsg string, start time.Time, attempts int) workflow.StepResult {
	end := time.Now()
	return workflow.StepResult{
		StepID:     step.ID,
		AttemptID:  workflow.NewAttemptID(),
		Status:     status,
		Output:     output,
		Error:      errMsg,
		StartedAt:  start,
		EndedAt:    end,
		DurationMs: end.Sub(start).Milliseconds(),
		Attempts:   attempts,
	}
}

// appendResult records a terminal StepResult into both the shared ledger
// and the scope's reserved `steps` binding, and reports it to Metrics when
// configured.
func appendResult(ectx *execContext, sc *scope.Frame, step *workflow.Step, res workflow.StepResult) {
	ectx.Ledger.Append(res)
	publishStepEntry(sc, res)
	if ectx.Metrics != nil {
		ectx.Metrics.ObserveStep(string(step.Kind), string(res.Status), time.Duration(res.DurationMs)*time.Millisecond)
	}
}

func recordCancelled(ectx *execContext, sc *scope.Frame, step *workflow.Step, start time.Time, cause error) (workflow.StepResult, error) {
	wrapped := engineerr.New(engineerr.CancelledError, step.ID, "workflow cancelled", cause)
	res := finalizeResult(step, workflow.StatusFailed, nil, wrapped.Error(), start, 0)
	appendResult(ectx, sc, step, res)
	return res, wrapped
}

func bindOutput(sc *scope.Frame, step *workflow.Step, v value.Value) {
	if step.OutputVariable == "" {
		return
	}
	sc.Bind(step.OutputVariable, v)
}

// publishStepEntry maintains the reserved `steps` binding:
// step-id keyed records visible to every expression evaluated afterward.
func publishStepEntry(sc *scope.Frame, res workflow.StepResult) {
	sc.RecordStep(res.StepID, map[string]value.Value{
		"status":      string(res.Status),
		"output":      res.Output,
		"error":       res.Error,
		"duration_ms": float64(res.DurationMs),
		"attempts":    float64(res.Attempts),
	})
}

func findSibling(siblings []workflow.Step, id string) *workflow.Step {
	for i := range siblings {
		if siblings[i].ID == id {
			return &siblings[i]
		}
	}
	return nil
}

// stepDeadlineCtx applies a step's own timeout_seconds on top of the
// inherited ctx, so the effective deadline is always the minimum of the
// workflow/block deadline and the step's own; context.WithTimeout on a child of ctx gives that for
// free, since a parent's earlier deadline still wins.
func stepDeadlineCtx(ctx context.Context, step *workflow.Step) (context.Context, context.CancelFunc) {
	if step.TimeoutSeconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(step.TimeoutSeconds)*time.Second)
}

// resolveStepInputs expression-resolves a step's `inputs` map, recursing into nested sequences/mappings. A script step's
// `code` field is never resolved: it is Lua source, not a template, and
// may legitimately contain `{{`/`}}` as ordinary text.
func resolveStepInputs(step *workflow.Step, ctxMap map[string]value.Value) (map[string]value.Value, error) {
	if len(step.Inputs) == 0 {
		return nil, nil
	}
	out := make(map[string]value.Value, len(step.Inputs))
	for k, v := range step.Inputs {
		if step.Kind == workflow.KindScript && k == "code" {
			out[k] = v
			continue
		}
		rv, err := resolveValue(v, ctxMap)
		if err != nil {
			return nil, engineerr.New(engineerr.ExpressionError, step.ID, fmt.Sprintf("failed to resolve input %q", k), err)
		}
		out[k] = rv
	}
	return out, nil
}

func resolveValue(v value.Value, ctxMap map[string]value.Value) (value.Value, error) {
	switch t := v.(type) {
	case string:
		return expr.EvalString(t, ctxMap)
	case []value.Value:
		out := make([]value.Value, len(t))
		for i, e := range t {
			rv, err := resolveValue(e, ctxMap)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	case map[string]value.Value:
		out := make(map[string]value.Value, len(t))
		for k, e := range t {
			rv, err := resolveValue(e, ctxMap)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	default:
		return t, nil
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
