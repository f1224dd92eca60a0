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
	"fmt"

	"axonflow/workflowengine/action"
	"axonflow/workflowengine/engineerr"
	"axonflow/workflowengine/expr"
	"axonflow/workflowengine/policy"
	"axonflow/workflowengine/scope"
	"axonflow/workflowengine/value"
	"axonflow/workflowengine/workflow"
)

// runBody dispatches a step to its kind-specific semantics.
// It is the per-attempt function the retry loop in executeStep invokes.
func runBody(ectx *execContext, ctx context.Context, step *workflow.Step, sc *scope.Frame, resolved map[string]value.Value) (value.Value, error) {
	switch step.Kind {
	case workflow.KindAction:
		return runAction(ectx, ctx, step, resolved)
	case workflow.KindScript:
		return runScript(ectx, ctx, step, sc, resolved)
	case workflow.KindIf:
		return runIf(ectx, ctx, step, sc)
	case workflow.KindSwitch:
		return runSwitch(ectx, ctx, step, sc)
	case workflow.KindForEach:
		return runForEach(ectx, ctx, step, sc)
	case workflow.KindWhile:
		return runWhile(ectx, ctx, step, sc)
	case workflow.KindParallel:
		return runParallel(ectx, ctx, step, sc)
	case workflow.KindTry:
		return runTry(ectx, ctx, step, sc)
	case workflow.KindMap:
		return runMap(ectx, ctx, step, sc)
	case workflow.KindFilter:
		return runFilter(ectx, ctx, step, sc)
	case workflow.KindReduce:
		return runReduce(ectx, ctx, step, sc)
	case workflow.KindSubworkflow:
		return runSubworkflow(ectx, ctx, step, resolved)
	default:
		return nil, engineerr.New(engineerr.ValidationError, step.ID, fmt.Sprintf("unknown step kind %q", step.Kind), nil)
	}
}

// runAction resolves the action step's "service.method" against the
// registry and invokes the opaque ActionExecutor.
func runAction(ectx *execContext, ctx context.Context, step *workflow.Step, resolved map[string]value.Value) (value.Value, error) {
	service, _ := action.SplitServiceMethod(step.Action)
	if ectx.Registry != nil {
		if _, ok := ectx.Registry.Resolve(service); !ok {
			return nil, engineerr.New(engineerr.ActionError, step.ID, fmt.Sprintf("unknown action service %q", service), nil)
		}
	}
	if ectx.Executor == nil {
		return nil, engineerr.New(engineerr.ActionError, step.ID, "no action executor configured", nil)
	}
	out, err := ectx.Executor.Execute(ctx, step, resolved, ectx.Signal)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, engineerr.New(engineerr.TimeoutError, step.ID, "action timed out", err)
		}
		return nil, engineerr.New(engineerr.ActionError, step.ID, err.Error(), err)
	}
	return out, nil
}

// runScript evaluates a `script` step's body in the sandbox.
func runScript(ectx *execContext, ctx context.Context, step *workflow.Step, sc *scope.Frame, resolved map[string]value.Value) (value.Value, error) {
	code, _ := resolved["code"].(string)
	timeoutMs := 0
	if t, ok := resolved["timeout"]; ok {
		if f, ok2 := t.(float64); ok2 {
			timeoutMs = int(f)
		}
	}
	timeout := durationFromMillis(timeoutMs)
	if ectx.Config.ScriptTimeoutCeiling > 0 && (timeout <= 0 || timeout > ectx.Config.ScriptTimeoutCeiling) {
		if timeout > ectx.Config.ScriptTimeoutCeiling {
			timeout = ectx.Config.ScriptTimeoutCeiling
		}
	}
	return ectx.Scripts.Run(ctx, step.ID, code, sc.Snapshot(), timeout)
}

// runIf evaluates `condition` to select `then`/`else`: the
// `if` step itself always completes; its output is the selected branch's
// final step output, or null for an empty/absent branch.
func runIf(ectx *execContext, ctx context.Context, step *workflow.Step, sc *scope.Frame) (value.Value, error) {
	condVal, err := expr.EvalString(step.Condition, sc.Snapshot())
	if err != nil {
		return nil, engineerr.New(engineerr.ExpressionError, step.ID, "if condition", err)
	}
	if value.Truthy(condVal) {
		return runBlock(ectx, ctx, step.Then, sc)
	}
	return runBlock(ectx, ctx, step.Else, sc)
}

// runSwitch stringifies `expression` and exact-matches a case key,
// falling back to `default`, or null if neither matches.
func runSwitch(ectx *execContext, ctx context.Context, step *workflow.Step, sc *scope.Frame) (value.Value, error) {
	v, err := expr.EvalString(step.Expression, sc.Snapshot())
	if err != nil {
		return nil, engineerr.New(engineerr.ExpressionError, step.ID, "switch expression", err)
	}
	key := value.AsString(v)
	if caseSteps, ok := step.Cases[key]; ok {
		return runBlock(ectx, ctx, caseSteps, sc)
	}
	if step.Default != nil {
		return runBlock(ectx, ctx, step.Default, sc)
	}
	return nil, nil
}

func evalItems(step *workflow.Step, sc *scope.Frame) ([]value.Value, error) {
	itemsVal, err := expr.EvalString(step.Items, sc.Snapshot())
	if err != nil {
		return nil, engineerr.New(engineerr.ExpressionError, step.ID, "items expression", err)
	}
	items, ok := itemsVal.([]value.Value)
	if !ok {
		return nil, engineerr.New(engineerr.TypeError, step.ID, fmt.Sprintf("%s requires 'items' to evaluate to a sequence", step.Kind), nil)
	}
	return items, nil
}

func pushIterationScope(sc *scope.Frame, itemVar, idxVar string, item value.Value, idx, length int) *scope.Frame {
	child := sc.Push()
	child.BindReserved(orDefault(itemVar, "item"), item)
	child.BindReserved(orDefault(idxVar, "index"), float64(idx))
	child.BindReserved("loop", map[string]value.Value{
		"index":  float64(idx),
		"first":  idx == 0,
		"last":   idx == length-1,
		"length": float64(length),
	})
	return child
}

// runForEach iterates `items` in order, running `steps` in a fresh
// iteration scope per element. A `continue` policy records a
// failing iteration's output as null and proceeds; otherwise a failing
// iteration ends the loop and the step fails.
func runForEach(ectx *execContext, ctx context.Context, step *workflow.Step, sc *scope.Frame) (value.Value, error) {
	items, err := evalItems(step, sc)
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, 0, len(items))
	for i, item := range items {
		child := pushIterationScope(sc, step.ItemVariable, step.IndexVariable, item, i, len(items))
		v, err := runBlock(ectx, ctx, step.Steps, child)
		if err != nil {
			if step.ErrorHandling.Normalize().Action == policy.ActionContinue {
				out = append(out, nil)
				continue
			}
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// runWhile loops while `condition` is truthy, up to `max_iterations`
// (default 100). Exceeding the limit is a clean stop, not
// a failure; `break` is not exposed to step authors.
func runWhile(ectx *execContext, ctx context.Context, step *workflow.Step, sc *scope.Frame) (value.Value, error) {
	max := step.MaxIterations
	if max <= 0 {
		max = 100
	}
	iterations := 0
	var last value.Value
	for iterations < max {
		condVal, err := expr.EvalString(step.Condition, sc.Snapshot())
		if err != nil {
			return nil, engineerr.New(engineerr.ExpressionError, step.ID, "while condition", err)
		}
		if !value.Truthy(condVal) {
			break
		}
		child := sc.Push()
		v, err := runBlock(ectx, ctx, step.Steps, child)
		if err != nil {
			return nil, err
		}
		last = v
		iterations++
	}
	earlyExit := iterations >= max
	reason := ""
	if earlyExit {
		reason = "max_iterations"
	}
	return map[string]value.Value{
		"result":     last,
		"iterations": float64(iterations),
		"early_exit": earlyExit,
		"reason":     reason,
	}, nil
}

// runMap evaluates `expression` per item, collecting results in order.
func runMap(ectx *execContext, ctx context.Context, step *workflow.Step, sc *scope.Frame) (value.Value, error) {
	items, err := evalItems(step, sc)
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, 0, len(items))
	for i, item := range items {
		child := pushIterationScope(sc, step.ItemVariable, step.IndexVariable, item, i, len(items))
		v, err := expr.EvalString(step.Expression, child.Snapshot())
		if err != nil {
			return nil, engineerr.New(engineerr.ExpressionError, step.ID, "map expression", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// runFilter keeps items where `condition` is truthy, preserving order.
func runFilter(ectx *execContext, ctx context.Context, step *workflow.Step, sc *scope.Frame) (value.Value, error) {
	items, err := evalItems(step, sc)
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, 0, len(items))
	for i, item := range items {
		child := pushIterationScope(sc, step.ItemVariable, step.IndexVariable, item, i, len(items))
		v, err := expr.EvalString(step.Condition, child.Snapshot())
		if err != nil {
			return nil, engineerr.New(engineerr.ExpressionError, step.ID, "filter condition", err)
		}
		if value.Truthy(v) {
			out = append(out, item)
		}
	}
	return out, nil
}

// runReduce threads an accumulator (seeded with `initial_value`, default
// null) through `expression` once per item.
func runReduce(ectx *execContext, ctx context.Context, step *workflow.Step, sc *scope.Frame) (value.Value, error) {
	items, err := evalItems(step, sc)
	if err != nil {
		return nil, err
	}
	accVar := orDefault(step.AccumulatorVariable, "acc")
	acc := step.InitialValue
	for i, item := range items {
		child := pushIterationScope(sc, step.ItemVariable, step.IndexVariable, item, i, len(items))
		child.BindReserved(accVar, acc)
		v, err := expr.EvalString(step.Expression, child.Snapshot())
		if err != nil {
			return nil, engineerr.New(engineerr.ExpressionError, step.ID, "reduce expression", err)
		}
		acc = v
	}
	return acc, nil
}
