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

	"axonflow/workflowengine/scope"
	"axonflow/workflowengine/value"
	"axonflow/workflowengine/workflow"
)

// runTry executes `try`, routes a failure into `catch` (binding the
// reserved `error` record), and always runs `finally`, whose own failure
// overrides whatever outcome preceded it.
//
// try/catch/finally bindings are durable: unlike a for-each/while iteration scope, whose bindings are
// discarded when that iteration pops, a step's output_variable set inside
// try/catch/finally must still be visible in the workflow's final output.
// So these blocks run directly against sc, the same way runIf runs `then`/
// `else` against sc rather than a pushed child — only `error` needs its own
// narrow visibility, via a push scoped to the catch block alone.
func runTry(ectx *execContext, ctx context.Context, step *workflow.Step, sc *scope.Frame) (value.Value, error) {
	out, tryErr := runBlock(ectx, ctx, step.Try, sc)

	finalOut, finalErr := out, tryErr
	if tryErr != nil && step.Catch != nil {
		// `error` lives in its own frame so it never leaks past the catch
		// block; catch steps run one level further in, and their durable
		// bindings (output_variable) merge back into sc, the same as try's.
		errFrame := sc.Push()
		errFrame.BindReserved("error", errorRecord(step.ID, tryErr))
		catchScope := errFrame.Push()
		finalOut, finalErr = runBlock(ectx, ctx, step.Catch, catchScope)
		catchScope.MergeInto(sc)
	}

	if step.Finally != nil {
		_, finallyErr := runBlock(ectx, ctx, step.Finally, sc)
		if finallyErr != nil {
			finalErr = finallyErr
		}
	}

	return finalOut, finalErr
}

func errorRecord(stepID string, err error) map[string]value.Value {
	var bf *blockFailure
	failedStep := stepID
	attempts := 0
	if errors.As(err, &bf) {
		failedStep = bf.stepID
		attempts = bf.attempts
	}
	return map[string]value.Value{
		"message":  errorMessage(err),
		"step_id":  failedStep,
		"attempts": float64(attempts),
	}
}
