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
	"sort"
	"time"

	"axonflow/workflowengine/engineerr"
	"axonflow/workflowengine/scope"
	"axonflow/workflowengine/value"
	"axonflow/workflowengine/workflow"
)

// branchOutcome is one parallel branch's terminal state, captured for the
// deterministic merge step below.
type branchOutcome struct {
	declOrder   int
	frame       *scope.Frame
	err         error
	completedAt time.Time
	started     bool
}

// runParallel launches step.Branches under a semaphore sized by
// max_concurrent: each branch gets a forked scope so siblings
// never observe each other's mid-flight writes, and the coordinator merges
// every branch's bindings back into sc once all have finished, with
// deterministic last-writer-wins tie-breaking by declared branch order
// for equal completion timestamps.
func runParallel(ectx *execContext, ctx context.Context, step *workflow.Step, sc *scope.Frame) (value.Value, error) {
	n := len(step.Branches)
	if n == 0 {
		return nil, nil
	}

	maxConcurrent := step.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = ectx.Config.DefaultMaxConcurrent
	}
	if maxConcurrent <= 0 {
		maxConcurrent = n
	}
	sem := make(chan struct{}, maxConcurrent)

	branchCtx, cancelBranches := context.WithCancel(ctx)
	defer cancelBranches()

	onErrorStop := step.OnError != "continue"

	results := make([]branchOutcome, n)
	done := make(chan int, n)

	for i, br := range step.Branches {
		go func(i int, br workflow.Branch) {
			select {
			case <-branchCtx.Done():
				results[i] = branchOutcome{
					declOrder: i,
					err:       engineerr.New(engineerr.CancelledError, br.ID, "branch cancelled before start", branchCtx.Err()),
				}
				done <- i
				return
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()

			ectx.Metrics.BranchStarted()
			defer ectx.Metrics.BranchFinished()

			forked := sc.Fork()
			_, err := runBlock(ectx, branchCtx, br.Steps, forked)
			results[i] = branchOutcome{declOrder: i, frame: forked, err: err, completedAt: time.Now(), started: true}
			if err != nil && onErrorStop {
				cancelBranches()
			}
			done <- i
		}(i, br)
	}
	for i := 0; i < n; i++ {
		<-done
	}

	merged := make([]branchOutcome, n)
	copy(merged, results)
	sort.SliceStable(merged, func(a, b int) bool {
		if merged[a].completedAt.Equal(merged[b].completedAt) {
			return merged[a].declOrder < merged[b].declOrder
		}
		return merged[a].completedAt.Before(merged[b].completedAt)
	})
	for _, r := range merged {
		if r.frame != nil {
			r.frame.MergeInto(sc)
		}
	}

	var firstErr error
	for _, r := range results {
		if r.err != nil {
			firstErr = r.err
			break
		}
	}

	if onErrorStop {
		return nil, firstErr
	}
	// `continue`: the step completes regardless of branch failures; every
	// branch's StepResults are still in the ledger via runBlock/executeStep.
	return nil, nil
}
