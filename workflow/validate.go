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
	"fmt"

	"axonflow/workflowengine/engineerr"
	"axonflow/workflowengine/scope"
)

var validKinds = map[Kind]bool{
	KindAction: true, KindScript: true, KindIf: true, KindSwitch: true,
	KindForEach: true, KindWhile: true, KindParallel: true, KindTry: true,
	KindMap: true, KindFilter: true, KindReduce: true, KindSubworkflow: true,
}

// Validate checks the document's load-time invariants: every step id is
// non-empty, unique among its siblings, and every step kind is one the
// interpreter knows. It recurses into every nested block a step kind can
// carry so a malformed step deep inside an `if`/`try`/`parallel` body is
// caught before any step runs.
func Validate(w *Workflow) error {
	if w.Meta.ID == "" {
		return engineerr.New(engineerr.ValidationError, "", "workflow.id is required", nil)
	}
	return validateSteps(w.Steps)
}

func validateSteps(steps []Step) error {
	seen := make(map[string]bool, len(steps))
	for _, s := range steps {
		if s.ID == "" {
			return engineerr.New(engineerr.ValidationError, "", "step id must not be empty", nil)
		}
		if seen[s.ID] {
			return engineerr.New(engineerr.ValidationError, s.ID, fmt.Sprintf("duplicate step id %q among siblings", s.ID), nil)
		}
		seen[s.ID] = true

		if !validKinds[s.Kind] {
			return engineerr.New(engineerr.ValidationError, s.ID, fmt.Sprintf("unknown step kind %q", s.Kind), nil)
		}
		if scope.Reserved[s.OutputVariable] {
			return engineerr.New(engineerr.ValidationError, s.ID, fmt.Sprintf("output_variable %q is a reserved name", s.OutputVariable), nil)
		}

		nested := [][]Step{s.Then, s.Else, s.Default, s.Steps, s.Try, s.Catch, s.Finally}
		for _, n := range nested {
			if len(n) == 0 {
				continue
			}
			if err := validateSteps(n); err != nil {
				return err
			}
		}
		for _, cs := range s.Cases {
			if err := validateSteps(cs); err != nil {
				return err
			}
		}
		for _, b := range s.Branches {
			if b.ID == "" {
				return engineerr.New(engineerr.ValidationError, s.ID, "parallel branch id must not be empty", nil)
			}
			if err := validateSteps(b.Steps); err != nil {
				return err
			}
		}

		switch s.Kind {
		case KindAction:
			if s.Action == "" {
				return engineerr.New(engineerr.ValidationError, s.ID, "action step requires 'action'", nil)
			}
		case KindForEach, KindMap, KindFilter, KindReduce:
			if s.Items == "" {
				return engineerr.New(engineerr.ValidationError, s.ID, s.Kind.errRequiresItems(), nil)
			}
		case KindWhile:
			if s.Condition == "" {
				return engineerr.New(engineerr.ValidationError, s.ID, "while step requires 'condition'", nil)
			}
		case KindSubworkflow:
			if s.Workflow == "" {
				return engineerr.New(engineerr.ValidationError, s.ID, "subworkflow step requires 'workflow'", nil)
			}
		}
	}
	return nil
}

func (k Kind) errRequiresItems() string {
	return fmt.Sprintf("%s step requires 'items'", k)
}
