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

// Package workflow holds the parsed-workflow data model: the tagged-variant
// Step algebra, the document envelope, and the result/ledger shapes the
// driver produces.
package workflow

import (
	"axonflow/workflowengine/policy"
	"axonflow/workflowengine/value"
)

// Kind tags which interpreter case a Step dispatches to.
type Kind string

const (
	KindAction      Kind = "action"
	KindScript      Kind = "script"
	KindIf          Kind = "if"
	KindSwitch      Kind = "switch"
	KindForEach     Kind = "for_each"
	KindWhile       Kind = "while"
	KindParallel    Kind = "parallel"
	KindTry         Kind = "try"
	KindMap         Kind = "map"
	KindFilter      Kind = "filter"
	KindReduce      Kind = "reduce"
	KindSubworkflow Kind = "subworkflow"
)

// Step is the tagged-variant node of the step algebra. Only the
// fields relevant to Kind are populated by the loader; the interpreter
// switches on Kind and reads the matching fields.
type Step struct {
	ID             string
	Name           string
	Kind           Kind
	Condition      string // expression, evaluated for every kind via the common pre-flight
	ErrorHandling  policy.Policy
	TimeoutSeconds int
	OutputVariable string
	Inputs         map[string]value.Value // expression-or-value; expressions are plain strings containing {{ }}

	// action
	Action string

	// if
	Then []Step
	Else []Step

	// switch
	Expression string
	Cases      map[string][]Step
	Default    []Step

	// for_each / map / filter / reduce
	Items               string // expression
	ItemVariable        string
	IndexVariable       string
	AccumulatorVariable string
	InitialValue        value.Value
	Steps               []Step

	// while
	MaxIterations int

	// parallel
	Branches      []Branch
	MaxConcurrent int
	OnError       string // "stop" | "continue"

	// try
	Try     []Step
	Catch   []Step
	Finally []Step

	// subworkflow
	Workflow string
}

// Branch is one concurrently-executed arm of a parallel step.
type Branch struct {
	ID    string
	Steps []Step
}

// InputSpec declares one workflow-level input.
type InputSpec struct {
	Type     string
	Default  value.Value
	Required bool
}

// Metadata is the `workflow: {...}` envelope header.
type Metadata struct {
	ID          string
	Name        string
	Description string
}

// Workflow is the fully-parsed document the driver executes. It is
// treated as read-only for the duration of an execution.
type Workflow struct {
	Meta   Metadata
	Inputs map[string]InputSpec
	Tools  map[string]value.Value
	Steps  []Step
}
