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

// Package loader decodes the YAML/JSON workflow document into the
// workflow.Workflow tagged-variant model with gopkg.in/yaml.v3. It is the
// one place that knows the document's wire
// field names (snake_case, kind-specific step shapes); everything past
// FromBytes deals only in workflow.Workflow/Step.
package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"axonflow/workflowengine/policy"
	"axonflow/workflowengine/value"
	"axonflow/workflowengine/workflow"
)

// FileLoader implements engine.WorkflowLoader by resolving a subworkflow
// step's `workflow` path relative to Root and decoding it from disk.
// gopkg.in/yaml.v3 parses JSON too (JSON is a YAML subset), so a single
// decoder serves both document flavors.
type FileLoader struct {
	Root string
}

func NewFileLoader(root string) *FileLoader {
	return &FileLoader{Root: root}
}

// Load reads and decodes the workflow document at path (resolved under
// Root when path is relative), then validates it per workflow.Validate
// before handing it to the interpreter.
func (l *FileLoader) Load(path string) (*workflow.Workflow, error) {
	full := path
	if l.Root != "" && !isAbs(path) {
		full = l.Root + "/" + path
	}
	raw, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("loader: reading %s: %w", full, err)
	}
	return FromBytes(raw)
}

func isAbs(path string) bool {
	return len(path) > 0 && path[0] == '/'
}

// FromBytes decodes a single workflow document and validates it.
func FromBytes(raw []byte) (*workflow.Workflow, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("loader: parsing workflow document: %w", err)
	}
	w, err := doc.toWorkflow()
	if err != nil {
		return nil, err
	}
	if err := workflow.Validate(w); err != nil {
		return nil, err
	}
	return w, nil
}

// document is the wire envelope:
//
//	{ workflow: { id, name, description? },
//	  inputs?: map<name, {type, default?, required?}>,
//	  tools?: map<service, SDKConfig>,
//	  steps: Step[] }
type document struct {
	Workflow workflowHeader          `yaml:"workflow"`
	Inputs   map[string]inputSpecDoc `yaml:"inputs"`
	Tools    map[string]value.Value  `yaml:"tools"`
	Steps    []stepDoc               `yaml:"steps"`
}

type workflowHeader struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type inputSpecDoc struct {
	Type     string      `yaml:"type"`
	Default  value.Value `yaml:"default"`
	Required bool        `yaml:"required"`
}

type policyDoc struct {
	Action       string `yaml:"action"`
	MaxRetries   int    `yaml:"max_retries"`
	RetryDelayMs int    `yaml:"retry_delay_ms"`
	Backoff      string `yaml:"backoff"`
	FallbackStep string `yaml:"fallback_step"`
}

type branchDoc struct {
	ID    string    `yaml:"id"`
	Steps []stepDoc `yaml:"steps"`
}

// stepDoc is the wire shape of every step kind; only the fields relevant
// to a given `kind` are populated by the author, mirroring workflow.Step.
type stepDoc struct {
	ID             string                 `yaml:"id"`
	Name           string                 `yaml:"name"`
	Kind           string                 `yaml:"kind"`
	Condition      string                 `yaml:"condition"`
	ErrorHandling  *policyDoc             `yaml:"error_handling"`
	TimeoutSeconds int                    `yaml:"timeout_seconds"`
	OutputVariable string                 `yaml:"output_variable"`
	Inputs         map[string]value.Value `yaml:"inputs"`

	Action string `yaml:"action"`

	Then []stepDoc `yaml:"then"`
	Else []stepDoc `yaml:"else"`

	Expression string               `yaml:"expression"`
	Cases      map[string][]stepDoc `yaml:"cases"`
	Default    []stepDoc            `yaml:"default"`

	Items               string      `yaml:"items"`
	ItemVariable        string      `yaml:"item_variable"`
	IndexVariable       string      `yaml:"index_variable"`
	AccumulatorVariable string      `yaml:"accumulator_variable"`
	InitialValue        value.Value `yaml:"initial_value"`
	Steps               []stepDoc   `yaml:"steps"`

	MaxIterations int `yaml:"max_iterations"`

	Branches      []branchDoc `yaml:"branches"`
	MaxConcurrent int         `yaml:"max_concurrent"`
	OnError       string      `yaml:"on_error"`

	Try     []stepDoc `yaml:"try"`
	Catch   []stepDoc `yaml:"catch"`
	Finally []stepDoc `yaml:"finally"`

	SubWorkflow string `yaml:"workflow"`
}

func (d document) toWorkflow() (*workflow.Workflow, error) {
	steps, err := toSteps(d.Steps)
	if err != nil {
		return nil, err
	}
	inputs := make(map[string]workflow.InputSpec, len(d.Inputs))
	for name, in := range d.Inputs {
		inputs[name] = workflow.InputSpec{
			Type:     in.Type,
			Default:  in.Default,
			Required: in.Required,
		}
	}
	return &workflow.Workflow{
		Meta: workflow.Metadata{
			ID:          d.Workflow.ID,
			Name:        d.Workflow.Name,
			Description: d.Workflow.Description,
		},
		Inputs: inputs,
		Tools:  d.Tools,
		Steps:  steps,
	}, nil
}

func toSteps(docs []stepDoc) ([]workflow.Step, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	out := make([]workflow.Step, len(docs))
	for i, d := range docs {
		s, err := d.toStep()
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (d stepDoc) toStep() (workflow.Step, error) {
	then, err := toSteps(d.Then)
	if err != nil {
		return workflow.Step{}, err
	}
	els, err := toSteps(d.Else)
	if err != nil {
		return workflow.Step{}, err
	}
	def, err := toSteps(d.Default)
	if err != nil {
		return workflow.Step{}, err
	}
	steps, err := toSteps(d.Steps)
	if err != nil {
		return workflow.Step{}, err
	}
	try, err := toSteps(d.Try)
	if err != nil {
		return workflow.Step{}, err
	}
	catch, err := toSteps(d.Catch)
	if err != nil {
		return workflow.Step{}, err
	}
	fin, err := toSteps(d.Finally)
	if err != nil {
		return workflow.Step{}, err
	}

	var cases map[string][]workflow.Step
	if len(d.Cases) > 0 {
		cases = make(map[string][]workflow.Step, len(d.Cases))
		for k, v := range d.Cases {
			cs, err := toSteps(v)
			if err != nil {
				return workflow.Step{}, err
			}
			cases[k] = cs
		}
	}

	var branches []workflow.Branch
	if len(d.Branches) > 0 {
		branches = make([]workflow.Branch, len(d.Branches))
		for i, b := range d.Branches {
			bs, err := toSteps(b.Steps)
			if err != nil {
				return workflow.Step{}, err
			}
			branches[i] = workflow.Branch{ID: b.ID, Steps: bs}
		}
	}

	return workflow.Step{
		ID:             d.ID,
		Name:           d.Name,
		Kind:           workflow.Kind(d.Kind),
		Condition:      d.Condition,
		ErrorHandling:  toPolicy(d.ErrorHandling),
		TimeoutSeconds: d.TimeoutSeconds,
		OutputVariable: d.OutputVariable,
		Inputs:         d.Inputs,

		Action: d.Action,

		Then: then,
		Else: els,

		Expression: d.Expression,
		Cases:      cases,
		Default:    def,

		Items:               d.Items,
		ItemVariable:        d.ItemVariable,
		IndexVariable:       d.IndexVariable,
		AccumulatorVariable: d.AccumulatorVariable,
		InitialValue:        d.InitialValue,
		Steps:               steps,

		MaxIterations: d.MaxIterations,

		Branches:      branches,
		MaxConcurrent: d.MaxConcurrent,
		OnError:       d.OnError,

		Try:     try,
		Catch:   catch,
		Finally: fin,

		Workflow: d.SubWorkflow,
	}, nil
}

func toPolicy(d *policyDoc) policy.Policy {
	if d == nil {
		return policy.Policy{}
	}
	return policy.Policy{
		Action:       policy.Action(d.Action),
		MaxRetries:   d.MaxRetries,
		RetryDelayMs: d.RetryDelayMs,
		Backoff:      policy.Backoff(d.Backoff),
		FallbackStep: d.FallbackStep,
	}
}
