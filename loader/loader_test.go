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

package loader

import (
	"os"
	"path/filepath"
	"testing"

	"axonflow/workflowengine/policy"
	"axonflow/workflowengine/workflow"
)

const sampleDoc = `
workflow:
  id: greet-user
  name: Greet user
  description: says hello and retries a flaky lookup

inputs:
  name:
    type: string
    required: true
  greeting:
    type: string
    default: "hello"

steps:
  - id: lookup
    kind: action
    action: directory.lookup
    output_variable: profile
    error_handling:
      action: retry
      max_retries: 3
      retry_delay_ms: 10
      backoff: fixed
    inputs:
      user: "{{ inputs.name }}"

  - id: branch
    kind: if
    condition: "{{ profile.active }}"
    then:
      - id: greet-active
        kind: script
        output_variable: message
        code: "return 'hi ' .. variables.profile.name"
    else:
      - id: greet-inactive
        kind: script
        output_variable: message
        code: "return 'inactive'"

  - id: parallel-fanout
    kind: parallel
    max_concurrent: 2
    on_error: continue
    branches:
      - id: branch-a
        steps:
          - id: a1
            kind: action
            action: svc.a
      - id: branch-b
        steps:
          - id: b1
            kind: action
            action: svc.b
`

func TestFromBytesParsesEnvelope(t *testing.T) {
	w, err := FromBytes([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}
	if w.Meta.ID != "greet-user" {
		t.Errorf("expected workflow id greet-user, got %q", w.Meta.ID)
	}
	if len(w.Steps) != 3 {
		t.Fatalf("expected 3 top-level steps, got %d", len(w.Steps))
	}

	in, ok := w.Inputs["greeting"]
	if !ok {
		t.Fatal("expected input 'greeting' to be present")
	}
	if in.Default != "hello" {
		t.Errorf("expected default 'hello', got %v", in.Default)
	}
	if !w.Inputs["name"].Required {
		t.Error("expected input 'name' to be required")
	}
}

func TestFromBytesDecodesErrorPolicy(t *testing.T) {
	w, err := FromBytes([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}
	lookup := w.Steps[0]
	if lookup.Kind != workflow.KindAction {
		t.Fatalf("expected kind action, got %s", lookup.Kind)
	}
	if lookup.ErrorHandling.Action != policy.ActionRetry {
		t.Errorf("expected retry action, got %s", lookup.ErrorHandling.Action)
	}
	if lookup.ErrorHandling.MaxRetries != 3 {
		t.Errorf("expected max_retries 3, got %d", lookup.ErrorHandling.MaxRetries)
	}
	if lookup.ErrorHandling.Backoff != policy.BackoffFixed {
		t.Errorf("expected fixed backoff, got %s", lookup.ErrorHandling.Backoff)
	}
}

func TestFromBytesDecodesIfBranches(t *testing.T) {
	w, err := FromBytes([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}
	branch := w.Steps[1]
	if branch.Kind != workflow.KindIf {
		t.Fatalf("expected kind if, got %s", branch.Kind)
	}
	if len(branch.Then) != 1 || len(branch.Else) != 1 {
		t.Fatalf("expected one step on each side of the branch, got then=%d else=%d", len(branch.Then), len(branch.Else))
	}
	if branch.Then[0].ID != "greet-active" {
		t.Errorf("expected then[0].id greet-active, got %s", branch.Then[0].ID)
	}
}

func TestFromBytesDecodesParallelBranches(t *testing.T) {
	w, err := FromBytes([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}
	p := w.Steps[2]
	if p.Kind != workflow.KindParallel {
		t.Fatalf("expected kind parallel, got %s", p.Kind)
	}
	if p.OnError != "continue" {
		t.Errorf("expected on_error continue, got %s", p.OnError)
	}
	if len(p.Branches) != 2 {
		t.Fatalf("expected 2 branches, got %d", len(p.Branches))
	}
	if p.Branches[0].ID != "branch-a" || p.Branches[0].Steps[0].ID != "a1" {
		t.Errorf("unexpected first branch shape: %+v", p.Branches[0])
	}
}

func TestFromBytesMissingWorkflowIDFailsValidation(t *testing.T) {
	_, err := FromBytes([]byte("steps:\n  - id: s1\n    kind: action\n    action: svc.m\n"))
	if err == nil {
		t.Fatal("expected a validation error for a missing workflow.id")
	}
}

func TestFromBytesDuplicateStepIDFailsValidation(t *testing.T) {
	doc := `
workflow:
  id: dup-ids
steps:
  - id: s1
    kind: action
    action: svc.m
  - id: s1
    kind: action
    action: svc.m
`
	_, err := FromBytes([]byte(doc))
	if err == nil {
		t.Fatal("expected a validation error for duplicate sibling step ids")
	}
}

func TestFileLoaderLoadResolvesRelativePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "child.yaml")
	if err := os.WriteFile(path, []byte("workflow:\n  id: child\nsteps:\n  - id: s1\n    kind: action\n    action: svc.m\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	l := NewFileLoader(dir)
	w, err := l.Load("child.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if w.Meta.ID != "child" {
		t.Errorf("expected workflow id child, got %q", w.Meta.ID)
	}
}

func TestFileLoaderLoadMissingFile(t *testing.T) {
	l := NewFileLoader(t.TempDir())
	if _, err := l.Load("does-not-exist.yaml"); err == nil {
		t.Fatal("expected an error for a missing workflow file")
	}
}
