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

// Package scope implements the engine's stacked variable-binding
// environment: a root scope seeded from workflow inputs, with a child
// pushed per loop iteration (for_each, map, filter, reduce, while) and for
// a catch block, and a forked copy per parallel branch. Try and finally
// blocks run in the enclosing frame.
package scope

import (
	"log"

	"axonflow/workflowengine/value"
)

// Reserved names cannot be bound by user code; writes to them are rejected
// at validation time and are no-ops (with a logged warning) at runtime.
var Reserved = map[string]bool{
	"inputs": true,
	"steps":  true,
	"loop":   true,
	"error":  true,
}

// Frame is one binding environment in the stack. A Frame's bindings belong
// to whichever block pushed it; the frame is discarded when that block
// exits.
type Frame struct {
	parent   *Frame
	bindings map[string]value.Value
}

// Root creates a new root frame seeded with `inputs` and an empty `steps`
// mapping.
func Root(inputs map[string]value.Value) *Frame {
	if inputs == nil {
		inputs = map[string]value.Value{}
	}
	return &Frame{
		bindings: map[string]value.Value{
			"inputs": value.Value(inputs),
			"steps":  map[string]value.Value{},
		},
	}
}

// Push creates a child frame whose lookups fall through to f.
func (f *Frame) Push() *Frame {
	return &Frame{parent: f, bindings: map[string]value.Value{}}
}

// Bind writes name in this frame (the innermost mutable scope). Writes to
// reserved names are rejected with a logged warning and otherwise
// ignored.
func (f *Frame) Bind(name string, v value.Value) {
	if Reserved[name] {
		log.Printf("[scope] WARNING: refusing to bind reserved name %q in user scope", name)
		return
	}
	f.bindings[name] = v
}

// bindInternal sets a reserved or user name without the reserved-name guard;
// used by the engine itself to maintain `steps`, `loop`, `error` and the
// for-each item/index bindings.
func (f *Frame) bindInternal(name string, v value.Value) {
	f.bindings[name] = v
}

// BindReserved exposes bindInternal to the engine package for injecting
// `steps`, `loop`, `error`, and the configured item/index variables.
func (f *Frame) BindReserved(name string, v value.Value) {
	f.bindInternal(name, v)
}

// Lookup walks from this frame outward to the root, returning the value and
// true if name is bound anywhere on the chain. Case-sensitive.
func (f *Frame) Lookup(name string) (value.Value, bool) {
	for fr := f; fr != nil; fr = fr.parent {
		if v, ok := fr.bindings[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Steps returns the live `steps` mapping, which is always bound at the
// root frame and shared (by reference) down the entire stack so every
// frame sees step results as they complete.
func (f *Frame) Steps() map[string]value.Value {
	v, _ := f.Lookup("steps")
	m, _ := v.(map[string]value.Value)
	return m
}

// RecordStep publishes a step's ledger entry into the shared `steps`
// mapping, keyed by step id, in the shape
// { status, output, error, duration_ms, attempts }.
func (f *Frame) RecordStep(stepID string, entry map[string]value.Value) {
	f.Steps()[stepID] = entry
}

// Snapshot folds the chain from root to this frame into a single flat
// mapping — the expression-evaluation context and the sandbox's frozen
// `variables` view. The result is a fresh mapping (and is deep-cloned by
// the caller before crossing a sandbox/concurrency boundary).
func (f *Frame) Snapshot() map[string]value.Value {
	var chain []*Frame
	for fr := f; fr != nil; fr = fr.parent {
		chain = append(chain, fr)
	}
	out := map[string]value.Value{}
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].bindings {
			out[k] = v
		}
	}
	return out
}

// Fork produces a copy-on-write snapshot frame for a parallel branch: a
// fresh top frame seeded with a flattened, deep-cloned copy of the current
// chain, so the branch can never observe or mutate its siblings' writes.
// The `steps` mapping is cloned along with everything else — branch-local
// step completions stay visible within the branch and are merged back
// explicitly by the concurrency coordinator after the branch joins, not
// shared live across branches.
func (f *Frame) Fork() *Frame {
	snap := f.Snapshot()
	cloned := make(map[string]value.Value, len(snap))
	for k, v := range snap {
		cloned[k] = value.DeepClone(v)
	}
	return &Frame{bindings: cloned}
}

// MergeInto merges this frame's bindings (added since it was created, i.e.
// everything except what its own push introduced is irrelevant here — the
// caller always calls this on a branch's own top frame) into dst as
// last-writer-wins on top-level keys. The reserved `inputs`/`steps`
// bindings are skipped: `steps` entries are merged key-by-key so step
// results from every branch are preserved.
func (f *Frame) MergeInto(dst *Frame) {
	for k, v := range f.bindings {
		switch k {
		case "inputs":
			continue
		case "steps":
			srcSteps, _ := v.(map[string]value.Value)
			dstSteps := dst.Steps()
			for sid, entry := range srcSteps {
				dstSteps[sid] = entry
			}
		default:
			dst.bindings[k] = v
		}
	}
}

// UserOutput returns the root frame's bindings minus `inputs` and `steps`,
// i.e. the workflow result's output record.
func (f *Frame) UserOutput() map[string]value.Value {
	out := map[string]value.Value{}
	for k, v := range f.bindings {
		if k == "inputs" || k == "steps" {
			continue
		}
		out[k] = v
	}
	return out
}
