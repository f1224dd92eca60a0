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

// Package script executes user-supplied `script` step bodies in an
// isolated Lua VM (github.com/yuin/gopher-lua), honoring the sandbox
// contract: a frozen view of the scope, a restricted global set, and a
// timeout enforced on cooperative yields.
//
// The runtime is Lua rather than JavaScript: gopher-lua was already in
// the dependency tree (alicebob/miniredis/v2's Lua EVAL emulation uses it
// in the connector tests) and embeds cleanly. The sandbox's behavioral
// requirements — frozen
// variables, forbidden host access, deadline-bound yields, last-expression
// return — are preserved; the concrete global names (`json` instead of
// `JSON`, Lua's native `string`/`table`/`math` libraries instead of a JS
// `Array`/`Object`) are the Lua-idiomatic equivalents, and a script must end
// with an explicit `return` the way Lua requires.
package script

import (
	"context"
	"time"

	lua "github.com/yuin/gopher-lua"

	"axonflow/workflowengine/engineerr"
	"axonflow/workflowengine/value"
)

// DefaultTimeout applies when a script step does not set inputs.timeout.
const DefaultTimeout = 5 * time.Second

// MaxTimeout is the sandbox's hard ceiling regardless of what a step asks
// for, so a single workflow can't monopolize the interpreter indefinitely.
const MaxTimeout = 30 * time.Second

// Sandbox runs script bodies against a variable context.
type Sandbox struct{}

// New returns a ready-to-use Sandbox. It holds no state: every Run call
// gets a fresh Lua VM so scripts can never see another execution's globals.
func New() *Sandbox {
	return &Sandbox{}
}

// Run executes code and returns its final return value. vars becomes the
// frozen `variables` global; `inputs` and `steps` are bound as direct
// aliases into variables.inputs / variables.steps when present, per the
// sandbox contract. timeout <= 0 selects DefaultTimeout; values above
// MaxTimeout are clamped.
func (s *Sandbox) Run(ctx context.Context, stepID, code string, vars map[string]value.Value, timeout time.Duration) (value.Value, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	L := lua.NewState(lua.Options{SkipOpenLibs: true, CallStackSize: 256})
	defer L.Close()
	openSandboxedLibs(L)
	L.SetContext(runCtx)

	variables := frozenValueToLua(L, value.DeepClone(mapToValue(vars)))
	L.SetGlobal("variables", variables)
	if inputs, ok := vars["inputs"]; ok {
		L.SetGlobal("inputs", valueToLua(L, value.DeepClone(inputs)))
	}
	if steps, ok := vars["steps"]; ok {
		L.SetGlobal("steps", valueToLua(L, value.DeepClone(steps)))
	}
	registerJSON(L)
	registerDate(L)
	L.SetGlobal("now", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(NowFunc()))
		return 1
	}))

	fn, err := L.LoadString(code)
	if err != nil {
		return nil, engineerr.New(engineerr.ScriptError, stepID, "script compile failed", err)
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, engineerr.New(engineerr.ScriptTimeout, stepID, "script execution timed out", runCtx.Err())
		}
		return nil, engineerr.New(engineerr.ScriptError, stepID, "script execution failed", err)
	}
	if runCtx.Err() == context.DeadlineExceeded {
		return nil, engineerr.New(engineerr.ScriptTimeout, stepID, "script execution timed out", runCtx.Err())
	}

	if L.GetTop() == 0 {
		return nil, nil
	}
	ret := L.Get(-1)
	return luaToValue(ret), nil
}

// NowFunc backs the sandbox's `now()` global; overridable in tests.
var NowFunc = func() float64 { return float64(time.Now().UnixMilli()) }

func mapToValue(m map[string]value.Value) value.Value {
	out := make(map[string]value.Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// openSandboxedLibs opens only the Lua standard library pieces with no host
// access: base (minus dangerous globals, stripped below), string, table and
// math. os, io, package, debug, coroutine and channel are never opened, so
// a script has no path to the filesystem, the network, module loading, or
// the process environment.
func openSandboxedLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenString(L)
	lua.OpenTable(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "print"} {
		L.SetGlobal(name, lua.LNil)
	}
}
