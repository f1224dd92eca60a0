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

package expr

import (
	"strings"

	"axonflow/workflowengine/value"
)

// fragment is either literal text or a `{{ expr }}` hole.
type fragment struct {
	text   string
	isExpr bool
	node   Node
}

// Template is a pre-scanned string containing zero or more `{{ expr }}`
// holes. A template consisting of exactly one hole and no surrounding text
// evaluates to the hole's raw Value; any other shape evaluates to a string,
// stitching evaluated holes back into the surrounding text.
type Template struct {
	raw       string
	fragments []fragment
	pureExpr  bool // exactly one fragment, and it is a hole
}

// Compile scans src for `{{ ... }}` holes and parses each one. A string with
// no holes at all is itself the template's one literal fragment.
func Compile(src string) (*Template, error) {
	t := &Template{raw: src}
	i := 0
	for i < len(src) {
		start := strings.Index(src[i:], "{{")
		if start < 0 {
			t.fragments = append(t.fragments, fragment{text: src[i:]})
			break
		}
		start += i
		if start > i {
			t.fragments = append(t.fragments, fragment{text: src[i:start]})
		}
		end := strings.Index(src[start:], "}}")
		if end < 0 {
			return nil, newError(src, "unterminated '{{' expression", nil)
		}
		end += start
		exprSrc := strings.TrimSpace(src[start+2 : end])
		node, err := Parse(exprSrc)
		if err != nil {
			return nil, newError(exprSrc, "parse failed", err)
		}
		t.fragments = append(t.fragments, fragment{text: exprSrc, isExpr: true, node: node})
		i = end + 2
	}
	if len(t.fragments) == 0 {
		t.fragments = append(t.fragments, fragment{text: ""})
	}
	t.pureExpr = len(t.fragments) == 1 && t.fragments[0].isExpr
	return t, nil
}

// Eval evaluates the compiled template against ctx. A pure `{{ expr }}`
// template (no surrounding literal text) returns the hole's raw Value,
// preserving its kind (object, sequence, number, bool). Any other shape —
// plain text, or text mixed with one or more holes — renders to a string,
// per the stringification rule in value.AsString.
func (t *Template) Eval(ctx map[string]value.Value) (value.Value, error) {
	if t.pureExpr {
		return Eval(t.fragments[0].node, ctx)
	}
	var sb strings.Builder
	for _, f := range t.fragments {
		if !f.isExpr {
			sb.WriteString(f.text)
			continue
		}
		v, err := Eval(f.node, ctx)
		if err != nil {
			return nil, err
		}
		sb.WriteString(value.AsString(v))
	}
	return sb.String(), nil
}

// EvalString compiles and evaluates src in one step, for callers (step
// validation, one-shot condition checks) that don't reuse the template.
func EvalString(src string, ctx map[string]value.Value) (value.Value, error) {
	t, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return t.Eval(ctx)
}

// HasExpr reports whether src contains at least one `{{ ... }}` hole, used
// by the loader to decide whether a string field needs template evaluation
// at all versus passing through as a literal.
func HasExpr(src string) bool {
	return strings.Contains(src, "{{") && strings.Contains(src, "}}")
}
