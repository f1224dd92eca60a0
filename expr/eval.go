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
	"fmt"

	"axonflow/workflowengine/value"
)

// Eval evaluates a parsed expression tree against a flat variable context
// (typically scope.Frame.Snapshot()).
func Eval(n Node, ctx map[string]value.Value) (value.Value, error) {
	switch t := n.(type) {
	case *Literal:
		return t.Value, nil

	case *Ident:
		v, ok := ctx[t.Name]
		if !ok {
			return nil, nil // unbound identifier resolves to null, like a missing path
		}
		return v, nil

	case *PathAccess:
		base, err := Eval(t.Base, ctx)
		if err != nil {
			return nil, err
		}
		if t.Idx != nil {
			idxV, err := Eval(t.Idx, ctx)
			if err != nil {
				return nil, err
			}
			switch key := idxV.(type) {
			case float64:
				seq, ok := base.([]value.Value)
				if !ok {
					return nil, nil
				}
				i := int(key)
				if i < 0 || i >= len(seq) {
					return nil, nil
				}
				return seq[i], nil
			case string:
				m, ok := base.(map[string]value.Value)
				if !ok {
					return nil, nil
				}
				return m[key], nil
			default:
				return nil, nil
			}
		}
		m, ok := base.(map[string]value.Value)
		if !ok {
			return nil, nil
		}
		return m[t.Key], nil

	case *Unary:
		x, err := Eval(t.X, ctx)
		if err != nil {
			return nil, err
		}
		f, ok := asNumber(x)
		if !ok {
			return nil, newError(t.Op, "unary '-' applied to non-number", nil)
		}
		return -f, nil

	case *Not:
		x, err := Eval(t.X, ctx)
		if err != nil {
			return nil, err
		}
		return !value.Truthy(x), nil

	case *Logical:
		left, err := Eval(t.Left, ctx)
		if err != nil {
			return nil, err
		}
		if t.Op == "and" && !value.Truthy(left) {
			return false, nil
		}
		if t.Op == "or" && value.Truthy(left) {
			return true, nil
		}
		right, err := Eval(t.Right, ctx)
		if err != nil {
			return nil, err
		}
		return value.Truthy(right), nil

	case *Ternary:
		cond, err := Eval(t.Cond, ctx)
		if err != nil {
			return nil, err
		}
		if value.Truthy(cond) {
			return Eval(t.Then, ctx)
		}
		return Eval(t.Else, ctx)

	case *Binary:
		return evalBinary(t, ctx)

	case *FilterCall:
		return evalFilterCall(t, ctx)
	}
	return nil, fmt.Errorf("expr: unknown node type %T", n)
}

func evalBinary(t *Binary, ctx map[string]value.Value) (value.Value, error) {
	left, err := Eval(t.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := Eval(t.Right, ctx)
	if err != nil {
		return nil, err
	}

	switch t.Op {
	case "==":
		return value.Equal(left, right), nil
	case "!=":
		return !value.Equal(left, right), nil
	}

	// Arithmetic and relational operators accept numbers; '+' also
	// concatenates when either side is a string.
	if t.Op == "+" {
		ls, lok := left.(string)
		rs, rok := right.(string)
		if lok || rok {
			if !lok {
				ls = value.AsString(left)
			}
			if !rok {
				rs = value.AsString(right)
			}
			return ls + rs, nil
		}
	}

	lf, lok := asNumber(left)
	rf, rok := asNumber(right)
	if !lok || !rok {
		return nil, newError(t.Op, "operator requires numeric operands", nil)
	}

	switch t.Op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, newError(t.Op, "division by zero", nil)
		}
		return lf / rf, nil
	case "%":
		if rf == 0 {
			return nil, newError(t.Op, "modulo by zero", nil)
		}
		return float64(int64(lf) % int64(rf)), nil
	case "<":
		return lf < rf, nil
	case ">":
		return lf > rf, nil
	case "<=":
		return lf <= rf, nil
	case ">=":
		return lf >= rf, nil
	}
	return nil, fmt.Errorf("expr: unknown binary operator %q", t.Op)
}

func asNumber(v value.Value) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	}
	return 0, false
}
