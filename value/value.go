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

// Package value implements the JSON-shaped Value model shared by the
// scope stack, the expression evaluator and the script sandbox: null, bool,
// number, string, ordered sequences and string-keyed mappings.
package value

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Value is any of the JSON-shaped kinds the engine passes around:
// nil, bool, float64, string, []interface{} or map[string]interface{}.
// Numbers are always float64 so that a round trip through JSON never
// changes kind.
type Value = interface{}

// IsNull reports whether v is the null value (nil or untyped nil).
func IsNull(v Value) bool {
	return v == nil
}

// IsEmpty implements the `is_empty` predicate: true for null, "", an empty
// sequence or an empty mapping.
func IsEmpty(v Value) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []Value:
		return len(t) == 0
	case map[string]Value:
		return len(t) == 0
	default:
		return false
	}
}

// Truthy implements the engine-wide truthiness rule used by `if`/`while`
// conditions and boolean filters: null/0/""/empty-sequence/empty-mapping/
// false are false, everything else is true.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		return t != ""
	case []Value:
		return len(t) != 0
	case map[string]Value:
		return len(t) != 0
	default:
		return true
	}
}

// DeepClone produces an immutable-in-practice copy of v: every mapping and
// sequence is copied so no two Values emerging from DeepClone can share
// mutable sub-structure. This is the boundary primitive used whenever a
// Value crosses into a script sandbox or a parallel branch fork.
func DeepClone(v Value) Value {
	switch t := v.(type) {
	case []Value:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = DeepClone(e)
		}
		return out
	case map[string]Value:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			out[k] = DeepClone(e)
		}
		return out
	default:
		return t
	}
}

// Equal reports structural equality between two Values.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case []Value:
		bv, ok := b.([]Value)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]Value:
		bv, ok := b.(map[string]Value)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, e := range av {
			be, ok := bv[k]
			if !ok || !Equal(e, be) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// ToJSON serializes a Value to its canonical JSON text, with mapping keys
// sorted so output is deterministic regardless of Go map iteration order.
func ToJSON(v Value) (string, error) {
	b, err := json.Marshal(normalizeForJSON(v))
	if err != nil {
		return "", fmt.Errorf("value: to_json: %w", err)
	}
	return string(b), nil
}

// FromJSON parses JSON text into a Value using the engine's kinds
// ([]Value / map[string]Value instead of encoding/json's default
// []interface{} / map[string]interface{}, which are the same underlying
// types aliased by Value).
func FromJSON(text string) (Value, error) {
	var raw interface{}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("value: parse_json: %w", err)
	}
	return normalizeFromJSON(raw), nil
}

func normalizeFromJSON(raw interface{}) Value {
	switch t := raw.(type) {
	case json.Number:
		f, _ := t.Float64()
		return f
	case []interface{}:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = normalizeFromJSON(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			out[k] = normalizeFromJSON(e)
		}
		return out
	default:
		return t
	}
}

// normalizeForJSON walks a Value tree and sorts mapping keys by producing
// an ordered structure json.Marshal already handles deterministically for
// map[string]interface{} (Go's encoding/json sorts map keys on marshal), so
// this mostly exists to make the intent explicit and to deep-clone through
// nested value.Value without leaking engine-only wrapper types.
func normalizeForJSON(v Value) interface{} {
	switch t := v.(type) {
	case []Value:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalizeForJSON(e)
		}
		return out
	case map[string]Value:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = normalizeForJSON(e)
		}
		return out
	default:
		return t
	}
}

// SortedKeys returns a mapping's keys in sorted order; used by the `keys`
// and `entries` filters so their output is deterministic.
func SortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AsString renders a Value the way string concatenation in a mixed
// template needs: strings pass through unchanged, everything else is
// JSON-stringified except null, which becomes "".
func AsString(v Value) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return formatNumber(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		s, err := ToJSON(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return s
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
