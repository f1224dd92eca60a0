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

package value

import "testing"

func TestTruthy(t *testing.T) {
	falsy := []Value{nil, false, float64(0), "", []Value{}, map[string]Value{}}
	for _, v := range falsy {
		if Truthy(v) {
			t.Errorf("Truthy(%#v) = true, want false", v)
		}
	}
	truthy := []Value{true, float64(1), float64(-1), "x", []Value{nil}, map[string]Value{"k": nil}}
	for _, v := range truthy {
		if !Truthy(v) {
			t.Errorf("Truthy(%#v) = false, want true", v)
		}
	}
}

func TestIsEmpty(t *testing.T) {
	if !IsEmpty(nil) || !IsEmpty("") || !IsEmpty([]Value{}) || !IsEmpty(map[string]Value{}) {
		t.Fatal("expected null/empty string/sequence/mapping to be empty")
	}
	if IsEmpty(float64(0)) || IsEmpty(false) {
		t.Fatal("0 and false are not empty, only falsy")
	}
}

func TestDeepCloneIsolatesSubstructure(t *testing.T) {
	orig := map[string]Value{
		"list": []Value{float64(1), map[string]Value{"k": "v"}},
	}
	clone := DeepClone(orig).(map[string]Value)

	clone["list"].([]Value)[1].(map[string]Value)["k"] = "mutated"
	if orig["list"].([]Value)[1].(map[string]Value)["k"] != "v" {
		t.Fatal("mutating the clone leaked into the original")
	}
	if !Equal(DeepClone(orig), orig) {
		t.Fatal("clone is not structurally equal to the original")
	}
}

func TestEqual(t *testing.T) {
	a := map[string]Value{"n": float64(1), "seq": []Value{"a", "b"}}
	b := map[string]Value{"n": float64(1), "seq": []Value{"a", "b"}}
	if !Equal(a, b) {
		t.Fatal("structurally identical mappings compare unequal")
	}
	b["seq"].([]Value)[1] = "c"
	if Equal(a, b) {
		t.Fatal("differing mappings compare equal")
	}
	if Equal([]Value{float64(1)}, []Value{float64(1), float64(2)}) {
		t.Fatal("sequences of different length compare equal")
	}
}

// TestJSONRoundTrip checks that a JSON round trip preserves the kind of
// every value: integers stay numbers, strings stay strings, null stays
// null.
func TestJSONRoundTrip(t *testing.T) {
	orig := map[string]Value{
		"n":    float64(42),
		"f":    1.5,
		"s":    "text",
		"b":    true,
		"null": nil,
		"seq":  []Value{float64(1), "two", nil},
	}
	text, err := ToJSON(orig)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	back, err := FromJSON(text)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if !Equal(orig, back) {
		t.Fatalf("round trip changed the value: %s -> %#v", text, back)
	}
}

func TestAsString(t *testing.T) {
	cases := []struct {
		in   Value
		want string
	}{
		{nil, ""},
		{"plain", "plain"},
		{float64(3), "3"},
		{2.5, "2.5"},
		{true, "true"},
		{[]Value{float64(1), float64(2)}, "[1,2]"},
	}
	for _, c := range cases {
		if got := AsString(c.in); got != c.want {
			t.Errorf("AsString(%#v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPathGet(t *testing.T) {
	root := map[string]Value{
		"a": map[string]Value{
			"b": []Value{
				"zero",
				"one",
				map[string]Value{"c": "deep"},
			},
		},
	}
	if got := Get(root, "a.b[2].c"); got != "deep" {
		t.Fatalf("Get(a.b[2].c) = %#v, want \"deep\"", got)
	}
	if got := Get(root, "a.b[1]"); got != "one" {
		t.Fatalf("Get(a.b[1]) = %#v, want \"one\"", got)
	}
	if got := Get(root, "a.missing.anything"); got != nil {
		t.Fatalf("missing intermediate should resolve to nil, got %#v", got)
	}
	if got := Get(root, "a.b[99]"); got != nil {
		t.Fatalf("out-of-range index should resolve to nil, got %#v", got)
	}
}

func TestPathSet(t *testing.T) {
	root := map[string]Value{}
	if !Set(root, "a.b.c", float64(7)) {
		t.Fatal("Set should create intermediate mappings")
	}
	if got := Get(root, "a.b.c"); got != float64(7) {
		t.Fatalf("Get after Set = %#v, want 7", got)
	}
	if Set(root, "a.b.c[0]", "x") {
		t.Fatal("Set through an index segment should fail")
	}
}
