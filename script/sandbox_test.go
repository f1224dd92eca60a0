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

package script

import (
	"context"
	"strings"
	"testing"
	"time"

	"axonflow/workflowengine/engineerr"
	"axonflow/workflowengine/value"
)

func TestRunReturnsLastValue(t *testing.T) {
	s := New()
	v, err := s.Run(context.Background(), "step-1", "return 1 + 2", nil, 0)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if v != float64(3) {
		t.Fatalf("Run() = %v, want 3", v)
	}
}

func TestRunSeesVariables(t *testing.T) {
	s := New()
	vars := map[string]value.Value{
		"inputs": map[string]value.Value{"name": "Ada"},
	}
	v, err := s.Run(context.Background(), "step-1", `return inputs.name`, vars, 0)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if v != "Ada" {
		t.Fatalf("Run() = %v, want Ada", v)
	}
}

func TestVariablesAreFrozen(t *testing.T) {
	s := New()
	vars := map[string]value.Value{
		"inputs": map[string]value.Value{"name": "Ada"},
	}
	_, err := s.Run(context.Background(), "step-1", `variables.inputs.name = "mutated"; return variables.inputs.name`, vars, 0)
	if err == nil {
		t.Fatal("expected an error mutating a frozen variables table")
	}
}

func TestForbiddenGlobalsAreAbsent(t *testing.T) {
	s := New()
	for _, body := range []string{
		`return os.getenv("PATH")`,
		`return io.open("/etc/passwd")`,
		`return require("socket")`,
	} {
		_, err := s.Run(context.Background(), "step-1", body, nil, 0)
		if err == nil {
			t.Fatalf("expected forbidden global access to fail for %q", body)
		}
	}
}

func TestScriptTimeout(t *testing.T) {
	s := New()
	_, err := s.Run(context.Background(), "step-1", `
		local i = 0
		while true do
			i = i + 1
		end
	`, nil, 20*time.Millisecond)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	var engErr *engineerr.Error
	if e, ok := err.(*engineerr.Error); ok {
		engErr = e
	}
	if engErr == nil {
		t.Fatalf("expected *engineerr.Error, got %T", err)
	}
	if !strings.Contains(strings.ToLower(engErr.Error()), "timed out") {
		t.Fatalf("error message %q does not mention timeout", engErr.Error())
	}
}

func TestJSONRoundTrip(t *testing.T) {
	s := New()
	v, err := s.Run(context.Background(), "step-1", `
		local decoded = json.decode('{"a":1,"b":[1,2,3]}')
		return json.encode(decoded)
	`, nil, 0)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	s2, ok := v.(string)
	if !ok {
		t.Fatalf("Run() = %T, want string", v)
	}
	if s2 != `{"a":1,"b":[1,2,3]}` {
		t.Fatalf("Run() = %v, want canonical JSON", s2)
	}
}

func TestDateHelpers(t *testing.T) {
	s := New()
	v, err := s.Run(context.Background(), "step-1", `return date.format(1705276800000, "YYYY-MM-DD")`, nil, 0)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if v != "2024-01-15" {
		t.Fatalf("Run() = %v, want 2024-01-15", v)
	}
}

func TestArrayRoundTrip(t *testing.T) {
	s := New()
	vars := map[string]value.Value{
		"inputs": map[string]value.Value{
			"items": []value.Value{"a", "b", "c"},
		},
	}
	v, err := s.Run(context.Background(), "step-1", `
		local out = {}
		for i, item in ipairs(inputs.items) do
			out[i] = item
		end
		return out
	`, vars, 0)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	want := []value.Value{"a", "b", "c"}
	if !value.Equal(v, want) {
		t.Fatalf("Run() = %v, want %v", v, want)
	}
}
