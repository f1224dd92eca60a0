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

// Node is a parsed expression tree node.
type Node interface{}

// Literal is a number, string or bool literal.
type Literal struct{ Value interface{} }

// Ident is a bare identifier (possibly shadowed by a dotted path that
// follows via PathAccess).
type Ident struct{ Name string }

// PathAccess is `base.field` or `base[index]`, chained.
type PathAccess struct {
	Base Node
	Key  string
	Idx  Node // non-nil when this is an index access, Key used otherwise
}

// Unary is `not x` / `-x`.
type Unary struct {
	Op string
	X  Node
}

// Binary is a binary operator application.
type Binary struct {
	Op          string
	Left, Right Node
}

// Ternary is `cond ? a : b`.
type Ternary struct {
	Cond, Then, Else Node
}

// FilterCall is `x | name(args...)` or bare `x | name`.
type FilterCall struct {
	Target Node
	Name   string
	Args   []Node
}

// Logical is `and`/`or` keyword form (distinct from && / || tokens, both
// accepted by the grammar).
type Logical struct {
	Op          string // "and" | "or"
	Left, Right Node
}

// Not is the `not x` keyword form.
type Not struct{ X Node }
