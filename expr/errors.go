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

import "fmt"

// Error is a template parse/eval failure, treated as an attempt-level
// error for the step evaluating it.
type Error struct {
	Expr string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("expression error in %q: %s: %v", e.Expr, e.Msg, e.Err)
	}
	return fmt.Sprintf("expression error in %q: %s", e.Expr, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(src, msg string, cause error) *Error {
	return &Error{Expr: src, Msg: msg, Err: cause}
}
