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

// Package engineerr is the error taxonomy shared by every layer of the
// engine, modeled on connectors/base.ConnectorError: every kind carries a
// human message, an optional cause, and unwraps to it.
package engineerr

import "fmt"

// Kind tags which taxonomy bucket an Error belongs to.
type Kind string

const (
	ValidationError      Kind = "ValidationError"
	ExpressionError      Kind = "ExpressionError"
	ScriptError          Kind = "ScriptError"
	ScriptTimeout        Kind = "ScriptTimeout"
	ActionError          Kind = "ActionError"
	TypeError            Kind = "TypeError"
	TimeoutError         Kind = "TimeoutError"
	CancelledError       Kind = "CancelledError"
	MaxIterationsReached Kind = "MaxIterationsReached"
)

// Error is the engine-wide error value. StepID is empty for workflow-level
// (validation) errors.
type Error struct {
	Kind    Kind
	StepID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.StepID != "" {
		prefix = prefix + "[" + e.StepID + "]"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, engineerr.ScriptTimeout) style matching against
// a bare Kind value by wrapping it transiently.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, stepID, message string, cause error) *Error {
	return &Error{Kind: kind, StepID: stepID, Message: message, Cause: cause}
}

// Retryable reports whether a policy's retry loop should attempt again for
// this error kind. CancelledError and ValidationError are never retried;
// MaxIterationsReached is not an error at all and never reaches here.
func Retryable(err error) bool {
	var e *Error
	if as(err, &e) {
		switch e.Kind {
		case CancelledError, ValidationError:
			return false
		}
	}
	return true
}

func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
