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

package engine

import (
	"context"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"axonflow/workflowengine/engineerr"
	"axonflow/workflowengine/value"
	"axonflow/workflowengine/workflow"
)

// WorkflowLoader resolves a `subworkflow` step's `workflow` path to a
// parsed document; implemented by the loader package. Kept as an
// interface here (rather than importing loader directly) so engine never
// depends on the YAML/JSON ingest format it doesn't otherwise need.
type WorkflowLoader interface {
	Load(path string) (*workflow.Workflow, error)
}

// callerClaims is the short-lived claim a subworkflow call carries so the
// subworkflow's own audit trail can attribute its execution to the
// caller. It asserts only that one fact, nothing about the end user.
type callerClaims struct {
	jwt.RegisteredClaims
	CallerStepID string `json:"caller_step_id"`
	WorkflowID   string `json:"workflow_id"`
}

func signCallerClaim(secret []byte, workflowID, callerStepID string) (string, error) {
	if len(secret) == 0 {
		return "", nil
	}
	claims := callerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
		},
		CallerStepID: callerStepID,
		WorkflowID:   workflowID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// runSubworkflow loads the referenced workflow, runs it to completion via
// the owning Driver with a fresh root scope seeded from the resolved
// `inputs`, and adopts its final output as this step's output.
func runSubworkflow(ectx *execContext, ctx context.Context, step *workflow.Step, resolved map[string]value.Value) (value.Value, error) {
	if ectx.Loader == nil {
		return nil, engineerr.New(engineerr.ActionError, step.ID, "no workflow loader configured for subworkflow step", nil)
	}
	if ectx.Driver == nil {
		return nil, engineerr.New(engineerr.ActionError, step.ID, "subworkflow step requires a driver reference", nil)
	}

	sub, err := ectx.Loader.Load(step.Workflow)
	if err != nil {
		return nil, engineerr.New(engineerr.ValidationError, step.ID, "failed to load subworkflow", err)
	}

	if claim, err := signCallerClaim(ectx.JWTSecret, ectx.WorkflowID, step.ID); err != nil {
		log.Printf("[Workflow] WARNING: failed to sign subworkflow caller claim for step %s: %v", step.ID, err)
	} else if claim != "" {
		log.Printf("[Workflow] subworkflow %s called by step %s (claim issued)", sub.Meta.ID, step.ID)
	}

	result, err := ectx.Driver.Execute(ctx, sub, resolved, ectx.Signal)
	if err != nil {
		return nil, err
	}
	if result.Status == workflow.WorkflowFailed {
		return nil, engineerr.New(engineerr.ActionError, step.ID, "subworkflow "+sub.Meta.ID+" failed", nil)
	}
	if result.Status == workflow.WorkflowCancelled {
		return nil, engineerr.New(engineerr.CancelledError, step.ID, "subworkflow "+sub.Meta.ID+" was cancelled", nil)
	}

	out := make(map[string]value.Value, len(result.Output))
	for k, v := range result.Output {
		out[k] = v
	}
	return out, nil
}
