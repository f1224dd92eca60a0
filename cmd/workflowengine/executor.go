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

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"axonflow/workflowengine/action"
	"axonflow/workflowengine/connectors/blobaction"
	"axonflow/workflowengine/connectors/cassandraction"
	"axonflow/workflowengine/connectors/llmaction"
	"axonflow/workflowengine/connectors/mongodb"
	"axonflow/workflowengine/connectors/redis"
	"axonflow/workflowengine/connectors/sqlaction"
	"axonflow/workflowengine/engineerr"
	"axonflow/workflowengine/policy"
	"axonflow/workflowengine/value"
	"axonflow/workflowengine/workflow"
)

// compositeExecutor is the one action.ActionExecutor the Driver is built
// with: it resolves a step's service to its registered SDKConfig.Type and
// forwards the call to whichever per-connector-family executor handles
// that type, so the engine core keeps seeing a single opaque executor
// while cmd/workflowengine fans a real request out across the reference
// connectors. Each service gets its own circuit breaker: a connector that
// keeps failing is shed for breakerResetTimeout instead of being hammered
// by every retry of every workflow that names it.
type compositeExecutor struct {
	registry action.ActionRegistry
	byType   map[string]action.ActionExecutor

	mu       sync.Mutex
	breakers map[string]*policy.CircuitBreaker
}

const (
	breakerThreshold    = 5
	breakerResetTimeout = 30 * time.Second
)

// newCompositeExecutor builds the type->executor table once per process;
// every sub-executor shares the same registry so they all resolve a
// service's SDKConfig consistently.
func newCompositeExecutor(registry action.ActionRegistry) *compositeExecutor {
	cache := redis.NewActionExecutor(registry)
	sql := sqlaction.NewActionExecutor(registry)
	docs := mongodb.NewActionExecutor(registry)
	wide := cassandraction.NewActionExecutor(registry)
	blob := blobaction.NewActionExecutor(registry)
	llm := llmaction.NewActionExecutor(registry)

	return &compositeExecutor{
		registry: registry,
		breakers: map[string]*policy.CircuitBreaker{},
		byType: map[string]action.ActionExecutor{
			"redis":      cache,
			"cache":      cache,
			"postgres":   sql,
			"postgresql": sql,
			"mysql":      sql,
			"mongodb":    docs,
			"cassandra":  wide,
			"s3":         blob,
			"gcs":        blob,
			"azureblob":  blob,
			"azure_blob": blob,
			"azure":      blob,
			"bedrock":    llm,
			"llm":        llm,
		},
	}
}

func (c *compositeExecutor) Execute(ctx context.Context, step *workflow.Step, inputs map[string]value.Value, signal *action.CancelSignal) (value.Value, error) {
	service, _ := action.SplitServiceMethod(step.Action)
	cfg, ok := c.registry.Resolve(service)
	if !ok {
		return nil, engineerr.New(engineerr.ActionError, step.ID, fmt.Sprintf("no tool configured for service %q", service), nil)
	}
	exec, ok := c.byType[cfg.Type]
	if !ok {
		return nil, engineerr.New(engineerr.ActionError, step.ID, fmt.Sprintf("no connector wired for tool type %q", cfg.Type), nil)
	}

	breaker := c.breakerFor(service)
	if !breaker.Allow() {
		return nil, engineerr.New(engineerr.ActionError, step.ID, fmt.Sprintf("service %q circuit open, shedding call", service), nil)
	}
	out, err := exec.Execute(ctx, step, inputs, signal)
	if err != nil {
		breaker.RecordFailure()
		return nil, err
	}
	breaker.RecordSuccess()
	return out, nil
}

func (c *compositeExecutor) breakerFor(service string) *policy.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.breakers[service]
	if !ok {
		b = policy.NewCircuitBreaker(breakerThreshold, breakerResetTimeout)
		c.breakers[service] = b
	}
	return b
}
