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

package redis

import (
	"context"
	"fmt"

	"axonflow/workflowengine/connectors/base"
	"axonflow/workflowengine/action"
	"axonflow/workflowengine/connectors/bridge"
	"axonflow/workflowengine/engineerr"
	"axonflow/workflowengine/value"
	"axonflow/workflowengine/workflow"
)

// ActionExecutor implements action.ActionExecutor for "cache.*" action
// steps, dispatching cache.get/cache.set/cache.incr onto a RedisConnector
// resolved and connected through the ActionRegistry, so an action step
// reaches real Redis through the same base.Connector Query/Execute
// surface the MCP side already exposes.
type ActionExecutor struct {
	Registry action.ActionRegistry
	lazy     map[string]*bridge.LazyConnector
}

func NewActionExecutor(registry action.ActionRegistry) *ActionExecutor {
	return &ActionExecutor{Registry: registry, lazy: make(map[string]*bridge.LazyConnector)}
}

func (e *ActionExecutor) Execute(ctx context.Context, step *workflow.Step, inputs map[string]value.Value, signal *action.CancelSignal) (value.Value, error) {
	service, _ := action.SplitServiceMethod(step.Action)
	method := bridge.StepMethod(step)

	sdkCfg, err := bridge.ResolveConfig(e.Registry, service)
	if err != nil {
		return nil, err
	}

	lazy, ok := e.lazy[service]
	if !ok {
		lazy = bridge.NewLazyConnector(NewRedisConnector())
		e.lazy[service] = lazy
	}
	conn, err := lazy.Ensure(ctx, step.ID, bridge.ConnectorConfigFrom(service, sdkCfg))
	if err != nil {
		return nil, err
	}

	if signal != nil && signal.IsCancelled() {
		return nil, engineerr.New(engineerr.CancelledError, step.ID, "cancelled before redis call", nil)
	}

	switch method {
	case "get":
		res, err := conn.Query(ctx, &base.Query{Statement: "GET", Parameters: inputs})
		if err != nil {
			return nil, engineerr.New(engineerr.ActionError, step.ID, "redis GET failed", err)
		}
		rows := bridge.RowsToValue(res.Rows)
		if len(rows) == 1 {
			return rows[0], nil
		}
		return rows, nil
	case "set":
		res, err := conn.Execute(ctx, &base.Command{Action: "SET", Parameters: inputs})
		if err != nil {
			return nil, engineerr.New(engineerr.ActionError, step.ID, "redis SET failed", err)
		}
		return commandResultValue(res), nil
	case "incr":
		res, err := conn.Execute(ctx, &base.Command{Action: "INCR", Parameters: inputs})
		if err != nil {
			return nil, engineerr.New(engineerr.ActionError, step.ID, "redis INCR failed", err)
		}
		return commandResultValue(res), nil
	default:
		return nil, engineerr.New(engineerr.ActionError, step.ID, fmt.Sprintf("redis connector has no method %q", method), nil)
	}
}

func commandResultValue(res *base.CommandResult) value.Value {
	return map[string]value.Value{
		"success":       res.Success,
		"rows_affected": float64(res.RowsAffected),
		"message":       res.Message,
	}
}
