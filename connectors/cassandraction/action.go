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

// Package cassandraction implements action.ActionExecutor for
// "wide.query"/"wide.execute" action steps over Cassandra, passing the
// step's CQL statement straight through to CassandraConnector.Query/
// Execute the same way sqlaction passes SQL through to postgres/mysql.
// Built on connectors/cassandra/connector.go.
package cassandraction

import (
	"context"
	"fmt"

	"axonflow/workflowengine/connectors/base"
	"axonflow/workflowengine/action"
	"axonflow/workflowengine/connectors/bridge"
	"axonflow/workflowengine/connectors/cassandra"
	"axonflow/workflowengine/engineerr"
	"axonflow/workflowengine/value"
	"axonflow/workflowengine/workflow"
)

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
		lazy = bridge.NewLazyConnector(cassandra.NewCassandraConnector())
		e.lazy[service] = lazy
	}
	conn, err := lazy.Ensure(ctx, step.ID, bridge.ConnectorConfigFrom(service, sdkCfg))
	if err != nil {
		return nil, err
	}

	if signal != nil && signal.IsCancelled() {
		return nil, engineerr.New(engineerr.CancelledError, step.ID, "cancelled before cassandra call", nil)
	}

	statement, _ := inputs["cql"].(string)
	params, _ := inputs["parameters"].(map[string]value.Value)

	switch method {
	case "query":
		res, err := conn.Query(ctx, &base.Query{Statement: statement, Parameters: params})
		if err != nil {
			return nil, engineerr.New(engineerr.ActionError, step.ID, "cassandra query failed", err)
		}
		return map[string]value.Value{
			"rows":      bridge.RowsToValue(res.Rows),
			"row_count": float64(res.RowCount),
		}, nil
	case "execute":
		cmdAction, _ := inputs["action"].(string)
		if cmdAction == "" {
			cmdAction = "EXECUTE"
		}
		res, err := conn.Execute(ctx, &base.Command{Action: cmdAction, Statement: statement, Parameters: params})
		if err != nil {
			return nil, engineerr.New(engineerr.ActionError, step.ID, "cassandra execute failed", err)
		}
		return map[string]value.Value{
			"success":       res.Success,
			"rows_affected": float64(res.RowsAffected),
			"message":       res.Message,
		}, nil
	default:
		return nil, engineerr.New(engineerr.ActionError, step.ID, fmt.Sprintf("cassandra connector has no method %q", method), nil)
	}
}
