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

// Package sqlaction implements action.ActionExecutor for "db.query" /
// "db.execute" action steps over two SQL dialects, dispatching on the
// resolved SDKConfig.Type's "postgres" / "mysql" connector type string.
// Built on connectors/postgres/connector.go and
// connectors/mysql/connector.go, both of which already implement
// base.Connector's Query/Execute contract this package calls into.
package sqlaction

import (
	"context"
	"fmt"

	"axonflow/workflowengine/connectors/base"
	"axonflow/workflowengine/connectors/mysql"
	"axonflow/workflowengine/connectors/postgres"
	"axonflow/workflowengine/action"
	"axonflow/workflowengine/connectors/bridge"
	"axonflow/workflowengine/engineerr"
	"axonflow/workflowengine/value"
	"axonflow/workflowengine/workflow"
)

// ActionExecutor dispatches "db.query"/"db.execute" action steps onto a
// lazily-connected SQL connector, one per resolved service, whose dialect
// (postgres vs mysql) is chosen from SDKConfig.Type at connect time.
type ActionExecutor struct {
	Registry action.ActionRegistry
	lazy     map[string]*bridge.LazyConnector
}

func NewActionExecutor(registry action.ActionRegistry) *ActionExecutor {
	return &ActionExecutor{Registry: registry, lazy: make(map[string]*bridge.LazyConnector)}
}

func newConnectorForType(dialect string) (base.Connector, error) {
	switch dialect {
	case "postgres", "postgresql":
		return postgres.NewPostgresConnector(), nil
	case "mysql":
		return mysql.NewMySQLConnector(), nil
	default:
		return nil, fmt.Errorf("sqlaction: unsupported SQL dialect %q", dialect)
	}
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
		underlying, err := newConnectorForType(sdkCfg.Type)
		if err != nil {
			return nil, engineerr.New(engineerr.ActionError, step.ID, err.Error(), nil)
		}
		lazy = bridge.NewLazyConnector(underlying)
		e.lazy[service] = lazy
	}
	conn, err := lazy.Ensure(ctx, step.ID, bridge.ConnectorConfigFrom(service, sdkCfg))
	if err != nil {
		return nil, err
	}

	if signal != nil && signal.IsCancelled() {
		return nil, engineerr.New(engineerr.CancelledError, step.ID, "cancelled before sql call", nil)
	}

	statement, _ := inputs["statement"].(string)
	params, _ := inputs["parameters"].(map[string]value.Value)

	switch method {
	case "query":
		res, err := conn.Query(ctx, &base.Query{Statement: statement, Parameters: params})
		if err != nil {
			return nil, engineerr.New(engineerr.ActionError, step.ID, "sql query failed", err)
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
			return nil, engineerr.New(engineerr.ActionError, step.ID, "sql execute failed", err)
		}
		return map[string]value.Value{
			"success":       res.Success,
			"rows_affected": float64(res.RowsAffected),
			"message":       res.Message,
		}, nil
	default:
		return nil, engineerr.New(engineerr.ActionError, step.ID, fmt.Sprintf("sql connector has no method %q", method), nil)
	}
}
