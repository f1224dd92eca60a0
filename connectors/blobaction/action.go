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

// Package blobaction implements action.ActionExecutor for "blob.put" /
// "blob.get" action steps over three object-storage
// backends, dispatching on the resolved SDKConfig.Type the same way
// sqlaction dispatches "postgres" vs "mysql" onto a single db.query/
// db.execute surface. Built on connectors/s3/connector.go,
// connectors/gcs/connector.go and connectors/azureblob/connector.go, all
// three of which already implement base.Connector's Query/Execute
// contract this package calls into.
package blobaction

import (
	"context"
	"fmt"

	"axonflow/workflowengine/connectors/base"
	"axonflow/workflowengine/action"
	"axonflow/workflowengine/connectors/azureblob"
	"axonflow/workflowengine/connectors/bridge"
	"axonflow/workflowengine/connectors/gcs"
	"axonflow/workflowengine/connectors/s3"
	"axonflow/workflowengine/engineerr"
	"axonflow/workflowengine/value"
	"axonflow/workflowengine/workflow"
)

// ActionExecutor dispatches "blob.put"/"blob.get" action steps onto a
// lazily-connected object-storage connector, one per resolved service,
// whose backend (s3/gcs/azureblob) is chosen from SDKConfig.Type at
// connect time.
type ActionExecutor struct {
	Registry action.ActionRegistry
	lazy     map[string]*bridge.LazyConnector
	backend  map[string]string
}

func NewActionExecutor(registry action.ActionRegistry) *ActionExecutor {
	return &ActionExecutor{
		Registry: registry,
		lazy:     make(map[string]*bridge.LazyConnector),
		backend:  make(map[string]string),
	}
}

func newConnectorForType(kind string) (base.Connector, error) {
	switch kind {
	case "s3":
		return s3.NewS3Connector(), nil
	case "gcs":
		return gcs.NewGCSConnector(), nil
	case "azureblob", "azure_blob", "azure":
		return azureblob.NewAzureBlobConnector(), nil
	default:
		return nil, fmt.Errorf("blobaction: unsupported object-storage backend %q", kind)
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
		e.backend[service] = sdkCfg.Type
	}
	conn, err := lazy.Ensure(ctx, step.ID, bridge.ConnectorConfigFrom(service, sdkCfg))
	if err != nil {
		return nil, err
	}

	if signal != nil && signal.IsCancelled() {
		return nil, engineerr.New(engineerr.CancelledError, step.ID, "cancelled before blob storage call", nil)
	}

	bucket, _ := inputs["bucket"].(string)
	key, _ := inputs["key"].(string)

	switch method {
	case "get":
		res, err := conn.Query(ctx, &base.Query{
			Statement:  getObjectStatement(e.backend[service]),
			Parameters: map[string]value.Value{"bucket": bucket, "key": key, "container": bucket, "blob": key},
		})
		if err != nil {
			return nil, engineerr.New(engineerr.ActionError, step.ID, "blob get failed", err)
		}
		rows := bridge.RowsToValue(res.Rows)
		if len(rows) == 1 {
			return rows[0], nil
		}
		return rows, nil
	case "put":
		// Azure Blob names the bucket/key pair container/blob
		params := make(map[string]value.Value, len(inputs)+2)
		for k, v := range inputs {
			params[k] = v
		}
		if _, ok := params["container"]; !ok && bucket != "" {
			params["container"] = bucket
		}
		if _, ok := params["blob"]; !ok && key != "" {
			params["blob"] = key
		}
		res, err := conn.Execute(ctx, &base.Command{
			Action:     putObjectAction(e.backend[service]),
			Parameters: params,
		})
		if err != nil {
			return nil, engineerr.New(engineerr.ActionError, step.ID, "blob put failed", err)
		}
		return map[string]value.Value{
			"success":       res.Success,
			"rows_affected": float64(res.RowsAffected),
			"message":       res.Message,
		}, nil
	default:
		return nil, engineerr.New(engineerr.ActionError, step.ID, fmt.Sprintf("blob connector has no method %q", method), nil)
	}
}

// getObjectStatement and putObjectAction translate the engine's
// backend-neutral "get"/"put" methods into each connector's own
// Query.Statement/Command.Action vocabulary.
func getObjectStatement(backend string) string {
	switch backend {
	case "azureblob", "azure_blob", "azure":
		return "get_blob"
	default:
		return "get_object"
	}
}

func putObjectAction(backend string) string {
	switch backend {
	case "azureblob", "azure_blob", "azure":
		return "upload_blob"
	default:
		return "put_object"
	}
}
