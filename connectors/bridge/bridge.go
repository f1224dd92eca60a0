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

// Package bridge adapts the connectors/base.Connector contract
// (Connect/Query/Execute against a *base.ConnectorConfig) to the engine's
// action.ActionExecutor contract (Execute against resolved step inputs),
// so every connectors/<name> package can keep its existing Connector
// implementation as the thing that actually talks to Redis/Postgres/S3/etc
// and add a thin per-connector action.go that dispatches an action step's
// "service.method" to that connector's Query/Execute operations.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"axonflow/workflowengine/connectors/base"
	"axonflow/workflowengine/connectors/sdk"
	"axonflow/workflowengine/action"
	"axonflow/workflowengine/engineerr"
	"axonflow/workflowengine/value"
	"axonflow/workflowengine/workflow"
)

// ConnectorConfigFrom adapts an action.SDKConfig (what ActionRegistry.Resolve
// returns for a resolved "service.method" action) into the
// base.ConnectorConfig shape every connector's Connect expects.
// map[string]value.Value and map[string]interface{} are the same type
// (value.Value is a plain alias), so Options copies over directly.
func ConnectorConfigFrom(name string, cfg *action.SDKConfig) *base.ConnectorConfig {
	return &base.ConnectorConfig{
		Name:        name,
		Type:        cfg.Type,
		Credentials: cfg.Credentials,
		Options:     cfg.Options,
		Timeout:     10 * time.Second,
		MaxRetries:  3,
		TenantID:    "*",
	}
}

// LazyConnector holds a base.Connector and connects it exactly
// once, the first time an action step needs it, using whatever SDKConfig
// the registry resolved for that service. Every connectors/<name>/action.go
// embeds one of these instead of repeating the same connect-on-first-use
// bookkeeping. When the service's options carry a "rate_limit", every
// Ensure call also waits on the resulting token bucket, so all of a
// service's action steps share one outbound rate regardless of which
// parallel branch issues them.
type LazyConnector struct {
	mu        sync.Mutex
	conn      base.Connector
	connected bool
	limiter   *sdk.RateLimiter
}

// NewLazyConnector wraps a freshly constructed, not-yet-connected
// base.Connector (e.g. redis.NewRedisConnector()).
func NewLazyConnector(conn base.Connector) *LazyConnector {
	return &LazyConnector{conn: conn}
}

// Ensure connects conn on the first call (building the service's rate
// limiter from its options at the same time) and afterward only gates the
// caller on that limiter, regardless of which goroutine (parallel branch)
// calls it first.
func (l *LazyConnector) Ensure(ctx context.Context, stepID string, cfg *base.ConnectorConfig) (base.Connector, error) {
	l.mu.Lock()
	if !l.connected {
		if err := l.conn.Connect(ctx, cfg); err != nil {
			l.mu.Unlock()
			return nil, engineerr.New(engineerr.ActionError, stepID, fmt.Sprintf("connecting %s connector", cfg.Type), err)
		}
		l.limiter = sdk.RateLimiterFromOptions(cfg.Options)
		l.connected = true
	}
	conn, limiter := l.conn, l.limiter
	l.mu.Unlock()

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, engineerr.New(engineerr.ActionError, stepID, fmt.Sprintf("%s rate limit", cfg.Type), err)
		}
	}
	return conn, nil
}

// ResolveConfig looks service up in registry, the same resolve step every
// action executor performs before it can talk to anything.
func ResolveConfig(registry action.ActionRegistry, service string) (*action.SDKConfig, error) {
	cfg, ok := registry.Resolve(service)
	if !ok {
		return nil, engineerr.New(engineerr.ActionError, "", fmt.Sprintf("no tool configured for service %q", service), nil)
	}
	return cfg, nil
}

// RowsToValue converts a Query/Command result's []map[string]interface{}
// rows into the engine's own value.Value shape (a plain []value.Value of
// map[string]value.Value, which are the same underlying types as
// []interface{}/map[string]interface{}, so this is just a re-slice/re-map,
// not a deep conversion).
func RowsToValue(rows []map[string]interface{}) []value.Value {
	out := make([]value.Value, len(rows))
	for i, r := range rows {
		m := make(map[string]value.Value, len(r))
		for k, v := range r {
			m[k] = v
		}
		out[i] = m
	}
	return out
}

// StepMethod extracts the method half of an action step's "service.method"
// name (the registry resolves the service half); every connector action.go
// switches on this to decide which Query/Execute operation to run.
func StepMethod(step *workflow.Step) string {
	_, method := action.SplitServiceMethod(step.Action)
	return method
}
