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

// Package action defines the engine's one external collaborator contract:
// an action-step's "service.method" resolves to a connector via
// ActionRegistry, and the resolved call runs through ActionExecutor.
// Modeled directly on connectors/base.Connector (Connect/Disconnect/
// HealthCheck/Query/Execute/Name/Type/Version/Capabilities): the engine
// only ever needs the Execute half of that interface, generalized from
// per-connector Query/Command structs to the engine's own opaque Value
// inputs/outputs.
package action

import (
	"context"
	"strings"

	"axonflow/workflowengine/value"
	"axonflow/workflowengine/workflow"
)

// SDKConfig is what ActionRegistry.Resolve returns for a known service: the
// connection/auth shape a connector needs, generalized from
// connectors/base.ConnectorConfig.
type SDKConfig struct {
	Service     string
	Type        string
	Credentials map[string]string
	Options     map[string]value.Value
}

// ActionRegistry resolves the service prefix of an action step's
// "service.method" name to its connector configuration.
type ActionRegistry interface {
	Resolve(service string) (*SDKConfig, bool)
	Methods(service string) []string
}

// ActionExecutor is the opaque collaborator an `action` step calls into
// after the engine resolves its service and evaluates its inputs.
type ActionExecutor interface {
	Execute(ctx context.Context, step *workflow.Step, resolvedInputs map[string]value.Value, signal *CancelSignal) (value.Value, error)
}

// SplitServiceMethod splits an action step's "service.method" identifier
// into its registry-lookup key and the method name passed to the executor.
func SplitServiceMethod(action string) (service, method string) {
	i := strings.IndexByte(action, '.')
	if i < 0 {
		return action, ""
	}
	return action[:i], action[i+1:]
}

// Registry is a minimal in-memory ActionRegistry.
type Registry struct {
	services map[string]*SDKConfig
	methods  map[string][]string
}

func NewRegistry() *Registry {
	return &Registry{services: map[string]*SDKConfig{}, methods: map[string][]string{}}
}

func (r *Registry) Register(cfg *SDKConfig, methods ...string) {
	r.services[cfg.Service] = cfg
	r.methods[cfg.Service] = methods
}

func (r *Registry) Resolve(service string) (*SDKConfig, bool) {
	cfg, ok := r.services[service]
	return cfg, ok
}

func (r *Registry) Methods(service string) []string {
	return r.methods[service]
}
