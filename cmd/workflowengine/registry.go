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
	"os"

	"gopkg.in/yaml.v3"

	"axonflow/workflowengine/action"
	"axonflow/workflowengine/config"
	"axonflow/workflowengine/value"
)

// loadRegistry reads a `tools:` document (the same per-service shape a
// workflow document may carry inline in its own `tools` map, here loaded
// once for the whole server process rather than per-request) and resolves
// any `${SECRET:ref}` credential placeholder through secrets before
// registering each service.
func loadRegistry(ctx context.Context, path string, secrets config.SecretsManager) (*action.Registry, error) {
	registry := action.NewRegistry()
	if path == "" {
		return registry, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: reading %s: %w", path, err)
	}
	var doc struct {
		Tools map[string]value.Value `yaml:"tools"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("registry: parsing %s: %w", path, err)
	}

	for service, entry := range doc.Tools {
		resolved, err := config.ResolveSecrets(ctx, secrets, entry)
		if err != nil {
			return nil, fmt.Errorf("registry: tool %q: %w", service, err)
		}
		m, ok := resolved.(map[string]value.Value)
		if !ok {
			return nil, fmt.Errorf("registry: tool %q: expected a mapping, got %T", service, resolved)
		}

		cfg := &action.SDKConfig{
			Service:     service,
			Type:        stringField(m, "type"),
			Credentials: stringMapField(m, "credentials"),
			Options:     mapField(m, "options"),
		}
		var methods []string
		for _, v := range sliceField(m, "methods") {
			if s, ok := v.(string); ok {
				methods = append(methods, s)
			}
		}
		registry.Register(cfg, methods...)
	}
	return registry, nil
}

func stringField(m map[string]value.Value, key string) string {
	s, _ := m[key].(string)
	return s
}

func mapField(m map[string]value.Value, key string) map[string]value.Value {
	v, _ := m[key].(map[string]value.Value)
	return v
}

func sliceField(m map[string]value.Value, key string) []value.Value {
	v, _ := m[key].([]value.Value)
	return v
}

func stringMapField(m map[string]value.Value, key string) map[string]string {
	raw := mapField(m, key)
	if raw == nil {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
