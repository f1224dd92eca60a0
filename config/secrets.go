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

package config

import (
	"context"
	"fmt"
	"strings"

	"axonflow/workflowengine/value"
)

// SecretsManager resolves a secret reference to its credential fields
// for connector and tool configuration loading.
type SecretsManager interface {
	GetSecret(ctx context.Context, ref string) (map[string]string, error)
}

const secretPrefix = "${SECRET:"
const secretSuffix = "}"

// ResolveSecrets walks v, recursing into maps and sequences, and replaces
// every string of the exact form "${SECRET:ref}" or "${SECRET:ref:field}"
// with the credential Secrets Manager returns for ref. A bare
// "${SECRET:ref}" resolves to the secret's "value" key, or its sole key
// when there is exactly one; anything else requires the explicit
// ":field" form. Non-placeholder strings and all other value kinds pass
// through unchanged.
func ResolveSecrets(ctx context.Context, sm SecretsManager, v value.Value) (value.Value, error) {
	switch t := v.(type) {
	case string:
		return resolveSecretString(ctx, sm, t)
	case []value.Value:
		out := make([]value.Value, len(t))
		for i, e := range t {
			rv, err := ResolveSecrets(ctx, sm, e)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	case map[string]value.Value:
		out := make(map[string]value.Value, len(t))
		for k, e := range t {
			rv, err := ResolveSecrets(ctx, sm, e)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	default:
		return t, nil
	}
}

func resolveSecretString(ctx context.Context, sm SecretsManager, s string) (value.Value, error) {
	if !strings.HasPrefix(s, secretPrefix) || !strings.HasSuffix(s, secretSuffix) {
		return s, nil
	}
	body := s[len(secretPrefix) : len(s)-len(secretSuffix)]
	ref, field, hasField := strings.Cut(body, ":")

	creds, err := sm.GetSecret(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("config: resolving secret %q: %w", ref, err)
	}

	if hasField {
		val, ok := creds[field]
		if !ok {
			return nil, fmt.Errorf("config: secret %q has no field %q", ref, field)
		}
		return val, nil
	}
	if val, ok := creds["value"]; ok {
		return val, nil
	}
	if len(creds) == 1 {
		for _, val := range creds {
			return val, nil
		}
	}
	return nil, fmt.Errorf("config: secret %q has multiple fields; reference one explicitly as \"${SECRET:%s:field}\"", ref, ref)
}
