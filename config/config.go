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

// Package config loads the engine's own tunables the way
// connectors/config loads a connector's: defaults, an optional YAML
// override file, then environment variables (highest precedence), plus
// `${SECRET:ref}` resolution through AWS Secrets Manager for any
// credential a loaded workflow or connector config references.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"axonflow/workflowengine/engine"
)

const envPrefix = "WORKFLOWENGINE_"

// fileOverrides is the optional YAML document; a zero field means "not
// set in the file", so DefaultConfig's own default stays in place for it.
// Environment variables are applied afterwards and override both.
type fileOverrides struct {
	DefaultWorkflowTimeoutSeconds int `yaml:"default_workflow_timeout_seconds"`
	DefaultMaxConcurrent          int `yaml:"default_max_concurrent"`
	ScriptTimeoutCeilingSeconds   int `yaml:"script_timeout_ceiling_seconds"`
}

// Load builds an engine.Config, layering an optional YAML file over
// engine.DefaultConfig() and environment variables over that, mirroring
// LoadPostgresConfig's "try the specific source, fall back to the
// default" shape. path == "" skips the file layer entirely; a path that
// doesn't exist is not an error (the file is optional), but a malformed
// one is.
func Load(path string) (engine.Config, error) {
	cfg := engine.DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			var ov fileOverrides
			if err := yaml.Unmarshal(raw, &ov); err != nil {
				return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
			}
			applyFileOverrides(&cfg, ov)
		case os.IsNotExist(err):
			// optional; nothing to layer
		default:
			return cfg, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyFileOverrides(cfg *engine.Config, ov fileOverrides) {
	if ov.DefaultWorkflowTimeoutSeconds > 0 {
		cfg.DefaultWorkflowTimeout = time.Duration(ov.DefaultWorkflowTimeoutSeconds) * time.Second
	}
	if ov.DefaultMaxConcurrent > 0 {
		cfg.DefaultMaxConcurrent = ov.DefaultMaxConcurrent
	}
	if ov.ScriptTimeoutCeilingSeconds > 0 {
		cfg.ScriptTimeoutCeiling = time.Duration(ov.ScriptTimeoutCeilingSeconds) * time.Second
	}
}

func applyEnvOverrides(cfg *engine.Config) error {
	if v := os.Getenv(envPrefix + "DEFAULT_WORKFLOW_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid %sDEFAULT_WORKFLOW_TIMEOUT_SECONDS: %w", envPrefix, err)
		}
		cfg.DefaultWorkflowTimeout = time.Duration(secs) * time.Second
	}
	if v := os.Getenv(envPrefix + "DEFAULT_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid %sDEFAULT_MAX_CONCURRENT: %w", envPrefix, err)
		}
		cfg.DefaultMaxConcurrent = n
	}
	if v := os.Getenv(envPrefix + "SCRIPT_TIMEOUT_CEILING_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid %sSCRIPT_TIMEOUT_CEILING_SECONDS: %w", envPrefix, err)
		}
		cfg.ScriptTimeoutCeiling = time.Duration(secs) * time.Second
	}
	return nil
}
