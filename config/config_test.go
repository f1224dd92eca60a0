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
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithNoFileOrEnv(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DefaultWorkflowTimeout != 5*time.Minute {
		t.Errorf("expected default 5m workflow timeout, got %v", cfg.DefaultWorkflowTimeout)
	}
}

func TestLoadAppliesFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	doc := "default_workflow_timeout_seconds: 30\ndefault_max_concurrent: 4\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DefaultWorkflowTimeout != 30*time.Second {
		t.Errorf("expected 30s workflow timeout, got %v", cfg.DefaultWorkflowTimeout)
	}
	if cfg.DefaultMaxConcurrent != 4 {
		t.Errorf("expected max_concurrent 4, got %d", cfg.DefaultMaxConcurrent)
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("expected a missing override file to be silently skipped, got %v", err)
	}
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	if err := os.WriteFile(path, []byte("default_max_concurrent: 4\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	if err := os.Setenv("WORKFLOWENGINE_DEFAULT_MAX_CONCURRENT", "9"); err != nil {
		t.Fatalf("failed to set env: %v", err)
	}
	defer os.Unsetenv("WORKFLOWENGINE_DEFAULT_MAX_CONCURRENT")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DefaultMaxConcurrent != 9 {
		t.Errorf("expected env override 9, got %d", cfg.DefaultMaxConcurrent)
	}
}

func TestLoadInvalidEnvValue(t *testing.T) {
	if err := os.Setenv("WORKFLOWENGINE_DEFAULT_MAX_CONCURRENT", "not-a-number"); err != nil {
		t.Fatalf("failed to set env: %v", err)
	}
	defer os.Unsetenv("WORKFLOWENGINE_DEFAULT_MAX_CONCURRENT")

	if _, err := Load(""); err == nil {
		t.Fatal("expected an error for a non-numeric env override")
	}
}
