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

// Command workflowengine is the process entry point: it wires the engine
// core (value/scope/expr/script/policy/engine) to the reference connector
// adapters and the apiserver HTTP surface. A thin main() that builds
// collaborators and serves, with no engine logic of its own.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"axonflow/workflowengine/apiserver"
	"axonflow/workflowengine/config"
	"axonflow/workflowengine/engine"
	"axonflow/workflowengine/engine/metrics"
	"axonflow/workflowengine/loader"
)

func main() {
	var (
		addr         = flag.String("addr", getenv("WORKFLOWENGINE_ADDR", ":8090"), "HTTP listen address")
		configPath   = flag.String("config", os.Getenv("WORKFLOWENGINE_CONFIG"), "optional engine config YAML file")
		toolsPath    = flag.String("tools", os.Getenv("WORKFLOWENGINE_TOOLS"), "YAML file declaring the action registry's tools map")
		workflowsDir = flag.String("workflows-dir", getenv("WORKFLOWENGINE_WORKFLOWS_DIR", "."), "root directory subworkflow references resolve against")
		jwtSecret    = flag.String("jwt-secret", os.Getenv("WORKFLOWENGINE_JWT_SECRET"), "HS256 secret for subworkflow caller claims")
	)
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("workflowengine: loading config: %v", err)
	}

	secrets := secretsManagerFromEnv(ctx)

	registry, err := loadRegistry(ctx, *toolsPath, secrets)
	if err != nil {
		log.Fatalf("workflowengine: loading tool registry: %v", err)
	}
	executor := newCompositeExecutor(registry)

	driver := engine.NewDriver(registry, executor)
	driver.Config = cfg
	driver.Loader = loader.NewFileLoader(*workflowsDir)
	driver.Metrics = metrics.NewRecorder(prometheus.DefaultRegisterer)
	if *jwtSecret != "" {
		driver.JWTSecret = []byte(*jwtSecret)
	}

	server := apiserver.New(driver)
	log.Fatal(server.ListenAndServe(*addr))
}

// secretsManagerFromEnv picks AWS Secrets Manager on explicit opt-in,
// falling back to the env-var-backed EnvSecretsManager for local/OSS
// use.
func secretsManagerFromEnv(ctx context.Context) config.SecretsManager {
	if os.Getenv("WORKFLOWENGINE_SECRETS_BACKEND") != "aws" {
		return config.EnvSecretsManager{}
	}
	sm, err := config.NewAWSSecretsManager(ctx, config.AWSSecretsManagerOptions{
		Region: os.Getenv("AWS_REGION"),
	})
	if err != nil {
		log.Printf("workflowengine: AWS secrets manager unavailable, falling back to env: %v", err)
		return config.EnvSecretsManager{}
	}
	return sm
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
