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

// Package llmaction implements action.ActionExecutor for "llm.invoke"
// action steps by calling AWS Bedrock directly through
// bedrockruntime.Client. A full multi-provider LLM router is out of scope
// for the workflow engine; it only needs one deterministic way to run an
// action against a real model backend.
package llmaction

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"axonflow/workflowengine/action"
	"axonflow/workflowengine/connectors/bridge"
	"axonflow/workflowengine/engineerr"
	"axonflow/workflowengine/value"
	"axonflow/workflowengine/workflow"
)

// ActionExecutor implements "llm.invoke" action steps against AWS
// Bedrock, resolving region/model/credentials from the registered
// SDKConfig for the step's service and connecting the underlying
// bedrockruntime.Client lazily on first use.
type ActionExecutor struct {
	Registry action.ActionRegistry

	mu      sync.Mutex
	clients map[string]*bedrockruntime.Client
}

func NewActionExecutor(registry action.ActionRegistry) *ActionExecutor {
	return &ActionExecutor{Registry: registry, clients: make(map[string]*bedrockruntime.Client)}
}

func (e *ActionExecutor) client(ctx context.Context, service string, sdkCfg *action.SDKConfig) (*bedrockruntime.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.clients[service]; ok {
		return c, nil
	}

	region, _ := sdkCfg.Options["region"].(string)
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for bedrock (region %s): %w", region, err)
	}
	c := bedrockruntime.NewFromConfig(awsCfg)
	e.clients[service] = c
	return c, nil
}

func (e *ActionExecutor) Execute(ctx context.Context, step *workflow.Step, inputs map[string]value.Value, signal *action.CancelSignal) (value.Value, error) {
	service, method := action.SplitServiceMethod(step.Action)
	if method != "invoke" {
		return nil, engineerr.New(engineerr.ActionError, step.ID, fmt.Sprintf("llm connector has no method %q", method), nil)
	}

	sdkCfg, err := bridge.ResolveConfig(e.Registry, service)
	if err != nil {
		return nil, err
	}

	client, err := e.client(ctx, service, sdkCfg)
	if err != nil {
		return nil, engineerr.New(engineerr.ActionError, step.ID, "connecting bedrock client", err)
	}

	if signal != nil && signal.IsCancelled() {
		return nil, engineerr.New(engineerr.CancelledError, step.ID, "cancelled before bedrock call", nil)
	}

	prompt, _ := inputs["prompt"].(string)
	model, _ := inputs["model"].(string)
	if model == "" {
		model, _ = sdkCfg.Options["model"].(string)
	}
	if model == "" {
		model = "anthropic.claude-3-5-sonnet-20240620-v1:0"
	}
	maxTokens := 512
	if mt, ok := inputs["max_tokens"].(float64); ok {
		maxTokens = int(mt)
	}
	temperature := 0.7
	if t, ok := inputs["temperature"].(float64); ok {
		temperature = t
	}

	body, err := json.Marshal(map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        maxTokens,
		"temperature":       temperature,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return nil, engineerr.New(engineerr.ActionError, step.ID, "marshaling bedrock request", err)
	}

	out, err := client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, engineerr.New(engineerr.ActionError, step.ID, "bedrock InvokeModel failed", err)
	}

	var resp struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, engineerr.New(engineerr.ActionError, step.ID, "parsing bedrock response", err)
	}
	content := ""
	if len(resp.Content) > 0 {
		content = resp.Content[0].Text
	}

	return map[string]value.Value{
		"content":       content,
		"model":         model,
		"input_tokens":  float64(resp.Usage.InputTokens),
		"output_tokens": float64(resp.Usage.OutputTokens),
		"tokens_used":   float64(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}, nil
}

