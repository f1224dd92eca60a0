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

// Package sdk provides the AxonFlow Connector SDK for building custom MCP connectors.
//
// The SDK provides the base implementation and utilities connectors share, so a
// new connector only has to implement the operations that actually talk to its
// backing service.
//
// # Quick Start
//
// To create a custom connector, embed BaseConnector and implement the required interface methods:
//
//	type MyConnector struct {
//	    sdk.BaseConnector
//	    client *myapi.Client
//	}
//
//	func (c *MyConnector) Connect(ctx context.Context, config *base.ConnectorConfig) error {
//	    if err := c.BaseConnector.Connect(ctx, config); err != nil {
//	        return err
//	    }
//	    // Custom connection logic
//	    return nil
//	}
//
// # Features
//
// The SDK provides:
//   - BaseConnector: Embeddable base implementation with common functionality
//   - Rate Limiting: Token bucket rate limiter with configurable limits
//   - Metrics: Prometheus-compatible metrics collection
//   - Validation: Required/optional field and JSON-Schema config validators
//
// Retry and backoff for workflow steps are not an SDK concern: the engine's
// policy package owns the attempt loop, so a connector call is exactly one
// attempt.
//
// # Rate Limiting
//
// Built-in rate limiting prevents API overload:
//
//	limiter := sdk.NewRateLimiter(100, 10) // 100 requests/second, burst of 10
//	if err := limiter.Wait(ctx); err != nil {
//	    return err // Context cancelled or deadline exceeded
//	}
//
// Action steps get this automatically: a service whose tool options carry
// "rate_limit" (and optionally "rate_burst") is gated by the connector
// bridge before every Query/Execute, via RateLimiterFromOptions.
package sdk
