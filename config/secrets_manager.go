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
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// AWSSecretsManager resolves `${SECRET:ref}` placeholders through AWS
// Secrets Manager, caching each secret's decoded credential map for TTL so
// a workflow with many references to the same secret doesn't refetch it
// on every step, adapted from connectors/config/secrets_manager.go.
type AWSSecretsManager struct {
	client *secretsmanager.Client
	cache  map[string]*secretCacheEntry
	mu     sync.RWMutex
	ttl    time.Duration
	logger *log.Logger
}

type secretCacheEntry struct {
	value     map[string]string
	expiresAt time.Time
}

// AWSSecretsManagerOptions configures NewAWSSecretsManager.
type AWSSecretsManagerOptions struct {
	Region   string
	CacheTTL time.Duration
	Logger   *log.Logger
}

// NewAWSSecretsManager builds a client from the ambient AWS config chain
// (environment, shared config file, instance role).
func NewAWSSecretsManager(ctx context.Context, opts AWSSecretsManagerOptions) (*AWSSecretsManager, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[secrets] ", log.LstdFlags)
	}

	var cfgOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		cfgOpts = append(cfgOpts, config.WithRegion(opts.Region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("config: loading AWS config: %w", err)
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &AWSSecretsManager{
		client: secretsmanager.NewFromConfig(cfg),
		cache:  make(map[string]*secretCacheEntry),
		ttl:    ttl,
		logger: logger,
	}, nil
}

// GetSecret fetches ref (a secret name or ARN) from AWS Secrets Manager.
// The stored secret string is expected to be a JSON object of string
// fields; a plain-string secret is returned as {"value": <secret>}, per
// ResolveSecrets' single-field fallback.
func (s *AWSSecretsManager) GetSecret(ctx context.Context, ref string) (map[string]string, error) {
	s.mu.RLock()
	entry, cached := s.cache[ref]
	s.mu.RUnlock()
	if cached && time.Now().Before(entry.expiresAt) {
		return entry.value, nil
	}

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(ref),
	})
	if err != nil {
		return nil, fmt.Errorf("config: fetching secret %s: %w", maskRef(ref), err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("config: secret %s has no string value", maskRef(ref))
	}

	var creds map[string]string
	if err := json.Unmarshal([]byte(*out.SecretString), &creds); err != nil {
		creds = map[string]string{"value": *out.SecretString}
	}

	s.mu.Lock()
	s.cache[ref] = &secretCacheEntry{value: creds, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()

	s.logger.Printf("fetched and cached secret %s", maskRef(ref))
	return creds, nil
}

// InvalidateSecret drops ref from the cache, forcing the next GetSecret to
// refetch it.
func (s *AWSSecretsManager) InvalidateSecret(ref string) {
	s.mu.Lock()
	delete(s.cache, ref)
	s.mu.Unlock()
}

func maskRef(ref string) string {
	if len(ref) <= 12 {
		return "***"
	}
	return "..." + ref[len(ref)-8:]
}

// EnvSecretsManager resolves `${SECRET:ref}` against environment
// variables named "<ref>_<FIELD>" (e.g. ref "POSTGRES" looks for
// POSTGRES_USERNAME, POSTGRES_PASSWORD, ...), the OSS-friendly
// development substitute for AWS Secrets Manager.
type EnvSecretsManager struct{}

var envSecretFields = []string{
	"USERNAME", "PASSWORD", "API_KEY", "API_SECRET",
	"CLIENT_ID", "CLIENT_SECRET", "TOKEN", "VALUE",
}

func (EnvSecretsManager) GetSecret(ctx context.Context, ref string) (map[string]string, error) {
	creds := make(map[string]string)
	for _, field := range envSecretFields {
		if v := os.Getenv(ref + "_" + field); v != "" {
			creds[fieldToKey(field)] = v
		}
	}
	if len(creds) == 0 {
		return nil, fmt.Errorf("config: no environment credentials found for %s", ref)
	}
	return creds, nil
}

func fieldToKey(field string) string {
	switch field {
	case "VALUE":
		return "value"
	default:
		return toLowerSnake(field)
	}
}

func toLowerSnake(s string) string {
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c = c - 'A' + 'a'
		}
		b[i] = c
	}
	return string(b)
}

// LocalSecretsManager is an in-memory SecretsManager for tests and local
// development, populated explicitly rather than read from any backend.
type LocalSecretsManager struct {
	mu      sync.RWMutex
	secrets map[string]map[string]string
}

func NewLocalSecretsManager() *LocalSecretsManager {
	return &LocalSecretsManager{secrets: make(map[string]map[string]string)}
}

func (l *LocalSecretsManager) Set(ref string, creds map[string]string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.secrets[ref] = creds
}

func (l *LocalSecretsManager) GetSecret(ctx context.Context, ref string) (map[string]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	creds, ok := l.secrets[ref]
	if !ok {
		return nil, fmt.Errorf("config: secret %s not found", ref)
	}
	return creds, nil
}
