// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud provides components for interacting with Google Cloud services.
// This file is responsible for initializing and holding the client objects
// the workflow needs: the Gemini client, the rate-limited model wrappers and,
// when shot images live in a bucket, a Cloud Storage client.
//
// Structs:
//   - ServiceClients: A container struct holding the initialized clients.
//
// Functions:
//   - Close: Releases client connections.
//   - NewCloudServiceClients: Creates the clients the configuration asks for.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/genai"
)

// ErrMissingCredential is returned when the Gemini backend is selected and
// the API key environment variable is empty.
var ErrMissingCredential = errors.New("missing API credential")

// ServiceClients is a struct that acts as a central container for all the clients
// that interact with external services.
type ServiceClients struct {
	StorageClient *storage.Client                         // Client for Cloud Storage; nil unless images are in a bucket.
	GenAIClient   *genai.Client                           // Client for the Gemini API or Vertex AI.
	AgentModels   map[string]*QuotaAwareGenerativeAIModel // Rate-limited models keyed by their logical name.
}

// Close releases the connections held by the clients. The genai client has
// no Close method.
func (c *ServiceClients) Close() {
	if c.StorageClient != nil {
		if err := c.StorageClient.Close(); err != nil {
			slog.Warn("failed to close storage client", "error", err)
		}
	}
}

// NewGenAIClient creates a Gemini client for the backend a model asks for.
// The "gemini" backend authenticates with the API key found in the
// environment variable named by APIKeyEnv; the "vertex" backend uses the
// project, location and application default credentials.
func NewGenAIClient(ctx context.Context, config *Config, values VertexAiLLMModel) (*genai.Client, error) {
	switch values.Backend {
	case BackendVertex:
		return genai.NewClient(ctx, &genai.ClientConfig{
			Project:  config.Application.GoogleProjectId,
			Location: config.Application.GoogleLocation,
			Backend:  genai.BackendVertexAI,
		})
	case BackendGemini, "":
		key := os.Getenv(values.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("%w: environment variable %s is not set", ErrMissingCredential, values.APIKeyEnv)
		}
		return genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
	default:
		return nil, fmt.Errorf("unknown model backend %q", values.Backend)
	}
}

// NewCloudServiceClients is a factory function that initializes the clients
// needed by the description stage.
//
// Inputs:
//   - ctx: The root context.Context for the application.
//   - config: A pointer to the loaded application configuration (`Config`).
//   - needStorage: Whether a Cloud Storage client is required.
//
// Outputs:
//   - *ServiceClients: A pointer to the initialized ServiceClients struct.
//   - error: An error if any of the clients fail to initialize.
func NewCloudServiceClients(ctx context.Context, config *Config, needStorage bool) (cloud *ServiceClients, err error) {
	values, ok := config.DescriptionModel()
	if !ok {
		return nil, fmt.Errorf("agent model %q is not configured", config.Application.AgentModel)
	}

	gc, err := NewGenAIClient(ctx, config, values)
	if err != nil {
		return nil, fmt.Errorf("error creating genai client: %w", err)
	}

	cloud = &ServiceClients{
		GenAIClient: gc,
		AgentModels: make(map[string]*QuotaAwareGenerativeAIModel),
	}

	// Every configured model shares the client; only the selected one must
	// agree with the client's backend, the rest are kept for lookups.
	for amKey, amValues := range config.AgentModels {
		timeout := time.Duration(amValues.TimeoutInSeconds) * time.Second
		cloud.AgentModels[amKey] = NewQuotaAwareModel(NewGenerateContentConfig(amValues), amValues.Model, gc.Models, amValues.RateLimit, timeout)
	}

	if needStorage {
		sc, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("error creating storage client: %w", err)
		}
		cloud.StorageClient = sc
	}
	return cloud, nil
}
