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
// This file contains general-purpose utility functions that support the cloud package.
// These helpers cover hierarchical configuration loading, file system checks
// and multimodal calls to the Generative AI API.
//
// Functions:
//   - fileExists: A simple helper to check if a file exists.
//   - LoadConfig: Implements a hierarchical configuration loader. It first reads a base
//     configuration file and then overwrites values with a second, environment-specific
//     file (e.g., .env.local.toml, .env.test.toml). The environment is determined by
//     an environment variable.
//   - GenerateMultiModalResponse: Sends one multimodal request and records
//     token usage metrics. It does not retry.
//   - NewTextPart, NewInlineImagePart: Factory functions for genai.Part values.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel/metric"

	"github.com/BurntSushi/toml"
	"google.golang.org/genai"
)

// Cloud Constants define key strings used for configuration loading.
const (
	ConfigFileBaseName  = ".env"                   // The base name for configuration files (e.g., ".env.toml").
	ConfigFileExtension = ".toml"                  // The file extension for configuration files.
	ConfigSeparator     = "."                      // The separator used in config file names (e.g., ".env.local.toml").
	EnvConfigFilePrefix = "SHOTMETA_CONFIG_PREFIX" // The environment variable for specifying the config directory.
	EnvConfigRuntime    = "SHOTMETA_RUNTIME"       // The environment variable for specifying the runtime context (e.g., "local", "test").
	DefaultRuntime      = "local"                  // Runtime used when EnvConfigRuntime is unset.
)

// ErrEmptyResponse is returned when the model answers without any text,
// which usually means the candidate was blocked.
var ErrEmptyResponse = errors.New("model returned no text")

// fileExists checks if a file or directory exists at the given path.
func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// ConfigFiles returns the base and runtime-specific configuration file
// names derived from the environment.
func ConfigFiles() (base string, runtime string) {
	prefix := os.Getenv(EnvConfigFilePrefix)
	if len(prefix) > 0 && !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix = prefix + string(os.PathSeparator)
	}
	env := os.Getenv(EnvConfigRuntime)
	if env == "" {
		env = DefaultRuntime
	}
	base = prefix + ConfigFileBaseName + ConfigFileExtension
	runtime = prefix + ConfigFileBaseName + ConfigSeparator + env + ConfigFileExtension
	return base, runtime
}

// LoadConfig provides a hierarchical configuration loading mechanism. It first loads a
// base configuration file and then merges or overwrites its values with an environment-specific
// configuration file. Missing files are skipped; a file that exists but
// does not decode is an error.
//
// Inputs:
//   - config: The configuration to populate, normally the result of NewConfig.
//
// Outputs:
//   - []string: The files that were actually read, in order.
//   - error: A decode error naming the offending file, or an out of range
//     value.
func LoadConfig(config *Config) (loaded []string, err error) {
	base, runtime := ConfigFiles()
	for _, name := range []string{base, runtime} {
		if !fileExists(name) {
			continue
		}
		if _, err := toml.DecodeFile(name, config); err != nil {
			return loaded, fmt.Errorf("failed to decode configuration file %s: %w", name, err)
		}
		loaded = append(loaded, name)
	}
	if h := config.Timestamps.MaxHours; h < 0 || h > MaxHoursLimit {
		return loaded, fmt.Errorf("timestamps.max_hours must be between 0 and %d, got %d", MaxHoursLimit, h)
	}
	applyModelDefaults(config)
	return loaded, nil
}

// applyModelDefaults fills fields that a TOML table left empty. Decoding a
// table into a map entry replaces the whole struct, so the defaults set by
// NewConfig are lost for any model the file mentions.
func applyModelDefaults(config *Config) {
	for key, m := range config.AgentModels {
		if m.Model == "" {
			m.Model = DefaultGeminiModel
		}
		if m.Backend == "" {
			m.Backend = BackendGemini
		}
		if m.APIKeyEnv == "" {
			m.APIKeyEnv = DefaultAPIKeyEnv
		}
		config.AgentModels[key] = m
	}
}

// GenerateMultiModalResponse executes one multimodal request against a
// Generative AI model and returns the concatenated text of all candidates.
//
// Inputs:
//   - ctx: The context for the request, which controls cancellation and tracing.
//   - inputTokenCounter: An OpenTelemetry counter for prompt tokens used.
//   - outputTokenCounter: An OpenTelemetry counter for response tokens generated.
//   - model: The rate-limited, quota-aware generative model to use.
//   - contents: The prompt, typically a text part and an inline image.
//
// Outputs:
//   - string: The trimmed text content from the model's response.
//   - error: The API error, or ErrEmptyResponse when no text came back.
func GenerateMultiModalResponse(
	ctx context.Context,
	inputTokenCounter metric.Int64Counter,
	outputTokenCounter metric.Int64Counter,
	model *QuotaAwareGenerativeAIModel,
	contents []*genai.Content) (value string, err error) {
	resp, err := model.GenerateContent(ctx, contents)
	if err != nil {
		return "", err
	}
	if resp.UsageMetadata != nil {
		inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
		outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			sb.WriteString(part.Text)
		}
	}
	value = strings.TrimSpace(sb.String())
	if value == "" {
		return "", ErrEmptyResponse
	}
	return value, nil
}

// NewTextPart is a simple factory function for a text part.
func NewTextPart(in string) *genai.Part {
	return &genai.Part{Text: in}
}

// NewInlineImagePart wraps raw image bytes so they travel inside the
// request instead of by reference.
func NewInlineImagePart(data []byte, mimeType string) *genai.Part {
	return &genai.Part{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}}
}

// NewUserContent assembles a single user turn from parts.
func NewUserContent(parts ...*genai.Part) []*genai.Content {
	return []*genai.Content{{Role: "user", Parts: parts}}
}
