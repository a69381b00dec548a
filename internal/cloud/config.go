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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files, and the clients used to reach Google Cloud and the
// Gemini API.
//
// This file centralizes all configuration-related structs, making it easy
// to understand and manage the application's configurable parameters.
//
// Structs:
//   - Dataset: Where the shot metadata file lives.
//   - Prompt: Where the description prompt template lives.
//   - Images: Where shot images are read from and their file extension.
//   - Timestamps: Seed and bound of the random timestamp generator.
//   - VertexAiLLMModel: Configuration for a Gemini model, on either backend.
//   - Telemetry: Whether traces and metrics are exported to Google Cloud.
//   - Config: The top-level struct that aggregates all other configuration structs.
//
// Functions:
//   - NewConfig: A constructor that returns a Config holding the built-in defaults.
package cloud

import "google.golang.org/genai"

// Built-in defaults, used when neither a configuration file nor a flag sets
// the value.
const (
	DefaultApplicationName = "shot-metadata"
	DefaultDatasetPath     = "metadata.json"
	DefaultPromptPath      = "prompt.txt"
	DefaultImageLocation   = "images"
	DefaultImageExtension  = ".jpg"
	DefaultSeed            = 160
	DefaultMaxHours        = 2
	MaxHoursLimit          = 99 // Largest hour bound that still renders as two digits.
	DefaultAgentModel      = "shot-describer"
	DefaultGeminiModel     = "gemini-2.5-flash"
	DefaultAPIKeyEnv       = "GEMINI_API_KEY"
	DefaultWorkers         = 1

	BackendGemini = "gemini"
	BackendVertex = "vertex"
)

// DefaultSafetySettings defines the default content safety thresholds for GenAI models.
// Film stills regularly show violence or nudity; with the default thresholds
// such frames come back with no text at all.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// Dataset represents the configuration of the shot metadata file.
type Dataset struct {
	Path string `toml:"path"` // JSON file read and overwritten by every run.
}

// Prompt holds the location of the description prompt template.
type Prompt struct {
	Path string `toml:"path"` // Plain text file with {movie_title} and {year} placeholders.
}

// Images represents the configuration of the shot image store.
type Images struct {
	Location  string `toml:"location"`  // Local directory, or a gs://bucket/prefix URI.
	Extension string `toml:"extension"` // Appended to the record id, e.g. ".jpg".
}

// Timestamps configures the random timestamp generator.
type Timestamps struct {
	Seed     uint64 `toml:"seed"`      // Seed of the pseudo-random source.
	MaxHours int    `toml:"max_hours"` // Upper bound (inclusive) of the hour component.
}

// VertexAiLLMModel represents the configuration for a Gemini model used to
// describe shots.
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // The model identifier, e.g. "gemini-2.5-flash".
	Backend            string  `toml:"backend"`             // "gemini" (API key) or "vertex" (project credentials).
	APIKeyEnv          string  `toml:"api_key_env"`         // Environment variable holding the API key for the gemini backend.
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the LLM.
	Temperature        float32 `toml:"temperature"`         // The temperature parameter; zero leaves the model default.
	TopP               float32 `toml:"top_p"`               // The top_p parameter; zero leaves the model default.
	TopK               float32 `toml:"top_k"`               // The top_k parameter; zero leaves the model default.
	MaxTokens          int32   `toml:"max_tokens"`          // The maximum number of tokens for the LLM output.
	RateLimit          int     `toml:"rate_limit"`          // Requests per second; zero disables the limiter.
	TimeoutInSeconds   int     `toml:"timeout_in_seconds"`  // Per-request timeout; zero means no timeout.
}

// Telemetry controls the export of traces and metrics.
type Telemetry struct {
	Enabled bool `toml:"enabled"` // Export to Cloud Trace and Cloud Monitoring.
}

// Config represents the overall configuration for the application, loaded from TOML files.
// It acts as the root container for all other configuration structs.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name            string `toml:"name"`              // The name of the application, used as the OTel service name.
		GoogleProjectId string `toml:"google_project_id"` // The Google Cloud project ID.
		GoogleLocation  string `toml:"location"`          // The Google Cloud location.
		ThreadPoolSize  int    `toml:"thread_pool_size"`  // Concurrent description requests.
		AgentModel      string `toml:"agent_model"`       // Key into AgentModels used for descriptions.
		LogFile         string `toml:"log_file"`          // Optional file receiving a copy of the logs.
	} `toml:"application"`
	Dataset     Dataset                     `toml:"dataset"`      // Dataset file configuration.
	Prompt      Prompt                      `toml:"prompt"`       // Prompt template configuration.
	Images      Images                      `toml:"images"`       // Image store configuration.
	Timestamps  Timestamps                  `toml:"timestamps"`   // Timestamp generator configuration.
	Telemetry   Telemetry                   `toml:"telemetry"`    // Telemetry export configuration.
	AgentModels map[string]VertexAiLLMModel `toml:"agent_models"` // Gemini models keyed by a logical name (e.g., "shot-describer").
}

// NewConfig is a constructor function that creates a Config populated with
// the built-in defaults. TOML files loaded afterwards only override the keys
// they set.
//
// Outputs:
//   - *Config: A pointer to a new Config struct.
func NewConfig() *Config {
	c := &Config{
		Dataset:    Dataset{Path: DefaultDatasetPath},
		Prompt:     Prompt{Path: DefaultPromptPath},
		Images:     Images{Location: DefaultImageLocation, Extension: DefaultImageExtension},
		Timestamps: Timestamps{Seed: DefaultSeed, MaxHours: DefaultMaxHours},
		AgentModels: map[string]VertexAiLLMModel{
			DefaultAgentModel: {
				Model:     DefaultGeminiModel,
				Backend:   BackendGemini,
				APIKeyEnv: DefaultAPIKeyEnv,
			},
		},
	}
	c.Application.Name = DefaultApplicationName
	c.Application.ThreadPoolSize = DefaultWorkers
	c.Application.AgentModel = DefaultAgentModel
	return c
}

// DescriptionModel returns the model configuration selected by
// Application.AgentModel.
func (c *Config) DescriptionModel() (VertexAiLLMModel, bool) {
	m, ok := c.AgentModels[c.Application.AgentModel]
	return m, ok
}
