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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/renameio/v2"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/cloud"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/model"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/services"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/workflow"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/telemetry"
	"github.com/spf13/cobra"
)

// options holds the flag values and the state built from them.
type options struct {
	configDir string
	runtime   string
	logLevel  string
	logFile   string

	dataPath   string
	promptPath string
	images     string
	model      string
	seed       uint64
	maxHours   int
	workers    int
	force      bool

	config   *cloud.Config
	closers  []func() error
	shutdown func(context.Context) error
}

func (o *options) addCommonFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&o.configDir, "config-dir", "", "directory holding .env.toml files (overrides $"+cloud.EnvConfigFilePrefix+")")
	f.StringVar(&o.runtime, "runtime", "", "runtime configuration to layer on top of .env.toml (overrides $"+cloud.EnvConfigRuntime+")")
	f.StringVar(&o.logLevel, "log-level", "info", "minimum log level: debug, info, warn or error")
	f.StringVar(&o.logFile, "log-file", "", "also write logs to this file")
	f.StringVar(&o.dataPath, "data", "", "dataset file to enrich (default "+cloud.DefaultDatasetPath+")")
}

func (o *options) addTimestampFlags(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&o.seed, "seed", cloud.DefaultSeed, "seed of the timestamp generator")
	cmd.Flags().IntVar(&o.maxHours, "max-hours", cloud.DefaultMaxHours, "largest hour value of a timestamp")
}

func (o *options) addDescribeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.promptPath, "prompt", "", "prompt template file (default "+cloud.DefaultPromptPath+")")
	cmd.Flags().StringVar(&o.images, "images", "", "image directory or gs://bucket/prefix (default "+cloud.DefaultImageLocation+")")
	cmd.Flags().StringVar(&o.model, "model", "", "model id used for descriptions (default "+cloud.DefaultGeminiModel+")")
	cmd.Flags().IntVar(&o.workers, "workers", cloud.DefaultWorkers, "concurrent description requests")
}

// setup loads the configuration, applies flag overrides and installs
// logging and telemetry.
func (o *options) setup(cmd *cobra.Command) error {
	if o.configDir != "" {
		if err := os.Setenv(cloud.EnvConfigFilePrefix, o.configDir); err != nil {
			return err
		}
	}
	if o.runtime != "" {
		if err := os.Setenv(cloud.EnvConfigRuntime, o.runtime); err != nil {
			return err
		}
	}

	config := cloud.NewConfig()
	loaded, err := cloud.LoadConfig(config)
	if err != nil {
		return err
	}
	if err := o.applyFlags(cmd, config); err != nil {
		return err
	}
	o.config = config

	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	logFile := config.Application.LogFile
	closeLog, err := telemetry.SetupLogging(os.Stderr, logFile, level)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logFile, err)
	}
	o.closers = append(o.closers, closeLog)
	slog.Debug("configuration loaded", "files", loaded)

	o.shutdown, err = telemetry.SetupOpenTelemetry(cmd.Context(), config)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	return nil
}

// applyFlags copies every flag the user set onto the configuration.
func (o *options) applyFlags(cmd *cobra.Command, config *cloud.Config) error {
	f := cmd.Flags()
	if f.Changed("data") {
		config.Dataset.Path = o.dataPath
	}
	if f.Changed("log-file") {
		config.Application.LogFile = o.logFile
	}
	if f.Changed("prompt") {
		config.Prompt.Path = o.promptPath
	}
	if f.Changed("images") {
		config.Images.Location = o.images
	}
	if f.Changed("seed") {
		config.Timestamps.Seed = o.seed
	}
	if f.Changed("max-hours") {
		if o.maxHours < 0 || o.maxHours > cloud.MaxHoursLimit {
			return fmt.Errorf("--max-hours must be between 0 and %d", cloud.MaxHoursLimit)
		}
		config.Timestamps.MaxHours = o.maxHours
	}
	if f.Changed("workers") {
		if o.workers < 1 {
			return errors.New("--workers must be at least 1")
		}
		config.Application.ThreadPoolSize = o.workers
	}
	if f.Changed("model") {
		values, ok := config.DescriptionModel()
		if !ok {
			return fmt.Errorf("agent model %q is not configured", config.Application.AgentModel)
		}
		values.Model = o.model
		config.AgentModels[config.Application.AgentModel] = values
	}
	return nil
}

func (o *options) teardown(ctx context.Context) error {
	var err error
	if o.shutdown != nil {
		err = errors.Join(err, o.shutdown(ctx))
		o.shutdown = nil
	}
	for i := len(o.closers) - 1; i >= 0; i-- {
		err = errors.Join(err, o.closers[i]())
	}
	o.closers = nil
	return err
}

// run builds the workflow for mode and executes it once.
func (o *options) run(ctx context.Context, mode workflow.Mode) error {
	var (
		describer services.Describer
		images    services.ImageStore
	)
	if mode.Describes() {
		clients, err := cloud.NewCloudServiceClients(ctx, o.config, cloud.IsGCSURI(o.config.Images.Location))
		if err != nil {
			return err
		}
		defer clients.Close()

		describer, images, err = newDescriptionServices(o.config, clients)
		if err != nil {
			return err
		}
	}

	wf, err := workflow.NewEnrichmentWorkflow(o.config, mode, nil, describer, images)
	if err != nil {
		return err
	}
	_, err = wf.Run(ctx)
	return err
}

// newDescriptionServices wires the selected model and the image store.
func newDescriptionServices(config *cloud.Config, clients *cloud.ServiceClients) (services.Describer, services.ImageStore, error) {
	name := config.Application.AgentModel
	generativeAIModel, ok := clients.AgentModels[name]
	if !ok {
		return nil, nil, fmt.Errorf("agent model %q is not configured", name)
	}
	describer, err := services.NewGeminiDescriber(name, generativeAIModel)
	if err != nil {
		return nil, nil, err
	}
	images, err := services.NewImageStore(config.Images, clients.StorageClient)
	if err != nil {
		return nil, nil, err
	}
	return describer, images, nil
}

// initPrompt writes the default prompt template.
func (o *options) initPrompt(ctx context.Context) error {
	path := o.config.Prompt.Path
	if _, err := os.Stat(path); err == nil && !o.force {
		return fmt.Errorf("%s already exists, use --force to overwrite it", path)
	}
	if _, err := services.ParsePromptTemplate(path, model.DefaultPromptTemplate); err != nil {
		return err
	}
	if err := renameio.WriteFile(path, []byte(model.DefaultPromptTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	slog.InfoContext(ctx, "prompt template written", "path", path)
	return nil
}
