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

// Package workflow defines the high-level business logic orchestrations,
// combining commands into pipelines. This file implements the enrichment
// workflow, which loads the shot dataset, adds timestamps and/or
// descriptions and writes it back.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/cloud"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/commands"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/cor"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/model"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/services"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Mode selects the stages of a run.
type Mode string

const (
	ModeTimestamps Mode = "timestamps" // Load, stamp, write.
	ModeDescribe   Mode = "describe"   // Load, describe, write.
	ModeEnrich     Mode = "enrich"     // Load, stamp, describe, write.
)

// ErrUnknownMode is returned by ParseMode for anything but the three modes.
var ErrUnknownMode = errors.New("unknown workflow mode")

// ParseMode converts a string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeTimestamps, ModeDescribe, ModeEnrich:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Describes reports whether the mode calls the description service.
func (m Mode) Describes() bool {
	return m == ModeDescribe || m == ModeEnrich
}

// Stamps reports whether the mode sets timestamps.
func (m Mode) Stamps() bool {
	return m == ModeTimestamps || m == ModeEnrich
}

// EnrichmentWorkflow runs one mode over the configured dataset file.
type EnrichmentWorkflow struct {
	cor.BaseCommand
	mode      Mode
	config    *cloud.Config
	source    model.RandomSource
	describer services.Describer
	images    services.ImageStore
	chain     *cor.BaseChain
}

// NewEnrichmentWorkflow is the constructor for the EnrichmentWorkflow.
//
// Inputs:
//   - config: The application configuration (paths, seed, workers).
//   - mode: The stages to run.
//   - source: The random source for timestamps. Nil means a PCG source
//     seeded with config.Timestamps.Seed.
//   - describer: The description service; required when mode describes.
//   - images: The shot image store; required when mode describes.
//
// Outputs:
//   - *EnrichmentWorkflow: The workflow with its chain built.
//   - error: When a dependency required by the mode is missing.
func NewEnrichmentWorkflow(
	config *cloud.Config,
	mode Mode,
	source model.RandomSource,
	describer services.Describer,
	images services.ImageStore) (*EnrichmentWorkflow, error) {

	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if mode.Describes() && (describer == nil || images == nil) {
		return nil, fmt.Errorf("mode %s needs a describer and an image store", mode)
	}
	if source == nil {
		source = model.NewSeededSource(config.Timestamps.Seed)
	}

	out := &EnrichmentWorkflow{
		BaseCommand: *cor.NewBaseCommand(fmt.Sprintf("shot-%s-workflow", mode)),
		mode:        mode,
		config:      config,
		source:      source,
		describer:   describer,
		images:      images,
	}
	out.initializeChain()
	return out, nil
}

func (w *EnrichmentWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewDatasetLoader("dataset-loader", w.config.Dataset.Path))
	if w.mode.Stamps() {
		out.AddCommand(commands.NewTimestampEnricher("timestamp-enricher", w.source, w.config.Timestamps.MaxHours))
	}
	if w.mode.Describes() {
		out.AddCommand(commands.NewDescriptionEnricher(
			"description-enricher",
			w.describer,
			w.images,
			w.config.Prompt.Path,
			w.config.Application.ThreadPoolSize))
	}
	out.AddCommand(commands.NewDatasetWriter("dataset-writer", w.config.Dataset.Path))
	w.chain = out
}

// Mode returns the mode the workflow was built for.
func (w *EnrichmentWorkflow) Mode() Mode {
	return w.mode
}

// Commands lists the stage names in execution order.
func (w *EnrichmentWorkflow) Commands() []string {
	return w.chain.Commands()
}

func (w *EnrichmentWorkflow) IsExecutable(context cor.Context) bool {
	return w.chain.IsExecutable(context)
}

// Execute runs the chain on an existing context.
func (w *EnrichmentWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Run executes the workflow once under a fresh run id. The file is written
// only when every stage succeeded. The returned error joins the errors of
// the failed stages.
func (w *EnrichmentWorkflow) Run(ctx context.Context) (*model.RunSummary, error) {
	summary := &model.RunSummary{RunID: uuid.NewString(), Path: w.config.Dataset.Path}
	log := slog.With("run_id", summary.RunID, "mode", string(w.mode))

	ctx, span := w.Tracer.Start(ctx, "enrichment_run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", summary.RunID),
		attribute.String("run.mode", string(w.mode)),
		attribute.String("dataset.path", w.config.Dataset.Path))

	chCtx := cor.NewBaseContext(ctx)
	chCtx.Add(commands.SummaryParam, summary)
	log.InfoContext(ctx, "starting run", "path", w.config.Dataset.Path, "stages", w.Commands())

	w.Execute(chCtx)

	if err := chCtx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
		log.ErrorContext(ctx, "run failed", "error", err, "written", summary.Written)
		return summary, err
	}
	span.SetStatus(codes.Ok, "")
	log.InfoContext(ctx, "run completed",
		"path", summary.Path,
		"elements", summary.Elements,
		"timestamps", summary.Timestamps,
		"described", summary.Described,
		"skipped", summary.Skipped)
	return summary, nil
}
