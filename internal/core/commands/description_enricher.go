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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// command that asks the description service about every shot.
//
// Logic Flow:
//  1. The prompt template is loaded once for the whole run.
//  2. Each object record becomes a job carrying its element index.
//  3. A bounded errgroup runs the jobs. A job loads the shot image, formats
//     the prompt with the record's fields and calls the Describer.
//  4. Results land in a slice by job position, so the output order is the
//     input order whatever the number of workers.
//  5. The first failure cancels the remaining jobs and fails the command.
//     No partial result leaves the command.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/cor"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/model"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/services"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// DescriptionEnricher sets "description" on every object record.
type DescriptionEnricher struct {
	cor.BaseCommand
	describer  services.Describer
	images     services.ImageStore
	promptPath string
	workers    int
}

// NewDescriptionEnricher creates the command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - describer: The description service.
//   - images: Resolves a record id to its image.
//   - promptPath: The prompt template file, read once per execution.
//   - workers: Maximum concurrent description requests; values below 1 mean 1.
//
// Outputs:
//   - *DescriptionEnricher: The command, ready to be added to a chain.
func NewDescriptionEnricher(
	name string,
	describer services.Describer,
	images services.ImageStore,
	promptPath string,
	workers int) *DescriptionEnricher {
	if workers < 1 {
		workers = 1
	}
	return &DescriptionEnricher{
		BaseCommand: *cor.NewBaseCommand(name),
		describer:   describer,
		images:      images,
		promptPath:  promptPath,
		workers:     workers,
	}
}

type descriptionJob struct {
	index  int
	record model.Record
}

func (d *DescriptionEnricher) Execute(context cor.Context) {
	ctx := context.GetContext()
	dataset, err := datasetFrom(context, d.GetInputParam())
	if err != nil {
		d.Fail(context, err)
		return
	}

	prompt, err := services.LoadPromptTemplate(d.promptPath)
	if err != nil {
		d.Fail(context, err)
		return
	}

	jobs := make([]descriptionJob, 0, dataset.Len())
	for i, e := range dataset.Elements() {
		record, ok := e.Record()
		if !ok {
			slog.WarnContext(ctx, "skipping non-object element", "index", i, "element", e.String())
			continue
		}
		jobs = append(jobs, descriptionJob{index: i, record: record})
	}

	results := make([]model.DescriptionResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for n, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := d.describe(gctx, prompt, job)
			if err != nil {
				return err
			}
			results[n] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		d.Fail(context, err)
		return
	}

	updates := make(map[int]model.Record, len(results))
	for n, result := range results {
		updates[result.Index] = jobs[n].record.WithString(model.FieldDescription, result.Description)
	}
	if summary := summaryFrom(context); summary != nil {
		summary.Described = len(updates)
	}
	d.Succeed(context)
	context.Add(d.GetOutputParam(), dataset.WithRecords(updates))
}

func (d *DescriptionEnricher) describe(ctx context.Context, prompt *services.PromptTemplate, job descriptionJob) (model.DescriptionResult, error) {
	ctx, span := d.Tracer.Start(ctx, "describe_shot")
	defer span.End()
	span.SetAttributes(attribute.Int("index", job.index))

	id, err := job.record.ID()
	if err != nil {
		err = fmt.Errorf("element %d: %w", job.index, err)
		span.SetStatus(codes.Error, err.Error())
		return model.DescriptionResult{}, err
	}
	span.SetAttributes(attribute.String("id", id))

	fail := func(err error) (model.DescriptionResult, error) {
		err = fmt.Errorf("shot %s: %w", id, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.DescriptionResult{}, err
	}

	image, err := d.images.Load(ctx, id)
	if err != nil {
		return fail(err)
	}
	text, err := prompt.Format(job.record)
	if err != nil {
		return fail(err)
	}
	description, err := d.describer.Describe(ctx, text, image)
	if err != nil {
		return fail(err)
	}

	slog.InfoContext(ctx, "shot described", "index", job.index, "id", id)
	return model.DescriptionResult{Index: job.index, RecordID: id, Description: description}, nil
}
