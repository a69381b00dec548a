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

package commands

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/cor"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TimestampEnricher sets a random "timestamp" on every object record.
// Draws are taken in element order from a single goroutine so a seeded
// source reproduces the same timestamps.
type TimestampEnricher struct {
	cor.BaseCommand
	generator *model.TimestampGenerator
}

// NewTimestampEnricher creates the command. The source is consumed by the
// command and must not be shared.
func NewTimestampEnricher(name string, source model.RandomSource, maxHours int) *TimestampEnricher {
	return &TimestampEnricher{
		BaseCommand: *cor.NewBaseCommand(name),
		generator:   model.NewTimestampGenerator(source, maxHours),
	}
}

func (t *TimestampEnricher) Execute(context cor.Context) {
	ctx := context.GetContext()
	dataset, err := datasetFrom(context, t.GetInputParam())
	if err != nil {
		t.Fail(context, err)
		return
	}

	updates := make(map[int]model.Record, dataset.Len())
	for i, e := range dataset.Elements() {
		record, ok := e.Record()
		if !ok {
			slog.WarnContext(ctx, "skipping non-object element", "index", i, "element", e.String())
			continue
		}
		updates[i] = record.WithString(model.FieldTimestamp, t.generator.Next())
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("timestamps", len(updates)))
	if summary := summaryFrom(context); summary != nil {
		summary.Timestamps = len(updates)
	}
	t.Succeed(context)
	context.Add(t.GetOutputParam(), dataset.WithRecords(updates))
}
