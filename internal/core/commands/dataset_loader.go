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
// Responsibility (COR) pattern's Command interface. Each command is one stage
// of the enrichment pipeline: load, stamp, describe and write.
//
// Commands exchange a *model.Dataset through the chain's CtxIn/CtxOut
// piping. A *model.RunSummary stored under SummaryParam, when present, is
// updated as the stages progress.
package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/cor"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/model"
)

// SummaryParam is the context key of the run's *model.RunSummary.
const SummaryParam = "__SUMMARY__"

// DatasetLoader reads and parses the dataset file. It is the first command
// of every chain and needs no input.
type DatasetLoader struct {
	cor.BaseCommand
	path string
}

// NewDatasetLoader creates a loader for the file at path.
func NewDatasetLoader(name string, path string) *DatasetLoader {
	return &DatasetLoader{BaseCommand: *cor.NewBaseCommand(name), path: path}
}

// IsExecutable only requires a Go context, the file path is fixed.
func (l *DatasetLoader) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil
}

func (l *DatasetLoader) Execute(context cor.Context) {
	ctx := context.GetContext()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%s: %w", l.path, model.ErrFileNotFound)
		} else {
			err = fmt.Errorf("failed to read %s: %w", l.path, err)
		}
		l.Fail(context, err)
		return
	}

	dataset, err := model.ParseDataset(data)
	if err != nil {
		l.Fail(context, fmt.Errorf("%s: %w", l.path, err))
		return
	}

	skipped := 0
	for _, e := range dataset.Elements() {
		if !e.IsRecord() {
			skipped++
		}
	}
	if summary := summaryFrom(context); summary != nil {
		summary.Path = l.path
		summary.Elements = dataset.Len()
		summary.Skipped = skipped
	}

	slog.InfoContext(ctx, "processing dataset", "path", l.path, "elements", dataset.Len(), "non_objects", skipped)
	l.Succeed(context)
	context.Add(l.GetOutputParam(), dataset)
}

// datasetFrom returns the dataset stored under the command's input key.
func datasetFrom(context cor.Context, key string) (*model.Dataset, error) {
	dataset, ok := context.Get(key).(*model.Dataset)
	if !ok || dataset == nil {
		return nil, fmt.Errorf("%w: no dataset under %q", cor.ErrNotExecutable, key)
	}
	return dataset, nil
}

func summaryFrom(context cor.Context) *model.RunSummary {
	summary, _ := context.Get(SummaryParam).(*model.RunSummary)
	return summary
}
