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
	"fmt"
	"log/slog"
	"os"

	"github.com/google/renameio/v2"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/cor"
)

// DatasetWriter replaces the dataset file with the enriched dataset. The
// new content goes to a temporary file in the same directory which is
// synced and renamed over the original, so readers see either the old or
// the new file.
type DatasetWriter struct {
	cor.BaseCommand
	path string
	perm os.FileMode
}

// NewDatasetWriter creates a writer for path. New files get mode 0644;
// existing files keep their mode.
func NewDatasetWriter(name string, path string) *DatasetWriter {
	return &DatasetWriter{BaseCommand: *cor.NewBaseCommand(name), path: path, perm: 0o644}
}

func (w *DatasetWriter) Execute(context cor.Context) {
	ctx := context.GetContext()
	dataset, err := datasetFrom(context, w.GetInputParam())
	if err != nil {
		w.Fail(context, err)
		return
	}

	data, err := dataset.MarshalIndent()
	if err != nil {
		w.Fail(context, fmt.Errorf("failed to encode dataset: %w", err))
		return
	}

	perm := w.perm
	if info, err := os.Stat(w.path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := writeFileAtomic(w.path, data, perm); err != nil {
		w.Fail(context, err)
		return
	}

	if summary := summaryFrom(context); summary != nil {
		summary.Written = true
	}
	slog.InfoContext(ctx, "dataset saved", "path", w.path, "bytes", len(data))
	w.Succeed(context)
	context.Add(w.GetOutputParam(), dataset)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(perm))
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
