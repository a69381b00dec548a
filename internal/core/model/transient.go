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

// Package model defines the core data structures for the application.
// This file, `transient.go`, contains structs that only exist while a
// workflow runs. They carry data between commands and are never written to
// the dataset file.
package model

// ImageAsset is a loaded shot image, ready to be sent inline to the
// description service.
type ImageAsset struct {
	Location string // Where the image was read from (local path or gs:// URI).
	MIMEType string // e.g. "image/jpeg".
	Data     []byte // Raw file content.
}

// DescriptionResult is produced by a description worker for one record.
type DescriptionResult struct {
	Index       int    // Position of the element in the dataset.
	RecordID    string // Identifier of the record, for logging.
	Description string // Text returned by the description service.
}

// RunSummary reports what a workflow did. It is logged at the end of a run.
type RunSummary struct {
	RunID      string // Unique identifier of this run.
	Path       string // Dataset file that was processed.
	Elements   int    // Number of top-level elements.
	Timestamps int    // Records that received a timestamp.
	Described  int    // Records that received a description.
	Skipped    int    // Non-object elements that were left alone.
	Written    bool   // Whether the dataset was written back.
}
