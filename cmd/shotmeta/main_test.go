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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-shot-metadata/internal/cloud"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/model"
	test "github.com/jaycherian/gcp-go-shot-metadata/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI runs the CLI with args against the repository configuration.
func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	test.SetupOS(t)
	return execute(context.Background(), &options{}, append(args, "--log-level", "error"))
}

func TestTimestampsCommand(t *testing.T) {
	ws := test.NewWorkspace(t)
	copyPath := filepath.Join(ws.Dir, "copy.json")
	original, err := os.ReadFile(ws.DataPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(copyPath, original, 0o644))

	require.NoError(t, runCLI(t, "timestamps", "--data", ws.DataPath, "--seed", "42", "--max-hours", "0"))
	require.NoError(t, runCLI(t, "timestamps", "--data", copyPath, "--seed", "42", "--max-hours", "0"))

	ds, err := model.ParseDataset([]byte(ws.ReadDataset(t)))
	require.NoError(t, err)
	count := 0
	for _, r := range ds.Records() {
		ts, ok := r.String(model.FieldTimestamp)
		require.True(t, ok)
		assert.True(t, strings.HasPrefix(ts, "00:"), ts)
		count++
	}
	assert.Equal(t, 3, count)

	fromCopy, err := os.ReadFile(copyPath)
	require.NoError(t, err)
	assert.Equal(t, ws.ReadDataset(t), string(fromCopy))
}

func TestTimestampsCommandMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nothing.json")
	err := runCLI(t, "timestamps", "--data", path)
	assert.ErrorIs(t, err, model.ErrFileNotFound)
	assert.NoFileExists(t, path)
}

func TestInitPromptCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")

	require.NoError(t, runCLI(t, "init-prompt", "--prompt", path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultPromptTemplate, string(b))

	require.NoError(t, os.WriteFile(path, []byte("custom {movie_title}"), 0o644))
	assert.Error(t, runCLI(t, "init-prompt", "--prompt", path))
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom {movie_title}", string(b))

	require.NoError(t, runCLI(t, "init-prompt", "--prompt", path, "--force"))
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultPromptTemplate, string(b))
}

func TestInvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "workers", args: []string{"describe", "--workers", "0"}, want: "--workers"},
		{name: "negative max hours", args: []string{"enrich", "--max-hours", "-1"}, want: "--max-hours"},
		{name: "three digit hours", args: []string{"timestamps", "--max-hours", "100"}, want: "--max-hours"},
		{name: "log level", args: []string{"timestamps", "--log-level", "loud"}, want: "--log-level"},
		{name: "extra argument", args: []string{"timestamps", "metadata.json"}, want: "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test.SetupOS(t)
			err := execute(context.Background(), &options{}, tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTeardownRunsAfterFailure(t *testing.T) {
	test.SetupOS(t)
	dir := t.TempDir()
	logFile := filepath.Join(dir, "shotmeta.log")
	opts := &options{}

	err := execute(context.Background(), opts, []string{
		"timestamps", "--data", filepath.Join(dir, "missing.json"), "--log-file", logFile,
	})
	assert.ErrorIs(t, err, model.ErrFileNotFound)
	assert.Empty(t, opts.closers)
	assert.Nil(t, opts.shutdown)

	logged, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(logged), "shotmeta failed")
}

func TestTeardownRunsAfterSuccess(t *testing.T) {
	test.SetupOS(t)
	ws := test.NewWorkspace(t)
	opts := &options{}

	err := execute(context.Background(), opts, []string{
		"timestamps", "--data", ws.DataPath, "--log-file", filepath.Join(ws.Dir, "shotmeta.log"),
	})
	require.NoError(t, err)
	assert.Empty(t, opts.closers)
	assert.Nil(t, opts.shutdown)
}

func TestApplyFlagsOverridesConfig(t *testing.T) {
	config := test.GetConfig(t)
	opts := &options{}
	var describe *cobra.Command
	for _, c := range newRootCommandWith(opts).Commands() {
		if c.Name() == "describe" {
			describe = c
		}
	}
	require.NotNil(t, describe)
	require.NoError(t, describe.ParseFlags([]string{"--model", "gemini-2.5-pro", "--workers", "6", "--images", "gs://stills/shots"}))

	require.NoError(t, opts.applyFlags(describe, config))
	values, ok := config.DescriptionModel()
	require.True(t, ok)
	assert.Equal(t, "gemini-2.5-pro", values.Model)
	assert.Equal(t, 6, config.Application.ThreadPoolSize)
	assert.Equal(t, "gs://stills/shots", config.Images.Location)
	assert.Equal(t, cloud.DefaultSeed, int(config.Timestamps.Seed))
}
