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

// Package test provides utility functions and fakes to support the
// application's test suite: loading the test configuration, laying out a
// throw-away workspace with a dataset, a prompt and shot images, and a
// deterministic Describer.
package test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/jaycherian/gcp-go-shot-metadata/internal/cloud"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/model"
	"github.com/stretchr/testify/require"
)

// JPEGHeader is enough of a JPEG file for MIME sniffing.
var JPEGHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}

// PNGHeader is the PNG signature followed by the start of an IHDR chunk.
var PNGHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R'}

// TestPrompt is the prompt written by NewWorkspace.
const TestPrompt = "Describe the shot from {movie_title} ({year})."

// HandleErr fails the test when err is not nil.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// ConfigDir returns the repository's configs directory.
func ConfigDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "configs")
}

// SetupOS points the configuration loader at the repository's configs
// directory and the "test" runtime.
func SetupOS(t *testing.T) {
	t.Setenv(cloud.EnvConfigFilePrefix, ConfigDir())
	t.Setenv(cloud.EnvConfigRuntime, "test")
}

// GetConfig loads configs/.env.toml and configs/.env.test.toml on top of
// the defaults. Each call returns a fresh copy that the test may modify.
func GetConfig(t *testing.T) *cloud.Config {
	t.Helper()
	SetupOS(t)
	config := cloud.NewConfig()
	_, err := cloud.LoadConfig(config)
	require.NoError(t, err)
	return config
}

// Workspace is a temporary directory laid out like a project checkout.
type Workspace struct {
	Dir        string
	DataPath   string
	PromptPath string
	ImageDir   string
	Config     *cloud.Config
}

// NewWorkspace creates a workspace holding the example shots, the test
// prompt and one JPEG per example shot, and a config pointing at it.
func NewWorkspace(t *testing.T) *Workspace {
	t.Helper()
	dir := t.TempDir()
	ws := &Workspace{
		Dir:        dir,
		DataPath:   filepath.Join(dir, cloud.DefaultDatasetPath),
		PromptPath: filepath.Join(dir, cloud.DefaultPromptPath),
		ImageDir:   filepath.Join(dir, cloud.DefaultImageLocation),
	}
	require.NoError(t, os.MkdirAll(ws.ImageDir, 0o755))

	data, err := model.NewDataset(model.GetExampleShots()...).MarshalIndent()
	require.NoError(t, err)
	ws.WriteDataset(t, string(data))
	ws.WritePrompt(t, TestPrompt)
	for _, r := range model.GetExampleShots() {
		id, err := r.ID()
		require.NoError(t, err)
		ws.WriteImage(t, id, JPEGHeader)
	}

	config := GetConfig(t)
	config.Dataset.Path = ws.DataPath
	config.Prompt.Path = ws.PromptPath
	config.Images.Location = ws.ImageDir
	config.Images.Extension = cloud.DefaultImageExtension
	ws.Config = config
	return ws
}

// WriteDataset replaces the dataset file content.
func (w *Workspace) WriteDataset(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(w.DataPath, []byte(content), 0o644))
}

// ReadDataset returns the dataset file content.
func (w *Workspace) ReadDataset(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile(w.DataPath)
	require.NoError(t, err)
	return string(b)
}

// WritePrompt replaces the prompt template.
func (w *Workspace) WritePrompt(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(w.PromptPath, []byte(content), 0o644))
}

// WriteImage stores data as the image of the shot with the given id.
func (w *Workspace) WriteImage(t *testing.T, id string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(w.ImageDir, id+cloud.DefaultImageExtension), data, 0o644))
}

// DescribeCall records one call to FakeDescriber.
type DescribeCall struct {
	Prompt string
	Image  model.ImageAsset
}

// FakeDescriber answers "description of <prompt>". Fail, when set, is
// consulted first for every call.
type FakeDescriber struct {
	Fail func(prompt string, image model.ImageAsset) error

	mu    sync.Mutex
	calls []DescribeCall
}

func (f *FakeDescriber) Describe(ctx context.Context, prompt string, image model.ImageAsset) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, DescribeCall{Prompt: prompt, Image: image})
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Fail != nil {
		if err := f.Fail(prompt, image); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("description of %s", prompt), nil
}

// Calls returns a copy of the recorded calls in arrival order.
func (f *FakeDescriber) Calls() []DescribeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]DescribeCall(nil), f.calls...)
}
