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

// Package services_test contains the test suite for the services package:
// prompt templates, image stores and the Gemini describer.
package services_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/model"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, src string) model.Record {
	t.Helper()
	var r model.Record
	require.NoError(t, json.Unmarshal([]byte(src), &r))
	return r
}

func TestPromptFormatsRecordFields(t *testing.T) {
	p, err := services.ParsePromptTemplate("prompt.txt", "Describe the shot from {movie_title} ({year}).")
	require.NoError(t, err)
	assert.Equal(t, []string{"movie_title", "year"}, p.Fields())

	out, err := p.Format(record(t, `{"id": "inception-001", "movie_title": "Inception", "year": 2010}`))
	require.NoError(t, err)
	assert.Equal(t, "Describe the shot from Inception (2010).", out)
}

func TestPromptRendering(t *testing.T) {
	tests := []struct {
		name     string
		template string
		record   string
		want     string
	}{
		{
			name:     "literal braces",
			template: `Answer as {{"title": "{movie_title}"}}`,
			record:   `{"movie_title": "Heat"}`,
			want:     `Answer as {"title": "Heat"}`,
		},
		{
			name:     "repeated field",
			template: "{movie_title}, {movie_title}!",
			record:   `{"movie_title": "Alien"}`,
			want:     "Alien, Alien!",
		},
		{
			name:     "numbers keep their spelling",
			template: "{year} at {ratio}",
			record:   `{"year": 1982, "ratio": 2.40}`,
			want:     "1982 at 2.40",
		},
		{
			name:     "nested values become json",
			template: "{cast} / {colour} / {notes}",
			record:   `{"cast": ["Ford", "Hauer"], "colour": true, "notes": null}`,
			want:     `["Ford","Hauer"] / true / null`,
		},
		{
			name:     "nested objects keep key order and markup",
			template: "Camera: {camera}",
			record:   `{"camera": {"zoom": "<35mm>", "angle": "low & wide", "rig": [1, 2]}}`,
			want:     `Camera: {"zoom":"<35mm>","angle":"low & wide","rig":[1,2]}`,
		},
		{
			name:     "template syntax in text is not interpreted",
			template: "{{.Secret}} {movie_title} <b>",
			record:   `{"movie_title": "M"}`,
			want:     "{.Secret} M <b>",
		},
		{
			name:     "no placeholders",
			template: "Describe this frame.",
			record:   `{}`,
			want:     "Describe this frame.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := services.ParsePromptTemplate("p", tt.template)
			require.NoError(t, err)
			out, err := p.Format(record(t, tt.record))
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestPromptFormatFieldsDoesNotEscapeHTML(t *testing.T) {
	p, err := services.ParsePromptTemplate("p", "{title}: {notes}")
	require.NoError(t, err)

	out, err := p.FormatFields(map[string]any{
		"title": "Heat & Dust",
		"notes": map[string]any{"mood": "<tense>"},
	})
	require.NoError(t, err)
	assert.Equal(t, `Heat & Dust: {"mood":"<tense>"}`, out)
}

func TestPromptRejectsMalformedTemplates(t *testing.T) {
	for _, src := range []string{
		"Describe {movie_title",
		"Describe movie_title}",
		"Describe {}",
		"Describe {0}",
		"Describe {year:04d}",
		"Describe {movie.title}",
		"Describe {movie title}",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := services.ParsePromptTemplate("p", src)
			assert.ErrorIs(t, err, services.ErrMalformedTemplate)
		})
	}
}

func TestPromptUnknownField(t *testing.T) {
	p, err := services.ParsePromptTemplate("p", "{movie_title} by {director}")
	require.NoError(t, err)

	_, err = p.Format(record(t, `{"movie_title": "Heat"}`))
	assert.ErrorIs(t, err, services.ErrMalformedTemplate)
	assert.Contains(t, err.Error(), "director")
}

func TestLoadPromptTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("From {movie_title}.\n"), 0o644))

	p, err := services.LoadPromptTemplate(path)
	require.NoError(t, err)
	assert.Equal(t, "From {movie_title}.\n", p.Source())

	_, err = services.LoadPromptTemplate(filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, model.ErrFileNotFound)
	assert.Contains(t, err.Error(), "missing.txt")
}

func TestDefaultPromptTemplateParses(t *testing.T) {
	p, err := services.ParsePromptTemplate("default", model.DefaultPromptTemplate)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"movie_title", "year"}, p.Fields())

	for _, shot := range model.GetExampleShots() {
		_, err := p.Format(shot)
		assert.NoError(t, err)
	}
}
