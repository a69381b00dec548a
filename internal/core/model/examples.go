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

// Package model defines the data structures for the application. This file,
// `examples.go`, provides hardcoded example data: a default prompt template
// and a few shot records. The CLI uses the prompt when scaffolding a new
// prompt file and the tests use the records as fixtures.
package model

// DefaultPromptTemplate is written by `shotmeta init-prompt` when no prompt file
// exists yet. It uses the same {field} placeholders as user templates.
const DefaultPromptTemplate = `You are cataloguing still frames for a cinematography reference library.
The attached image is a shot from the film "{movie_title}" ({year}).

Describe the shot in two or three sentences. Cover the framing and shot size,
the camera angle, the lighting, the colour palette and what the subjects are
doing. Do not repeat the film title. Answer in plain prose without lists.
`

// GetExampleShots returns three well-formed shot records in the shape of the
// shot database.
func GetExampleShots() []Record {
	return []Record{
		NewRecord().
			WithString(FieldID, "inception-001").
			WithString(FieldMovieTitle, "Inception").
			withRaw(FieldYear, []byte("2010")).
			WithString("shot_size", "Wide"),
		NewRecord().
			WithString(FieldID, "blade-runner-014").
			WithString(FieldMovieTitle, "Blade Runner").
			withRaw(FieldYear, []byte("1982")).
			WithString("shot_size", "Close-up"),
		NewRecord().
			WithString(FieldID, "in-the-mood-for-love-007").
			WithString(FieldMovieTitle, "In the Mood for Love").
			withRaw(FieldYear, []byte("2000")).
			WithString("shot_size", "Medium"),
	}
}
