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

// Package model_test contains unit tests for the data models defined in the
// model package. This file covers parsing and serializing shot datasets.
package model_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDatasetKeepsOrderAndNumbers(t *testing.T) {
	in := `[{"year": 2010, "id": "a", "movie_title": "Inception", "ratio": 1.50, "big": 12345678901234567890}]`

	ds, err := model.ParseDataset([]byte(in))
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	r, ok := ds.At(0).Record()
	require.True(t, ok)
	assert.Equal(t, []string{"year", "id", "movie_title", "ratio", "big"}, r.Keys())

	out, err := ds.MarshalJSON()
	require.NoError(t, err)
	want := `[{"year":2010,"id":"a","movie_title":"Inception","ratio":1.50,"big":12345678901234567890}]`
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDatasetErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{name: "empty", in: "", want: model.ErrInvalidJSON},
		{name: "truncated", in: `[{"id": 1}`, want: model.ErrInvalidJSON},
		{name: "object", in: `{"id": 1}`, want: model.ErrNotArray},
		{name: "string", in: `"shots"`, want: model.ErrNotArray},
		{name: "null", in: `null`, want: model.ErrNotArray},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := model.ParseDataset([]byte(tt.in))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseDatasetKeepsNonObjects(t *testing.T) {
	ds, err := model.ParseDataset([]byte(`[{"id": 1}, 42, "loose", [1, 2], null]`))
	require.NoError(t, err)
	require.Equal(t, 5, ds.Len())

	assert.True(t, ds.At(0).IsRecord())
	for i := 1; i < ds.Len(); i++ {
		assert.False(t, ds.At(i).IsRecord(), "element %d", i)
	}

	out, err := ds.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1},42,"loose",[1,2],null]`, string(out))
}

func TestMarshalIndentUsesFourSpaces(t *testing.T) {
	ds, err := model.ParseDataset([]byte(`[{"id":"a","tags":["x"],"empty":{}}, 3]`))
	require.NoError(t, err)

	out, err := ds.MarshalIndent()
	require.NoError(t, err)

	want := `[
    {
        "id": "a",
        "tags": [
            "x"
        ],
        "empty": {}
    },
    3
]`
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Errorf("indent mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceDoesNotMutateOriginal(t *testing.T) {
	ds, err := model.ParseDataset([]byte(`[{"id":"a"},{"id":"b"}]`))
	require.NoError(t, err)

	r, _ := ds.At(1).Record()
	updated := ds.Replace(1, r.WithString(model.FieldTimestamp, "01:02:03"))

	orig, _ := ds.At(1).Record()
	assert.False(t, orig.Has(model.FieldTimestamp))

	got, _ := updated.At(1).Record()
	ts, ok := got.String(model.FieldTimestamp)
	assert.True(t, ok)
	assert.Equal(t, "01:02:03", ts)
}

func TestDatasetIsValidJSONForEncodingJSON(t *testing.T) {
	ds := model.NewDataset(model.GetExampleShots()...)
	out, err := json.Marshal(ds)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Len(t, decoded, 3)
	assert.Equal(t, "Inception", decoded[0]["movie_title"])
}
