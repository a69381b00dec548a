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

package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jaycherian/gcp-go-shot-metadata/internal/cloud"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/model"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/services"
	test "github.com/jaycherian/gcp-go-shot-metadata/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type stubModels struct {
	contents []*genai.Content
	answer   string
	err      error
}

func (s *stubModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.contents = contents
	if s.err != nil {
		return nil, s.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: s.answer}}}}},
	}, nil
}

func TestGeminiDescriberSendsPromptAndImage(t *testing.T) {
	stub := &stubModels{answer: "A wide shot of a folding city street.\n"}
	describer, err := services.NewGeminiDescriber("test-describer", cloud.NewQuotaAwareModel(nil, "gemini-2.5-flash", stub, 0, 0))
	require.NoError(t, err)

	image := model.ImageAsset{Location: "images/inception-001.jpg", MIMEType: "image/jpeg", Data: test.JPEGHeader}
	out, err := describer.Describe(context.Background(), "Describe the shot from Inception (2010).", image)
	require.NoError(t, err)
	assert.Equal(t, "A wide shot of a folding city street.", out)

	require.Len(t, stub.contents, 1)
	parts := stub.contents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "Describe the shot from Inception (2010).", parts[0].Text)
	assert.Equal(t, "image/jpeg", parts[1].InlineData.MIMEType)
	assert.Equal(t, test.JPEGHeader, parts[1].InlineData.Data)
}

func TestGeminiDescriberWrapsErrors(t *testing.T) {
	boom := errors.New("PERMISSION_DENIED")
	describer, err := services.NewGeminiDescriber("test-describer", cloud.NewQuotaAwareModel(nil, "gemini-2.5-flash", &stubModels{err: boom}, 0, 0))
	require.NoError(t, err)

	_, err = describer.Describe(context.Background(), "p", model.ImageAsset{})
	assert.ErrorIs(t, err, services.ErrDescriptionFailed)
	assert.ErrorIs(t, err, boom)

	empty, err := services.NewGeminiDescriber("test-describer", cloud.NewQuotaAwareModel(nil, "gemini-2.5-flash", &stubModels{answer: "  "}, 0, 0))
	require.NoError(t, err)
	_, err = empty.Describe(context.Background(), "p", model.ImageAsset{})
	assert.ErrorIs(t, err, cloud.ErrEmptyResponse)
}

func TestFakeDescriberSatisfiesDescriber(t *testing.T) {
	var d services.Describer = &test.FakeDescriber{}
	out, err := d.Describe(context.Background(), "From Heat (1995).", model.ImageAsset{})
	require.NoError(t, err)
	assert.Equal(t, "description of From Heat (1995).", out)
}
