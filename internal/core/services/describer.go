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

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-shot-metadata/internal/cloud"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/model"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// ErrDescriptionFailed wraps every error coming back from the description
// service.
var ErrDescriptionFailed = errors.New("description service failed")

// Describer produces a textual description of a shot image guided by a
// prompt. Implementations must be safe for concurrent use.
type Describer interface {
	Describe(ctx context.Context, prompt string, image model.ImageAsset) (string, error)
}

// GeminiDescriber sends the prompt and the image inline to a Gemini model.
type GeminiDescriber struct {
	model              *cloud.QuotaAwareGenerativeAIModel
	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
}

// NewGeminiDescriber creates a describer over a rate-limited model. Token
// usage is counted under "<name>.gemini.token.input" and
// "<name>.gemini.token.output".
func NewGeminiDescriber(name string, generativeAIModel *cloud.QuotaAwareGenerativeAIModel) (*GeminiDescriber, error) {
	meter := otel.Meter(telemetry.MeterName)
	input, err := meter.Int64Counter(fmt.Sprintf("%s.gemini.token.input", name))
	if err != nil {
		return nil, err
	}
	output, err := meter.Int64Counter(fmt.Sprintf("%s.gemini.token.output", name))
	if err != nil {
		return nil, err
	}
	return &GeminiDescriber{
		model:              generativeAIModel,
		inputTokenCounter:  input,
		outputTokenCounter: output,
	}, nil
}

func (g *GeminiDescriber) Describe(ctx context.Context, prompt string, image model.ImageAsset) (string, error) {
	contents := cloud.NewUserContent(
		cloud.NewTextPart(prompt),
		cloud.NewInlineImagePart(image.Data, image.MIMEType),
	)
	out, err := cloud.GenerateMultiModalResponse(ctx, g.inputTokenCounter, g.outputTokenCounter, g.model, contents)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrDescriptionFailed, g.model.ModelName, err)
	}
	slog.DebugContext(ctx, "description generated", "model", g.model.ModelName, "image", image.Location, "length", len(out))
	return out, nil
}
