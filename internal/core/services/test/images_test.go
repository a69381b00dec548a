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
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-shot-metadata/internal/cloud"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/services"
	test "github.com/jaycherian/gcp-go-shot-metadata/internal/testutil"
	"github.com/zeebo/assert"
)

func TestLocalImageStore(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "inception-001.jpg"), test.JPEGHeader, 0o644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "alien-003.jpg"), test.PNGHeader, 0o644))

	store, err := services.NewImageStore(cloud.Images{Location: dir, Extension: ".jpg"}, nil)
	assert.NoError(t, err)

	image, err := store.Load(context.Background(), "inception-001")
	assert.NoError(t, err)
	assert.Equal(t, image.MIMEType, "image/jpeg")
	assert.Equal(t, image.Location, filepath.Join(dir, "inception-001.jpg"))
	assert.DeepEqual(t, image.Data, test.JPEGHeader)

	// Content wins over the extension.
	image, err = store.Load(context.Background(), "alien-003")
	assert.NoError(t, err)
	assert.Equal(t, image.MIMEType, "image/png")

	_, err = store.Load(context.Background(), "missing-999")
	assert.That(t, errors.Is(err, services.ErrImageNotFound))

	for _, id := range []string{"", "..", "../secrets", `a\b`} {
		_, err = store.Load(context.Background(), id)
		assert.That(t, errors.Is(err, services.ErrInvalidID))
	}
}

func TestNewImageStoreForBucketNeedsClient(t *testing.T) {
	_, err := services.NewImageStore(cloud.Images{Location: "gs://stills/frames", Extension: ".jpg"}, nil)
	assert.Error(t, err)

	_, err = services.NewImageStore(cloud.Images{Location: "gs://", Extension: ".jpg"}, nil)
	assert.Error(t, err)
}

func TestDetectMIMEType(t *testing.T) {
	mimeType, err := services.DetectMIMEType(test.JPEGHeader, "x.bin")
	assert.NoError(t, err)
	assert.Equal(t, mimeType, "image/jpeg")

	// Unknown bytes fall back to the extension.
	mimeType, err = services.DetectMIMEType([]byte("not really"), "frame.webp")
	assert.NoError(t, err)
	assert.Equal(t, mimeType, "image/webp")

	// Recognised non-image content is rejected.
	_, err = services.DetectMIMEType([]byte("%PDF-1.7\n"), "frame.jpg")
	assert.That(t, errors.Is(err, services.ErrNotAnImage))

	_, err = services.DetectMIMEType([]byte("plain text"), "frame.txt")
	assert.That(t, errors.Is(err, services.ErrNotAnImage))
}
