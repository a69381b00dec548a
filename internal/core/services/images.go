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
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/cloud"
	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/model"
)

// Image errors.
var (
	ErrImageNotFound = errors.New("image not found")
	ErrNotAnImage    = errors.New("content is not an image")
	ErrInvalidID     = errors.New("record id cannot name an image")
)

// ImageStore resolves a record id to its shot image.
type ImageStore interface {
	Load(ctx context.Context, id string) (model.ImageAsset, error)
}

// NewImageStore returns a GCSImageStore when the configured location is a
// gs:// URI and a LocalImageStore otherwise. client may be nil for local
// stores.
func NewImageStore(images cloud.Images, client *storage.Client) (ImageStore, error) {
	if cloud.IsGCSURI(images.Location) {
		prefix, err := cloud.ParseGCSURI(images.Location)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, fmt.Errorf("image location %s requires a storage client", images.Location)
		}
		return &GCSImageStore{Client: client, Prefix: prefix, Extension: images.Extension}, nil
	}
	return &LocalImageStore{Dir: images.Location, Extension: images.Extension}, nil
}

// LocalImageStore reads <Dir>/<id><Extension> from the local file system.
type LocalImageStore struct {
	Dir       string
	Extension string
}

func (s *LocalImageStore) Load(_ context.Context, id string) (model.ImageAsset, error) {
	name, err := imageName(id, s.Extension)
	if err != nil {
		return model.ImageAsset{}, err
	}
	p := filepath.Join(s.Dir, name)
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.ImageAsset{}, fmt.Errorf("%w: %s", ErrImageNotFound, p)
		}
		return model.ImageAsset{}, fmt.Errorf("failed to read image %s: %w", p, err)
	}
	mimeType, err := DetectMIMEType(data, p)
	if err != nil {
		return model.ImageAsset{}, fmt.Errorf("%s: %w", p, err)
	}
	return model.ImageAsset{Location: p, MIMEType: mimeType, Data: data}, nil
}

// GCSImageStore reads gs://<bucket>/<prefix>/<id><Extension>.
type GCSImageStore struct {
	Client    *storage.Client
	Prefix    *cloud.GCSObject
	Extension string
}

func (s *GCSImageStore) Load(ctx context.Context, id string) (model.ImageAsset, error) {
	name, err := imageName(id, s.Extension)
	if err != nil {
		return model.ImageAsset{}, err
	}
	obj := s.Prefix.Child(name)
	reader, err := s.Client.Bucket(obj.Bucket).Object(obj.Name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return model.ImageAsset{}, fmt.Errorf("%w: %s", ErrImageNotFound, obj.URI())
		}
		return model.ImageAsset{}, fmt.Errorf("failed to open %s: %w", obj.URI(), err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return model.ImageAsset{}, fmt.Errorf("failed to read %s: %w", obj.URI(), err)
	}
	mimeType, err := DetectMIMEType(data, obj.Name)
	if err != nil {
		// Fall back to the stored content type for formats the sniffer
		// does not know.
		if ct := reader.Attrs.ContentType; strings.HasPrefix(ct, "image/") {
			mimeType = ct
		} else {
			return model.ImageAsset{}, fmt.Errorf("%s: %w", obj.URI(), err)
		}
	}
	return model.ImageAsset{Location: obj.URI(), MIMEType: mimeType, Data: data}, nil
}

// DetectMIMEType sniffs the image type from its magic bytes. When the bytes
// are not recognised the extension of name decides. Content recognised as
// something other than an image is rejected.
func DetectMIMEType(data []byte, name string) (string, error) {
	kind, err := filetype.Match(data)
	if err == nil && kind != filetype.Unknown {
		if !filetype.IsImage(data) {
			return "", fmt.Errorf("%w: detected %s", ErrNotAnImage, kind.MIME.Value)
		}
		return kind.MIME.Value, nil
	}
	if byExt := mime.TypeByExtension(strings.ToLower(path.Ext(name))); strings.HasPrefix(byExt, "image/") {
		mediaType, _, err := mime.ParseMediaType(byExt)
		if err == nil {
			return mediaType, nil
		}
		return byExt, nil
	}
	return "", fmt.Errorf("%w: unrecognised content in %s", ErrNotAnImage, name)
}

// imageName rejects ids that would escape the image directory.
func imageName(id string, ext string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return id + ext, nil
}
