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

// Package cloud contains data structures and utilities for interacting with Google Cloud services.
// This file defines the internal representation of a Cloud Storage object
// and the parsing of gs:// URIs used to configure image locations.
package cloud

import (
	"fmt"
	"path"
	"strings"
)

// GCSScheme prefixes Cloud Storage URIs.
const GCSScheme = "gs://"

// GCSObject is a simplified, internal representation of a Google Cloud Storage (GCS)
// object.
type GCSObject struct {
	Bucket   string // The name of the GCS bucket.
	Name     string // The name of the object, or an object prefix.
	MIMEType string // The MIME type of the object, when known.
}

// URI renders the object as gs://bucket/name.
func (o *GCSObject) URI() string {
	return GCSScheme + o.Bucket + "/" + o.Name
}

// Child returns the object at name below this object's prefix.
func (o *GCSObject) Child(name string) *GCSObject {
	return &GCSObject{Bucket: o.Bucket, Name: strings.TrimPrefix(path.Join(o.Name, name), "/")}
}

// IsGCSURI reports whether location points into Cloud Storage.
func IsGCSURI(location string) bool {
	return strings.HasPrefix(location, GCSScheme)
}

// ParseGCSURI splits gs://bucket/prefix into its parts. The prefix may be
// empty.
func ParseGCSURI(uri string) (*GCSObject, error) {
	if !IsGCSURI(uri) {
		return nil, fmt.Errorf("not a Cloud Storage URI: %q", uri)
	}
	rest := strings.TrimPrefix(uri, GCSScheme)
	bucket, name, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return nil, fmt.Errorf("missing bucket in %q", uri)
	}
	return &GCSObject{Bucket: bucket, Name: strings.Trim(name, "/")}, nil
}
