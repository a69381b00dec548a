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

// Package model defines the core data structures for the application.
// This file, `record.go`, defines the Shot Record: a JSON object whose fields
// keep the order they had in the source file. Values are held as raw JSON so
// that fields this tool does not understand (and numbers with a specific
// textual form) are written back exactly as they were read.
//
// Records are values. The enrichers never mutate a record in place; they
// call `With` or `WithString`, which return a new record sharing nothing
// mutable with the original.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Field names written or read by the enrichment workflow.
const (
	FieldID          = "id"
	FieldMovieTitle  = "movie_title"
	FieldYear        = "year"
	FieldTimestamp   = "timestamp"
	FieldDescription = "description"
)

// ErrMissingField is returned when a record lacks a field the caller needs.
var ErrMissingField = errors.New("missing field")

// Record is an ordered JSON object.
type Record struct {
	keys   []string                   // Field names in insertion order.
	values map[string]json.RawMessage // Raw JSON value per field.
}

// NewRecord creates an empty record.
func NewRecord() Record {
	return Record{values: make(map[string]json.RawMessage)}
}

// Keys returns the field names in order. The returned slice is a copy.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.keys)
}

// Has reports whether the record contains the field.
func (r Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Get returns the raw JSON value stored under key.
func (r Record) Get(key string) (json.RawMessage, bool) {
	v, ok := r.values[key]
	return v, ok
}

// String returns the value of key when it is a JSON string.
func (r Record) String(key string) (string, bool) {
	raw, ok := r.values[key]
	if !ok || isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// ID renders the record identifier as text. String identifiers are returned
// unquoted and numeric identifiers in their original textual form.
func (r Record) ID() (string, error) {
	raw, ok := r.values[FieldID]
	if !ok {
		return "", fmt.Errorf("record %w %q", ErrMissingField, FieldID)
	}
	raw = bytes.TrimSpace(raw)
	if s, ok := r.String(FieldID); ok {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil && !isNull(raw) {
		return n.String(), nil
	}
	return "", fmt.Errorf("record field %q must be a string or a number, got %s", FieldID, raw)
}

// Fields decodes every top-level value into plain Go values. Numbers are
// decoded as json.Number so that they render exactly as written.
func (r Record) Fields() (map[string]any, error) {
	out := make(map[string]any, len(r.keys))
	for _, k := range r.keys {
		dec := json.NewDecoder(bytes.NewReader(r.values[k]))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode field %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// With returns a copy of the record with key set to the JSON encoding of
// value. An existing key keeps its position; a new key is appended.
func (r Record) With(key string, value any) (Record, error) {
	raw, err := encodeValue(value)
	if err != nil {
		return Record{}, fmt.Errorf("encode field %q: %w", key, err)
	}
	return r.withRaw(key, raw), nil
}

// WithString is With for string values, which cannot fail to encode.
func (r Record) WithString(key string, value string) Record {
	raw, _ := encodeValue(value)
	return r.withRaw(key, raw)
}

func (r Record) withRaw(key string, raw json.RawMessage) Record {
	out := Record{
		keys:   make([]string, len(r.keys), len(r.keys)+1),
		values: make(map[string]json.RawMessage, len(r.values)+1),
	}
	copy(out.keys, r.keys)
	for k, v := range r.values {
		out.values[k] = v
	}
	if _, exists := out.values[key]; !exists {
		out.keys = append(out.keys, key)
	}
	out.values[key] = raw
	return out
}

// MarshalJSON writes the fields in order, compactly.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := encodeValue(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := json.Compact(&buf, r.values[k]); err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object keeping its key order. A repeated key keeps
// its first position and its last value.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected a JSON object, got %v", tok)
	}
	out := NewRecord()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected an object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		if _, exists := out.values[key]; !exists {
			out.keys = append(out.keys, key)
		}
		out.values[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

// encodeValue marshals v without escaping <, > and &.
func encodeValue(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// quoteForLog keeps warning messages short for large elements.
func quoteForLog(raw json.RawMessage) string {
	const limit = 80
	s := string(bytes.TrimSpace(raw))
	if len(s) > limit {
		return strconv.Quote(s[:limit]) + "..."
	}
	return s
}
