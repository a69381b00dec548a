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

package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
)

// Indent is the indentation used when a dataset is written back to disk.
const Indent = "    "

// Input errors. These are fatal for a run.
var (
	ErrFileNotFound = errors.New("file not found")
	ErrInvalidJSON  = errors.New("content is not valid JSON")
	ErrNotArray     = errors.New("content is not an array of objects")
)

// Element is one entry of the top-level array. Object entries are parsed
// into a Record; anything else is kept verbatim so it can be written back.
type Element struct {
	record *Record
	raw    json.RawMessage
}

// IsRecord reports whether the element is a JSON object.
func (e Element) IsRecord() bool {
	return e.record != nil
}

// Record returns the element's record, or false for non-object elements.
func (e Element) Record() (Record, bool) {
	if e.record == nil {
		return Record{}, false
	}
	return *e.record, true
}

// String renders the element for log messages.
func (e Element) String() string {
	if e.record != nil {
		b, err := e.record.MarshalJSON()
		if err != nil {
			return "<unprintable record>"
		}
		return quoteForLog(b)
	}
	return quoteForLog(e.raw)
}

func (e Element) marshal() ([]byte, error) {
	if e.record != nil {
		return e.record.MarshalJSON()
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, e.raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Dataset is the ordered content of a shot metadata file.
type Dataset struct {
	elements []Element
}

// NewDataset builds a dataset from records, mostly for tests and tooling.
func NewDataset(records ...Record) *Dataset {
	d := &Dataset{elements: make([]Element, 0, len(records))}
	for i := range records {
		r := records[i]
		d.elements = append(d.elements, Element{record: &r})
	}
	return d
}

// ParseDataset parses a JSON document whose top level must be an array.
// Array entries that are objects become records; other entries are kept
// as they are.
func ParseDataset(data []byte) (*Dataset, error) {
	if !json.Valid(data) {
		return nil, ErrInvalidJSON
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, ErrNotArray
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if raws == nil {
		// A literal null decodes into a nil slice without error.
		return nil, ErrNotArray
	}

	out := &Dataset{elements: make([]Element, 0, len(raws))}
	for i, raw := range raws {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			var r Record
			if err := r.UnmarshalJSON(trimmed); err != nil {
				return nil, fmt.Errorf("%w: element %d: %v", ErrInvalidJSON, i, err)
			}
			out.elements = append(out.elements, Element{record: &r})
			continue
		}
		out.elements = append(out.elements, Element{raw: trimmed})
	}
	return out, nil
}

// Len returns the number of elements, objects or not.
func (d *Dataset) Len() int {
	return len(d.elements)
}

// At returns the element at index i.
func (d *Dataset) At(i int) Element {
	return d.elements[i]
}

// Elements returns a copy of the element slice.
func (d *Dataset) Elements() []Element {
	out := make([]Element, len(d.elements))
	copy(out, d.elements)
	return out
}

// Records yields the index and value of every object element, in order.
// Non-object elements are not visited.
func (d *Dataset) Records() iter.Seq2[int, Record] {
	return func(yield func(int, Record) bool) {
		for i, e := range d.elements {
			if e.record == nil {
				continue
			}
			if !yield(i, *e.record) {
				return
			}
		}
	}
}

// Replace returns a new dataset in which element i is the given record.
// The receiver is left untouched.
func (d *Dataset) Replace(i int, r Record) *Dataset {
	out := d.Clone()
	out.elements[i] = Element{record: &r}
	return out
}

// Clone returns a shallow copy. Records are values, so sharing them is safe.
func (d *Dataset) Clone() *Dataset {
	return &Dataset{elements: d.Elements()}
}

// WithRecords returns a new dataset where each index present in updates
// is replaced by the corresponding record.
func (d *Dataset) WithRecords(updates map[int]Record) *Dataset {
	out := d.Clone()
	for i, r := range updates {
		r := r
		out.elements[i] = Element{record: &r}
	}
	return out
}

// MarshalJSON writes the dataset as a compact JSON array.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range d.elements {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := e.marshal()
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// MarshalIndent renders the dataset the way it is stored on disk: one
// field per line, four spaces per level, no trailing newline.
func (d *Dataset) MarshalIndent() ([]byte, error) {
	compact, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", Indent); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
