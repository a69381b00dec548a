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

// Package services contains the business logic that talks to the outside
// world on behalf of the commands. This file implements the prompt template.
//
// Prompt files use single-brace placeholders, e.g. "{movie_title}", and
// doubled braces for literal ones. At load time the file is translated into a
// text/template so that formatting a record is a plain template execution.
package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/jaycherian/gcp-go-shot-metadata/internal/core/model"
)

// ErrMalformedTemplate is returned for unbalanced braces, placeholders that
// are not plain field names and placeholders with no matching field.
var ErrMalformedTemplate = errors.New("malformed prompt template")

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PromptTemplate is a parsed prompt file.
type PromptTemplate struct {
	source string
	fields []string
	tmpl   *template.Template
}

// LoadPromptTemplate reads and parses the prompt file at path.
func LoadPromptTemplate(path string) (*PromptTemplate, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("prompt template %s: %w", path, model.ErrFileNotFound)
		}
		return nil, fmt.Errorf("failed to read prompt template %s: %w", path, err)
	}
	return ParsePromptTemplate(path, string(b))
}

// ParsePromptTemplate parses src. The name is only used in error messages.
func ParsePromptTemplate(name string, src string) (*PromptTemplate, error) {
	translated, fields, err := translate(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(translated)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedTemplate, name, err)
	}
	return &PromptTemplate{source: src, fields: fields, tmpl: tmpl}, nil
}

// Fields returns the distinct placeholder names in order of first use.
func (p *PromptTemplate) Fields() []string {
	return append([]string(nil), p.fields...)
}

// Source returns the unparsed template text.
func (p *PromptTemplate) Source() string {
	return p.source
}

// Format substitutes every placeholder with the matching record field.
// Values are rendered from the record's own JSON, so nested objects keep
// their key order and text is not HTML-escaped.
func (p *PromptTemplate) Format(record model.Record) (string, error) {
	params := make(map[string]string, len(p.fields))
	for _, name := range p.fields {
		raw, ok := record.Get(name)
		if !ok {
			return "", fmt.Errorf("%w: no field %q", ErrMalformedTemplate, name)
		}
		s, err := renderRaw(raw)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", name, err)
		}
		params[name] = s
	}
	return p.execute(params)
}

// FormatFields substitutes every placeholder with values[name]. Strings are
// inserted as they are, numbers in their JSON spelling and nested values as
// compact JSON.
func (p *PromptTemplate) FormatFields(values map[string]any) (string, error) {
	params := make(map[string]string, len(p.fields))
	for _, name := range p.fields {
		v, ok := values[name]
		if !ok {
			return "", fmt.Errorf("%w: no field %q", ErrMalformedTemplate, name)
		}
		s, err := renderValue(v)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", name, err)
		}
		params[name] = s
	}
	return p.execute(params)
}

func (p *PromptTemplate) execute(params map[string]string) (string, error) {
	var sb strings.Builder
	if err := p.tmpl.Execute(&sb, params); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedTemplate, err)
	}
	return sb.String(), nil
}

// renderRaw renders one JSON value: strings unquoted, scalars as written,
// objects and arrays compacted.
func renderRaw(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", errors.New("empty value")
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return "", err
		}
		return buf.String(), nil
	default:
		return string(trimmed), nil
	}
}

func renderValue(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "null", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(t); err != nil {
			return "", err
		}
		return strings.TrimRight(buf.String(), "\n"), nil
	}
}

// translate rewrites brace placeholders into template actions.
func translate(src string) (string, []string, error) {
	var out strings.Builder
	var fields []string
	seen := make(map[string]bool)

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '{' && i+1 < len(src) && src[i+1] == '{':
			out.WriteString(`{{"{"}}`)
			i++
		case c == '}' && i+1 < len(src) && src[i+1] == '}':
			out.WriteString(`{{"}"}}`)
			i++
		case c == '{':
			end := strings.IndexByte(src[i+1:], '}')
			if end < 0 {
				return "", nil, fmt.Errorf("%w: unclosed '{' at offset %d", ErrMalformedTemplate, i)
			}
			name := src[i+1 : i+1+end]
			if !fieldName.MatchString(name) {
				return "", nil, fmt.Errorf("%w: invalid placeholder %q at offset %d", ErrMalformedTemplate, "{"+name+"}", i)
			}
			if !seen[name] {
				seen[name] = true
				fields = append(fields, name)
			}
			out.WriteString("{{." + name + "}}")
			i += end + 1
		case c == '}':
			return "", nil, fmt.Errorf("%w: single '}' at offset %d", ErrMalformedTemplate, i)
		default:
			out.WriteByte(c)
		}
	}
	return out.String(), fields, nil
}
