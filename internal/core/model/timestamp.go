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
	"fmt"
	"math/rand/v2"
	"regexp"
)

// DefaultMaxHours bounds the hour component of generated timestamps.
const DefaultMaxHours = 2

// MaxHoursLimit is the largest hour bound that still renders as two digits.
const MaxHoursLimit = 99

// TimestampPattern matches every value produced by TimestampGenerator.
var TimestampPattern = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)

// RandomSource is the subset of *rand.Rand used to draw timestamps.
type RandomSource interface {
	IntN(n int) int
}

// NewSeededSource returns a deterministic PCG-backed generator. Two sources
// built from the same seed yield the same sequence.
func NewSeededSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// TimestampGenerator renders random HH:MM:SS values. Each call to Next
// consumes exactly three draws from the source: hours, minutes, seconds.
type TimestampGenerator struct {
	source   RandomSource
	maxHours int
}

// NewTimestampGenerator creates a generator drawing hours in [0, maxHours].
// A negative maxHours falls back to DefaultMaxHours and values above
// MaxHoursLimit are clamped to it.
func NewTimestampGenerator(source RandomSource, maxHours int) *TimestampGenerator {
	if maxHours < 0 {
		maxHours = DefaultMaxHours
	}
	maxHours = min(maxHours, MaxHoursLimit)
	return &TimestampGenerator{source: source, maxHours: maxHours}
}

// Next returns the next timestamp.
func (g *TimestampGenerator) Next() string {
	hours := g.source.IntN(g.maxHours + 1)
	minutes := g.source.IntN(60)
	seconds := g.source.IntN(60)
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
