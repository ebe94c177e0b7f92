// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"slices"
	"unicode"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// fzf's matcher reads package-level char-class and bonus tables that
// are only populated by algo.Init; without it uppercase text never
// matches case-insensitively. "default" is fzf's own default scheme.
func init() {
	algo.Init("default")
}

// FuzzyResult is the outcome of a fuzzy match. A zero Score means no
// match; Positions holds the rune indices in the text that matched,
// in ascending order, for highlight rendering.
type FuzzyResult struct {
	Score     int
	Positions []int
}

// FuzzyMatch runs fzf's V2 fuzzy algorithm against a single text.
// Matching is case-insensitive: the pattern is lowercased here and
// the algorithm lowercases the text. The slab is fzf's scratch
// allocation and may be shared across calls on one goroutine; nil
// allocates per call.
func FuzzyMatch(text string, pattern []rune, slab *util.Slab) FuzzyResult {
	if len(pattern) == 0 {
		return FuzzyResult{}
	}

	lowered := make([]rune, len(pattern))
	for index, r := range pattern {
		lowered[index] = unicode.ToLower(r)
	}

	chars := util.ToChars([]byte(text))
	result, positions := algo.FuzzyMatchV2(false, true, true, &chars, lowered, true, slab)
	if result.Score <= 0 {
		return FuzzyResult{}
	}

	match := FuzzyResult{Score: result.Score}
	if positions != nil {
		match.Positions = slices.Clone(*positions)
		slices.Sort(match.Positions)
	}
	return match
}
