// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package auditui

import (
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/junegunn/fzf/src/util"

	"github.com/warrant-foundation/warrant/lib/auditindex"
)

// fzf slab dimensions, matching fzf's own defaults. One slab is
// allocated per ApplyFuzzy call and shared across all rows in it.
const (
	slab16Size = 100 * 1024
	slab32Size = 2048
)

// FilterModel implements fzf-style fuzzy matching across entry
// fields: action, origin, decision, stage, domain, trace, nonce, and
// timestamp. The filter composes with tabs: the tab chooses the base
// set (all entries or one decision), and the filter narrows it
// client-side.
type FilterModel struct {
	// Input is the current filter query text.
	Input string

	// Active is true when the filter input has keyboard focus
	// (the user pressed / to start typing).
	Active bool
}

// FilterResult pairs a row with its best match score and the matched
// rune positions in the action column, for highlight rendering.
type FilterResult struct {
	Row             auditindex.Row
	Score           int
	ActionPositions []int
}

// ApplyFuzzy scores every row against the filter text and returns the
// matching ones sorted by score, best first; rows with equal scores
// keep their incoming (newest first) order. An empty filter returns
// every row with zero score.
func (filter *FilterModel) ApplyFuzzy(rows []auditindex.Row) []FilterResult {
	if filter.Input == "" {
		results := make([]FilterResult, len(rows))
		for index, row := range rows {
			results[index] = FilterResult{Row: row}
		}
		return results
	}

	pattern := []rune(filter.Input)
	slab := util.MakeSlab(slab16Size, slab32Size)

	var results []FilterResult
	for _, row := range rows {
		score, actionPositions := matchRow(row, pattern, slab)
		if score <= 0 {
			continue
		}
		results = append(results, FilterResult{
			Row:             row,
			Score:           score,
			ActionPositions: actionPositions,
		})
	}

	slices.SortStableFunc(results, func(a, b FilterResult) int {
		return b.Score - a.Score
	})
	return results
}

// matchRow fuzzy-matches the pattern against each searchable field
// and returns the best score. Action match positions are kept for
// highlighting; matches in other fields select the row without
// highlighting anything.
func matchRow(row auditindex.Row, pattern []rune, slab *util.Slab) (int, []int) {
	best := 0
	var actionPositions []int

	if result := fuzzyMatch(row.Action, pattern, slab); result.Score > 0 {
		best = result.Score
		actionPositions = result.Positions
	}

	for _, field := range []string{
		row.Origin,
		row.Decision,
		row.Stage,
		row.Domain,
		row.Trace,
		row.Nonce,
		row.Time,
	} {
		if result := fuzzyMatch(field, pattern, slab); result.Score > best {
			best = result.Score
		}
	}

	return best, actionPositions
}

// HandleRune processes a character typed while the filter is active.
// Returns true if the input changed.
func (filter *FilterModel) HandleRune(character rune) bool {
	filter.Input += string(character)
	return true
}

// HandleBackspace removes the last character from the filter input.
// Returns true if the input changed.
func (filter *FilterModel) HandleBackspace() bool {
	if len(filter.Input) == 0 {
		return false
	}
	runes := []rune(filter.Input)
	filter.Input = string(runes[:len(runes)-1])
	return true
}

// Clear resets the filter input and deactivates it.
func (filter *FilterModel) Clear() {
	filter.Input = ""
	filter.Active = false
}

// View renders the filter bar. When active, shows the input with a
// cursor. When inactive with text, shows the filter text. When
// inactive with no text, returns empty string (hidden).
func (filter *FilterModel) View(theme Theme, width int) string {
	if !filter.Active && filter.Input == "" {
		return ""
	}

	style := lipgloss.NewStyle().
		Foreground(theme.NormalText).
		Width(width)

	if filter.Active {
		cursor := lipgloss.NewStyle().
			Foreground(theme.HeaderForeground).
			Bold(true).
			Render("▎")
		return style.Render(" / " + filter.Input + cursor)
	}

	// Inactive but has text — show the filter as a subtle indicator.
	dimStyle := lipgloss.NewStyle().
		Foreground(theme.FaintText).
		Width(width)
	return dimStyle.Render(" filter: " + filter.Input)
}
