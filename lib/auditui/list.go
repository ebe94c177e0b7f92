// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package auditui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/warrant-foundation/warrant/lib/audit"
	"github.com/warrant-foundation/warrant/lib/auditindex"
)

// Column widths for the list table. The action column fills remaining
// space; all others are fixed.
const (
	// columnWidthDecision covers the glyph, a space, the longest
	// decision word ("quarantine"), and a trailing space.
	columnWidthDecision = 13

	// columnWidthTime fits the short timestamp ("Mar 01 15:04:05")
	// plus a trailing space.
	columnWidthTime = 16

	// columnWidthOrigin truncates long origin names to keep the
	// action column usable on narrow terminals.
	columnWidthOrigin = 13
)

// quorumIndicatorWidth is the fixed width reserved for the signer
// count suffix when an entry reached the quorum stage. Format: " N/M".
const quorumIndicatorWidth = 6

// decisionGlyph returns a single-width marker for the decision so a
// row's outcome is recognizable at a glance without reading text.
func decisionGlyph(decision string) string {
	switch decision {
	case "allow":
		return "✓"
	case "quarantine":
		return "◇"
	case "deny":
		return "✗"
	default:
		return "·"
	}
}

// shortTime reformats a log timestamp for column display. Entries
// carry full RFC 3339 timestamps with millisecond precision; the list
// shows month, day, and time, which is what an operator scans for.
// Unparseable values render as-is.
func shortTime(value string) string {
	parsed, err := time.Parse(audit.TimeFormat, value)
	if err != nil {
		return value
	}
	return parsed.Format("Jan 02 15:04:05")
}

// ListRenderer handles the table-style rendering of audit entries
// within a given width.
type ListRenderer struct {
	theme Theme
	width int
}

// NewListRenderer creates a ListRenderer for the given width.
func NewListRenderer(theme Theme, width int) ListRenderer {
	return ListRenderer{theme: theme, width: width}
}

// RenderRow renders a single audit entry as a formatted table row.
// The selected flag controls whether the row gets highlight styling.
// The matchPositions parameter contains rune indices in the action
// that matched the current fuzzy filter query; when non-nil, those
// characters are highlighted with the search highlight background.
//
// Row layout: indent + glyph + decision + time + origin + action [+ " N/M"]
//
//	✓ allow       Mar 01 12:00:00  alice        escrow/release  3/3
//	✗ deny        Mar 01 12:00:03  mallory      volume/delete
func (renderer ListRenderer) RenderRow(row auditindex.Row, selected bool, matchPositions []int) string {
	actionWidth := renderer.width - 1 - columnWidthDecision - columnWidthTime - columnWidthOrigin
	if actionWidth < 10 {
		actionWidth = 10
	}

	// Reserve space for the signer count suffix when present.
	hasQuorum := row.Required > 0
	if hasQuorum {
		actionWidth -= quorumIndicatorWidth
	}

	actionText := row.Action
	if lipgloss.Width(actionText) > actionWidth {
		actionText = truncateString(actionText, actionWidth-1) + "…"
	}

	if selected {
		return renderer.renderSelectedRow(row, actionText, matchPositions)
	}
	return renderer.renderNormalRow(row, actionText, matchPositions)
}

// renderQuorumSuffix returns a styled " N/M" suffix showing how many
// signatures verified against how many the policy required. A short
// count is the visual tell for a quarantined entry, so it renders in
// the quarantine color; full quorum stays faint.
func (renderer ListRenderer) renderQuorumSuffix(valid, required int, selected bool) string {
	if selected {
		// Selected rows use uniform foreground; suffix rendered in
		// the same style as the rest of the row.
		return fmt.Sprintf(" %d/%d", valid, required)
	}
	color := renderer.theme.FaintText
	if valid < required {
		color = renderer.theme.DecisionQuarantine
	}
	return " " + lipgloss.NewStyle().Foreground(color).Render(fmt.Sprintf("%d/%d", valid, required))
}

// renderNormalRow renders a row with per-component foreground colors.
// No background color (default terminal background). matchPositions
// contains rune indices in the original action that should be
// highlighted.
func (renderer ListRenderer) renderNormalRow(row auditindex.Row, actionText string, matchPositions []int) string {
	decisionStyle := lipgloss.NewStyle().
		Width(columnWidthDecision).
		Foreground(renderer.theme.DecisionColor(row.Decision)).
		Bold(row.Decision == "deny")

	timeStyle := lipgloss.NewStyle().
		Width(columnWidthTime).
		Foreground(renderer.theme.FaintText)

	originStyle := lipgloss.NewStyle().
		Width(columnWidthOrigin).
		Foreground(renderer.theme.NormalText)

	actionStyle := lipgloss.NewStyle().
		Foreground(renderer.theme.NormalText)

	decisionText := decisionGlyph(row.Decision) + " " + row.Decision

	origin := row.Origin
	if lipgloss.Width(origin) > columnWidthOrigin-1 {
		origin = truncateString(origin, columnWidthOrigin-2) + "…"
	}

	var actionRendered string
	if len(matchPositions) > 0 {
		highlightStyle := lipgloss.NewStyle().
			Foreground(renderer.theme.NormalText).
			Background(renderer.theme.SearchHighlightBackground)
		actionRendered = highlightAction(actionText, matchPositions, actionStyle, highlightStyle)
	} else {
		actionRendered = actionStyle.Render(actionText)
	}

	rendered := " " +
		decisionStyle.Render(decisionText) +
		timeStyle.Render(shortTime(row.Time)) +
		originStyle.Render(origin) +
		actionRendered

	if row.Required > 0 {
		rendered += renderer.renderQuorumSuffix(row.Valid, row.Required, false)
	}

	return lipgloss.NewStyle().Width(renderer.width).MaxWidth(renderer.width).Render(rendered)
}

// renderSelectedRow renders the selected row with a highlight
// background. All text uses the selected foreground color.
// matchPositions contains rune indices in the original action that
// should be highlighted (with bold+underline on the selection bg).
func (renderer ListRenderer) renderSelectedRow(row auditindex.Row, actionText string, matchPositions []int) string {
	baseStyle := lipgloss.NewStyle().
		Background(renderer.theme.SelectedBackground).
		Foreground(renderer.theme.SelectedForeground)

	decisionText := decisionGlyph(row.Decision) + " " + row.Decision

	origin := row.Origin
	if lipgloss.Width(origin) > columnWidthOrigin-1 {
		origin = truncateString(origin, columnWidthOrigin-2) + "…"
	}

	var actionRendered string
	if len(matchPositions) > 0 {
		// On a selected row the background is already the selection
		// color, so a different background tint would be subtle.
		// Use bold+underline to make matches pop against the
		// selection highlight.
		highlightStyle := baseStyle.Bold(true).Underline(true)
		actionRendered = highlightAction(actionText, matchPositions, baseStyle, highlightStyle)
	} else {
		actionRendered = baseStyle.Render(actionText)
	}

	rendered := " " +
		baseStyle.Width(columnWidthDecision).Bold(true).Render(decisionText) +
		baseStyle.Width(columnWidthTime).Bold(false).Render(shortTime(row.Time)) +
		baseStyle.Width(columnWidthOrigin).Render(origin) +
		actionRendered

	if row.Required > 0 {
		rendered += baseStyle.Render(renderer.renderQuorumSuffix(row.Valid, row.Required, true))
	}

	return baseStyle.Width(renderer.width).MaxWidth(renderer.width).Render(rendered)
}

// highlightAction renders an action string with character-level
// highlighting at the given rune positions. Positions index into the
// original action text; characters past a truncation point simply do
// not render. Characters at matched positions use highlightStyle; all
// others use baseStyle. Consecutive runs of same-style characters are
// batched into a single Render call to keep ANSI output compact.
func highlightAction(actionText string, positions []int, baseStyle, highlightStyle lipgloss.Style) string {
	if len(positions) == 0 {
		return baseStyle.Render(actionText)
	}

	// Build a set of matched rune indices for O(1) lookup.
	positionSet := make(map[int]bool, len(positions))
	for _, position := range positions {
		positionSet[position] = true
	}

	actionRunes := []rune(actionText)

	var result strings.Builder
	runStart := 0
	isHighlighted := len(actionRunes) > 0 && positionSet[0]

	for index := 1; index <= len(actionRunes); index++ {
		currentHighlighted := index < len(actionRunes) && positionSet[index]
		if currentHighlighted != isHighlighted || index == len(actionRunes) {
			chunk := string(actionRunes[runStart:index])
			if isHighlighted {
				result.WriteString(highlightStyle.Render(chunk))
			} else {
				result.WriteString(baseStyle.Render(chunk))
			}
			runStart = index
			isHighlighted = currentHighlighted
		}
	}

	return result.String()
}

// truncateString truncates a string to maxWidth visual columns,
// escape-sequence and wide-rune aware.
func truncateString(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	return ansi.Truncate(text, maxWidth, "")
}
