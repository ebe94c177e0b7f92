// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package auditui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/warrant-foundation/warrant/lib/audit"
	"github.com/warrant-foundation/warrant/lib/auditindex"
)

// detailHeaderLines is the fixed number of lines consumed by the
// detail pane header. This is constant so the scrollable body never
// shifts vertically when switching entries.
//
// Layout:
//
//	Line 1: DECISION  stage  #seq
//	Line 2: full timestamp / trace
//	Line 3: separator
const detailHeaderLines = 3

// detailLabelWidth is the column width for field labels in the body,
// sized for the longest label ("prev hash").
const detailLabelWidth = 11

// DetailRenderer builds the content for the detail pane. Produces a
// fixed header (rendered outside the viewport) and a scrollable body
// (set into the viewport).
type DetailRenderer struct {
	theme Theme
	width int
}

// NewDetailRenderer creates a DetailRenderer for the given width.
// Content may be set before the first WindowSizeMsg arrives, so the
// width is clamped to at least one column; the resize re-render
// replaces the degenerate layout.
func NewDetailRenderer(theme Theme, width int) DetailRenderer {
	if width < 1 {
		width = 1
	}
	return DetailRenderer{theme: theme, width: width}
}

// RenderHeader produces the fixed header lines for an audit entry.
// Always exactly [detailHeaderLines] lines tall regardless of content.
func (renderer DetailRenderer) RenderHeader(row auditindex.Row) string {
	decisionStyle := lipgloss.NewStyle().
		Foreground(renderer.theme.DecisionColor(row.Decision)).
		Bold(true)

	stageStyle := lipgloss.NewStyle().
		Foreground(renderer.theme.NormalText)

	seqStyle := lipgloss.NewStyle().
		Foreground(renderer.theme.FaintText)

	line1 := decisionStyle.Render(strings.ToUpper(row.Decision)) + "  " +
		stageStyle.Render("stage:"+row.Stage) + "  " +
		seqStyle.Render(fmt.Sprintf("#%d", row.Seq))
	line1 = lipgloss.NewStyle().Width(renderer.width).MaxWidth(renderer.width).Render(line1)

	line2 := seqStyle.Render(longTime(row.Time) + "  " + row.Trace)
	line2 = lipgloss.NewStyle().Width(renderer.width).MaxWidth(renderer.width).Render(line2)

	separator := lipgloss.NewStyle().
		Foreground(renderer.theme.BorderColor).
		Width(renderer.width).
		Render(strings.Repeat("─", renderer.width))

	return strings.Join([]string{line1, line2, separator}, "\n")
}

// RenderBody produces the scrollable body content for an audit entry.
// Layout order: envelope fields, signer count, verification summary,
// chain hash.
func (renderer DetailRenderer) RenderBody(row auditindex.Row) string {
	var sections []string

	// Envelope fields. Deny entries from early stages carry only a
	// subset of these; absent fields render as an em-height dash so
	// the layout stays stable across entries.
	var fields []string
	fields = append(fields, renderer.renderField("domain", orDash(row.Domain)))
	fields = append(fields, renderer.renderField("action", orDash(row.Action)))
	fields = append(fields, renderer.renderField("origin", orDash(row.Origin)))
	fields = append(fields, renderer.renderField("nonce", orDash(row.Nonce)))
	sections = append(sections, strings.Join(fields, "\n"))

	// Signer count, shown once verification got far enough to load a
	// quorum rule.
	if row.Required > 0 {
		sections = append(sections, renderer.renderSigners(row))
	}

	// Verification summary: where verification stopped and what that
	// means.
	sections = append(sections, renderer.renderSection("Verification", stageDescription(row.Stage)))

	// Chain hash, wrapped to the pane width.
	sections = append(sections, renderer.renderSection("Chain", row.PrevHash))

	return strings.Join(sections, "\n\n")
}

// renderField renders a single "label  value" line with a fixed-width
// faint label column.
func (renderer DetailRenderer) renderField(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(detailLabelWidth).
		Foreground(renderer.theme.FaintText)

	valueStyle := lipgloss.NewStyle().
		Foreground(renderer.theme.NormalText)

	return labelStyle.Render(label) + valueStyle.Render(value)
}

// renderSigners renders the signer count line. A shortfall is the
// mark of a quarantined entry, so it gets the quarantine color; a
// satisfied quorum renders in the allow color.
func (renderer DetailRenderer) renderSigners(row auditindex.Row) string {
	color := renderer.theme.DecisionAllow
	if row.Valid < row.Required {
		color = renderer.theme.DecisionQuarantine
	}

	countStyle := lipgloss.NewStyle().
		Foreground(color).
		Bold(true)

	textStyle := lipgloss.NewStyle().
		Foreground(renderer.theme.NormalText)

	count := countStyle.Render(fmt.Sprintf("%d of %d", row.Valid, row.Required))
	return renderer.renderField("signers", "") + count + textStyle.Render(" signatures verified")
}

// renderSection renders a titled section with plain body text wrapped
// to the pane width.
func (renderer DetailRenderer) renderSection(title, body string) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(renderer.theme.NormalText)

	bodyStyle := lipgloss.NewStyle().
		Foreground(renderer.theme.FaintText).
		Width(renderer.width)

	return headerStyle.Render(title) + "\n" + bodyStyle.Render(body)
}

// longTime reformats a log timestamp for the detail header, keeping
// the date and dropping sub-second noise. Unparseable values render
// as-is.
func longTime(value string) string {
	parsed, err := time.Parse(audit.TimeFormat, value)
	if err != nil {
		return value
	}
	return parsed.Format("2006-01-02 15:04:05 MST")
}

// orDash substitutes a dash for fields the entry does not carry.
func orDash(value string) string {
	if value == "" {
		return "—"
	}
	return value
}

// stageDescription explains what a verification stage means for the
// operator reading the entry. The stage is where verification stopped;
// it is recorded only here, so this text is the one place a replayed
// envelope and a forged one read differently.
func stageDescription(stage string) string {
	switch stage {
	case "structural":
		return "The envelope was incomplete or malformed. Verification stopped before any cryptographic check ran."
	case "freshness":
		return "The envelope timestamp fell outside the freshness window. Either the sender's clock is skewed beyond tolerance or the envelope was held too long before delivery."
	case "domain":
		return "The envelope's domain tag is not in the registry. The envelope may be intended for a different deployment."
	case "origin-signature":
		return "The origin signature did not verify. The envelope does not come from the origin it claims, or was altered in transit."
	case "replay":
		return "The envelope nonce was already seen inside the replay window, or the replay cache could not answer. A correct sender never reuses a nonce."
	case "quorum":
		return "Signatures verified but the required signer set is not covered, or no quorum rule provisions this action. The envelope is authentic but under-authorized."
	case "payload":
		return "Decryption, decompression, or payload parsing failed after an otherwise satisfied quorum."
	case "ok":
		return "Every verification stage passed and the payload was opened."
	default:
		return "Verification stopped at a stage this viewer does not recognize. The log may come from a newer build."
	}
}

// DetailPane wraps a bubbles viewport for scrollable detail content.
// The pane has a fixed header ([detailHeaderLines] tall) rendered
// above the viewport and a scrollable body below.
type DetailPane struct {
	viewport viewport.Model
	theme    Theme
	width    int
	height   int

	// Retained for re-rendering on resize. row is set by SetRow and
	// cleared by Clear. When hasRow is true, SetSize re-renders the
	// content at the new width so wrapping adapts to splitter moves.
	hasRow bool
	row    auditindex.Row

	// Pre-rendered header string, set by SetRow and rerender.
	header string
}

// NewDetailPane creates an empty detail pane.
func NewDetailPane(theme Theme) DetailPane {
	return DetailPane{theme: theme}
}

// bodyHeight returns the number of lines available for the scrollable
// viewport body (total height minus the fixed header).
func (pane DetailPane) bodyHeight() int {
	result := pane.height - detailHeaderLines
	if result < 1 {
		result = 1
	}
	return result
}

// contentWidth returns the usable width for text content (total width
// minus the left padding column and right scrollbar column).
func (pane DetailPane) contentWidth() int {
	return pane.width - 2
}

// SetSize updates the detail pane dimensions. If the width changed and
// there is content displayed, the content is re-rendered at the new
// width so wrapping stays correct.
func (pane *DetailPane) SetSize(width, height int) {
	previousWidth := pane.width
	pane.width = width
	pane.height = height
	pane.viewport.Width = pane.contentWidth()
	pane.viewport.Height = pane.bodyHeight()

	if pane.hasRow && width != previousWidth {
		pane.rerender()
	}
}

// SetRow updates the detail pane with rendered content for an audit
// entry and scrolls back to the top.
func (pane *DetailPane) SetRow(row auditindex.Row) {
	pane.hasRow = true
	pane.row = row

	renderer := NewDetailRenderer(pane.theme, pane.contentWidth())
	pane.header = renderer.RenderHeader(row)
	pane.viewport.SetContent(renderer.RenderBody(row))
	pane.viewport.GotoTop()
}

// Clear removes the detail pane content.
func (pane *DetailPane) Clear() {
	pane.hasRow = false
	pane.row = auditindex.Row{}
	pane.header = ""
	pane.viewport.SetContent("")
}

// rerender regenerates the content at the current width, preserving
// the scroll position as closely as possible.
func (pane *DetailPane) rerender() {
	previousOffset := pane.viewport.YOffset

	renderer := NewDetailRenderer(pane.theme, pane.contentWidth())
	pane.header = renderer.RenderHeader(pane.row)
	pane.viewport.SetContent(renderer.RenderBody(pane.row))

	maxOffset := pane.viewport.TotalLineCount() - pane.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if previousOffset > maxOffset {
		previousOffset = maxOffset
	}
	pane.viewport.SetYOffset(previousOffset)
}

// ScrollUp scrolls the body up by half a page.
func (pane *DetailPane) ScrollUp() {
	pane.viewport.HalfViewUp()
}

// ScrollDown scrolls the body down by half a page.
func (pane *DetailPane) ScrollDown() {
	pane.viewport.HalfViewDown()
}

// View renders the detail pane as a docked panel with a fixed header,
// scrollable body, left padding, and a right scrollbar.
func (pane DetailPane) View(focused bool) string {
	contentWidth := pane.contentWidth()

	if !pane.hasRow {
		emptyStyle := lipgloss.NewStyle().
			Foreground(pane.theme.FaintText)

		contentStyle := lipgloss.NewStyle().
			PaddingLeft(1).
			Width(pane.width - 1).
			Height(pane.height)

		content := contentStyle.Render(
			lipgloss.Place(
				contentWidth, pane.height,
				lipgloss.Center, lipgloss.Center,
				emptyStyle.Render("Select an entry to view details"),
			),
		)

		scrollbar := renderScrollbar(
			pane.theme, pane.height,
			0, pane.height, 0,
			focused,
		)
		return lipgloss.JoinHorizontal(lipgloss.Top, content, scrollbar)
	}

	// Build the content column as exactly pane.height lines: fixed
	// header (detailHeaderLines) + scrollable body (remainder).
	paddingStyle := lipgloss.NewStyle().
		PaddingLeft(1).
		Width(pane.width - 1)

	headerView := paddingStyle.Height(detailHeaderLines).Render(pane.header)
	bodyView := paddingStyle.Height(pane.bodyHeight()).Render(pane.viewport.View())
	content := headerView + "\n" + bodyView

	// Scrollbar: blank column for the header rows, actual scrollbar
	// for the body rows. This way the scrollbar only covers the
	// region it actually scrolls.
	headerColumn := lipgloss.NewStyle().
		Width(1).
		Height(detailHeaderLines).
		Render("")
	bodyScrollbar := renderScrollbar(
		pane.theme, pane.bodyHeight(),
		pane.viewport.TotalLineCount(), pane.viewport.Height, pane.viewport.YOffset,
		focused,
	)
	scrollColumn := headerColumn + "\n" + bodyScrollbar

	return lipgloss.JoinHorizontal(lipgloss.Top, content, scrollColumn)
}
