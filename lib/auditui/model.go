// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package auditui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/warrant-foundation/warrant/lib/auditindex"
)

// Tab identifies which decision view is active.
type Tab int

const (
	// TabAll shows every entry regardless of decision.
	TabAll Tab = iota
	// TabAllow shows entries that passed every check.
	TabAllow
	// TabQuarantine shows authentic but under-authorized entries.
	TabQuarantine
	// TabDeny shows entries that failed verification outright.
	TabDeny
)

// decision returns the decision string the tab filters by, or "" for
// the All tab.
func (tab Tab) decision() string {
	switch tab {
	case TabAllow:
		return "allow"
	case TabQuarantine:
		return "quarantine"
	case TabDeny:
		return "deny"
	default:
		return ""
	}
}

// FocusRegion identifies which pane has keyboard focus.
type FocusRegion int

const (
	// FocusList means navigation keys move the entry list cursor.
	FocusList FocusRegion = iota
	// FocusDetail means navigation keys scroll the detail viewport.
	FocusDetail
	// FocusFilter means keystrokes go to the filter input.
	FocusFilter
)

// Split ratio bounds and step size.
const (
	splitRatioMin  = 0.20
	splitRatioMax  = 0.80
	splitRatioStep = 0.05

	// doubleClickThreshold is the maximum interval between two clicks
	// on the splitter divider to count as a double-click.
	doubleClickThreshold = 400 * time.Millisecond
)

// tabHitRange maps a horizontal span in the header to a tab.
type tabHitRange struct {
	startX int // Inclusive.
	endX   int // Exclusive.
	tab    Tab
}

// Model is the top-level bubbletea model for the audit log viewer.
// The viewer is read-only: it renders a fixed set of entries loaded
// before the program starts and never mutates the log.
type Model struct {
	theme Theme
	keys  KeyMap

	// Terminal dimensions (set by WindowSizeMsg).
	width  int
	height int
	ready  bool

	// Active tab and filter.
	activeTab Tab
	filter    FilterModel

	// rows is the complete entry set, newest first. visible is the
	// subset shown for the active tab after filtering. summary counts
	// decisions across the complete set for the header stats.
	rows    []auditindex.Row
	visible []auditindex.Row
	summary auditindex.Summary

	cursor       int
	scrollOffset int
	selectedSeq  int // Stable focus: track selection by sequence number.

	// Filter match highlighting: maps entry sequence number to
	// matched rune positions in the action. Populated by applyFilter;
	// nil when no filter is active.
	filterHighlights map[int][]int

	// Two-pane layout.
	focusRegion FocusRegion
	priorFocus  FocusRegion // Saved focus when entering filter mode.
	splitRatio  float64     // Fraction of width for the list pane.
	detailPane  DetailPane  // Right pane: scrollable entry detail.

	// Tab bar click regions. Each entry maps a tab to its X range in
	// the header line so mouse clicks on Y=0 can switch tabs.
	tabHitRanges []tabHitRange

	draggingSplitter  bool      // True while the user is dragging the divider.
	lastSplitterClick time.Time // For double-click detection on the divider.
}

// NewModel creates a Model over a fixed set of audit entries, newest
// first (the order auditindex.Query returns them).
func NewModel(rows []auditindex.Row) Model {
	model := Model{
		theme:      DefaultTheme,
		keys:       DefaultKeyMap,
		activeTab:  TabAll,
		rows:       rows,
		splitRatio: 0.55,
		detailPane: NewDetailPane(DefaultTheme),
	}

	model.summary = summarizeRows(rows)
	model.applyFilter()

	if len(model.visible) > 0 {
		model.cursor = 0
		model.selectedSeq = model.visible[0].Seq
	}

	return model
}

// summarizeRows counts decisions across the row set for the header
// stats line.
func summarizeRows(rows []auditindex.Row) auditindex.Summary {
	var summary auditindex.Summary
	summary.Entries = len(rows)
	for _, row := range rows {
		switch row.Decision {
		case "allow":
			summary.Allow++
		case "quarantine":
			summary.Quarantine++
		case "deny":
			summary.Deny++
		}
	}
	return summary
}

// Init implements tea.Model. The viewer has no background work.
func (model Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model. Routes keyboard events based on the
// current focus region and handles layout changes.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		// When filter is active, route all input to the filter first,
		// except for Esc (clear) and Enter (confirm and return to list).
		if model.focusRegion == FocusFilter {
			return model.handleFilterKeys(message)
		}

		switch {
		case key.Matches(message, model.keys.Quit):
			return model, tea.Quit

		case key.Matches(message, model.keys.FocusToggle):
			if model.focusRegion == FocusList {
				model.focusRegion = FocusDetail
			} else {
				model.focusRegion = FocusList
			}

		case key.Matches(message, model.keys.SplitGrow):
			model.splitRatio += splitRatioStep
			if model.splitRatio > splitRatioMax {
				model.splitRatio = splitRatioMax
			}
			model.updatePaneSizes()

		case key.Matches(message, model.keys.SplitShrink):
			model.splitRatio -= splitRatioStep
			if model.splitRatio < splitRatioMin {
				model.splitRatio = splitRatioMin
			}
			model.updatePaneSizes()

		case key.Matches(message, model.keys.TabAll):
			model.switchTab(TabAll)

		case key.Matches(message, model.keys.TabAllow):
			model.switchTab(TabAllow)

		case key.Matches(message, model.keys.TabQuarantine):
			model.switchTab(TabQuarantine)

		case key.Matches(message, model.keys.TabDeny):
			model.switchTab(TabDeny)

		case key.Matches(message, model.keys.FilterActivate):
			model.priorFocus = model.focusRegion
			model.focusRegion = FocusFilter
			model.filter.Active = true
			// Reset list position to the top so the user sees
			// results from the beginning as they type.
			model.cursor = 0
			model.scrollOffset = 0

		case key.Matches(message, model.keys.FilterClear):
			if model.filter.Input != "" {
				model.filter.Clear()
				model.applyFilter()
			}

		default:
			if model.focusRegion == FocusList {
				model.handleListKeys(message)
			} else {
				model.handleDetailKeys(message)
			}
		}

	case tea.MouseMsg:
		model.handleMouse(message)

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.updatePaneSizes()
		model.computeTabHitRanges()
		model.syncDetailPane()
	}
	return model, nil
}

// contentStartY returns the Y coordinate where the content area
// begins. The top chrome line is always exactly 1 row: either the
// tab bar (normal) or the filter bar (when filter is active). The
// filter bar replaces the tab bar rather than pushing content down.
func (model Model) contentStartY() int {
	return 1
}

// handleMouse routes mouse events to the appropriate pane based on
// the mouse position. Scroll wheel scrolls whichever pane the cursor
// is over. Clicks in the list select the clicked row. Dragging the
// divider resizes the split. Clicks on the header line switch tabs.
func (model *Model) handleMouse(message tea.MouseMsg) {
	listWidth := model.listWidth()
	contentStart := model.contentStartY()
	dividerX := listWidth            // The divider column.
	detailScrollX := model.width - 1 // Rightmost column.

	inContentArea := message.Y >= contentStart && message.Y < model.height-2
	inListPane := message.X >= 0 && message.X < dividerX
	onDivider := message.X == dividerX
	inDetailPane := message.X > dividerX && message.X < detailScrollX
	onDetailScroll := message.X == detailScrollX

	// Handle an active splitter drag — motion updates the ratio,
	// release ends the drag.
	if model.draggingSplitter {
		if message.Action == tea.MouseActionRelease {
			model.draggingSplitter = false
			return
		}
		model.setSplitFromMouseX(message.X)
		return
	}

	switch message.Button {
	case tea.MouseButtonWheelUp:
		if !inContentArea {
			return
		}
		if inListPane || onDivider {
			model.scrollListUp(1)
		} else if inDetailPane || onDetailScroll {
			model.detailPane.viewport.LineUp(3)
		}

	case tea.MouseButtonWheelDown:
		if !inContentArea {
			return
		}
		if inListPane || onDivider {
			model.scrollListDown(1)
		} else if inDetailPane || onDetailScroll {
			model.detailPane.viewport.LineDown(3)
		}

	case tea.MouseButtonLeft:
		if message.Action != tea.MouseActionPress {
			return
		}
		// Tab clicks: header row (Y=0) maps X to tab labels.
		if message.Y == 0 {
			for _, hit := range model.tabHitRanges {
				if message.X >= hit.startX && message.X < hit.endX {
					model.switchTab(hit.tab)
					return
				}
			}
			return
		}
		if !inContentArea {
			return
		}
		if onDivider {
			now := time.Now()
			if now.Sub(model.lastSplitterClick) <= doubleClickThreshold {
				// Double-click: toggle the split. If the list has
				// more than half the width, collapse it to 1/4;
				// otherwise expand it to 3/4.
				if model.splitRatio > 0.50 {
					model.splitRatio = 0.25
				} else {
					model.splitRatio = 0.75
				}
				model.updatePaneSizes()
				model.lastSplitterClick = time.Time{} // Reset to prevent triple-click toggling.
				return
			}
			model.lastSplitterClick = now
			model.draggingSplitter = true
			return
		}
		if inListPane {
			model.handleListClick(message.Y - contentStart)
		} else if inDetailPane || onDetailScroll {
			model.focusRegion = FocusDetail
		}
	}
}

// setSplitFromMouseX maps an absolute X coordinate to a split ratio,
// clamped to the allowed range.
func (model *Model) setSplitFromMouseX(mouseX int) {
	if model.width <= 0 {
		return
	}
	ratio := float64(mouseX) / float64(model.width)
	if ratio < splitRatioMin {
		ratio = splitRatioMin
	}
	if ratio > splitRatioMax {
		ratio = splitRatioMax
	}
	model.splitRatio = ratio
	model.updatePaneSizes()
}

// scrollListUp moves the cursor up by count rows.
func (model *Model) scrollListUp(count int) {
	for range count {
		model.moveCursorUp()
	}
	model.ensureCursorVisible()
	model.syncDetailPane()
}

// scrollListDown moves the cursor down by count rows.
func (model *Model) scrollListDown(count int) {
	for range count {
		model.moveCursorDown()
	}
	model.ensureCursorVisible()
	model.syncDetailPane()
}

// handleListClick processes a mouse click at the given row offset
// within the content area, selecting the clicked entry.
func (model *Model) handleListClick(rowOffset int) {
	// Clicking anywhere in the list pane focuses it, even on empty
	// space below the last row.
	model.focusRegion = FocusList

	rowIndex := model.scrollOffset + rowOffset
	if rowIndex < 0 || rowIndex >= len(model.visible) {
		return
	}

	model.cursor = rowIndex
	model.syncDetailPane()
}

// handleFilterKeys processes keystrokes when the filter input has
// focus. Regular characters go to the input, Esc clears/exits, Enter
// confirms and returns focus to the list.
func (model Model) handleFilterKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		// ctrl+c always quits, even in filter mode.
		if message.Type == tea.KeyCtrlC {
			return model, tea.Quit
		}
		// 'q' is a regular character in filter mode.
		model.filter.HandleRune('q')
		model.applyFilter()
		return model, nil

	case key.Matches(message, model.keys.FilterClear):
		// Esc: if there's filter text, clear it; if already empty,
		// exit filter mode.
		if model.filter.Input != "" {
			model.filter.Clear()
			model.applyFilter()
		} else {
			model.filter.Active = false
			model.focusRegion = model.priorFocus
		}
		return model, nil

	case message.Type == tea.KeyEnter:
		// Confirm filter and return focus to the list.
		model.filter.Active = false
		model.focusRegion = FocusList
		return model, nil

	case message.Type == tea.KeyBackspace:
		if model.filter.HandleBackspace() {
			model.applyFilter()
		}
		return model, nil

	case message.Type == tea.KeyRunes || message.Type == tea.KeySpace:
		for _, character := range message.Runes {
			model.filter.HandleRune(character)
		}
		model.applyFilter()
		return model, nil
	}

	return model, nil
}

// switchTab changes the active tab and rebuilds the visible row set.
func (model *Model) switchTab(tab Tab) {
	if model.activeTab == tab {
		return
	}
	model.activeTab = tab
	model.filter.Clear()
	model.applyFilter()
}

// applyFilter rebuilds the visible row set: the active tab chooses
// the base set by decision, then the filter narrows it.
func (model *Model) applyFilter() {
	base := model.rows
	if decision := model.activeTab.decision(); decision != "" {
		base = nil
		for _, row := range model.rows {
			if row.Decision == decision {
				base = append(base, row)
			}
		}
	}

	if model.filter.Input != "" {
		results := model.filter.ApplyFuzzy(base)
		model.visible = make([]auditindex.Row, len(results))
		model.filterHighlights = make(map[int][]int, len(results))
		for index, result := range results {
			model.visible[index] = result.Row
			if len(result.ActionPositions) > 0 {
				model.filterHighlights[result.Row.Seq] = result.ActionPositions
			}
		}
	} else {
		model.visible = base
		model.filterHighlights = nil
	}

	// When actively filtering, snap to the top of the list so the
	// highest-scored matches are visible as the user types. Without
	// this, the scroll offset from the pre-filter list persists and
	// the user sees an arbitrary slice of filtered results.
	if model.filter.Input != "" {
		model.cursor = 0
		model.scrollOffset = 0
		if len(model.visible) > 0 {
			model.selectedSeq = model.visible[0].Seq
		}
	} else {
		model.restoreSelection()
	}
	model.ensureCursorVisible()
	model.syncDetailPane()
}

// restoreSelection moves the cursor back to the previously selected
// entry if it is still in the visible set.
func (model *Model) restoreSelection() {
	if model.selectedSeq == 0 {
		model.cursor = 0
		return
	}

	for index, row := range model.visible {
		if row.Seq == model.selectedSeq {
			model.cursor = index
			return
		}
	}

	// Selected entry is no longer in the list. Clamp cursor.
	model.cursor = model.clampedIndex(model.cursor)
}

// clampedIndex returns position clamped to valid row bounds.
func (model *Model) clampedIndex(position int) int {
	if len(model.visible) == 0 {
		return 0
	}
	if position < 0 {
		return 0
	}
	if position >= len(model.visible) {
		return len(model.visible) - 1
	}
	return position
}

// handleListKeys processes navigation keys when the list has focus.
func (model *Model) handleListKeys(message tea.KeyMsg) {
	prevCursor := model.cursor

	switch {
	case key.Matches(message, model.keys.Up):
		model.moveCursorUp()

	case key.Matches(message, model.keys.Down):
		model.moveCursorDown()

	case key.Matches(message, model.keys.PageUp):
		target := model.cursor - model.visibleHeight()
		if target < 0 {
			target = 0
		}
		model.cursor = model.clampedIndex(target)

	case key.Matches(message, model.keys.PageDown):
		target := model.cursor + model.visibleHeight()
		if len(model.visible) > 0 && target >= len(model.visible) {
			target = len(model.visible) - 1
		}
		model.cursor = model.clampedIndex(target)

	case key.Matches(message, model.keys.Home):
		model.cursor = 0

	case key.Matches(message, model.keys.End):
		if len(model.visible) > 0 {
			model.cursor = len(model.visible) - 1
		}
	}

	model.ensureCursorVisible()

	// Update detail pane if selection changed.
	if model.cursor != prevCursor {
		model.syncDetailPane()
	}
}

// moveCursorUp moves the cursor to the previous row.
func (model *Model) moveCursorUp() {
	if model.cursor > 0 {
		model.cursor--
	}
}

// moveCursorDown moves the cursor to the next row.
func (model *Model) moveCursorDown() {
	if model.cursor < len(model.visible)-1 {
		model.cursor++
	}
}

// handleDetailKeys processes navigation keys when the detail pane has
// focus.
func (model *Model) handleDetailKeys(message tea.KeyMsg) {
	switch {
	case key.Matches(message, model.keys.Up):
		model.detailPane.viewport.LineUp(1)
	case key.Matches(message, model.keys.Down):
		model.detailPane.viewport.LineDown(1)
	case key.Matches(message, model.keys.PageUp):
		model.detailPane.ScrollUp()
	case key.Matches(message, model.keys.PageDown):
		model.detailPane.ScrollDown()
	case key.Matches(message, model.keys.Home):
		model.detailPane.viewport.GotoTop()
	case key.Matches(message, model.keys.End):
		model.detailPane.viewport.GotoBottom()
	}
}

// syncDetailPane updates the detail pane content to match the cursor.
func (model *Model) syncDetailPane() {
	if model.cursor < 0 || model.cursor >= len(model.visible) {
		model.detailPane.Clear()
		return
	}

	row := model.visible[model.cursor]
	model.selectedSeq = row.Seq
	model.detailPane.SetRow(row)
}

// updatePaneSizes recomputes the detail pane dimensions from the
// current terminal size and split ratio.
func (model *Model) updatePaneSizes() {
	contentHeight := model.visibleHeight()
	// 1 column for the vertical divider between panes.
	detailWidth := model.width - model.listWidth() - 1
	if detailWidth < 10 {
		detailWidth = 10
	}
	model.detailPane.SetSize(detailWidth, contentHeight)
}

// listWidth returns the width of the list pane in columns.
func (model Model) listWidth() int {
	return int(float64(model.width) * model.splitRatio)
}

// View implements tea.Model. Renders the full TUI frame with two panes.
func (model Model) View() string {
	if !model.ready {
		return "Loading..."
	}

	if len(model.visible) == 0 && model.filter.Input == "" {
		return model.renderEmpty()
	}

	var sections []string

	// Top chrome line: either the tab bar or the filter bar. The
	// filter bar replaces the tab bar so the layout doesn't shift.
	filterView := model.filter.View(model.theme, model.width)
	if filterView != "" {
		sections = append(sections, filterView)
	} else {
		sections = append(sections, model.renderHeader())
	}

	// Two-pane content area with vertical divider.
	listView := model.renderListPane()
	divider := model.renderDivider()
	detailFocused := model.focusRegion == FocusDetail
	detailView := model.detailPane.View(detailFocused)
	contentArea := lipgloss.JoinHorizontal(lipgloss.Top, listView, divider, detailView)
	sections = append(sections, contentArea)

	// Bottom separator.
	separator := lipgloss.NewStyle().
		Foreground(model.theme.BorderColor).
		Render(strings.Repeat("─", model.width))
	sections = append(sections, separator)

	// Help bar.
	sections = append(sections, model.renderHelp())

	return strings.Join(sections, "\n")
}

// renderListPane renders the entry list with proper column layout.
func (model Model) renderListPane() string {
	listWidth := model.listWidth()

	// Always reserve 1 column for the scrollbar so content stays at
	// a fixed position regardless of focus state.
	focused := model.focusRegion == FocusList
	rowWidth := listWidth - 1

	renderer := NewListRenderer(model.theme, rowWidth)

	visible := model.visibleHeight()
	if visible < 0 {
		visible = 0
	}

	var rows []string
	for index := model.scrollOffset; index < model.scrollOffset+visible && index < len(model.visible); index++ {
		row := model.visible[index]
		selected := index == model.cursor
		rows = append(rows, renderer.RenderRow(row, selected, model.filterHighlights[row.Seq]))
	}

	// Pad empty rows.
	rendered := len(rows)
	if rendered < visible {
		emptyStyle := lipgloss.NewStyle().Width(rowWidth)
		for padding := rendered; padding < visible; padding++ {
			rows = append(rows, emptyStyle.Render(""))
		}
	}

	// Right scrollbar: shows scroll position and focus state.
	scrollbar := renderScrollbar(
		model.theme, visible,
		len(model.visible), visible, model.scrollOffset,
		focused,
	)

	contentStyle := lipgloss.NewStyle().
		Width(rowWidth).
		Height(visible)

	return lipgloss.JoinHorizontal(lipgloss.Top,
		contentStyle.Render(strings.Join(rows, "\n")),
		scrollbar,
	)
}

// renderDivider renders the single-column vertical divider between
// the list and detail panes. The divider is draggable for resizing.
func (model Model) renderDivider() string {
	visible := model.visibleHeight()
	if visible < 0 {
		visible = 0
	}

	color := model.theme.BorderColor
	if model.draggingSplitter {
		color = model.theme.FocusAccent
	}

	dividerStyle := lipgloss.NewStyle().
		Foreground(color)

	lines := make([]string, visible)
	for index := range lines {
		lines[index] = "│"
	}

	return dividerStyle.Width(1).Height(visible).Render(strings.Join(lines, "\n"))
}

// visibleHeight returns the number of list rows that fit between the
// chrome elements. Derived from contentStartY (chrome above) plus the
// bottom separator (1) and help bar (1).
func (model Model) visibleHeight() int {
	return model.height - model.contentStartY() - 2
}

// ensureCursorVisible adjusts scrollOffset so the cursor is within
// the visible window.
func (model *Model) ensureCursorVisible() {
	visible := model.visibleHeight()
	if visible <= 0 {
		return
	}

	// Clamp scrollOffset so we never scroll past the end of the list.
	// This handles tab switches where the new list is shorter than
	// the old scrollOffset.
	maxOffset := len(model.visible) - visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if model.scrollOffset > maxOffset {
		model.scrollOffset = maxOffset
	}

	// Ensure the cursor is within the visible window.
	if model.cursor < model.scrollOffset {
		model.scrollOffset = model.cursor
	}
	if model.cursor >= model.scrollOffset+visible {
		model.scrollOffset = model.cursor - visible + 1
	}
}

// renderEmpty renders the empty state when the log has no entries.
func (model Model) renderEmpty() string {
	messageStyle := lipgloss.NewStyle().
		Foreground(model.theme.FaintText)

	return lipgloss.Place(
		model.width, model.height,
		lipgloss.Center, lipgloss.Center,
		messageStyle.Render("No audit entries."),
	)
}

// tabDefs is the fixed list of tab definitions used by both the
// header renderer and the hit range computation.
var tabDefs = []struct {
	label string
	tab   Tab
}{
	{"1:All", TabAll},
	{"2:Allow", TabAllow},
	{"3:Quarantine", TabQuarantine},
	{"4:Deny", TabDeny},
}

// computeTabHitRanges calculates the X positions of each tab label
// in the header line. Called on window resize so mouse clicks on
// the header can switch tabs.
func (model *Model) computeTabHitRanges() {
	model.tabHitRanges = model.tabHitRanges[:0]
	cursor := 3 // Leading "───"

	for index, tabDef := range tabDefs {
		cursor++ // Space before label.
		labelStart := cursor
		cursor += lipgloss.Width(tabDef.label)

		model.tabHitRanges = append(model.tabHitRanges, tabHitRange{
			startX: labelStart,
			endX:   cursor,
			tab:    tabDef.tab,
		})

		cursor++ // Space after label.

		// Separator between tabs (3 chars) and after last tab (1 char).
		if index == len(tabDefs)-1 {
			cursor++
		} else {
			cursor += 3
		}
	}
}

// renderHeader renders the combined tab bar + separator as a single
// line in the btop style: tab labels embedded in a horizontal rule
// with decision counts on the right.
//
// Example: ─── 1:All ─── 2:Allow ─── 3:Quarantine ─── 4:Deny ─── 12 shown  9 allow ─
func (model Model) renderHeader() string {
	separatorStyle := lipgloss.NewStyle().
		Foreground(model.theme.BorderColor)
	activeStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(model.theme.HeaderForeground)
	inactiveStyle := lipgloss.NewStyle().
		Foreground(model.theme.FaintText)
	statsStyle := lipgloss.NewStyle().
		Foreground(model.theme.FaintText)

	sep := separatorStyle.Render("─")

	// Build the left portion: ─── Label ─── Label ─── Label ─
	leftParts := sep + sep + sep // Leading "───"
	cursor := 3

	for index, tabDef := range tabDefs {
		leftParts += " "
		cursor++

		if model.activeTab == tabDef.tab {
			leftParts += activeStyle.Render(tabDef.label)
		} else {
			leftParts += inactiveStyle.Render(tabDef.label)
		}
		cursor += lipgloss.Width(tabDef.label)

		leftParts += " "
		cursor++

		sepCount := 3
		if index == len(tabDefs)-1 {
			sepCount = 1
		}
		for range sepCount {
			leftParts += sep
			cursor++
		}
	}

	// Decision counts on the right.
	statsText := fmt.Sprintf(
		"%d shown  %d allow  %d quarantine  %d deny",
		len(model.visible), model.summary.Allow, model.summary.Quarantine, model.summary.Deny)
	statsRendered := statsStyle.Render(statsText)
	statsWidth := lipgloss.Width(statsText)

	// Fill the gap between tabs and stats with separator chars,
	// leaving 1 space on each side of the stats.
	rightPortion := " " + statsRendered + " " + sep
	rightWidth := 1 + statsWidth + 1 + 1

	fillCount := model.width - cursor - rightWidth
	if fillCount < 1 {
		fillCount = 1
	}
	fill := ""
	for range fillCount {
		fill += sep
	}

	return leftParts + fill + rightPortion
}

// renderHelp renders the bottom help bar with key hints and position.
func (model Model) renderHelp() string {
	style := lipgloss.NewStyle().Foreground(model.theme.HelpText)

	focusIndicator := "LIST"
	switch model.focusRegion {
	case FocusDetail:
		focusIndicator = "DETAIL"
	case FocusFilter:
		focusIndicator = "FILTER"
	}

	help := fmt.Sprintf(" [%s] q quit  ↑↓ navigate  Tab focus  ]/[ resize  1/2/3/4 tabs  / filter",
		focusIndicator)

	if len(model.visible) > model.visibleHeight() {
		position := ""
		if model.scrollOffset == 0 {
			position = "top"
		} else if model.scrollOffset+model.visibleHeight() >= len(model.visible) {
			position = "bottom"
		} else {
			percent := float64(model.scrollOffset) / float64(len(model.visible)-model.visibleHeight()) * 100
			position = fmt.Sprintf("%d%%", int(percent))
		}
		help += fmt.Sprintf("  [%s] %d/%d", position, model.cursor+1, len(model.visible))
	} else if len(model.visible) > 0 {
		help += fmt.Sprintf("  %d/%d", model.cursor+1, len(model.visible))
	}

	return style.Width(model.width).MaxWidth(model.width).Render(help)
}
