// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package auditui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestNewModel(t *testing.T) {
	model := NewModel(testRows())

	if len(model.visible) != 5 {
		t.Fatalf("expected 5 visible rows, got %d", len(model.visible))
	}
	if model.visible[0].Seq != 5 {
		t.Errorf("first visible row should be seq 5 (newest), got %d", model.visible[0].Seq)
	}
	if model.activeTab != TabAll {
		t.Errorf("initial tab should be TabAll, got %d", model.activeTab)
	}
	if model.cursor != 0 {
		t.Errorf("initial cursor should be 0, got %d", model.cursor)
	}
	if model.selectedSeq != 5 {
		t.Errorf("initial selection should be seq 5, got %d", model.selectedSeq)
	}

	// Summary counts the complete set regardless of tab.
	if model.summary.Entries != 5 || model.summary.Allow != 3 ||
		model.summary.Quarantine != 1 || model.summary.Deny != 1 {
		t.Errorf("unexpected summary: %+v", model.summary)
	}
}

func TestModelNavigation(t *testing.T) {
	model := NewModel(testRows())

	// Simulate terminal dimensions.
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	model = updated.(Model)

	if model.cursor != 0 {
		t.Errorf("initial cursor should be 0, got %d", model.cursor)
	}

	// Move down through all five rows; the cursor stops at the end.
	for press := 1; press <= 5; press++ {
		updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
		model = updated.(Model)
	}
	if model.cursor != 4 {
		t.Errorf("cursor should stop at 4 (last row), got %d", model.cursor)
	}
	if model.selectedSeq != 1 {
		t.Errorf("selection should follow cursor to seq 1, got %d", model.selectedSeq)
	}

	// Move back up.
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	model = updated.(Model)
	if model.cursor != 3 {
		t.Errorf("cursor after k should be 3, got %d", model.cursor)
	}

	// Jump to top and bottom.
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	model = updated.(Model)
	if model.cursor != 4 {
		t.Errorf("G should jump to the last row, got %d", model.cursor)
	}
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	model = updated.(Model)
	if model.cursor != 0 {
		t.Errorf("g should jump to the first row, got %d", model.cursor)
	}
}

func TestModelView(t *testing.T) {
	model := NewModel(testRows())

	// Before receiving WindowSizeMsg, View returns loading text.
	if view := model.View(); view != "Loading..." {
		t.Errorf("expected 'Loading...' before WindowSizeMsg, got %q", view)
	}

	// Use a wide terminal so actions aren't truncated by the
	// two-pane layout.
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 160, Height: 20})
	model = updated.(Model)

	view := model.View()

	for _, want := range []string{
		"1:All", "2:Allow", "3:Quarantine", "4:Deny",
		"escrow/release", "volume/delete",
		"5 shown", "3 allow", "1 quarantine", "1 deny",
		"q quit",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q", want)
		}
	}

	// The detail pane shows the selected entry (seq 5).
	if !strings.Contains(view, "ALLOW") {
		t.Error("view should contain the selected entry's decision header")
	}
	if !strings.Contains(view, "policy/update") {
		t.Error("view should contain the selected entry's action")
	}
}

func TestModelEmptyState(t *testing.T) {
	model := NewModel(nil)

	updated, _ := model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model = updated.(Model)

	view := model.View()
	if !strings.Contains(view, "No audit entries.") {
		t.Error("empty view should contain 'No audit entries.'")
	}
}

func TestModelQuit(t *testing.T) {
	model := NewModel(testRows())

	_, command := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if command == nil {
		t.Fatal("q key should return a command")
	}

	// Execute the command and check it produces a QuitMsg.
	message := command()
	if _, isQuit := message.(tea.QuitMsg); !isQuit {
		t.Errorf("expected QuitMsg, got %T", message)
	}
}

func TestModelTabSwitching(t *testing.T) {
	model := NewModel(testRows())
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 160, Height: 30})
	model = updated.(Model)

	// Switch to Deny tab (key "4").
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'4'}})
	model = updated.(Model)
	if model.activeTab != TabDeny {
		t.Errorf("expected TabDeny after pressing 4, got %d", model.activeTab)
	}
	if len(model.visible) != 1 || model.visible[0].Seq != 4 {
		t.Errorf("Deny tab should show only seq 4, got %+v", model.visible)
	}

	// Switch to Quarantine tab (key "3").
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}})
	model = updated.(Model)
	if len(model.visible) != 1 || model.visible[0].Seq != 3 {
		t.Errorf("Quarantine tab should show only seq 3, got %+v", model.visible)
	}

	// Switch to Allow tab (key "2").
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	model = updated.(Model)
	if len(model.visible) != 3 {
		t.Errorf("Allow tab should show 3 rows, got %d", len(model.visible))
	}

	// Back to All (key "1").
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'1'}})
	model = updated.(Model)
	if len(model.visible) != 5 {
		t.Errorf("All tab should show 5 rows, got %d", len(model.visible))
	}
}

func TestModelSelectionSurvivesTabSwitch(t *testing.T) {
	model := NewModel(testRows())
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 160, Height: 30})
	model = updated.(Model)

	// Move to seq 2 (index 3 on the All tab).
	for press := 0; press < 3; press++ {
		updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
		model = updated.(Model)
	}
	if model.selectedSeq != 2 {
		t.Fatalf("expected selection on seq 2, got %d", model.selectedSeq)
	}

	// The Allow tab also contains seq 2; the cursor should find it.
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	model = updated.(Model)
	if model.selectedSeq != 2 {
		t.Errorf("selection should survive the tab switch, got seq %d", model.selectedSeq)
	}
	if model.cursor != 1 {
		t.Errorf("seq 2 sits at index 1 on the Allow tab, cursor is %d", model.cursor)
	}
}

func TestModelFilter(t *testing.T) {
	model := NewModel(testRows())
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 160, Height: 30})
	model = updated.(Model)

	// Activate filter (/).
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	model = updated.(Model)
	if model.focusRegion != FocusFilter {
		t.Errorf("after pressing /, focus should be FocusFilter, got %d", model.focusRegion)
	}

	// Type "delete".
	for _, char := range "delete" {
		updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{char}})
		model = updated.(Model)
	}

	if len(model.visible) != 1 || model.visible[0].Seq != 4 {
		t.Errorf("filter 'delete' should show only seq 4, got %+v", model.visible)
	}

	// Press Esc to clear the filter text.
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEscape})
	model = updated.(Model)
	if len(model.visible) != 5 {
		t.Errorf("after clearing filter, should see 5 rows, got %d", len(model.visible))
	}

	// A second Esc leaves filter mode entirely.
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEscape})
	model = updated.(Model)
	if model.focusRegion != FocusList {
		t.Errorf("second Esc should return focus to the list, got %d", model.focusRegion)
	}
}

func TestModelFilterHighlights(t *testing.T) {
	model := NewModel(testRows())
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 160, Height: 30})
	model = updated.(Model)

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	model = updated.(Model)
	for _, char := range "release" {
		updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{char}})
		model = updated.(Model)
	}

	// Both escrow/release rows match, newest first on equal scores.
	if len(model.visible) != 2 {
		t.Fatalf("filter 'release' should show 2 rows, got %d", len(model.visible))
	}
	if model.visible[0].Seq != 3 || model.visible[1].Seq != 1 {
		t.Errorf("expected seqs [3 1], got [%d %d]", model.visible[0].Seq, model.visible[1].Seq)
	}
	if len(model.filterHighlights[3]) == 0 {
		t.Error("expected action match positions for seq 3")
	}

	// Enter confirms the filter and returns focus to the list while
	// keeping the narrowed view.
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = updated.(Model)
	if model.focusRegion != FocusList {
		t.Errorf("Enter should return focus to the list, got %d", model.focusRegion)
	}
	if len(model.visible) != 2 {
		t.Errorf("confirmed filter should keep the narrowed view, got %d rows", len(model.visible))
	}
}

func TestModelFocusToggle(t *testing.T) {
	model := NewModel(testRows())
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 160, Height: 30})
	model = updated.(Model)

	if model.focusRegion != FocusList {
		t.Fatal("should start with list focus")
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyTab})
	model = updated.(Model)
	if model.focusRegion != FocusDetail {
		t.Errorf("Tab should move focus to the detail pane, got %d", model.focusRegion)
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyTab})
	model = updated.(Model)
	if model.focusRegion != FocusList {
		t.Errorf("Tab should move focus back to the list, got %d", model.focusRegion)
	}
}

func TestModelSplitResize(t *testing.T) {
	model := NewModel(testRows())
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 160, Height: 30})
	model = updated.(Model)

	initialWidth := model.listWidth()

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{']'}})
	model = updated.(Model)
	if model.listWidth() <= initialWidth {
		t.Errorf("] should grow the list pane, was %d now %d", initialWidth, model.listWidth())
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'['}})
	model = updated.(Model)
	if model.listWidth() != initialWidth {
		t.Errorf("[ should shrink the list pane back to %d, got %d", initialWidth, model.listWidth())
	}
}

func TestModelMouseWheelScrollsList(t *testing.T) {
	model := NewModel(testRows())
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
	model = updated.(Model)

	initialCursor := model.cursor

	// Scroll wheel down in the list pane (X=10, well within the list).
	contentStart := model.contentStartY()
	updated, _ = model.Update(tea.MouseMsg{
		X:      10,
		Y:      contentStart + 2,
		Button: tea.MouseButtonWheelDown,
	})
	model = updated.(Model)

	if model.cursor <= initialCursor {
		t.Errorf("mouse wheel down in list pane should move cursor down, was %d now %d", initialCursor, model.cursor)
	}

	// Scroll wheel up in the list pane.
	movedCursor := model.cursor
	updated, _ = model.Update(tea.MouseMsg{
		X:      10,
		Y:      contentStart + 2,
		Button: tea.MouseButtonWheelUp,
	})
	model = updated.(Model)

	if model.cursor >= movedCursor {
		t.Errorf("mouse wheel up in list pane should move cursor up, was %d now %d", movedCursor, model.cursor)
	}
}

func TestModelMouseClickSelectsRow(t *testing.T) {
	model := NewModel(testRows())
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
	model = updated.(Model)

	// Click on the third row.
	contentStart := model.contentStartY()
	updated, _ = model.Update(tea.MouseMsg{
		X:      10,
		Y:      contentStart + 2,
		Button: tea.MouseButtonLeft,
		Action: tea.MouseActionPress,
	})
	model = updated.(Model)

	if model.cursor != 2 {
		t.Errorf("click should select row at index 2, got cursor %d", model.cursor)
	}
	if model.selectedSeq != 3 {
		t.Errorf("click should select seq 3, got %d", model.selectedSeq)
	}
}

func TestModelMouseClickFocusesDetailPane(t *testing.T) {
	model := NewModel(testRows())
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 160, Height: 30})
	model = updated.(Model)

	if model.focusRegion != FocusList {
		t.Fatal("should start with list focus")
	}

	// Click in the detail pane area (X=100, past the list width of 88).
	contentStart := model.contentStartY()
	updated, _ = model.Update(tea.MouseMsg{
		X:      100,
		Y:      contentStart + 2,
		Button: tea.MouseButtonLeft,
		Action: tea.MouseActionPress,
	})
	model = updated.(Model)

	if model.focusRegion != FocusDetail {
		t.Errorf("clicking detail pane should set FocusDetail, got %d", model.focusRegion)
	}
}

func TestModelMouseClickSwitchesTab(t *testing.T) {
	model := NewModel(testRows())
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 160, Height: 30})
	model = updated.(Model)

	// The hit ranges are computed on resize; click the second tab.
	if len(model.tabHitRanges) != 4 {
		t.Fatalf("expected 4 tab hit ranges, got %d", len(model.tabHitRanges))
	}
	allowRange := model.tabHitRanges[1]

	updated, _ = model.Update(tea.MouseMsg{
		X:      allowRange.startX,
		Y:      0,
		Button: tea.MouseButtonLeft,
		Action: tea.MouseActionPress,
	})
	model = updated.(Model)

	if model.activeTab != TabAllow {
		t.Errorf("clicking the allow tab label should switch tabs, got %d", model.activeTab)
	}
}
