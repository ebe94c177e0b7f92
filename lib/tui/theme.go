// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette and visual properties for warrant's
// terminal UIs. All colors use lipgloss ANSI 256-color codes for
// broad terminal compatibility.
//
// The fields cover both universal chrome (text, selection, borders)
// and the semantic categories that recur across warrant viewers:
// verification decisions and the stages they stopped at.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Decision colors.
	DecisionAllow      lipgloss.Color
	DecisionQuarantine lipgloss.Color
	DecisionDeny       lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// FocusAccent marks the focused pane: scrollbar thumb, active
	// tab underline.
	FocusAccent lipgloss.Color

	// Filter match highlighting.
	SearchHighlightBackground lipgloss.Color
}

// DecisionColor returns the color for a decision string. Recognizes
// the three decisions (allow, quarantine, deny) and returns FaintText
// for unknown values.
func (theme Theme) DecisionColor(decision string) lipgloss.Color {
	switch decision {
	case "allow":
		return theme.DecisionAllow
	case "quarantine":
		return theme.DecisionQuarantine
	case "deny":
		return theme.DecisionDeny
	default:
		return theme.FaintText
	}
}

// DefaultTheme is the built-in dark-terminal color scheme. Designed for
// 256-color terminals with a dark background (the common case for
// development environments and tmux sessions).
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	DecisionAllow:      lipgloss.Color("114"), // green
	DecisionQuarantine: lipgloss.Color("220"), // yellow/amber
	DecisionDeny:       lipgloss.Color("196"), // red

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	FocusAccent: lipgloss.Color("220"),

	SearchHighlightBackground: lipgloss.Color("58"), // dark amber
}
