// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package auditui

import "github.com/warrant-foundation/warrant/lib/tui"

// renderScrollbar delegates to the shared TUI library's scrollbar
// renderer. Kept as a package-level function so call sites in
// model.go and detail.go stay short.
func renderScrollbar(theme Theme, height, totalItems, visibleItems, scrollOffset int, focused bool) string {
	return tui.RenderScrollbar(theme, height, totalItems, visibleItems, scrollOffset, focused)
}
