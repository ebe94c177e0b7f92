// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

// Package auditui implements a terminal user interface for reviewing
// warrant decision logs. Built on bubbletea (Elm architecture), it
// provides a split-pane view: a scrollable entry list on the left,
// tabbed by decision, and a detail pane on the right showing every
// field of the selected entry.
//
// Generic UI components (theme, scrollbar, fuzzy matching) live in
// [tui] and are re-exported here for internal use. Audit-specific
// logic (key bindings, filters, row and detail rendering) stays in
// this package.
//
// The viewer is display-only. It renders rows that were loaded
// before NewModel and never touches the log or the index itself, so
// nothing here can influence an enforcement outcome.
//
// Data flow:
//
//	[audit JSONL / auditindex query]
//	        | ([]auditindex.Row)
//	    [Model] <- bubbletea event loop
//	        |
//	  [terminal output]
package auditui
