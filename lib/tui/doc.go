// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui provides shared terminal user interface components for
// warrant's interactive viewers: the color theme, scrollbar
// rendering, and fzf-backed fuzzy matching.
//
// Domain-specific viewers (the audit log viewer in [auditui]) import
// this package for consistent look and behavior: same theme, same
// keyboard conventions, same match highlighting. Each viewer owns its
// own data source, layout, and domain-specific rendering.
package tui
