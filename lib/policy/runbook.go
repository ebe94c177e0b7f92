// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"errors"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// runbookParserInstance is initialized once and reused. The parser
// configuration never changes and the goldmark Parser is safe to
// share — actual parsing creates per-call state via Parse(reader).
var (
	runbookParserInstance goldmark.Markdown
	runbookParserOnce     sync.Once
)

func getRunbookParser() goldmark.Markdown {
	runbookParserOnce.Do(func() {
		runbookParserInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return runbookParserInstance
}

// ValidateRunbook checks that a recovery runbook is actionable: real
// markdown with at least one heading and at least one list of
// concrete steps. A boundary that quarantines or denies will point
// operators here, so a blank or structureless page is a policy error,
// caught at load rather than during an incident.
func ValidateRunbook(markdown string) error {
	if strings.TrimSpace(markdown) == "" {
		return errors.New("runbook is empty")
	}

	source := []byte(markdown)
	document := getRunbookParser().Parser().Parse(text.NewReader(source))

	headings, lists := 0, 0
	ast.Walk(document, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node.(type) {
		case *ast.Heading:
			headings++
		case *ast.List:
			lists++
		}
		return ast.WalkContinue, nil
	})

	if headings == 0 {
		return errors.New("runbook has no heading")
	}
	if lists == 0 {
		return errors.New("runbook has no list of steps")
	}
	return nil
}
