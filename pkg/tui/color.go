// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yeetrun/argv/pkg/argv"
)

const (
	ColorReset  = "\x1b[0m"
	ColorRed    = "\x1b[31m"
	ColorGreen  = "\x1b[32m"
	ColorYellow = "\x1b[33m"
	ColorDim    = "\x1b[90m"
)

type Colorizer struct {
	Enabled bool
}

// NewColorizer returns an enabled Colorizer only when enabled is set and
// neither NO_COLOR nor a dumb TERM says otherwise.
func NewColorizer(enabled bool) Colorizer {
	if !enabled {
		return Colorizer{}
	}
	if os.Getenv("NO_COLOR") != "" {
		return Colorizer{}
	}
	term := os.Getenv("TERM")
	if term == "" || term == "dumb" {
		return Colorizer{}
	}
	return Colorizer{Enabled: true}
}

func (c Colorizer) Wrap(code, text string) string {
	if !c.Enabled || code == "" {
		return text
	}
	return code + text + ColorReset
}

// IssueColor picks the color for an issue: red for parse issues, yellow
// for validation issues.
func IssueColor(e *argv.Error) string {
	if e.Kind == argv.KindValidation {
		return ColorYellow
	}
	return ColorRed
}

// RenderIssues writes one line per issue. Issues tied to a token are
// followed by the quoted token line and a caret under the offending token.
func RenderIssues(w io.Writer, c Colorizer, tokens []string, issues []*argv.Error) {
	for _, e := range issues {
		label := c.Wrap(IssueColor(e), e.Kind.String()+" error:")
		fmt.Fprintf(w, "%s %s\n", label, e.Msg)
		if e.Index < 0 || e.Index >= len(tokens) {
			continue
		}
		line, col, width := markToken(tokens, e.Index)
		fmt.Fprintf(w, "    %s\n", c.Wrap(ColorDim, line))
		fmt.Fprintf(w, "    %s%s\n", strings.Repeat(" ", col), c.Wrap(IssueColor(e), strings.Repeat("^", width)))
	}
}

// markToken quotes tokens into one line and returns the column and width
// of tokens[idx] within it.
func markToken(tokens []string, idx int) (line string, col, width int) {
	for i, t := range tokens {
		q := argv.Quote([]string{t})
		if i > 0 {
			line += " "
		}
		if i == idx {
			col = len([]rune(line))
			width = max(len([]rune(q)), 1)
		}
		line += q
	}
	return line, col, width
}
