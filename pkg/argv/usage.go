// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package argv

import (
	"fmt"
	"slices"
	"strings"
)

// Usage renders plain-text help for s. Hidden options are omitted and
// options with a Category are listed under their own heading.
func Usage(name string, s *Schema) string {
	if s == nil {
		s = &Schema{}
	}
	var b strings.Builder

	b.WriteString("USAGE:\n")
	usageStr := "    " + name
	if len(s.Commands) > 0 || s.IsCommand != nil {
		usageStr += " [COMMAND]"
	}
	if len(s.Options) > 0 {
		usageStr += " [OPTIONS]"
	}
	for i, p := range s.Params {
		label := strings.ToUpper(paramLabel(i, p))
		if p == nil || p.Required {
			usageStr += fmt.Sprintf(" <%s>", label)
		} else {
			usageStr += fmt.Sprintf(" [%s]", label)
		}
	}
	if s.Variadic {
		usageStr += " [ARGS...]"
	}
	b.WriteString(usageStr)
	b.WriteString("\n\n")

	if len(s.Commands) > 0 {
		b.WriteString("COMMANDS:\n")
		cmds := slices.Clone(s.Commands)
		slices.Sort(cmds)
		for _, cmd := range cmds {
			b.WriteString(fmt.Sprintf("    %s\n", cmd))
		}
		b.WriteString("\n")
	}

	if len(s.Params) > 0 {
		b.WriteString("ARGUMENTS:\n")
		for i, p := range s.Params {
			label := strings.ToUpper(paramLabel(i, p))
			line := "    " + label
			if p != nil && p.Description != "" {
				line = fmt.Sprintf("    %-20s %s", label, p.Description)
			}
			if p != nil && p.Default != nil {
				line += fmt.Sprintf(" (default: %v)", p.Default)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	byCategory := make(map[string][]string)
	for n, o := range s.Options {
		if o == nil || o.Hidden {
			continue
		}
		byCategory[o.Category] = append(byCategory[o.Category], n)
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	slices.Sort(categories)
	for _, c := range categories {
		names := byCategory[c]
		slices.Sort(names)
		if c == "" {
			b.WriteString("OPTIONS:\n")
		} else {
			b.WriteString(strings.ToUpper(c) + " OPTIONS:\n")
		}
		for _, n := range names {
			writeOptionLine(&b, n, s.Options[n])
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeOptionLine(b *strings.Builder, name string, o *OptionSpec) {
	var flagStr string
	if o.Short != "" {
		flagStr = fmt.Sprintf("    -%s, --%s", o.Short, name)
	} else {
		flagStr = fmt.Sprintf("    --%s", name)
	}
	switch {
	case o.Type == Boolean:
	case o.Count:
		flagStr += "..."
	case o.Multiple:
		flagStr += fmt.Sprintf(" <%s>...", o.Type)
	default:
		flagStr += fmt.Sprintf(" <%s>", o.Type)
	}

	if o.Description != "" {
		b.WriteString(fmt.Sprintf("%-28s %s", flagStr, o.Description))
	} else {
		b.WriteString(flagStr)
	}
	if len(o.Choices) > 0 {
		b.WriteString(fmt.Sprintf(" [%s]", strings.Join(o.Choices, "|")))
	}
	if o.Default != nil {
		b.WriteString(fmt.Sprintf(" (default: %v)", o.Default))
	}
	if o.Deprecated != "" {
		b.WriteString(fmt.Sprintf(" (deprecated: %s)", o.Deprecated))
	}
	b.WriteString("\n")
}
