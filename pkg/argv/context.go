// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package argv

import "strings"

// Selector picks the schema for a command path. Paths are ':'-joined
// ("remote", then "remote:add"); the empty path asks for the root schema.
// A nil return means the path is not a command.
type Selector func(path string) *Schema

// ParseInContext parses tokens whose schema depends on the leading
// command words, such as subcommands that define their own options.
//
// Leading plain tokens are offered to sel one at a time, each extending the
// command path; every non-nil answer replaces the schema. Scanning stops
// at the first token sel rejects, at the first option-like token, or at
// "--". When no token is accepted the root schema sel("") is used, and a
// nil root is an empty schema. The remaining tokens are then parsed
// exactly as Parse would; issue indexes refer to positions in tokens.
func ParseInContext(tokens []string, sel Selector, opts ...Option) (*Result, error) {
	if sel == nil {
		sel = func(string) *Schema { return nil }
	}

	var (
		path   []string
		schema *Schema
		i      int
	)
	for ; i < len(tokens); i++ {
		tok := tokens[i]
		if tok == "--" || isOptionLike(tok) || !validCommand(tok) {
			break
		}
		next := append(path[:len(path):len(path)], strings.Split(tok, ":")...)
		s := sel(strings.Join(next, ":"))
		if s == nil {
			break
		}
		path, schema = next, s
	}
	if schema == nil {
		schema = sel("")
	}

	c, err := compile(schema)
	if err != nil {
		return nil, err
	}
	p := newParser(c, tokens, opts)
	if len(path) > 0 {
		p.res.Command = path
		p.commandDone = true
	}
	p.scan(i)
	return p.finish(), nil
}

// SelectorFromMap returns a Selector backed by a map of command paths to
// schemas. The root schema is stored under "".
func SelectorFromMap(m map[string]*Schema) Selector {
	return func(path string) *Schema {
		return m[path]
	}
}
