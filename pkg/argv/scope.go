// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package argv

// scope is the option currently capturing values. At most one scope is
// open during a scan; opening another commits it first.
type scope struct {
	name    string      // resolved long name
	spec    *OptionSpec // nil for unknown options
	index   int         // index of the token that opened the scope
	token   string
	values  []string
	unknown bool
	negated bool
	inline  bool // opened by --name=value
}

// capture appends raw and reports whether the scope is full and must be
// committed. Single-value, unknown and inline scopes are full after one
// value; multiple scopes take values until the scan loop closes them.
func (s *scope) capture(raw string) (full bool) {
	s.values = append(s.values, raw)
	return s.unknown || s.inline || !s.spec.Multiple
}

// commit writes the scope's final value into the result and closes it.
func (p *parser) commit() *Error {
	s := p.scope
	p.scope = nil
	if s == nil {
		return nil
	}
	if s.unknown {
		var v string
		if len(s.values) > 0 {
			v = s.values[0]
		}
		p.setUnknown(s.name, v)
		return nil
	}

	var v any
	switch {
	case s.spec.Type == Boolean:
		v = !s.negated
	case s.spec.Multiple:
		v = appendValues(p.res.Options[s.name], CastAll(s.values, s.spec.Type))
	case len(s.values) == 0:
		return parseIssue(ErrMissingValue, s.index, s.token, s.name, "option --%s requires a value", s.name)
	default:
		v = Cast(s.values[0], s.spec.Type)
	}
	p.res.Options[s.name] = v
	p.logf("argv: commit --%s = %v", s.name, v)
	return nil
}
