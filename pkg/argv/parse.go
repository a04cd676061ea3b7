// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package argv

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"tailscale.com/types/logger"
	"tailscale.com/util/mak"
)

// Result is the structured outcome of a parse.
type Result struct {
	// Command is the recognized command path split on ':', or nil.
	Command []string
	// Options maps long option names to bool, float64, string, or (for
	// multiple options) []bool, []float64, []string.
	Options map[string]any
	// Params holds positional values in order. Values beyond the declared
	// params (variadic overflow) are raw strings.
	Params []any
	// Rest holds the tokens after "--", verbatim.
	Rest []string
	// Unknown holds undeclared options when the schema tolerates them.
	// It is nil when there are none.
	Unknown map[string]string
	// Errors lists parse issues followed by validation issues, each in
	// discovery order.
	Errors []*Error

	schema *compiled
}

// Err returns the issues joined into a single error, or nil.
func (r *Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// CommandPath returns the command rejoined with ':'.
func (r *Result) CommandPath() string {
	return strings.Join(r.Command, ":")
}

// String returns a string option.
func (r *Result) String(name string) (string, bool) {
	v, ok := r.Options[name].(string)
	return v, ok
}

// Number returns a number option.
func (r *Result) Number(name string) (float64, bool) {
	v, ok := r.Options[name].(float64)
	return v, ok
}

// Bool returns a boolean option.
func (r *Result) Bool(name string) (bool, bool) {
	v, ok := r.Options[name].(bool)
	return v, ok
}

// Strings returns the values of an option as strings, whatever its type.
func (r *Result) Strings(name string) []string {
	return valueStrings(r.Options[name])
}

// Option configures a parse.
type Option func(*parseConfig)

type parseConfig struct {
	logf logger.Logf
}

// WithLogf routes parser traces (scope commits, deprecated option use) to
// logf.
func WithLogf(logf logger.Logf) Option {
	return func(c *parseConfig) {
		if logf != nil {
			c.logf = logf
		}
	}
}

// Parse scans tokens against s. The returned error is non-nil only when s
// itself is invalid (a *SchemaError); problems in tokens are reported in
// Result.Errors.
func Parse(tokens []string, s *Schema, opts ...Option) (*Result, error) {
	c, err := compile(s)
	if err != nil {
		return nil, err
	}
	p := newParser(c, tokens, opts)
	p.scan(0)
	return p.finish(), nil
}

type parser struct {
	schema *compiled
	tokens []string
	logf   logger.Logf

	res   *Result
	chk   checker
	scope *scope

	// commandDone is set once the command position has passed.
	commandDone bool
}

func newParser(c *compiled, tokens []string, opts []Option) *parser {
	cfg := parseConfig{logf: logger.Discard}
	for _, o := range opts {
		o(&cfg)
	}
	return &parser{
		schema: c,
		tokens: tokens,
		logf:   cfg.logf,
		res: &Result{
			Options: make(map[string]any),
			Params:  []any{},
			Rest:    []string{},
			schema:  c,
		},
	}
}

// scan drives the state machine from tokens[start].
func (p *parser) scan(start int) {
	for i := start; i < len(p.tokens); i++ {
		tok := p.tokens[i]
		if tok == "--" {
			p.chk.record(p.commit())
			p.res.Rest = append(p.res.Rest, p.tokens[i+1:]...)
			return
		}
		if issue := p.step(i, tok); issue != nil {
			p.chk.record(issue)
			p.scope = nil
		}
	}
	p.chk.record(p.commit())
}

func (p *parser) step(i int, tok string) *Error {
	if isOptionLike(tok) {
		p.chk.record(p.commit())
		p.commandDone = true
		return p.option(i, tok)
	}
	if p.scope != nil {
		if p.scope.capture(tok) {
			return p.commit()
		}
		return nil
	}
	return p.plain(i, tok)
}

func isOptionLike(tok string) bool {
	return len(tok) > 1 && tok[0] == '-' && !isNumeric(tok)
}

func (p *parser) option(i int, tok string) *Error {
	if body, ok := strings.CutPrefix(tok, "--"); ok {
		name, value, hasValue := strings.Cut(body, "=")
		if !validOptionName(name) {
			return parseIssue(ErrMalformedOption, i, tok, "", "malformed option %q", tok)
		}
		resolved, spec, negated := p.schema.lookup(name)
		if spec == nil {
			return p.unknownOption(i, tok, name, value, hasValue)
		}
		return p.resolved(i, tok, resolved, spec, negated, value, hasValue)
	}

	name, value, hasValue := strings.Cut(tok[1:], "=")
	switch n := utf8.RuneCountInString(name); {
	case n == 1:
		long, ok := p.schema.shorts[name]
		if !ok {
			if p.declaredLong(name) {
				return parseIssue(ErrUnknownOption, i, tok, name, "unknown option %q (did you mean --%s?)", tok, name)
			}
			return p.unknownOption(i, tok, name, value, hasValue)
		}
		return p.resolved(i, tok, long, p.schema.Options[long], false, value, hasValue)
	case n == 0 || hasValue:
		return parseIssue(ErrMalformedOption, i, tok, "", "malformed option %q", tok)
	}
	p.group(i, tok, name)
	return nil
}

// resolved handles an option that has a schema entry.
func (p *parser) resolved(i int, tok, name string, spec *OptionSpec, negated bool, value string, hasValue bool) *Error {
	if spec.Deprecated != "" {
		p.logf("argv: option --%s is deprecated: %s", name, spec.Deprecated)
	}
	switch {
	case spec.Type == Boolean && hasValue:
		return parseIssue(ErrBooleanValue, i, tok, name, "boolean option --%s does not take a value", name)
	case spec.Count && hasValue:
		p.res.Options[name] = Cast(value, Number)
		return nil
	case spec.Count:
		p.increment(name)
		return nil
	}
	p.scope = &scope{
		name:    name,
		spec:    spec,
		index:   i,
		token:   tok,
		negated: negated,
		inline:  hasValue,
	}
	if spec.Type == Boolean {
		return p.commit()
	}
	if hasValue {
		p.scope.capture(value)
		return p.commit()
	}
	return nil
}

// group expands a short-option group such as -abc. Every letter must name
// a boolean flag or a count option; no scope is opened.
func (p *parser) group(i int, tok, letters string) {
	for _, r := range letters {
		short := string(r)
		long, ok := p.schema.shorts[short]
		if !ok {
			if p.schema.Unknown && !p.declaredLong(short) {
				p.setUnknown(short, "")
				continue
			}
			p.chk.record(parseIssue(ErrUnknownOption, i, tok, short, "unknown option -%s in %q", short, tok))
			continue
		}
		spec := p.schema.Options[long]
		switch {
		case spec.Type == Boolean:
			p.res.Options[long] = true
		case spec.Count:
			p.increment(long)
		default:
			p.chk.record(parseIssue(ErrMalformedOption, i, tok, long, "option -%s (--%s) takes a value and cannot be grouped in %q", short, long, tok))
		}
	}
}

func (p *parser) unknownOption(i int, tok, name, value string, hasValue bool) *Error {
	if !p.schema.Unknown {
		return parseIssue(ErrUnknownOption, i, tok, name, "unknown option %q", tok)
	}
	p.scope = &scope{name: name, index: i, token: tok, unknown: true}
	if hasValue {
		p.scope.capture(value)
		return p.commit()
	}
	return nil
}

// declaredLong reports whether an undeclared short letter is also the
// name of a long option. Such a letter is never tolerated as unknown, so
// Options and Unknown never share a name.
func (p *parser) declaredLong(short string) bool {
	_, ok := p.schema.Options[short]
	return ok
}

func (p *parser) setUnknown(name, value string) {
	mak.Set(&p.res.Unknown, name, value)
}

// increment bumps a count option, starting from its default.
func (p *parser) increment(name string) {
	cur, ok := p.res.Options[name].(float64)
	if !ok {
		cur, _ = p.schema.defaults[name].(float64)
	}
	p.res.Options[name] = cur + 1
}

// plain handles a token that is not option-like while no scope is open.
func (p *parser) plain(i int, tok string) *Error {
	if !p.commandDone {
		p.commandDone = true
		if p.schema.isCommand(tok) {
			if !validCommand(tok) {
				return parseIssue(ErrMalformedCommand, i, tok, "", "malformed command %q", tok)
			}
			p.res.Command = strings.Split(tok, ":")
			return nil
		}
	}

	if n := len(p.res.Params); n < len(p.schema.Params) {
		spec := p.schema.Params[n]
		label := paramLabel(n, spec)
		v := Cast(tok, spec.Type)
		if spec.Format != nil {
			v = spec.Format(v)
		}
		if spec.Validate != nil {
			if err := spec.Validate(v); err != nil {
				return &Error{
					Kind:  KindValidation,
					Err:   fmt.Errorf("%w: %w", ErrInvalidParam, err),
					Token: tok,
					Index: i,
					Name:  label,
					Msg:   fmt.Sprintf("invalid %s %q: %v", label, tok, err),
				}
			}
		}
		p.res.Params = append(p.res.Params, v)
		return nil
	}

	if p.schema.Variadic {
		p.res.Params = append(p.res.Params, tok)
		return nil
	}
	if p.res.Command == nil && p.schema.isCommand(tok) {
		return parseIssue(ErrCommandOrder, i, tok, "", "command %q must come before options and params", tok)
	}
	return parseIssue(ErrUnexpectedToken, i, tok, "", "unexpected argument %q", tok)
}

// finish fills param defaults, runs the schema pass and seals the result.
func (p *parser) finish() *Result {
	filling := true
	for j := len(p.res.Params); j < len(p.schema.Params); j++ {
		spec := p.schema.Params[j]
		if spec.Required {
			label := paramLabel(j, spec)
			p.chk.record(validationIssue(ErrRequiredParam, -1, "", label, "missing required param %s", label))
			break
		}
		def := p.schema.paramDefaults[j]
		if def == nil {
			filling = false
			continue
		}
		if filling {
			p.res.Params = append(p.res.Params, def)
		}
	}

	names := make([]string, 0, len(p.schema.Options))
	for name := range p.schema.Options {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		spec := p.schema.Options[name]
		v, ok := p.res.Options[name]
		if !ok {
			if def, ok := p.schema.defaults[name]; ok {
				p.res.Options[name] = cloneValue(def)
			}
			continue
		}
		if spec.Multiple && spec.Arity > 0 && valueLen(v) != spec.Arity {
			p.chk.record(validationIssue(ErrArity, -1, "", name, "option --%s expects %d values, got %d", name, spec.Arity, valueLen(v)))
		}
		if cs, ok := p.schema.choices[name]; ok {
			for _, s := range valueStrings(v) {
				if !cs.Contains(s) {
					p.chk.record(validationIssue(ErrChoice, -1, s, name, "option --%s: %q is not one of %s", name, s, strings.Join(spec.Choices, ", ")))
				}
			}
		}
	}

	p.res.Errors = p.chk.issues()
	return p.res
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case []string:
		return slices.Clone(v)
	case []float64:
		return slices.Clone(v)
	case []bool:
		return slices.Clone(v)
	}
	return v
}
