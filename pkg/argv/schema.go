// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package argv

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"tailscale.com/util/set"
)

// Type is the semantic type of an option or param value.
type Type int

const (
	String Type = iota
	Boolean
	Number
)

func (t Type) String() string {
	switch t {
	case Boolean:
		return "boolean"
	case Number:
		return "number"
	default:
		return "string"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so that schema files can
// spell types as "boolean", "number" or "string".
func (t *Type) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "", "string", "str":
		*t = String
	case "boolean", "bool":
		*t = Boolean
	case "number", "num", "int", "float":
		*t = Number
	default:
		return fmt.Errorf("unknown type %q (expected boolean, number or string)", b)
	}
	return nil
}

// OptionSpec declares one recognized long option.
type OptionSpec struct {
	Type        Type     `json:"type" yaml:"type" toml:"type"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Default     any      `json:"default,omitempty" yaml:"default,omitempty" toml:"default,omitempty"`
	Multiple    bool     `json:"multiple,omitempty" yaml:"multiple,omitempty" toml:"multiple,omitempty"`
	Arity       int      `json:"arity,omitempty" yaml:"arity,omitempty" toml:"arity,omitempty"`
	Count       bool     `json:"count,omitempty" yaml:"count,omitempty" toml:"count,omitempty"`
	Choices     []string `json:"choices,omitempty" yaml:"choices,omitempty" toml:"choices,omitempty"`
	Short       string   `json:"short,omitempty" yaml:"short,omitempty" toml:"short,omitempty"`
	// Deprecated holds a message shown in usage text. Deprecated options
	// still parse normally.
	Deprecated string `json:"deprecated,omitempty" yaml:"deprecated,omitempty" toml:"deprecated,omitempty"`
	Hidden     bool   `json:"hidden,omitempty" yaml:"hidden,omitempty" toml:"hidden,omitempty"`
	Category   string `json:"category,omitempty" yaml:"category,omitempty" toml:"category,omitempty"`
}

// ParamSpec declares one positional slot.
type ParamSpec struct {
	Type        Type   `json:"type" yaml:"type" toml:"type"`
	Label       string `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty" toml:"required,omitempty"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty" toml:"default,omitempty"`

	// Format, if set, transforms the cast value before it is stored.
	Format func(any) any `json:"-" yaml:"-" toml:"-"`
	// Validate, if set, rejects a (formatted) value. A rejection is
	// recorded as a validation issue and the value is not stored.
	Validate func(any) error `json:"-" yaml:"-" toml:"-"`
}

// Schema describes the commands, options and params a token list may contain.
type Schema struct {
	// Commands lists recognized command paths ("build", "remote:add").
	Commands []string `json:"commands,omitempty" yaml:"commands,omitempty" toml:"commands,omitempty"`
	// IsCommand, if set, is consulted in addition to Commands.
	IsCommand func(string) bool `json:"-" yaml:"-" toml:"-"`

	Options map[string]*OptionSpec `json:"options,omitempty" yaml:"options,omitempty" toml:"options,omitempty"`
	Params  []*ParamSpec           `json:"params,omitempty" yaml:"params,omitempty" toml:"params,omitempty"`

	// Unknown keeps undeclared options in Result.Unknown instead of
	// reporting them.
	Unknown bool `json:"unknown,omitempty" yaml:"unknown,omitempty" toml:"unknown,omitempty"`
	// Variadic keeps plain tokens beyond the declared params as raw strings.
	Variadic bool `json:"variadic,omitempty" yaml:"variadic,omitempty" toml:"variadic,omitempty"`
}

// SchemaError reports a bug in a Schema. It is returned before any token is
// read and indicates a problem in the calling code, not in user input.
type SchemaError struct {
	Subject string // e.g. `option "color"`, `param 1 (FILE)`, `command "a::b"`
	Msg     string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("argv: invalid schema: %s: %s", e.Subject, e.Msg)
}

func optionErr(name, format string, args ...any) *SchemaError {
	return &SchemaError{Subject: fmt.Sprintf("option %q", name), Msg: fmt.Sprintf(format, args...)}
}

func paramErr(i int, p *ParamSpec, format string, args ...any) *SchemaError {
	return &SchemaError{Subject: fmt.Sprintf("param %d (%s)", i, paramLabel(i, p)), Msg: fmt.Sprintf(format, args...)}
}

func paramLabel(i int, p *ParamSpec) string {
	if p != nil && p.Label != "" {
		return p.Label
	}
	return "arg" + strconv.Itoa(i)
}

// Validate reports the first programmer error found in s, or nil.
func (s *Schema) Validate() error {
	_, err := compile(s)
	return err
}

// compiled is a Schema plus the lookup tables the scan loop needs.
type compiled struct {
	*Schema
	shorts        map[string]string // short name -> long name
	defaults      map[string]any    // option name -> normalized default
	paramDefaults []any
	commands      set.Set[string]
	choices       map[string]set.Set[string]
}

func compile(s *Schema) (*compiled, error) {
	if s == nil {
		s = &Schema{}
	}
	c := &compiled{
		Schema:   s,
		shorts:   make(map[string]string),
		defaults: make(map[string]any),
		commands: make(set.Set[string]),
		choices:  make(map[string]set.Set[string]),
	}

	for _, cmd := range s.Commands {
		if !validCommand(cmd) {
			return nil, &SchemaError{Subject: fmt.Sprintf("command %q", cmd), Msg: "malformed command name"}
		}
		c.commands.Add(cmd)
	}

	names := make([]string, 0, len(s.Options))
	for name := range s.Options {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		o := s.Options[name]
		if o == nil {
			return nil, optionErr(name, "nil spec")
		}
		if !validOptionName(name) {
			return nil, optionErr(name, "malformed option name")
		}
		if base, ok := strings.CutPrefix(name, "no-"); ok {
			if other, ok := s.Options[base]; ok && other != nil && other.Type == Boolean {
				return nil, optionErr(name, "collides with the negated form of boolean option %q", base)
			}
		}
		switch {
		case o.Type == Boolean && o.Multiple:
			return nil, optionErr(name, "boolean options cannot be multiple")
		case o.Count && o.Type != Number:
			return nil, optionErr(name, "count requires type number")
		case o.Count && o.Multiple:
			return nil, optionErr(name, "count options cannot be multiple")
		case o.Arity < 0:
			return nil, optionErr(name, "negative arity %d", o.Arity)
		case o.Arity > 0 && !o.Multiple:
			return nil, optionErr(name, "arity requires multiple")
		}
		if o.Short != "" {
			if utf8.RuneCountInString(o.Short) != 1 || o.Short == "-" || o.Short == "=" || isNumeric(o.Short) {
				return nil, optionErr(name, "short name %q must be a single non-digit character", o.Short)
			}
			if prev, dup := c.shorts[o.Short]; dup {
				return nil, optionErr(name, "short name %q already used by option %q", o.Short, prev)
			}
			c.shorts[o.Short] = name
		}
		if len(o.Choices) > 0 {
			cs := make(set.Set[string])
			for _, ch := range o.Choices {
				cs.Add(ch)
			}
			c.choices[name] = cs
		}
		def, err := normalizeDefault(o.Default, o.Type, o.Multiple)
		if err != nil {
			return nil, optionErr(name, "malformed default: %v", err)
		}
		if def == nil {
			continue
		}
		if o.Arity > 0 && reflect.ValueOf(def).Len() != o.Arity {
			return nil, optionErr(name, "default has %d values, arity is %d", reflect.ValueOf(def).Len(), o.Arity)
		}
		if cs, ok := c.choices[name]; ok {
			for _, v := range valueStrings(def) {
				if !cs.Contains(v) {
					return nil, optionErr(name, "default %q is not one of %s", v, strings.Join(o.Choices, ", "))
				}
			}
		}
		c.defaults[name] = def
	}

	c.paramDefaults = make([]any, len(s.Params))
	for i, p := range s.Params {
		if p == nil {
			return nil, paramErr(i, p, "nil spec")
		}
		if p.Required && p.Default != nil {
			return nil, paramErr(i, p, "required param cannot declare a default")
		}
		def, err := normalizeDefault(p.Default, p.Type, false)
		if err != nil {
			return nil, paramErr(i, p, "malformed default: %v", err)
		}
		c.paramDefaults[i] = def
	}
	return c, nil
}

// lookup resolves a long option name, handling the "no-" negation of
// boolean options. An exact schema entry wins over a negated reading.
func (c *compiled) lookup(name string) (resolved string, spec *OptionSpec, negated bool) {
	if o, ok := c.Options[name]; ok {
		return name, o, false
	}
	if base, ok := strings.CutPrefix(name, "no-"); ok {
		if o, ok := c.Options[base]; ok && o.Type == Boolean {
			return base, o, true
		}
	}
	return name, nil, false
}

func (c *compiled) isCommand(tok string) bool {
	if c.commands.Contains(tok) {
		return true
	}
	return c.IsCommand != nil && c.IsCommand(tok)
}

func validOptionName(name string) bool {
	if name == "" || strings.HasPrefix(name, "-") {
		return false
	}
	return !strings.ContainsAny(name, "= \t\n")
}

func validCommand(cmd string) bool {
	if cmd == "" || strings.HasPrefix(cmd, "-") || strings.ContainsAny(cmd, " \t\n") {
		return false
	}
	for _, seg := range strings.Split(cmd, ":") {
		if seg == "" {
			return false
		}
	}
	return true
}

// normalizeDefault converts a declared default into the Go representation
// the caster would produce for the same type. Schema files decode numbers
// as int64/float64 depending on the format, so every numeric kind is
// accepted for number options.
func normalizeDefault(def any, t Type, multiple bool) (any, error) {
	if def == nil {
		return nil, nil
	}
	if !multiple {
		return normalizeScalar(def, t)
	}
	rv := reflect.ValueOf(def)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("multiple option needs a list default, got %T", def)
	}
	switch t {
	case Boolean:
		out := make([]bool, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			v, err := normalizeScalar(rv.Index(i).Interface(), t)
			if err != nil {
				return nil, err
			}
			out = append(out, v.(bool))
		}
		return out, nil
	case Number:
		out := make([]float64, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			v, err := normalizeScalar(rv.Index(i).Interface(), t)
			if err != nil {
				return nil, err
			}
			out = append(out, v.(float64))
		}
		return out, nil
	default:
		out := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			v, err := normalizeScalar(rv.Index(i).Interface(), t)
			if err != nil {
				return nil, err
			}
			out = append(out, v.(string))
		}
		return out, nil
	}
}

func normalizeScalar(v any, t Type) (any, error) {
	switch t {
	case Boolean:
		switch v := v.(type) {
		case bool:
			return v, nil
		case string:
			b, ok := boolWord(v)
			if !ok {
				return nil, fmt.Errorf("invalid boolean %q", v)
			}
			return b, nil
		}
	case Number:
		switch v := v.(type) {
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", v)
			}
			return f, nil
		}
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(rv.Int()), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return float64(rv.Uint()), nil
		case reflect.Float32, reflect.Float64:
			return rv.Float(), nil
		}
	default:
		if s, ok := v.(string); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%T is not a valid %s", v, t)
}
