// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package argv

import (
	"math"
	"reflect"
	"slices"
	"strings"
)

// maxRepeat bounds how many bare flags Format emits for a count option
// before it falls back to --name=N.
const maxRepeat = 16

// Format rebuilds a token list from r. It keeps the logical content of r,
// not the spelling of the original input: options come out in long form,
// sorted by name, and short groups or inline values are not reproduced.
//
// Params are emitted before options because multiple options keep
// capturing plain tokens until the next option. Values that would
// themselves read as options use --name=value. Trailing params that equal
// their defaults are left out; a parse fills them back in.
func Format(r *Result) []string {
	if r == nil {
		return nil
	}
	var out []string
	if len(r.Command) > 0 {
		out = append(out, r.CommandPath())
	}
	params := make([]string, 0, len(r.Params))
	for _, v := range r.explicitParams() {
		params = append(params, formatValue(v))
	}

	names := make([]string, 0, len(r.Options))
	for name := range r.Options {
		names = append(names, name)
	}
	slices.Sort(names)

	if len(r.Command) == 0 && len(params) > 0 && r.schema != nil && r.schema.isCommand(params[0]) {
		// The first param would read back as the command, so options
		// lead in forms that cannot capture the params.
		var late []string
		for _, name := range names {
			v := r.Options[name]
			if isMultiple(v) && valueLen(v) == 0 {
				late = append(late, "--"+name)
				continue
			}
			out = appendInlineOption(out, name, v)
		}
		out = append(out, params...)
		out = append(out, late...)
	} else {
		out = append(out, params...)
		for _, name := range names {
			out = appendOption(out, name, r.Options[name], r.spec(name), r.defaultOf(name))
		}
	}

	unknown := make([]string, 0, len(r.Unknown))
	for name := range r.Unknown {
		unknown = append(unknown, name)
	}
	slices.Sort(unknown)
	for _, name := range unknown {
		flag := "--" + name
		if len([]rune(name)) == 1 {
			flag = "-" + name
		}
		if v := r.Unknown[name]; v != "" {
			out = appendValue(out, flag, v)
		} else {
			out = append(out, flag)
		}
	}

	if len(r.Rest) > 0 {
		out = append(out, "--")
		out = append(out, r.Rest...)
	}
	return out
}

// explicitParams returns r.Params without the trailing run of optional
// params that hold their default values.
func (r *Result) explicitParams() []any {
	params := r.Params
	if r.schema == nil {
		return params
	}
	for j := len(params) - 1; j >= 0; j-- {
		if j >= len(r.schema.Params) || r.schema.Params[j].Required {
			break
		}
		def := r.schema.paramDefaults[j]
		if def == nil || !reflect.DeepEqual(params[j], def) {
			break
		}
		params = params[:j]
	}
	return params
}

func isMultiple(v any) bool {
	switch v.(type) {
	case []string, []float64, []bool:
		return true
	}
	return false
}

// appendInlineOption emits an option so that it never takes the token
// after it: booleans bare, everything else as --name=value.
func appendInlineOption(out []string, name string, v any) []string {
	flag := "--" + name
	switch v := v.(type) {
	case bool:
		if v {
			return append(out, flag)
		}
		return append(out, "--no-"+name)
	case []string, []float64, []bool:
		for _, s := range valueStrings(v) {
			out = append(out, flag+"="+s)
		}
		return out
	}
	return append(out, flag+"="+formatValue(v))
}

func appendOption(out []string, name string, v any, spec *OptionSpec, def any) []string {
	flag := "--" + name
	switch v := v.(type) {
	case bool:
		if v {
			return append(out, flag)
		}
		return append(out, "--no-"+name)
	case []string, []float64, []bool:
		vals := valueStrings(v)
		if len(vals) == 0 {
			return append(out, flag)
		}
		for _, s := range vals {
			out = appendValue(out, flag, s)
		}
		return out
	case float64:
		if spec != nil && spec.Count {
			start, _ := def.(float64)
			n := v - start
			if n >= 0 && n <= maxRepeat && n == math.Trunc(n) {
				for range int(n) {
					out = append(out, flag)
				}
				return out
			}
			return append(out, flag+"="+formatValue(v))
		}
	}
	return appendValue(out, flag, formatValue(v))
}

// appendValue emits "flag value", or "flag=value" when value would be
// read as an option or as the rest delimiter.
func appendValue(out []string, flag, value string) []string {
	if value == "--" || isOptionLike(value) {
		return append(out, flag+"="+value)
	}
	return append(out, flag, value)
}

func (r *Result) spec(name string) *OptionSpec {
	if r.schema == nil {
		return nil
	}
	return r.schema.Options[name]
}

func (r *Result) defaultOf(name string) any {
	if r.schema == nil {
		return nil
	}
	return r.schema.defaults[name]
}

// Quote joins tokens into a single line, quoting tokens that a POSIX shell
// would otherwise split or expand. ParseString reverses it.
func Quote(tokens []string) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = quoteToken(t)
	}
	return strings.Join(parts, " ")
}

func quoteToken(t string) string {
	if t == "" {
		return "''"
	}
	if !strings.ContainsAny(t, " \t\n'\"\\$`|&;<>()*?[]#~!{}") {
		return t
	}
	return "'" + strings.ReplaceAll(t, "'", `'"'"'`) + "'"
}
