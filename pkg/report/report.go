// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report renders parse results for people and for scripts.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/BurntSushi/toml"
	"github.com/yeetrun/argv/pkg/argv"
	"gopkg.in/yaml.v3"
)

// Formats lists the names accepted by Encode.
var Formats = []string{"text", "json", "yaml", "toml", "env"}

var ErrUnknownFormat = errors.New("unknown output format")

// ErrEnvNameClash is returned when two names map to the same shell
// variable in env output.
var ErrEnvNameClash = errors.New("names map to the same environment variable")

// Report is the serializable view of an argv.Result.
type Report struct {
	Command string            `json:"command,omitempty" yaml:"command,omitempty" toml:"command,omitempty" env:"ARGV_COMMAND"`
	Options map[string]any    `json:"options" yaml:"options" toml:"options"`
	Params  []any             `json:"params" yaml:"params" toml:"params"`
	Rest    []string          `json:"rest" yaml:"rest" toml:"rest"`
	Unknown map[string]string `json:"unknown,omitempty" yaml:"unknown,omitempty" toml:"unknown,omitempty"`
	Errors  []Issue           `json:"errors,omitempty" yaml:"errors,omitempty" toml:"errors,omitempty"`
	Tokens  string            `json:"tokens" yaml:"tokens" toml:"tokens" env:"ARGV_TOKENS"`
	OK      bool              `json:"ok" yaml:"ok" toml:"ok" env:"ARGV_OK"`
}

// Issue is one entry of Report.Errors.
type Issue struct {
	Kind    string `json:"kind" yaml:"kind" toml:"kind"`
	Index   int    `json:"index" yaml:"index" toml:"index"`
	Token   string `json:"token,omitempty" yaml:"token,omitempty" toml:"token,omitempty"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Message string `json:"message" yaml:"message" toml:"message"`
}

// New builds a Report from r. Tokens holds the shell-quoted Format output.
func New(r *argv.Result) *Report {
	rep := &Report{
		Command: r.CommandPath(),
		Options: r.Options,
		Params:  r.Params,
		Rest:    r.Rest,
		Unknown: r.Unknown,
		Tokens:  argv.Quote(argv.Format(r)),
		OK:      len(r.Errors) == 0,
	}
	if rep.Options == nil {
		rep.Options = map[string]any{}
	}
	if rep.Params == nil {
		rep.Params = []any{}
	}
	if rep.Rest == nil {
		rep.Rest = []string{}
	}
	for _, e := range r.Errors {
		rep.Errors = append(rep.Errors, Issue{
			Kind:    e.Kind.String(),
			Index:   e.Index,
			Token:   e.Token,
			Name:    e.Name,
			Message: e.Msg,
		})
	}
	return rep
}

// Encode writes r to w in the named format.
func Encode(w io.Writer, r *argv.Result, format string) error {
	rep := New(r)
	switch format {
	case "", "text":
		return writeText(w, rep)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	case "toml":
		return toml.NewEncoder(w).Encode(rep)
	case "env":
		return marshalEnv(w, rep)
	}
	return fmt.Errorf("%w %q (want one of %s)", ErrUnknownFormat, format, strings.Join(Formats, ", "))
}

func writeText(w io.Writer, rep *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if rep.Command != "" {
		fmt.Fprintf(tw, "command\t%s\n", rep.Command)
	}
	for _, name := range sortedKeys(rep.Options) {
		fmt.Fprintf(tw, "--%s\t%s\n", name, textValue(rep.Options[name]))
	}
	for i, p := range rep.Params {
		fmt.Fprintf(tw, "param %d\t%s\n", i, textValue(p))
	}
	for _, name := range sortedKeys(rep.Unknown) {
		fmt.Fprintf(tw, "unknown --%s\t%s\n", name, argv.Quote([]string{rep.Unknown[name]}))
	}
	if len(rep.Rest) > 0 {
		fmt.Fprintf(tw, "rest\t%s\n", argv.Quote(rep.Rest))
	}
	for _, e := range rep.Errors {
		fmt.Fprintf(tw, "%s error\t%s\n", e.Kind, e.Message)
	}
	return tw.Flush()
}

func textValue(v any) string {
	switch v := v.(type) {
	case []string:
		return argv.Quote(v)
	case string:
		return argv.Quote([]string{v})
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = fmt.Sprint(rv.Index(i).Interface())
		}
		return strings.Join(parts, " ")
	}
	return fmt.Sprint(v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// marshalEnv writes rep as KEY=value lines suitable for eval in a POSIX
// shell. Struct fields with an env tag come first, then one variable per
// option, param and unknown option.
func marshalEnv(o io.Writer, rep *Report) error {
	if err := CheckEnvNames(sortedKeys(rep.Options)); err != nil {
		return err
	}
	if err := CheckEnvNames(sortedKeys(rep.Unknown)); err != nil {
		return err
	}
	re := reflect.ValueOf(rep).Elem()
	ret := re.Type()
	for i := 0; i < re.NumField(); i++ {
		tag := ret.Field(i).Tag.Get("env")
		if tag == "" {
			continue
		}
		if _, err := fmt.Fprintf(o, "%s=%s\n", tag, envValue(re.Field(i).Interface())); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(rep.Options) {
		if _, err := fmt.Fprintf(o, "ARGV_OPT_%s=%s\n", envName(name), envValue(rep.Options[name])); err != nil {
			return err
		}
	}
	params := make([]string, len(rep.Params))
	for i, p := range rep.Params {
		params[i] = plainValue(p)
	}
	fmt.Fprintf(o, "ARGV_PARAMS=%s\n", argv.Quote([]string{argv.Quote(params)}))
	fmt.Fprintf(o, "ARGV_REST=%s\n", argv.Quote([]string{argv.Quote(rep.Rest)}))
	for _, name := range sortedKeys(rep.Unknown) {
		fmt.Fprintf(o, "ARGV_UNKNOWN_%s=%s\n", envName(name), argv.Quote([]string{rep.Unknown[name]}))
	}
	_, err := fmt.Fprintf(o, "ARGV_ERRORS=%d\n", len(rep.Errors))
	return err
}

// CheckEnvNames reports an error wrapping ErrEnvNameClash when two of
// names share an env variable suffix, such as "dry-run" and "dry_run".
func CheckEnvNames(names []string) error {
	seen := make(map[string]string, len(names))
	for _, name := range names {
		key := envName(name)
		if prev, ok := seen[key]; ok && prev != name {
			return fmt.Errorf("%w: %q and %q both become %s", ErrEnvNameClash, prev, name, key)
		}
		seen[key] = name
	}
	return nil
}

// envName turns an option name into the suffix of a shell variable name.
func envName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, name)
}

// envValue renders a value as a single shell word. Lists are quoted as one
// word holding a quoted list, so `eval "set -- $VAR"` restores them.
func envValue(v any) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = plainValue(rv.Index(i).Interface())
		}
		return argv.Quote([]string{argv.Quote(parts)})
	}
	return argv.Quote([]string{plainValue(v)})
}

func plainValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
