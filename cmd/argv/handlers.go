// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fatih/color"
	"github.com/yeetrun/argv/pkg/argv"
	"github.com/yeetrun/argv/pkg/cli"
	"github.com/yeetrun/argv/pkg/report"
	"github.com/yeetrun/argv/pkg/schemafile"
	"github.com/yeetrun/argv/pkg/tui"
	"gopkg.in/yaml.v3"
)

// loadSchema loads the schema file named by --schema or ARGV_SCHEMA, or
// the nearest one above the working directory, and checks it against this
// build.
func loadSchema() (*schemafile.File, error) {
	var (
		f   *schemafile.File
		err error
	)
	if globalFlags.Schema != "" {
		f, err = schemafile.Load(globalFlags.Schema)
	} else {
		wd, werr := os.Getwd()
		if werr != nil {
			return nil, werr
		}
		f, err = schemafile.LoadFromDir(wd)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w (pass --schema or set ARGV_SCHEMA)", err)
		}
	}
	if err != nil {
		return nil, err
	}
	if err := f.Check(version); err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return f, nil
}

func parseOptions() []argv.Option {
	if !globalFlags.Verbose {
		return nil
	}
	return []argv.Option{argv.WithLogf(log.Printf)}
}

// tokensFor returns the tokens to parse: either line split with shell
// rules, or the command's positional args followed by the tokens after
// "--".
func tokensFor(line string, positional []string) ([]string, error) {
	tokens := append(slices.Clone(positional), trailingTokens...)
	if line == "" {
		if tokens == nil {
			tokens = []string{}
		}
		return tokens, nil
	}
	if len(tokens) > 0 {
		return nil, errors.New("--line cannot be combined with tokens")
	}
	return argv.Split(line)
}

func problems(n int) string {
	if n == 1 {
		return "1 problem found"
	}
	return fmt.Sprintf("%d problems found", n)
}

func handleParse(_ context.Context, args []string) error {
	flags, positional, err := cli.ParseParse(args)
	if err != nil {
		return err
	}
	tokens, err := tokensFor(flags.Line, positional)
	if err != nil {
		return err
	}
	f, err := loadSchema()
	if err != nil {
		return err
	}
	r, err := f.Parse(tokens, parseOptions()...)
	if err != nil {
		return err
	}
	if flags.Quiet {
		if len(r.Errors) > 0 {
			return exitError{code: 1}
		}
		return nil
	}
	if err := report.Encode(stdout, r, flags.Output); err != nil {
		return err
	}
	if len(r.Errors) == 0 {
		return nil
	}
	tui.RenderIssues(stderr, tui.NewColorizer(colorEnabled(stderr)), tokens, r.Errors)
	return exitError{code: 1, msg: problems(len(r.Errors))}
}

func handleFormat(_ context.Context, args []string) error {
	flags, positional, err := cli.ParseFormat(args)
	if err != nil {
		return err
	}
	tokens, err := tokensFor(flags.Line, positional)
	if err != nil {
		return err
	}
	f, err := loadSchema()
	if err != nil {
		return err
	}
	r, err := f.Parse(tokens, parseOptions()...)
	if err != nil {
		return err
	}
	if len(r.Errors) > 0 {
		tui.RenderIssues(stderr, tui.NewColorizer(colorEnabled(stderr)), tokens, r.Errors)
		return exitError{code: 1, msg: problems(len(r.Errors))}
	}
	out := argv.Format(r)
	if flags.List {
		for _, tok := range out {
			fmt.Fprintln(stdout, tok)
		}
		return nil
	}
	fmt.Fprintln(stdout, argv.Quote(out))
	return nil
}

func handleUsage(_ context.Context, args []string) error {
	flags, positional, err := cli.ParseUsage(args)
	if err != nil {
		return err
	}
	if err := cli.RequireArgsAtMost(cli.CommandUsage, positional, 1); err != nil {
		return err
	}
	f, err := loadSchema()
	if err != nil {
		return err
	}
	name := flags.Name
	if name == "" {
		name = f.Name
	}
	if name == "" {
		name = "command"
	}
	if len(positional) == 0 {
		s := f.Schema()
		if f.HasSubcommands() {
			s.Commands = append(slices.Clone(s.Commands), topLevelCommands(f)...)
		}
		if f.Description != "" {
			fmt.Fprintf(stdout, "%s\n\n", f.Description)
		}
		fmt.Fprint(stdout, argv.Usage(name, s))
		return nil
	}
	path := positional[0]
	s, ok := f.Subcommands[path]
	if !ok {
		return fmt.Errorf("unknown command %q (have %s)", path, strings.Join(f.SubcommandPaths(), ", "))
	}
	fmt.Fprint(stdout, argv.Usage(name+" "+strings.ReplaceAll(path, ":", " "), s))
	return nil
}

// topLevelCommands lists the first segments of the subcommand paths.
func topLevelCommands(f *schemafile.File) []string {
	var out []string
	for _, p := range f.SubcommandPaths() {
		first, _, _ := strings.Cut(p, ":")
		if !slices.Contains(out, first) {
			out = append(out, first)
		}
	}
	return out
}

func handleSchemaCheck(_ context.Context, args []string) error {
	f, err := loadSchema()
	if err != nil {
		return err
	}
	ok := "ok"
	if colorEnabled(stdout) {
		ok = color.GreenString(ok)
	}
	fmt.Fprintf(stdout, "%s %s (%d options, %d params, %d subcommands)\n", ok, f.Path, len(f.Options), len(f.Params), len(f.Subcommands))
	return nil
}

func handleSchemaShow(_ context.Context, args []string) error {
	flags, _, err := cli.ParseSchemaShow(args)
	if err != nil {
		return err
	}
	f, err := loadSchema()
	if err != nil {
		return err
	}
	switch flags.Format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(f)
	case "yaml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return err
		}
		return enc.Close()
	default:
		return toml.NewEncoder(stdout).Encode(f)
	}
}

func handleSchemaPath(_ context.Context, _ []string) error {
	f, err := loadSchema()
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, f.Path)
	return nil
}

func handleVersion(_ context.Context, args []string) error {
	flags, _, err := cli.ParseVersion(args)
	if err != nil {
		return err
	}
	if flags.JSON {
		return json.NewEncoder(stdout).Encode(map[string]any{
			"version":       version,
			"schemaVersion": schemafile.Version,
		})
	}
	fmt.Fprintf(stdout, "argv %s (schema format %d)\n", version, schemafile.Version)
	return nil
}
