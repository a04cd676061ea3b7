// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command argv parses command lines against a declarative schema file and
// prints the structured result.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/shayne/yargs"
	"github.com/yeetrun/argv/pkg/cli"
	"golang.org/x/term"
)

var version = "0.1.0"

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	stdin  io.Reader = os.Stdin

	// trailingTokens holds the arguments after the first "--", which are
	// never interpreted by argv itself.
	trailingTokens []string
	globalFlags    cli.GlobalFlags

	isTerminalFn = term.IsTerminal
)

func init() {
	if path := os.Getenv("ARGV_SCHEMA"); path != "" {
		globalFlags.Schema = path
	}
	if os.Getenv("NO_COLOR") != "" {
		globalFlags.NoColor = true
	}
}

// exitError carries a process exit status without printing anything more
// than its message.
type exitError struct {
	code int
	msg  string
}

func (e exitError) Error() string {
	return e.msg
}

func printCLIError(w io.Writer, err error) {
	if err == nil || err.Error() == "" {
		return
	}
	prefix := "error:"
	if colorEnabled(w) {
		prefix = color.RedString(prefix)
	}
	fmt.Fprintln(w, prefix, err)
}

// colorEnabled reports whether w is a terminal that should get colors.
func colorEnabled(w io.Writer) bool {
	if globalFlags.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	return ok && isTerminalFn(int(f.Fd()))
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 2
}

func run(ctx context.Context, args []string) error {
	own, tokens, ok := cli.SplitTokens(args)
	trailingTokens = tokens
	var bare []string
	if !ok {
		own, bare = cli.SplitBareTokens(own)
	}

	flags, remaining, err := cli.ParseGlobal(own)
	if err != nil {
		return err
	}
	remaining = append(remaining, bare...)
	if flags.Schema != "" {
		globalFlags.Schema = flags.Schema
	}
	globalFlags.Verbose = globalFlags.Verbose || flags.Verbose
	globalFlags.NoColor = globalFlags.NoColor || flags.NoColor
	color.NoColor = color.NoColor || globalFlags.NoColor

	handlers := map[string]yargs.SubcommandHandler{
		cli.CommandParse:   handleParse,
		cli.CommandFormat:  handleFormat,
		cli.CommandUsage:   handleUsage,
		cli.CommandBatch:   handleBatch,
		cli.CommandVersion: handleVersion,
	}
	groups := map[string]yargs.Group{
		cli.GroupSchema: {
			Description: cli.GroupInfos()[cli.GroupSchema].Description,
			Commands: map[string]yargs.SubcommandHandler{
				"check": handleSchemaCheck,
				"show":  handleSchemaShow,
				"path":  handleSchemaPath,
			},
		},
	}
	return yargs.RunSubcommandsWithGroups(ctx, remaining, cli.HelpConfig(version), cli.GlobalFlags{}, handlers, groups)
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("argv: ")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:])
	cancel()
	if err != nil {
		printCLIError(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
