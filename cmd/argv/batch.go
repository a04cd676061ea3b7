// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/yeetrun/argv/pkg/argv"
	"github.com/yeetrun/argv/pkg/cli"
	"github.com/yeetrun/argv/pkg/report"
	"github.com/yeetrun/argv/pkg/schemafile"
	"github.com/yeetrun/argv/pkg/tui"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

type batchLine struct {
	num  int
	text string
}

type batchEntry struct {
	Line   int            `json:"line" yaml:"line"`
	Input  string         `json:"input" yaml:"input"`
	Result *report.Report `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string         `json:"error,omitempty" yaml:"error,omitempty"`

	tokens  []string
	result  *argv.Result
	skipped bool
}

func (e *batchEntry) failed() bool {
	return e.Error != "" || (e.result != nil && len(e.result.Errors) > 0)
}

var errStopBatch = errors.New("stopped at first line with problems")

// readBatch returns the non-blank lines of r that do not start with '#'.
func readBatch(r io.Reader) ([]batchLine, error) {
	var lines []batchLine
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for n := 1; sc.Scan(); n++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		lines = append(lines, batchLine{num: n, text: text})
	}
	return lines, sc.Err()
}

func handleBatch(ctx context.Context, args []string) error {
	flags, positional, err := cli.ParseBatch(args)
	if err != nil {
		return err
	}
	if err := cli.RequireArgsAtMost(cli.CommandBatch, positional, 1); err != nil {
		return err
	}
	in := stdin
	if len(positional) == 1 {
		file, err := os.Open(positional[0])
		if err != nil {
			return err
		}
		defer file.Close()
		in = file
	}
	lines, err := readBatch(in)
	if err != nil {
		return err
	}
	f, err := loadSchema()
	if err != nil {
		return err
	}

	var progress *tui.Progress
	if len(lines) > 1 && colorEnabled(stderr) {
		progress = tui.NewProgress(stderr, "parsing", len(lines), tui.WithColor(tui.NewColorizer(true)))
		progress.Start()
	}
	entries, runErr := parseBatch(ctx, f, lines, flags.Jobs, flags.Stop, progress)
	if progress != nil {
		progress.Stop()
	}
	if runErr != nil && !errors.Is(runErr, errStopBatch) {
		return runErr
	}
	if flags.Stop {
		entries = truncateAtFailure(entries)
	}

	if err := writeBatch(flags.Output, entries); err != nil {
		return err
	}
	failed := 0
	for _, e := range entries {
		if e.failed() {
			failed++
		}
	}
	if failed > 0 {
		return exitError{code: 1, msg: fmt.Sprintf("%d of %d lines have problems", failed, len(entries))}
	}
	return nil
}

// parseBatch parses lines concurrently, at most jobs at a time. Entries
// come back in input order. With stop set, lines after the earliest line
// with problems are skipped; every line before it is still parsed.
func parseBatch(ctx context.Context, f *schemafile.File, lines []batchLine, jobs int, stop bool, progress *tui.Progress) ([]*batchEntry, error) {
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	entries := make([]*batchEntry, len(lines))
	for i, line := range lines {
		entries[i] = &batchEntry{Line: line.num, Input: line.text, skipped: true}
	}
	var stopAt atomic.Int64
	stopAt.Store(int64(len(lines)))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	opts := parseOptions()
	for i, line := range lines {
		if stop && int64(i) > stopAt.Load() {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if stop && int64(i) > stopAt.Load() {
				return nil
			}
			e := entries[i]
			e.skipped = false
			defer func() {
				if progress != nil {
					progress.Done(1)
				}
			}()
			tokens, err := argv.Split(line.text)
			if err != nil {
				e.Error = err.Error()
			} else {
				r, err := f.Parse(tokens, opts...)
				if err != nil {
					return err
				}
				e.tokens = tokens
				e.result = r
				e.Result = report.New(r)
			}
			if stop && e.failed() {
				lowerStopAt(&stopAt, int64(i))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return entries, err
	}
	if stopAt.Load() < int64(len(lines)) {
		return entries, errStopBatch
	}
	return entries, nil
}

func lowerStopAt(v *atomic.Int64, i int64) {
	for {
		cur := v.Load()
		if i >= cur || v.CompareAndSwap(cur, i) {
			return
		}
	}
}

// truncateAtFailure keeps the parsed entries up to and including the first
// failed one.
func truncateAtFailure(entries []*batchEntry) []*batchEntry {
	var out []*batchEntry
	for _, e := range entries {
		if e == nil || e.skipped {
			continue
		}
		out = append(out, e)
		if e.failed() {
			break
		}
	}
	return out
}

func writeBatch(format string, entries []*batchEntry) error {
	switch format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	}
	c := tui.NewColorizer(colorEnabled(stderr))
	for i, e := range entries {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		fmt.Fprintf(stdout, "line %d: %s\n", e.Line, e.Input)
		if e.Error != "" {
			fmt.Fprintf(stdout, "split error  %s\n", e.Error)
			continue
		}
		if err := report.Encode(stdout, e.result, "text"); err != nil {
			return err
		}
		if len(e.result.Errors) > 0 {
			fmt.Fprintf(stderr, "line %d:\n", e.Line)
			tui.RenderIssues(stderr, c, e.tokens, e.result.Errors)
		}
	}
	return nil
}
