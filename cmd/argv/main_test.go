// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/yeetrun/argv/pkg/cli"
)

const demoSchema = `
name = "demo"
commands = ["build"]

[options.verbose]
type = "number"
count = true
short = "v"
default = 0

[options.out]
short = "o"

[options.tag]
multiple = true

[[params]]
label = "SRC"
required = true
`

func writeSchema(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "argv.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	return path
}

func runArgv(t *testing.T, in string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	stdout, stderr, stdin = &out, &errOut, strings.NewReader(in)
	globalFlags = cli.GlobalFlags{NoColor: true}
	trailingTokens = nil
	t.Cleanup(func() {
		stdout, stderr, stdin = os.Stdout, os.Stderr, os.Stdin
		globalFlags = cli.GlobalFlags{}
		trailingTokens = nil
	})
	err := run(context.Background(), args)
	return out.String(), errOut.String(), err
}

func TestParseCommandJSON(t *testing.T) {
	schema := writeSchema(t, demoSchema)
	out, _, err := runArgv(t, "", "--schema", schema, "parse", "-o", "json", "--", "build", "-vv", "main.go", "--tag", "a", "b")
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	var got struct {
		Command string         `json:"command"`
		Options map[string]any `json:"options"`
		Params  []any          `json:"params"`
		OK      bool           `json:"ok"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("Unmarshal error: %v\n%s", err, out)
	}
	if got.Command != "build" || !got.OK {
		t.Errorf("report = %+v", got)
	}
	if got.Options["verbose"] != 2.0 {
		t.Errorf("verbose = %v, want 2", got.Options["verbose"])
	}
	if !reflect.DeepEqual(got.Options["tag"], []any{"a", "b"}) {
		t.Errorf("tag = %#v", got.Options["tag"])
	}
}

func TestParseCommandBareTokens(t *testing.T) {
	schema := writeSchema(t, demoSchema)
	out, _, err := runArgv(t, "", "parse", "--schema", schema, "-o", "env", "build", "-v", "main.go")
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	for _, want := range []string{"ARGV_COMMAND=build\n", "ARGV_OPT_VERBOSE=1\n", "ARGV_PARAMS=main.go\n", "ARGV_OK=true\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestParseCommandBareTokensKeepTheirFlags(t *testing.T) {
	schema := writeSchema(t, demoSchema)
	out, _, err := runArgv(t, "", "parse", "--schema", schema, "-o", "env", "build", "-o", "dist", "main.go")
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	for _, want := range []string{"ARGV_OPT_OUT=dist\n", "ARGV_PARAMS=main.go\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// -s among the tokens is the parsed command's own option, not --schema.
	_, _, err = runArgv(t, "", "-s", schema, "parse", "-q", "build", "-s", "nope", "main.go")
	var ee exitError
	if !errors.As(err, &ee) || ee.code != 1 {
		t.Errorf("run error = %v, want exit status 1 from the unknown -s", err)
	}
}

func TestParseCommandIssues(t *testing.T) {
	schema := writeSchema(t, demoSchema)
	out, errOut, err := runArgv(t, "", "-s", schema, "parse", "--", "--ghost")
	var ee exitError
	if !errors.As(err, &ee) || ee.code != 1 {
		t.Fatalf("run error = %v, want exit status 1", err)
	}
	if ee.msg != "2 problems found" {
		t.Errorf("msg = %q", ee.msg)
	}
	if !strings.Contains(out, `parse error`) {
		t.Errorf("stdout missing parse error:\n%s", out)
	}
	if !strings.Contains(errOut, "--ghost\n    ^^^^^^^\n") {
		t.Errorf("stderr missing caret line:\n%s", errOut)
	}
}

func TestParseCommandQuiet(t *testing.T) {
	schema := writeSchema(t, demoSchema)
	out, errOut, err := runArgv(t, "", "-s", schema, "parse", "-q", "--", "build")
	if exitCode(err) != 1 {
		t.Fatalf("exit code = %d (%v), want 1", exitCode(err), err)
	}
	if out != "" || errOut != "" {
		t.Errorf("quiet produced output: %q %q", out, errOut)
	}
	var buf bytes.Buffer
	printCLIError(&buf, err)
	if buf.Len() != 0 {
		t.Errorf("printCLIError wrote %q for a silent exit", buf.String())
	}
}

func TestParseCommandLine(t *testing.T) {
	schema := writeSchema(t, demoSchema)
	out, _, err := runArgv(t, "", "-s", schema, "parse", "-o", "json", "-l", `build --out "my dir" src.go`)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if !strings.Contains(out, `"out": "my dir"`) {
		t.Errorf("output missing out option:\n%s", out)
	}

	_, _, err = runArgv(t, "", "-s", schema, "parse", "-l", "build", "--", "x")
	if err == nil || !strings.Contains(err.Error(), "--line cannot be combined") {
		t.Errorf("run error = %v, want --line conflict", err)
	}
}

func TestFormatCommand(t *testing.T) {
	schema := writeSchema(t, demoSchema)
	out, _, err := runArgv(t, "", "-s", schema, "format", "--", "build", "-vv", "--out", "my dir", "a.go")
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if got, want := out, "build a.go --out 'my dir' --verbose --verbose\n"; got != want {
		t.Errorf("format = %q, want %q", got, want)
	}

	out, _, err = runArgv(t, "", "-s", schema, "format", "--list", "--", "build", "a.go")
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if out != "build\na.go\n" {
		t.Errorf("format --list = %q", out)
	}
}

func TestUsageCommand(t *testing.T) {
	schema := writeSchema(t, demoSchema)
	out, _, err := runArgv(t, "", "-s", schema, "usage")
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if !strings.HasPrefix(out, "USAGE:\n    demo [COMMAND] [OPTIONS] <SRC>\n") {
		t.Errorf("usage = %q", out)
	}

	_, _, err = runArgv(t, "", "-s", schema, "usage", "nope")
	if err == nil || !strings.Contains(err.Error(), `unknown command "nope"`) {
		t.Errorf("run error = %v, want unknown command", err)
	}
}

func TestUsageSubcommand(t *testing.T) {
	schema := writeSchema(t, `
name = "git"

[subcommands.remote]
commands = []

[subcommands."remote:add"]
params = [{ label = "NAME", required = true }]
`)
	out, _, err := runArgv(t, "", "-s", schema, "usage", "--name", "g", "remote:add")
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if !strings.HasPrefix(out, "USAGE:\n    g remote add <NAME>\n") {
		t.Errorf("usage = %q", out)
	}

	out, _, err = runArgv(t, "", "-s", schema, "usage")
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if !strings.Contains(out, "COMMANDS:") || !strings.Contains(out, "remote") {
		t.Errorf("root usage missing commands:\n%s", out)
	}
}

func TestSchemaGroup(t *testing.T) {
	schema := writeSchema(t, demoSchema)
	out, _, err := runArgv(t, "", "-s", schema, "schema", "check")
	if err != nil {
		t.Fatalf("check error: %v", err)
	}
	if !strings.HasPrefix(out, "ok "+schema) {
		t.Errorf("check = %q", out)
	}

	out, _, err = runArgv(t, "", "-s", schema, "schema", "path")
	if err != nil || out != schema+"\n" {
		t.Errorf("path = %q, %v", out, err)
	}

	out, _, err = runArgv(t, "", "-s", schema, "schema", "show", "--format", "json")
	if err != nil {
		t.Fatalf("show error: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("Unmarshal error: %v\n%s", err, out)
	}
	if got["name"] != "demo" {
		t.Errorf("show name = %v", got["name"])
	}
}

func TestSchemaCheckFailures(t *testing.T) {
	bad := writeSchema(t, "requires = \">= 99\"\n")
	_, _, err := runArgv(t, "", "-s", bad, "schema", "check")
	if err == nil || !strings.Contains(err.Error(), "requires a different tool version") {
		t.Errorf("check error = %v, want incompatible", err)
	}
	if exitCode(err) != 2 {
		t.Errorf("exit code = %d, want 2", exitCode(err))
	}

	_, _, err = runArgv(t, "", "-s", filepath.Join(t.TempDir(), "missing.toml"), "schema", "check")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("check error = %v, want not exist", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := runArgv(t, "", "version", "--json")
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if got["version"] != version {
		t.Errorf("version = %v, want %s", got["version"], version)
	}
}

func TestPrintCLIError(t *testing.T) {
	var buf bytes.Buffer
	globalFlags = cli.GlobalFlags{NoColor: true}
	t.Cleanup(func() { globalFlags = cli.GlobalFlags{} })
	printCLIError(&buf, errors.New("boom"))
	if got := buf.String(); got != "error: boom\n" {
		t.Errorf("printCLIError = %q", got)
	}
}

func TestTokensFor(t *testing.T) {
	trailingTokens = []string{"c"}
	t.Cleanup(func() { trailingTokens = nil })
	got, err := tokensFor("", []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("tokensFor = %q", got)
	}

	trailingTokens = nil
	got, err = tokensFor(`x "y z"`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"x", "y z"}) {
		t.Errorf("tokensFor(line) = %q", got)
	}
}
