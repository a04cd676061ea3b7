// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/yeetrun/argv/pkg/schemafile"
)

func TestReadBatch(t *testing.T) {
	in := "build a.go\n\n# comment\n  build 'b c.go'  \n"
	got, err := readBatch(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	want := []batchLine{{num: 1, text: "build a.go"}, {num: 4, text: "build 'b c.go'"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("readBatch = %+v, want %+v", got, want)
	}
}

func TestBatchCommandJSON(t *testing.T) {
	schema := writeSchema(t, demoSchema)
	in := "build a.go\nbuild -v 'b c.go' --tag x\n"
	out, _, err := runArgv(t, in, "-s", schema, "batch", "-o", "json", "-j", "2")
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	var got []struct {
		Line   int    `json:"line"`
		Input  string `json:"input"`
		Error  string `json:"error"`
		Result struct {
			Params []any `json:"params"`
			OK     bool  `json:"ok"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("Unmarshal error: %v\n%s", err, out)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].Line != 1 || !reflect.DeepEqual(got[0].Result.Params, []any{"a.go"}) {
		t.Errorf("entry 0 = %+v", got[0])
	}
	if got[1].Line != 2 || !reflect.DeepEqual(got[1].Result.Params, []any{"b c.go"}) || !got[1].Result.OK {
		t.Errorf("entry 1 = %+v", got[1])
	}
}

func TestBatchCommandFile(t *testing.T) {
	schema := writeSchema(t, demoSchema)
	input := filepath.Join(t.TempDir(), "calls.txt")
	if err := os.WriteFile(input, []byte("build a.go\nbuild --ghost\nbuild 'open\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, errOut, err := runArgv(t, "", "-s", schema, "batch", input)
	if exitCode(err) != 1 {
		t.Fatalf("exit code = %d (%v), want 1", exitCode(err), err)
	}
	if err.Error() != "2 of 3 lines have problems" {
		t.Errorf("error = %q", err)
	}
	for _, want := range []string{"line 1: build a.go\n", "line 2: build --ghost\n", "line 3: build 'open\n", "split error"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(errOut, "line 2:\n") {
		t.Errorf("stderr missing issues for line 2:\n%s", errOut)
	}
}

func TestParseBatchStop(t *testing.T) {
	f, err := schemafile.Decode([]byte(demoSchema), "toml")
	if err != nil {
		t.Fatal(err)
	}
	lines := []batchLine{
		{num: 1, text: "build a.go"},
		{num: 2, text: "build --ghost"},
		{num: 3, text: "build c.go"},
	}
	entries, err := parseBatch(context.Background(), f, lines, 1, true, nil)
	if err != errStopBatch {
		t.Fatalf("parseBatch error = %v, want errStopBatch", err)
	}
	entries = truncateAtFailure(entries)
	if len(entries) != 2 || entries[1].Line != 2 || !entries[1].failed() {
		t.Errorf("entries = %+v", entries)
	}
}

func TestParseBatchOrder(t *testing.T) {
	f, err := schemafile.Decode([]byte(demoSchema), "toml")
	if err != nil {
		t.Fatal(err)
	}
	var lines []batchLine
	for i := range 50 {
		lines = append(lines, batchLine{num: i + 1, text: "build f" + strings.Repeat("x", i)})
	}
	entries, err := parseBatch(context.Background(), f, lines, 8, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, e := range entries {
		if e.Line != i+1 {
			t.Fatalf("entry %d has line %d", i, e.Line)
		}
		if want := "f" + strings.Repeat("x", i); e.result.Params[0] != want {
			t.Errorf("entry %d param = %v, want %s", i, e.result.Params[0], want)
		}
	}
}

func TestParseBatchStopConcurrent(t *testing.T) {
	f, err := schemafile.Decode([]byte(demoSchema), "toml")
	if err != nil {
		t.Fatal(err)
	}
	var lines []batchLine
	for i := range 400 {
		text := "build a.go"
		if i == 200 {
			text = "build --ghost"
		}
		lines = append(lines, batchLine{num: i + 1, text: text})
	}
	for range 20 {
		entries, err := parseBatch(context.Background(), f, lines, 64, true, nil)
		if err != errStopBatch {
			t.Fatalf("parseBatch error = %v, want errStopBatch", err)
		}
		entries = truncateAtFailure(entries)
		if len(entries) != 201 {
			t.Fatalf("kept %d entries, want 201", len(entries))
		}
		for i, e := range entries {
			if e.Line != i+1 {
				t.Fatalf("entry %d has line %d", i, e.Line)
			}
		}
		if last := entries[200]; !last.failed() {
			t.Fatalf("last entry %+v did not fail", last)
		}
	}
}

func TestBatchCommandStop(t *testing.T) {
	schema := writeSchema(t, demoSchema)
	var in strings.Builder
	for i := range 100 {
		if i == 60 {
			in.WriteString("build --ghost\n")
			continue
		}
		in.WriteString("build a.go\n")
	}
	out, _, err := runArgv(t, in.String(), "-s", schema, "batch", "-o", "json", "-j", "32", "--stop")
	if exitCode(err) != 1 {
		t.Fatalf("exit code = %d (%v), want 1", exitCode(err), err)
	}
	if err.Error() != "1 of 61 lines have problems" {
		t.Errorf("error = %q", err)
	}
	var got []struct {
		Line int `json:"line"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("Unmarshal error: %v\n%s", err, out)
	}
	if len(got) != 61 || got[60].Line != 61 {
		t.Errorf("got %d entries, want 61 ending at line 61", len(got))
	}
}

func TestTruncateAtFailure(t *testing.T) {
	ok := &batchEntry{Line: 1}
	bad := &batchEntry{Line: 2, Error: "x"}
	skipped := &batchEntry{Line: 3, skipped: true}
	tests := []struct {
		in   []*batchEntry
		want int
	}{
		{[]*batchEntry{ok, ok}, 2},
		{[]*batchEntry{ok, bad, ok}, 2},
		{[]*batchEntry{ok, bad, skipped, skipped}, 2},
		{[]*batchEntry{ok, ok, bad, skipped}, 3},
		{nil, 0},
	}
	for _, tt := range tests {
		if got := truncateAtFailure(tt.in); len(got) != tt.want {
			t.Errorf("truncateAtFailure(%v) kept %d, want %d", tt.in, len(got), tt.want)
		}
	}
}
