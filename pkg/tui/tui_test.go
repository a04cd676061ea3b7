// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tui

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yeetrun/argv/pkg/argv"
)

func TestNewColorizer(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		noColor string
		term    string
		want    bool
	}{
		{"disabled", false, "", "xterm", false},
		{"enabled", true, "", "xterm", true},
		{"no color", true, "1", "xterm", false},
		{"dumb term", true, "", "dumb", false},
		{"no term", true, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColor)
			t.Setenv("TERM", tt.term)
			if got := NewColorizer(tt.enabled).Enabled; got != tt.want {
				t.Errorf("Enabled = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	on := Colorizer{Enabled: true}
	if got := on.Wrap(ColorRed, "x"); got != ColorRed+"x"+ColorReset {
		t.Errorf("Wrap() = %q", got)
	}
	if got := (Colorizer{}).Wrap(ColorRed, "x"); got != "x" {
		t.Errorf("disabled Wrap() = %q, want x", got)
	}
}

func TestRenderIssues(t *testing.T) {
	tokens := []string{"build", "my file", "--ghost"}
	r, err := argv.Parse(tokens, &argv.Schema{
		Commands: []string{"build"},
		Params:   []*argv.ParamSpec{{Label: "SRC", Required: true}, {Label: "DST", Required: true}},
	})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	RenderIssues(&buf, Colorizer{}, tokens, r.Errors)
	want := strings.Join([]string{
		`parse error: unknown option "--ghost"`,
		`    build 'my file' --ghost`,
		`                    ^^^^^^^`,
		`validation error: missing required param DST`,
		``,
	}, "\n")
	if got := buf.String(); got != want {
		t.Errorf("RenderIssues() =\n%s\nwant\n%s", got, want)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestProgress(t *testing.T) {
	var out syncBuffer
	p := NewProgress(&out, "parsed", 3, WithInterval(time.Millisecond))
	p.Start()
	p.Done(2)
	p.Done(1)
	if got := p.Count(); got != 3 {
		t.Errorf("Count() = %d, want 3", got)
	}
	p.Stop()
	p.Stop()

	got := out.String()
	if !strings.Contains(got, "parsed 0/3") {
		t.Errorf("output = %q, want initial frame", got)
	}
	if !strings.HasSuffix(got, "\r\033[K") {
		t.Errorf("output = %q, want cleared line at the end", got)
	}
}
