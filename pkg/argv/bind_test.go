// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package argv

import (
	"errors"
	"net/url"
	"reflect"
	"strconv"
	"testing"
	"time"
)

type buildFlags struct {
	Verbose int           `flag:"verbose" short:"v" count:"true" help:"More output"`
	Out     string        `flag:"out" short:"o" default:"a.out" help:"Output file"`
	Tags    []string      `flag:"tag"`
	Timeout time.Duration `flag:"timeout" default:"5s"`
	Level   string        `flag:"level" choices:"debug,info" default:"info"`
	Jobs    *int          `flag:"jobs"`
	Force   bool
	Ignored string `flag:"-"`
	Src     string   `pos:"0" help:"Source file"`
	Extra   []string `pos:"1*"`
}

func TestSchemaOf(t *testing.T) {
	s, err := SchemaOf[buildFlags]()
	if err != nil {
		t.Fatalf("SchemaOf() error = %v", err)
	}

	v := s.Options["verbose"]
	if v == nil || v.Type != Number || !v.Count || v.Short != "v" || v.Description != "More output" {
		t.Errorf("verbose = %+v", v)
	}
	if tag := s.Options["tag"]; tag == nil || !tag.Multiple || tag.Type != String {
		t.Errorf("tag = %+v, want multiple string", tag)
	}
	if lvl := s.Options["level"]; lvl == nil || !reflect.DeepEqual(lvl.Choices, []string{"debug", "info"}) {
		t.Errorf("level = %+v, want choices", lvl)
	}
	if jobs := s.Options["jobs"]; jobs == nil || jobs.Type != Number {
		t.Errorf("jobs = %+v, want number", jobs)
	}
	if _, ok := s.Options["force"]; !ok {
		t.Errorf("force missing from %v", s.Options)
	}
	if _, ok := s.Options["ignored"]; ok {
		t.Errorf("ignored field became an option")
	}
	if len(s.Params) != 2 || !s.Params[0].Required || s.Params[0].Label != "SRC" || s.Params[1].Required {
		t.Errorf("Params = %+v", s.Params)
	}
	if !s.Variadic {
		t.Errorf("Variadic = false, want true")
	}
}

func TestSchemaOfErrors(t *testing.T) {
	type gap struct {
		A string `pos:"0"`
		B string `pos:"2"`
	}
	type sliceNotVariadic struct {
		A []string `pos:"0"`
	}
	type variadicNotLast struct {
		A []string `pos:"0*"`
		B string   `pos:"1"`
	}
	type badArity struct {
		A []string `flag:"a" arity:"two"`
	}
	type badType struct {
		A map[string]string `flag:"a"`
	}
	type badSchema struct {
		A string `flag:"a" short:"x"`
		B string `flag:"b" short:"x"`
	}

	tests := []struct {
		name string
		fn   func() (*Schema, error)
	}{
		{"not a struct", SchemaOf[int]},
		{"position gap", SchemaOf[gap]},
		{"slice without variadic tag", SchemaOf[sliceNotVariadic]},
		{"variadic not last", SchemaOf[variadicNotLast]},
		{"bad arity", SchemaOf[badArity]},
		{"unsupported type", SchemaOf[badType]},
		{"invalid schema", SchemaOf[badSchema]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.fn(); err == nil {
				t.Errorf("SchemaOf() error = nil, want error")
			}
		})
	}
}

func TestBind(t *testing.T) {
	s, err := SchemaOf[buildFlags]()
	if err != nil {
		t.Fatal(err)
	}
	r, err := Parse([]string{"-vv", "--tag", "x", "y", "--force", "--timeout", "2s", "--jobs", "4", "main.go", "e1", "e2"}, s)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Errors) != 0 {
		t.Fatalf("Errors = %v", r.Errors)
	}

	got, err := Bind[buildFlags](r)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	four := 4
	want := buildFlags{
		Verbose: 2,
		Out:     "a.out",
		Tags:    []string{"x", "y"},
		Timeout: 2 * time.Second,
		Level:   "info",
		Jobs:    &four,
		Force:   true,
		Src:     "main.go",
		Extra:   []string{"e1", "e2"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Bind() = %+v, want %+v", got, want)
	}
}

func TestBindAbsentValues(t *testing.T) {
	got, err := Bind[buildFlags](&Result{Options: map[string]any{}})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, buildFlags{}) {
		t.Errorf("Bind() = %+v, want zero value", got)
	}
}

func TestBindPointerAndURL(t *testing.T) {
	type flags struct {
		Endpoint url.URL  `flag:"endpoint"`
		Proxy    *url.URL `flag:"proxy"`
		Rate     float32  `flag:"rate"`
		Size     uint16   `flag:"size"`
	}
	r := &Result{Options: map[string]any{
		"endpoint": "https://example.com/a",
		"proxy":    "http://proxy:8080",
		"rate":     0.5,
		"size":     512.0,
	}}
	got, err := Bind[*flags](r)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if got.Endpoint.Host != "example.com" || got.Proxy == nil || got.Proxy.Host != "proxy:8080" {
		t.Errorf("URLs = %v, %v", got.Endpoint, got.Proxy)
	}
	if got.Rate != 0.5 || got.Size != 512 {
		t.Errorf("Rate, Size = %v, %v; want 0.5, 512", got.Rate, got.Size)
	}
}

func TestBindFieldError(t *testing.T) {
	type flags struct {
		Port int `flag:"port"`
	}
	_, err := Bind[flags](&Result{Options: map[string]any{"port": "abc"}})
	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("Bind() error = %v, want *FieldError", err)
	}
	if fe.Field != "Port" || fe.Name != "port" || fe.Value != "abc" {
		t.Errorf("FieldError = %+v", fe)
	}
	if !errors.Is(err, strconv.ErrSyntax) {
		t.Errorf("Bind() error = %v, want it to wrap strconv.ErrSyntax", err)
	}
	if fe.Error() != fe.UserMsg {
		t.Errorf("Error() = %q, want UserMsg %q", fe.Error(), fe.UserMsg)
	}
}

func TestBindNotStruct(t *testing.T) {
	if _, err := Bind[string](&Result{}); err == nil {
		t.Errorf("Bind[string]() error = nil, want error")
	}
}
