// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package argv

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		line    string
		want    []string
		wantErr bool
	}{
		{line: `build --out "a b" 'c d'`, want: []string{"build", "--out", "a b", "c d"}},
		{line: `a\ b c`, want: []string{"a b", "c"}},
		{line: "", want: []string{}},
		{line: "   ", want: []string{}},
		{line: `"unterminated`, wantErr: true},
	}
	for _, tt := range tests {
		got, err := Split(tt.line)
		if (err != nil) != tt.wantErr {
			t.Errorf("Split(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Split(%q) = %#v, want %#v", tt.line, got, tt.want)
		}
	}
}

func TestParseString(t *testing.T) {
	r, err := ParseString(`build "my file" --tag "x y" z`, testSchema())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r.Command, []string{"build"}) {
		t.Errorf("Command = %#v, want [build]", r.Command)
	}
	if !reflect.DeepEqual(r.Params, []any{"my file"}) {
		t.Errorf("Params = %#v, want [my file]", r.Params)
	}
	if got := r.Strings("tag"); !reflect.DeepEqual(got, []string{"x y", "z"}) {
		t.Errorf("tag = %#v, want [x y z]", got)
	}

	if _, err := ParseString(`"open`, testSchema()); err == nil {
		t.Errorf("ParseString() error = nil, want split error")
	}
}
