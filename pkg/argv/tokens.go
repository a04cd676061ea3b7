// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package argv

import (
	"fmt"

	"github.com/google/shlex"
)

// Split breaks a command line into tokens using shell quoting rules.
func Split(line string) ([]string, error) {
	tokens, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("failed to split %q: %w", line, err)
	}
	if tokens == nil {
		tokens = []string{}
	}
	return tokens, nil
}

// ParseString splits line with Split and parses the tokens against s.
func ParseString(line string, s *Schema, opts ...Option) (*Result, error) {
	tokens, err := Split(line)
	if err != nil {
		return nil, err
	}
	return Parse(tokens, s, opts...)
}
