// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package argv

import (
	"math"
	"strconv"
	"strings"
)

// Cast converts raw into the Go representation of t. Casting never fails:
// unrecognized booleans become false and unparsable numbers become 0.
// Callers that need stricter input checking use ParamSpec.Validate or
// OptionSpec.Choices.
func Cast(raw string, t Type) any {
	switch t {
	case Boolean:
		b, _ := boolWord(raw)
		return b
	case Number:
		return castNumber(raw)
	default:
		return raw
	}
}

// CastAll applies Cast to every element of raw, preserving order. The
// result is a []bool, []float64 or []string; an empty input yields an
// empty, non-nil slice.
func CastAll(raw []string, t Type) any {
	switch t {
	case Boolean:
		out := make([]bool, len(raw))
		for i, r := range raw {
			out[i], _ = boolWord(r)
		}
		return out
	case Number:
		out := make([]float64, len(raw))
		for i, r := range raw {
			out[i] = castNumber(r)
		}
		return out
	default:
		return append(make([]string, 0, len(raw)), raw...)
	}
}

// boolWord reports the boolean a word spells and whether it was recognized.
func boolWord(raw string) (val, ok bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "on", "yes", "1":
		return true, true
	case "false", "off", "no", "0":
		return false, true
	}
	return false, false
}

func castNumber(raw string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// isNumeric checks if a string is a number (e.g., "10", "-10", "3.14", "-3.14").
// Such tokens are never option-like, so negative numbers can be used as
// values and params.
func isNumeric(s string) bool {
	if len(s) == 0 {
		return false
	}

	start := 0
	if s[0] == '-' || s[0] == '+' {
		if len(s) == 1 {
			return false
		}
		start = 1
	}

	hasDigit := false
	hasDot := false
	for i := start; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
			hasDigit = true
		case s[i] == '.':
			if hasDot {
				return false
			}
			hasDot = true
		default:
			return false
		}
	}
	return hasDigit
}

// formatValue renders a scalar value the way it would be typed on a
// command line.
func formatValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	}
	return ""
}

// valueStrings renders a scalar or a cast slice as a list of strings.
func valueStrings(v any) []string {
	switch v := v.(type) {
	case []string:
		return v
	case []float64:
		out := make([]string, len(v))
		for i, f := range v {
			out[i] = formatValue(f)
		}
		return out
	case []bool:
		out := make([]string, len(v))
		for i, b := range v {
			out[i] = formatValue(b)
		}
		return out
	case nil:
		return nil
	}
	return []string{formatValue(v)}
}

// valueLen reports the number of values held by a cast option value.
func valueLen(v any) int {
	switch v := v.(type) {
	case []string:
		return len(v)
	case []float64:
		return len(v)
	case []bool:
		return len(v)
	case nil:
		return 0
	}
	return 1
}

// appendValues appends the cast slice add to the cast slice cur. Both must
// hold the same element type; a mismatched cur is replaced.
func appendValues(cur, add any) any {
	switch add := add.(type) {
	case []string:
		if c, ok := cur.([]string); ok {
			return append(c, add...)
		}
	case []float64:
		if c, ok := cur.([]float64); ok {
			return append(c, add...)
		}
	case []bool:
		if c, ok := cur.([]bool); ok {
			return append(c, add...)
		}
	}
	return add
}
