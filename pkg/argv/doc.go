// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package argv parses command-line tokens against a declarative schema.
//
// A Schema names the recognized commands, long options and positional
// params. Parse scans the tokens once, left to right, and returns a Result
// holding the command path, typed option values, params and the tokens
// after "--". Problems in the input never abort the scan; they are
// collected in Result.Errors, parse issues first.
//
// # Basic Usage
//
//	s := &argv.Schema{
//	    Commands: []string{"build", "remote:add"},
//	    Options: map[string]*argv.OptionSpec{
//	        "verbose": {Type: argv.Number, Count: true, Short: "v"},
//	        "color":   {Type: argv.Boolean, Default: true},
//	        "tag":     {Type: argv.String, Multiple: true},
//	    },
//	    Params: []*argv.ParamSpec{{Label: "TARGET", Required: true}},
//	}
//
//	res, err := argv.Parse(os.Args[1:], s)
//	if err != nil {
//	    log.Fatal(err) // the schema itself is broken
//	}
//	if err := res.Err(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Token Syntax
//
//   - Boolean options: --color, --no-color, -c
//   - Options with values: --out file, --out=file, -o file
//   - Multiple options capture every following plain token: --tag a b c
//   - Short groups of booleans and counters: -vvv, -abc
//   - Negative numbers are values, not options: --offset -5
//   - "--" ends option parsing; later tokens land in Result.Rest verbatim
//
// # Values
//
// Booleans are bool, numbers float64 and strings string. Multiple options
// hold []bool, []float64 or []string. Casting is lenient: an unrecognized
// boolean word is false and an unparsable number is 0.
//
// # Subcommands
//
// ParseInContext picks the schema from the leading command words through
// a Selector, so each subcommand can declare its own options.
//
// # Struct Binding
//
// SchemaOf builds a Schema from struct tags and Bind decodes a Result into
// that struct:
//
//	type Flags struct {
//	    Verbose int    `flag:"verbose" short:"v" count:"true"`
//	    Out     string `flag:"out" short:"o" default:"a.out"`
//	    Src     string `pos:"0"`
//	}
//
// Format is the inverse of Parse: it renders a Result as tokens that parse
// back to the same options, params and rest.
package argv
