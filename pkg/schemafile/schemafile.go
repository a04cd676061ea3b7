// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package schemafile loads argv schemas from TOML, YAML or JSON files.
package schemafile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"github.com/yeetrun/argv/pkg/argv"
	"github.com/yeetrun/argv/pkg/report"
	"gopkg.in/yaml.v3"
)

// Version is the newest schema file format this package understands.
const Version = 1

// Names lists the file names Find looks for, in order of preference.
var Names = []string{"argv.toml", "argv.yaml", "argv.yml", "argv.json"}

var (
	ErrUnsupportedVersion = errors.New("unsupported schema file version")
	ErrIncompatible       = errors.New("schema file requires a different tool version")
	ErrUnknownFormat      = errors.New("unknown schema file format")
)

// File is the on-disk schema envelope.
type File struct {
	Version     int    `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	Requires    string `json:"requires,omitempty" yaml:"requires,omitempty" toml:"requires,omitempty"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`

	Commands []string                    `json:"commands,omitempty" yaml:"commands,omitempty" toml:"commands,omitempty"`
	Options  map[string]*argv.OptionSpec `json:"options,omitempty" yaml:"options,omitempty" toml:"options,omitempty"`
	Params   []*argv.ParamSpec           `json:"params,omitempty" yaml:"params,omitempty" toml:"params,omitempty"`
	Unknown  bool                        `json:"unknown,omitempty" yaml:"unknown,omitempty" toml:"unknown,omitempty"`
	Variadic bool                        `json:"variadic,omitempty" yaml:"variadic,omitempty" toml:"variadic,omitempty"`

	// Subcommands maps command paths ("remote", "remote:add") to the
	// schema used once that path has been read.
	Subcommands map[string]*argv.Schema `json:"subcommands,omitempty" yaml:"subcommands,omitempty" toml:"subcommands,omitempty"`

	// Path is where the file was loaded from, if anywhere.
	Path string `json:"-" yaml:"-" toml:"-"`
}

// Find walks up from startDir and returns the path of the first schema
// file found. It returns an error wrapping os.ErrNotExist when there is
// none.
func Find(startDir string) (string, error) {
	dir := filepath.Clean(startDir)
	for {
		for _, name := range Names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			} else if !os.IsNotExist(err) {
				return "", err
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("no %s found from %s: %w", strings.Join(Names, ", "), startDir, os.ErrNotExist)
}

// Load reads and decodes the schema file at path. The format follows the
// file extension.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Decode(data, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// LoadFromDir finds the nearest schema file above dir and loads it.
func LoadFromDir(dir string) (*File, error) {
	path, err := Find(dir)
	if err != nil {
		return nil, err
	}
	return Load(path)
}

func formatOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// Decode parses data as "toml", "yaml"/"yml" or "json". Unknown keys are
// rejected so typos in option attributes do not go unnoticed.
func Decode(data []byte, format string) (*File, error) {
	var f File
	switch format {
	case "toml":
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, err
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if f.Version == 0 {
		f.Version = Version
	}
	return &f, nil
}

// Schema returns the root schema described by f.
func (f *File) Schema() *argv.Schema {
	return &argv.Schema{
		Commands: f.Commands,
		Options:  f.Options,
		Params:   f.Params,
		Unknown:  f.Unknown,
		Variadic: f.Variadic,
	}
}

// Selector returns a selector for argv.ParseInContext over the root schema
// and the subcommand schemas.
func (f *File) Selector() argv.Selector {
	root := f.Schema()
	return func(path string) *argv.Schema {
		if path == "" {
			return root
		}
		return f.Subcommands[path]
	}
}

// HasSubcommands reports whether f declares per-command schemas.
func (f *File) HasSubcommands() bool {
	return len(f.Subcommands) > 0
}

// Parse parses tokens with f, dispatching through the subcommand schemas
// when f has any.
func (f *File) Parse(tokens []string, opts ...argv.Option) (*argv.Result, error) {
	if f.HasSubcommands() {
		return argv.ParseInContext(tokens, f.Selector(), opts...)
	}
	return argv.Parse(tokens, f.Schema(), opts...)
}

// SubcommandPaths returns the declared subcommand paths, sorted.
func (f *File) SubcommandPaths() []string {
	paths := make([]string, 0, len(f.Subcommands))
	for p := range f.Subcommands {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

func optionNames(opts map[string]*argv.OptionSpec) []string {
	names := make([]string, 0, len(opts))
	for name := range opts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Check verifies that f can be used by a tool at toolVersion: the format
// version is known, the requires constraint (if any) is satisfied, and
// every schema in the file is valid. An empty toolVersion skips the
// requires check.
func (f *File) Check(toolVersion string) error {
	if f.Version > Version {
		return fmt.Errorf("%w: %d (newest supported is %d)", ErrUnsupportedVersion, f.Version, Version)
	}
	if f.Requires != "" {
		c, err := semver.NewConstraint(f.Requires)
		if err != nil {
			return fmt.Errorf("invalid requires %q: %w", f.Requires, err)
		}
		if toolVersion != "" {
			v, err := semver.NewVersion(toolVersion)
			if err != nil {
				return fmt.Errorf("invalid tool version %q: %w", toolVersion, err)
			}
			if !c.Check(v) {
				return fmt.Errorf("%w: needs %s, have %s", ErrIncompatible, f.Requires, v)
			}
		}
	}
	if err := f.Schema().Validate(); err != nil {
		return err
	}
	if err := report.CheckEnvNames(optionNames(f.Options)); err != nil {
		return err
	}
	for _, path := range f.SubcommandPaths() {
		if err := (&argv.Schema{Commands: []string{path}}).Validate(); err != nil {
			return fmt.Errorf("subcommand %q: %w", path, err)
		}
		s := f.Subcommands[path]
		if err := s.Validate(); err != nil {
			return fmt.Errorf("subcommand %q: %w", path, err)
		}
		if s == nil {
			continue
		}
		if err := report.CheckEnvNames(optionNames(s.Options)); err != nil {
			return fmt.Errorf("subcommand %q: %w", path, err)
		}
	}
	return nil
}
