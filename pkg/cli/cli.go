// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/shayne/yargs"
)

type FlagSpec struct {
	ConsumesValue bool
}

type CommandInfo struct {
	Name        string
	Description string
	Usage       string
	Examples    []string
	Hidden      bool
	Aliases     []string
}

type GroupInfo struct {
	Name        string
	Description string
	Commands    map[string]CommandInfo
	Hidden      bool
}

// GlobalFlags are accepted anywhere before "--".
type GlobalFlags struct {
	Schema  string `flag:"schema" short:"s" help:"Schema file (ARGV_SCHEMA); searched upwards from the working directory when unset"`
	Verbose bool   `flag:"verbose" help:"Trace parser decisions to stderr"`
	NoColor bool   `flag:"no-color" help:"Disable colored output (NO_COLOR)"`
}

type ParseFlags struct {
	Output string
	Line   string
	Quiet  bool
}

type FormatFlags struct {
	Line string
	List bool
}

type UsageFlags struct {
	Name string
}

type BatchFlags struct {
	Output string
	Jobs   int
	Stop   bool
}

type SchemaShowFlags struct {
	Format string
}

type VersionFlags struct {
	JSON bool
}

type parseFlagsParsed struct {
	Output string `flag:"output" short:"o" default:"text" help:"Output format (text|json|yaml|toml|env)"`
	Line   string `flag:"line" short:"l" help:"Shell-quoted line to parse instead of the tokens after --"`
	Quiet  bool   `flag:"quiet" short:"q" help:"Print nothing; report problems through the exit status"`
}

type formatFlagsParsed struct {
	Line string `flag:"line" short:"l" help:"Shell-quoted line to format instead of the tokens after --"`
	List bool   `flag:"list" help:"Print one token per line instead of a quoted command line"`
}

type usageFlagsParsed struct {
	Name string `flag:"name" help:"Program name shown in the usage line"`
}

type batchFlagsParsed struct {
	Output string `flag:"output" short:"o" default:"text" help:"Output format (text|json|yaml)"`
	Jobs   int    `flag:"jobs" short:"j" help:"Lines parsed concurrently (default: number of CPUs)"`
	Stop   bool   `flag:"stop" help:"Stop at the first line with problems"`
}

type schemaShowFlagsParsed struct {
	Format string `flag:"format" default:"toml" help:"Output format (toml|yaml|json)"`
}

type versionFlagsParsed struct {
	JSON bool `flag:"json"`
}

const (
	CommandParse   = "parse"
	CommandFormat  = "format"
	CommandUsage   = "usage"
	CommandBatch   = "batch"
	CommandVersion = "version"
	GroupSchema    = "schema"
)

var commandInfos = map[string]CommandInfo{
	CommandParse: {Name: CommandParse, Description: "Parse tokens against the schema and print the result", Usage: "[-o FORMAT] [-q] (-l LINE | [--] TOKENS...)", Examples: []string{
		"argv parse -- build -vv --out dist main.go",
		`argv parse -o json -l 'build --tag "a b" main.go'`,
		`eval "$(argv parse -o env -- "$@")"`,
	}, Aliases: []string{"p"}},
	CommandFormat: {Name: CommandFormat, Description: "Print the canonical token list for the parsed tokens", Usage: "[--list] (-l LINE | [--] TOKENS...)", Examples: []string{
		"argv format -- -vvo dist build main.go",
		"argv format --list -- --tag=a --tag b",
	}, Aliases: []string{"fmt"}},
	CommandUsage: {Name: CommandUsage, Description: "Print help text generated from the schema", Usage: "[--name NAME] [COMMAND]", Examples: []string{
		"argv usage",
		"argv usage --name mytool remote:add",
	}},
	CommandBatch: {Name: CommandBatch, Description: "Parse every line of a file (or stdin) as a separate command line", Usage: "[-o FORMAT] [-j N] [--stop] [FILE]", Examples: []string{
		"argv batch invocations.txt",
		"argv batch -o json -j 4 < invocations.txt",
	}},
	CommandVersion: {Name: CommandVersion, Description: "Show the version of argv"},
}

var groupInfos = map[string]GroupInfo{
	GroupSchema: {
		Name:        GroupSchema,
		Description: "Inspect schema files",
		Commands: map[string]CommandInfo{
			"check": {Name: "check", Description: "Validate the schema file and its version requirement", Usage: "schema check"},
			"show":  {Name: "show", Description: "Print the resolved schema file", Usage: "schema show [--format=toml|yaml|json]"},
			"path":  {Name: "path", Description: "Print the path of the schema file in use", Usage: "schema path"},
		},
	},
}

var flagSpecs = map[string]map[string]FlagSpec{
	CommandParse:   flagSpecsFromStruct(parseFlagsParsed{}),
	CommandFormat:  flagSpecsFromStruct(formatFlagsParsed{}),
	CommandUsage:   flagSpecsFromStruct(usageFlagsParsed{}),
	CommandBatch:   flagSpecsFromStruct(batchFlagsParsed{}),
	CommandVersion: flagSpecsFromStruct(versionFlagsParsed{}),
}

var globalFlagSpecs = flagSpecsFromStruct(GlobalFlags{})

func GroupInfos() map[string]GroupInfo {
	return groupInfos
}

// FlagSpecs returns the flags accepted by command, including the global
// flags.
func FlagSpecs(command string) map[string]FlagSpec {
	specs := make(map[string]FlagSpec, len(flagSpecs[command])+len(globalFlagSpecs))
	for k, v := range globalFlagSpecs {
		specs[k] = v
	}
	for k, v := range flagSpecs[command] {
		specs[k] = v
	}
	return specs
}

// HelpConfig builds the yargs help metadata for the argv command.
func HelpConfig(version string) yargs.HelpConfig {
	subcommands := make(map[string]yargs.SubCommandInfo, len(commandInfos))
	for name, info := range commandInfos {
		subcommands[name] = toSubCommandInfo(name, info)
	}
	groups := make(map[string]yargs.GroupInfo, len(groupInfos))
	for name, info := range groupInfos {
		commands := make(map[string]yargs.SubCommandInfo, len(info.Commands))
		for sub, cmd := range info.Commands {
			commands[sub] = toSubCommandInfo(sub, cmd)
		}
		groups[name] = yargs.GroupInfo{
			Name:        info.Name,
			Description: info.Description,
			Commands:    commands,
			Hidden:      info.Hidden,
		}
	}
	return yargs.HelpConfig{
		Command: yargs.CommandInfo{
			Name:        "argv",
			Description: fmt.Sprintf("Parse command lines against a declarative schema (v%s).", version),
			Examples: []string{
				"argv parse -- build -vv main.go",
				"argv usage",
				"argv schema check",
			},
		},
		SubCommands: subcommands,
		Groups:      groups,
	}
}

func toSubCommandInfo(name string, info CommandInfo) yargs.SubCommandInfo {
	return yargs.SubCommandInfo{
		Name:        name,
		Description: info.Description,
		Usage:       info.Usage,
		Examples:    info.Examples,
		Hidden:      info.Hidden,
		Aliases:     info.Aliases,
	}
}

// ParseGlobal removes the global flags from args. Arguments after "--" are
// left untouched.
func ParseGlobal(args []string) (GlobalFlags, []string, error) {
	result, err := yargs.ParseKnownFlags[GlobalFlags](args, yargs.KnownFlagsOptions{})
	if err != nil {
		return GlobalFlags{}, nil, err
	}
	return result.Flags, result.RemainingArgs, nil
}

// SplitTokens separates the tool's own arguments from the tokens to be
// parsed, which follow the first "--". ok reports whether "--" was present.
func SplitTokens(args []string) (own, tokens []string, ok bool) {
	i := slices.Index(args, "--")
	if i < 0 {
		return args, nil, false
	}
	own, tokens = splitArgsAtDoubleDash(args)
	if tokens == nil {
		tokens = []string{}
	}
	return own, tokens, true
}

// SplitBareTokens separates the tool's own arguments from tokens given
// without "--". Only parse and format take tokens; for them the first
// argument after the command that is not one of its flags starts the
// tokens, so global flags among the tokens are left alone.
func SplitBareTokens(args []string) (own, tokens []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") && arg != "-" {
			name, _, inline := strings.Cut(arg, "=")
			if spec, ok := globalFlagSpecs[name]; ok && spec.ConsumesValue && !inline {
				i++
			}
			continue
		}
		cmd := commandFor(arg)
		if cmd != CommandParse && cmd != CommandFormat {
			return args, nil
		}
		flags, rest := splitArgsForParsing(args[i+1:], FlagSpecs(cmd))
		own = append(slices.Clone(args[:i+1]), flags...)
		return own, rest
	}
	return args, nil
}

// commandFor resolves an alias to its command name.
func commandFor(name string) string {
	for cmd, info := range commandInfos {
		if cmd == name || slices.Contains(info.Aliases, name) {
			return cmd
		}
	}
	return name
}

// ParseParse reads the parse command's flags. The first argument that is
// not one of its flags starts the tokens.
func ParseParse(args []string) (ParseFlags, []string, error) {
	parseArgs, extraArgs := splitArgsForParsing(stripCommand(args, CommandParse), FlagSpecs(CommandParse))
	parsed, err := parseFlags[parseFlagsParsed](parseArgs)
	if err != nil {
		return ParseFlags{}, nil, err
	}
	if err := checkOutput(parsed.Flags.Output, outputFormats); err != nil {
		return ParseFlags{}, nil, err
	}
	flags := ParseFlags{
		Output: parsed.Flags.Output,
		Line:   parsed.Flags.Line,
		Quiet:  parsed.Flags.Quiet,
	}
	argsOut := append(parsed.Args, extraArgs...)
	return flags, argsOut, nil
}

func ParseFormat(args []string) (FormatFlags, []string, error) {
	parseArgs, extraArgs := splitArgsForParsing(stripCommand(args, CommandFormat), FlagSpecs(CommandFormat))
	parsed, err := parseFlags[formatFlagsParsed](parseArgs)
	if err != nil {
		return FormatFlags{}, nil, err
	}
	flags := FormatFlags{
		Line: parsed.Flags.Line,
		List: parsed.Flags.List,
	}
	argsOut := append(parsed.Args, extraArgs...)
	return flags, argsOut, nil
}

func ParseUsage(args []string) (UsageFlags, []string, error) {
	parsed, err := parseFlags[usageFlagsParsed](stripCommand(args, CommandUsage))
	if err != nil {
		return UsageFlags{}, nil, err
	}
	return UsageFlags{Name: parsed.Flags.Name}, parsed.Args, nil
}

func ParseBatch(args []string) (BatchFlags, []string, error) {
	parsed, err := parseFlags[batchFlagsParsed](stripCommand(args, CommandBatch))
	if err != nil {
		return BatchFlags{}, nil, err
	}
	if err := checkOutput(parsed.Flags.Output, batchOutputFormats); err != nil {
		return BatchFlags{}, nil, err
	}
	if parsed.Flags.Jobs < 0 {
		return BatchFlags{}, nil, fmt.Errorf("--jobs must not be negative, got %d", parsed.Flags.Jobs)
	}
	flags := BatchFlags{
		Output: parsed.Flags.Output,
		Jobs:   parsed.Flags.Jobs,
		Stop:   parsed.Flags.Stop,
	}
	return flags, parsed.Args, nil
}

func ParseSchemaShow(args []string) (SchemaShowFlags, []string, error) {
	parsed, err := parseFlags[schemaShowFlagsParsed](stripCommand(args, "show"))
	if err != nil {
		return SchemaShowFlags{}, nil, err
	}
	switch parsed.Flags.Format {
	case "toml", "yaml", "json":
	default:
		return SchemaShowFlags{}, nil, fmt.Errorf("invalid --format %q (want toml, yaml or json)", parsed.Flags.Format)
	}
	return SchemaShowFlags{Format: parsed.Flags.Format}, parsed.Args, nil
}

func ParseVersion(args []string) (VersionFlags, []string, error) {
	parsed, err := parseFlags[versionFlagsParsed](stripCommand(args, CommandVersion))
	if err != nil {
		return VersionFlags{}, nil, err
	}
	return VersionFlags{JSON: parsed.Flags.JSON}, parsed.Args, nil
}

var (
	outputFormats      = []string{"text", "json", "yaml", "toml", "env"}
	batchOutputFormats = []string{"text", "json", "yaml"}
)

func checkOutput(format string, allowed []string) error {
	if slices.Contains(allowed, format) {
		return nil
	}
	return fmt.Errorf("invalid --output %q (want one of %s)", format, strings.Join(allowed, ", "))
}

// stripCommand drops the command name the dispatcher leaves at the front
// of args. Aliases have already been rewritten to the full name.
func stripCommand(args []string, name string) []string {
	if len(args) > 0 && args[0] == name {
		return args[1:]
	}
	return args
}

type parsedFlags[T any] struct {
	Flags T
	Args  []string
}

func parseFlags[T any](args []string) (parsedFlags[T], error) {
	result, err := yargs.ParseFlags[T](args)
	if err != nil {
		return parsedFlags[T]{}, err
	}
	argsOut := append([]string{}, result.Args...)
	if len(result.RemainingArgs) > 0 {
		argsOut = append(argsOut, result.RemainingArgs...)
	}
	return parsedFlags[T]{Flags: result.Flags, Args: argsOut}, nil
}

func splitArgsAtDoubleDash(args []string) ([]string, []string) {
	for i, arg := range args {
		if arg == "--" {
			if i+1 < len(args) {
				return args[:i], args[i+1:]
			}
			return args[:i], nil
		}
	}
	return args, nil
}

// splitArgsForParsing returns the leading args made of known flags, and
// everything from the first plain word or unknown flag on.
func splitArgsForParsing(args []string, specs map[string]FlagSpec) ([]string, []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			if i+1 < len(args) {
				return args[:i], args[i+1:]
			}
			return args[:i], nil
		}
		if strings.HasPrefix(arg, "--") && len(arg) > 2 {
			name, _, inline := strings.Cut(arg, "=")
			spec, ok := specs[name]
			if !ok {
				return args[:i], args[i:]
			}
			if spec.ConsumesValue && !inline {
				i++
			}
			continue
		}
		if strings.HasPrefix(arg, "-") && arg != "-" {
			if isNumber(arg) {
				return args[:i], args[i:]
			}
			if name, _, inline := strings.Cut(arg, "="); inline {
				if _, ok := specs[name]; ok {
					continue
				}
				return args[:i], args[i:]
			}
			if len(arg) == 2 {
				spec, ok := specs[arg]
				if !ok {
					return args[:i], args[i:]
				}
				if spec.ConsumesValue {
					i++
				}
				continue
			}
			if _, ok := specs["-"+string(arg[1])]; !ok {
				return args[:i], args[i:]
			}
			continue
		}
		return args[:i], args[i:]
	}
	return args, nil
}

func isNumber(arg string) bool {
	_, err := strconv.ParseFloat(arg, 64)
	return err == nil
}

func flagSpecsFromStruct(v any) map[string]FlagSpec {
	specs := make(map[string]FlagSpec)
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return specs
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Tag.Get("flag")
		if name == "" {
			name = strings.ToLower(field.Name)
		}
		spec := FlagSpec{ConsumesValue: consumesValue(field.Type)}
		specs["--"+name] = spec
		if short := field.Tag.Get("short"); short != "" {
			specs["-"+short] = spec
		}
	}
	return specs
}

func consumesValue(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() != reflect.Bool
}

func RequireArgsAtMost(subcmd string, args []string, count int) error {
	if len(args) > count {
		return fmt.Errorf("'%s' takes at most %d argument(s), got %d", subcmd, count, len(args))
	}
	return nil
}
