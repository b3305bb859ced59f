package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/routefmt/routefmt/language"
)

var (
	ErrMissingPlaceholder = fmt.Errorf("temp file formatters must reference %s in their options", language.FilePlaceholder)
	ErrInvalidTransport   = errors.New("transport must be one of <stdin|tempfile>")
)

// Formatter describes how to invoke one tool for one language.
type Formatter struct {
	// Command is the logical name of the executable, resolved against custom paths, bundled binaries and PATH.
	Command string `mapstructure:"command" toml:"command,omitempty"`
	// Tool names the formatter Command wraps. Its custom path, if any, replaces the tool at the start of the options.
	Tool string `mapstructure:"tool" toml:"tool,omitempty"`
	// Options is the argument template. TempFile formatters reference the scratch file with {file}.
	Options []string `mapstructure:"options" toml:"options,omitempty"`
	// Transport is either stdin or tempfile. Defaults to stdin.
	Transport language.Transport `mapstructure:"transport" toml:"transport,omitempty"`
	// Extension given to the scratch file of TempFile formatters. Defaults to the language's extension.
	Extension string `mapstructure:"extension" toml:"extension,omitempty"`
	// RequiresRuntime indicates the formatter is launched through the external scripting runtime.
	RequiresRuntime bool `mapstructure:"requires-runtime" toml:"requires-runtime,omitempty"`
	// Packages which must be present in the runtime's global package root.
	Packages []string `mapstructure:"packages" toml:"packages,omitempty"`
	// StrictExitCode disables the "usable output means success" heuristic for this formatter.
	StrictExitCode bool `mapstructure:"strict-exit-code" toml:"strict-exit-code,omitempty"`
	// Includes are glob patterns used to detect the language from a path.
	Includes []string `mapstructure:"includes" toml:"includes,omitempty"`
	// Disabled removes the formatter, leaving the language unconfigured.
	Disabled bool `mapstructure:"disabled" toml:"disabled,omitempty"`

	// Dialect is taken from the built-in definition and cannot be configured.
	Dialect language.Dialect `mapstructure:"-" toml:"-"`
}

// Clone returns a deep copy of f, so callers cannot alter the configured templates.
func (f *Formatter) Clone() *Formatter {
	c := *f
	c.Options = slices.Clone(f.Options)
	c.Packages = slices.Clone(f.Packages)
	c.Includes = slices.Clone(f.Includes)

	return &c
}

// Name is the formatter the entry ultimately runs.
func (f *Formatter) Name() string {
	if f.Tool != "" {
		return f.Tool
	}

	return f.Command
}

// Validate checks the invariants of an entry.
func (f *Formatter) Validate() error {
	if f.Command == "" {
		return errors.New("command must not be empty")
	}

	if !f.Transport.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTransport, f.Transport)
	}

	if f.Transport == language.TempFile &&
		!slices.ContainsFunc(f.Options, func(opt string) bool { return strings.Contains(opt, language.FilePlaceholder) }) {
		return ErrMissingPlaceholder
	}

	return nil
}

// builtinFormatter creates the default entry for a language from its built-in definition.
func builtinFormatter(def *language.Definition) *Formatter {
	return &Formatter{
		Command:         def.Command,
		Tool:            def.Tool,
		Options:         slices.Clone(def.Options),
		Transport:       def.Transport,
		Extension:       def.Extension,
		RequiresRuntime: def.RequiresRuntime,
		Packages:        slices.Clone(def.Packages),
		StrictExitCode:  def.StrictExitCode,
		Includes:        slices.Clone(def.Includes),
		Dialect:         def.Dialect,
	}
}

// merge applies a user supplied entry on top of the built-in one.
// An override with a command replaces the entry as a whole: the built-in dialect is only kept when the command is
// unchanged, since there is no way to know how an arbitrary tool expects its settings. Without a command, only options,
// includes and the exit code policy are taken from the override.
func merge(def *language.Definition, base *Formatter, override *Formatter) *Formatter {
	if override.Disabled {
		return nil
	}

	result := base.Clone()

	if override.Command != "" {
		result = override.Clone()

		if result.Transport == "" {
			result.Transport = language.Stdin
		}

		if result.Extension == "" {
			result.Extension = def.Extension
		}

		if len(result.Includes) == 0 {
			result.Includes = slices.Clone(def.Includes)
		}

		if result.Command == def.Command {
			result.Dialect = def.Dialect

			if result.Tool == "" {
				result.Tool = def.Tool
			}
		} else {
			result.Dialect = language.Dialect{Kind: language.Inline}
		}

		return result
	}

	if override.Options != nil {
		result.Options = slices.Clone(override.Options)
	}

	if len(override.Includes) > 0 {
		result.Includes = slices.Clone(override.Includes)
	}

	// tools known to print partial output on failure stay strict
	result.StrictExitCode = result.StrictExitCode || override.StrictExitCode

	return result
}
