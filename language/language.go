// Package language describes the closed set of source languages routefmt knows how to format, together with the
// formatter each one is routed to by default and the settings that formatter exposes.
package language

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrUnknownLanguage = errors.New("unknown language")

// Language is the stable identifier of a supported source language.
type Language string

const (
	Python     Language = "python"
	Go         Language = "go"
	Shell      Language = "shell"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	CSS        Language = "css"
	HTML       Language = "html"
	JSON       Language = "json"
	YAML       Language = "yaml"
	Markdown   Language = "markdown"
	SQL        Language = "sql"
	Rust       Language = "rust"
	XML        Language = "xml"
	PHP        Language = "php"
	Kotlin     Language = "kotlin"
)

// Transport is the way code travels to and from a formatter.
type Transport string

const (
	// Stdin pipes the code into the formatter and reads the result from its standard output.
	Stdin Transport = "stdin"
	// TempFile writes the code to a scratch file, passes its path to the formatter and reads the file back.
	TempFile Transport = "tempfile"
)

func (t Transport) Valid() bool {
	return t == Stdin || t == TempFile
}

// FilePlaceholder is substituted with the scratch file path in the options of TempFile formatters.
const FilePlaceholder = "{file}"

// Definition is the built-in description of a language and the formatter it is routed to.
type Definition struct {
	Language  Language
	Name      string
	Extension string
	// Includes are glob patterns used to detect the language from a path.
	Includes []string

	// Command is the logical name of the formatter executable.
	Command string
	// Tool is the formatter Command launches when Command is only a wrapper, such as a shell.
	Tool string
	// Options is the argument template passed to Command.
	Options   []string
	Transport Transport
	// RequiresRuntime marks formatters which are launched through an external scripting runtime.
	RequiresRuntime bool
	// Packages that must be installed into the runtime's global package root.
	Packages []string
	// StrictExitCode marks formatters which print partial output before failing, so only exit code 0 is success.
	StrictExitCode bool

	Dialect  Dialect
	Settings []SettingDefinition
}

// Setting returns the definition for key, if the language exposes one.
// Keys are matched case-insensitively since viper lowercases every key it reads.
func (d *Definition) Setting(key string) (*SettingDefinition, bool) {
	for i := range d.Settings {
		if strings.EqualFold(d.Settings[i].Key, key) {
			return &d.Settings[i], true
		}
	}

	return nil, false
}

func (l Language) String() string {
	return string(l)
}

// Definition returns the built-in definition of l, or nil if l is not a supported language.
func (l Language) Definition() *Definition {
	return definitions[l]
}

func (l Language) Valid() bool {
	_, ok := definitions[l]

	return ok
}

// Parse maps an identifier, display name or file extension onto a Language.
func Parse(s string) (Language, error) {
	needle := strings.ToLower(strings.TrimSpace(s))

	if l := Language(needle); l.Valid() {
		return l, nil
	}

	for _, l := range All() {
		def := definitions[l]
		if strings.ToLower(def.Name) == needle || strings.TrimPrefix(def.Extension, ".") == strings.TrimPrefix(needle, ".") {
			return l, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, s)
}

// All returns every supported language in lexical order.
func All() []Language {
	result := make([]Language, 0, len(definitions))
	for l := range definitions {
		result = append(result, l)
	}

	slices.Sort(result)

	return result
}
