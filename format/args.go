package format

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/routefmt/routefmt/config"
	"github.com/routefmt/routefmt/language"
	"mvdan.cc/sh/v3/syntax"
)

// BuildArgs returns the argument vector for entry with settings applied according to the entry's dialect.
// Neither entry nor settings are modified. Settings are applied in key order so the result is deterministic.
func BuildArgs(entry *config.Formatter, settings language.Settings) []string {
	args := slices.Clone(entry.Options)
	if args == nil {
		args = []string{}
	}

	keys := settings.Keys()
	dialect := entry.Dialect

	switch dialect.Kind {
	case language.Inline:
		// settings are persisted but the tool offers no way of passing them
	case language.DirectFlag:
		args = appendDirectFlags(args, dialect, settings, keys)
	case language.PrefixCommand:
		args = appendToPrefixCommand(args, dialect, settings, keys)
	case language.RegexSubstitution:
		args = substitute(args, dialect, settings)
	case language.SimpleAppend:
		args = appendSimple(args, dialect, settings, keys)
	}

	return args
}

// appendDirectFlags emits the top level setting as --key=value, followed by --config section.key=value for the rest.
func appendDirectFlags(args []string, d language.Dialect, settings language.Settings, keys []string) []string {
	if v, ok := settings[d.TopLevel]; ok && d.TopLevel != "" {
		args = append(args, fmt.Sprintf("--%s=%s", d.TopLevel, plain(v)))
	}

	for _, key := range keys {
		if key == d.TopLevel {
			continue
		}

		name := key
		if d.Section != "" {
			name = d.Section + "." + key
		}

		args = append(args, "--config", fmt.Sprintf("%s=%s", name, tomlValue(settings[key])))
	}

	return args
}

// appendToPrefixCommand extends the token holding the shell command line of the tool, converting keys to kebab case.
// When no token contains the marker the arguments are returned unchanged.
func appendToPrefixCommand(args []string, d language.Dialect, settings language.Settings, keys []string) []string {
	idx := slices.IndexFunc(args, func(arg string) bool {
		return d.Marker != "" && strings.Contains(arg, d.Marker)
	})
	if idx < 0 {
		return args
	}

	var sb strings.Builder

	sb.WriteString(args[idx])

	for _, key := range keys {
		flag := kebabCase(key)

		switch v := settings[key].(type) {
		case bool:
			if v {
				fmt.Fprintf(&sb, " --%s", flag)
			} else {
				fmt.Fprintf(&sb, " --no-%s", flag)
			}
		default:
			fmt.Fprintf(&sb, " --%s %s", flag, shellQuote(plain(v)))
		}
	}

	args[idx] = sb.String()

	return args
}

// substitute rewrites every occurrence of the dialect's pattern with the value of its key.
func substitute(args []string, d language.Dialect, settings language.Settings) []string {
	v, ok := settings[d.Key]
	if !ok || d.Pattern == nil {
		return args
	}

	replacement := strings.ReplaceAll(d.Replacement, "{value}", plain(v))

	for i, arg := range args {
		args[i] = d.Pattern.ReplaceAllLiteralString(arg, replacement)
	}

	return args
}

// appendSimple appends the fixed flag of each setting: bools as a bare flag when true, everything else as flag value.
func appendSimple(args []string, d language.Dialect, settings language.Settings, keys []string) []string {
	for _, key := range keys {
		flag, ok := d.Flags[key]
		if !ok {
			continue
		}

		switch v := settings[key].(type) {
		case bool:
			if v {
				args = append(args, flag)
			}
		default:
			args = append(args, flag, plain(v))
		}
	}

	return args
}

// replaceTool swaps the tool at the start of the command line which launches it for path.
func replaceTool(args []string, tool string, path string) []string {
	for i, arg := range args {
		if rest, ok := strings.CutPrefix(arg, tool); ok && (rest == "" || rest[0] == ' ') {
			args[i] = shellQuote(path) + rest

			break
		}
	}

	return args
}

func plain(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}

// tomlValue renders v the way it would be written in a TOML document, i.e. strings are double-quoted.
func tomlValue(v any) string {
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}

	return plain(v)
}

func shellQuote(s string) string {
	quoted, err := syntax.Quote(s, syntax.LangPOSIX)
	if err != nil {
		// only fails for strings which cannot be represented, e.g. with NUL bytes
		return strconv.Quote(s)
	}

	return quoted
}

// kebabCase converts printWidth into print-width.
func kebabCase(s string) string {
	var sb strings.Builder

	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('-')
			}

			r = unicode.ToLower(r)
		}

		sb.WriteRune(r)
	}

	return sb.String()
}
