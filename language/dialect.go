package language

import (
	"fmt"
	"regexp"
)

// DialectKind identifies how a formatter expects settings to be expressed on its command line.
type DialectKind int

const (
	// Inline formatters accept no ad-hoc overrides. Their settings are kept for persistence only.
	Inline DialectKind = iota
	// DirectFlag emits one distinguished setting as a top level flag and every other setting as a
	// "--config section.key=value" override.
	DirectFlag
	// PrefixCommand appends translated flags to the option token which embeds the formatter's full invocation.
	PrefixCommand
	// RegexSubstitution rewrites a single option in place inside the templated options.
	RegexSubstitution
	// SimpleAppend appends a fixed flag per setting with no translation of the key.
	SimpleAppend
)

func (k DialectKind) String() string {
	switch k {
	case Inline:
		return "inline"
	case DirectFlag:
		return "direct-flag"
	case PrefixCommand:
		return "prefix-command"
	case RegexSubstitution:
		return "regex-substitution"
	case SimpleAppend:
		return "simple-append"
	default:
		return fmt.Sprintf("DialectKind(%d)", int(k))
	}
}

// Dialect carries the parameters the argument synthesizer needs for a given DialectKind.
type Dialect struct {
	Kind DialectKind

	// DirectFlag
	TopLevel string
	Section  string

	// PrefixCommand
	Marker string

	// RegexSubstitution. The literal "{value}" in Replacement is replaced with the value of Key.
	Key         string
	Pattern     *regexp.Regexp
	Replacement string

	// SimpleAppend, by setting key.
	Flags map[string]string
}
