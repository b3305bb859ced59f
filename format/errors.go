package format

import (
	"errors"
	"fmt"
)

// Category is the user facing classification of a formatting failure.
type Category int

const (
	CategoryNone Category = iota
	CategoryNoInput
	CategoryUnconfiguredLanguage
	CategoryRuntimeRequired
	CategoryMissingPackage
	CategoryProcessLaunchFailure
	CategoryProcessTimeout
	CategoryFormatterReportedError
	CategoryUnknown
)

var (
	ErrNoInput                = errors.New("no input")
	ErrUnconfiguredLanguage   = errors.New("unconfigured language")
	ErrRuntimeRequired        = errors.New("runtime required")
	ErrMissingPackage         = errors.New("missing package")
	ErrProcessLaunchFailure   = errors.New("process launch failure")
	ErrProcessTimeout         = errors.New("process timeout")
	ErrFormatterReportedError = errors.New("formatter reported error")
	ErrUnknown                = errors.New("unknown formatting failure")
)

var categories = map[Category]struct {
	name     string
	sentinel error
}{
	CategoryNone:                   {"None", nil},
	CategoryNoInput:                {"NoInput", ErrNoInput},
	CategoryUnconfiguredLanguage:   {"UnconfiguredLanguage", ErrUnconfiguredLanguage},
	CategoryRuntimeRequired:        {"RuntimeRequired", ErrRuntimeRequired},
	CategoryMissingPackage:         {"MissingPackage", ErrMissingPackage},
	CategoryProcessLaunchFailure:   {"ProcessLaunchFailure", ErrProcessLaunchFailure},
	CategoryProcessTimeout:         {"ProcessTimeout", ErrProcessTimeout},
	CategoryFormatterReportedError: {"FormatterReportedError", ErrFormatterReportedError},
	CategoryUnknown:                {"Unknown", ErrUnknown},
}

func (c Category) String() string {
	if info, ok := categories[c]; ok {
		return info.name
	}

	return fmt.Sprintf("Category(%d)", int(c))
}

// Error is the error form of a failed Result. It unwraps to the sentinel of its Category.
type Error struct {
	Category Category
	Message  string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	if info, ok := categories[e.Category]; ok && info.sentinel != nil {
		return info.sentinel
	}

	return ErrUnknown
}

// Result is the outcome of formatting one block of code.
type Result struct {
	Success bool
	// Output is the formatted code. Only set on success.
	Output string
	// Stderr is whatever the formatter wrote to its standard error, kept on success so warnings can be shown.
	Stderr string

	Category Category
	// Message is a human readable description of the failure.
	Message string
}

// Err returns nil for a successful Result and an *Error otherwise.
func (r Result) Err() error {
	if r.Success {
		return nil
	}

	return &Error{Category: r.Category, Message: r.Message}
}

func failed(category Category, format string, args ...any) Result {
	return Result{Category: category, Message: fmt.Sprintf(format, args...)}
}
