package language

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

var ErrInvalidSetting = errors.New("invalid setting value")

type SettingType int

const (
	Bool SettingType = iota
	Int
	Choice
)

func (t SettingType) String() string {
	switch t {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Choice:
		return "choice"
	default:
		return fmt.Sprintf("SettingType(%d)", int(t))
	}
}

// SettingDefinition is one configurable knob of a formatter.
type SettingDefinition struct {
	Key     string
	Name    string
	Type    SettingType
	Default any
	// Min and Max bound Int settings, both inclusive.
	Min, Max int
	// Choices enumerates the accepted values of Choice settings.
	Choices []string
}

// Validate checks v against the definition and returns it in canonical form: bool, int or string.
// Numbers decoded from TOML or msgpack arrive as int64 or float64, and values typed on a command line arrive as
// strings, so those are converted where the conversion is lossless.
func (d *SettingDefinition) Validate(v any) (any, error) {
	switch d.Type {
	case Bool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return nil, fmt.Errorf("%w: %s expects a boolean, got %q", ErrInvalidSetting, d.Key, b)
			}

			return parsed, nil
		}
	case Int:
		n, ok := toInt(v)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects an integer, got %v", ErrInvalidSetting, d.Key, v)
		}

		if n < d.Min || n > d.Max {
			return nil, fmt.Errorf("%w: %s must be between %d and %d, got %d", ErrInvalidSetting, d.Key, d.Min, d.Max, n)
		}

		return n, nil
	case Choice:
		s, ok := v.(string)
		if !ok || !slices.Contains(d.Choices, s) {
			return nil, fmt.Errorf(
				"%w: %s must be one of [%s], got %v", ErrInvalidSetting, d.Key, strings.Join(d.Choices, ", "), v,
			)
		}

		return s, nil
	}

	return nil, fmt.Errorf("%w: %s expects a %s, got %T", ErrInvalidSetting, d.Key, d.Type, v)
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		if n > math.MaxInt32 {
			return 0, false
		}

		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}

		return int(n), true
	case string:
		parsed, err := strconv.Atoi(n)

		return parsed, err == nil
	default:
		return 0, false
	}
}

// Settings is a resolved {key: value} map for one language.
type Settings map[string]any

// Resolve layers the given value maps over the defaults of d, in order.
// Unknown keys are ignored. Values which fail validation are skipped and reported, leaving the previous layer's value
// in place. The layers themselves are never modified.
func (d *Definition) Resolve(layers ...map[string]any) (Settings, []error) {
	var errs []error

	result := make(Settings, len(d.Settings))
	for _, def := range d.Settings {
		result[def.Key] = def.Default
	}

	for _, layer := range layers {
		for key, value := range layer {
			def, ok := d.Setting(key)
			if !ok {
				continue
			}

			normalized, err := def.Validate(value)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", d.Language, err))

				continue
			}

			result[def.Key] = normalized
		}
	}

	return result, errs
}

// Keys returns the keys of s in lexical order.
func (s Settings) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}
