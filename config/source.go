package config

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/routefmt/routefmt/language"
)

// SavedSettings provides the settings a user has edited and persisted.
type SavedSettings interface {
	Load(lang language.Language) (map[string]any, error)
}

// Source answers the engine's configuration lookups from a Config and, optionally, saved user settings.
// It is read-only and safe for concurrent use.
type Source struct {
	cfg   *Config
	saved SavedSettings
	log   *log.Logger
}

// NewSource creates a Source. saved may be nil.
func NewSource(cfg *Config, saved SavedSettings) *Source {
	return &Source{
		cfg:   cfg,
		saved: saved,
		log:   log.WithPrefix("config"),
	}
}

// FormatterEntry returns a copy of the entry configured for lang.
func (s *Source) FormatterEntry(lang language.Language) (*Formatter, bool) {
	entry, ok := s.cfg.Formatters[lang]
	if !ok {
		return nil, false
	}

	return entry.Clone(), true
}

// SettingsWithDefaults resolves the settings of lang: built-in defaults, then the config file, then saved values.
// Invalid values are logged and skipped.
func (s *Source) SettingsWithDefaults(lang language.Language) language.Settings {
	def := lang.Definition()
	if def == nil {
		return language.Settings{}
	}

	layers := []map[string]any{s.cfg.SettingsFor(lang)}

	if s.saved != nil {
		saved, err := s.saved.Load(lang)
		if err != nil {
			s.log.Warnf("ignoring saved settings: %v", err)
		} else {
			layers = append(layers, saved)
		}
	}

	settings, errs := def.Resolve(layers...)
	for _, err := range errs {
		s.log.Warnf("ignoring setting: %v", err)
	}

	return settings
}

// CustomPath returns the user configured path for a tool.
func (s *Source) CustomPath(tool string) (string, bool) {
	path, ok := s.cfg.CustomPaths[tool]
	if !ok {
		// viper lowercases keys read from the config file
		path, ok = s.cfg.CustomPaths[strings.ToLower(tool)]
	}

	if !ok || path == "" {
		return "", false
	}

	return os.ExpandEnv(path), true
}
