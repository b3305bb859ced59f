package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/routefmt/routefmt/config"
	"github.com/routefmt/routefmt/language"
)

// listLanguages prints the formatter of every language with its effective settings.
func listLanguages(cfg *config.Config, w io.Writer) error {
	source, closeStore, err := effectiveSettings(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("LANGUAGE", "COMMAND", "TRANSPORT", "DIALECT", "SETTINGS")

	for _, lang := range language.All() {
		entry, ok := cfg.Formatters[lang]
		if !ok {
			t.Row(lang.String(), "disabled", "", "", "")

			continue
		}

		effective := source.SettingsWithDefaults(lang)

		settings := make([]string, 0, len(effective))
		for _, key := range effective.Keys() {
			settings = append(settings, fmt.Sprintf("%s=%v", key, effective[key]))
		}

		command := entry.Command
		if entry.RequiresRuntime {
			command += " (node: " + strings.Join(entry.Packages, ", ") + ")"
		}

		t.Row(lang.String(), command, string(entry.Transport), entry.Dialect.Kind.String(), strings.Join(settings, " "))
	}

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return fmt.Errorf("failed to write languages: %w", err)
	}

	return nil
}
