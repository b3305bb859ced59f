package format

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/gobwas/glob"
	"github.com/routefmt/routefmt/config"
	"github.com/routefmt/routefmt/language"
)

// compileGlobs prepares the globs, where the patterns are all right-matching.
func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, len(patterns))

	for i, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile include pattern '%v': %w", pattern, err)
		}

		globs[i] = g
	}

	return globs, nil
}

func pathMatches(path string, globs []glob.Glob) bool {
	for idx := range globs {
		if globs[idx].Match(path) {
			return true
		}
	}

	return false
}

type detection struct {
	lang     language.Language
	includes []glob.Glob
}

// Detector maps file paths to the language whose include patterns they match.
type Detector struct {
	entries []detection
}

// NewDetector compiles the include patterns of every configured formatter.
// Languages are checked in lexical order, the first match wins.
func NewDetector(formatters map[language.Language]*config.Formatter) (*Detector, error) {
	langs := make([]language.Language, 0, len(formatters))
	for lang := range formatters {
		langs = append(langs, lang)
	}

	slices.Sort(langs)

	d := &Detector{}

	for _, lang := range langs {
		includes, err := compileGlobs(formatters[lang].Includes)
		if err != nil {
			return nil, fmt.Errorf("failed to compile includes of %s: %w", lang, err)
		}

		d.entries = append(d.entries, detection{lang: lang, includes: includes})
	}

	return d, nil
}

// Detect returns the language of path, matched against both its slash separated form and its base name.
func (d *Detector) Detect(path string) (language.Language, bool) {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)

	for _, entry := range d.entries {
		if pathMatches(slashed, entry.includes) || pathMatches(base, entry.includes) {
			return entry.lang, true
		}
	}

	return "", false
}
