package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/routefmt/routefmt/language"
	"github.com/routefmt/routefmt/store"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadReset(t *testing.T) {
	as := require.New(t)

	path := filepath.Join(t.TempDir(), "settings.db")

	s, err := store.Open(path)
	as.NoError(err)

	// nothing saved yet
	values, err := s.Load(language.Python)
	as.NoError(err)
	as.Empty(values)

	_, err = s.Get(language.Python, "line-length")
	as.ErrorIs(err, store.ErrKeyNotFound)

	// values are validated and normalized before being persisted
	as.NoError(s.Save(language.Python, "line-length", "120"))
	as.NoError(s.Save(language.Python, "QUOTE-STYLE", "single"))
	as.NoError(s.Save(language.Shell, "binaryNextLine", true))

	as.ErrorIs(s.Save(language.Python, "line-length", 0), language.ErrInvalidSetting)
	as.Error(s.Save(language.Python, "unknown", 1))

	// reopen to make sure the values survive
	as.NoError(s.Close())

	s, err = store.Open(path)
	as.NoError(err)

	t.Cleanup(func() {
		as.NoError(s.Close())
	})

	values, err = s.Load(language.Python)
	as.NoError(err)
	as.Len(values, 2)
	as.Equal("single", values["quote-style"])

	// msgpack hands back the smallest integer type which fits, so validate before comparing
	def := language.Python.Definition()
	settings, errs := def.Resolve(values)
	as.Empty(errs)
	as.Equal(120, settings["line-length"])

	value, err := s.Get(language.Shell, "binaryNextLine")
	as.NoError(err)
	as.Equal(true, value)

	// reset a single key
	as.NoError(s.Reset(language.Python, "line-length"))

	values, err = s.Load(language.Python)
	as.NoError(err)
	as.Equal(map[string]any{"quote-style": "single"}, values)

	// reset everything for a language, leaving other languages alone
	as.NoError(s.Reset(language.Python, ""))

	values, err = s.Load(language.Python)
	as.NoError(err)
	as.Empty(values)

	values, err = s.Load(language.Shell)
	as.NoError(err)
	as.Len(values, 1)

	// unknown languages are rejected rather than dereferenced
	as.ErrorIs(s.Reset(language.Language("cobol"), "width"), language.ErrUnknownLanguage)
	as.ErrorIs(s.Reset(language.Language("cobol"), ""), language.ErrUnknownLanguage)
}

func TestRemove(t *testing.T) {
	as := require.New(t)

	path := filepath.Join(t.TempDir(), "settings.db")

	// removing a database which does not exist is fine
	as.NoError(store.Remove(path))

	s, err := store.Open(path)
	as.NoError(err)
	as.NoError(s.Close())

	as.FileExists(path)
	as.NoError(store.Remove(path))
	as.NoFileExists(path)
}

func TestOpenReadOnly(t *testing.T) {
	as := require.New(t)

	path := filepath.Join(t.TempDir(), "nested", "settings.db")

	_, err := store.OpenReadOnly(path)
	as.ErrorIs(err, os.ErrNotExist)

	// open creates missing directories
	s, err := store.Open(path)
	as.NoError(err)
	as.NoError(s.Save(language.Go, "extra", true))
	as.NoError(s.Close())

	// several readers may share the database
	first, err := store.OpenReadOnly(path)
	as.NoError(err)

	second, err := store.OpenReadOnly(path)
	as.NoError(err)

	for _, s := range []*store.Store{first, second} {
		values, err := s.Load(language.Go)
		as.NoError(err)
		as.Equal(map[string]any{"extra": true}, values)

		// languages never written to read as empty
		values, err = s.Load(language.Kotlin)
		as.NoError(err)
		as.Empty(values)
	}

	as.NoError(first.Close())
	as.NoError(second.Close())

	configured, err := store.Path(path)
	as.NoError(err)
	as.Equal(path, configured)
}
