// Package store persists the settings a user has edited, per language, in a bolt database.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/routefmt/routefmt/language"
	bolt "go.etcd.io/bbolt"
)

// Store holds the saved settings of every language.
type Store struct {
	db *bolt.DB
}

// Path returns the location of the settings database: configured when not empty, otherwise under the XDG state
// directory.
func Path(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	path, err := xdg.StateFile("routefmt/settings.db")
	if err != nil {
		return "", fmt.Errorf("could not resolve local path for the settings store: %w", err)
	}

	return path, nil
}

// Open opens, creating if necessary, the settings database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for settings store: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store at %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing database without taking the write lock, so several processes can read it at once.
// A missing database yields an error matching os.ErrNotExist.
func OpenReadOnly(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open settings store at %s: %w", path, err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store at %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the saved values for lang. Languages without saved values yield an empty map.
// Values are returned as decoded: they must still be validated against the language's definitions.
func (s *Store) Load(lang language.Language) (map[string]any, error) {
	result := make(map[string]any)

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket, err := languageBucket(tx, lang.String())
		if err != nil {
			return err
		}

		return bucket.ForEach(func(key string, entry *Entry) error {
			result[key] = entry.Value

			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load settings for %s: %w", lang, err)
	}

	return result, nil
}

// Get returns a single saved value, or ErrKeyNotFound.
func (s *Store) Get(lang language.Language, key string) (any, error) {
	var value any

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket, err := languageBucket(tx, lang.String())
		if err != nil {
			return err
		}

		entry, err := bucket.Get(key)
		if err != nil {
			return err
		}

		value = entry.Value

		return nil
	})

	return value, err
}

// Save validates value against the definition of key and persists it.
func (s *Store) Save(lang language.Language, key string, value any) error {
	def := lang.Definition()
	if def == nil {
		return fmt.Errorf("%w: %s", language.ErrUnknownLanguage, lang)
	}

	setting, ok := def.Setting(key)
	if !ok {
		return fmt.Errorf("%s has no setting named %q", lang, key)
	}

	normalized, err := setting.Validate(value)
	if err != nil {
		return err //nolint:wrapcheck
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := languageBucket(tx, lang.String())
		if err != nil {
			return err
		}

		return bucket.Put(setting.Key, &Entry{Value: normalized})
	})
}

// Reset removes the saved value of key, or every saved value of lang when key is empty.
func (s *Store) Reset(lang language.Language, key string) error {
	def := lang.Definition()
	if def == nil {
		return fmt.Errorf("%w: %s", language.ErrUnknownLanguage, lang)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := languageBucket(tx, lang.String())
		if err != nil {
			return err
		}

		if key == "" {
			return bucket.DeleteAll()
		}

		if setting, ok := def.Setting(key); ok {
			key = setting.Key
		}

		return bucket.Delete(key)
	})
}

// Remove deletes the database at path, if any.
func Remove(path string) error {
	if err := os.Remove(path); !(err == nil || errors.Is(err, os.ErrNotExist)) {
		return fmt.Errorf("failed to remove settings store at %s: %w", path, err)
	}

	return nil
}
