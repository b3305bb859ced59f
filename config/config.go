package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/routefmt/routefmt/language"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const DefaultTimeout = 10 * time.Second

var (
	ErrInvalidTimeout = errors.New("timeout must be between 1s and 10m")

	// FileNames are searched for, in order, when no config file was specified.
	FileNames = []string{"routefmt.toml", ".routefmt.toml"}
)

// Config is the configuration for formatting, read from routefmt.toml, the environment and flags.
type Config struct {
	BinDirs      []string          `mapstructure:"bin-dirs" toml:"bin-dirs,omitempty"`
	CustomPaths  map[string]string `mapstructure:"custom-paths" toml:"custom-paths,omitempty"`
	FailOnChange bool              `mapstructure:"fail-on-change" toml:"fail-on-change,omitempty"`
	Quiet        bool              `mapstructure:"quiet" toml:"-"` // not allowed in config
	ScratchDir   string            `mapstructure:"scratch-dir" toml:"scratch-dir,omitempty"`
	SettingsDB   string            `mapstructure:"settings-db" toml:"settings-db,omitempty"`
	Timeout      time.Duration     `mapstructure:"timeout" toml:"-"` // written as a string e.g. "20s"
	Verbose      uint8             `mapstructure:"verbose" toml:"verbose,omitempty"`
	Walk         string            `mapstructure:"walk" toml:"walk,omitempty"`

	// per invocation values which are not allowed in config
	Changed          bool   `mapstructure:"changed" toml:"-"`
	Language         string `mapstructure:"language" toml:"-"`
	Stdin            bool   `mapstructure:"stdin" toml:"-"`
	WorkingDirectory string `mapstructure:"working-dir" toml:"-"`

	FormatterConfigs map[string]*Formatter     `mapstructure:"formatter" toml:"formatter,omitempty"`
	Settings         map[string]map[string]any `mapstructure:"settings" toml:"settings,omitempty"`

	// Formatters is the resolved entry per language, built-in entries merged with FormatterConfigs.
	// Languages whose formatter was disabled are absent.
	Formatters map[language.Language]*Formatter `mapstructure:"-" toml:"-"`
}

// SetFlags appends our flags to the provided flag set.
// The flag names match the mapstructure tags in Config so viper can bind them directly.
func SetFlags(fs *pflag.FlagSet) {
	fs.StringSlice(
		"bin-dirs", nil,
		"Directories searched for formatter executables before PATH. (env $ROUTEFMT_BIN_DIRS)",
	)
	fs.Bool(
		"changed", false,
		"Format the files which have been modified in the git worktree.",
	)
	fs.Bool(
		"fail-on-change", false,
		"Exit with error if any changes were made. Useful for CI. (env $ROUTEFMT_FAIL_ON_CHANGE)",
	)
	fs.StringP(
		"language", "l", "",
		"Format every input as the given language instead of detecting it from the path.",
	)
	fs.BoolP(
		"quiet", "q", false,
		"Only log errors. (env $ROUTEFMT_QUIET)",
	)
	fs.String(
		"scratch-dir", "",
		"Directory for the temporary files given to formatters which cannot read stdin "+
			"(defaults to a routefmt directory under the system temp dir). (env $ROUTEFMT_SCRATCH_DIR)",
	)
	fs.String(
		"settings-db", "",
		"Location of the database holding settings saved with `routefmt settings set` "+
			"(defaults to routefmt/settings.db under the XDG state dir). (env $ROUTEFMT_SETTINGS_DB)",
	)
	fs.Bool(
		"stdin", false,
		"Format the content passed in via stdin and write the result to stdout.",
	)
	fs.Duration(
		"timeout", DefaultTimeout,
		"The maximum time a formatter may run before it is killed. (env $ROUTEFMT_TIMEOUT)",
	)
	fs.CountP(
		"verbose", "v",
		"Set the verbosity of logs e.g. -vv. (env $ROUTEFMT_VERBOSE)",
	)
	fs.String(
		"walk", "auto",
		"The method used to traverse the files within the working directory: auto, git or filesystem. "+
			"(env $ROUTEFMT_WALK)",
	)
	fs.StringP(
		"working-dir", "C", ".",
		"Run as if routefmt was started in the specified working directory. (env $ROUTEFMT_WORKING_DIR)",
	)
}

// NewViper creates a Viper instance pre-configured with the following options:
// * TOML config type
// * automatic env enabled
// * `ROUTEFMT_` env prefix for environment variables
// * replacement of `-` and `.` with `_` when mapping flags to env e.g. `scratch-dir` => `ROUTEFMT_SCRATCH_DIR`.
func NewViper() (*viper.Viper, error) {
	v := viper.New()

	v.SetConfigType("toml")

	v.SetEnvPrefix("routefmt")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// unset some env variables that we don't want automatically applied
	for _, name := range []string{"ROUTEFMT_STDIN", "ROUTEFMT_CHANGED", "ROUTEFMT_LANGUAGE"} {
		if err := os.Unsetenv(name); err != nil {
			return nil, fmt.Errorf("failed to unset %s: %w", name, err)
		}
	}

	return v, nil
}

// FromViper takes a viper instance and produces a Config instance.
func FromViper(v *viper.Viper) (*Config, error) {
	configReset := map[string]any{
		"changed":     false,
		"language":    "",
		"quiet":       false,
		"stdin":       false,
		"working-dir": ".",
	}

	// reset certain values which are not allowed to be specified in the config file
	if err := v.MergeConfigMap(configReset); err != nil {
		return nil, fmt.Errorf("failed to overwrite config values: %w", err)
	}

	var err error

	cfg := &Config{}

	if err = v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.WorkingDirectory, err = filepath.Abs(cfg.WorkingDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for working directory: %w", err)
	}

	if err = cfg.Resolve(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Resolve applies defaults, validates the values and builds Formatters.
// FromViper calls it; it is exported for callers constructing a Config directly.
func (c *Config) Resolve() error {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}

	if c.Timeout < time.Second || c.Timeout > 10*time.Minute {
		return fmt.Errorf("%w: %v", ErrInvalidTimeout, c.Timeout)
	}

	if c.ScratchDir == "" {
		c.ScratchDir = filepath.Join(os.TempDir(), "routefmt")
	}

	l := log.WithPrefix("config")

	c.Formatters = make(map[language.Language]*Formatter)

	for _, lang := range language.All() {
		c.Formatters[lang] = builtinFormatter(lang.Definition())
	}

	for name, override := range c.FormatterConfigs {
		lang, err := language.Parse(name)
		if err != nil {
			return fmt.Errorf("formatter %v: %w", name, err)
		}

		entry := merge(lang.Definition(), c.Formatters[lang], override)
		if entry == nil {
			l.Debugf("formatter for %s is disabled", lang)
			delete(c.Formatters, lang)

			continue
		}

		if err = entry.Validate(); err != nil {
			return fmt.Errorf("invalid formatter %v: %w", name, err)
		}

		c.Formatters[lang] = entry
	}

	for name := range c.Settings {
		if _, err := language.Parse(name); err != nil {
			return fmt.Errorf("settings %v: %w", name, err)
		}
	}

	l.Debugf("timeout = %v, scratch dir = %s", c.Timeout, c.ScratchDir)

	return nil
}

// SettingsFor returns the settings configured for lang in the config file, or nil.
func (c *Config) SettingsFor(lang language.Language) map[string]any {
	for name, values := range c.Settings {
		if l, err := language.Parse(name); err == nil && l == lang {
			return values
		}
	}

	return nil
}

func FindUp(searchDir string, fileNames ...string) (path string, dir string, err error) {
	for _, dir := range eachDir(searchDir) {
		for _, f := range fileNames {
			path := filepath.Join(dir, f)
			if fileExists(path) {
				return path, dir, nil
			}
		}
	}

	return "", "", fmt.Errorf("could not find %s in %s", fileNames, searchDir)
}

func eachDir(path string) (paths []string) {
	path, err := filepath.Abs(path)
	if err != nil {
		return
	}

	paths = []string{path}

	if path == "/" {
		return
	}

	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == os.PathSeparator {
			path = path[:i]
			if path == "" {
				path = "/"
			}

			paths = append(paths, path)
		}
	}

	return
}

func fileExists(path string) bool {
	// Some broken filesystems like SSHFS return file information on stat() but
	// then cannot open the file. So we use os.Open.
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	// Next, check that the file is a regular file.
	fi, err := f.Stat()
	if err != nil {
		return false
	}

	return fi.Mode().IsRegular()
}
