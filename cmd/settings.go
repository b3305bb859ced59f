package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/routefmt/routefmt/config"
	"github.com/routefmt/routefmt/language"
	"github.com/routefmt/routefmt/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSettingsCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and edit the formatter settings saved for each language",
	}

	// settingsArgs loads the config and parses the language argument shared by every sub command
	settingsArgs := func(cmd *cobra.Command, args []string) (*config.Config, language.Language, error) {
		cfg, err := loadConfig(v, cmd)
		if err != nil {
			return nil, "", err
		}

		cmd.SilenceUsage = true

		lang, err := language.Parse(args[0])
		if err != nil {
			return nil, "", err //nolint:wrapcheck
		}

		return cfg, lang, nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <language> [key]",
			Short: "Print the effective settings of a language: defaults, then the config file, then saved values",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, lang, err := settingsArgs(cmd, args)
				if err != nil {
					return err
				}

				source, closeStore, err := effectiveSettings(cfg)
				if err != nil {
					return err
				}
				defer closeStore()

				settings := source.SettingsWithDefaults(lang)

				if len(args) == 1 {
					if err = toml.NewEncoder(cmd.OutOrStdout()).Encode(map[string]language.Settings{
						lang.String(): settings,
					}); err != nil {
						return fmt.Errorf("failed to encode settings: %w", err)
					}

					return nil
				}

				setting, ok := lang.Definition().Setting(args[1])
				if !ok {
					return fmt.Errorf("%s has no setting named %q", lang, args[1])
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), settings[setting.Key])

				return err //nolint:wrapcheck
			},
		},
		&cobra.Command{
			Use:   "set <language> <key> <value>",
			Short: "Save a setting, overriding the default and the config file",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, lang, err := settingsArgs(cmd, args)
				if err != nil {
					return err
				}

				return withStore(cfg, func(s *store.Store) error {
					if err := s.Save(lang, args[1], args[2]); err != nil {
						return fmt.Errorf("failed to save %s.%s: %w", lang, args[1], err)
					}

					log.Infof("saved %s.%s = %s", lang, args[1], args[2])

					return nil
				})
			},
		},
		newSettingsResetCommand(v, settingsArgs),
	)

	return cmd
}

func newSettingsResetCommand(
	v *viper.Viper,
	settingsArgs func(cmd *cobra.Command, args []string) (*config.Config, language.Language, error),
) *cobra.Command {
	var all bool

	reset := &cobra.Command{
		Use:   "reset <language> [key] | --all",
		Short: "Remove a saved setting, every saved setting of a language, or with --all every saved setting",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}

			return cobra.RangeArgs(1, 2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				cfg, err := loadConfig(v, cmd)
				if err != nil {
					return err
				}

				cmd.SilenceUsage = true

				path, err := store.Path(cfg.SettingsDB)
				if err != nil {
					return err //nolint:wrapcheck
				}

				if err = store.Remove(path); err != nil {
					return err //nolint:wrapcheck
				}

				log.Infof("removed every saved setting from %s", path)

				return nil
			}

			cfg, lang, err := settingsArgs(cmd, args)
			if err != nil {
				return err
			}

			var key string
			if len(args) == 2 {
				key = args[1]
			}

			return withStore(cfg, func(s *store.Store) error {
				if err := s.Reset(lang, key); err != nil {
					return fmt.Errorf("failed to reset settings of %s: %w", lang, err)
				}

				return nil
			})
		},
	}

	reset.Flags().BoolVar(&all, "all", false, "Remove the saved settings of every language.")

	return reset
}

// effectiveSettings layers the saved settings, if there are any, over cfg.
func effectiveSettings(cfg *config.Config) (*config.Source, func(), error) {
	path, err := store.Path(cfg.SettingsDB)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}

	s, err := store.OpenReadOnly(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.NewSource(cfg, nil), func() {}, nil
	} else if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}

	return config.NewSource(cfg, s), func() { _ = s.Close() }, nil
}

// withStore opens the settings store for writing and closes it once fn returns.
func withStore(cfg *config.Config, fn func(s *store.Store) error) (err error) {
	path, err := store.Path(cfg.SettingsDB)
	if err != nil {
		return err //nolint:wrapcheck
	}

	s, err := store.Open(path)
	if err != nil {
		return err //nolint:wrapcheck
	}

	defer func() {
		if closeErr := s.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("failed to close settings store: %w", closeErr)
		}
	}()

	return fn(s)
}
