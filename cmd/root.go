package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/routefmt/routefmt/build"
	"github.com/routefmt/routefmt/cmd/format"
	_init "github.com/routefmt/routefmt/cmd/init"
	"github.com/routefmt/routefmt/config"
	"github.com/routefmt/routefmt/stats"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func NewRoot() (*cobra.Command, *stats.Stats) {
	// create a viper instance for reading in config
	v, err := config.NewViper()
	if err != nil {
		cobra.CheckErr(fmt.Errorf("failed to create viper instance: %w", err))
	}

	// create a new stats instance
	statz := stats.New()

	runFormat := func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(v, cmd)
		if err != nil {
			return err
		}

		return format.Run(cfg, statz, cmd, args) //nolint:wrapcheck
	}

	// create our root command
	cmd := &cobra.Command{
		Use:     build.Name + " [paths...]",
		Short:   "Routes source code to the formatter configured for its language",
		Version: build.Version,
		Args:    cobra.ArbitraryArgs,
		RunE:    runFormat,
	}

	// update version template
	cmd.SetVersionTemplate(build.Name + " {{.Version}}\n")

	fs := cmd.PersistentFlags()

	// add our config flags to the command's flag set
	config.SetFlags(fs)

	// add a special flag which doesn't have a corresponding entry in routefmt.toml
	fs.String(
		"config-file", "",
		"Load the config file from the given path (defaults to searching upwards for routefmt.toml or "+
			".routefmt.toml). (env $ROUTEFMT_CONFIG)",
	)

	// bind our command's flags to viper
	if err := v.BindPFlags(fs); err != nil {
		cobra.CheckErr(fmt.Errorf("failed to bind global config to viper: %w", err))
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "format [paths...]",
			Short: "Format files in place, or stdin with --stdin (the default command)",
			RunE:  runFormat,
		},
		&cobra.Command{
			Use:   "languages",
			Short: "List the supported languages and the formatter each one is routed to",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadConfig(v, cmd)
				if err != nil {
					return err
				}

				return listLanguages(cfg, cmd.OutOrStdout())
			},
		},
		newSettingsCommand(v),
		newGitMergetoolCommand(v, statz),
		&cobra.Command{
			Use:   "init",
			Short: "Create a routefmt.toml file in the current directory",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := changeWorkingDir(v); err != nil {
					return err
				}

				if err := _init.Run(cmd.OutOrStdout()); err != nil {
					return fmt.Errorf("failed to run init command: %w", err)
				}

				return nil
			},
		},
		&cobra.Command{
			Use:       "completions [bash|zsh|fish]",
			Short:     "Generate shell completions",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"bash", "zsh", "fish"},
			RunE:      generateShellCompletions,
		},
	)

	return cmd, statz
}

func changeWorkingDir(v *viper.Viper) error {
	workingDir, err := filepath.Abs(v.GetString("working-dir"))
	if err != nil {
		return fmt.Errorf("failed to get absolute path for working directory: %w", err)
	} else if err = os.Chdir(workingDir); err != nil {
		return fmt.Errorf("failed to change working directory: %w", err)
	}

	return nil
}

// loadConfig changes into the working directory, reads the config file, if any, and configures logging.
func loadConfig(v *viper.Viper, cmd *cobra.Command) (*config.Config, error) {
	configureLogging(v)

	if err := changeWorkingDir(v); err != nil {
		return nil, err
	}

	workingDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	// use the path specified by the flag
	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return nil, fmt.Errorf("failed to read config-file flag: %w", err)
	}

	// fallback to env
	if configFile == "" {
		configFile = os.Getenv("ROUTEFMT_CONFIG")
	}

	// search up from the working directory, running without a config file is fine
	if configFile == "" {
		configFile, _, _ = config.FindUp(workingDir, config.FileNames...)
	}

	if configFile == "" {
		log.Debug("no config file found, using the built-in formatters")
	} else {
		log.Debugf("using config file: %s", configFile)

		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			cmd.SilenceUsage = true

			return nil, fmt.Errorf("failed to read config file '%s': %w", configFile, err)
		}
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		cmd.SilenceUsage = true

		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// relative working dirs were resolved against the original directory
	cfg.WorkingDirectory = workingDir

	return cfg, nil
}

func configureLogging(v *viper.Viper) {
	log.SetOutput(os.Stderr)
	log.SetReportTimestamp(false)

	if v.GetBool("quiet") {
		// if quiet, we only log errors
		log.SetLevel(log.ErrorLevel)

		return
	}

	// otherwise, the verbose flag controls the log level
	switch v.GetInt("verbose") {
	case 0:
		log.SetLevel(log.WarnLevel)
	case 1:
		log.SetLevel(log.InfoLevel)
	default:
		log.SetLevel(log.DebugLevel)
	}
}
