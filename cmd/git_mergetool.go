package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/charmbracelet/log"
	"github.com/routefmt/routefmt/cmd/format"
	"github.com/routefmt/routefmt/stats"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newGitMergetoolCommand(v *viper.Viper, statz *stats.Stats) *cobra.Command {
	return &cobra.Command{
		Use:   "git-mergetool <current> <base> <other> <merged>",
		Short: "Format both sides of a conflict and their base before merging them, then format the result",
		Long: "Configure with:\n\n" +
			"  git config mergetool.routefmt.cmd 'routefmt git-mergetool \"$LOCAL\" \"$BASE\" \"$REMOTE\" \"$MERGED\"'\n" +
			"  git config mergetool.routefmt.trustExitCode true",
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return gitMergetool(v, statz, cmd, args)
		},
	}
}

// gitMergetool handles a 3-way merge using `git merge-file` and formats the resulting merged file.
// Formatting the inputs first keeps formatting differences from showing up as conflicts.
func gitMergetool(
	v *viper.Viper,
	statz *stats.Stats,
	cmd *cobra.Command,
	args []string,
) error {
	cfg, err := loadConfig(v, cmd)
	if err != nil {
		return err
	}

	current := args[0]
	base := args[1]
	other := args[2]
	merged := args[3]

	log.Infof("formatting: %s, %s, %s", current, base, other)

	//nolint:wrapcheck
	if err := format.Files(cfg, statz, cmd, args[:3]); err != nil {
		return err
	}

	// open merge file
	mergeFile, err := os.OpenFile(merged, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open merge file: %w", err)
	}

	// merge current base and other
	merge := exec.CommandContext(cmd.Context(), "git", "merge-file", "--stdout", current, base, other)
	log.Info(merge.String())

	// redirect stdout to the merge file
	merge.Stdout = mergeFile
	// capture stderr
	merge.Stderr = cmd.ErrOrStderr()

	if err = merge.Run(); err != nil {
		_ = mergeFile.Close()

		return fmt.Errorf("failed to run git merge-file: %w", err)
	}

	// close the merge file
	if err = mergeFile.Close(); err != nil {
		return fmt.Errorf("failed to close merge file: %w", err)
	}

	log.Infof("formatting: %s", merged)

	if err = format.Files(cfg, statz, cmd, []string{merged}); err != nil {
		return fmt.Errorf("failed to format merged file: %w", err)
	}

	return nil
}
