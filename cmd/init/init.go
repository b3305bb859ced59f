package init

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// FileName is the config file created by Run.
const FileName = "routefmt.toml"

// We embed the sample toml file for use with the init command.
//
//go:embed init.toml
var initBytes []byte

// Run writes a sample config file into the current directory, refusing to overwrite an existing one.
func Run(out io.Writer) error {
	f, err := os.OpenFile(FileName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s already exists", FileName)
	} else if err != nil {
		return fmt.Errorf("failed to create %s: %w", FileName, err)
	}

	if _, err = f.Write(initBytes); err != nil {
		_ = f.Close()

		return fmt.Errorf("failed to write %s: %w", FileName, err)
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", FileName, err)
	}

	_, err = fmt.Fprintf(out, "Generated %s. Now it's your turn to edit it.\n", FileName)

	return err //nolint:wrapcheck
}
