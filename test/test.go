package test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	cp "github.com/otiai10/copy"
	"github.com/routefmt/routefmt/config"
	"github.com/stretchr/testify/require"
)

// Fake formatters, written as POSIX shell scripts. Each records its arguments in $ROUTEFMT_TEST_ARGS when set.
const (
	recordArgs = `[ -n "$ROUTEFMT_TEST_ARGS" ] && echo "$@" >> "$ROUTEFMT_TEST_ARGS"` + "\n"

	// Ruff normalises the spacing around assignments and terminates the last line.
	Ruff = recordArgs + `awk '{ gsub(/[[:space:]]*=[[:space:]]*/, " = "); print }'` + "\n"

	// Gofumpt echoes its input.
	Gofumpt = recordArgs + "cat\n"

	// Shfmt collapses repeated spaces.
	Shfmt = recordArgs + `tr -s ' '` + "\n"

	// PhpCsFixer rewrites the file given as its last argument in place and, like the real thing, exits 8 when it
	// changed something.
	PhpCsFixer = recordArgs + `for last; do :; done
echo "// formatted" >> "$last"
exit 8
`

	// Broken exits with an error and no output.
	Broken = recordArgs + `echo "unexpected token at 1:1" >&2
exit 2
`
)

func WriteConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create a new config file: %v", err)
	}

	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err = encoder.Encode(cfg); err != nil {
		t.Fatalf("failed to write to config file: %v", err)
	}
}

func TempExamples(t *testing.T) string {
	t.Helper()

	tempDir := t.TempDir()
	require.NoError(t, cp.Copy("../test/examples", tempDir), "failed to copy test data to dir")

	return tempDir
}

// ChangeWorkDir changes into dir for the remainder of the test.
func ChangeWorkDir(t *testing.T, dir string) {
	t.Helper()

	// capture current cwd, so we can replace it after the test is finished
	cwd, err := os.Getwd()
	require.NoError(t, err, "failed to get current working directory")

	t.Cleanup(func() {
		// return to the previous working directory
		if err := os.Chdir(cwd); err != nil {
			t.Errorf("failed to return to %s: %v", cwd, err)
		}
	})

	require.NoError(t, os.Chdir(dir), "failed to change working directory")
}

// Tool writes an executable shell script called name into dir.
func Tool(t *testing.T, dir string, name string, script string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	content := "#!/bin/sh\n" + script

	require.NoError(t, os.MkdirAll(dir, 0o755), "failed to create tool dir")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755), "failed to write tool %s", name) //nolint:gosec

	return path
}

// Tools writes the fake formatters into a fresh directory and returns its path.
func Tools(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "bin")

	Tool(t, dir, "ruff", Ruff)
	Tool(t, dir, "gofumpt", Gofumpt)
	Tool(t, dir, "shfmt", Shfmt)
	Tool(t, dir, "php-cs-fixer", PhpCsFixer)

	return dir
}

// RecordArgs makes the fake formatters record their arguments and returns a func reading them back, one line per
// invocation.
func RecordArgs(t *testing.T) func() []string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "args")
	t.Setenv("ROUTEFMT_TEST_ARGS", path)

	return func() []string {
		content, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil
		}

		require.NoError(t, err, "failed to read recorded args")

		return strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
	}
}

func TempFile(t *testing.T, dir string, pattern string, contents *string) *os.File {
	t.Helper()

	file, err := os.CreateTemp(dir, pattern)
	require.NoError(t, err, "failed to create temp file")

	if contents == nil {
		return file
	}

	_, err = file.WriteString(*contents)
	require.NoError(t, err, "failed to write contents to temp file")
	require.NoError(t, file.Close(), "failed to close temp file")

	file, err = os.Open(file.Name())
	require.NoError(t, err, "failed to open temp file")

	return file
}
