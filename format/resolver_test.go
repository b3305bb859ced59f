//go:build !windows

package format_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/routefmt/routefmt/format"
	"github.com/routefmt/routefmt/test"
	"github.com/stretchr/testify/require"
	"mvdan.cc/sh/v3/expand"
)

func TestResolve(t *testing.T) {
	as := require.New(t)

	tempDir := t.TempDir()

	custom := test.Tool(t, filepath.Join(tempDir, "custom"), "ruff", "cat\n")
	first := test.Tool(t, filepath.Join(tempDir, "first"), "ruff", "cat\n")
	second := test.Tool(t, filepath.Join(tempDir, "second"), "ruff", "cat\n")
	onPath := test.Tool(t, filepath.Join(tempDir, "path"), "ruff", "cat\n")

	customPaths := map[string]string{}

	resolver := &format.Resolver{
		CustomPath: func(tool string) (string, bool) {
			path, ok := customPaths[tool]

			return path, ok
		},
		SearchDirs: []string{filepath.Join(tempDir, "missing"), filepath.Join(tempDir, "first"), filepath.Join(tempDir, "second")},
		Env:        expand.ListEnviron("PATH=" + filepath.Join(tempDir, "path")),
	}

	// search dirs come before PATH, in order
	as.Equal(first, resolver.Resolve("ruff"))

	_, ok := resolver.Custom("ruff")
	as.False(ok)

	// a custom path beats everything
	customPaths["ruff"] = custom
	as.Equal(custom, resolver.Resolve("ruff"))

	path, ok := resolver.Custom("ruff")
	as.True(ok)
	as.Equal(custom, path)

	// unless it does not exist
	customPaths["ruff"] = filepath.Join(tempDir, "custom", "nope")
	as.Equal(first, resolver.Resolve("ruff"))

	_, ok = resolver.Custom("ruff")
	as.False(ok)

	// directories are not executables
	customPaths["ruff"] = filepath.Join(tempDir, "custom")
	as.Equal(first, resolver.Resolve("ruff"))

	as.NoError(os.Remove(first))
	as.Equal(second, resolver.Resolve("ruff"))

	// then PATH
	as.NoError(os.Remove(second))
	as.Equal(onPath, resolver.Resolve("ruff"))

	// and finally the bare name
	as.NoError(os.Remove(onPath))
	as.Equal("ruff", resolver.Resolve("ruff"))

	// paths are left alone
	as.Equal("./bin/ruff", resolver.Resolve("./bin/ruff"))

	// the zero value works
	zero := &format.Resolver{}
	as.Equal("routefmt-does-not-exist", zero.Resolve("routefmt-does-not-exist"))
}

func TestDefaultSearchDirs(t *testing.T) {
	as := require.New(t)

	dirs := format.DefaultSearchDirs()
	as.NotEmpty(dirs)

	for _, dir := range dirs {
		as.True(filepath.IsAbs(dir), dir)
	}

	as.Equal("bin", filepath.Base(dirs[0]))
}
