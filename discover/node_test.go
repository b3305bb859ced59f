package discover_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/routefmt/routefmt/discover"
	"github.com/stretchr/testify/require"
	"mvdan.cc/sh/v3/expand"
)

func modules(prefix string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(prefix, "node_modules")
	}

	return filepath.Join(prefix, "lib", "node_modules")
}

func TestFindRuntimePackageRoot(t *testing.T) {
	as := require.New(t)

	prefix := t.TempDir()
	root := modules(prefix)
	as.NoError(os.MkdirAll(filepath.Join(root, "prettier"), 0o755))
	as.NoError(os.WriteFile(filepath.Join(root, "prettier", "package.json"), []byte("{}"), 0o600))

	t.Run("prefix env", func(t *testing.T) {
		n := discover.NewNode(expand.ListEnviron("NPM_CONFIG_PREFIX=" + prefix))

		path, ok := n.FindRuntimePackageRoot()
		require.True(t, ok)
		require.Equal(t, root, path)

		require.True(t, n.PackageExists(path, "prettier"))
		require.False(t, n.PackageExists(path, "sql-formatter"))
	})

	t.Run("missing candidates are skipped", func(t *testing.T) {
		n := discover.NewNode(expand.ListEnviron("NPM_CONFIG_PREFIX=" + filepath.Join(prefix, "missing")))
		n.Candidates = []discover.Candidate{
			discover.FromPrefixEnv,
			func(*discover.Node) (string, bool) { return "", false },
			func(*discover.Node) (string, bool) { return root, true },
		}

		path, ok := n.FindRuntimePackageRoot()
		require.True(t, ok)
		require.Equal(t, root, path)
	})

	t.Run("none", func(t *testing.T) {
		n := discover.NewNode(expand.ListEnviron())
		n.Candidates = []discover.Candidate{discover.FromPrefixEnv, discover.FromUserPrefixes}

		// with no environment the only remaining guess is under the XDG data home, which may or may not exist,
		// so all we can assert is that any answer is a plausible node_modules directory
		if path, ok := n.FindRuntimePackageRoot(); ok {
			require.Equal(t, "node_modules", filepath.Base(path))
		}

		n.Candidates = nil
		_, ok := n.FindRuntimePackageRoot()
		require.False(t, ok)
	})
}

func TestIsRuntimeInstalled(t *testing.T) {
	as := require.New(t)

	bin := t.TempDir()
	node := filepath.Join(bin, "node")
	as.NoError(os.WriteFile(node, []byte("#!/bin/sh\n"), 0o755))

	n := discover.NewNode(expand.ListEnviron("PATH=" + bin))
	as.True(n.IsRuntimeInstalled())

	n = discover.NewNode(expand.ListEnviron("PATH=" + t.TempDir()))
	as.False(n.IsRuntimeInstalled())
}
