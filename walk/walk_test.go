package walk_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/routefmt/routefmt/test"
	"github.com/routefmt/routefmt/walk"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, w walk.Walker, paths ...string) []string {
	t.Helper()

	var result []string

	err := w.Walk(context.Background(), paths, func(file *walk.File) error {
		require.Equal(t, filepath.Join(w.Root(), file.RelPath), file.Path)
		require.True(t, file.Info.Mode().IsRegular())

		result = append(result, filepath.ToSlash(file.RelPath))

		return nil
	})
	require.NoError(t, err)

	return result
}

func initRepo(t *testing.T, dir string) *git.Worktree {
	t.Helper()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err, "failed to init git repository")

	worktree, err := repo.Worktree()
	require.NoError(t, err)

	return worktree
}

func commit(t *testing.T, worktree *git.Worktree) {
	t.Helper()

	_, err := worktree.Commit("test", &git.CommitOptions{
		Author: &object.Signature{Name: "routefmt", Email: "routefmt@example.com", When: time.Now()},
	})
	require.NoError(t, err, "failed to commit")
}

func TestFilesystemWalker(t *testing.T) {
	as := require.New(t)

	tempDir := test.TempExamples(t)

	w, err := walk.New(walk.Filesystem, tempDir)
	as.NoError(err)

	as.ElementsMatch([]string{
		"README.txt",
		"go/main.go",
		"php/index.php",
		"python/empty.py",
		"python/main.py",
		"shell/hello.sh",
	}, collect(t, w))

	// specific paths, relative or absolute
	as.ElementsMatch([]string{"python/empty.py", "python/main.py", "go/main.go"},
		collect(t, w, "python", filepath.Join(tempDir, "go", "main.go")))

	// symlinks and .git are skipped
	as.NoError(os.Symlink(filepath.Join(tempDir, "README.txt"), filepath.Join(tempDir, "link.txt")))
	as.NoError(os.MkdirAll(filepath.Join(tempDir, ".git"), 0o755))
	as.NoError(os.WriteFile(filepath.Join(tempDir, ".git", "config"), nil, 0o600))

	as.Len(collect(t, w), 6)

	// paths outside the root are rejected
	err = w.Walk(context.Background(), []string{".."}, func(*walk.File) error { return nil })
	as.ErrorIs(err, walk.ErrOutsideRoot)

	// cancellation stops the walk
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = w.Walk(ctx, nil, func(*walk.File) error { return nil })
	as.ErrorIs(err, context.Canceled)
}

func TestGitWalker(t *testing.T) {
	as := require.New(t)

	tempDir := test.TempExamples(t)

	_, err := walk.NewGit(tempDir)
	as.Error(err, "not a git repository yet")

	// detection falls back to the filesystem
	as.Len(collect(t, walk.Detect(tempDir)), 6)

	worktree := initRepo(t, tempDir)

	// empty index
	w, err := walk.New(walk.Git, tempDir)
	as.NoError(err)
	as.Empty(collect(t, w))

	// stage some of the files
	_, err = worktree.Add("python")
	as.NoError(err)
	_, err = worktree.Add("go/main.go")
	as.NoError(err)

	as.ElementsMatch([]string{"go/main.go", "python/empty.py", "python/main.py"}, collect(t, w))
	as.ElementsMatch([]string{"python/empty.py", "python/main.py"}, collect(t, w, "python"))

	// staged but removed from disk
	as.NoError(os.Remove(filepath.Join(tempDir, "python", "empty.py")))
	as.ElementsMatch([]string{"go/main.go", "python/main.py"}, collect(t, w))

	// walking from a sub directory of the worktree
	sub, err := walk.NewGit(filepath.Join(tempDir, "python"))
	as.NoError(err)
	as.Equal([]string{"main.py"}, collect(t, sub))

	as.Equal("git", walk.Git.String())
}

func TestChanged(t *testing.T) {
	as := require.New(t)

	tempDir := test.TempExamples(t)

	_, err := walk.Changed(context.Background(), tempDir)
	as.Error(err, "not a git repository yet")

	worktree := initRepo(t, tempDir)

	as.NoError(worktree.AddWithOptions(&git.AddOptions{All: true}))
	commit(t, worktree)

	files, err := walk.Changed(context.Background(), tempDir)
	as.NoError(err)
	as.Empty(files)

	// modify one, add one, delete one
	as.NoError(os.WriteFile(filepath.Join(tempDir, "python", "main.py"), []byte("x = 1\n"), 0o600))
	as.NoError(os.WriteFile(filepath.Join(tempDir, "go", "new.go"), []byte("package main\n"), 0o600))
	as.NoError(os.Remove(filepath.Join(tempDir, "shell", "hello.sh")))

	files, err = walk.Changed(context.Background(), tempDir)
	as.NoError(err)

	var paths []string
	for _, file := range files {
		paths = append(paths, filepath.ToSlash(file.RelPath))
	}

	as.Equal([]string{"go/new.go", "python/main.py"}, paths)

	// relative to a sub directory
	files, err = walk.Changed(context.Background(), filepath.Join(tempDir, "go"))
	as.NoError(err)
	as.Len(files, 1)
	as.Equal("new.go", files[0].RelPath)
	as.Equal(filepath.Join(tempDir, "go", "new.go"), files[0].Path)
}

func TestParseType(t *testing.T) {
	as := require.New(t)

	for name, expected := range map[string]walk.Type{
		"":           walk.Auto,
		"auto":       walk.Auto,
		"git":        walk.Git,
		"Filesystem": walk.Filesystem,
	} {
		typ, err := walk.ParseType(name)
		as.NoError(err, name)
		as.Equal(expected, typ, name)
	}

	_, err := walk.ParseType("jujutsu")
	as.ErrorIs(err, walk.ErrUnknownType)

	_, err = walk.New(walk.Type(42), t.TempDir())
	as.ErrorIs(err, walk.ErrUnknownType)

	// auto falls back to the filesystem outside of a repository
	w, err := walk.New(walk.Auto, test.TempExamples(t))
	as.NoError(err)
	as.Len(collect(t, w), 6)
}
