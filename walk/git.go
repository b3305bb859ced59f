package walk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

var ErrOutsideRoot = errors.New("path is outside of the root")

type gitWalker struct {
	root string
	// top is the root of the worktree, which index entries are relative to
	top  string
	repo *git.Repository
	log  *log.Logger
}

func (g *gitWalker) Root() string {
	return g.root
}

// Walk visits the files in the git index. Files which are staged for addition but have since been removed from disk
// are skipped.
func (g *gitWalker) Walk(ctx context.Context, paths []string, fn WalkFunc) error {
	idx, err := g.repo.Storer.Index()
	if err != nil {
		return fmt.Errorf("failed to open git index: %w", err)
	}

	if len(paths) == 0 {
		paths = []string{g.root}
	}

	prefixes := make([]string, 0, len(paths))

	for _, path := range paths {
		relPath, err := relativeTo(g.root, path)
		if err != nil {
			return err
		}

		topRelPath, err := filepath.Rel(g.top, filepath.Join(g.root, relPath))
		if err != nil {
			return fmt.Errorf("failed to determine a relative path for %s: %w", path, err)
		}

		prefixes = append(prefixes, filepath.ToSlash(topRelPath))
	}

	for _, entry := range idx.Entries {
		if err := ctx.Err(); err != nil {
			return err //nolint:wrapcheck
		}

		// we only want regular files, not directories, symlinks or submodules
		if entry.Mode != filemode.Regular && entry.Mode != filemode.Executable && entry.Mode != filemode.Deprecated {
			continue
		}

		if !slices.ContainsFunc(prefixes, func(prefix string) bool { return under(entry.Name, prefix) }) {
			continue
		}

		path := filepath.Join(g.top, filepath.FromSlash(entry.Name))

		relPath, err := filepath.Rel(g.root, path)
		if err != nil {
			return fmt.Errorf("failed to determine a relative path for %s: %w", path, err)
		}

		info, err := os.Lstat(path)
		if os.IsNotExist(err) {
			// the underlying file might have been removed without the change being staged yet
			g.log.Warnf("path %s is in the index but appears to have been removed from the filesystem", path)

			continue
		} else if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}

		if !info.Mode().IsRegular() {
			continue
		}

		if err = fn(&File{Path: path, RelPath: relPath, Info: info}); err != nil {
			return err
		}
	}

	return nil
}

func NewGit(root string) (Walker, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %s: %w", root, err)
	}

	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open git worktree: %w", err)
	}

	return &gitWalker{
		root: root,
		top:  worktree.Filesystem.Root(),
		repo: repo,
		log:  log.WithPrefix("walk[git]"),
	}, nil
}

// Changed returns the files beneath root which differ from HEAD: modified, staged, renamed or untracked, but not
// ignored or deleted. root may be anywhere inside the worktree.
func Changed(ctx context.Context, root string) ([]*File, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %s: %w", root, err)
	}

	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open git worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to read git status: %w", err)
	}

	top := worktree.Filesystem.Root()
	logger := log.WithPrefix("walk[changed]")

	var files []*File

	for name, s := range status {
		if err := ctx.Err(); err != nil {
			return nil, err //nolint:wrapcheck
		}

		if s.Worktree == git.Deleted || (s.Staging == git.Deleted && s.Worktree != git.Untracked) {
			continue
		}

		if s.Worktree == git.Unmodified && s.Staging == git.Unmodified {
			continue
		}

		path := filepath.Join(top, filepath.FromSlash(name))

		relPath, err := filepath.Rel(root, path)
		if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
			continue
		}

		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() {
			logger.Debugf("skipping %s: not a regular file", path)

			continue
		}

		files = append(files, &File{Path: path, RelPath: relPath, Info: info})
	}

	slices.SortFunc(files, func(a, b *File) int {
		return strings.Compare(a.RelPath, b.RelPath)
	})

	return files, nil
}

// relativeTo returns path relative to root, accepting paths which are absolute or relative to root.
func relativeTo(root string, path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	relPath, err := filepath.Rel(root, filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to determine a relative path for %s: %w", path, err)
	}

	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is not beneath %s", ErrOutsideRoot, path, root)
	}

	return relPath, nil
}

func under(name string, prefix string) bool {
	return prefix == "." || name == prefix || strings.HasPrefix(name, prefix+"/")
}
