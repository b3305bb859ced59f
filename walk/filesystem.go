package walk

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

type filesystemWalker struct {
	root string
	fs   billy.Filesystem
	log  *log.Logger
}

func (f *filesystemWalker) Root() string {
	return f.root
}

func (f *filesystemWalker) Walk(ctx context.Context, paths []string, fn WalkFunc) error {
	if len(paths) == 0 {
		paths = []string{f.root}
	}

	walkFn := func(relPath string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err //nolint:wrapcheck
		}

		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}

			return nil
		}

		// symlinks and other special files are not formatted
		if !info.Mode().IsRegular() {
			f.log.Debugf("skipping %s: not a regular file", relPath)

			return nil
		}

		relPath = filepath.Clean(relPath)

		return fn(&File{
			Path:    filepath.Join(f.root, relPath),
			RelPath: relPath,
			Info:    info,
		})
	}

	for _, path := range paths {
		relPath, err := relativeTo(f.root, path)
		if err != nil {
			return err
		}

		if err = util.Walk(f.fs, relPath, walkFn); err != nil {
			return fmt.Errorf("failed to walk %s: %w", path, err)
		}
	}

	return nil
}

func NewFilesystem(root string) (Walker, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %s: %w", root, err)
	}

	return &filesystemWalker{
		root: root,
		fs:   osfs.New(root),
		log:  log.WithPrefix("walk[filesystem]"),
	}, nil
}
