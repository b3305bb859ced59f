package walk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

var ErrUnknownType = errors.New("walk must be one of <auto|git|filesystem>")

type Type int

const (
	Auto Type = iota
	Git
	Filesystem
)

// ParseType parses the name of a walker type. Empty means Auto.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "git":
		return Git, nil
	case "filesystem":
		return Filesystem, nil
	default:
		return Auto, fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

func (t Type) String() string {
	switch t {
	case Auto:
		return "auto"
	case Git:
		return "git"
	case Filesystem:
		return "filesystem"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// File is a regular file found beneath the root of a walk.
type File struct {
	Path    string
	RelPath string
	Info    fs.FileInfo
}

func (f File) String() string {
	return f.Path
}

type WalkFunc func(file *File) error

type Walker interface {
	Root() string
	// Walk calls fn for every regular file beneath the given paths, which may be files or directories, absolute or
	// relative to the root. No paths means the root itself.
	Walk(ctx context.Context, paths []string, fn WalkFunc) error
}

func New(walkerType Type, root string) (Walker, error) {
	switch walkerType {
	case Git:
		return NewGit(root)
	case Auto:
		return Detect(root), nil
	case Filesystem:
		return NewFilesystem(root)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownType, walkerType)
	}
}

// Detect prefers the git index, so that ignored and untracked files are left alone, and falls back to the filesystem.
func Detect(root string) Walker {
	if w, err := NewGit(root); err == nil {
		return w
	}

	w, _ := NewFilesystem(root)

	return w
}
