package format

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
)

// Resolver turns a tool name into the path of an executable.
//
// The lookup order is: a user configured path, the bundled search directories, PATH and finally the bare name, which
// leaves the final say to the operating system when the process is launched.
type Resolver struct {
	// CustomPath returns the user configured location of a tool, if any.
	CustomPath func(tool string) (string, bool)
	// SearchDirs are checked in order before PATH.
	SearchDirs []string
	// Env provides PATH. Defaults to the environment of the current process.
	Env expand.Environ
	// Dir is the directory relative PATH entries are resolved against.
	Dir string

	log *log.Logger
}

// Resolve never fails: when nothing better is found it returns name unchanged.
func (r *Resolver) Resolve(name string) string {
	logger := r.logger()

	if path, ok := r.Custom(name); ok {
		return path
	}

	// explicit paths are taken as they are
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return name
	}

	for _, dir := range r.SearchDirs {
		for _, candidate := range executableNames(name) {
			path := filepath.Join(dir, candidate)
			if isFile(path) {
				logger.Debugf("%s: found in search directory %s", name, dir)

				return path
			}
		}
	}

	env := r.Env
	if env == nil {
		env = expand.ListEnviron(os.Environ()...)
	}

	if path, err := interp.LookPathDir(r.Dir, env, name); err == nil {
		logger.Debugf("%s: found on PATH at %s", name, path)

		return path
	}

	logger.Debugf("%s: not found, using the bare name", name)

	return name
}

// Custom returns the absolute user configured path of name when it points at an existing file.
func (r *Resolver) Custom(name string) (string, bool) {
	if r.CustomPath == nil {
		return "", false
	}

	path, ok := r.CustomPath(name)
	if !ok {
		return "", false
	}

	if !isFile(path) {
		r.logger().Warnf("%s: custom path %s does not exist, falling back to a search", name, path)

		return "", false
	}

	// formatters may run in another directory
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	r.logger().Debugf("%s: using custom path %s", name, path)

	return path, true
}

func (r *Resolver) logger() *log.Logger {
	if r.log != nil {
		return r.log
	}

	return log.WithPrefix("resolve")
}

// DefaultSearchDirs returns the directories bundled tools are looked up in: bin next to the executable, the lib
// directory of its install prefix and the routefmt/bin directory of every XDG data directory.
func DefaultSearchDirs() []string {
	var dirs []string

	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}

		exeDir := filepath.Dir(exe)
		dirs = append(dirs,
			filepath.Join(exeDir, "bin"),
			filepath.Join(filepath.Dir(exeDir), "lib", "routefmt", "bin"),
		)
	}

	for _, dir := range append([]string{xdg.DataHome}, xdg.DataDirs...) {
		dirs = append(dirs, filepath.Join(dir, "routefmt", "bin"))
	}

	return dirs
}

func executableNames(name string) []string {
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		return []string{name + ".exe", name + ".cmd", name}
	}

	return []string{name}
}

func isFile(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}
