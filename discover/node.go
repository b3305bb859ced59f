// Package discover locates the scripting runtime some formatters are launched through, and the global package root
// their packages are installed into. All lookups are best effort.
package discover

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
)

const npmRootTimeout = 5 * time.Second

// Candidate proposes a global package root. ok is false when it has nothing to offer.
type Candidate func(n *Node) (path string, ok bool)

// Node discovers a Node.js runtime and its global node_modules directory.
type Node struct {
	// Command is the runtime executable, "node" by default.
	Command string
	// Env is the environment used for PATH lookups and environment based candidates.
	Env expand.Environ
	// Dir is the directory relative lookups are resolved from.
	Dir string
	// Candidates are consulted in order; the first one yielding an existing directory wins.
	Candidates []Candidate

	log *log.Logger
}

// NewNode creates a Node using the given environment and the default candidates.
// A nil env means the environment of the current process.
func NewNode(env expand.Environ) *Node {
	if env == nil {
		env = expand.ListEnviron(os.Environ()...)
	}

	dir, _ := os.Getwd()

	return &Node{
		Command:    "node",
		Env:        env,
		Dir:        dir,
		Candidates: DefaultCandidates(),
		log:        log.WithPrefix("discover"),
	}
}

// IsRuntimeInstalled reports whether the runtime executable can be found on PATH.
func (n *Node) IsRuntimeInstalled() bool {
	_, err := interp.LookPathDir(n.Dir, n.Env, n.Command)

	return err == nil
}

// FindRuntimePackageRoot returns the first candidate global package root which exists on disk.
func (n *Node) FindRuntimePackageRoot() (string, bool) {
	for _, candidate := range n.Candidates {
		path, ok := candidate(n)
		if !ok || !isDir(path) {
			continue
		}

		n.logger().Debugf("package root: %s", path)

		return path, true
	}

	return "", false
}

// PackageExists reports whether pkg is installed under root.
func (n *Node) PackageExists(root string, pkg string) bool {
	return PackageExists(root, pkg)
}

func (n *Node) logger() *log.Logger {
	if n.log != nil {
		return n.log
	}

	return log.WithPrefix("discover")
}

// PackageExists reports whether root contains an installed package, identified by its package.json.
func PackageExists(root string, pkg string) bool {
	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(pkg), "package.json"))

	return err == nil && info.Mode().IsRegular()
}

// DefaultCandidates returns the candidates in order of preference: explicit npm configuration, npm itself, the
// layout next to the node executable, per user prefixes and finally the system wide locations.
func DefaultCandidates() []Candidate {
	return []Candidate{
		FromPrefixEnv,
		FromNpm,
		FromRuntimeDir,
		FromUserPrefixes,
		FromSystemPrefixes,
	}
}

// FromPrefixEnv uses $NPM_CONFIG_PREFIX.
func FromPrefixEnv(n *Node) (string, bool) {
	prefix := n.Env.Get("NPM_CONFIG_PREFIX").String()
	if prefix == "" {
		prefix = n.Env.Get("npm_config_prefix").String()
	}

	if prefix == "" {
		return "", false
	}

	return modulesDir(prefix), true
}

// FromNpm asks `npm root -g`.
func FromNpm(n *Node) (string, bool) {
	npm, err := interp.LookPathDir(n.Dir, n.Env, "npm")
	if err != nil {
		return "", false
	}

	ctx, cancel := context.WithTimeout(context.Background(), npmRootTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, npm, "root", "-g")
	cmd.Env = environ(n.Env)
	cmd.Dir = n.Dir

	out, err := cmd.Output()
	if err != nil {
		n.logger().Debugf("npm root -g failed: %v", err)

		return "", false
	}

	root := strings.TrimSpace(string(out))

	return root, root != ""
}

// FromRuntimeDir derives the prefix from the location of the runtime executable, e.g. /usr/local/bin/node yields
// /usr/local/lib/node_modules.
func FromRuntimeDir(n *Node) (string, bool) {
	node, err := interp.LookPathDir(n.Dir, n.Env, n.Command)
	if err != nil {
		return "", false
	}

	if resolved, err := filepath.EvalSymlinks(node); err == nil {
		node = resolved
	}

	bin := filepath.Dir(node)
	if runtime.GOOS == "windows" {
		return filepath.Join(bin, "node_modules"), true
	}

	return modulesDir(filepath.Dir(bin)), true
}

// FromUserPrefixes checks the usual per user install prefixes.
func FromUserPrefixes(n *Node) (string, bool) {
	var candidates []string

	if appData := n.Env.Get("APPDATA").String(); appData != "" {
		candidates = append(candidates, filepath.Join(appData, "npm", "node_modules"))
	}

	if home := n.Env.Get("HOME").String(); home != "" {
		candidates = append(candidates,
			modulesDir(filepath.Join(home, ".npm-global")),
			modulesDir(filepath.Join(home, ".local")),
		)
	}

	candidates = append(candidates, modulesDir(filepath.Join(xdg.DataHome, "npm")))

	return firstDir(candidates)
}

// FromSystemPrefixes checks the system wide install prefixes.
func FromSystemPrefixes(_ *Node) (string, bool) {
	return firstDir([]string{
		"/usr/local/lib/node_modules",
		"/opt/homebrew/lib/node_modules",
		"/usr/lib/node_modules",
	})
}

func modulesDir(prefix string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(prefix, "node_modules")
	}

	return filepath.Join(prefix, "lib", "node_modules")
}

func firstDir(paths []string) (string, bool) {
	for _, path := range paths {
		if isDir(path) {
			return path, true
		}
	}

	return "", false
}

func isDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

func environ(env expand.Environ) []string {
	var result []string

	env.Each(func(name string, vr expand.Variable) bool {
		if vr.Exported && vr.Kind == expand.String {
			result = append(result, name+"="+vr.Str)
		}

		return true
	})

	return result
}
