package format

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/routefmt/routefmt/config"
	internallog "github.com/routefmt/routefmt/internal/log"
	"github.com/routefmt/routefmt/language"
	"github.com/routefmt/routefmt/stats"
	"mvdan.cc/sh/v3/expand"
)

// ConfigStore provides the formatter configuration. Implementations must be safe for concurrent use.
type ConfigStore interface {
	// FormatterEntry returns the entry for lang. The caller may modify the returned value.
	FormatterEntry(lang language.Language) (*config.Formatter, bool)
	// SettingsWithDefaults returns the effective settings of lang, defaults included.
	SettingsWithDefaults(lang language.Language) language.Settings
	// CustomPath returns a user configured location for a tool.
	CustomPath(tool string) (string, bool)
}

// Environment probes for the scripting runtime some formatters are launched through.
type Environment interface {
	IsRuntimeInstalled() bool
	FindRuntimePackageRoot() (string, bool)
	PackageExists(root string, pkg string) bool
}

// Options tune a Service. The zero value uses the defaults.
type Options struct {
	// Timeout bounds each formatter invocation. Defaults to DefaultTimeout.
	Timeout time.Duration
	// ScratchDir receives the scratch files of temp file formatters.
	ScratchDir string
	// SearchDirs are checked for executables before PATH.
	SearchDirs []string
	// Env is the environment executables are looked up in.
	Env expand.Environ
	// Stats receives counters for every request. Optional.
	Stats *stats.Stats
}

// Service formats code by routing it to the formatter configured for its language.
// It is safe for concurrent use: requests share no state besides the counters in Options.Stats.
type Service struct {
	cfg      ConfigStore
	env      Environment
	runner   *Runner
	resolver *Resolver
	timeout  time.Duration
	stats    *stats.Stats
}

func NewService(cfg ConfigStore, env Environment, opts Options) *Service {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Service{
		cfg:     cfg,
		env:     env,
		timeout: timeout,
		stats:   opts.Stats,
		runner:  &Runner{ScratchDir: opts.ScratchDir},
		resolver: &Resolver{
			CustomPath: cfg.CustomPath,
			SearchDirs: opts.SearchDirs,
			Env:        opts.Env,
			log:        log.WithPrefix("resolve"),
		},
	}
}

// Format formats code as lang. It never panics and never returns a Go error; every failure is described by the
// returned Result. Cancelling ctx kills the formatter, which is how a caller supersedes an in-flight request.
func (s *Service) Format(ctx context.Context, code string, lang language.Language) (result Result) {
	logger := log.WithPrefix(fmt.Sprintf("format | %s", lang))

	s.count(stats.Requested)

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("recovered from panic: %v\n%s", r, debug.Stack())
			result = failed(CategoryUnknown, "unexpected failure while formatting %s: %v", lang, r)
		}

		switch {
		case result.Success:
			s.count(stats.Formatted)

			if result.Output != code {
				s.count(stats.Changed)
			}
		default:
			s.count(stats.Failed)

			if result.Category == CategoryProcessTimeout {
				s.count(stats.TimedOut)
			}

			logger.Debugf("%s: %s", result.Category, result.Message)
		}
	}()

	if strings.TrimSpace(code) == "" {
		return failed(CategoryNoInput, "nothing to format")
	}

	entry, ok := s.cfg.FormatterEntry(lang)
	if !ok || entry == nil {
		return failed(CategoryUnconfiguredLanguage, "no formatter is configured for %s", lang)
	}

	var workingDir string

	if entry.RequiresRuntime {
		if s.env == nil || !s.env.IsRuntimeInstalled() {
			return failed(CategoryRuntimeRequired,
				"%s requires Node.js, which could not be found; install it and make sure it is on PATH", entry.Name(),
			)
		}

		if len(entry.Packages) > 0 {
			root, found := s.env.FindRuntimePackageRoot()
			if !found {
				return failed(CategoryMissingPackage,
					"could not locate the global package directory; install with `npm install -g %s`",
					strings.Join(entry.Packages, " "),
				)
			}

			for _, pkg := range entry.Packages {
				if !s.env.PackageExists(root, pkg) {
					return failed(CategoryMissingPackage,
						"package %s is not installed under %s; install it with `npm install -g %s`", pkg, root, pkg,
					)
				}
			}

			// run next to the global node_modules so the packages resolve
			workingDir = filepath.Dir(root)
		}
	}

	settings := s.cfg.SettingsWithDefaults(lang)
	args := BuildArgs(entry, settings)
	executable := s.resolver.Resolve(entry.Command)

	// a wrapped tool with a custom path is launched from there instead of PATH
	if entry.Tool != "" && entry.Tool != entry.Command {
		if path, ok := s.resolver.Custom(entry.Tool); ok {
			args = replaceTool(args, entry.Tool, path)
		}
	}

	logger.Debugf("executing: %s %s", executable, strings.Join(args, " "))

	stderr := &internallog.Writer{Log: logger}

	req := Request{
		Executable:     executable,
		Args:           args,
		Input:          code,
		Dir:            workingDir,
		Timeout:        s.timeout,
		Extension:      entry.Extension,
		StrictExitCode: entry.StrictExitCode,
		Stderr:         stderr,
	}

	start := time.Now()

	var res *ProcessResult
	if entry.Transport == language.TempFile {
		res = s.runner.RunWithTempFile(ctx, req)
	} else {
		res = s.runner.Run(ctx, req)
	}

	stderr.Flush()

	logger.Debugf("finished in %v: exit code %d, failure %s", time.Since(start), res.ExitCode, res.Failure)

	return interpret(entry.Name(), res, s.timeout)
}

func (s *Service) count(t stats.Type) {
	if s.stats != nil {
		s.stats.Add(t, 1)
	}
}
