package format

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/routefmt/routefmt/config"
	"github.com/routefmt/routefmt/discover"
	"github.com/routefmt/routefmt/format"
	"github.com/routefmt/routefmt/language"
	"github.com/routefmt/routefmt/stats"
	"github.com/routefmt/routefmt/store"
	"github.com/routefmt/routefmt/walk"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"mvdan.cc/sh/v3/expand"
)

const BatchSize = 1024

var (
	ErrFailOnChange = errors.New("unexpected changes detected, --fail-on-change is enabled")
	ErrFormatFailed = errors.New("some files could not be formatted")
)

// runner holds what every format run shares.
type runner struct {
	cfg      *config.Config
	svc      *format.Service
	detector *format.Detector
	// forced is the language given on the command line, overriding detection
	forced language.Language
	close  func()
}

func newRunner(cfg *config.Config, statz *stats.Stats) (*runner, error) {
	var forced language.Language

	if cfg.Language != "" {
		lang, err := language.Parse(cfg.Language)
		if err != nil {
			return nil, fmt.Errorf("invalid --language: %w", err)
		}

		forced = lang
	}

	detector, err := format.NewDetector(cfg.Formatters)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise language detection: %w", err)
	}

	// bin dirs are tried first, in the order given, then the bundled locations
	var searchDirs []string

	for _, dir := range cfg.BinDirs {
		abs, err := filepath.Abs(os.ExpandEnv(dir))
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for bin dir %s: %w", dir, err)
		}

		searchDirs = append(searchDirs, abs)
	}

	searchDirs = append(searchDirs, format.DefaultSearchDirs()...)

	saved, closeStore := openStore(cfg)

	env := expand.ListEnviron(os.Environ()...)

	svc := format.NewService(config.NewSource(cfg, saved), discover.NewNode(env), format.Options{
		Timeout:    cfg.Timeout,
		ScratchDir: cfg.ScratchDir,
		SearchDirs: searchDirs,
		Env:        env,
		Stats:      statz,
	})

	return &runner{
		cfg:      cfg,
		svc:      svc,
		detector: detector,
		forced:   forced,
		close:    closeStore,
	}, nil
}

// Run formats stdin, the files changed in the git worktree, or the files beneath paths.
func Run(cfg *config.Config, statz *stats.Stats, cmd *cobra.Command, paths []string) error {
	cmd.SilenceUsage = true

	r, err := newRunner(cfg, statz)
	if err != nil {
		return err
	}
	defer r.close()

	// create an app context and listen for shutdown, cancelling in-flight formatters
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Stdin {
		return r.formatStdin(ctx, cmd, paths)
	}

	if cfg.Changed && len(paths) > 0 {
		return errors.New("--changed cannot be combined with paths")
	}

	walkType, err := walk.ParseType(cfg.Walk)
	if err != nil {
		return err //nolint:wrapcheck
	}

	err = r.formatFiles(ctx, func(ctx context.Context, emit walk.WalkFunc) error {
		if cfg.Changed {
			files, err := walk.Changed(ctx, cfg.WorkingDirectory)
			if err != nil {
				return fmt.Errorf("failed to list changed files: %w", err)
			}

			for _, file := range files {
				if err = emit(file); err != nil {
					return err
				}
			}

			return nil
		}

		walker, err := walk.New(walkType, cfg.WorkingDirectory)
		if err != nil {
			return fmt.Errorf("failed to create %s walker: %w", walkType, err)
		}

		log.Debugf("walking %s with the %s walker", walker.Root(), walkType)

		return walker.Walk(ctx, paths, emit) //nolint:wrapcheck
	})

	if !cfg.Quiet {
		statz.Print(cmd.OutOrStdout())
	}

	return err
}

// Files formats exactly the given files, whether or not they are tracked by git.
func Files(cfg *config.Config, statz *stats.Stats, cmd *cobra.Command, paths []string) error {
	cmd.SilenceUsage = true

	r, err := newRunner(cfg, statz)
	if err != nil {
		return err
	}
	defer r.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return r.formatFiles(ctx, func(_ context.Context, emit walk.WalkFunc) error {
		for _, path := range paths {
			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("failed to get absolute path for %s: %w", path, err)
			}

			info, err := os.Stat(abs)
			if err != nil {
				return fmt.Errorf("failed to stat %s: %w", path, err)
			}

			if err = emit(&walk.File{Path: abs, RelPath: path, Info: info}); err != nil {
				return err
			}
		}

		return nil
	})
}

// openStore opens the saved settings read only. Formatting carries on with the config file alone when there are none.
func openStore(cfg *config.Config) (config.SavedSettings, func()) {
	noop := func() {}

	path, err := store.Path(cfg.SettingsDB)
	if err != nil {
		log.Warnf("ignoring saved settings: %v", err)

		return nil, noop
	}

	s, err := store.OpenReadOnly(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debugf("no saved settings at %s", path)

		return nil, noop
	} else if err != nil {
		log.Warnf("ignoring saved settings: %v", err)

		return nil, noop
	}

	return s, func() {
		if err := s.Close(); err != nil {
			log.Errorf("failed to close settings store: %v", err)
		}
	}
}

func (r *runner) formatStdin(ctx context.Context, cmd *cobra.Command, paths []string) error {
	lang := r.forced

	if len(paths) > 1 || (lang == "" && len(paths) != 1) {
		return errors.New("exactly one path should be specified when using the --stdin flag without --language")
	}

	if lang == "" {
		var ok bool
		if lang, ok = r.detector.Detect(paths[0]); !ok {
			return fmt.Errorf("no formatter for path: %s, specify one with --language", paths[0])
		}
	}

	input, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}

	code := string(input)
	out := cmd.OutOrStdout()

	result := r.svc.Format(ctx, code, lang)

	switch {
	case result.Category == format.CategoryNoInput:
		// hand blank input back untouched
		_, err = io.WriteString(out, code)
	case !result.Success:
		return fmt.Errorf("failed to format stdin as %s: %w", lang, result.Err())
	default:
		_, err = io.WriteString(out, result.Output)
	}

	if err != nil {
		return fmt.Errorf("failed to write to stdout: %w", err)
	}

	if r.cfg.FailOnChange && result.Success && result.Output != code {
		return ErrFailOnChange
	}

	return nil
}

// formatFiles formats every file emitted by source concurrently, writing changes back in place.
func (r *runner) formatFiles(ctx context.Context, source func(ctx context.Context, emit walk.WalkFunc) error) error {
	// create an overall error group for walking and formatting concurrently
	eg, ctx := errgroup.WithContext(ctx)

	filesCh := make(chan *walk.File, BatchSize)

	var failed, changed atomic.Int32

	eg.Go(func() error {
		// close the files channel when we're done walking
		defer close(filesCh)

		return source(ctx, func(file *walk.File) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case filesCh <- file:
				return nil
			}
		})
	})

	eg.Go(func() error {
		// no cancel clause, formatters already started run up to the end or their timeout
		fg := errgroup.Group{}
		// simple optimization to avoid too many concurrent formatters
		fg.SetLimit(runtime.NumCPU())

		for file := range filesCh {
			lang := r.forced
			if lang == "" {
				var ok bool
				if lang, ok = r.detector.Detect(file.RelPath); !ok {
					log.Debugf("no formatter for path: %s", file.RelPath)

					continue
				}
			}

			fg.Go(func() error {
				switch ok, err := formatFile(ctx, r.svc, file, lang); {
				case err != nil:
					failed.Add(1)
					log.Errorf("%s: %v", file.RelPath, err)
				case ok:
					changed.Add(1)
				}

				return nil
			})
		}

		return fg.Wait()
	})

	if err := eg.Wait(); err != nil {
		return err //nolint:wrapcheck
	}

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%w: %d failed", ErrFormatFailed, n)
	}

	if r.cfg.FailOnChange && changed.Load() > 0 {
		return ErrFailOnChange
	}

	return nil
}

// formatFile formats a file in place, reporting whether it changed.
func formatFile(ctx context.Context, svc *format.Service, file *walk.File, lang language.Language) (bool, error) {
	content, err := os.ReadFile(file.Path)
	if err != nil {
		return false, fmt.Errorf("failed to read file: %w", err)
	}

	code := string(content)

	// blank files have nothing to format
	if strings.TrimSpace(code) == "" {
		log.Debugf("skipping blank file: %s", file.RelPath)

		return false, nil
	}

	result := svc.Format(ctx, code, lang)
	if !result.Success {
		return false, result.Err()
	}

	if result.Output == code {
		return false, nil
	}

	if err = os.WriteFile(file.Path, []byte(result.Output), file.Info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("failed to write formatted file: %w", err)
	}

	log.Infof("formatted %s as %s", file.RelPath, lang)

	return true, nil
}
