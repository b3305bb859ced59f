package format

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/routefmt/routefmt/language"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTimeout = 10 * time.Second

	// defaultStreamGrace bounds how long stream reads may outlive a killed process, e.g. when a descendant escaped the
	// process group while holding on to stdout.
	defaultStreamGrace = 2 * time.Second

	tempFilePattern = "routefmt-*"
)

var errDeadline = errors.New("deadline exceeded")

// Failure is the reason a process did not run to completion.
type Failure int

const (
	FailureNone Failure = iota
	// FailureLaunch means the executable could not be started.
	FailureLaunch
	// FailureTimeout means the deadline elapsed and the process tree was killed.
	FailureTimeout
	// FailureCancelled means the caller's context was cancelled and the process tree was killed.
	FailureCancelled
	// FailureIO means the standard streams or the scratch file could not be read or written.
	FailureIO
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureLaunch:
		return "launch"
	case FailureTimeout:
		return "timeout"
	case FailureCancelled:
		return "cancelled"
	case FailureIO:
		return "io"
	default:
		return fmt.Sprintf("Failure(%d)", int(f))
	}
}

// Request describes one invocation of a formatter.
type Request struct {
	Executable string
	Args       []string
	Input      string
	// Dir is the working directory of the process. Empty means the current directory.
	Dir     string
	Timeout time.Duration
	// Extension of the scratch file, only used by RunWithTempFile.
	Extension string
	// StrictExitCode only accepts a zero exit code as success.
	StrictExitCode bool
	// Stderr optionally receives a copy of the process's standard error as it is produced.
	Stderr io.Writer
}

// ProcessResult is the outcome of running a formatter.
type ProcessResult struct {
	// Success is derived from the exit code and the output, see classify.
	Success bool
	// Output is the candidate formatted code: stdout for the stdin transport, the file's content for the temp file
	// transport.
	Output   string
	Stdout   string
	Stderr   string
	ExitCode int

	Failure Failure
	// Err describes the failure, if any.
	Err error
}

// Runner executes formatter processes. The zero value is ready to use.
// Runner holds no mutable state and may be shared between goroutines.
type Runner struct {
	// ScratchDir receives the scratch files of RunWithTempFile. Defaults to a routefmt directory under os.TempDir().
	ScratchDir string
	// StreamGrace bounds how long pending stream reads may continue once the process tree has been killed.
	StreamGrace time.Duration

	// hooks replaced in tests to simulate I/O failures
	writeFile func(f *os.File, content string) error
	readFile  func(path string) ([]byte, error)
}

// Run pipes req.Input into the process's standard input and collects its standard output as the formatted code.
// Every failure mode is reported through the returned ProcessResult.
func (r *Runner) Run(ctx context.Context, req Request) (res *ProcessResult) {
	defer recoverInto(&res)

	res = r.execute(ctx, &req, strings.NewReader(req.Input))
	if res.Failure != FailureNone {
		return res
	}

	res.Output = res.Stdout
	res.Success = classify(res.ExitCode, res.Output, req.StrictExitCode)

	return res
}

// RunWithTempFile writes req.Input to a scratch file, replaces every occurrence of the file placeholder in req.Args with
// the file's path, runs the process without standard input and reads the file back as the formatted code.
// The scratch file is removed on every path out of this function.
func (r *Runner) RunWithTempFile(ctx context.Context, req Request) (res *ProcessResult) {
	defer recoverInto(&res)

	dir := r.scratchDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return ioFailure(fmt.Errorf("failed to create scratch directory %s: %w", dir, err))
	}

	ext := req.Extension
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	file, err := os.CreateTemp(dir, tempFilePattern+ext)
	if err != nil {
		return ioFailure(fmt.Errorf("failed to create scratch file: %w", err))
	}

	path := file.Name()

	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warnf("failed to remove scratch file %s: %v", path, err)
		}
	}()

	writeErr := r.write(file, req.Input)
	if closeErr := file.Close(); writeErr == nil {
		writeErr = closeErr
	}

	if writeErr != nil {
		return ioFailure(fmt.Errorf("failed to write scratch file %s: %w", path, writeErr))
	}

	args := make([]string, len(req.Args))
	for i, arg := range req.Args {
		args[i] = strings.ReplaceAll(arg, language.FilePlaceholder, path)
	}

	req.Args = args

	res = r.execute(ctx, &req, nil)
	if res.Failure != FailureNone {
		return res
	}

	content, err := r.read(path)
	if err != nil {
		res.Failure = FailureIO
		res.Err = fmt.Errorf("failed to read scratch file %s: %w", path, err)

		return res
	}

	res.Output = string(content)
	res.Success = classify(res.ExitCode, res.Output, req.StrictExitCode)

	return res
}

// execute runs the process under the request's deadline, feeding it input when non-nil.
// Input is written and both output streams are drained concurrently so that a formatter producing a lot of output
// on one stream cannot block on a full pipe while we wait on another.
func (r *Runner) execute(ctx context.Context, req *Request, input io.Reader) *ProcessResult {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeoutCause(ctx, timeout, errDeadline)
	defer cancel()

	// a request superseded before it got to run is never launched
	if ctx.Err() != nil {
		return interrupted(ctx, timeout, &ProcessResult{ExitCode: -1})
	}

	//nolint:gosec
	cmd := exec.CommandContext(ctx, req.Executable, req.Args...)
	cmd.Dir = req.Dir
	cmd.WaitDelay = r.grace()

	// kill the whole process tree rather than just the direct child
	killTreeOnCancel(cmd)

	var (
		stdin          io.WriteCloser
		stdout, stderr io.ReadCloser
		err            error
	)

	if input != nil {
		if stdin, err = cmd.StdinPipe(); err != nil {
			return ioFailure(fmt.Errorf("failed to open stdin: %w", err))
		}
	}

	if stdout, err = cmd.StdoutPipe(); err != nil {
		return ioFailure(fmt.Errorf("failed to open stdout: %w", err))
	}

	if stderr, err = cmd.StderrPipe(); err != nil {
		return ioFailure(fmt.Errorf("failed to open stderr: %w", err))
	}

	if err = cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return interrupted(ctx, timeout, &ProcessResult{ExitCode: -1})
		}

		return &ProcessResult{ExitCode: -1, Failure: FailureLaunch, Err: err}
	}

	// once killed, give the streams a grace period to reach EOF before closing them from our side
	streamsDone := make(chan struct{})
	stopAbort := context.AfterFunc(ctx, func() {
		timer := time.NewTimer(r.grace())
		defer timer.Stop()

		select {
		case <-streamsDone:
		case <-timer.C:
			_ = stdout.Close()
			_ = stderr.Close()
		}
	})

	var outBuf, errBuf bytes.Buffer

	errSink := io.Writer(&errBuf)
	if req.Stderr != nil {
		errSink = io.MultiWriter(&errBuf, req.Stderr)
	}

	eg := errgroup.Group{}

	if stdin != nil {
		eg.Go(func() error {
			_, err := io.Copy(stdin, input)
			_ = stdin.Close()

			// formatters are free to exit without consuming all of their input
			if err != nil && !errors.Is(err, syscall.EPIPE) && !errors.Is(err, os.ErrClosed) {
				return fmt.Errorf("failed to write stdin: %w", err)
			}

			return nil
		})
	}

	eg.Go(func() error {
		return drain(ctx, &outBuf, stdout, "stdout")
	})

	eg.Go(func() error {
		return drain(ctx, errSink, stderr, "stderr")
	})

	streamErr := eg.Wait()

	close(streamsDone)
	stopAbort()

	waitErr := cmd.Wait()

	res := &ProcessResult{
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
		ExitCode: -1,
	}

	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	var exitErr *exec.ExitError

	switch {
	case ctx.Err() != nil && (waitErr != nil || streamErr != nil):
		return interrupted(ctx, timeout, res)
	case streamErr != nil:
		res.Failure = FailureIO
		res.Err = streamErr
	case waitErr != nil && !errors.As(waitErr, &exitErr):
		res.Failure = FailureIO
		res.Err = waitErr
	}

	return res
}

// interrupted marks res as a timeout when the request's own deadline elapsed. Anything ending the caller's context,
// its deadline included, is a cancellation.
func interrupted(ctx context.Context, timeout time.Duration, res *ProcessResult) *ProcessResult {
	if cause := context.Cause(ctx); !errors.Is(cause, errDeadline) {
		res.Failure = FailureCancelled
		res.Err = fmt.Errorf("cancelled: %w", cause)

		return res
	}

	res.Failure = FailureTimeout
	res.Err = fmt.Errorf("timed out after %v", timeout)

	return res
}

func (r *Runner) grace() time.Duration {
	if r.StreamGrace > 0 {
		return r.StreamGrace
	}

	return defaultStreamGrace
}

func (r *Runner) scratchDir() string {
	if r.ScratchDir != "" {
		return r.ScratchDir
	}

	return filepath.Join(os.TempDir(), "routefmt")
}

func (r *Runner) write(f *os.File, content string) error {
	if r.writeFile != nil {
		return r.writeFile(f, content)
	}

	_, err := f.WriteString(content)

	return err //nolint:wrapcheck
}

func (r *Runner) read(path string) ([]byte, error) {
	if r.readFile != nil {
		return r.readFile(path)
	}

	return os.ReadFile(path) //nolint:wrapcheck
}

// drain copies src into dst until EOF. Reads aborted because the process was killed are not errors.
func drain(ctx context.Context, dst io.Writer, src io.Reader, name string) error {
	if _, err := io.Copy(dst, src); err != nil {
		if ctx.Err() != nil && errors.Is(err, os.ErrClosed) {
			return nil
		}

		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	return nil
}

func ioFailure(err error) *ProcessResult {
	return &ProcessResult{ExitCode: -1, Failure: FailureIO, Err: err}
}

func recoverInto(res **ProcessResult) {
	if r := recover(); r != nil {
		*res = ioFailure(fmt.Errorf("unexpected failure: %v", r))
	}
}
