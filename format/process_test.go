//go:build !windows

package format_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/routefmt/routefmt/format"
	"github.com/routefmt/routefmt/test"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	as := require.New(t)

	bin := t.TempDir()
	runner := &format.Runner{}

	// echo the input back
	cat := test.Tool(t, bin, "cat-tool", "cat\n")

	res := runner.Run(context.Background(), format.Request{Executable: cat, Input: "hello\n", Timeout: time.Second})
	as.Equal(format.FailureNone, res.Failure)
	as.NoError(res.Err)
	as.True(res.Success)
	as.Equal(0, res.ExitCode)
	as.Equal("hello\n", res.Output)

	// arguments are passed through untouched
	args := test.Tool(t, bin, "args-tool", `echo "$@"`+"\n")

	res = runner.Run(context.Background(), format.Request{
		Executable: args,
		Args:       []string{"--quote-style=single", "with space"},
		Input:      "x",
	})
	as.True(res.Success)
	as.Equal("--quote-style=single with space\n", res.Output)

	// the working directory is honoured
	dir := t.TempDir()
	pwd := test.Tool(t, bin, "pwd-tool", "pwd -P\n")

	res = runner.Run(context.Background(), format.Request{Executable: pwd, Input: "x", Dir: dir})
	as.True(res.Success)

	expected, err := filepath.EvalSymlinks(dir)
	as.NoError(err)
	as.Equal(expected+"\n", res.Output)
}

func TestRunExitCodes(t *testing.T) {
	as := require.New(t)

	bin := t.TempDir()
	runner := &format.Runner{}

	// exit 1 with output is a success
	changed := test.Tool(t, bin, "changed", "cat\nexit 1\n")

	res := runner.Run(context.Background(), format.Request{Executable: changed, Input: "x = 1\n"})
	as.Equal(format.FailureNone, res.Failure)
	as.True(res.Success)
	as.Equal(1, res.ExitCode)
	as.Equal("x = 1\n", res.Output)

	// unless the formatter is strict about it
	res = runner.Run(context.Background(), format.Request{Executable: changed, Input: "x = 1\n", StrictExitCode: true})
	as.False(res.Success)
	as.Equal(1, res.ExitCode)

	// non-zero without output fails, stderr is kept
	broken := test.Tool(t, bin, "broken", test.Broken)

	res = runner.Run(context.Background(), format.Request{Executable: broken, Input: "x = 1\n"})
	as.Equal(format.FailureNone, res.Failure)
	as.False(res.Success)
	as.Equal(2, res.ExitCode)
	as.Equal("unexpected token at 1:1\n", res.Stderr)

	// stderr is kept on success too
	warns := test.Tool(t, bin, "warns", "echo 'deprecated option' >&2\ncat\n")

	res = runner.Run(context.Background(), format.Request{Executable: warns, Input: "y\n"})
	as.True(res.Success)
	as.Equal("y\n", res.Output)
	as.Equal("deprecated option\n", res.Stderr)
}

func TestRunLaunchFailure(t *testing.T) {
	as := require.New(t)

	runner := &format.Runner{}

	res := runner.Run(context.Background(), format.Request{
		Executable: filepath.Join(t.TempDir(), "missing"),
		Input:      "x = 1\n",
	})
	as.Equal(format.FailureLaunch, res.Failure)
	as.False(res.Success)
	as.True(errors.Is(res.Err, fs.ErrNotExist))
}

func TestRunStreams(t *testing.T) {
	as := require.New(t)

	bin := t.TempDir()
	runner := &format.Runner{}

	// large amounts of output on both streams must not block on a full pipe
	tee := test.Tool(t, bin, "tee-tool", "tee /dev/stderr\n")
	input := strings.Repeat("0123456789abcdef", 1<<16)

	res := runner.Run(context.Background(), format.Request{Executable: tee, Input: input, Timeout: 10 * time.Second})
	as.Equal(format.FailureNone, res.Failure)
	as.True(res.Success)
	as.Equal(input, res.Output)
	as.Equal(input, res.Stderr)

	// formatters may exit without reading their input
	ignores := test.Tool(t, bin, "ignores", "echo formatted\n")

	res = runner.Run(context.Background(), format.Request{Executable: ignores, Input: input})
	as.Equal(format.FailureNone, res.Failure)
	as.True(res.Success)
	as.Equal("formatted\n", res.Output)

	// stderr is copied to the request's writer as it arrives
	var sb strings.Builder

	warns := test.Tool(t, bin, "warns", "echo 'line one' >&2\necho 'line two' >&2\ncat\n")

	res = runner.Run(context.Background(), format.Request{Executable: warns, Input: "x", Stderr: &sb})
	as.True(res.Success)
	as.Equal("line one\nline two\n", sb.String())
}

func TestRunTimeout(t *testing.T) {
	as := require.New(t)

	bin := t.TempDir()
	pidFile := filepath.Join(t.TempDir(), "pid")

	// spawn a child which holds on to stdout, then wait for it
	script := test.Tool(t, bin, "slow", `sleep 30 &
echo $! > "$1"
wait
`)

	runner := &format.Runner{StreamGrace: 500 * time.Millisecond}

	start := time.Now()
	res := runner.Run(context.Background(), format.Request{
		Executable: script,
		Args:       []string{pidFile},
		Input:      "x = 1\n",
		Timeout:    300 * time.Millisecond,
	})
	elapsed := time.Since(start)

	as.Equal(format.FailureTimeout, res.Failure)
	as.False(res.Success)
	as.ErrorContains(res.Err, "300ms")
	as.Less(elapsed, 5*time.Second)

	// the child was killed along with the script
	content, err := os.ReadFile(pidFile)
	as.NoError(err)

	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	as.NoError(err)

	as.Eventually(func() bool {
		return !alive(pid)
	}, 5*time.Second, 50*time.Millisecond, "child process %d survived the timeout", pid)
}

func TestRunCancelled(t *testing.T) {
	as := require.New(t)

	bin := t.TempDir()
	script := test.Tool(t, bin, "slow", "sleep 30\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.AfterFunc(200*time.Millisecond, cancel)

	runner := &format.Runner{}

	start := time.Now()
	res := runner.Run(ctx, format.Request{Executable: script, Input: "x", Timeout: 20 * time.Second})

	as.Equal(format.FailureCancelled, res.Failure)
	as.False(res.Success)
	as.Less(time.Since(start), 5*time.Second)
}

func TestRunCancelledBeforeStart(t *testing.T) {
	as := require.New(t)

	bin := t.TempDir()
	scratch := t.TempDir()
	marker := filepath.Join(bin, "started")

	// leaves a marker behind if it ever runs
	tool := test.Tool(t, bin, "tool", "touch "+marker+"\ncat\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &format.Runner{ScratchDir: scratch}

	res := runner.Run(ctx, format.Request{Executable: tool, Input: "x = 1\n"})
	as.Equal(format.FailureCancelled, res.Failure)
	as.ErrorIs(res.Err, context.Canceled)
	as.False(res.Success)

	res = runner.RunWithTempFile(ctx, format.Request{Executable: tool, Args: []string{"{file}"}, Input: "x", Extension: ".kt"})
	as.Equal(format.FailureCancelled, res.Failure)
	as.False(res.Success)
	assertEmptyDir(t, scratch)

	// an elapsed caller deadline is a cancellation too, never a launch failure
	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()

	res = runner.Run(expired, format.Request{Executable: tool, Input: "x = 1\n"})
	as.Equal(format.FailureCancelled, res.Failure)
	as.ErrorIs(res.Err, context.DeadlineExceeded)

	_, err := os.Stat(marker)
	as.ErrorIs(err, fs.ErrNotExist, "the formatter was launched")
}

func TestRunWithTempFile(t *testing.T) {
	as := require.New(t)

	bin := t.TempDir()
	scratch := filepath.Join(t.TempDir(), "nested", "scratch")

	// report the path, rewrite the file and complain via the exit code
	script := test.Tool(t, bin, "fixer", `echo "$1" >&2
printf 'formatted\n' > "$2"
exit 1
`)

	runner := &format.Runner{ScratchDir: scratch}

	req := format.Request{
		Executable: script,
		Args:       []string{"--path={file}", "{file}"},
		Input:      "<?php echo 1;",
		Extension:  "php",
	}

	res := runner.RunWithTempFile(context.Background(), req)
	as.Equal(format.FailureNone, res.Failure)
	as.NoError(res.Err)
	as.True(res.Success)
	as.Equal("formatted\n", res.Output)

	path := strings.TrimPrefix(strings.TrimSpace(res.Stderr), "--path=")
	as.Equal(scratch, filepath.Dir(path))
	as.True(strings.HasPrefix(filepath.Base(path), "routefmt-"))
	as.Equal(".php", filepath.Ext(path))
	as.NoFileExists(path)

	// strict formatters need exit code 0
	req.StrictExitCode = true

	res = runner.RunWithTempFile(context.Background(), req)
	as.False(res.Success)
	as.Equal(1, res.ExitCode)

	assertEmptyDir(t, scratch)
}

func TestRunWithTempFileCleanup(t *testing.T) {
	as := require.New(t)

	bin := t.TempDir()
	scratch := t.TempDir()

	fixer := test.Tool(t, bin, "fixer", `echo fixed >> "$1"`+"\n")
	req := format.Request{Executable: fixer, Args: []string{"{file}"}, Input: "x", Extension: ".kt"}

	// failing to write the input
	runner := &format.Runner{ScratchDir: scratch}
	runner.SetWriteFile(func(_ *os.File, _ string) error {
		return errors.New("disk full")
	})

	res := runner.RunWithTempFile(context.Background(), req)
	as.Equal(format.FailureIO, res.Failure)
	as.ErrorContains(res.Err, "disk full")
	assertEmptyDir(t, scratch)

	// failing to read the result
	runner = &format.Runner{ScratchDir: scratch}
	runner.SetReadFile(func(_ string) ([]byte, error) {
		return nil, errors.New("i/o error")
	})

	res = runner.RunWithTempFile(context.Background(), req)
	as.Equal(format.FailureIO, res.Failure)
	as.ErrorContains(res.Err, "i/o error")
	assertEmptyDir(t, scratch)

	// launch failure
	runner = &format.Runner{ScratchDir: scratch}
	missing := req
	missing.Executable = filepath.Join(bin, "missing")

	res = runner.RunWithTempFile(context.Background(), missing)
	as.Equal(format.FailureLaunch, res.Failure)
	assertEmptyDir(t, scratch)

	// timeout
	slow := req
	slow.Executable = test.Tool(t, bin, "slow", "sleep 30\n")
	slow.Timeout = 200 * time.Millisecond

	res = runner.RunWithTempFile(context.Background(), slow)
	as.Equal(format.FailureTimeout, res.Failure)
	assertEmptyDir(t, scratch)

	// and the happy path
	res = runner.RunWithTempFile(context.Background(), req)
	as.True(res.Success)
	as.Equal("xfixed\n", res.Output)
	assertEmptyDir(t, scratch)
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "scratch files left behind in %s", dir)
}

// alive reports whether pid refers to a running process. Zombies count as dead since they have already exited.
func alive(pid int) bool {
	if err := syscall.Kill(pid, 0); err != nil {
		return false
	}

	stat, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		// no procfs, trust the signal
		return true
	}

	// the state follows the parenthesised command name
	fields := strings.Fields(string(stat[strings.LastIndexByte(string(stat), ')')+1:]))

	return len(fields) == 0 || fields[0] != "Z"
}
