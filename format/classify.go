package format

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"
)

// exitCommandNotFound is what shells exit with when they cannot find the command they were asked to run.
const exitCommandNotFound = 127

var (
	commandNotFound = []string{"command not found", ": not found", "is not recognized as an internal or external command"}
	moduleNotFound  = []string{"Cannot find module", "ERR_MODULE_NOT_FOUND"}
)

// classify decides whether a finished process produced usable output.
//
// Exit code 0 is success. Many formatters exit non-zero when they changed the input or only emitted warnings, so
// any non-empty output also counts as success unless strict is set.
func classify(exitCode int, output string, strict bool) bool {
	if exitCode == 0 {
		return true
	}

	return !strict && output != ""
}

// interpret translates the outcome of a process into a Result. tool names the executable for messages, timeout is the
// bound the process was run with.
func interpret(tool string, res *ProcessResult, timeout time.Duration) Result {
	if res == nil {
		return failed(CategoryUnknown, "%s: no result", tool)
	}

	switch res.Failure {
	case FailureNone:
	case FailureLaunch:
		if errors.Is(res.Err, exec.ErrNotFound) || errors.Is(res.Err, fs.ErrNotExist) {
			return failed(CategoryProcessLaunchFailure,
				"%s not found; install it or set its location under custom-paths in the config file", tool,
			)
		}

		return failed(CategoryProcessLaunchFailure, "failed to launch %s: %v", tool, res.Err)
	case FailureTimeout:
		return failed(CategoryProcessTimeout, "%s timed out after %v and was terminated", tool, timeout)
	case FailureCancelled:
		return failed(CategoryProcessTimeout, "%s was cancelled and terminated", tool)
	case FailureIO:
		return failed(CategoryUnknown, "%s: %v", tool, res.Err)
	default:
		return failed(CategoryUnknown, "%s: %v", tool, res.Err)
	}

	stderr := strings.TrimSpace(res.Stderr)

	if !res.Success {
		switch {
		case containsAny(stderr, moduleNotFound):
			return failed(CategoryMissingPackage, "%s could not load a required package: %s", tool, firstLine(stderr))
		case res.ExitCode == exitCommandNotFound || (res.ExitCode != 0 && containsAny(stderr, commandNotFound)):
			return failed(CategoryProcessLaunchFailure, "%s could not be run: %s", tool, firstLine(stderr))
		case stderr != "":
			return failed(CategoryFormatterReportedError, "%s", stderr)
		default:
			return failed(CategoryFormatterReportedError, "%s exited with code %d and produced no output",
				tool, res.ExitCode,
			)
		}
	}

	// a formatter never turns code into nothing, empty output means it wrote its result elsewhere or not at all
	if res.Output == "" {
		msg := fmt.Sprintf("%s produced no output", tool)
		if stderr != "" {
			msg += ": " + stderr
		}

		return failed(CategoryFormatterReportedError, "%s", msg)
	}

	return Result{Success: true, Output: res.Output, Stderr: res.Stderr}
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}

	return false
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")

	return line
}
