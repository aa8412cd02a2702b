// SPDX-License-Identifier: MPL-2.0

package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/relkit/relkit/pkg/types"
)

// maxStderrTail bounds how much stderr is kept for error messages.
const maxStderrTail = 4 << 10

type (
	// CommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	CommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// RunnerOption configures a Runner.
	RunnerOption func(*Runner)

	// Runner invokes a single external binary. Runners are immutable; WithEnv
	// returns a copy so per-invocation overrides never leak between calls.
	Runner struct {
		binary      string
		execCommand CommandFunc
		env         []string
		dir         string
		stdout      io.Writer
		stderr      io.Writer
		logger      *log.Logger
	}

	// ToolError is returned when an external tool could not be started or
	// exited with a non-zero status.
	ToolError struct {
		Tool     string
		Args     []string
		ExitCode types.ExitCode // -1 when the process never ran to completion
		Stderr   string
		Err      error
	}
)

// WithCommandFunc overrides the exec.Cmd factory (exec.CommandContext by default).
func WithCommandFunc(fn CommandFunc) RunnerOption {
	return func(r *Runner) {
		r.execCommand = fn
	}
}

// WithDir sets the working directory of every invocation.
func WithDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.dir = dir
	}
}

// WithOutput sets where streamed stdout/stderr of Run calls are written.
func WithOutput(stdout, stderr io.Writer) RunnerOption {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithLogger sets the logger used for debug tracing of invocations.
func WithLogger(l *log.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a Runner for binary.
func NewRunner(binary string, opts ...RunnerOption) *Runner {
	r := &Runner{
		binary:      binary,
		execCommand: exec.CommandContext,
		stdout:      os.Stderr,
		stderr:      os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard)
	}
	return r
}

// Binary returns the name or path of the wrapped tool.
func (r *Runner) Binary() string { return r.binary }

// WithEnv returns a copy of r that appends kv ("KEY=value") to the child
// environment. Later entries win, matching os/exec semantics.
func (r *Runner) WithEnv(kv ...string) *Runner {
	cp := *r
	cp.env = append(slices.Clone(r.env), kv...)
	return &cp
}

// Run executes the tool, streaming its output, and returns a *ToolError on failure.
func (r *Runner) Run(ctx context.Context, args ...string) error {
	var tail tailBuffer
	cmd := r.command(ctx, args)
	cmd.Stdout = r.stdout
	cmd.Stderr = io.MultiWriter(r.stderr, &tail)

	if err := cmd.Run(); err != nil {
		return r.toolError(args, tail.String(), err)
	}
	return nil
}

// Output executes the tool and returns its trimmed stdout. Stderr is captured
// for the error message only.
func (r *Runner) Output(ctx context.Context, args ...string) (string, error) {
	var stdout bytes.Buffer
	var tail tailBuffer
	cmd := r.command(ctx, args)
	cmd.Stdout = &stdout
	cmd.Stderr = &tail

	if err := cmd.Run(); err != nil {
		return "", r.toolError(args, tail.String(), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (r *Runner) command(ctx context.Context, args []string) *exec.Cmd {
	r.logger.Debug("running", "cmd", r.binary+" "+strings.Join(args, " "))

	cmd := r.execCommand(ctx, r.binary, args...)
	if len(r.env) > 0 {
		// Keep an environment already set by the factory (test helpers rely on it).
		if cmd.Env == nil {
			cmd.Env = os.Environ()
		}
		cmd.Env = append(cmd.Env, r.env...)
	}
	if r.dir != "" {
		cmd.Dir = r.dir
	}
	return cmd
}

func (r *Runner) toolError(args []string, stderr string, err error) *ToolError {
	code := types.ExitCode(-1)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = types.ExitCode(exitErr.ExitCode())
	}
	return &ToolError{
		Tool:     r.binary,
		Args:     slices.Clone(args),
		ExitCode: code,
		Stderr:   strings.TrimSpace(stderr),
		Err:      err,
	}
}

// Error formats the failed invocation with the tail of its stderr.
func (e *ToolError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", e.Tool, firstArg(e.Args))
	if e.ExitCode >= 0 {
		fmt.Fprintf(&sb, ": exited with status %d", e.ExitCode)
	} else {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	if e.Stderr != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Stderr)
	}
	return sb.String()
}

// Unwrap returns the underlying exec error.
func (e *ToolError) Unwrap() error { return e.Err }

// ExitCodeOf returns the exit code the process should terminate with for err.
// Tool failures propagate the tool's own code; anything else maps to ExitFailure.
func ExitCodeOf(err error) types.ExitCode {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr.ExitCode.OrFailure()
	}
	return types.ExitFailure
}

// firstArg keeps error messages short; full argument lists may carry release notes.
func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		return args[0] + " " + args[1]
	}
	return args[0]
}

// tailBuffer keeps only the last maxStderrTail bytes written to it.
type tailBuffer struct {
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - maxStderrTail; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return string(t.buf) }
