// SPDX-License-Identifier: MPL-2.0

package execx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/relkit/relkit/internal/testutil"
	"github.com/relkit/relkit/pkg/types"
)

func TestHelperProcess(t *testing.T) { testutil.RunHelperProcess() }

func newTestRunner(rec *testutil.CommandRecorder, binary string) *Runner {
	return NewRunner(binary,
		WithCommandFunc(rec.CommandFunc()),
		WithOutput(io.Discard, io.Discard),
	)
}

func TestRunner_OutputTrimsStdout(t *testing.T) {
	t.Parallel()

	rec := testutil.NewCommandRecorder()
	rec.On(testutil.Response{Stdout: "  v1.2.3\n"}, "gh", "release", "list")

	got, err := newTestRunner(rec, "gh").Output(context.Background(), "release", "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "v1.2.3" {
		t.Errorf("Output() = %q, want %q", got, "v1.2.3")
	}
}

func TestRunner_FailureBecomesToolError(t *testing.T) {
	t.Parallel()

	rec := testutil.NewCommandRecorder()
	rec.Default = testutil.Response{Stderr: "compile error", ExitCode: 2}

	err := newTestRunner(rec, "go").Run(context.Background(), "build", "-o", "bin", ".")
	if err == nil {
		t.Fatal("expected error")
	}

	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected *ToolError, got %T", err)
	}
	if toolErr.ExitCode != 2 {
		t.Errorf("ExitCode = %d, want 2", toolErr.ExitCode)
	}
	if toolErr.Stderr != "compile error" {
		t.Errorf("Stderr = %q, want %q", toolErr.Stderr, "compile error")
	}
	if !strings.Contains(err.Error(), "go build: exited with status 2") {
		t.Errorf("unexpected message: %s", err)
	}
}

func TestRunner_WithEnvDoesNotLeak(t *testing.T) {
	t.Parallel()

	base := NewRunner("go")
	a := base.WithEnv("GOOS=linux")
	b := base.WithEnv("GOOS=windows")

	if len(base.env) != 0 {
		t.Errorf("base runner env mutated: %v", base.env)
	}
	if a.env[0] != "GOOS=linux" || b.env[0] != "GOOS=windows" {
		t.Errorf("copies share env: a=%v b=%v", a.env, b.env)
	}
}

func TestExitCodeOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want types.ExitCode
	}{
		{"plain error", errors.New("boom"), types.ExitFailure},
		{"tool exit code", &ToolError{Tool: "gh", ExitCode: 4}, 4},
		{"wrapped tool error", fmt.Errorf("upload: %w", &ToolError{Tool: "gh", ExitCode: 3}), 3},
		{"never started", &ToolError{Tool: "gh", ExitCode: -1}, types.ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExitCodeOf(tt.err); got != tt.want {
				t.Errorf("ExitCodeOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTailBufferKeepsEnd(t *testing.T) {
	t.Parallel()

	var tb tailBuffer
	_, _ = tb.Write([]byte(strings.Repeat("a", maxStderrTail)))
	_, _ = tb.Write([]byte("END"))

	s := tb.String()
	if len(s) != maxStderrTail {
		t.Fatalf("len = %d, want %d", len(s), maxStderrTail)
	}
	if !strings.HasSuffix(s, "END") {
		t.Errorf("tail lost the most recent bytes")
	}
}
