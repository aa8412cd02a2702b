// SPDX-License-Identifier: MPL-2.0

package history

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/relkit/relkit/internal/execx"
	"github.com/relkit/relkit/internal/testutil"
)

func TestHelperProcess(t *testing.T) { testutil.RunHelperProcess() }

func newGitCLI(rec *testutil.CommandRecorder) *GitCLI {
	return NewGitCLI(execx.NewRunner("git", execx.WithCommandFunc(rec.CommandFunc())))
}

func TestGitCLI_Log(t *testing.T) {
	t.Parallel()

	rec := testutil.NewCommandRecorder()
	rec.On(testutil.Response{
		Stdout: "1111111aaaa\t1111111\tadd uploader\n2222222bbbb\t2222222\tinitial: tabs\tin subject\n",
	}, "git", "log")

	commits, err := newGitCLI(rec).Log(context.Background(), "nightly-20240101-000000-abc1234")
	if err != nil {
		t.Fatalf("Log() error: %v", err)
	}

	want := []Commit{
		{Hash: "1111111aaaa", ShortHash: "1111111", Subject: "add uploader"},
		{Hash: "2222222bbbb", ShortHash: "2222222", Subject: "initial: tabs\tin subject"},
	}
	if !slices.Equal(commits, want) {
		t.Errorf("Log() = %+v, want %+v", commits, want)
	}

	calls := rec.CallsTo("git", "log")
	if len(calls) != 1 {
		t.Fatalf("git log called %d times", len(calls))
	}
	wantArgs := []string{"log", "nightly-20240101-000000-abc1234..HEAD", "--pretty=format:%H%x09%h%x09%s"}
	if !slices.Equal(calls[0].Args, wantArgs) {
		t.Errorf("args = %q, want %q", calls[0].Args, wantArgs)
	}
}

func TestGitCLI_LogWithoutBase(t *testing.T) {
	t.Parallel()

	rec := testutil.NewCommandRecorder()
	if _, err := newGitCLI(rec).Log(context.Background(), ""); err != nil {
		t.Fatalf("Log() error: %v", err)
	}
	if got := rec.Invocations()[0].Args[1]; got != "HEAD" {
		t.Errorf("range = %q, want HEAD", got)
	}
}

func TestGitCLI_LogEmpty(t *testing.T) {
	t.Parallel()

	commits, err := newGitCLI(testutil.NewCommandRecorder()).Log(context.Background(), "v1.0.0")
	if err != nil {
		t.Fatalf("Log() error: %v", err)
	}
	if len(commits) != 0 {
		t.Errorf("Log() = %v, want none", commits)
	}
}

func TestGitCLI_LogFailure(t *testing.T) {
	t.Parallel()

	rec := testutil.NewCommandRecorder()
	rec.On(testutil.Response{ExitCode: 128, Stderr: "fatal: bad revision 'missing..HEAD'"}, "git", "log")

	_, err := newGitCLI(rec).Log(context.Background(), "missing")
	var toolErr *execx.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("Log() error = %v, want *execx.ToolError", err)
	}
	if toolErr.ExitCode != 128 {
		t.Errorf("ExitCode = %d, want 128", toolErr.ExitCode)
	}
}

func TestParseLog_Malformed(t *testing.T) {
	t.Parallel()

	if _, err := parseLog("not a git log line"); err == nil {
		t.Error("parseLog() expected error for malformed line")
	}
}
