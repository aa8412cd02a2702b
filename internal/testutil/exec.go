// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
)

const helperProcessEnv = "GO_WANT_HELPER_PROCESS"

type (
	// CommandRecorder fakes external tools. Every invocation is recorded and
	// answered by re-executing the test binary into TestHelperProcess, which
	// replays the configured Response.
	//
	// Each test package that uses it must define:
	//
	//	func TestHelperProcess(t *testing.T) { testutil.RunHelperProcess() }
	CommandRecorder struct {
		mu          sync.Mutex
		invocations []Invocation
		rules       []commandRule
		// Default answers invocations that match no rule.
		Default Response
	}

	// Invocation is a single recorded call.
	Invocation struct {
		Name string
		Args []string
	}

	// Response describes what the fake process does.
	Response struct {
		Stdout   string
		Stderr   string
		ExitCode int
		// WriteOutput makes the fake write a file at the path following "-o",
		// containing the GOOS/GOARCH/CGO_ENABLED values it was started with.
		WriteOutput bool
	}

	commandRule struct {
		prefix []string
		resp   Response
	}
)

// NewCommandRecorder creates a recorder whose default response is a silent success.
func NewCommandRecorder() *CommandRecorder {
	return &CommandRecorder{}
}

// On registers resp for invocations whose tool base name and leading
// arguments equal prefix (e.g. On(resp, "gh", "release", "view")).
// Rules are checked in registration order.
func (m *CommandRecorder) On(resp Response, prefix ...string) *CommandRecorder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, commandRule{prefix: prefix, resp: resp})
	return m
}

// CommandFunc returns a drop-in replacement for exec.CommandContext.
func (m *CommandRecorder) CommandFunc() func(ctx context.Context, name string, args ...string) *exec.Cmd {
	return func(_ context.Context, name string, args ...string) *exec.Cmd {
		resp := m.record(name, args)

		cs := []string{"-test.run=TestHelperProcess", "--", name}
		cs = append(cs, args...)
		//nolint:gosec // TestHelperProcess is a test-only pattern
		cmd := exec.Command(os.Args[0], cs...) //nolint:noctx // exec.Command used intentionally for test helper
		cmd.Env = []string{
			helperProcessEnv + "=1",
			"GO_HELPER_EXIT_CODE=" + strconv.Itoa(resp.ExitCode),
			"GO_HELPER_STDOUT=" + resp.Stdout,
			"GO_HELPER_STDERR=" + resp.Stderr,
		}
		if resp.WriteOutput {
			cmd.Env = append(cmd.Env, "GO_HELPER_WRITE_OUTPUT=1")
		}
		return cmd
	}
}

// Invocations returns a copy of every recorded call.
func (m *CommandRecorder) Invocations() []Invocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.invocations)
}

// CallsTo returns the recorded calls matching prefix, like On.
func (m *CommandRecorder) CallsTo(prefix ...string) []Invocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Invocation
	for _, inv := range m.invocations {
		if matchesPrefix(inv.Name, inv.Args, prefix) {
			out = append(out, inv)
		}
	}
	return out
}

func (m *CommandRecorder) record(name string, args []string) Response {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invocations = append(m.invocations, Invocation{Name: name, Args: slices.Clone(args)})
	for _, r := range m.rules {
		if matchesPrefix(name, args, r.prefix) {
			return r.resp
		}
	}
	return m.Default
}

func matchesPrefix(name string, args, prefix []string) bool {
	if len(prefix) == 0 {
		return true
	}
	if filepath.Base(name) != prefix[0] {
		return false
	}
	rest := prefix[1:]
	return len(args) >= len(rest) && slices.Equal(args[:len(rest)], rest)
}

// RunHelperProcess replays the Response configured by CommandRecorder. It
// returns immediately when the test binary was not started as a fake tool.
func RunHelperProcess() {
	if os.Getenv(helperProcessEnv) != "1" {
		return
	}

	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}

	if os.Getenv("GO_HELPER_WRITE_OUTPUT") == "1" {
		for i := 0; i < len(args)-1; i++ {
			if args[i] != "-o" {
				continue
			}
			content := fmt.Sprintf("GOOS=%s\nGOARCH=%s\nCGO_ENABLED=%s\n",
				os.Getenv("GOOS"), os.Getenv("GOARCH"), os.Getenv("CGO_ENABLED"))
			if err := os.WriteFile(args[i+1], []byte(content), 0o755); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
		}
	}

	if stdout := os.Getenv("GO_HELPER_STDOUT"); stdout != "" {
		fmt.Fprint(os.Stdout, stdout)
	}
	if stderr := os.Getenv("GO_HELPER_STDERR"); stderr != "" {
		fmt.Fprint(os.Stderr, stderr)
	}

	exitCode, _ := strconv.Atoi(os.Getenv("GO_HELPER_EXIT_CODE")) //nolint:errcheck // Missing value means success.
	os.Exit(exitCode)
}
