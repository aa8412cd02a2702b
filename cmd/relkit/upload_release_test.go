// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/relkit/relkit/internal/testutil"
)

const testSHA = "abc1234def5678abc1234def5678abc1234def56"

var testNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newUploadApp(t *testing.T, rec *testutil.CommandRecorder, files map[string]string) (*App, string) {
	t.Helper()

	dir := t.TempDir()
	if files != nil {
		testutil.WriteFiles(t, filepath.Join(dir, "dist"), files)
	}
	return NewApp(Dependencies{
		ExecCommand: rec.CommandFunc(),
		Clock:       testutil.NewFakeClock(testNow),
		WorkDir:     dir,
	}), dir
}

func TestUploadRelease_CreatesAndUploads(t *testing.T) {
	t.Parallel()

	rec := testutil.NewCommandRecorder()
	rec.On(testutil.Response{ExitCode: 1, Stderr: "release not found"}, "gh", "release", "view")
	app, dir := newUploadApp(t, rec, map[string]string{
		"tool_linux_amd64.tar.gz": "a",
		"SHA256SUMS.txt":          "b",
	})

	stdout, _, err := executeCommand(t, app, "upload-release",
		"--github-sha", testSHA, "--github-token", "tok", "--no-changelog")
	if err != nil {
		t.Fatalf("upload-release error: %v", err)
	}

	tag := "nightly-20260102-030405-abc1234"
	if !strings.Contains(stdout, tag) {
		t.Errorf("stdout = %q, want tag %s", stdout, tag)
	}

	creates := rec.CallsTo("gh", "release", "create")
	if len(creates) != 1 {
		t.Fatalf("create called %d times, want 1", len(creates))
	}
	wantCreate := []string{"release", "create", tag, "--title", tag,
		"--notes", "Automated nightly build for commit " + testSHA, "--prerelease"}
	if !slices.Equal(creates[0].Args, wantCreate) {
		t.Errorf("create args = %q, want %q", creates[0].Args, wantCreate)
	}

	uploads := rec.CallsTo("gh", "release", "upload")
	if len(uploads) != 1 {
		t.Fatalf("upload called %d times, want 1", len(uploads))
	}
	dist := filepath.Join(dir, "dist")
	wantUpload := []string{"release", "upload", tag, "--clobber",
		filepath.Join(dist, "SHA256SUMS.txt"), filepath.Join(dist, "tool_linux_amd64.tar.gz")}
	if !slices.Equal(uploads[0].Args, wantUpload) {
		t.Errorf("upload args = %q, want %q", uploads[0].Args, wantUpload)
	}
}

func TestUploadRelease_ReusesExisting(t *testing.T) {
	t.Parallel()

	rec := testutil.NewCommandRecorder()
	app, _ := newUploadApp(t, rec, map[string]string{"a.zip": "a"})

	stdout, _, err := executeCommand(t, app, "upload-release",
		"--github-sha", testSHA, "--github-token", "tok", "--tag-scheme", "plain")
	if err != nil {
		t.Fatalf("upload-release error: %v", err)
	}
	if n := len(rec.CallsTo("gh", "release", "create")); n != 0 {
		t.Errorf("create called %d times for an existing release", n)
	}
	if n := len(rec.CallsTo("gh", "release", "upload")); n != 1 {
		t.Errorf("upload called %d times, want 1", n)
	}
	if !strings.Contains(stdout, "nightly-abc1234") || !strings.Contains(stdout, "reused") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestUploadRelease_MissingDistDir(t *testing.T) {
	t.Parallel()

	rec := testutil.NewCommandRecorder()
	app, _ := newUploadApp(t, rec, nil)

	_, stderr, err := executeCommand(t, app, "upload-release", "--github-sha", testSHA, "--github-token", "tok")
	if code := exitCodeOf(t, err); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if n := len(rec.Invocations()); n != 0 {
		t.Errorf("release host called %d times before the precondition check", n)
	}
	if !strings.Contains(stderr, "build-release") {
		t.Errorf("stderr = %q, want a suggestion to run build-release", stderr)
	}
}

func TestUploadRelease_EmptyDistDir(t *testing.T) {
	t.Parallel()

	rec := testutil.NewCommandRecorder()
	rec.On(testutil.Response{ExitCode: 1}, "gh", "release", "view")
	app, dir := newUploadApp(t, rec, nil)
	if err := os.Mkdir(filepath.Join(dir, "dist"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, _, err := executeCommand(t, app, "upload-release", "--github-sha", testSHA, "--github-token", "tok", "--no-changelog")
	if err != nil {
		t.Fatalf("upload-release error: %v", err)
	}
	if n := len(rec.CallsTo("gh", "release", "upload")); n != 0 {
		t.Errorf("upload called %d times for an empty directory", n)
	}
}

func TestUploadRelease_UploadFailurePropagatesExitCode(t *testing.T) {
	t.Parallel()

	rec := testutil.NewCommandRecorder()
	rec.On(testutil.Response{ExitCode: 4, Stderr: "HTTP 502"}, "gh", "release", "upload")
	app, _ := newUploadApp(t, rec, map[string]string{"a.zip": "a"})

	_, _, err := executeCommand(t, app, "upload-release", "--github-sha", testSHA, "--github-token", "tok")
	if code := exitCodeOf(t, err); code != 4 {
		t.Errorf("exit code = %d, want 4", code)
	}
}

func TestUploadRelease_MissingSHA(t *testing.T) {
	t.Setenv(envSHA, "")

	rec := testutil.NewCommandRecorder()
	app, _ := newUploadApp(t, rec, map[string]string{"a.zip": "a"})

	_, stderr, err := executeCommand(t, app, "upload-release", "--github-token", "tok")
	if code := exitCodeOf(t, err); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if len(rec.Invocations()) != 0 {
		t.Error("release host called without a commit SHA")
	}
	if !strings.Contains(stderr, envSHA) {
		t.Errorf("stderr = %q, want a hint about %s", stderr, envSHA)
	}
}

func TestUploadRelease_EnvironmentFallback(t *testing.T) {
	t.Setenv(envSHA, testSHA)
	t.Setenv(envToken, "env-token")

	rec := testutil.NewCommandRecorder()
	app, _ := newUploadApp(t, rec, map[string]string{"a.zip": "a"})

	if _, _, err := executeCommand(t, app, "upload-release", "--tag-scheme", "plain"); err != nil {
		t.Fatalf("upload-release error: %v", err)
	}
	views := rec.CallsTo("gh", "release", "view")
	if len(views) != 1 || views[0].Args[2] != "nightly-abc1234" {
		t.Errorf("view calls = %v", views)
	}
}

func TestUploadRelease_APIHostRequiresToken(t *testing.T) {
	t.Setenv(envToken, "")

	rec := testutil.NewCommandRecorder()
	app, _ := newUploadApp(t, rec, map[string]string{"a.zip": "a"})

	_, _, err := executeCommand(t, app, "upload-release", "--github-sha", testSHA, "--host", "api", "--repo", "acme/tool")
	if code := exitCodeOf(t, err); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestUploadRelease_InvalidHost(t *testing.T) {
	t.Parallel()

	rec := testutil.NewCommandRecorder()
	app, _ := newUploadApp(t, rec, map[string]string{"a.zip": "a"})

	_, _, err := executeCommand(t, app, "upload-release", "--github-sha", testSHA, "--github-token", "tok", "--host", "gitlab")
	if code := exitCodeOf(t, err); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestUploadRelease_APIDryRun(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		requests []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r.Method+" "+r.URL.Path+" "+r.Header.Get("Authorization"))
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/repos/acme/tool/releases/tags/"):
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
		case r.URL.Path == "/repos/acme/tool/releases":
			_ = json.NewEncoder(w).Encode([]map[string]string{})
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	t.Cleanup(srv.Close)

	rec := testutil.NewCommandRecorder()
	dir := t.TempDir()
	testutil.WriteFiles(t, filepath.Join(dir, "dist"), map[string]string{"tool.zip": "z"})
	app := NewApp(Dependencies{
		ExecCommand: rec.CommandFunc(),
		HTTPClient:  srv.Client(),
		APIBaseURL:  srv.URL,
		Clock:       testutil.NewFakeClock(testNow),
		WorkDir:     dir,
	})

	stdout, _, err := executeCommand(t, app, "upload-release", "--github-sha", testSHA, "--github-token", "tok",
		"--host", "api", "--repo", "acme/tool", "--dry-run")
	if err != nil {
		t.Fatalf("upload-release --dry-run error: %v", err)
	}
	if !strings.Contains(stdout, "would upload") || !strings.Contains(stdout, "tool.zip") {
		t.Errorf("stdout = %q, want the planned upload", stdout)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, req := range requests {
		if !strings.HasPrefix(req, "GET ") {
			t.Errorf("dry run made a write request: %s", req)
		}
		if !strings.HasSuffix(req, "Bearer tok") {
			t.Errorf("request without token: %s", req)
		}
	}
	if len(requests) != 2 {
		t.Errorf("requests = %v, want the probe and the previous release lookup", requests)
	}
	if len(rec.Invocations()) != 0 {
		t.Errorf("no external tool expected with the api host, got %v", rec.Invocations())
	}
}
