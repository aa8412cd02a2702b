// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/relkit/relkit/internal/config"
	"github.com/relkit/relkit/internal/execx"
	"github.com/relkit/relkit/internal/history"
	"github.com/relkit/relkit/internal/issue"
	"github.com/relkit/relkit/internal/release"
	"github.com/relkit/relkit/internal/release/ghcli"
	"github.com/relkit/relkit/internal/release/githubapi"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every Cobra handler receives an App and creates
	// its tool runners and release host through it.
	App struct {
		Config      ConfigProvider
		execCommand execx.CommandFunc
		httpClient  *http.Client
		apiBaseURL  string
		clock       release.Clock
		workDir     string
	}

	// Dependencies defines the injection points for building an App. Zero
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		// ExecCommand starts every external tool (go, gh, git).
		ExecCommand execx.CommandFunc
		// HTTPClient and APIBaseURL configure the REST release host.
		HTTPClient *http.Client
		APIBaseURL string
		Clock      release.Clock
		// WorkDir anchors relative paths and is where the config file, the
		// go package and the git repository are looked up. Empty means the
		// process working directory.
		WorkDir string
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// globalOptions holds the persistent root flags.
	globalOptions struct {
		configPath string
		verbose    bool
	}

	wallClock struct{}
)

func (wallClock) Now() time.Time { return time.Now() }

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.ExecCommand == nil {
		deps.ExecCommand = exec.CommandContext
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = http.DefaultClient
	}
	if deps.Clock == nil {
		deps.Clock = wallClock{}
	}

	return &App{
		Config:      deps.Config,
		execCommand: deps.ExecCommand,
		httpClient:  deps.HTTPClient,
		apiBaseURL:  deps.APIBaseURL,
		clock:       deps.Clock,
		workDir:     deps.WorkDir,
	}
}

// newLogger creates the stderr progress logger shared by one command run.
func newLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: config.AppName,
		Level:  level,
	})
}

// loadConfig loads the configuration selected by the global flags.
func (a *App) loadConfig(ctx context.Context, g *globalOptions) (*config.Config, error) {
	opts := config.LoadOptions{ConfigFilePath: a.path(g.configPath), Dir: a.workDir}
	cfg, err := a.Config.Load(ctx, opts)
	if err == nil {
		return cfg, nil
	}

	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return nil, err
	}
	return nil, issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(config.FilePath(opts)).
		WithSuggestion("Run 'relkit config show' to print the effective configuration").
		WithIssue(issue.ConfigLoadFailedId).
		Wrap(err).
		BuildError()
}

// path resolves p against the work directory. Empty stays empty.
func (a *App) path(p string) string {
	if p == "" || a.workDir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.workDir, p)
}

// defaultAppName is the base name of the work directory.
func (a *App) defaultAppName() (string, error) {
	dir := a.workDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolving working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	return filepath.Base(abs), nil
}

// runner creates a Runner for binary whose streamed output goes to stderr,
// keeping stdout for the command's own summary.
func (a *App) runner(binary string, stderr io.Writer, logger *log.Logger) *execx.Runner {
	opts := []execx.RunnerOption{
		execx.WithCommandFunc(a.execCommand),
		execx.WithOutput(stderr, stderr),
		execx.WithLogger(logger),
	}
	if a.workDir != "" {
		opts = append(opts, execx.WithDir(a.workDir))
	}
	return execx.NewRunner(binary, opts...)
}

// hostRequest carries the inputs needed to construct a release host.
type hostRequest struct {
	kind   config.HostKind
	repo   string
	token  string
	sha    string
	stderr io.Writer
	logger *log.Logger
}

// newHost creates the release host selected by req.kind.
func (a *App) newHost(req hostRequest) (release.Host, error) {
	switch req.kind {
	case config.HostGH:
		var opts []ghcli.Option
		if req.repo != "" {
			opts = append(opts, ghcli.WithRepo(req.repo))
		}
		if req.token != "" {
			opts = append(opts, ghcli.WithToken(req.token))
		}
		return ghcli.New(a.runner(ghcli.Binary, req.stderr, req.logger), opts...), nil
	case config.HostAPI:
		opts := []githubapi.Option{
			githubapi.WithHTTPClient(a.httpClient),
			githubapi.WithToken(req.token),
			githubapi.WithUserAgent(config.AppName + "/" + Version),
			githubapi.WithTargetCommitish(req.sha),
		}
		if a.apiBaseURL != "" {
			opts = append(opts, githubapi.WithBaseURL(a.apiBaseURL))
		}
		return githubapi.New(req.repo, opts...)
	default:
		return nil, req.kind.Validate()
	}
}

// newHistory creates the commit history reader selected by backend.
func (a *App) newHistory(backend config.HistoryBackend, stderr io.Writer, logger *log.Logger) (release.History, error) {
	switch backend {
	case config.HistoryGit:
		return history.NewGitCLI(a.runner("git", stderr, logger)), nil
	case config.HistoryGoGit:
		dir := a.workDir
		if dir == "" {
			dir = "."
		}
		return history.NewGoGit(dir), nil
	default:
		return nil, backend.Validate()
	}
}
