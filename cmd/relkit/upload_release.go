// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/relkit/relkit/internal/config"
	"github.com/relkit/relkit/internal/issue"
	"github.com/relkit/relkit/internal/release"
	"github.com/relkit/relkit/pkg/types"
)

const (
	envToken = "GITHUB_TOKEN"
	envSHA   = "GITHUB_SHA"
)

// errMissingInput is returned when a required value was neither passed as a
// flag nor found in the environment.
var errMissingInput = errors.New("missing required input")

// uploadReleaseParams bundles the inputs of runUploadRelease.
type uploadReleaseParams struct {
	stdout    io.Writer
	publisher *release.Publisher
	req       release.Request
}

// uploadReleaseFlags holds the raw flag values of upload-release.
type uploadReleaseFlags struct {
	distDir     string
	token       string
	sha         string
	tagScheme   string
	version     string
	tagPrefix   string
	host        string
	repo        string
	history     string
	noChangelog bool
	dryRun      bool
}

func newUploadReleaseCommand(app *App, g *globalOptions) *cobra.Command {
	f := &uploadReleaseFlags{}

	cmd := &cobra.Command{
		Use:   "upload-release",
		Short: "Create or reuse the release for a commit and upload the distribution directory",
		Long: `Create or reuse the release for a commit and upload the distribution directory.

The release tag is derived from the commit and the tag scheme. When no release
exists for the tag, a prerelease is created with a changelog of the commits
since the previous release, or fallback notes when that history is
unavailable. Every file in the distribution directory is then uploaded,
replacing assets of the same name. An empty directory is not an error.

The token and commit default to the GITHUB_TOKEN and GITHUB_SHA environment
variables.`,
		Example: `  # Publish ./dist for the current CI commit
  relkit upload-release

  # Preview the tag and notes without touching the release host
  relkit upload-release --github-sha $(git rev-parse HEAD) --dry-run

  # Publish a versioned release through the REST API
  relkit upload-release --host api --repo acme/tool --tag-scheme version --version 1.4.0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context(), g)
			if err != nil {
				return failure(cmd, err, g.verbose)
			}

			p, err := app.uploadReleaseParams(cmd, cfg, f, g.verbose)
			if err != nil {
				return failure(cmd, err, g.verbose)
			}
			if err := runUploadRelease(cmd.Context(), p); err != nil {
				return failure(cmd, err, g.verbose)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&f.distDir, "dist-dir", "", "directory whose files are uploaded (default \"dist\")")
	cmd.Flags().StringVar(&f.token, "github-token", "", "GitHub token (default $"+envToken+")")
	cmd.Flags().StringVar(&f.sha, "github-sha", "", "commit SHA the release is built from (default $"+envSHA+")")
	cmd.Flags().StringVar(&f.tagScheme, "tag-scheme", "", "tag scheme: timestamp, plain or version (default \"timestamp\")")
	cmd.Flags().StringVar(&f.version, "version", "", "semantic version used by the version tag scheme")
	cmd.Flags().StringVar(&f.tagPrefix, "tag-prefix", "", "prefix of timestamp and plain tags (default \"nightly\")")
	cmd.Flags().StringVar(&f.host, "host", "", "release host: gh or api (default \"gh\")")
	cmd.Flags().StringVar(&f.repo, "repo", "", "repository as owner/name (required with --host api)")
	cmd.Flags().StringVar(&f.history, "history", "", "history backend: git or gogit (default \"git\")")
	cmd.Flags().BoolVar(&f.noChangelog, "no-changelog", false, "always use the fallback release notes")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "resolve tag, notes and assets without creating or uploading")

	return cmd
}

// uploadReleaseParams merges flags, environment and configuration and wires
// the publisher.
func (a *App) uploadReleaseParams(cmd *cobra.Command, cfg *config.Config, f *uploadReleaseFlags, verbose bool) (uploadReleaseParams, error) {
	flags := cmd.Flags()
	rel := cfg.Release

	sha := flagOr(flags, "github-sha", f.sha, os.Getenv(envSHA))
	if sha == "" {
		return uploadReleaseParams{}, issue.NewErrorContext().
			WithOperation("resolve commit").
			WithSuggestion("Pass --github-sha or set " + envSHA).
			Wrap(fmt.Errorf("%w: commit SHA", errMissingInput)).
			BuildError()
	}
	token := flagOr(flags, "github-token", f.token, os.Getenv(envToken))

	hostKind := config.HostKind(flagOr(flags, "host", f.host, string(rel.Host)))
	if err := hostKind.Validate(); err != nil {
		return uploadReleaseParams{}, err
	}
	backend := config.HistoryBackend(flagOr(flags, "history", f.history, string(rel.History)))
	if err := backend.Validate(); err != nil {
		return uploadReleaseParams{}, err
	}

	logger := newLogger(cmd.ErrOrStderr(), verbose)
	if token == "" {
		if hostKind == config.HostAPI {
			return uploadReleaseParams{}, issue.NewErrorContext().
				WithOperation("authenticate with GitHub").
				WithSuggestion("Pass --github-token or set " + envToken).
				WithIssue(issue.AuthRequiredId).
				Wrap(fmt.Errorf("%w: GitHub token", errMissingInput)).
				BuildError()
		}
		logger.Warn("no GitHub token given, relying on gh authentication")
	}

	host, err := a.newHost(hostRequest{
		kind:   hostKind,
		repo:   flagOr(flags, "repo", f.repo, rel.Repo),
		token:  token,
		sha:    sha,
		stderr: cmd.ErrOrStderr(),
		logger: logger,
	})
	if err != nil {
		return uploadReleaseParams{}, err
	}

	changelog := rel.Changelog && !f.noChangelog
	pubOpts := []release.Option{
		release.WithClock(a.clock),
		release.WithLogger(logger),
	}
	if changelog {
		hist, err := a.newHistory(backend, cmd.ErrOrStderr(), logger)
		if err != nil {
			return uploadReleaseParams{}, err
		}
		pubOpts = append(pubOpts, release.WithHistory(hist))
	}

	return uploadReleaseParams{
		stdout:    cmd.OutOrStdout(),
		publisher: release.NewPublisher(host, pubOpts...),
		req: release.Request{
			DistDir:       a.path(flagOr(flags, "dist-dir", f.distDir, cfg.DistDir)),
			SHA:           types.CommitSHA(sha),
			Scheme:        release.TagScheme(flagOr(flags, "tag-scheme", f.tagScheme, rel.TagScheme)),
			Prefix:        flagOr(flags, "tag-prefix", f.tagPrefix, rel.TagPrefix),
			Version:       f.version,
			Changelog:     changelog,
			FallbackNotes: rel.FallbackNotes,
			DryRun:        f.dryRun,
		},
	}, nil
}

// runUploadRelease publishes the release and prints what happened.
func runUploadRelease(ctx context.Context, p uploadReleaseParams) error {
	result, err := p.publisher.Publish(ctx, p.req)
	if err != nil {
		if errors.Is(err, release.ErrDistDirMissing) {
			return issue.NewErrorContext().
				WithOperation("upload release assets").
				WithResource(p.req.DistDir).
				WithSuggestion("Run 'relkit build-release' first").
				WithSuggestion("Pass the build output directory with --dist-dir").
				WithIssue(issue.DistDirMissingId).
				Wrap(err).
				BuildError()
		}
		return issue.NewErrorContext().
			WithOperation("publish release").
			WithSuggestion("Re-running upload-release is safe: the release is reused and assets are replaced").
			WithIssue(classifyError(err)).
			Wrap(err).
			BuildError()
	}

	printUploadResult(p.stdout, result)
	return nil
}

func printUploadResult(w io.Writer, result *release.Result) {
	state := "created"
	switch {
	case result.Existed:
		state = "reused"
	case result.DryRun:
		state = "would be created"
	}
	fmt.Fprintf(w, "%s %s %s\n", TitleStyle.Render("Release"), CmdStyle.Render(result.Tag), SubtitleStyle.Render("("+state+")"))

	if result.Notes != nil && result.Notes.Source == release.NotesFallback {
		fmt.Fprintf(w, "  %s fallback notes: %s\n", WarningStyle.Render("!"), result.Notes.FallbackReason)
	}

	if result.DryRun {
		for _, asset := range result.Assets {
			fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("would upload"), CmdStyle.Render(filepath.Base(asset)))
		}
		if result.Notes != nil {
			renderNotes(w, result.Notes.Body)
		}
		return
	}

	if len(result.Assets) == 0 {
		fmt.Fprintf(w, "  %s no files to upload\n", WarningStyle.Render("!"))
		return
	}
	for _, asset := range result.Assets {
		fmt.Fprintf(w, "  %s %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(filepath.Base(asset)))
	}
}

// renderNotes prints the release notes as rendered markdown, falling back
// to the raw text.
func renderNotes(w io.Writer, body string) {
	rendered, err := glamour.Render(body, markdownStyle)
	if err != nil {
		rendered = body + "\n"
	}
	fmt.Fprint(w, rendered)
}
