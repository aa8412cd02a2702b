// SPDX-License-Identifier: MPL-2.0

package ghcli

import (
	"context"
	"errors"

	"github.com/relkit/relkit/internal/execx"
	"github.com/relkit/relkit/internal/release"
)

// Binary is the default gh executable name.
const Binary = "gh"

var _ release.Host = (*Host)(nil)

type (
	// Option configures a Host.
	Option func(*Host)

	// Host drives "gh release" subcommands.
	Host struct {
		gh    *execx.Runner
		repo  string
		token string
	}
)

// WithRepo targets owner/name instead of the repository of the working directory.
func WithRepo(repo string) Option {
	return func(h *Host) {
		h.repo = repo
	}
}

// WithToken authenticates gh through GH_TOKEN and GITHUB_TOKEN.
func WithToken(token string) Option {
	return func(h *Host) {
		h.token = token
	}
}

// New creates a Host invoking gh through runner.
func New(runner *execx.Runner, opts ...Option) *Host {
	h := &Host{gh: runner}
	for _, opt := range opts {
		opt(h)
	}
	if h.token != "" {
		h.gh = h.gh.WithEnv("GH_TOKEN="+h.token, "GITHUB_TOKEN="+h.token)
	}
	return h
}

// Exists runs "gh release view". A non-zero exit means the release is
// absent; only a failure to run gh at all is returned as an error.
func (h *Host) Exists(ctx context.Context, tag string) (bool, error) {
	_, err := h.gh.Output(ctx, h.args("release", "view", tag)...)
	if err == nil {
		return true, nil
	}
	var toolErr *execx.ToolError
	if errors.As(err, &toolErr) && toolErr.ExitCode > 0 {
		return false, nil
	}
	return false, err
}

// LatestTag returns the tag of the most recent release, or "".
func (h *Host) LatestTag(ctx context.Context) (string, error) {
	return h.gh.Output(ctx, h.args("release", "list", "--limit", "1", "--json", "tagName", "-q", ".[0].tagName")...)
}

// Create runs "gh release create".
func (h *Host) Create(ctx context.Context, req release.CreateRequest) error {
	args := []string{"release", "create", req.Tag, "--title", req.Title, "--notes", req.Notes}
	if req.Prerelease {
		args = append(args, "--prerelease")
	}
	return h.gh.Run(ctx, h.args(args...)...)
}

// Upload runs "gh release upload" for all paths in one invocation.
func (h *Host) Upload(ctx context.Context, tag string, paths []string, clobber bool) error {
	args := []string{"release", "upload", tag}
	if clobber {
		args = append(args, "--clobber")
	}
	return h.gh.Run(ctx, h.args(append(args, paths...)...)...)
}

func (h *Host) args(args ...string) []string {
	if h.repo != "" {
		args = append(args, "--repo", h.repo)
	}
	return args
}
