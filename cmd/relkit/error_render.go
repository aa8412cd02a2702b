// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/relkit/relkit/internal/checksum"
	"github.com/relkit/relkit/internal/execx"
	"github.com/relkit/relkit/internal/issue"
	"github.com/relkit/relkit/internal/release"
	"github.com/relkit/relkit/internal/release/ghcli"
	"github.com/relkit/relkit/internal/release/githubapi"
)

// classifyError maps a failure to the issue catalog entry that explains it.
// An ActionableError that already names an issue wins. Zero means no entry.
func classifyError(err error) issue.Id {
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue != 0 {
		return ae.Issue
	}

	var (
		rateErr   *githubapi.RateLimitError
		statusErr *githubapi.StatusError
		toolErr   *execx.ToolError
	)
	switch {
	case errors.Is(err, release.ErrDistDirMissing):
		return issue.DistDirMissingId
	case errors.Is(err, exec.ErrNotFound):
		return issue.ToolNotFoundId
	case errors.Is(err, checksum.ErrChecksumMismatch):
		return issue.ChecksumMismatchId
	case errors.As(err, &rateErr):
		return issue.AuthRequiredId
	case errors.As(err, &statusErr):
		if statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden {
			return issue.AuthRequiredId
		}
		return issue.ReleaseHostFailedId
	case errors.As(err, &toolErr):
		if filepath.Base(toolErr.Tool) == ghcli.Binary {
			return issue.ReleaseHostFailedId
		}
		return issue.BuildFailedId
	default:
		return 0
	}
}

// formatErrorForDisplay uses ActionableError.Format when available, so
// suggestions are shown. In verbose mode the full chain is included.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// renderIssue writes the catalog entry for id. Render failures are ignored;
// the plain error message has already been printed.
func renderIssue(w io.Writer, id issue.Id) {
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	if rendered, err := entry.Render(markdownStyle); err == nil {
		fmt.Fprint(w, rendered)
	}
}

// failure prints err and converts it into an ExitError carrying the code the
// process should end with: the external tool's own code, or 1.
func failure(cmd *cobra.Command, err error, verbose bool) error {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
	if verbose {
		if id := classifyError(err); id != 0 {
			renderIssue(stderr, id)
		}
	}

	return &ExitError{Code: execx.ExitCodeOf(err), Err: err}
}
