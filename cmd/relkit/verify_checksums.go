// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/relkit/relkit/internal/checksum"
	"github.com/relkit/relkit/internal/issue"
)

func newVerifyChecksumsCommand(app *App, g *globalOptions) *cobra.Command {
	var distDir string

	cmd := &cobra.Command{
		Use:   "verify-checksums",
		Short: "Check the distribution directory against its checksum manifest",
		Long: `Check the distribution directory against its checksum manifest.

Every file listed in the manifest is hashed again. The check fails when a
digest differs, a listed file is missing, or a file is not listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context(), g)
			if err != nil {
				return failure(cmd, err, g.verbose)
			}

			dir := app.path(flagOr(cmd.Flags(), "dist-dir", distDir, cfg.DistDir))
			report, err := checksum.Verify(dir, cfg.ChecksumFile)
			if err != nil {
				return failure(cmd, issue.NewErrorContext().
					WithOperation("verify checksums").
					WithResource(dir).
					WithSuggestion("Run 'relkit build-release' to write the manifest").
					Wrap(err).
					BuildError(), g.verbose)
			}

			printReport(cmd.OutOrStdout(), report)
			if err := report.Err(); err != nil {
				return failure(cmd, err, g.verbose)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&distDir, "dist-dir", "", "directory holding the manifest (default \"dist\")")

	return cmd
}

func printReport(w io.Writer, r *checksum.Report) {
	for _, name := range r.Verified {
		fmt.Fprintf(w, "  %s %s\n", SuccessStyle.Render("✓"), name)
	}
	for _, m := range r.Mismatched {
		fmt.Fprintf(w, "  %s %s %s\n", ErrorStyle.Render("✗"), m.Filename, SubtitleStyle.Render("(digest mismatch)"))
	}
	for _, name := range r.Missing {
		fmt.Fprintf(w, "  %s %s %s\n", ErrorStyle.Render("✗"), name, SubtitleStyle.Render("(missing)"))
	}
	for _, name := range r.Unlisted {
		fmt.Fprintf(w, "  %s %s %s\n", WarningStyle.Render("?"), name, SubtitleStyle.Render("(not in manifest)"))
	}
}
