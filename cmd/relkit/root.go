// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/relkit/relkit/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand creates the relkit command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	g := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "relkit",
		Short: "Cross-compile, package and publish nightly releases",
		Long: TitleStyle.Render("relkit") + SubtitleStyle.Render(" - Cross-compile, package and publish nightly releases") + `

relkit builds a Go application for a list of platforms, packs every binary
into an archive next to a SHA256SUMS.txt manifest, and publishes the
directory as a GitHub prerelease. Re-running the release step reuses the
release and replaces its assets.

Settings are read from 'relkit.cue' in the working directory when present.
Flags override the file.

` + SubtitleStyle.Render("Examples:") + `
  relkit build-release                        Build every target into ./dist
  relkit upload-release --github-sha $SHA     Publish ./dist as a nightly prerelease
  relkit verify-checksums                     Check ./dist against its manifest
  relkit config show --format toml            Print the effective configuration`,
	}

	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default is ./relkit.cue)")

	rootCmd.AddCommand(newBuildReleaseCommand(app, g))
	rootCmd.AddCommand(newUploadReleaseCommand(app, g))
	rootCmd.AddCommand(newVerifyChecksumsCommand(app, g))
	rootCmd.AddCommand(newConfigCommand(app, g))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version != "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}
	// go install records the module version in the binary.
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev (built from source)"
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the relkit version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), getVersionString())
		},
	}
}

// Execute builds the production App and runs the command tree.
// This is called by main.main().
func Execute() {
	os.Exit(execute(context.Background(), NewApp(Dependencies{})))
}

// execute runs the command tree and returns the process exit code.
func execute(ctx context.Context, app *App) int {
	rootCmd := NewRootCommand(app)

	// fang overrides rootCmd.Version, so the version is passed explicitly.
	err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	if err == nil {
		return int(types.ExitSuccess)
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return int(exitErr.Code)
	}
	return int(types.ExitFailure)
}
