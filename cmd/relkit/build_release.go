// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/relkit/relkit/internal/build"
	"github.com/relkit/relkit/internal/issue"
)

// buildReleaseParams bundles the inputs of runBuildRelease so the core logic
// can be tested without a Cobra command.
type buildReleaseParams struct {
	stdout  io.Writer
	builder *build.Builder
	opts    build.Options
}

func newBuildReleaseCommand(app *App, g *globalOptions) *cobra.Command {
	var (
		appName       string
		distDir       string
		pkg           string
		ldflags       string
		goBinary      string
		targets       []string
		skipChecksums bool
	)

	cmd := &cobra.Command{
		Use:   "build-release",
		Short: "Cross-compile and package the application for every target",
		Long: `Cross-compile and package the application for every target.

Each target is built with CGO disabled, packed into a single-entry archive
(.zip for windows, .tar.gz otherwise) and the raw binary is removed. The
first compiler failure aborts the step. A SHA256SUMS.txt manifest covering
every file in the distribution directory is written last.`,
		Example: `  # Build the default targets into ./dist
  relkit build-release

  # Build only two platforms
  relkit build-release --target linux/amd64 --target darwin/arm64

  # Embed the version
  relkit build-release --ldflags "-s -w -X main.version=1.2.3"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context(), g)
			if err != nil {
				return failure(cmd, err, g.verbose)
			}

			flags := cmd.Flags()
			opts := build.Options{
				AppName:      flagOr(flags, "app-name", appName, cfg.AppName),
				DistDir:      app.path(flagOr(flags, "dist-dir", distDir, cfg.DistDir)),
				Package:      flagOr(flags, "package", pkg, cfg.Package),
				LDFlags:      flagOr(flags, "ldflags", ldflags, cfg.LDFlags),
				BuildFlags:   cfg.BuildFlags,
				ManifestName: cfg.ChecksumFile,
			}
			if skipChecksums {
				opts.ManifestName = ""
			}
			if opts.AppName == "" {
				if opts.AppName, err = app.defaultAppName(); err != nil {
					return failure(cmd, err, g.verbose)
				}
			}

			targetList := cfg.Targets
			if flags.Changed("target") {
				targetList = targets
			}
			if opts.Targets, err = build.ParseTargets(targetList); err != nil {
				return failure(cmd, err, g.verbose)
			}

			logger := newLogger(cmd.ErrOrStderr(), g.verbose)
			p := buildReleaseParams{
				stdout: cmd.OutOrStdout(),
				builder: build.NewBuilder(
					build.WithGoRunner(app.runner(goBinary, cmd.ErrOrStderr(), logger)),
					build.WithLogger(logger),
				),
				opts: opts,
			}
			if err := runBuildRelease(cmd.Context(), p); err != nil {
				return failure(cmd, err, g.verbose)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&appName, "app-name", "", "artifact base name (default is the working directory name)")
	cmd.Flags().StringVar(&distDir, "dist-dir", "", "output directory (default \"dist\")")
	cmd.Flags().StringVar(&pkg, "package", "", "go package to build (default \".\")")
	cmd.Flags().StringVar(&ldflags, "ldflags", "", "value passed to go build -ldflags (default \"-s -w\")")
	cmd.Flags().StringArrayVar(&targets, "target", nil, "os/arch to build, repeatable (replaces the configured list)")
	cmd.Flags().BoolVar(&skipChecksums, "skip-checksums", false, "do not write the checksum manifest")
	cmd.Flags().StringVar(&goBinary, "go", "go", "go toolchain binary")

	return cmd
}

// runBuildRelease builds every target and prints a summary of the archives.
func runBuildRelease(ctx context.Context, p buildReleaseParams) error {
	result, err := p.builder.Build(ctx, p.opts)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("build release").
			WithResource(p.opts.DistDir).
			WithSuggestion("Run with --verbose to see the compiler invocation").
			WithIssue(classifyError(err)).
			Wrap(err).
			BuildError()
	}

	fmt.Fprintln(p.stdout, TitleStyle.Render("Built artifacts"))
	for _, a := range result.Artifacts {
		fmt.Fprintf(p.stdout, "  %s %s %s\n",
			SuccessStyle.Render("✓"),
			CmdStyle.Render(filepath.Base(a.Archive)),
			SubtitleStyle.Render("("+humanize.Bytes(uint64(a.Size))+")"))
	}
	if result.Manifest != "" {
		fmt.Fprintf(p.stdout, "  %s %s %s\n",
			SuccessStyle.Render("✓"),
			CmdStyle.Render(filepath.Base(result.Manifest)),
			SubtitleStyle.Render(fmt.Sprintf("(%d entries)", len(result.Checksums))))
	}
	return nil
}

// flagOr returns the flag value when the user set it and fallback otherwise,
// so flags override configuration without shadowing it with flag defaults.
func flagOr(flags *pflag.FlagSet, name, value, fallback string) string {
	if flags.Changed(name) {
		return value
	}
	return fallback
}
