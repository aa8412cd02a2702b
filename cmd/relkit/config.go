// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/relkit/relkit/internal/config"
	"github.com/relkit/relkit/internal/issue"
)

const (
	formatCUE  = "cue"
	formatTOML = "toml"
)

// errUnknownFormat is returned for an unsupported --format value.
var errUnknownFormat = errors.New("unknown output format")

// newConfigCommand creates the `relkit config` command tree.
func newConfigCommand(app *App, g *globalOptions) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create relkit configuration",
		Long: `Inspect and create relkit configuration.

Configuration is read from relkit.cue in the working directory, or from the
file given with --config. Environment variables prefixed with RELKIT_
override file values (e.g. RELKIT_DIST_DIR, RELKIT_RELEASE_HOST).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context(), g)
			if err != nil {
				return failure(cmd, err, g.verbose)
			}

			var out string
			switch format {
			case formatCUE:
				out = config.GenerateCUE(cfg)
			case formatTOML:
				if out, err = config.GenerateTOML(cfg); err != nil {
					return failure(cmd, err, g.verbose)
				}
			default:
				return failure(cmd, fmt.Errorf("%w %q (expected %s or %s)", errUnknownFormat, format, formatCUE, formatTOML), g.verbose)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	showCmd.Flags().StringVar(&format, "format", formatCUE, "output format: cue or toml")
	cfgCmd.AddCommand(showCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.FilePath(config.LoadOptions{ConfigFilePath: app.path(g.configPath), Dir: app.workDir})
			if path == "" {
				fmt.Fprintln(cmd.OutOrStdout(), SubtitleStyle.Render("(using defaults)"))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a relkit.cue with the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := app.path(config.ConfigFileName + "." + config.ConfigFileExt)
			if err := writeDefaultConfig(path, force); err != nil {
				return failure(cmd, err, g.verbose)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Created %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(path))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

func writeDefaultConfig(path string, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		ctx := issue.NewErrorContext().WithOperation("create configuration file").WithResource(path)
		if errors.Is(err, fs.ErrExist) {
			ctx = ctx.WithSuggestion("Pass --force to overwrite it")
		}
		return ctx.Wrap(err).BuildError()
	}

	if _, err := f.WriteString(config.GenerateCUE(config.DefaultConfig())); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
