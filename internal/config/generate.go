// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// GenerateCUE generates a CUE representation of the configuration that
// validates against the embedded schema.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// relkit configuration\n\n")

	if cfg.AppName != "" {
		fmt.Fprintf(&sb, "app_name: %q\n", cfg.AppName)
	}
	fmt.Fprintf(&sb, "dist_dir: %q\n", cfg.DistDir)
	fmt.Fprintf(&sb, "package: %q\n", cfg.Package)
	fmt.Fprintf(&sb, "ldflags: %q\n", cfg.LDFlags)
	if cfg.BuildFlags != "" {
		fmt.Fprintf(&sb, "build_flags: %q\n", cfg.BuildFlags)
	}
	fmt.Fprintf(&sb, "checksum_file: %q\n", cfg.ChecksumFile)

	sb.WriteString("\ntargets: [\n")
	for _, t := range cfg.Targets {
		fmt.Fprintf(&sb, "\t%q,\n", t)
	}
	sb.WriteString("]\n")

	r := cfg.Release
	sb.WriteString("\nrelease: {\n")
	fmt.Fprintf(&sb, "\thost: %q\n", r.Host)
	if r.Repo != "" {
		fmt.Fprintf(&sb, "\trepo: %q\n", r.Repo)
	}
	fmt.Fprintf(&sb, "\ttag_scheme: %q\n", r.TagScheme)
	fmt.Fprintf(&sb, "\ttag_prefix: %q\n", r.TagPrefix)
	fmt.Fprintf(&sb, "\tchangelog: %v\n", r.Changelog)
	fmt.Fprintf(&sb, "\thistory: %q\n", r.History)
	fmt.Fprintf(&sb, "\tfallback_notes: %q\n", r.FallbackNotes)
	sb.WriteString("}\n")

	return sb.String()
}

// GenerateTOML renders the configuration as TOML.
func GenerateTOML(cfg *Config) (string, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encoding config as TOML: %w", err)
	}
	return string(data), nil
}
