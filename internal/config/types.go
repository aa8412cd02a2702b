// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// HostGH publishes through the gh CLI.
	HostGH HostKind = "gh"
	// HostAPI publishes through the GitHub REST API.
	HostAPI HostKind = "api"

	// HistoryGit lists commits with the git CLI.
	HistoryGit HistoryBackend = "git"
	// HistoryGoGit lists commits by reading the repository in-process.
	HistoryGoGit HistoryBackend = "gogit"
)

var (
	// ErrInvalidHostKind is returned when a HostKind value is not recognized.
	ErrInvalidHostKind = errors.New("invalid release host")
	// ErrInvalidHistoryBackend is returned when a HistoryBackend value is not recognized.
	ErrInvalidHistoryBackend = errors.New("invalid history backend")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// HostKind selects the release host implementation.
	HostKind string

	// InvalidHostKindError is returned when a HostKind value is not recognized.
	InvalidHostKindError struct {
		Value HostKind
	}

	// HistoryBackend selects how commit history is read.
	HistoryBackend string

	// InvalidHistoryBackendError is returned when a HistoryBackend value is not recognized.
	InvalidHistoryBackendError struct {
		Value HistoryBackend
	}

	// InvalidConfigError collects every validation failure of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the complete relkit configuration.
	Config struct {
		// AppName is the artifact base name. Empty means the working directory name.
		AppName      string        `json:"app_name" mapstructure:"app_name" toml:"app_name"`
		DistDir      string        `json:"dist_dir" mapstructure:"dist_dir" toml:"dist_dir"`
		Package      string        `json:"package" mapstructure:"package" toml:"package"`
		LDFlags      string        `json:"ldflags" mapstructure:"ldflags" toml:"ldflags"`
		BuildFlags   string        `json:"build_flags" mapstructure:"build_flags" toml:"build_flags"`
		Targets      []string      `json:"targets" mapstructure:"targets" toml:"targets"`
		ChecksumFile string        `json:"checksum_file" mapstructure:"checksum_file" toml:"checksum_file"`
		Release      ReleaseConfig `json:"release" mapstructure:"release" toml:"release"`
	}

	// ReleaseConfig configures the upload-release step.
	ReleaseConfig struct {
		Host          HostKind       `json:"host" mapstructure:"host" toml:"host"`
		Repo          string         `json:"repo" mapstructure:"repo" toml:"repo"`
		TagScheme     string         `json:"tag_scheme" mapstructure:"tag_scheme" toml:"tag_scheme"`
		TagPrefix     string         `json:"tag_prefix" mapstructure:"tag_prefix" toml:"tag_prefix"`
		Changelog     bool           `json:"changelog" mapstructure:"changelog" toml:"changelog"`
		History       HistoryBackend `json:"history" mapstructure:"history" toml:"history"`
		FallbackNotes string         `json:"fallback_notes" mapstructure:"fallback_notes" toml:"fallback_notes"`
	}
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		DistDir:      "dist",
		Package:      ".",
		LDFlags:      "-s -w",
		Targets:      []string{"linux/amd64", "linux/arm64", "darwin/arm64", "windows/amd64"},
		ChecksumFile: "SHA256SUMS.txt",
		Release: ReleaseConfig{
			Host:          HostGH,
			TagScheme:     "timestamp",
			TagPrefix:     "nightly",
			Changelog:     true,
			History:       HistoryGit,
			FallbackNotes: "Automated nightly build for commit {sha}",
		},
	}
}

// Error implements the error interface.
func (e *InvalidHostKindError) Error() string {
	return fmt.Sprintf("invalid release host %q (valid: gh, api)", e.Value)
}

// Unwrap returns ErrInvalidHostKind for errors.Is() compatibility.
func (e *InvalidHostKindError) Unwrap() error { return ErrInvalidHostKind }

// Validate returns an error if the HostKind is not recognized.
func (h HostKind) Validate() error {
	switch h {
	case HostGH, HostAPI:
		return nil
	default:
		return &InvalidHostKindError{Value: h}
	}
}

// String returns the string representation of the HostKind.
func (h HostKind) String() string { return string(h) }

// Error implements the error interface.
func (e *InvalidHistoryBackendError) Error() string {
	return fmt.Sprintf("invalid history backend %q (valid: git, gogit)", e.Value)
}

// Unwrap returns ErrInvalidHistoryBackend for errors.Is() compatibility.
func (e *InvalidHistoryBackendError) Unwrap() error { return ErrInvalidHistoryBackend }

// Validate returns an error if the HistoryBackend is not recognized.
func (b HistoryBackend) Validate() error {
	switch b {
	case HistoryGit, HistoryGoGit:
		return nil
	default:
		return &InvalidHistoryBackendError{Value: b}
	}
}

// String returns the string representation of the HistoryBackend.
func (b HistoryBackend) String() string { return string(b) }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		msgs = append(msgs, fe.Error())
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate checks the values the schema cannot see, such as those coming
// from environment overrides.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DistDir) == "" {
		errs = append(errs, errors.New("dist_dir must be non-empty"))
	}
	if strings.ContainsAny(c.ChecksumFile, `/\`) || c.ChecksumFile == "" {
		errs = append(errs, fmt.Errorf("checksum_file %q must be a plain file name", c.ChecksumFile))
	}
	if err := c.Release.Host.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Release.History.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Release.Host == HostAPI && c.Release.Repo == "" {
		errs = append(errs, errors.New(`release.repo is required when release.host is "api"`))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}
