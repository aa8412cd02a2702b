// SPDX-License-Identifier: MPL-2.0

package build

import (
	"errors"
	"fmt"
	"strings"

	"github.com/relkit/relkit/internal/archive"
	"github.com/relkit/relkit/pkg/platform"
)

// ErrInvalidTarget is the sentinel error wrapped by InvalidTargetError.
var ErrInvalidTarget = errors.New("invalid build target")

type (
	// Target is a GOOS/GOARCH pair.
	Target struct {
		OS   string `json:"os" mapstructure:"os"`
		Arch string `json:"arch" mapstructure:"arch"`
	}

	// InvalidTargetError is returned when a target string cannot be parsed.
	InvalidTargetError struct {
		Value string
	}
)

// Error implements the error interface.
func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid build target %q (expected os/arch, e.g. linux/amd64)", e.Value)
}

// Unwrap returns ErrInvalidTarget for errors.Is() compatibility.
func (e *InvalidTargetError) Unwrap() error { return ErrInvalidTarget }

// DefaultTargets returns the platforms released when none are configured.
func DefaultTargets() []Target {
	return []Target{
		{OS: platform.Linux, Arch: "amd64"},
		{OS: platform.Linux, Arch: "arm64"},
		{OS: platform.Darwin, Arch: "arm64"},
		{OS: platform.Windows, Arch: "amd64"},
	}
}

// ParseTarget parses "os/arch".
func ParseTarget(s string) (Target, error) {
	goos, goarch, ok := strings.Cut(strings.TrimSpace(s), "/")
	t := Target{OS: goos, Arch: goarch}
	if !ok || t.Validate() != nil {
		return Target{}, &InvalidTargetError{Value: s}
	}
	return t, nil
}

// ParseTargets parses every entry of ss, failing on the first invalid one.
func ParseTargets(ss []string) ([]Target, error) {
	targets := make([]Target, 0, len(ss))
	for _, s := range ss {
		t, err := ParseTarget(s)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// Validate returns an error if either component is empty or contains a
// character that would corrupt the artifact file name.
func (t Target) Validate() error {
	for _, part := range []string{t.OS, t.Arch} {
		if part == "" || strings.ContainsAny(part, `/\_ `) {
			return &InvalidTargetError{Value: t.String()}
		}
	}
	return nil
}

// String returns "os/arch".
func (t Target) String() string { return t.OS + "/" + t.Arch }

// BinaryName returns "{app}_{os}_{arch}" plus ".exe" on Windows.
func (t Target) BinaryName(app string) string {
	return fmt.Sprintf("%s_%s_%s%s", app, t.OS, t.Arch, platform.ExecutableSuffix(t.OS))
}

// ArchiveFormat returns the archive format used for this target.
func (t Target) ArchiveFormat() archive.Format { return archive.FormatFor(t.OS) }

// ArchiveName returns "{app}_{os}_{arch}.{zip|tar.gz}".
func (t Target) ArchiveName(app string) string {
	return fmt.Sprintf("%s_%s_%s.%s", app, t.OS, t.Arch, t.ArchiveFormat().Ext())
}
