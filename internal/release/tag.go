// SPDX-License-Identifier: MPL-2.0

package release

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/relkit/relkit/pkg/types"
)

const (
	// TagSchemeTimestamp yields "{prefix}-{YYYYmmdd-HHMMSS}-{sha7}".
	TagSchemeTimestamp TagScheme = "timestamp"
	// TagSchemePlain yields "{prefix}-{sha7}".
	TagSchemePlain TagScheme = "plain"
	// TagSchemeVersion uses an explicit semantic version such as "v1.2.3".
	TagSchemeVersion TagScheme = "version"

	// DefaultTagPrefix is the prefix of derived tags.
	DefaultTagPrefix = "nightly"

	timestampLayout = "20060102-150405"
)

var (
	// ErrInvalidTagScheme is returned when a TagScheme value is not recognized.
	ErrInvalidTagScheme = errors.New("invalid tag scheme")
	// ErrInvalidVersion is returned when the version scheme gets a non-semver value.
	ErrInvalidVersion = errors.New("invalid version")
)

type (
	// TagScheme selects how release tags are derived.
	TagScheme string

	// InvalidTagSchemeError is returned when a TagScheme value is not recognized.
	InvalidTagSchemeError struct {
		Value TagScheme
	}

	// TagSpec holds the inputs of tag derivation.
	TagSpec struct {
		Scheme TagScheme
		Prefix string // defaults to DefaultTagPrefix
		SHA    types.CommitSHA
		Time   time.Time // converted to UTC
		// Version is required by TagSchemeVersion and ignored otherwise.
		Version string
	}
)

// Error implements the error interface.
func (e *InvalidTagSchemeError) Error() string {
	return fmt.Sprintf("invalid tag scheme %q (valid: timestamp, plain, version)", e.Value)
}

// Unwrap returns ErrInvalidTagScheme for errors.Is() compatibility.
func (e *InvalidTagSchemeError) Unwrap() error { return ErrInvalidTagScheme }

// Validate returns an error if the TagScheme is not recognized.
// The zero value is valid and means TagSchemeTimestamp.
func (s TagScheme) Validate() error {
	switch s {
	case "", TagSchemeTimestamp, TagSchemePlain, TagSchemeVersion:
		return nil
	default:
		return &InvalidTagSchemeError{Value: s}
	}
}

// String returns the string representation of the TagScheme.
func (s TagScheme) String() string { return string(s) }

// DeriveTag computes the release tag for spec.
func DeriveTag(spec TagSpec) (string, error) {
	if err := spec.Scheme.Validate(); err != nil {
		return "", err
	}

	prefix := spec.Prefix
	if prefix == "" {
		prefix = DefaultTagPrefix
	}

	switch spec.Scheme {
	case TagSchemeVersion:
		return canonicalVersion(spec.Version)
	case TagSchemePlain:
		return prefix + "-" + spec.SHA.Short(), nil
	default:
		return prefix + "-" + spec.Time.UTC().Format(timestampLayout) + "-" + spec.SHA.Short(), nil
	}
}

// canonicalVersion validates v as semver, adding the "v" prefix when missing.
// Build metadata and prerelease suffixes are kept as given.
func canonicalVersion(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%w: the version tag scheme requires a version", ErrInvalidVersion)
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", fmt.Errorf("%w: %q is not a semantic version", ErrInvalidVersion, v)
	}
	return v, nil
}
