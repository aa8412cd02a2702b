// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
)

// ShortSHALength is the number of leading characters kept by CommitSHA.Short.
const ShortSHALength = 7

// ErrInvalidCommitSHA is the sentinel error wrapped by InvalidCommitSHAError.
var ErrInvalidCommitSHA = errors.New("invalid commit SHA")

type (
	// CommitSHA is a git commit identifier as provided by CI (e.g. GITHUB_SHA).
	// A valid value is non-empty and hex-only; abbreviated hashes are accepted.
	CommitSHA string

	// InvalidCommitSHAError is returned when a CommitSHA is empty or contains
	// non-hex characters.
	InvalidCommitSHAError struct {
		Value CommitSHA
	}
)

// String returns the string representation of the CommitSHA.
func (s CommitSHA) String() string { return string(s) }

// Short returns the first ShortSHALength characters, or the whole value when shorter.
func (s CommitSHA) Short() string {
	if len(s) <= ShortSHALength {
		return string(s)
	}
	return string(s[:ShortSHALength])
}

// IsValid returns whether the CommitSHA is valid.
func (s CommitSHA) IsValid() (bool, []error) {
	if s == "" {
		return false, []error{&InvalidCommitSHAError{Value: s}}
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false, []error{&InvalidCommitSHAError{Value: s}}
		}
	}
	return true, nil
}

// Error implements the error interface for InvalidCommitSHAError.
func (e *InvalidCommitSHAError) Error() string {
	if e.Value == "" {
		return "invalid commit SHA: must be non-empty"
	}
	return fmt.Sprintf("invalid commit SHA %q: must contain only hex digits", e.Value)
}

// Unwrap returns ErrInvalidCommitSHA for errors.Is() compatibility.
func (e *InvalidCommitSHAError) Unwrap() error { return ErrInvalidCommitSHA }
