// SPDX-License-Identifier: MPL-2.0

package checksum

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Report is the outcome of verifying a directory against its manifest.
type Report struct {
	Verified   []string         // files whose digest matched
	Mismatched []*MismatchError // files whose digest differed
	Missing    []string         // listed in the manifest but absent on disk
	Unlisted   []string         // present on disk but absent from the manifest
}

// OK reports whether the manifest describes the directory exactly.
func (r *Report) OK() bool {
	return len(r.Mismatched) == 0 && len(r.Missing) == 0 && len(r.Unlisted) == 0
}

// Err summarizes a failed report as an error wrapping ErrChecksumMismatch,
// or returns nil when the report is OK.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, 0, len(r.Mismatched)+len(r.Missing)+len(r.Unlisted))
	for _, m := range r.Mismatched {
		errs = append(errs, m)
	}
	for _, name := range r.Missing {
		errs = append(errs, fmt.Errorf("%s: listed in manifest but missing: %w", name, ErrChecksumMismatch))
	}
	for _, name := range r.Unlisted {
		errs = append(errs, fmt.Errorf("%s: not listed in manifest: %w", name, ErrChecksumMismatch))
	}
	return errors.Join(errs...)
}

// Verify recomputes the digest of every file named in dir/manifestName and
// cross-checks the manifest against the regular files present in dir.
func Verify(dir, manifestName string) (*Report, error) {
	f, err := os.Open(filepath.Join(dir, manifestName))
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	entries, err := Parse(f)
	_ = f.Close() // read-only
	if err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	onDisk, err := listFiles(dir, manifestName)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(onDisk))
	for _, name := range onDisk {
		present[name] = true
	}

	report := &Report{}
	listed := make(map[string]bool, len(entries))
	for _, e := range entries {
		listed[e.Filename] = true
		if !present[e.Filename] {
			report.Missing = append(report.Missing, e.Filename)
			continue
		}
		verr := VerifyFile(filepath.Join(dir, e.Filename), e.Hash)
		var mismatch *MismatchError
		switch {
		case verr == nil:
			report.Verified = append(report.Verified, e.Filename)
		case errors.As(verr, &mismatch):
			report.Mismatched = append(report.Mismatched, mismatch)
		default:
			return nil, verr
		}
	}
	for _, name := range onDisk {
		if !listed[name] {
			report.Unlisted = append(report.Unlisted, name)
		}
	}
	return report, nil
}
