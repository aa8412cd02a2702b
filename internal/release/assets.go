// SPDX-License-Identifier: MPL-2.0

package release

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrDistDirMissing is the sentinel error wrapped by DistDirMissingError.
var ErrDistDirMissing = errors.New("distribution directory not found")

// DistDirMissingError is returned when the distribution directory does not
// exist or is not a directory.
type DistDirMissingError struct {
	Path string
}

// Error implements the error interface.
func (e *DistDirMissingError) Error() string {
	return fmt.Sprintf("distribution directory %s not found", e.Path)
}

// Unwrap returns ErrDistDirMissing for errors.Is() compatibility.
func (e *DistDirMissingError) Unwrap() error { return ErrDistDirMissing }

// ListAssets returns the paths of the regular files directly inside dir,
// sorted by name. Symlinks to regular files are included.
func ListAssets(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, &DistDirMissingError{Path: dir}
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		paths = append(paths, path)
	}
	return paths, nil
}
