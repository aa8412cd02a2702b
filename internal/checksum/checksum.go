// SPDX-License-Identifier: MPL-2.0

package checksum

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultManifestName is the file name of the manifest written next to the archives.
	DefaultManifestName = "SHA256SUMS.txt"

	// chunkSize bounds the memory used while hashing a file.
	chunkSize = 4096
)

var (
	// ErrChecksumMismatch indicates the computed SHA256 hash does not match the expected hash.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrAssetNotFound indicates the requested filename was not found in the manifest.
	ErrAssetNotFound = errors.New("file not found in checksums")

	// errNoValidEntries indicates the manifest contained no parseable entries.
	errNoValidEntries = errors.New("no valid checksum entries found")
)

type (
	// Entry is one manifest line.
	Entry struct {
		Hash     string // Hex-encoded SHA256 hash (64 characters)
		Filename string // Base name of the file this hash applies to
	}

	// MismatchError provides details about a checksum verification failure.
	// It wraps ErrChecksumMismatch so callers can use errors.Is for classification.
	MismatchError struct {
		Filename string
		Expected string
		Got      string
	}
)

// Error returns a human-readable description of the checksum mismatch,
// showing both expected and actual hash values for debugging.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s\nExpected: %s\nGot:      %s", e.Filename, e.Expected, e.Got)
}

// Unwrap returns ErrChecksumMismatch so callers can use errors.Is.
func (e *MismatchError) Unwrap() error { return ErrChecksumMismatch }

// String formats the entry as a manifest line without the trailing newline.
func (e Entry) String() string {
	return e.Hash + "  " + e.Filename
}

// Generate hashes every regular file in dir except manifestName, in filename
// order, and writes the manifest to dir/manifestName. The manifest is written
// to a temporary file first and renamed into place.
func Generate(dir, manifestName string) ([]Entry, error) {
	files, err := listFiles(dir, manifestName)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(files))
	for _, name := range files {
		hash, hashErr := ComputeFileHash(filepath.Join(dir, name))
		if hashErr != nil {
			return nil, hashErr
		}
		entries = append(entries, Entry{Hash: hash, Filename: name})
	}

	if err := writeManifest(filepath.Join(dir, manifestName), entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Write writes entries in manifest format, one per line.
func Write(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := bw.WriteString(e.String() + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeManifest(path string, entries []Entry) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("creating temp manifest: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := Write(tmp, entries); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing manifest: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("setting manifest permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing manifest: %w", err)
	}
	return nil
}

// Parse parses a manifest in the standard sha256sum output format.
// Each line is expected to be "{sha256_hex}  {filename}" (two spaces between hash
// and filename). Empty lines and lines that don't match the expected format are
// silently skipped. Returns an error if no valid entries are found.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, "  ", 2)
		if len(parts) != 2 {
			continue
		}

		hash := parts[0]
		filename := strings.TrimSpace(parts[1])
		// sha256sum marks binary mode with a leading '*'.
		filename = strings.TrimPrefix(filename, "*")

		if filename == "" || !isValidHexHash(hash) {
			continue
		}

		entries = append(entries, Entry{
			Hash:     strings.ToLower(hash),
			Filename: filename,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading checksums: %w", err)
	}

	if len(entries) == 0 {
		return nil, errNoValidEntries
	}

	return entries, nil
}

// Find searches entries for the given filename and returns its hash.
// Returns ErrAssetNotFound if no entry matches the filename.
func Find(entries []Entry, filename string) (string, error) {
	for _, e := range entries {
		if e.Filename == filename {
			return e.Hash, nil
		}
	}
	return "", ErrAssetNotFound
}

// VerifyFile computes the SHA256 hash of the file at path and compares it with
// expectedHash. Returns nil if the hashes match (case-insensitive comparison),
// or a *MismatchError wrapping ErrChecksumMismatch if they differ.
func VerifyFile(path, expectedHash string) error {
	got, err := ComputeFileHash(path)
	if err != nil {
		return err
	}

	if !strings.EqualFold(got, expectedHash) {
		return &MismatchError{
			Filename: filepath.Base(path),
			Expected: strings.ToLower(expectedHash),
			Got:      got,
		}
	}

	return nil
}

// ComputeFileHash computes and returns the lowercase hex-encoded SHA256 digest
// of the file at path, reading it in fixed-size chunks.
func ComputeFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		// Read-only file handle; close errors are exotic (NFS edge cases).
		_ = f.Close()
	}()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("hashing file %s: %w", path, readErr)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// listFiles returns the sorted names of regular files in dir, skipping exclude.
// Symlinks are followed.
func listFiles(dir, exclude string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var names []string
	for _, de := range dirEntries {
		if de.Name() == exclude {
			continue
		}
		info, statErr := os.Stat(filepath.Join(dir, de.Name()))
		if statErr != nil {
			return nil, fmt.Errorf("stat %s: %w", de.Name(), statErr)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		names = append(names, de.Name())
	}
	// os.ReadDir already returns entries sorted by filename.
	return names, nil
}

// isValidHexHash checks if s is a valid 64-character hex-encoded SHA256 hash.
func isValidHexHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
