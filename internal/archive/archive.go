// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"github.com/relkit/relkit/pkg/platform"
)

const (
	// FormatTarGz is a gzip-compressed tarball.
	FormatTarGz Format = "tar.gz"
	// FormatZip is a Deflate-compressed zip file.
	FormatZip Format = "zip"
)

// ErrInvalidFormat is the sentinel error wrapped by InvalidFormatError.
var ErrInvalidFormat = errors.New("invalid archive format")

type (
	// Format is the container format of a release archive.
	Format string

	// InvalidFormatError is returned when a Format value is not recognized.
	InvalidFormatError struct {
		Value Format
	}

	// Entry describes one member of an archive.
	Entry struct {
		Name string
		Mode os.FileMode
		Size int64
	}
)

// Error implements the error interface.
func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid archive format %q (valid: zip, tar.gz)", e.Value)
}

// Unwrap returns ErrInvalidFormat for errors.Is() compatibility.
func (e *InvalidFormatError) Unwrap() error { return ErrInvalidFormat }

// FormatFor returns the archive format used for binaries built for goos.
func FormatFor(goos string) Format {
	if goos == platform.Windows {
		return FormatZip
	}
	return FormatTarGz
}

// Ext returns the file extension, without the leading dot.
func (f Format) Ext() string { return string(f) }

// Validate returns an error if the format is not recognized.
func (f Format) Validate() error {
	switch f {
	case FormatTarGz, FormatZip:
		return nil
	default:
		return &InvalidFormatError{Value: f}
	}
}

// PackFile writes dst as an archive of the given format holding exactly one
// entry: the file at src stored under entryName. A partially written dst is
// removed on failure.
func PackFile(src, dst, entryName string, format Format) (err error) {
	if err := format.Validate(); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer func() { _ = in.Close() }() // read-only file handle

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", dst, closeErr)
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	switch format {
	case FormatZip:
		err = writeZip(out, in, info, entryName)
	case FormatTarGz:
		err = writeTarGz(out, in, info, entryName)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return nil
}

func writeZip(w io.Writer, r io.Reader, info os.FileInfo, name string) error {
	zw := zip.NewWriter(w)

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	fw, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return err
	}
	return zw.Close()
}

func writeTarGz(w io.Writer, r io.Reader, info os.FileInfo, name string) error {
	gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(gz)

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = name
	// Drop host-specific ownership so archives do not leak CI user names.
	hdr.Uid, hdr.Gid = 0, 0
	hdr.Uname, hdr.Gname = "", ""

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if _, err := io.Copy(tw, r); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

// List returns the entries of the archive at path.
func List(path string, format Format) ([]Entry, error) {
	switch format {
	case FormatZip:
		return listZip(path)
	case FormatTarGz:
		return listTarGz(path)
	default:
		return nil, &InvalidFormatError{Value: format}
	}
}

func listZip(path string) ([]Entry, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = zr.Close() }() // read-only

	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		entries = append(entries, Entry{
			Name: f.Name,
			Mode: f.Mode(),
			Size: int64(f.UncompressedSize64), //nolint:gosec // sizes of release binaries fit in int64
		})
	}
	return entries, nil
}

func listTarGz(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }() // read-only

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer func() { _ = gz.Close() }()

	var entries []Entry
	tr := tar.NewReader(gz)
	for {
		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			return nil, fmt.Errorf("reading tar entry: %w", nextErr)
		}
		entries = append(entries, Entry{
			Name: hdr.Name,
			Mode: hdr.FileInfo().Mode(),
			Size: hdr.Size,
		})
	}
	return entries, nil
}
