// SPDX-License-Identifier: MPL-2.0

package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/relkit/relkit/internal/testutil"
)

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestGenerate_OneLinePerFileSorted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"app_windows_amd64.zip":   "zip-bytes",
		"app_linux_amd64.tar.gz":  "linux-bytes",
		"app_darwin_arm64.tar.gz": "darwin-bytes",
		"nested/ignored.txt":      "not a regular top-level file",
		DefaultManifestName:       "stale manifest content",
	})

	entries, err := Generate(dir, DefaultManifestName)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	wantNames := []string{"app_darwin_arm64.tar.gz", "app_linux_amd64.tar.gz", "app_windows_amd64.zip"}
	if len(entries) != len(wantNames) {
		t.Fatalf("got %d entries, want %d", len(entries), len(wantNames))
	}
	for i, name := range wantNames {
		if entries[i].Filename != name {
			t.Errorf("entry[%d] = %q, want %q", i, entries[i].Filename, name)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, DefaultManifestName))
	if err != nil {
		t.Fatalf("reading manifest: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("manifest has %d lines, want 3:\n%s", len(lines), data)
	}

	// Each digest must match an independent recomputation.
	contents := map[string]string{
		"app_darwin_arm64.tar.gz": "darwin-bytes",
		"app_linux_amd64.tar.gz":  "linux-bytes",
		"app_windows_amd64.zip":   "zip-bytes",
	}
	for _, line := range lines {
		hash, name, ok := strings.Cut(line, "  ")
		if !ok {
			t.Fatalf("malformed line %q", line)
		}
		if want := sha256Hex(contents[name]); hash != want {
			t.Errorf("%s: digest %s, want %s", name, hash, want)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"a.tar.gz": "a", "b.zip": "b"})

	if _, err := Generate(dir, DefaultManifestName); err != nil {
		t.Fatal(err)
	}
	first, _ := os.ReadFile(filepath.Join(dir, DefaultManifestName))

	if _, err := Generate(dir, DefaultManifestName); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(filepath.Join(dir, DefaultManifestName))

	if string(first) != string(second) {
		t.Errorf("manifest changed between runs:\n%s\n---\n%s", first, second)
	}
}

func TestGenerate_LeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"a.tar.gz": "a"})

	if _, err := Generate(dir, DefaultManifestName); err != nil {
		t.Fatal(err)
	}

	got := testutil.ListDir(t, dir)
	if len(got) != 2 || got[0] != DefaultManifestName || got[1] != "a.tar.gz" {
		t.Errorf("unexpected directory contents: %v", got)
	}
}

func TestGenerate_MissingDir(t *testing.T) {
	t.Parallel()

	if _, err := Generate(filepath.Join(t.TempDir(), "nope"), DefaultManifestName); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestComputeFileHash_LargerThanChunk(t *testing.T) {
	t.Parallel()

	content := strings.Repeat("0123456789", chunkSize) // several chunks plus a partial one
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"big": content + "tail"})

	got, err := ComputeFileHash(filepath.Join(dir, "big"))
	if err != nil {
		t.Fatal(err)
	}
	if want := sha256Hex(content + "tail"); got != want {
		t.Errorf("ComputeFileHash() = %s, want %s", got, want)
	}
}

func TestParse_ValidFile(t *testing.T) {
	t.Parallel()

	input := strings.NewReader(
		"a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2  app_linux_amd64.tar.gz\n" +
			"F7A8B9C0D1E2F7A8B9C0D1E2F7A8B9C0D1E2F7A8B9C0D1E2F7A8B9C0D1E2F7A8  *app_windows_amd64.zip\n",
	)

	entries, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[1].Filename != "app_windows_amd64.zip" {
		t.Errorf("binary-mode marker not stripped: %q", entries[1].Filename)
	}
	if entries[1].Hash != strings.ToLower("F7A8B9C0D1E2F7A8B9C0D1E2F7A8B9C0D1E2F7A8B9C0D1E2F7A8B9C0D1E2F7A8") {
		t.Errorf("hash not lowercased: %q", entries[1].Hash)
	}
}

func TestParse_SkipsEmptyAndInvalid(t *testing.T) {
	t.Parallel()

	input := strings.NewReader(
		"a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2  app_linux.tar.gz\n" +
			"\n" +
			"abcdef1234  short_hash.tar.gz\n" +
			"a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2 single_space.tar.gz\n" +
			"zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz  bad_hex.tar.gz\n",
	)

	entries, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Filename != "app_linux.tar.gz" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestParse_NoValidEntries(t *testing.T) {
	t.Parallel()

	if _, err := Parse(strings.NewReader("garbage\n")); !errors.Is(err, errNoValidEntries) {
		t.Errorf("expected errNoValidEntries, got %v", err)
	}
}

func TestFind(t *testing.T) {
	t.Parallel()

	entries := []Entry{{Hash: "aa", Filename: "a"}, {Hash: "bb", Filename: "b"}}

	if got, err := Find(entries, "b"); err != nil || got != "bb" {
		t.Errorf("Find(b) = %q, %v", got, err)
	}
	if _, err := Find(entries, "c"); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("Find(c) error = %v, want ErrAssetNotFound", err)
	}
}

func TestVerifyFile_Mismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"a": "content"})

	err := VerifyFile(filepath.Join(dir, "a"), sha256Hex("other"))
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
	var mismatch *MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected *MismatchError, got %T", err)
	}
	if mismatch.Filename != "a" || mismatch.Got != sha256Hex("content") {
		t.Errorf("unexpected mismatch details: %+v", mismatch)
	}

	if err := VerifyFile(filepath.Join(dir, "a"), strings.ToUpper(sha256Hex("content"))); err != nil {
		t.Errorf("case-insensitive match failed: %v", err)
	}
}
