// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/relkit/relkit/internal/issue"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := DefaultConfig()
	if cfg.DistDir != want.DistDir || cfg.LDFlags != want.LDFlags || cfg.ChecksumFile != want.ChecksumFile {
		t.Errorf("Load() = %+v, want defaults %+v", cfg, want)
	}
	if !slices.Equal(cfg.Targets, want.Targets) {
		t.Errorf("Targets = %v, want %v", cfg.Targets, want.Targets)
	}
	if cfg.Release != want.Release {
		t.Errorf("Release = %+v, want %+v", cfg.Release, want.Release)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `
app_name: "gcli2api"
targets: ["linux/amd64"]
release: {
	host: "api"
	repo: "acme/widget"
	tag_prefix: "edge"
	changelog: false
}
`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{Dir: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.AppName != "gcli2api" {
		t.Errorf("AppName = %q", cfg.AppName)
	}
	if !slices.Equal(cfg.Targets, []string{"linux/amd64"}) {
		t.Errorf("Targets = %v", cfg.Targets)
	}
	if cfg.Release.Host != HostAPI || cfg.Release.Repo != "acme/widget" || cfg.Release.TagPrefix != "edge" {
		t.Errorf("Release = %+v", cfg.Release)
	}
	if cfg.Release.Changelog {
		t.Error("Changelog should be false")
	}
	// Untouched keys keep their defaults.
	if cfg.Release.TagScheme != "timestamp" || cfg.DistDir != "dist" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoad_ExplicitPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom.cue")
	if err := os.WriteFile(path, []byte(`dist_dir: "out"`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DistDir != "out" {
		t.Errorf("DistDir = %q, want out", cfg.DistDir)
	}
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	t.Parallel()

	_, err := NewProvider().Load(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue"),
	})

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("Load() error = %v, want *issue.ActionableError", err)
	}
	if ae.Issue != issue.ConfigLoadFailedId {
		t.Errorf("Issue = %d, want ConfigLoadFailedId", ae.Issue)
	}
}

func TestLoad_SchemaRejectsBadValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantSub string
	}{
		{"unknown host", `release: host: "gitlab"`, "release.host"},
		{"bad target", `targets: ["linux-amd64"]`, "targets[0]"},
		{"unknown key", `colour: "blue"`, "colour"},
		{"path in checksum file", `checksum_file: "a/b.txt"`, "checksum_file"},
		{"empty dist dir", `dist_dir: ""`, "dist_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeConfig(t, dir, tt.content)

			_, err := NewProvider().Load(context.Background(), LoadOptions{Dir: dir})
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestLoad_APIHostRequiresRepo(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `release: host: "api"`)

	_, err := NewProvider().Load(context.Background(), LoadOptions{Dir: dir})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("RELKIT_DIST_DIR", "from-env")
	t.Setenv("RELKIT_RELEASE_TAG_PREFIX", "canary")

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DistDir != "from-env" {
		t.Errorf("DistDir = %q, want from-env", cfg.DistDir)
	}
	if cfg.Release.TagPrefix != "canary" {
		t.Errorf("TagPrefix = %q, want canary", cfg.Release.TagPrefix)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewProvider().Load(ctx, LoadOptions{Dir: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestFilePath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if got := FilePath(LoadOptions{Dir: dir}); got != "" {
		t.Errorf("FilePath() = %q before the file exists", got)
	}
	path := writeConfig(t, dir, `dist_dir: "x"`)
	if got := FilePath(LoadOptions{Dir: dir}); got != path {
		t.Errorf("FilePath() = %q, want %q", got, path)
	}
	if got := FilePath(LoadOptions{ConfigFilePath: "explicit.cue"}); got != "explicit.cue" {
		t.Errorf("FilePath() = %q, want explicit.cue", got)
	}
}

func TestGenerateCUE_LoadsBack(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.AppName = "demo"
	cfg.BuildFlags = "-tags netgo"
	cfg.Release.Repo = "acme/demo"

	dir := t.TempDir()
	writeConfig(t, dir, GenerateCUE(cfg))

	got, err := NewProvider().Load(context.Background(), LoadOptions{Dir: dir})
	if err != nil {
		t.Fatalf("generated CUE failed to load: %v\n%s", err, GenerateCUE(cfg))
	}
	if got.AppName != "demo" || got.BuildFlags != "-tags netgo" || got.Release != cfg.Release {
		t.Errorf("loaded %+v, want %+v", got, cfg)
	}
}

func TestGenerateTOML(t *testing.T) {
	t.Parallel()

	out, err := GenerateTOML(DefaultConfig())
	if err != nil {
		t.Fatalf("GenerateTOML() error: %v", err)
	}
	for _, want := range []string{"dist_dir = 'dist'", "[release]", "host = 'gh'", "tag_prefix = 'nightly'"} {
		if !strings.Contains(out, want) {
			t.Errorf("TOML output missing %q:\n%s", want, out)
		}
	}
}
