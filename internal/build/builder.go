// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"mvdan.cc/sh/v3/shell"

	"github.com/relkit/relkit/internal/archive"
	"github.com/relkit/relkit/internal/checksum"
	"github.com/relkit/relkit/internal/execx"
)

const (
	// DefaultLDFlags strips the symbol table and DWARF data.
	DefaultLDFlags = "-s -w"
	// DefaultPackage is the package built when none is configured.
	DefaultPackage = "."
)

var (
	// ErrInvalidOptions is the sentinel error wrapped by InvalidOptionsError.
	ErrInvalidOptions = errors.New("invalid build options")
)

type (
	// Options describes one build-release run.
	Options struct {
		AppName    string   // base name of every artifact
		DistDir    string   // output directory, created if missing
		Package    string   // go package to build (default ".")
		LDFlags    string   // value of -ldflags; empty omits the flag
		BuildFlags string   // extra go build flags, split with shell quoting rules
		Targets    []Target // platforms to build, in order
		// ManifestName is the checksum manifest file name. Empty skips the manifest.
		ManifestName string
	}

	// InvalidOptionsError collects every problem found in Options.
	InvalidOptionsError struct {
		FieldErrors []error
	}

	// Artifact is one packaged target.
	Artifact struct {
		Target  Target
		Archive string // path of the archive inside DistDir
		Size    int64
	}

	// Result summarizes a successful run.
	Result struct {
		Artifacts []Artifact
		Manifest  string // path of the manifest; empty when skipped
		Checksums []checksum.Entry
	}

	// Option configures a Builder.
	Option func(*Builder)

	// Builder runs the build-and-package step.
	Builder struct {
		goTool *execx.Runner
		logger *log.Logger
	}
)

// Error implements the error interface.
func (e *InvalidOptionsError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		msgs = append(msgs, fe.Error())
	}
	return "invalid build options: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidOptions for errors.Is() compatibility.
func (e *InvalidOptionsError) Unwrap() error { return ErrInvalidOptions }

// WithGoRunner sets the runner used to invoke the go toolchain.
func WithGoRunner(r *execx.Runner) Option {
	return func(b *Builder) {
		b.goTool = r
	}
}

// WithLogger sets the progress logger.
func WithLogger(l *log.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

// NewBuilder creates a Builder. Without WithGoRunner it invokes "go" from PATH.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = log.New(io.Discard)
	}
	if b.goTool == nil {
		b.goTool = execx.NewRunner("go", execx.WithLogger(b.logger))
	}
	return b
}

// Validate checks the options before anything touches the filesystem.
func (o Options) Validate() error {
	var errs []error
	if o.AppName == "" || strings.ContainsAny(o.AppName, `/\`) {
		errs = append(errs, fmt.Errorf("app name %q must be a non-empty file name", o.AppName))
	}
	if strings.TrimSpace(o.DistDir) == "" {
		errs = append(errs, errors.New("dist dir must be non-empty"))
	}
	if len(o.Targets) == 0 {
		errs = append(errs, errors.New("at least one target is required"))
	}
	seen := make(map[Target]bool, len(o.Targets))
	for _, t := range o.Targets {
		if err := t.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[t] {
			errs = append(errs, fmt.Errorf("duplicate target %s", t))
		}
		seen[t] = true
	}
	if _, err := splitFlags(o.BuildFlags); err != nil {
		errs = append(errs, fmt.Errorf("build flags: %w", err))
	}
	if len(errs) > 0 {
		return &InvalidOptionsError{FieldErrors: errs}
	}
	return nil
}

// Build compiles, packages and checksums every target. It stops at the first
// failure; archives already written for earlier targets are left in place.
func (b *Builder) Build(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.DistDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating dist dir: %w", err)
	}

	result := &Result{}
	for _, t := range opts.Targets {
		artifact, err := b.buildTarget(ctx, opts, t)
		if err != nil {
			return nil, fmt.Errorf("building %s: %w", t, err)
		}
		result.Artifacts = append(result.Artifacts, *artifact)
	}

	if opts.ManifestName != "" {
		b.logger.Info("generating checksums", "file", opts.ManifestName)
		entries, err := checksum.Generate(opts.DistDir, opts.ManifestName)
		if err != nil {
			return nil, fmt.Errorf("generating checksums: %w", err)
		}
		result.Manifest = filepath.Join(opts.DistDir, opts.ManifestName)
		result.Checksums = entries
	}

	return result, nil
}

func (b *Builder) buildTarget(ctx context.Context, opts Options, t Target) (*Artifact, error) {
	binName := t.BinaryName(opts.AppName)
	binPath := filepath.Join(opts.DistDir, binName)
	archivePath := filepath.Join(opts.DistDir, t.ArchiveName(opts.AppName))

	args, err := BuildArgs(opts, binPath)
	if err != nil {
		return nil, err
	}

	b.logger.Info("building", "target", t.String(), "binary", binName)
	runner := b.goTool.WithEnv("CGO_ENABLED=0", "GOOS="+t.OS, "GOARCH="+t.Arch)
	if err := runner.Run(ctx, args...); err != nil {
		return nil, err
	}

	packErr := archive.PackFile(binPath, archivePath, binName, t.ArchiveFormat())
	// The raw binary is never kept, even when packaging failed.
	if rmErr := os.Remove(binPath); rmErr != nil && !os.IsNotExist(rmErr) && packErr == nil {
		return nil, fmt.Errorf("removing %s: %w", binName, rmErr)
	}
	if packErr != nil {
		return nil, packErr
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", archivePath, err)
	}
	b.logger.Info("created", "archive", filepath.Base(archivePath), "size", humanize.Bytes(uint64(info.Size()))) //nolint:gosec // file sizes are non-negative

	return &Artifact{Target: t, Archive: archivePath, Size: info.Size()}, nil
}

// BuildArgs returns the go toolchain arguments that compile opts.Package into out.
func BuildArgs(opts Options, out string) ([]string, error) {
	args := []string{"build", "-trimpath"}

	extra, err := splitFlags(opts.BuildFlags)
	if err != nil {
		return nil, err
	}
	args = append(args, extra...)

	if opts.LDFlags != "" {
		args = append(args, "-ldflags", opts.LDFlags)
	}

	pkg := opts.Package
	if pkg == "" {
		pkg = DefaultPackage
	}
	return append(args, "-o", out, pkg), nil
}

// splitFlags splits s into words the way a POSIX shell would, expanding
// environment variable references.
func splitFlags(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return shell.Fields(s, os.Getenv)
}
