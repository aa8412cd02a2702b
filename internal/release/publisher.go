// SPDX-License-Identifier: MPL-2.0

package release

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/relkit/relkit/pkg/types"
)

type (
	// Clock supplies the current time for timestamped tags.
	Clock interface {
		Now() time.Time
	}

	systemClock struct{}

	// Option configures a Publisher.
	Option func(*Publisher)

	// Publisher reconciles a release record and its assets with a
	// distribution directory.
	Publisher struct {
		host    Host
		history History
		clock   Clock
		logger  *log.Logger
	}

	// Request describes one publish run.
	Request struct {
		DistDir string
		SHA     types.CommitSHA
		// Time stamps the tag; zero means the clock's current time.
		Time      time.Time
		Scheme    TagScheme
		Prefix    string
		Version   string
		Changelog bool
		// FallbackNotes overrides DefaultFallbackNotes.
		FallbackNotes string
		// DryRun resolves everything but makes no create or upload call.
		DryRun bool
	}

	// Result reports what a publish run did.
	Result struct {
		Tag string
		// Existed is true when the release was found and reused.
		Existed bool
		// Created is true when a create call was made.
		Created bool
		// Notes is set whenever the release was absent.
		Notes *Notes
		// Assets lists the files found in the distribution directory.
		Assets []string
		// Uploaded counts the files sent to the host.
		Uploaded int
		DryRun   bool
	}
)

func (systemClock) Now() time.Time { return time.Now() }

// WithHistory enables changelog generation from h.
func WithHistory(h History) Option {
	return func(p *Publisher) {
		p.history = h
	}
}

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(p *Publisher) {
		p.clock = c
	}
}

// WithLogger sets the progress logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Publisher) {
		p.logger = l
	}
}

// NewPublisher creates a Publisher for host.
func NewPublisher(host Host, opts ...Option) *Publisher {
	p := &Publisher{host: host, clock: systemClock{}}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.New(io.Discard)
	}
	return p
}

// Publish runs the reconciler. Preconditions (a valid SHA and an existing
// distribution directory) are checked before the host is contacted.
func (p *Publisher) Publish(ctx context.Context, req Request) (*Result, error) {
	if ok, errs := req.SHA.IsValid(); !ok {
		return nil, errs[0]
	}

	assets, err := ListAssets(req.DistDir)
	if err != nil {
		return nil, err
	}

	stamp := req.Time
	if stamp.IsZero() {
		stamp = p.clock.Now()
	}
	tag, err := DeriveTag(TagSpec{
		Scheme:  req.Scheme,
		Prefix:  req.Prefix,
		SHA:     req.SHA,
		Time:    stamp,
		Version: req.Version,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{Tag: tag, Assets: assets, DryRun: req.DryRun}
	p.logger.Info("reconciling release", "tag", tag, "dry_run", req.DryRun)

	exists, err := p.host.Exists(ctx, tag)
	if err != nil {
		p.logger.Warn("release probe failed, assuming absent", "tag", tag, "err", err)
		exists = false
	}
	result.Existed = exists

	if exists {
		p.logger.Info("release exists, reusing", "tag", tag)
	} else {
		notes := p.resolveNotes(ctx, req)
		result.Notes = &notes

		if !req.DryRun {
			p.logger.Info("creating release", "tag", tag, "notes", notes.Source)
			if err := p.host.Create(ctx, CreateRequest{
				Tag:        tag,
				Title:      tag,
				Notes:      notes.Body,
				Prerelease: true,
			}); err != nil {
				return nil, fmt.Errorf("creating release %s: %w", tag, err)
			}
			result.Created = true
		}
	}

	if len(assets) == 0 {
		p.logger.Warn("no files to upload", "dist_dir", req.DistDir)
		return result, nil
	}
	if req.DryRun {
		return result, nil
	}

	p.logger.Info("uploading assets", "tag", tag, "count", len(assets))
	if err := p.host.Upload(ctx, tag, assets, true); err != nil {
		return nil, fmt.Errorf("uploading assets to %s: %w", tag, err)
	}
	result.Uploaded = len(assets)

	return result, nil
}

func (p *Publisher) resolveNotes(ctx context.Context, req Request) Notes {
	resolver := &NotesResolver{Host: p.host, Template: req.FallbackNotes}
	if req.Changelog {
		resolver.History = p.history
	}

	notes := resolver.Resolve(ctx, req.SHA)
	if notes.Source == NotesFallback {
		p.logger.Warn("using fallback release notes", "reason", notes.FallbackReason)
	}
	return notes
}
