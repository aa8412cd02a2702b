// SPDX-License-Identifier: MPL-2.0

package release

import (
	"context"
	"fmt"
	"strings"

	"github.com/relkit/relkit/internal/history"
	"github.com/relkit/relkit/pkg/types"
)

const (
	// NotesChangelog marks notes generated from commit history.
	NotesChangelog NotesSource = "changelog"
	// NotesFallback marks notes built from the fallback template.
	NotesFallback NotesSource = "fallback"

	// DefaultFallbackNotes is the fallback template. "{sha}" expands to the full commit SHA.
	DefaultFallbackNotes = "Automated nightly build for commit {sha}"

	changelogHeader = "## Changelog\n\n"
)

type (
	// NotesSource tells where release notes came from.
	NotesSource string

	// Notes is the outcome of notes resolution. A fallback is a normal result,
	// not an error; FallbackReason says why the changelog was not used.
	Notes struct {
		Body           string
		Source         NotesSource
		FallbackReason string
	}

	// History lists the commits made since a revision, newest first.
	History interface {
		Log(ctx context.Context, since string) ([]history.Commit, error)
	}

	// NotesResolver builds release notes from the previous release tag and
	// the commits made since.
	NotesResolver struct {
		Host     Host
		History  History // nil disables the changelog
		Template string  // defaults to DefaultFallbackNotes
	}
)

// Resolve never fails: every lookup error turns into fallback notes.
func (r *NotesResolver) Resolve(ctx context.Context, sha types.CommitSHA) Notes {
	if r.History == nil {
		return r.fallback(sha, "changelog disabled")
	}

	lastTag, err := r.Host.LatestTag(ctx)
	if err != nil {
		return r.fallback(sha, fmt.Sprintf("looking up previous release: %v", err))
	}
	if lastTag == "" {
		return r.fallback(sha, "no previous release")
	}

	commits, err := r.History.Log(ctx, lastTag)
	if err != nil {
		return r.fallback(sha, fmt.Sprintf("listing commits since %s: %v", lastTag, err))
	}
	if len(commits) == 0 {
		return r.fallback(sha, "no commits since "+lastTag)
	}

	return Notes{Body: Changelog(commits), Source: NotesChangelog}
}

func (r *NotesResolver) fallback(sha types.CommitSHA, reason string) Notes {
	return Notes{
		Body:           FallbackNotes(r.Template, sha),
		Source:         NotesFallback,
		FallbackReason: reason,
	}
}

// Changelog renders commits as a Markdown section, one bullet per commit.
func Changelog(commits []history.Commit) string {
	lines := make([]string, 0, len(commits))
	for _, c := range commits {
		lines = append(lines, c.Line())
	}
	return changelogHeader + strings.Join(lines, "\n")
}

// FallbackNotes expands template (DefaultFallbackNotes when empty) for sha.
func FallbackNotes(template string, sha types.CommitSHA) string {
	if template == "" {
		template = DefaultFallbackNotes
	}
	return strings.ReplaceAll(template, "{sha}", sha.String())
}
