// SPDX-License-Identifier: MPL-2.0

package history

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GoGit lists commits by walking the repository with go-git.
type GoGit struct {
	dir string
}

// NewGoGit creates a GoGit reader for the repository containing dir.
func NewGoGit(dir string) *GoGit {
	return &GoGit{dir: dir}
}

// Log returns the commits reachable from HEAD and not from since, ordered by
// committer time, newest first. An empty since lists all of HEAD.
func (g *GoGit) Log(ctx context.Context, since string) ([]Commit, error) {
	repo, err := git.PlainOpenWithOptions(g.dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository %s: %w", g.dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}

	exclude := map[plumbing.Hash]bool{}
	if since != "" {
		base, resolveErr := resolveCommit(repo, since)
		if resolveErr != nil {
			return nil, resolveErr
		}
		if exclude, err = ancestors(ctx, repo, base); err != nil {
			return nil, err
		}
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("walking history: %w", err)
	}
	defer iter.Close()

	var commits []Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if exclude[c.Hash] {
			return nil
		}
		hash := c.Hash.String()
		commits = append(commits, Commit{Hash: hash, ShortHash: shorten(hash), Subject: subjectOf(c.Message)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return commits, nil
}

// resolveCommit resolves a tag (lightweight or annotated) or any revision
// go-git understands to a commit hash.
func resolveCommit(repo *git.Repository, rev string) (plumbing.Hash, error) {
	if ref, err := repo.Tag(rev); err == nil {
		if tag, tagErr := repo.TagObject(ref.Hash()); tagErr == nil {
			c, commitErr := tag.Commit()
			if commitErr != nil {
				return plumbing.ZeroHash, fmt.Errorf("peeling tag %s: %w", rev, commitErr)
			}
			return c.Hash, nil
		}
		return ref.Hash(), nil
	}

	h, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s: %w", ErrRevisionNotFound, rev, err)
	}
	return *h, nil
}

func ancestors(ctx context.Context, repo *git.Repository, from plumbing.Hash) (map[plumbing.Hash]bool, error) {
	iter, err := repo.Log(&git.LogOptions{From: from})
	if err != nil {
		return nil, fmt.Errorf("walking history of %s: %w", from, err)
	}
	defer iter.Close()

	seen := map[plumbing.Hash]bool{}
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		seen[c.Hash] = true
		return nil
	})
	return seen, err
}
