// SPDX-License-Identifier: MPL-2.0

package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/relkit/relkit/internal/execx"
)

// logFormat separates hash, abbreviated hash and subject with tabs.
const logFormat = "--pretty=format:%H%x09%h%x09%s"

// GitCLI lists commits with "git log".
type GitCLI struct {
	git *execx.Runner
}

// NewGitCLI creates a GitCLI backed by runner, which must invoke git.
func NewGitCLI(runner *execx.Runner) *GitCLI {
	return &GitCLI{git: runner}
}

// Log runs "git log <since>..HEAD". An empty since lists all of HEAD.
func (g *GitCLI) Log(ctx context.Context, since string) ([]Commit, error) {
	rng := "HEAD"
	if since != "" {
		rng = since + "..HEAD"
	}

	out, err := g.git.Output(ctx, "log", rng, logFormat)
	if err != nil {
		return nil, err
	}
	return parseLog(out)
}

func parseLog(out string) ([]Commit, error) {
	var commits []Commit
	for line := range strings.SplitSeq(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("unexpected git log line %q", line)
		}
		commits = append(commits, Commit{Hash: parts[0], ShortHash: parts[1], Subject: parts[2]})
	}
	return commits, nil
}
