// SPDX-License-Identifier: MPL-2.0

package release

import "context"

type (
	// CreateRequest describes a release record to create.
	CreateRequest struct {
		Tag        string
		Title      string
		Notes      string
		Prerelease bool
	}

	// Host is a release-hosting service keyed by tag.
	Host interface {
		// Exists reports whether a release with tag exists.
		Exists(ctx context.Context, tag string) (bool, error)
		// LatestTag returns the tag of the most recent release, or "" when
		// there is none.
		LatestTag(ctx context.Context) (string, error)
		// Create creates a release record.
		Create(ctx context.Context, req CreateRequest) error
		// Upload attaches files to the release. With clobber, assets of the
		// same name are replaced.
		Upload(ctx context.Context, tag string, paths []string, clobber bool) error
	}
)
