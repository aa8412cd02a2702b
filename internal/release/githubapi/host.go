// SPDX-License-Identifier: MPL-2.0

package githubapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/relkit/relkit/internal/release"
)

var _ release.Host = (*Client)(nil)

// Exists reports whether a release with tag exists.
func (c *Client) Exists(ctx context.Context, tag string) (bool, error) {
	_, err := c.getReleaseByTag(ctx, tag)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrReleaseNotFound):
		return false, nil
	default:
		return false, err
	}
}

// LatestTag returns the tag of the most recently created release, or "".
func (c *Client) LatestTag(ctx context.Context) (string, error) {
	op := "listing releases"
	resp, err := c.doRequest(ctx, http.MethodGet, c.repoURL("/releases?per_page=1"), nil, "")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if err := checkRateLimit(resp); err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusError(op, resp)
	}

	var releases []githubRelease
	if err := decodeJSON(resp.Body, &releases); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if len(releases) == 0 {
		return "", nil
	}
	return releases[0].TagName, nil
}

// Create creates a release record.
func (c *Client) Create(ctx context.Context, req release.CreateRequest) error {
	op := "creating release " + req.Tag
	resp, err := c.postJSON(ctx, c.repoURL("/releases"), createReleaseBody{
		TagName:         req.Tag,
		TargetCommitish: c.commitish,
		Name:            req.Title,
		Body:            req.Notes,
		Prerelease:      req.Prerelease,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkRateLimit(resp); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated {
		return statusError(op, resp)
	}
	return nil
}

// Upload uploads every path as a release asset named after its base name.
// With clobber, an existing asset of the same name is deleted first;
// without it, ErrAssetExists is returned.
func (c *Client) Upload(ctx context.Context, tag string, paths []string, clobber bool) error {
	rel, err := c.getReleaseByTag(ctx, tag)
	if err != nil {
		return err
	}

	assets, err := c.listAssets(ctx, rel.ID)
	if err != nil {
		return err
	}
	existing := make(map[string]int64, len(assets))
	for _, a := range assets {
		existing[a.Name] = a.ID
	}

	for _, path := range paths {
		name := filepath.Base(path)
		if id, ok := existing[name]; ok {
			if !clobber {
				return fmt.Errorf("%w: %s", ErrAssetExists, name)
			}
			if err := c.deleteAsset(ctx, id, name); err != nil {
				return err
			}
		}
		if err := c.uploadAsset(ctx, rel.UploadURL, path, name); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) deleteAsset(ctx context.Context, id int64, name string) error {
	op := "deleting asset " + name
	resp, err := c.doRequest(ctx, http.MethodDelete, c.repoURL("/releases/assets/%d", id), nil, "")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkRateLimit(resp); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusNoContent {
		return statusError(op, resp)
	}
	return nil
}

func (c *Client) uploadAsset(ctx context.Context, uploadURL, path, name string) error {
	op := "uploading asset " + name

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = f.Close() }() // read-only file

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, expandUploadURL(uploadURL, name), f, "application/octet-stream")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.ContentLength = info.Size()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: executing request: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkRateLimit(resp); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated {
		return statusError(op, resp)
	}
	return nil
}
