// SPDX-License-Identifier: MPL-2.0

package release

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/relkit/relkit/internal/history"
)

type fakeRelease struct {
	req    CreateRequest
	assets map[string]int // asset name -> times uploaded
}

// fakeHost is an in-memory release host.
type fakeHost struct {
	mu       sync.Mutex
	releases map[string]*fakeRelease
	order    []string
	calls    []string

	existsErr error
	latestErr error
	createErr error
	uploadErr error
}

func newFakeHost() *fakeHost {
	return &fakeHost{releases: map[string]*fakeRelease{}}
}

func (h *fakeHost) record(call string) {
	h.calls = append(h.calls, call)
}

func (h *fakeHost) Exists(_ context.Context, tag string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("exists")
	if h.existsErr != nil {
		return false, h.existsErr
	}
	_, ok := h.releases[tag]
	return ok, nil
}

func (h *fakeHost) LatestTag(context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("latest")
	if h.latestErr != nil {
		return "", h.latestErr
	}
	if len(h.order) == 0 {
		return "", nil
	}
	return h.order[len(h.order)-1], nil
}

func (h *fakeHost) Create(_ context.Context, req CreateRequest) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("create")
	if h.createErr != nil {
		return h.createErr
	}
	if _, ok := h.releases[req.Tag]; ok {
		return errors.New("release already exists")
	}
	h.releases[req.Tag] = &fakeRelease{req: req, assets: map[string]int{}}
	h.order = append(h.order, req.Tag)
	return nil
}

func (h *fakeHost) Upload(_ context.Context, tag string, paths []string, clobber bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("upload")
	if h.uploadErr != nil {
		return h.uploadErr
	}
	rel, ok := h.releases[tag]
	if !ok {
		return errors.New("release not found")
	}
	for _, p := range paths {
		name := filepath.Base(p)
		if rel.assets[name] > 0 && !clobber {
			return errors.New("asset exists")
		}
		rel.assets[name]++
	}
	return nil
}

func (h *fakeHost) count(call string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if c == call {
			n++
		}
	}
	return n
}

// fakeHistory returns canned commits or an error.
type fakeHistory struct {
	commits []history.Commit
	err     error
	since   []string
}

func (f *fakeHistory) Log(_ context.Context, since string) ([]history.Commit, error) {
	f.since = append(f.since, since)
	return f.commits, f.err
}
