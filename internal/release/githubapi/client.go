// SPDX-License-Identifier: MPL-2.0

package githubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the public GitHub API endpoint.
	DefaultBaseURL = "https://api.github.com"

	// assetsPerPage is the page size used when listing release assets.
	assetsPerPage = 100

	// maxPages bounds pagination to avoid runaway requests.
	maxPages = 10

	// maxJSONResponseBytes is the upper bound on JSON API response size (10 MB).
	maxJSONResponseBytes = 10 << 20
)

var (
	// ErrReleaseNotFound is returned when a requested release tag does not exist.
	ErrReleaseNotFound = errors.New("release not found")
	// ErrAssetExists is returned by Upload without clobber when an asset name is taken.
	ErrAssetExists = errors.New("release asset already exists")
	// ErrInvalidRepo is returned when the repository is not "owner/name".
	ErrInvalidRepo = errors.New("invalid repository")
)

type (
	// RateLimitError is returned when the GitHub API rate limit is exceeded.
	RateLimitError struct {
		Limit     int
		Remaining int
		ResetAt   time.Time
	}

	// StatusError is returned for unexpected HTTP status codes.
	StatusError struct {
		Operation  string
		StatusCode int
		Message    string // "message" field of the GitHub error body, if any
	}

	// githubRelease is the JSON wire format of a release.
	githubRelease struct {
		ID         int64  `json:"id"`
		TagName    string `json:"tag_name"`
		Name       string `json:"name"`
		Prerelease bool   `json:"prerelease"`
		UploadURL  string `json:"upload_url"`
		HTMLURL    string `json:"html_url"`
	}

	// githubAsset is the JSON wire format of a release asset.
	githubAsset struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	// createReleaseBody is the JSON payload of POST /repos/{o}/{r}/releases.
	createReleaseBody struct {
		TagName         string `json:"tag_name"`
		TargetCommitish string `json:"target_commitish,omitempty"`
		Name            string `json:"name"`
		Body            string `json:"body"`
		Prerelease      bool   `json:"prerelease"`
	}

	// Client talks to the GitHub Releases API of one repository.
	Client struct {
		httpClient *http.Client
		owner      string
		repo       string
		baseURL    string
		token      string
		userAgent  string
		commitish  string
	}

	// Option configures a Client during construction.
	Option func(*Client)
)

// Error formats the rate limit details as a human-readable message.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded (%d remaining, resets at %s)",
		e.Remaining, e.ResetAt.UTC().Format("15:04 UTC"))
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: unexpected status %d", e.Operation, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Client) {
		g.httpClient = c
	}
}

// WithBaseURL overrides the API base URL, for GitHub Enterprise or test servers.
func WithBaseURL(base string) Option {
	return func(g *Client) {
		g.baseURL = strings.TrimRight(base, "/")
	}
}

// WithToken sets the token sent as a Bearer credential.
func WithToken(token string) Option {
	return func(g *Client) {
		g.token = token
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(g *Client) {
		g.userAgent = ua
	}
}

// WithTargetCommitish creates new tags at the given commit instead of the
// default branch head.
func WithTargetCommitish(commitish string) Option {
	return func(g *Client) {
		g.commitish = commitish
	}
}

// New creates a Client for repo ("owner/name").
func New(repo string, opts ...Option) (*Client, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("%w %q (expected owner/name)", ErrInvalidRepo, repo)
	}

	c := &Client{
		httpClient: http.DefaultClient,
		owner:      owner,
		repo:       name,
		baseURL:    DefaultBaseURL,
		userAgent:  "relkit/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) repoURL(format string, args ...any) string {
	return fmt.Sprintf("%s/repos/%s/%s", c.baseURL, c.owner, c.repo) + fmt.Sprintf(format, args...)
}

// getReleaseByTag fetches a single release. Returns ErrReleaseNotFound on 404.
func (c *Client) getReleaseByTag(ctx context.Context, tag string) (*githubRelease, error) {
	op := "getting release " + tag
	resp, err := c.doRequest(ctx, http.MethodGet, c.repoURL("/releases/tags/%s", url.PathEscape(tag)), nil, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if err := checkRateLimit(resp); err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrReleaseNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(op, resp)
	}

	var gr githubRelease
	if err := decodeJSON(resp.Body, &gr); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &gr, nil
}

// listAssets returns every asset of a release, following Link pagination.
func (c *Client) listAssets(ctx context.Context, releaseID int64) ([]githubAsset, error) {
	op := "listing release assets"
	pageURL := c.repoURL("/releases/%d/assets?per_page=%d", releaseID, assetsPerPage)

	var all []githubAsset
	for page := 0; page < maxPages && pageURL != ""; page++ {
		resp, err := c.doRequest(ctx, http.MethodGet, pageURL, nil, "")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if rlErr := checkRateLimit(resp); rlErr != nil {
			_ = resp.Body.Close()
			return nil, rlErr
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, statusError(op, resp)
		}

		var assets []githubAsset
		decErr := decodeJSON(resp.Body, &assets)
		_ = resp.Body.Close()
		if decErr != nil {
			return nil, fmt.Errorf("%s: %w", op, decErr)
		}
		all = append(all, assets...)

		pageURL = parseLinkHeader(resp.Header.Get("Link"))
	}
	return all, nil
}

// newRequest creates an HTTP request with common GitHub API headers.
func (c *Client) newRequest(ctx context.Context, method, reqURL string, body io.Reader, contentType string) (*http.Request, error) {
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	// Only attach the token to hosts that belong to the configured API.
	if c.token != "" && isGitHubHost(req.URL, c.baseURL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// doRequest creates and executes a request built by newRequest.
func (c *Client) doRequest(ctx context.Context, method, reqURL string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, reqURL, body, contentType)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	return resp, nil
}

func (c *Client) postJSON(ctx context.Context, reqURL string, payload any) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	return c.doRequest(ctx, http.MethodPost, reqURL, bytes.NewReader(data), "application/json")
}

func decodeJSON(r io.Reader, v any) error {
	if err := json.NewDecoder(io.LimitReader(r, maxJSONResponseBytes)).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// statusError builds a StatusError, reading GitHub's error message if present.
func statusError(op string, resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body) //nolint:errcheck // The message is optional.
	return &StatusError{Operation: op, StatusCode: resp.StatusCode, Message: body.Message}
}

// checkRateLimit returns a RateLimitError when X-RateLimit-Remaining is zero.
func checkRateLimit(resp *http.Response) error {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return nil
	}

	rem, err := strconv.Atoi(remaining)
	if err != nil || rem > 0 {
		return nil //nolint:nilerr // Non-numeric header is non-fatal.
	}

	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))                 //nolint:errcheck // Best-effort header parsing.
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64) //nolint:errcheck // Best-effort header parsing.

	return &RateLimitError{
		Limit:     limit,
		Remaining: 0,
		ResetAt:   time.Unix(resetUnix, 0),
	}
}

// parseLinkHeader extracts the "next" URL from a GitHub Link header.
//
// Example header: <https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
func parseLinkHeader(header string) string {
	for part := range strings.SplitSeq(header, ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start >= 0 && end > start {
			return part[start+1 : end]
		}
	}
	return ""
}

// isGitHubHost reports whether reqURL targets the configured API host or,
// for the public API, the uploads host.
func isGitHubHost(reqURL *url.URL, baseURL string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	if strings.EqualFold(reqURL.Host, base.Host) {
		return true
	}
	return strings.EqualFold(base.Host, "api.github.com") && strings.EqualFold(reqURL.Host, "uploads.github.com")
}

// expandUploadURL strips the RFC 6570 template suffix of upload_url and adds
// the asset name, e.g. ".../assets{?name,label}" -> ".../assets?name=a.zip".
func expandUploadURL(template, name string) string {
	if i := strings.Index(template, "{"); i >= 0 {
		template = template[:i]
	}
	return template + "?name=" + url.QueryEscape(name)
}
