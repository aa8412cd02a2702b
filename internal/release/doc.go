// SPDX-License-Identifier: MPL-2.0

// Package release publishes the contents of a distribution directory as a
// prerelease on a release host.
//
// Publisher is a two-state reconciler. It derives a tag from the commit being
// released and probes the host for it. When the release is absent it resolves
// notes and creates it; when present it reuses it untouched. In both cases
// every regular file of the distribution directory is then uploaded,
// replacing assets of the same name, so re-running a publish is safe.
package release
