// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for relkit.
//
// The root command wires build-release, upload-release, verify-checksums and
// config. Every handler receives an App, the composition root that creates
// the external tool runners and release hosts, so tests can replace the go,
// gh and git processes and the GitHub API endpoint.
package cmd
