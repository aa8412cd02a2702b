// SPDX-License-Identifier: MPL-2.0

// Package ghcli implements release.Host on top of the GitHub CLI (gh).
package ghcli
