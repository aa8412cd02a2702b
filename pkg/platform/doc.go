// SPDX-License-Identifier: MPL-2.0

// Package platform holds GOOS name constants and the per-OS file naming
// rules used when cross-compiling release binaries.
package platform
