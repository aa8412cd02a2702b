// SPDX-License-Identifier: MPL-2.0

// Package archive writes and lists the single-entry release archives:
// ".zip" for Windows targets and ".tar.gz" for everything else.
package archive
