// SPDX-License-Identifier: MPL-2.0

// Package checksum generates, parses and verifies SHA256SUMS manifests in the
// standard sha256sum output format ("<hex digest>  <filename>").
package checksum
