// SPDX-License-Identifier: MPL-2.0

// Package build cross-compiles the application for each release target with
// the go toolchain, wraps every binary into a single-entry archive, removes
// the raw binary, and writes the checksum manifest.
//
// The step is fail-fast: the first compiler failure aborts the whole run and
// no further targets are attempted.
package build
