// SPDX-License-Identifier: MPL-2.0

// Package history lists the commits made since a given revision, newest
// first. GitCLI shells out to git; GoGit reads the repository in-process and
// needs no git binary.
package history
