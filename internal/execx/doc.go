// SPDX-License-Identifier: MPL-2.0

// Package execx runs external command-line tools (go, gh, git) behind an
// injectable exec.Cmd factory and reports failures as *ToolError values that
// carry the tool's exit code.
package execx
