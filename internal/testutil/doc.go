// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by the relkit test suites.
//
// Common helpers include a controllable clock (FakeClock), distribution
// directory fixtures (WriteFiles, ListDir), working-directory management
// (MustChdir), and a recorder that fakes external tools by re-executing the
// test binary (CommandRecorder, RunHelperProcess).
package testutil
