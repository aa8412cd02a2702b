// SPDX-License-Identifier: MPL-2.0

package platform

// OS name constants for GOOS comparisons.
// Centralizes the string literals to avoid scattered magic strings.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// ExecutableSuffix returns the file suffix a binary built for goos must carry.
func ExecutableSuffix(goos string) string {
	if goos == Windows {
		return ".exe"
	}
	return ""
}
