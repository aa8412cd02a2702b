// SPDX-License-Identifier: MPL-2.0

// Package githubapi implements release.Host against the GitHub REST API,
// without requiring the gh CLI.
//
// Assets are uploaded one file per request to the release's upload URL.
// Clobbering deletes an existing asset of the same name before uploading.
package githubapi
