// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates user-supplied CUE documents against an embedded
// schema definition and decodes the result into Go values.
//
//	//go:embed config_schema.cue
//	var schema string
//
//	result, err := cueutil.ParseAndDecodeString[map[string]any](
//	    schema, data, "#Config", cueutil.WithFilename("relkit.cue"),
//	)
//
// Errors carry the file name and a JSON-style path to the offending field,
// e.g. "relkit.cue: release.host: 2 errors in empty disjunction".
package cueutil
