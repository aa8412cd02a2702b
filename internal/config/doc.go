// SPDX-License-Identifier: MPL-2.0

// Package config handles relkit configuration using Viper with CUE as the file format.
//
// Configuration is read from relkit.cue in the working directory, or from the
// file passed with --config. The file is validated against an embedded CUE
// schema (config_schema.cue) before it is merged over DefaultConfig. Every key
// can also be overridden with a RELKIT_ environment variable, for example
// RELKIT_DIST_DIR or RELKIT_RELEASE_HOST.
package config
