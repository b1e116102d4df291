// Package configs provides the embedded configuration template for
// frivillig.
//
// The template is embedded at build time so that `frivillig config init`
// works from any binary, and is kept in step with the defaults in
// internal/config.NewConfig().
package configs

import _ "embed"

// ProjectConfigTemplate is written to ./frivillig.yaml by
// `frivillig config init`.
//
//go:embed frivillig.example.yaml
var ProjectConfigTemplate string
