// Package config handles configuration for the arcdump CLI.
//
// Configuration is resolved in precedence order: built-in defaults, then
// an optional YAML config file, then ARCDUMP_-prefixed environment
// variables, then command-line flags merged on top.
package config
