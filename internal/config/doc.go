// Package config loads taskflow settings from defaults, an optional YAML
// file and TASKFLOW_* environment variables, and validates the result.
package config
