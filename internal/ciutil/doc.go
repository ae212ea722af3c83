// Package ciutil detects CI environments and resolves the environment
// variables test helpers use to find external services.
package ciutil
