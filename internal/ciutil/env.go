package ciutil

import (
	"log/slog"
	"os"

	"github.com/phrazzld/taskflow/internal/redact"
)

// Environment variables consulted by test helpers.
const (
	// CI environment detection variables
	EnvCI            = "CI"
	EnvGitHubActions = "GITHUB_ACTIONS"
	EnvGitLabCI      = "GITLAB_CI"
	EnvJenkinsURL    = "JENKINS_URL"
	EnvCircleCI      = "CIRCLECI"

	// Database connection environment variables, preferred name first
	EnvTestDBURL   = "TASKFLOW_TEST_DB_URL"
	EnvDatabaseURL = "DATABASE_URL"
)

// TestDatabaseURLVars lists the variables that may hold the integration test
// database URL, in lookup order.
var TestDatabaseURLVars = []string{EnvTestDBURL, EnvDatabaseURL}

// IsCI returns true if the current environment is a CI environment.
func IsCI() bool {
	return os.Getenv(EnvCI) != "" ||
		os.Getenv(EnvGitHubActions) != "" ||
		os.Getenv(EnvGitLabCI) != "" ||
		os.Getenv(EnvJenkinsURL) != "" ||
		os.Getenv(EnvCircleCI) != ""
}

// GetEnvWithFallbacks returns the value of the first non-empty environment variable
// from the provided list. If no environment variables are set, it returns the defaultValue.
func GetEnvWithFallbacks(envVars []string, defaultValue string, logger *slog.Logger) string {
	for i, envVar := range envVars {
		if val := os.Getenv(envVar); val != "" {
			if i > 0 && logger != nil {
				logger.Warn("using fallback environment variable",
					"used_var", envVar,
					"preferred_var", envVars[0],
					"value", redact.String(val),
				)
			}
			return val
		}
	}
	return defaultValue
}

// TestDatabaseURL returns the integration test database URL, or "" when none is configured.
func TestDatabaseURL(logger *slog.Logger) string {
	return GetEnvWithFallbacks(TestDatabaseURLVars, "", logger)
}
