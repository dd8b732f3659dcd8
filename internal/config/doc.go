// Package config defines the application configuration structures and
// loading logic. Configuration is sourced from environment variables
// (TASKHUB_ prefix), an optional config.yaml, and an optional .env file,
// then validated before use.
package config
