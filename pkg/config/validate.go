package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// storage.bucket is required: every endpoint touches object storage.
	if c.Storage.Bucket == "" {
		errs = append(errs, fmt.Errorf("storage.bucket is required (S3_BUCKET_NAME)"))
	}

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	switch c.LLM.Provider {
	case "openai", "bedrock":
		// valid
	default:
		errs = append(errs, fmt.Errorf("llm.provider must be \"openai\" or \"bedrock\", got %q", c.LLM.Provider))
	}

	if c.LLM.Provider == "openai" && c.LLM.OpenAI.APIKey == "" && c.LLM.OpenAI.APIKeyFile == "" {
		errs = append(errs, fmt.Errorf("llm.openai.api_key or llm.openai.api_key_file is required when llm.provider is \"openai\""))
	}

	switch c.Sessions.Store {
	case "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("sessions.store must be \"memory\" or \"postgres\", got %q", c.Sessions.Store))
	}

	if c.Sessions.Store == "postgres" {
		if c.Sessions.Postgres.DSN == "" && c.Sessions.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("sessions.postgres.dsn or sessions.postgres.dsn_file is required when sessions.store is \"postgres\""))
		}
	}

	if c.Engine.MaxIterations < 1 || c.Engine.MaxIterations > 100 {
		errs = append(errs, fmt.Errorf("engine.max_iterations must be between 1 and 100, got %d", c.Engine.MaxIterations))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn, or error, got %q", c.Log.Level))
	}

	if c.Sandbox.SessionTimeout <= 0 {
		errs = append(errs, fmt.Errorf("sandbox.session_timeout must be positive"))
	}

	return errors.Join(errs...)
}
