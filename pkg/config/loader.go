package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, TABLETALK_CONFIG env, ./config.yaml,
//     /etc/tabletalk/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. TABLETALK_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/tabletalk/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("TABLETALK_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/tabletalk/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields. The
// unprefixed names (LLM_PROVIDER, AWS_REGION, S3_BUCKET_NAME, LOG_LEVEL,
// OTEL_SERVICE_NAME, OPENAI_API_KEY, BEDROCK_MODEL_ID) are the ones the
// deployment environment conventionally sets; TABLETALK_* names cover the
// rest of the surface.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TABLETALK_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.OpenAI.APIKey = v
	}
	if v := os.Getenv("TABLETALK_OPENAI_BASE_URL"); v != "" {
		cfg.LLM.OpenAI.BaseURL = v
	}
	if v := os.Getenv("TABLETALK_OPENAI_MODEL"); v != "" {
		cfg.LLM.OpenAI.Model = v
	}
	if v := os.Getenv("BEDROCK_MODEL_ID"); v != "" {
		cfg.LLM.Bedrock.ModelID = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.LLM.Bedrock.Region = v
		cfg.Storage.Region = v
	}

	if v := os.Getenv("S3_BUCKET_NAME"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := os.Getenv("TABLETALK_S3_ENDPOINT"); v != "" {
		cfg.Storage.Endpoint = v
	}

	if v := os.Getenv("TABLETALK_SANDBOX_ENDPOINT"); v != "" {
		cfg.Sandbox.Endpoint = v
	}
	if v := os.Getenv("TABLETALK_SANDBOX_INTERPRETER_ID"); v != "" {
		cfg.Sandbox.InterpreterID = v
	}
	if v := os.Getenv("TABLETALK_SANDBOX_SESSION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Sandbox.SessionTimeout = d
		}
	}

	if v := os.Getenv("TABLETALK_RUNTIME_ENDPOINT"); v != "" {
		cfg.Runtime.Endpoint = v
	}
	if v := os.Getenv("TABLETALK_RUNTIME_ID"); v != "" {
		cfg.Runtime.Identifier = v
	}
	if v := os.Getenv("TABLETALK_RUNTIME_QUALIFIER"); v != "" {
		cfg.Runtime.Qualifier = v
	}

	if v := os.Getenv("TABLETALK_SESSION_STORE"); v != "" {
		cfg.Sessions.Store = v
	}
	if v := os.Getenv("TABLETALK_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sessions.TTL = d
		}
	}
	if v := os.Getenv("TABLETALK_POSTGRES_DSN"); v != "" {
		cfg.Sessions.Postgres.DSN = v
	}

	if v := os.Getenv("TABLETALK_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MaxIterations = n
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		cfg.Observability.ServiceName = v
	}
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields. For each field ending in _file, if the value field is empty
// and the file field is set, the file is read, whitespace is trimmed, and
// the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// llm.openai.api_key_file -> llm.openai.api_key
	if cfg.LLM.OpenAI.APIKeyFile != "" && cfg.LLM.OpenAI.APIKey == "" {
		val, err := readSecretFile(cfg.LLM.OpenAI.APIKeyFile)
		if err != nil {
			return fmt.Errorf("llm.openai.api_key_file: %w", err)
		}
		cfg.LLM.OpenAI.APIKey = val
	}

	// sessions.postgres.dsn_file -> sessions.postgres.dsn
	if cfg.Sessions.Postgres.DSNFile != "" && cfg.Sessions.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Sessions.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("sessions.postgres.dsn_file: %w", err)
		}
		cfg.Sessions.Postgres.DSN = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding
// whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
