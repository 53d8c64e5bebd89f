// Package config provides unified configuration for the tabletalk service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (TABLETALK_ prefix, plus the
//     well-known unprefixed names the deployment environment sets)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the tabletalk service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	LLM           LLMConfig           `yaml:"llm"`
	Storage       StorageConfig       `yaml:"storage"`
	Sandbox       SandboxConfig       `yaml:"sandbox"`
	Runtime       RuntimeConfig       `yaml:"runtime"`
	Sessions      SessionsConfig      `yaml:"sessions"`
	Engine        EngineConfig        `yaml:"engine"`
	Observability ObservabilityConfig `yaml:"observability"`
	Log           LogConfig           `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 15m (agent runs are long)
}

// LLMConfig selects and configures the model backend.
type LLMConfig struct {
	Provider string        `yaml:"provider"` // "openai" or "bedrock", default: "bedrock"
	OpenAI   OpenAIConfig  `yaml:"openai"`
	Bedrock  BedrockConfig `yaml:"bedrock"`
}

// OpenAIConfig holds settings for an OpenAI-compatible Chat Completions backend.
type OpenAIConfig struct {
	BaseURL    string `yaml:"base_url"` // default: https://api.openai.com
	APIKey     string `yaml:"api_key"`
	APIKeyFile string `yaml:"api_key_file"` // _file variant for api_key
	Model      string `yaml:"model"`        // default: gpt-4.1
}

// BedrockConfig holds settings for the Bedrock Converse backend.
type BedrockConfig struct {
	ModelID string `yaml:"model_id"` // default: us.anthropic.claude-3-7-sonnet-20250219-v1:0
	Region  string `yaml:"region"`   // default: us-west-2
}

// StorageConfig holds object storage settings.
type StorageConfig struct {
	Bucket   string `yaml:"bucket"`   // required
	Region   string `yaml:"region"`   // default: us-west-2
	Endpoint string `yaml:"endpoint"` // optional, for S3-compatible stores
}

// SandboxConfig holds code-interpreter sandbox service settings.
type SandboxConfig struct {
	Endpoint       string        `yaml:"endpoint"`        // sandbox service base URL
	InterpreterID  string        `yaml:"interpreter_id"`  // required to start sessions
	SessionTimeout time.Duration `yaml:"session_timeout"` // default: 1200s
	SetupPackages  []string      `yaml:"setup_packages"`  // installed once per session
}

// RuntimeConfig holds remote agent runtime settings used by /chat.
type RuntimeConfig struct {
	Endpoint   string `yaml:"endpoint"`
	Identifier string `yaml:"identifier"` // required for /chat
	Qualifier  string `yaml:"qualifier"`  // default: DEFAULT
}

// SessionsConfig holds sandbox session cache settings.
type SessionsConfig struct {
	Store    string         `yaml:"store"`    // "memory" or "postgres", default: "memory"
	TTL      time.Duration  `yaml:"ttl"`      // default: 1h, 0 = no expiry
	MaxSize  int            `yaml:"max_size"` // for memory store, default: 1000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	DSNFile  string `yaml:"dsn_file"` // _file variant for dsn
	MaxConns int32  `yaml:"max_conns"` // default: 10
}

// EngineConfig holds agent loop settings.
type EngineConfig struct {
	MaxIterations int `yaml:"max_iterations"` // default: 15, upper bound 100
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name"` // default: "tabletalk"
	Metrics     MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug|info|warn|error, default: "info"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 15 * time.Minute,
		},
		LLM: LLMConfig{
			Provider: "bedrock",
			OpenAI: OpenAIConfig{
				BaseURL: "https://api.openai.com",
				Model:   "gpt-4.1",
			},
			Bedrock: BedrockConfig{
				ModelID: "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
				Region:  "us-west-2",
			},
		},
		Storage: StorageConfig{
			Region: "us-west-2",
		},
		Sandbox: SandboxConfig{
			SessionTimeout: 1200 * time.Second,
		},
		Runtime: RuntimeConfig{
			Qualifier: "DEFAULT",
		},
		Sessions: SessionsConfig{
			Store:   "memory",
			TTL:     time.Hour,
			MaxSize: 1000,
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
		},
		Engine: EngineConfig{
			MaxIterations: 15,
		},
		Observability: ObservabilityConfig{
			ServiceName: "tabletalk",
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
