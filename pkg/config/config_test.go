package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("default server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.LLM.Provider != "bedrock" {
		t.Errorf("default llm.provider = %q, want \"bedrock\"", cfg.LLM.Provider)
	}
	if cfg.Sandbox.SessionTimeout != 1200*time.Second {
		t.Errorf("default sandbox.session_timeout = %v, want 1200s", cfg.Sandbox.SessionTimeout)
	}
	if cfg.Sessions.Store != "memory" {
		t.Errorf("default sessions.store = %q, want \"memory\"", cfg.Sessions.Store)
	}
	if cfg.Sessions.TTL != time.Hour {
		t.Errorf("default sessions.ttl = %v, want 1h", cfg.Sessions.TTL)
	}
	if cfg.Engine.MaxIterations != 15 {
		t.Errorf("default engine.max_iterations = %d, want 15", cfg.Engine.MaxIterations)
	}
	if cfg.Runtime.Qualifier != "DEFAULT" {
		t.Errorf("default runtime.qualifier = %q, want \"DEFAULT\"", cfg.Runtime.Qualifier)
	}
	if !cfg.Observability.Metrics.Enabled {
		t.Error("default observability.metrics.enabled = false, want true")
	}
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `
server:
  port: 9090
  write_timeout: 10m
llm:
  provider: openai
  openai:
    base_url: http://localhost:4000
    api_key: sk-test-key
    model: gpt-4.1-mini
storage:
  bucket: analytics-data
  region: eu-central-1
sandbox:
  endpoint: http://sandbox:9000
  interpreter_id: ci-test
  session_timeout: 600s
  setup_packages: [matplotlib]
sessions:
  store: memory
  ttl: 30m
  max_size: 50
engine:
  max_iterations: 40
log:
  level: debug
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.WriteTimeout != 10*time.Minute {
		t.Errorf("server.write_timeout = %v, want 10m", cfg.Server.WriteTimeout)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("llm.provider = %q, want \"openai\"", cfg.LLM.Provider)
	}
	if cfg.LLM.OpenAI.Model != "gpt-4.1-mini" {
		t.Errorf("llm.openai.model = %q, want \"gpt-4.1-mini\"", cfg.LLM.OpenAI.Model)
	}
	if cfg.Storage.Bucket != "analytics-data" {
		t.Errorf("storage.bucket = %q, want \"analytics-data\"", cfg.Storage.Bucket)
	}
	if cfg.Sandbox.InterpreterID != "ci-test" {
		t.Errorf("sandbox.interpreter_id = %q, want \"ci-test\"", cfg.Sandbox.InterpreterID)
	}
	if cfg.Sandbox.SessionTimeout != 600*time.Second {
		t.Errorf("sandbox.session_timeout = %v, want 600s", cfg.Sandbox.SessionTimeout)
	}
	if len(cfg.Sandbox.SetupPackages) != 1 || cfg.Sandbox.SetupPackages[0] != "matplotlib" {
		t.Errorf("sandbox.setup_packages = %v, want [matplotlib]", cfg.Sandbox.SetupPackages)
	}
	if cfg.Sessions.MaxSize != 50 {
		t.Errorf("sessions.max_size = %d, want 50", cfg.Sessions.MaxSize)
	}
	if cfg.Engine.MaxIterations != 40 {
		t.Errorf("engine.max_iterations = %d, want 40", cfg.Engine.MaxIterations)
	}
	// Defaults survive for fields the YAML omits.
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("server.read_timeout = %v, want default 30s", cfg.Server.ReadTimeout)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("S3_BUCKET_NAME", "env-bucket")
	t.Setenv("LLM_PROVIDER", "OPENAI")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("AWS_REGION", "ap-southeast-2")
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("OTEL_SERVICE_NAME", "pandas-agent-core")
	t.Setenv("TABLETALK_MAX_ITERATIONS", "100")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Storage.Bucket != "env-bucket" {
		t.Errorf("storage.bucket = %q, want \"env-bucket\"", cfg.Storage.Bucket)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("llm.provider = %q, want \"openai\" (lowercased)", cfg.LLM.Provider)
	}
	if cfg.LLM.Bedrock.Region != "ap-southeast-2" {
		t.Errorf("llm.bedrock.region = %q, want \"ap-southeast-2\"", cfg.LLM.Bedrock.Region)
	}
	if cfg.Storage.Region != "ap-southeast-2" {
		t.Errorf("storage.region = %q, want \"ap-southeast-2\"", cfg.Storage.Region)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q, want \"warn\"", cfg.Log.Level)
	}
	if cfg.Observability.ServiceName != "pandas-agent-core" {
		t.Errorf("service name = %q, want \"pandas-agent-core\"", cfg.Observability.ServiceName)
	}
	if cfg.Engine.MaxIterations != 100 {
		t.Errorf("engine.max_iterations = %d, want 100", cfg.Engine.MaxIterations)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("S3_BUCKET_NAME", "b")
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for explicit missing config file")
	}
}

func TestAPIKeyFileResolution(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "openai-key")
	if err := os.WriteFile(keyPath, []byte("  sk-from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	yamlContent := `
llm:
  provider: openai
  openai:
    api_key_file: ` + keyPath + `
storage:
  bucket: b
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.LLM.OpenAI.APIKey != "sk-from-file" {
		t.Errorf("api_key = %q, want trimmed file content", cfg.LLM.OpenAI.APIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing bucket",
			mutate:  func(c *Config) { c.Storage.Bucket = "" },
			wantErr: "storage.bucket",
		},
		{
			name:    "bad provider",
			mutate:  func(c *Config) { c.LLM.Provider = "cohere" },
			wantErr: "llm.provider",
		},
		{
			name:    "openai without key",
			mutate:  func(c *Config) { c.LLM.Provider = "openai" },
			wantErr: "llm.openai.api_key",
		},
		{
			name:    "bad session store",
			mutate:  func(c *Config) { c.Sessions.Store = "redis" },
			wantErr: "sessions.store",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.Sessions.Store = "postgres" },
			wantErr: "sessions.postgres.dsn",
		},
		{
			name:    "iterations out of range",
			mutate:  func(c *Config) { c.Engine.MaxIterations = 101 },
			wantErr: "engine.max_iterations",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "trace" },
			wantErr: "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Storage.Bucket = "b"
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}
