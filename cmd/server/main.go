// Command server runs the tabletalk data-analysis gateway.
//
// Configuration is layered: built-in defaults, an optional YAML config
// file (TABLETALK_CONFIG or ./tabletalk.yaml), then TABLETALK_*
// environment variable overrides. See pkg/config for the full set.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/tabletalk-dev/tabletalk/pkg/config"
	"github.com/tabletalk-dev/tabletalk/pkg/dataset"
	"github.com/tabletalk-dev/tabletalk/pkg/debug"
	"github.com/tabletalk-dev/tabletalk/pkg/engine"
	objstores3 "github.com/tabletalk-dev/tabletalk/pkg/objectstore/s3"
	"github.com/tabletalk-dev/tabletalk/pkg/provider"
	"github.com/tabletalk-dev/tabletalk/pkg/provider/bedrock"
	"github.com/tabletalk-dev/tabletalk/pkg/provider/openaicompat"
	"github.com/tabletalk-dev/tabletalk/pkg/runtime"
	"github.com/tabletalk-dev/tabletalk/pkg/sandbox"
	"github.com/tabletalk-dev/tabletalk/pkg/session"
	sessionmem "github.com/tabletalk-dev/tabletalk/pkg/session/memory"
	sessionpg "github.com/tabletalk-dev/tabletalk/pkg/session/postgres"
	"github.com/tabletalk-dev/tabletalk/pkg/transport"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	debug.Init(cfg.Log.Level)

	ctx := context.Background()

	// Model backend.
	prov, err := newProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}
	defer prov.Close()

	// Object storage for datasets and charts.
	store, err := objstores3.New(ctx, objstores3.Config{
		Region:   cfg.Storage.Region,
		Endpoint: cfg.Storage.Endpoint,
	})
	if err != nil {
		return fmt.Errorf("creating object store: %w", err)
	}

	// Sandbox session cache.
	sessions, err := newSessionStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}
	defer sessions.Close()

	// Sandbox service and session manager.
	sandboxClient := sandbox.NewClient(cfg.Sandbox.Endpoint, cfg.Server.WriteTimeout)
	manager := sandbox.NewManager(sandboxClient, sessions, sandbox.ManagerConfig{
		InterpreterID:  cfg.Sandbox.InterpreterID,
		SessionTimeout: cfg.Sandbox.SessionTimeout,
		SetupPackages:  cfg.Sandbox.SetupPackages,
	})

	eng := engine.New(prov, dataset.NewLoader(store), manager, sandboxClient, store, engine.Config{
		Model:         modelFor(cfg),
		MaxIterations: cfg.Engine.MaxIterations,
		Bucket:        cfg.Storage.Bucket,
	})

	// Remote agent runtime relay for /chat, optional.
	var invoker transport.RuntimeInvoker
	if cfg.Runtime.Endpoint != "" {
		invoker = runtime.New(runtime.Config{
			BaseURL:    cfg.Runtime.Endpoint,
			Identifier: cfg.Runtime.Identifier,
			Qualifier:  cfg.Runtime.Qualifier,
		}, cfg.Server.WriteTimeout)
	}

	handler := transport.NewHandler(eng, invoker, manager, store, cfg.Storage.Bucket, slog.Default())

	srv := transport.NewServer(handler, transport.ServerConfig{
		Addr:           ":" + strconv.Itoa(cfg.Server.Port),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MetricsEnabled: cfg.Observability.Metrics.Enabled,
		MetricsPath:    cfg.Observability.Metrics.Path,
		Logger:         slog.Default(),
	})

	slog.Info("tabletalk starting",
		"port", cfg.Server.Port,
		"provider", cfg.LLM.Provider,
		"model", modelFor(cfg),
		"bucket", cfg.Storage.Bucket,
		"session_store", cfg.Sessions.Store)

	return srv.ListenAndServe()
}

func newProvider(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return openaicompat.New(cfg.LLM.OpenAI.BaseURL, cfg.LLM.OpenAI.APIKey, 5*time.Minute), nil
	case "bedrock":
		return bedrock.New(ctx, cfg.LLM.Bedrock.Region)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.LLM.Provider)
	}
}

func modelFor(cfg *config.Config) string {
	if cfg.LLM.Provider == "openai" {
		return cfg.LLM.OpenAI.Model
	}
	return cfg.LLM.Bedrock.ModelID
}

func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.Sessions.Store {
	case "memory":
		return sessionmem.New(cfg.Sessions.TTL, cfg.Sessions.MaxSize), nil
	case "postgres":
		return sessionpg.New(ctx, sessionpg.Config{
			DSN:      cfg.Sessions.Postgres.DSN,
			MaxConns: cfg.Sessions.Postgres.MaxConns,
			TTL:      cfg.Sessions.TTL,
		})
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Sessions.Store)
	}
}
