package engine

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/tabletalk-dev/tabletalk/pkg/api"
	"github.com/tabletalk-dev/tabletalk/pkg/dataset"
	"github.com/tabletalk-dev/tabletalk/pkg/objectstore"
	"github.com/tabletalk-dev/tabletalk/pkg/provider"
	"github.com/tabletalk-dev/tabletalk/pkg/sandbox"
)

// chartExtensions are the artifact types surfaced as chart URLs.
var chartExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".svg":  true,
	".pdf":  true,
}

// Config holds agent loop settings.
type Config struct {
	// Model is the backend model identifier.
	Model string

	// MaxIterations bounds the tool-calling loop (default 15, max 100).
	MaxIterations int

	// Temperature is the sampling temperature. The agent defaults to 0
	// so analyses are reproducible.
	Temperature float64

	// Bucket is the object-store bucket charts are discovered in.
	Bucket string

	// ChartURLTTL is the lifetime of presigned chart URLs (default 1h).
	ChartURLTTL time.Duration
}

// Engine runs the data-analysis agent end to end.
type Engine struct {
	provider provider.Provider
	loader   *dataset.Loader
	manager  *sandbox.Manager
	client   sandbox.API
	store    objectstore.Store
	cfg      Config

	now func() time.Time
}

// New creates an Engine. The store may be nil when chart discovery is
// not configured.
func New(p provider.Provider, loader *dataset.Loader, manager *sandbox.Manager, client sandbox.API, store objectstore.Store, cfg Config) *Engine {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 15
	}
	if cfg.MaxIterations > 100 {
		cfg.MaxIterations = 100
	}
	if cfg.ChartURLTTL == 0 {
		cfg.ChartURLTTL = time.Hour
	}
	return &Engine{
		provider: p,
		loader:   loader,
		manager:  manager,
		client:   client,
		store:    store,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Result is the assembled outcome of one agent run.
type Result struct {
	// Output is the agent's final textual answer.
	Output string

	// Steps is the (action, observation) trace of the loop.
	Steps []api.Step

	// DataframesLoaded lists the table names staged into the sandbox.
	DataframesLoaded []string

	// Charts holds presigned URLs for chart artifacts found under the
	// session's chart prefix. Empty when no session key or no charts.
	Charts []string
}

// DiscoverCharts lists chart artifacts written under charts/{key}/ and
// returns time-limited presigned URLs for them. Non-image files under
// the prefix are ignored; an empty prefix yields an empty list.
func (e *Engine) DiscoverCharts(ctx context.Context, key string) ([]string, error) {
	if e.store == nil || e.cfg.Bucket == "" || key == "" {
		return []string{}, nil
	}

	prefix := "charts/" + key + "/"
	keys, err := e.store.List(ctx, e.cfg.Bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", prefix, err)
	}
	sort.Strings(keys)

	urls := []string{}
	for _, k := range keys {
		if !chartExtensions[strings.ToLower(path.Ext(k))] {
			continue
		}
		url, err := e.store.PresignGet(ctx, e.cfg.Bucket, k, e.cfg.ChartURLTTL)
		if err != nil {
			return nil, fmt.Errorf("presigning %s: %w", k, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}
