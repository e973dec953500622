// Package crawler is the orchestrator: it wires discovery, scraping,
// analysis, live validation, and persistence into bounded pipeline runs,
// and owns the schedule and the enable/disable safety switches.
package crawler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mcpscout/mcpcrawl/pkg/analyze"
	"github.com/mcpscout/mcpcrawl/pkg/buildinfo"
	"github.com/mcpscout/mcpcrawl/pkg/cache"
	"github.com/mcpscout/mcpcrawl/pkg/discovery"
	crawlerrors "github.com/mcpscout/mcpcrawl/pkg/errors"
	"github.com/mcpscout/mcpcrawl/pkg/httputil"
	"github.com/mcpscout/mcpcrawl/pkg/intel"
	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/registry/crates"
	"github.com/mcpscout/mcpcrawl/pkg/registry/github"
	"github.com/mcpscout/mcpcrawl/pkg/registry/goproxy"
	"github.com/mcpscout/mcpcrawl/pkg/registry/npm"
	"github.com/mcpscout/mcpcrawl/pkg/registry/pypi"
	"github.com/mcpscout/mcpcrawl/pkg/scrape"
	"github.com/mcpscout/mcpcrawl/pkg/store"
)

// validator is the live-validation surface the pipeline consumes; satisfied
// by *intel.Collector.
type validator interface {
	Collect(ctx context.Context, cand model.Candidate, install model.InstallMethod, authHint *model.AuthRequirement) *model.IntelligenceReport
}

// Crawler holds the wired pipeline. Construct with New, trigger with
// RunOnce, and hand to a Scheduler for periodic operation.
type Crawler struct {
	cfg         *Config
	logger      *log.Logger
	store       *store.Store
	filter      *discovery.Filter
	discoverers []discovery.Discoverer
	scrapers    map[model.Ecosystem]scrape.Scraper
	analyzer    *analyze.Analyzer
	collector   validator

	active  atomic.Bool
	mu      sync.Mutex
	current *model.Run // in-flight run, nil when idle
}

// New wires a Crawler from configuration. The store is injected so the CLI
// can share one handle between commands.
func New(cfg *Config, st *store.Store, logger *log.Logger) (*Crawler, error) {
	if logger == nil {
		logger = log.Default()
	}

	backend, err := cacheBackend(cfg)
	if err != nil {
		return nil, err
	}

	fetcher := httputil.NewFetcher(httputil.RateLimits{
		RegistryQPS: cfg.HTTP.RegistryQPS,
		RepoAPIQPS:  cfg.HTTP.RepoAPIQPS,
		DocSiteQPS:  cfg.HTTP.DocSiteQPS,
		GenericQPS:  cfg.HTTP.GenericQPS,
	}, buildinfo.UserAgent(), nil)

	ttl := cfg.HTTP.CacheTTL.Std()
	npmClient := npm.NewClient(fetcher, backend, ttl)
	pypiClient := pypi.NewClient(fetcher, backend, ttl)
	cratesClient := crates.NewClient(fetcher, backend, ttl)
	proxyClient := goproxy.NewClient(fetcher, backend, ttl)
	ghClient := github.NewClient(fetcher, backend, cfg.Crawler.GitHubToken, ttl)

	seeds := discovery.DefaultSeeds()
	if len(cfg.Discovery.Keywords) > 0 {
		seeds.Keywords = cfg.Discovery.Keywords
	}
	if len(cfg.Discovery.Patterns) > 0 {
		seeds.Patterns = cfg.Discovery.Patterns
	}
	if len(cfg.Discovery.Topics) > 0 {
		seeds.Topics = cfg.Discovery.Topics
	}

	size := cfg.Discovery.PageSize
	discoverers := []discovery.Discoverer{
		discovery.NewNPM(npmClient, seeds, size),
		discovery.NewPyPI(pypiClient, seeds, cfg.Discovery.PyPIClassifier, size),
		discovery.NewCrates(cratesClient, seeds, size),
		discovery.NewGo(ghClient, proxyClient, seeds, size),
	}

	docs := scrape.NewDocFetcher(fetcher, 0)
	scrapers := map[model.Ecosystem]scrape.Scraper{
		model.EcosystemNPM:   scrape.NewNPM(npmClient, ghClient, docs),
		model.EcosystemPyPI:  scrape.NewPyPI(pypiClient, ghClient, docs),
		model.EcosystemCargo: scrape.NewCrates(cratesClient, ghClient, docs),
		model.EcosystemGo:    scrape.NewGo(proxyClient, ghClient, docs),
	}

	aliases, err := cfg.ResolveCategoryAliases()
	if err != nil {
		return nil, err
	}
	analyzer := analyze.New(analyze.Config{
		CategoryAliases: aliases,
		OfficialOwners:  cfg.Analyzer.OfficialOwners,
	}, nil)

	collector := intel.NewCollector(intel.Config{
		InstallTimeout:   cfg.Intel.InstallTimeout.Std(),
		HandshakeTimeout: cfg.Intel.HandshakeTimeout.Std(),
		ToolTimeout:      cfg.Intel.ToolTimeout.Std(),
		TotalBudget:      cfg.Intel.TotalBudget.Std(),
		PoolSize:         cfg.Intel.PoolSize,
		ProbeTools:       cfg.Intel.ProbeTools,
	})

	return &Crawler{
		cfg:         cfg,
		logger:      logger,
		store:       st,
		filter:      discovery.NewFilter(discovery.FilterConfig{Exclusions: cfg.Discovery.Exclusions}),
		discoverers: discoverers,
		scrapers:    scrapers,
		analyzer:    analyzer,
		collector:   collector,
	}, nil
}

func cacheBackend(cfg *Config) (cache.Cache, error) {
	switch cfg.HTTP.CacheBackend {
	case "redis":
		return cache.NewRedisCache(context.Background(), cfg.HTTP.RedisURL)
	case "none":
		return cache.NewNullCache(), nil
	default:
		dir := cfg.HTTP.CacheDir
		if dir == "" {
			dir = DefaultCacheDir
		}
		return cache.NewFileCache(dir)
	}
}

// Enabled reports the effective enable state: the persisted flag when set,
// otherwise the configured default.
func (c *Crawler) Enabled(ctx context.Context) (bool, error) {
	return c.store.GetBool(ctx, store.StateEnabled, c.cfg.Crawler.Enabled)
}

// SetEnabled persists the enable flag.
func (c *Crawler) SetEnabled(ctx context.Context, v bool) error {
	return c.store.SetBool(ctx, store.StateEnabled, v)
}

// ScheduleEnabled reports whether the periodic trigger is active.
func (c *Crawler) ScheduleEnabled(ctx context.Context) (bool, error) {
	return c.store.GetBool(ctx, store.StateScheduleEnabled, c.cfg.Schedule.Enabled)
}

// SetScheduleEnabled persists the schedule flag.
func (c *Crawler) SetScheduleEnabled(ctx context.Context, v bool) error {
	return c.store.SetBool(ctx, store.StateScheduleEnabled, v)
}

// Active reports whether a run is in flight.
func (c *Crawler) Active() bool { return c.active.Load() }

// Status is the operational snapshot served by the status command and the
// ops API.
type Status struct {
	Enabled         bool       `json:"enabled"`
	ScheduleEnabled bool       `json:"schedule_enabled"`
	Interval        string     `json:"interval"`
	Active          bool       `json:"active"`
	Records         int        `json:"records"`
	LastRun         *model.Run `json:"last_run,omitempty"`
}

// Status assembles the snapshot.
func (c *Crawler) Status(ctx context.Context) (*Status, error) {
	enabled, err := c.Enabled(ctx)
	if err != nil {
		return nil, err
	}
	scheduled, err := c.ScheduleEnabled(ctx)
	if err != nil {
		return nil, err
	}
	records, err := c.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	last, err := c.store.LastRun(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{
		Enabled:         enabled,
		ScheduleEnabled: scheduled,
		Interval:        c.cfg.Schedule.Interval.Std().String(),
		Active:          c.Active(),
		Records:         records,
		LastRun:         last,
	}, nil
}

// HealthCheck revalidates one persisted record (or all when slug is empty)
// and writes the refreshed health fields back.
func (c *Crawler) HealthCheck(ctx context.Context, slug string) ([]*model.MCP, error) {
	var records []*model.MCP
	if slug != "" {
		m, err := c.store.Get(ctx, slug)
		if err != nil {
			return nil, err
		}
		records = []*model.MCP{m}
	} else {
		all, err := c.store.All(ctx)
		if err != nil {
			return nil, err
		}
		records = all
	}

	now := time.Now().UTC()
	for _, m := range records {
		method := primaryMethod(m)
		if method.Command == "" {
			continue
		}
		cand := model.Candidate{Ecosystem: m.Ecosystem, Identifier: m.Identifier}
		report := c.collector.Collect(ctx, cand, method, &m.Auth)

		m.HealthStatus = report.Health
		m.Verified = report.Verified()
		m.WorkingTools = report.WorkingTools
		m.FailingTools = report.FailingTools
		if report.ProtocolVersion != "" {
			m.ProtocolVersion = report.ProtocolVersion
		}
		at := now
		m.LastValidatedAt = &at
		if _, err := c.store.Upsert(ctx, m); err != nil {
			return records, crawlerrors.Wrap(crawlerrors.ErrCodeInternal, err, "persist health for %s", m.Slug)
		}
	}
	return records, nil
}

func primaryMethod(m *model.MCP) model.InstallMethod {
	if len(m.InstallMethods) == 0 {
		return model.InstallMethod{}
	}
	best := m.InstallMethods[0]
	for _, im := range m.InstallMethods[1:] {
		if im.Priority < best.Priority {
			best = im
		}
	}
	return best
}
