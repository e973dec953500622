package crawler

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	crawlerrors "github.com/mcpscout/mcpcrawl/pkg/errors"
	"github.com/mcpscout/mcpcrawl/pkg/model"
)

// Duration wraps time.Duration so TOML files can say "30m" or "24h".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the crawler's complete configuration. Defaults come from
// DefaultConfig; a TOML file overrides them; environment variables override
// the file. Configuration is immutable once a run starts.
type Config struct {
	Crawler   CrawlerConfig   `toml:"crawler"`
	Schedule  ScheduleConfig  `toml:"schedule"`
	HTTP      HTTPConfig      `toml:"http"`
	Discovery DiscoveryConfig `toml:"discovery"`
	Analyzer  AnalyzerConfig  `toml:"analyzer"`
	Intel     IntelConfig     `toml:"intel"`
	DB        DBConfig        `toml:"db"`
}

// CrawlerConfig controls the run loop.
type CrawlerConfig struct {
	// Enabled is the default enable state for fresh deployments. The
	// persisted state flag, toggled by the enable/disable commands, wins.
	Enabled             bool     `toml:"enabled"`
	MaxCandidatesPerRun int      `toml:"max_candidates_per_run"`
	RunTimeout          Duration `toml:"run_timeout"`
	GracePeriod         Duration `toml:"grace_period"`
	ScrapeWorkers       int      `toml:"scrape_workers"`
	LogLevel            string   `toml:"log_level"`
	GitHubToken         string   `toml:"github_token"`
}

// ScheduleConfig controls the periodic trigger.
type ScheduleConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval Duration `toml:"interval"`
}

// HTTPConfig controls the shared fetcher and its response cache.
type HTTPConfig struct {
	RegistryQPS  float64  `toml:"registry_qps"`
	RepoAPIQPS   float64  `toml:"repo_api_qps"`
	DocSiteQPS   float64  `toml:"doc_site_qps"`
	GenericQPS   float64  `toml:"generic_qps"`
	CacheBackend string   `toml:"cache_backend"` // file, redis, none
	CacheDir     string   `toml:"cache_dir"`
	CacheTTL     Duration `toml:"cache_ttl"`
	RedisURL     string   `toml:"redis_url"`
}

// DiscoveryConfig overrides the seed lists.
type DiscoveryConfig struct {
	Keywords       []string `toml:"keywords"`
	Patterns       []string `toml:"patterns"`
	Topics         []string `toml:"topics"`
	PageSize       int      `toml:"page_size"`
	PyPIClassifier string   `toml:"pypi_classifier"`
	Exclusions     []string `toml:"exclusions"`
}

// AnalyzerConfig tunes analysis data tables.
type AnalyzerConfig struct {
	OfficialOwners  []string          `toml:"official_owners"`
	CategoryAliases map[string]string `toml:"category_aliases"`
}

// IntelConfig controls live validation.
type IntelConfig struct {
	PoolSize         int      `toml:"pool_size"`
	ProbeTools       bool     `toml:"probe_tools"`
	InstallTimeout   Duration `toml:"install_timeout"`
	HandshakeTimeout Duration `toml:"handshake_timeout"`
	ToolTimeout      Duration `toml:"tool_timeout"`
	TotalBudget      Duration `toml:"total_budget"`
}

// DBConfig locates the SQLite database.
type DBConfig struct {
	Path string `toml:"path"`
}

// DefaultCacheDir is where the file cache backend lives when the config
// does not say otherwise.
const DefaultCacheDir = ".mcpcrawl-cache"

// DefaultConfig returns the stock configuration. The crawler itself starts
// disabled; enabling is an explicit operator step.
func DefaultConfig() *Config {
	return &Config{
		Crawler: CrawlerConfig{
			Enabled:             false,
			MaxCandidatesPerRun: 50,
			RunTimeout:          Duration(30 * time.Minute),
			GracePeriod:         Duration(5 * time.Second),
			ScrapeWorkers:       4,
			LogLevel:            "info",
		},
		Schedule: ScheduleConfig{
			Enabled:  false,
			Interval: Duration(24 * time.Hour),
		},
		HTTP: HTTPConfig{
			RegistryQPS:  2,
			RepoAPIQPS:   1,
			DocSiteQPS:   1,
			GenericQPS:   1,
			CacheBackend: "file",
			CacheTTL:     Duration(24 * time.Hour),
		},
		Discovery: DiscoveryConfig{
			PageSize: 50,
		},
		Intel: IntelConfig{
			PoolSize:         4,
			ProbeTools:       true,
			InstallTimeout:   Duration(120 * time.Second),
			HandshakeTimeout: Duration(10 * time.Second),
			ToolTimeout:      Duration(5 * time.Second),
			TotalBudget:      Duration(180 * time.Second),
		},
		DB: DBConfig{
			Path: "mcpcrawl.db",
		},
	}
}

// Load builds the effective configuration: defaults, then the TOML file at
// path (when non-empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, crawlerrors.Wrap(crawlerrors.ErrCodeInvalidConfig, err, "parse config %s", path)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("CRAWLER_ENABLED"); v != "" {
		c.Crawler.Enabled = truthy(v)
	}
	if v := os.Getenv("CRAWLER_GITHUB_TOKEN"); v != "" {
		c.Crawler.GitHubToken = v
	}
	if v := os.Getenv("CRAWLER_DB_URL"); v != "" {
		c.DB.Path = v
	}
	if v := os.Getenv("CRAWLER_LOG_LEVEL"); v != "" {
		c.Crawler.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("CRAWLER_CACHE_DIR"); v != "" {
		c.HTTP.CacheDir = v
	}
	if v := os.Getenv("CRAWLER_REDIS_URL"); v != "" {
		c.HTTP.RedisURL = v
	}
}

func truthy(v string) bool {
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return strings.EqualFold(v, "yes") || strings.EqualFold(v, "on")
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var validCacheBackends = map[string]bool{"file": true, "redis": true, "none": true}

// Validate rejects configurations the run loop cannot honor. Config errors
// are fatal at startup; nothing runs with a bad config.
func (c *Config) Validate() error {
	fail := func(format string, args ...any) error {
		return crawlerrors.New(crawlerrors.ErrCodeInvalidConfig, format, args...)
	}
	if c.Crawler.MaxCandidatesPerRun <= 0 {
		return fail("max_candidates_per_run must be positive, got %d", c.Crawler.MaxCandidatesPerRun)
	}
	if c.Crawler.RunTimeout.Std() <= 0 {
		return fail("run_timeout must be positive")
	}
	if c.Crawler.ScrapeWorkers <= 0 {
		return fail("scrape_workers must be positive, got %d", c.Crawler.ScrapeWorkers)
	}
	if !validLogLevels[c.Crawler.LogLevel] {
		return fail("log_level must be debug, info, warn, or error, got %q", c.Crawler.LogLevel)
	}
	for _, qps := range []float64{c.HTTP.RegistryQPS, c.HTTP.RepoAPIQPS, c.HTTP.DocSiteQPS, c.HTTP.GenericQPS} {
		if qps <= 0 {
			return fail("rate limits must be positive")
		}
	}
	if !validCacheBackends[c.HTTP.CacheBackend] {
		return fail("cache_backend must be file, redis, or none, got %q", c.HTTP.CacheBackend)
	}
	if c.HTTP.CacheBackend == "redis" && c.HTTP.RedisURL == "" {
		return fail("cache_backend redis requires redis_url")
	}
	if c.Schedule.Interval.Std() < time.Minute {
		return fail("schedule interval below one minute, got %s", c.Schedule.Interval.Std())
	}
	if c.Intel.PoolSize <= 0 {
		return fail("intel pool_size must be positive, got %d", c.Intel.PoolSize)
	}
	if c.DB.Path == "" {
		return fail("db path must be set")
	}
	if _, err := c.ResolveCategoryAliases(); err != nil {
		return err
	}
	return nil
}

// ResolveCategoryAliases converts the configured alias map to canonical
// categories, rejecting targets outside the fixed enum.
func (c *Config) ResolveCategoryAliases() (map[string]model.Category, error) {
	if len(c.Analyzer.CategoryAliases) == 0 {
		return nil, nil
	}
	out := make(map[string]model.Category, len(c.Analyzer.CategoryAliases))
	for alias, target := range c.Analyzer.CategoryAliases {
		cat := model.Category(target)
		if !cat.Valid() {
			return nil, crawlerrors.New(crawlerrors.ErrCodeInvalidConfig,
				"category alias %q targets unknown category %q", alias, target)
		}
		out[strings.ToLower(alias)] = cat
	}
	return out, nil
}
