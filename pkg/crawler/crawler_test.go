package crawler

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mcpscout/mcpcrawl/pkg/discovery"
	crawlerrors "github.com/mcpscout/mcpcrawl/pkg/errors"
	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/normalize"
	"github.com/mcpscout/mcpcrawl/pkg/scrape"
	"github.com/mcpscout/mcpcrawl/pkg/store"
)

type fakeDiscoverer struct {
	eco model.Ecosystem
	out []model.Candidate
	err error
}

func (f *fakeDiscoverer) Ecosystem() model.Ecosystem { return f.eco }

func (f *fakeDiscoverer) Discover(context.Context, bool) ([]model.Candidate, error) {
	return f.out, f.err
}

type fakeScraper struct {
	eco     model.Ecosystem
	err     error
	scraped []string
}

func (f *fakeScraper) Ecosystem() model.Ecosystem { return f.eco }

func (f *fakeScraper) Scrape(_ context.Context, c model.Candidate, _ bool) (*scrape.Bundle, error) {
	f.scraped = append(f.scraped, c.Identifier)
	if f.err != nil {
		return nil, f.err
	}
	return demoBundle(c), nil
}

type fakeValidator struct {
	report *model.IntelligenceReport
	calls  int
}

func (f *fakeValidator) Collect(context.Context, model.Candidate, model.InstallMethod, *model.AuthRequirement) *model.IntelligenceReport {
	f.calls++
	if f.report != nil {
		return f.report
	}
	return &model.IntelligenceReport{Strategy: model.StrategyFallbackBasic, Health: model.HealthUnknown}
}

func demoBundle(c model.Candidate) *scrape.Bundle {
	return &scrape.Bundle{
		Candidate: c,
		Registry: scrape.RegistryRecord{
			Name:        c.Identifier,
			Version:     "1.0.0",
			Description: "MCP server exposing demo datasets to agents with search and fetch tools.",
			License:     "MIT",
			Keywords:    []string{"mcp", "server"},
		},
		ScrapedAt: time.Now().UTC(),
	}
}

func healthyReport() *model.IntelligenceReport {
	return &model.IntelligenceReport{
		Strategy:        model.StrategyFull,
		Health:          model.HealthHealthy,
		ProtocolVersion: "2025-06-18",
		Tools: []model.Tool{
			{Name: "search_demo", Description: "Search demo data"},
			{Name: "fetch_demo", Description: "Fetch one demo record"},
		},
		WorkingTools: []string{"fetch_demo", "search_demo"},
	}
}

// testCrawler wires a crawler against a temp store and stubbed pipeline
// stages. Network-facing components are never exercised.
func testCrawler(t *testing.T, enabled bool) (*Crawler, *store.Store) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Crawler.Enabled = enabled
	cfg.HTTP.CacheBackend = "none"
	cfg.DB.Path = filepath.Join(t.TempDir(), "crawl.db")

	st, err := store.Open(cfg.DB.Path)
	if err != nil {
		t.Fatalf("store.Open error: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	c, err := New(cfg, st, log.New(io.Discard))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	c.collector = &fakeValidator{report: healthyReport()}
	return c, st
}

func stub(c *Crawler, candidates []model.Candidate, scraper *fakeScraper) {
	c.discoverers = []discovery.Discoverer{
		&fakeDiscoverer{eco: model.EcosystemNPM, out: candidates},
	}
	c.scrapers = map[model.Ecosystem]scrape.Scraper{model.EcosystemNPM: scraper}
}

func TestRunOnce_Disabled(t *testing.T) {
	c, _ := testCrawler(t, false)

	_, err := c.RunOnce(context.Background(), false)
	if !crawlerrors.Is(err, crawlerrors.ErrCodeDisabled) {
		t.Fatalf("err = %v, want CRAWLER_DISABLED", err)
	}
}

func TestRunOnce_AlreadyActive(t *testing.T) {
	c, st := testCrawler(t, true)
	c.active.Store(true)

	run, err := c.RunOnce(context.Background(), false)
	if !crawlerrors.Is(err, crawlerrors.ErrCodeRunActive) {
		t.Fatalf("err = %v, want RUN_ACTIVE", err)
	}
	if run.Status != model.RunSkipped {
		t.Errorf("status = %s, want skipped", run.Status)
	}

	// The skipped trigger leaves an audit row.
	last, err := st.LastRun(context.Background())
	if err != nil || last == nil {
		t.Fatalf("LastRun = %v, %v", last, err)
	}
	if last.Status != model.RunSkipped || last.Cause == "" {
		t.Errorf("recorded run = %s cause %q, want skipped with cause", last.Status, last.Cause)
	}
}

func TestRunOnce_EndToEnd(t *testing.T) {
	c, st := testCrawler(t, true)
	scraper := &fakeScraper{eco: model.EcosystemNPM}
	stub(c, []model.Candidate{
		{Ecosystem: model.EcosystemNPM, Identifier: "mcp-server-demo", Description: "MCP server for demos", DiscoveryMethod: "keyword:mcp-server"},
		{Ecosystem: model.EcosystemNPM, Identifier: "react-color-picker", Description: "A color picker component", DiscoveryMethod: "pattern:-mcp"},
	}, scraper)

	run, err := c.RunOnce(context.Background(), false)
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if run.Status != model.RunCompleted {
		t.Fatalf("status = %s, cause %q", run.Status, run.Cause)
	}
	if run.Counts.Discovered != 2 || run.Counts.Processed != 1 || run.Counts.New != 1 {
		t.Errorf("counts = %+v, want discovered 2, processed 1, new 1", run.Counts)
	}
	if run.Counts.Skipped != 1 {
		t.Errorf("skipped = %d, want 1 (filtered candidate)", run.Counts.Skipped)
	}
	if len(scraper.scraped) != 1 || scraper.scraped[0] != "mcp-server-demo" {
		t.Errorf("scraped = %v, filtered candidate must never reach the scraper", scraper.scraped)
	}

	m, err := st.Get(context.Background(), "mcp-server-demo")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !m.Verified || m.HealthStatus != model.HealthHealthy {
		t.Errorf("verified = %v health = %s", m.Verified, m.HealthStatus)
	}
	if m.ToolCount != 2 {
		t.Errorf("ToolCount = %d, want 2 live tools", m.ToolCount)
	}
	if !m.AutoDiscovered || m.DiscoverySource != "keyword:mcp-server" {
		t.Errorf("provenance = %v %q", m.AutoDiscovered, m.DiscoverySource)
	}
}

func TestRunOnce_RerunIsIdempotent(t *testing.T) {
	c, _ := testCrawler(t, true)
	cands := []model.Candidate{
		{Ecosystem: model.EcosystemNPM, Identifier: "mcp-server-demo", Description: "MCP server for demos", DiscoveryMethod: "keyword:mcp-server"},
	}
	stub(c, cands, &fakeScraper{eco: model.EcosystemNPM})

	if _, err := c.RunOnce(context.Background(), false); err != nil {
		t.Fatalf("first run: %v", err)
	}
	stub(c, cands, &fakeScraper{eco: model.EcosystemNPM})
	run, err := c.RunOnce(context.Background(), false)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if run.Counts.New != 0 || run.Counts.Updated != 0 {
		t.Errorf("counts = %+v, rerun over identical data must not rewrite", run.Counts)
	}
	if run.Counts.Skipped != 1 {
		t.Errorf("skipped = %d, want 1 unchanged record", run.Counts.Skipped)
	}
}

func TestRunOnce_RegistryMiss(t *testing.T) {
	c, _ := testCrawler(t, true)
	scraper := &fakeScraper{
		eco: model.EcosystemNPM,
		err: crawlerrors.New(crawlerrors.ErrCodeRegistryNotFound, "npm package mcp-server-gone"),
	}
	stub(c, []model.Candidate{
		{Ecosystem: model.EcosystemNPM, Identifier: "mcp-server-gone", DiscoveryMethod: "keyword:mcp-server"},
	}, scraper)

	run, err := c.RunOnce(context.Background(), false)
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if run.Status != model.RunCompleted || run.Counts.Skipped != 1 || run.Counts.Failed != 0 {
		t.Errorf("run = %s %+v, want completed with 1 skip and no failures", run.Status, run.Counts)
	}
}

func TestRunOnce_ScrapeFailureDoesNotFailRun(t *testing.T) {
	c, _ := testCrawler(t, true)
	scraper := &fakeScraper{
		eco: model.EcosystemNPM,
		err: crawlerrors.New(crawlerrors.ErrCodeNetwork, "registry timed out"),
	}
	stub(c, []model.Candidate{
		{Ecosystem: model.EcosystemNPM, Identifier: "mcp-server-flaky", DiscoveryMethod: "keyword:mcp-server"},
	}, scraper)

	run, err := c.RunOnce(context.Background(), false)
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if run.Status != model.RunCompleted {
		t.Errorf("status = %s, candidate failures must not fail the run", run.Status)
	}
	if run.Counts.Failed != 1 || len(run.Errors) != 1 {
		t.Errorf("failed = %d errors = %v", run.Counts.Failed, run.Errors)
	}
}

func TestRunOnce_DependencyProvenanceBypassesFilter(t *testing.T) {
	c, _ := testCrawler(t, true)
	scraper := &fakeScraper{eco: model.EcosystemNPM}
	// Nothing in the name or description suggests MCP; only the SDK
	// dependency found it.
	stub(c, []model.Candidate{
		{Ecosystem: model.EcosystemNPM, Identifier: "quickdata", Description: "Fast dataset access", DiscoveryMethod: "dependency:@modelcontextprotocol/sdk"},
	}, scraper)

	run, err := c.RunOnce(context.Background(), false)
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if run.Counts.Processed != 1 || run.Counts.New != 1 {
		t.Errorf("counts = %+v, dependency hit must be processed", run.Counts)
	}
}

func TestRunOnce_CandidateBudget(t *testing.T) {
	c, _ := testCrawler(t, true)
	c.cfg.Crawler.MaxCandidatesPerRun = 2

	var cands []model.Candidate
	for _, name := range []string{"mcp-server-a", "mcp-server-b", "mcp-server-c", "mcp-server-d"} {
		cands = append(cands, model.Candidate{
			Ecosystem: model.EcosystemNPM, Identifier: name, DiscoveryMethod: "keyword:mcp-server",
		})
	}
	scraper := &fakeScraper{eco: model.EcosystemNPM}
	stub(c, cands, scraper)

	run, err := c.RunOnce(context.Background(), false)
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if run.Counts.Discovered != 4 {
		t.Errorf("discovered = %d, want 4", run.Counts.Discovered)
	}
	if run.Counts.Processed != 2 {
		t.Errorf("processed = %d, want budget cap 2", run.Counts.Processed)
	}
}

func TestRunOnce_CrossSlugDuplicate(t *testing.T) {
	c, st := testCrawler(t, true)
	ctx := context.Background()

	// An operator-renamed record owns this identity under another slug.
	seed := &model.MCP{
		Slug:       "demo-renamed",
		Name:       "demo",
		Ecosystem:  model.EcosystemNPM,
		Identifier: "mcp-server-demo",
		Category:   model.Category("development-tools"),
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if _, err := st.Upsert(ctx, seed); err != nil {
		t.Fatal(err)
	}

	stub(c, []model.Candidate{
		{Ecosystem: model.EcosystemNPM, Identifier: "mcp-server-demo", DiscoveryMethod: "keyword:mcp-server"},
	}, &fakeScraper{eco: model.EcosystemNPM})

	run, err := c.RunOnce(ctx, false)
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if run.Counts.New != 0 {
		t.Errorf("new = %d, duplicate must not create a record", run.Counts.New)
	}

	events, err := st.MergeEvents(ctx, 10)
	if err != nil {
		t.Fatalf("MergeEvents error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].ExistingSlug != "demo-renamed" || events[0].Via != "identity" {
		t.Errorf("event = %+v", events[0])
	}

	n, _ := st.Count(ctx)
	if n != 1 {
		t.Errorf("record count = %d, duplicate must not add rows", n)
	}
}

func TestPersist_ConflictCountsSkipped(t *testing.T) {
	c, st := testCrawler(t, true)
	ctx := context.Background()

	cand := model.Candidate{Ecosystem: model.EcosystemNPM, Identifier: "demo-data", DiscoveryMethod: "keyword:mcp"}
	analysis := c.analyzer.Analyze(ctx, demoBundle(cand))
	report := healthyReport()

	// A concurrent writer landed the same identity under another slug after
	// the dedup index snapshot, so the unique constraint is the only guard
	// left.
	seeded := *analysis
	seeded.Slug = "demo-data-upstream"
	if _, err := st.Upsert(ctx, normalize.Build(cand, &seeded, report, time.Now().UTC())); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}

	run := &model.Run{ID: "run-conflict", StartedAt: time.Now().UTC()}
	state := &runState{run: run}
	item := validated{analyzed: analyzed{cand: cand, analysis: analysis}, report: report}

	if err := c.persist(ctx, c.logger, state, normalize.NewIndex(nil), item); err != nil {
		t.Fatalf("persist error: %v", err)
	}
	if run.Counts.Conflicts != 1 || run.Counts.Skipped != 1 {
		t.Errorf("counts = %+v, want the conflict counted as skipped", run.Counts)
	}
	if run.Counts.Processed != 0 || run.Counts.Failed != 0 {
		t.Errorf("conflicting candidate must not count as processed or failed: %+v", run.Counts)
	}
}

func TestStatus(t *testing.T) {
	c, _ := testCrawler(t, true)
	stub(c, []model.Candidate{
		{Ecosystem: model.EcosystemNPM, Identifier: "mcp-server-demo", DiscoveryMethod: "keyword:mcp-server"},
	}, &fakeScraper{eco: model.EcosystemNPM})

	if _, err := c.RunOnce(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	status, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if !status.Enabled || status.Active {
		t.Errorf("enabled = %v active = %v", status.Enabled, status.Active)
	}
	if status.Records != 1 {
		t.Errorf("records = %d, want 1", status.Records)
	}
	if status.LastRun == nil || status.LastRun.Status != model.RunCompleted {
		t.Errorf("last run = %+v", status.LastRun)
	}
}

func TestHealthCheck_RefreshesRecord(t *testing.T) {
	c, st := testCrawler(t, true)
	ctx := context.Background()

	seed := &model.MCP{
		Slug:       "mcp-server-demo",
		Name:       "demo",
		Ecosystem:  model.EcosystemNPM,
		Identifier: "mcp-server-demo",
		Category:   model.Category("development-tools"),
		InstallMethods: []model.InstallMethod{
			{Kind: model.InstallNPM, Command: "npx -y mcp-server-demo", Priority: 1},
		},
		HealthStatus: model.HealthHealthy,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if _, err := st.Upsert(ctx, seed); err != nil {
		t.Fatal(err)
	}

	c.collector = &fakeValidator{report: &model.IntelligenceReport{
		Strategy:     model.StrategyFull,
		Health:       model.HealthDegraded,
		Tools:        []model.Tool{{Name: "search_demo"}},
		WorkingTools: []string{"search_demo"},
		FailingTools: []string{"fetch_demo"},
	}}

	if _, err := c.HealthCheck(ctx, "mcp-server-demo"); err != nil {
		t.Fatalf("HealthCheck error: %v", err)
	}

	m, err := st.Get(ctx, "mcp-server-demo")
	if err != nil {
		t.Fatal(err)
	}
	if m.HealthStatus != model.HealthDegraded {
		t.Errorf("health = %s, want degraded", m.HealthStatus)
	}
	if m.LastValidatedAt == nil {
		t.Error("LastValidatedAt not set")
	}
}

func TestScheduler_TickRespectsFlags(t *testing.T) {
	c, st := testCrawler(t, true)
	ctx := context.Background()
	stub(c, []model.Candidate{
		{Ecosystem: model.EcosystemNPM, Identifier: "mcp-server-demo", DiscoveryMethod: "keyword:mcp-server"},
	}, &fakeScraper{eco: model.EcosystemNPM})
	s := NewScheduler(c)

	// Schedule off: the tick is a no-op.
	s.tick(ctx)
	if last, _ := st.LastRun(ctx); last != nil {
		t.Fatalf("run recorded with schedule disabled: %+v", last)
	}

	if err := c.SetScheduleEnabled(ctx, true); err != nil {
		t.Fatal(err)
	}
	s.tick(ctx)
	last, err := st.LastRun(ctx)
	if err != nil || last == nil {
		t.Fatalf("LastRun = %v, %v", last, err)
	}
	if last.Status != model.RunCompleted {
		t.Errorf("status = %s, want completed", last.Status)
	}
}
