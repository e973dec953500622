package crawler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mcpscout/mcpcrawl/pkg/analyze"
	"github.com/mcpscout/mcpcrawl/pkg/discovery"
	crawlerrors "github.com/mcpscout/mcpcrawl/pkg/errors"
	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/normalize"
	"github.com/mcpscout/mcpcrawl/pkg/observability"
	"github.com/mcpscout/mcpcrawl/pkg/scrape"
	"github.com/mcpscout/mcpcrawl/pkg/store"
)

// maxRunErrors bounds the error list stored per run.
const maxRunErrors = 20

// analyzed is a candidate that survived scraping and analysis, headed for
// live validation.
type analyzed struct {
	cand     model.Candidate
	bundle   *scrape.Bundle
	analysis *analyze.Analysis
}

// validated carries the analysis plus the intelligence report into the
// persist stage.
type validated struct {
	analyzed
	report *model.IntelligenceReport
}

// runState accumulates counters and bounded errors across stage workers.
type runState struct {
	mu  sync.Mutex
	run *model.Run
}

func (s *runState) count(f func(*model.RunCounts)) {
	s.mu.Lock()
	f(&s.run.Counts)
	s.mu.Unlock()
}

func (s *runState) pickUp(c model.Candidate) {
	s.mu.Lock()
	s.run.LastCandidate = c.Key()
	s.mu.Unlock()
}

func (s *runState) fail(c model.Candidate, err error) {
	s.mu.Lock()
	s.run.Counts.Failed++
	if len(s.run.Errors) < maxRunErrors {
		s.run.Errors = append(s.run.Errors, c.Key()+": "+err.Error())
	}
	s.mu.Unlock()
}

// RunOnce executes one complete crawl. It refuses to start when the crawler
// is disabled, and records (but does not execute) a skipped run when another
// run is already active. Candidate-level failures never fail the run; only
// a discovery wipeout, a broken dedup index load, or run cancellation does.
func (c *Crawler) RunOnce(ctx context.Context, refresh bool) (*model.Run, error) {
	enabled, err := c.Enabled(ctx)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, crawlerrors.New(crawlerrors.ErrCodeDisabled,
			"crawler is disabled; enable it explicitly before running")
	}

	now := time.Now().UTC()
	if !c.active.CompareAndSwap(false, true) {
		run := &model.Run{
			ID:          uuid.NewString(),
			StartedAt:   now,
			CompletedAt: &now,
			Status:      model.RunSkipped,
			Cause:       "previous run still active",
		}
		if err := c.store.SaveRun(ctx, run); err != nil {
			return nil, err
		}
		return run, crawlerrors.New(crawlerrors.ErrCodeRunActive, "a run is already active")
	}
	defer c.active.Store(false)

	run := &model.Run{ID: uuid.NewString(), StartedAt: now}
	c.mu.Lock()
	c.current = run
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.current = nil
		c.mu.Unlock()
	}()

	observability.Run().OnRunStart(ctx, run.ID)
	logger := c.logger.With("run", run.ID)
	logger.Info("run started", "max_candidates", c.cfg.Crawler.MaxCandidatesPerRun)

	runCtx, cancel := context.WithTimeout(ctx, c.cfg.Crawler.RunTimeout.Std())
	defer cancel()

	cause := c.execute(runCtx, logger, run, refresh)
	if cause == nil && runCtx.Err() != nil {
		cause = crawlerrors.Wrap(crawlerrors.ErrCodeTimeout, runCtx.Err(), "run cancelled")
	}

	done := time.Now().UTC()
	run.CompletedAt = &done
	run.Status = model.RunCompleted
	if cause != nil {
		run.Status = model.RunFailed
		run.Cause = cause.Error()
	} else {
		// Only failed runs report what was in flight.
		run.LastCandidate = ""
	}

	// The run row must land even when the run context is gone; history is
	// how operators see why a run died.
	saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Crawler.GracePeriod.Std())
	defer saveCancel()
	if err := c.store.SaveRun(saveCtx, run); err != nil {
		logger.Error("run history write failed", "err", err)
	}

	observability.Run().OnRunComplete(ctx, run.ID, string(run.Status), run.Duration())
	logger.Info("run finished",
		"status", run.Status,
		"discovered", run.Counts.Discovered,
		"processed", run.Counts.Processed,
		"new", run.Counts.New,
		"updated", run.Counts.Updated,
		"skipped", run.Counts.Skipped,
		"failed", run.Counts.Failed,
		"duration", run.Duration().Round(time.Millisecond))
	return run, cause
}

// execute runs the staged pipeline: discover, then a scrape+analyze pool
// feeding a validate pool feeding a single persist worker. Channels are
// bounded so a slow stage backpressures the ones before it.
func (c *Crawler) execute(ctx context.Context, logger *log.Logger, run *model.Run, refresh bool) error {
	state := &runState{run: run}

	candidates, err := c.discoverStage(ctx, logger, run.ID, state, refresh)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		logger.Info("no candidates to process")
		return nil
	}

	existing, err := c.store.All(ctx)
	if err != nil {
		return crawlerrors.Wrap(crawlerrors.ErrCodeInternal, err, "load dedup index")
	}
	index := normalize.NewIndex(existing)

	work := make(chan model.Candidate)
	toValidate := make(chan analyzed, c.cfg.Crawler.ScrapeWorkers)
	toPersist := make(chan validated, c.cfg.Intel.PoolSize)

	// Writes that are already past validation get a grace period beyond
	// cancellation instead of being thrown away.
	persistCtx, persistCancel := context.WithCancel(context.WithoutCancel(ctx))
	defer persistCancel()
	stopWatch := context.AfterFunc(ctx, func() {
		time.AfterFunc(c.cfg.Crawler.GracePeriod.Std(), persistCancel)
	})
	defer stopWatch()

	g := new(errgroup.Group)

	g.Go(func() error {
		defer close(work)
		for _, cand := range candidates {
			select {
			case work <- cand:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})

	var scrapeWG sync.WaitGroup
	for range c.cfg.Crawler.ScrapeWorkers {
		scrapeWG.Add(1)
		g.Go(func() error {
			defer scrapeWG.Done()
			for cand := range work {
				item, ok := c.scrapeAndAnalyze(ctx, logger, state, cand, refresh)
				if !ok {
					continue
				}
				select {
				case toValidate <- item:
				case <-ctx.Done():
					return nil
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		scrapeWG.Wait()
		close(toValidate)
		return nil
	})

	var validateWG sync.WaitGroup
	for range c.cfg.Intel.PoolSize {
		validateWG.Add(1)
		g.Go(func() error {
			defer validateWG.Done()
			for item := range toValidate {
				report := c.collector.Collect(ctx, item.cand, item.analysis.PrimaryInstall(), &item.analysis.Auth)
				select {
				case toPersist <- validated{analyzed: item, report: report}:
				case <-ctx.Done():
					return nil
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		validateWG.Wait()
		close(toPersist)
		return nil
	})

	// Persistence is serialized: slug resolution and the dedup index are
	// read-modify-write against the store.
	var persistErr error
	g.Go(func() error {
		for item := range toPersist {
			if err := c.persist(persistCtx, logger, state, index, item); err != nil {
				persistErr = err
			}
		}
		return nil
	})

	_ = g.Wait()
	return persistErr
}

// discoverStage fans out all discoverers, filters the union, and caps the
// batch at the per-run budget.
func (c *Crawler) discoverStage(ctx context.Context, logger *log.Logger, runID string, state *runState, refresh bool) ([]model.Candidate, error) {
	observability.Run().OnStageStart(ctx, runID, "discover")
	started := time.Now()

	found, err := discovery.Union(ctx, c.discoverers, refresh)
	if err != nil && len(found) == 0 {
		observability.Run().OnStageComplete(ctx, runID, "discover", 0, time.Since(started), err)
		return nil, crawlerrors.Wrap(crawlerrors.ErrCodeNetwork, err, "discovery produced nothing")
	}
	if err != nil {
		logger.Warn("discovery partially failed", "err", err, "found", len(found))
	}
	state.count(func(n *model.RunCounts) { n.Discovered = len(found) })

	var kept []model.Candidate
	for _, cand := range found {
		// Dependency-search hits carry the strongest possible signal (a
		// direct dependency on an MCP SDK); the text filter would reject
		// obscurely named ones.
		if !preAccepted(cand) && !c.filter.LikelyMCP(cand, nil) {
			observability.Run().OnCandidateDropped(ctx, string(cand.Ecosystem), cand.Identifier, "not_mcp")
			state.count(func(n *model.RunCounts) { n.Skipped++ })
			continue
		}
		kept = append(kept, cand)
	}

	if len(kept) > c.cfg.Crawler.MaxCandidatesPerRun {
		logger.Info("candidate budget reached",
			"kept", c.cfg.Crawler.MaxCandidatesPerRun, "eligible", len(kept))
		kept = kept[:c.cfg.Crawler.MaxCandidatesPerRun]
	}

	observability.Run().OnStageComplete(ctx, runID, "discover", len(kept), time.Since(started), nil)
	logger.Info("discovery complete", "found", len(found), "eligible", len(kept))
	return kept, nil
}

// preAccepted reports whether the candidate's provenance bypasses the text
// filter.
func preAccepted(c model.Candidate) bool {
	return strings.HasPrefix(c.DiscoveryMethod, "dependency:")
}

// scrapeAndAnalyze runs one candidate through its ecosystem scraper and the
// analyzer. A false return means the candidate is done (dropped or failed)
// and was already counted.
func (c *Crawler) scrapeAndAnalyze(ctx context.Context, logger *log.Logger, state *runState, cand model.Candidate, refresh bool) (analyzed, bool) {
	state.pickUp(cand)
	scraper, ok := c.scrapers[cand.Ecosystem]
	if !ok {
		state.fail(cand, crawlerrors.New(crawlerrors.ErrCodeUnsupported, "no scraper for %s", cand.Ecosystem))
		return analyzed{}, false
	}

	bundle, err := scraper.Scrape(ctx, cand, refresh)
	if err != nil {
		if crawlerrors.Is(err, crawlerrors.ErrCodeRegistryNotFound) {
			observability.Run().OnCandidateDropped(ctx, string(cand.Ecosystem), cand.Identifier, "registry_not_found")
			logger.Debug("candidate gone from registry", "candidate", cand.Key())
			state.count(func(n *model.RunCounts) { n.Skipped++ })
			return analyzed{}, false
		}
		logger.Warn("scrape failed", "candidate", cand.Key(), "err", err)
		state.fail(cand, err)
		return analyzed{}, false
	}

	return analyzed{
		cand:     cand,
		bundle:   bundle,
		analysis: c.analyzer.Analyze(ctx, bundle),
	}, true
}

// persist resolves the final slug, builds the canonical record, consults the
// dedup index, and upserts. Cross-slug matches become merge events instead
// of writes.
func (c *Crawler) persist(ctx context.Context, logger *log.Logger, state *runState, index *normalize.Index, item validated) error {
	if ctx.Err() != nil {
		state.count(func(n *model.RunCounts) { n.Skipped++ })
		return nil
	}

	item.analysis.Slug = analyze.ResolveSlug(item.analysis.Slug, item.cand, c.store.SlugExists(ctx))
	record := normalize.Build(item.cand, item.analysis, item.report, time.Now().UTC())

	if slug, via, ok := index.Find(record); ok && slug != record.Slug {
		ev := normalize.MergeEvent{
			CandidateSlug: record.Slug,
			ExistingSlug:  slug,
			Via:           via,
			At:            time.Now().UTC(),
		}
		if err := c.store.RecordMergeEvent(ctx, ev); err != nil {
			logger.Error("merge event write failed", "candidate", record.Slug, "err", err)
		}
		observability.Run().OnCandidateDropped(ctx, string(record.Ecosystem), record.Identifier, "duplicate")
		logger.Info("duplicate detected", "candidate", record.Slug, "existing", slug, "via", via)
		state.count(func(n *model.RunCounts) { n.Skipped++ })
		return nil
	}

	outcome, err := c.store.Upsert(ctx, record)
	switch {
	case err != nil && outcome == store.OutcomeConflict:
		// A conflicting candidate is skipped, not processed; the next run
		// picks it up again.
		logger.Warn("upsert conflict", "slug", record.Slug, "err", err)
		state.count(func(n *model.RunCounts) { n.Conflicts++; n.Skipped++ })
		return nil
	case err != nil:
		state.fail(item.cand, err)
		return crawlerrors.Wrap(crawlerrors.ErrCodeInternal, err, "persist %s", record.Slug)
	}

	index.Add(record)
	state.count(func(n *model.RunCounts) {
		n.Processed++
		switch outcome {
		case store.OutcomeCreated:
			n.New++
		case store.OutcomeUpdated:
			n.Updated++
		default:
			n.Skipped++
		}
	})
	observability.Run().OnCandidatePersisted(ctx, record.Slug, outcome == store.OutcomeCreated)
	logger.Debug("persisted", "slug", record.Slug, "outcome", outcome, "health", record.HealthStatus)
	return nil
}
