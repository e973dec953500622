package crawler

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	crawlerrors "github.com/mcpscout/mcpcrawl/pkg/errors"
)

// Scheduler triggers crawls on a fixed interval. It consults the persisted
// schedule flag on every tick, so enabling or disabling the schedule takes
// effect without a restart.
type Scheduler struct {
	crawler *Crawler
	logger  *log.Logger
}

// NewScheduler wraps a crawler in an interval trigger.
func NewScheduler(c *Crawler) *Scheduler {
	return &Scheduler{crawler: c, logger: c.logger.With("component", "scheduler")}
}

// Run blocks until ctx is cancelled, firing a crawl every configured
// interval. The first crawl happens one interval after start, not
// immediately; operators who want an immediate run trigger one manually.
func (s *Scheduler) Run(ctx context.Context) error {
	interval := s.crawler.cfg.Schedule.Interval.Std()
	s.logger.Info("scheduler started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	enabled, err := s.crawler.ScheduleEnabled(ctx)
	if err != nil {
		s.logger.Error("schedule flag read failed", "err", err)
		return
	}
	if !enabled {
		s.logger.Debug("schedule disabled, tick ignored")
		return
	}

	run, err := s.crawler.RunOnce(ctx, false)
	switch {
	case crawlerrors.Is(err, crawlerrors.ErrCodeRunActive):
		s.logger.Warn("previous run still active, tick skipped", "run", run.ID)
	case crawlerrors.Is(err, crawlerrors.ErrCodeDisabled):
		s.logger.Info("crawler disabled, tick skipped")
	case err != nil:
		s.logger.Error("scheduled run failed", "err", err)
	default:
		s.logger.Info("scheduled run complete", "run", run.ID, "status", run.Status)
	}
}
