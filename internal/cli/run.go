package cli

import (
	"github.com/spf13/cobra"

	crawlerrors "github.com/mcpscout/mcpcrawl/pkg/errors"
)

// runOnceCommand creates the run-once command.
func (c *CLI) runOnceCommand() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "run-once",
		Short: "Run one complete crawl pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cr, st, err := c.openCrawler()
			if err != nil {
				return err
			}
			defer st.Close()

			p := newProgress(loggerFromContext(cmd.Context()))
			run, err := cr.RunOnce(cmd.Context(), refresh)
			if crawlerrors.Is(err, crawlerrors.ErrCodeRunActive) {
				printWarning("A run is already active; this trigger was recorded as skipped")
				return nil
			}
			if err != nil {
				printError("Run failed: %s", crawlerrors.UserMessage(err))
				return err
			}

			p.done("Run complete")
			printSuccess("Processed %d of %d discovered candidates", run.Counts.Processed, run.Counts.Discovered)
			printDetail("new %d · updated %d · skipped %d · failed %d · conflicts %d",
				run.Counts.New, run.Counts.Updated, run.Counts.Skipped,
				run.Counts.Failed, run.Counts.Conflicts)
			for _, msg := range run.Errors {
				printDetail("failed: %s", msg)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the HTTP response cache")
	return cmd
}

// testCommand creates the test command: configuration validation without any
// crawling. Scripts use it as a preflight check.
func (c *CLI) testCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Validate configuration without crawling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				printError("Configuration invalid: %s", crawlerrors.UserMessage(err))
				return err
			}
			printSuccess("Configuration valid")
			printDetail("db: %s", cfg.DB.Path)
			printDetail("cache: %s", cfg.HTTP.CacheBackend)
			printDetail("max candidates per run: %d", cfg.Crawler.MaxCandidatesPerRun)
			return nil
		},
	}
}
