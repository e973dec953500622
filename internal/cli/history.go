package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// historyCommand creates the history command.
func (c *CLI) historyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history [N]",
		Short: "Show the last N crawl runs (default 10)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 10
			if len(args) == 1 {
				parsed, err := strconv.Atoi(args[0])
				if err != nil || parsed <= 0 {
					return cmd.Help()
				}
				n = parsed
			}

			_, st, err := c.openCrawler()
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.Runs(cmd.Context(), n)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				printInfo("No runs recorded yet")
				printNextStep("Trigger one", appName+" run-once")
				return nil
			}

			for _, run := range runs {
				printKeyValue(run.StartedAt.Local().Format("2006-01-02 15:04"),
					renderRunStatus(run.Status)+
						StyleDim.Render(" "+run.Duration().Round(time.Second).String()))
				if run.Status == "failed" && run.Cause != "" {
					printDetail("cause: %s", run.Cause)
					if run.LastCandidate != "" {
						printDetail("last candidate: %s", run.LastCandidate)
					}
					continue
				}
				printDetail("discovered %d · new %d · updated %d · skipped %d · failed %d",
					run.Counts.Discovered, run.Counts.New, run.Counts.Updated,
					run.Counts.Skipped, run.Counts.Failed)
			}
			return nil
		},
	}
}
