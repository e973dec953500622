package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// statusCommand creates the status command.
func (c *CLI) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show crawler state, schedule, and last run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cr, st, err := c.openCrawler()
			if err != nil {
				return err
			}
			defer st.Close()

			status, err := cr.Status(cmd.Context())
			if err != nil {
				return err
			}

			printKeyValue("crawler", onOff(status.Enabled))
			printKeyValue("schedule", onOff(status.ScheduleEnabled)+StyleDim.Render(" (every "+status.Interval+")"))
			printKeyValue("records", StyleHighlight.Render(strconv.Itoa(status.Records)))

			if status.Active {
				printKeyValue("run", StyleWarning.Render("active"))
			}
			if last := status.LastRun; last != nil {
				printKeyValue("last run", renderRunStatus(last.Status)+
					StyleDim.Render(" at "+last.StartedAt.Local().Format(time.RFC3339)))
				printDetail("new %d · updated %d · skipped %d · failed %d",
					last.Counts.New, last.Counts.Updated, last.Counts.Skipped, last.Counts.Failed)
			} else {
				printKeyValue("last run", StyleDim.Render("never"))
			}

			if !status.Enabled {
				printNextStep("Enable the crawler", appName+" enable")
			}
			return nil
		},
	}
}
