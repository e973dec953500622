package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	crawlerrors "github.com/mcpscout/mcpcrawl/pkg/errors"
)

// healthCheckCommand creates the health-check command.
func (c *CLI) healthCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health-check [slug]",
		Short: "Revalidate one persisted MCP server, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := ""
			if len(args) == 1 {
				slug = args[0]
			}

			cr, st, err := c.openCrawler()
			if err != nil {
				return err
			}
			defer st.Close()

			p := newProgress(loggerFromContext(cmd.Context()))
			records, err := cr.HealthCheck(cmd.Context(), slug)
			if crawlerrors.Is(err, crawlerrors.ErrCodeRecordNotFound) {
				printError("No record with slug %q", slug)
				return err
			}
			if err != nil {
				return err
			}

			p.done("Health check complete")
			for _, m := range records {
				detail := fmt.Sprintf(" · %d/%d tools working", len(m.WorkingTools), m.ToolCount)
				printKeyValue(m.Slug, renderHealth(m.HealthStatus)+StyleDim.Render(detail))
			}
			return nil
		},
	}
}
