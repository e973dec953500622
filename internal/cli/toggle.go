package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// enableCommand creates the enable command. Enabling is deliberately manual:
// the crawler installs and executes packages from public registries, so a
// fresh deployment does nothing until an operator confirms.
func (c *CLI) enableCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "enable",
		Short: "Enable the crawler (interactive confirmation)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				printWarning("The crawler installs and runs packages from public registries.")
				if !confirm("Enable it?") {
					printInfo("Aborted, crawler stays disabled")
					return ErrAborted
				}
			}

			cr, st, err := c.openCrawler()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := cr.SetEnabled(cmd.Context(), true); err != nil {
				return err
			}
			printSuccess("Crawler enabled")
			printNextStep("Trigger a run", appName+" run-once")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// disableCommand creates the disable command. It turns off both the crawler
// and the schedule; a disabled crawler never ticks accidentally.
func (c *CLI) disableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Disable the crawler and its schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cr, st, err := c.openCrawler()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := cr.SetEnabled(cmd.Context(), false); err != nil {
				return err
			}
			if err := cr.SetScheduleEnabled(cmd.Context(), false); err != nil {
				return err
			}
			printSuccess("Crawler and schedule disabled")
			return nil
		},
	}
}

// scheduleCommand creates the schedule command group.
func (c *CLI) scheduleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Toggle the periodic crawl schedule",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "enable",
		Short: "Enable periodic crawls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.setSchedule(cmd, true)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "disable",
		Short: "Disable periodic crawls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.setSchedule(cmd, false)
		},
	})
	return cmd
}

func (c *CLI) setSchedule(cmd *cobra.Command, v bool) error {
	cr, st, err := c.openCrawler()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := cr.SetScheduleEnabled(cmd.Context(), v); err != nil {
		return err
	}
	if v {
		printSuccess("Schedule enabled")
		printDetail("Runs fire while `%s serve` is up", appName)
	} else {
		printSuccess("Schedule disabled")
	}
	return nil
}

// confirm reads a y/N answer from stdin. Anything but an explicit yes is no.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
