// Package cli implements the mcpcrawl command-line interface.
//
// Commands manage the crawler's lifecycle (enable, disable, schedule), trigger
// and inspect runs (run-once, status, history), revalidate persisted servers
// (health-check), validate configuration (test), manage the HTTP response
// cache, and serve the ops API. The CLI is built using cobra; loggers are
// passed through context.Context, and lipgloss renders the human-facing
// tables.
package cli

import (
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mcpscout/mcpcrawl/pkg/buildinfo"
	"github.com/mcpscout/mcpcrawl/pkg/crawler"
	"github.com/mcpscout/mcpcrawl/pkg/store"
)

// appName is the application name used for directories and display.
const appName = "mcpcrawl"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// ErrAborted is returned when the user declines an interactive confirmation.
// main maps it to exit code 2 so scripts can tell "declined" from "failed".
var ErrAborted = errors.New("aborted")

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "mcpcrawl discovers and validates MCP servers across package registries",
		Long:          `mcpcrawl crawls npm, PyPI, crates.io, and the Go module ecosystem for Model Context Protocol servers, validates them by speaking the protocol, and maintains a canonical catalog.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.Logger.SetLevel(log.DebugLevel)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to TOML config file (default $CRAWLER_CONFIG)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.statusCommand())
	root.AddCommand(c.enableCommand())
	root.AddCommand(c.disableCommand())
	root.AddCommand(c.runOnceCommand())
	root.AddCommand(c.testCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.healthCheckCommand())
	root.AddCommand(c.scheduleCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig resolves the effective configuration: the --config flag, then
// $CRAWLER_CONFIG, then defaults plus environment overrides.
func (c *CLI) loadConfig() (*crawler.Config, error) {
	path := c.configPath
	if path == "" {
		path = os.Getenv("CRAWLER_CONFIG")
	}
	return crawler.Load(path)
}

// openCrawler wires a crawler and its store from configuration. The caller
// closes the store.
func (c *CLI) openCrawler() (*crawler.Crawler, *store.Store, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg.DB.Path)
	if err != nil {
		return nil, nil, err
	}
	cr, err := crawler.New(cfg, st, c.Logger)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return cr, st, nil
}
