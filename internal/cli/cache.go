package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mcpscout/mcpcrawl/pkg/crawler"
)

// cacheCommand creates the cache management command group.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the HTTP response cache",
	}

	cmd.AddCommand(c.cacheInfoCommand())
	cmd.AddCommand(c.cacheClearCommand())
	return cmd
}

// cacheInfoCommand creates the "cache info" subcommand.
func (c *CLI) cacheInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache backend, location, and size",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			printKeyValue("backend", cfg.HTTP.CacheBackend)
			printKeyValue("ttl", cfg.HTTP.CacheTTL.Std().String())
			if cfg.HTTP.CacheBackend != "file" {
				return nil
			}

			dir := c.cacheDir(cfg.HTTP.CacheDir)
			printKeyValue("directory", dir)

			entries, size := 0, int64(0)
			_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
				if err != nil || info.IsDir() {
					return nil
				}
				entries++
				size += info.Size()
				return nil
			})
			printDetail("%d entries, %d KiB", entries, size/1024)
			return nil
		},
	}
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached HTTP responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cfg.HTTP.CacheBackend != "file" {
				printInfo("Cache backend is %s; nothing to clear on disk", cfg.HTTP.CacheBackend)
				return nil
			}

			dir := c.cacheDir(cfg.HTTP.CacheDir)
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo("Cache is empty")
				return nil
			}

			count := 0
			err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
				if err != nil || path == dir || info.IsDir() {
					return nil
				}
				if err := os.Remove(path); err == nil {
					count++
				}
				return nil
			})
			if err != nil {
				return err
			}

			// Clean up now-empty subdirectories.
			_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
				if err != nil || path == dir {
					return nil
				}
				if info.IsDir() {
					os.Remove(path)
				}
				return nil
			})

			printSuccess("Cleared %d cached entries", count)
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}

// cacheDir resolves the file-cache directory the same way the crawler wiring
// does.
func (c *CLI) cacheDir(configured string) string {
	if configured != "" {
		return configured
	}
	return crawler.DefaultCacheDir
}
