package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/volvulus/untwist/pkg/cache"
	"github.com/volvulus/untwist/pkg/config"
)

func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the result cache",
	}
	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	return cmd
}

func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached results and artifacts",
		Long: `Clear empties the file cache. Memory caches live only as long as the
process; Redis entries expire on their own.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := c.conf().Cache
			if cfg.Backend != config.CacheFile {
				printInfo("Nothing to clear for the %s cache", cfg.Backend)
				return nil
			}
			fc, err := cache.NewFileCache(cfg.Dir)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			n, err := fc.Clear()
			if err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			printSuccess("Cleared %d cached entries", n)
			printDetail("Directory: %s", fc.Dir())
			return nil
		},
	}
}

func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(stdout, c.conf().Cache.Dir)
			return err
		},
	}
}
