// Package cli implements the untwist command-line interface.
//
// Commands:
//   - load: decode, build and validate a dump, print a summary
//   - render: write the graph as SVG, DOT or JSON
//   - serve: run the HTTP backend for the viewer
//   - inspect: browse a loaded graph in the terminal
//   - cache: manage the result cache
//   - config: show the effective configuration
//
// Configuration comes from untwist.toml, UNTWIST_ environment variables and
// flags (see package config). --verbose (-v) switches logging to debug.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/volvulus/untwist/pkg/buildinfo"
	"github.com/volvulus/untwist/pkg/config"
	"github.com/volvulus/untwist/pkg/pipeline"
)

const appName = "untwist"

// flagBindings maps command flags to config keys. A flag overrides the
// config only when given on the command line.
var flagBindings = config.Bindings{
	"max-bytes":    "pipeline.max_bytes",
	"parallelism":  "pipeline.parallelism",
	"max-attr-len": "pipeline.max_attribute_length",
	"drop":         "pipeline.drop_attributes",
	"cache":        "cache.backend",
	"addr":         "server.addr",
	"store":        "storage.backend",
	"debounce":     "watch.debounce",
}

// CLI holds state shared by all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool
	noCache    bool
	cfg        *config.Config
}

// New creates a CLI logging to w at level. The level is replaced by the
// configured one once a command runs.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// RootCommand creates the root command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "untwist turns object dumps into graphs",
		Long: `untwist reads a JSON dump of heap allocations or directory objects,
builds the graph of their relations, checks it, and hands a renderable
view to a terminal, a browser viewer or an image file.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return c.setup(cmd) },
	}
	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&c.configPath, "config", "", "config file (default ./"+config.DefaultFile+" when present)")
	pf.BoolVar(&c.noCache, "no-cache", false, "disable the result cache")

	root.AddCommand(c.loadCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())
	return root
}

// setup loads the configuration for cmd and applies the log level.
func (c *CLI) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(config.Source{
		Path:     c.configPath,
		Flags:    cmd.Flags(),
		Bindings: flagBindings,
	})
	if err != nil {
		return err
	}
	if c.noCache {
		cfg.Cache.Backend = config.CacheNull
	}
	c.cfg = cfg
	c.Logger.SetLevel(logLevel(cfg.LogLevel, c.verbose))
	c.Logger.Debug("config loaded", "cache", cfg.Cache.Backend, "store", cfg.Storage.Backend)
	return nil
}

// conf returns the loaded configuration, or the defaults when setup has
// not run.
func (c *CLI) conf() *config.Config {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	return c.cfg
}

// newRunner creates a pipeline runner backed by the configured cache. A
// cache that cannot be opened is logged and replaced by no cache.
func (c *CLI) newRunner(ctx context.Context) *pipeline.Runner {
	rc, err := c.conf().OpenCache(ctx)
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without it", "backend", c.conf().Cache.Backend, "error", err)
		rc = nil
	}
	return pipeline.NewRunner(rc, nil, c.Logger)
}

// addPipelineFlags registers the flags shared by commands that load dumps.
func addPipelineFlags(cmd *cobra.Command) {
	d := config.Default().Pipeline
	f := cmd.Flags()
	f.Int64("max-bytes", d.MaxBytes, "largest dump accepted, in bytes")
	f.Int("parallelism", d.Parallelism, "classification workers (0 = GOMAXPROCS)")
	f.Int("max-attr-len", d.MaxAttributeLength, "truncate attribute strings to this many characters (-1 = never)")
	f.StringSlice("drop", d.DropAttributes, "attributes left out of the view")
}

// readDump reads path, or stdin for "-", up to one byte past limit so the
// pipeline can reject oversized input.
func readDump(path string, limit int64) ([]byte, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open dump: %w", err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}
	return data, nil
}
