package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/volvulus/untwist/pkg/buildinfo"
	"github.com/volvulus/untwist/pkg/cache"
	"github.com/volvulus/untwist/pkg/config"
	"github.com/volvulus/untwist/pkg/errors"
	"github.com/volvulus/untwist/pkg/observability/prom"
	"github.com/volvulus/untwist/pkg/pipeline"
	"github.com/volvulus/untwist/pkg/server"
	"github.com/volvulus/untwist/pkg/watch"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		watchFile bool
		metrics   bool
	)
	cmd := &cobra.Command{
		Use:   "serve [dump]",
		Short: "Run the HTTP backend for the viewer",
		Long: `Serve starts the viewer backend. When a dump is given it is loaded at
startup; with --watch it is reloaded whenever the file changes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if watchFile && len(args) == 0 {
				return fmt.Errorf("--watch needs a dump to watch")
			}
			ctx := cmd.Context()
			cfg := c.conf()

			runner := c.newRunner(ctx)
			defer runner.Close()
			runner.Keyer = cache.NewScopedKeyer(runner.Keyer, "serve:")

			store, err := cfg.OpenStore(ctx)
			if err != nil {
				return fmt.Errorf("open snapshot store: %w", err)
			}

			srvCfg := server.Config{
				Loader:         pipeline.NewLoader(runner),
				Store:          store,
				Options:        cfg.PipelineOptions(c.Logger),
				RequestTimeout: cfg.Server.RequestTimeout,
				Logger:         c.Logger,
			}
			if metrics {
				collector := prom.New(appName)
				collector.Register()
				srvCfg.Metrics = collector.Handler()
			}
			srv, err := server.New(srvCfg)
			if err != nil {
				_ = store.Close(ctx)
				return err
			}

			if len(args) == 1 {
				c.reload(ctx, srv, args[0])
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout)
			})
			if watchFile {
				w := watch.New(args[0], cfg.Watch.Debounce, c.Logger)
				g.Go(func() error {
					return w.Run(ctx, func(ctx context.Context) { c.reload(ctx, srv, args[0]) })
				})
			}
			c.Logger.Info("starting", "version", buildinfo.String(), "store", cfg.Storage.Backend)
			printInfo("Serving on http://%s", cfg.Server.Addr)
			return g.Wait()
		},
	}
	addPipelineFlags(cmd)
	f := cmd.Flags()
	f.String("addr", config.Default().Server.Addr, "listen address")
	f.String("store", config.Default().Storage.Backend, "snapshot store: memory, file or mongo")
	f.Duration("debounce", config.Default().Watch.Debounce, "quiet period before a changed dump is reloaded")
	f.BoolVarP(&watchFile, "watch", "w", false, "reload the dump when it changes")
	f.BoolVar(&metrics, "metrics", true, "serve Prometheus metrics at /metrics")
	return cmd
}

// reload loads path into srv and reports the outcome.
func (c *CLI) reload(ctx context.Context, srv *server.Server, path string) {
	out := srv.LoadFile(ctx, path)
	if !out.OK() {
		if !errors.IsFatal(out.Err()) {
			c.Logger.Warn("load skipped", "file", path, "kind", out.Failure.Kind, "error", out.Failure.Message)
			return
		}
		c.Logger.Error("load failed", "file", path, "kind", out.Failure.Kind, "error", out.Failure.Message)
		return
	}
	c.Logger.Info("loaded", "file", path, "nodes", out.Stats.Nodes, "edges", out.Stats.Edges, "warnings", len(out.Warnings))
}
