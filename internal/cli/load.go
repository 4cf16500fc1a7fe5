package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/volvulus/untwist/pkg/errors"
	uio "github.com/volvulus/untwist/pkg/io"
	"github.com/volvulus/untwist/pkg/pipeline"
)

func (c *CLI) loadCommand() *cobra.Command {
	var (
		output  string
		strict  bool
		refresh bool
		timings bool
	)
	cmd := &cobra.Command{
		Use:   "load <dump>",
		Short: "Load a dump and print a summary",
		Long: `Load decodes a dump, builds its graph and validates it. The summary
lists graph sizes and warnings; -o writes the full outcome as JSON, in the
form the viewer consumes. Use "-" to read the dump from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" {
				if err := errors.ValidateOutputPath(output); err != nil {
					return err
				}
			}
			out, err := c.load(cmd, args[0], refresh)
			if err != nil {
				return err
			}
			if output != "" {
				if err := uio.ExportJSON(out, output); err != nil {
					return err
				}
			}

			if !out.OK() {
				printFailure(out.Failure)
				if output != "" {
					printFile(output)
				}
				return out.Err()
			}

			printSuccess("Loaded %s", filepath.Base(args[0]))
			printStats(*out.Stats, out.Result.CacheHit)
			if timings {
				printTimings(*out.Stats)
			}
			printWarnings(out.Warnings)
			if output != "" {
				printFile(output)
			}
			if strict && len(out.Warnings) > 0 {
				return fmt.Errorf("%d warnings (--strict)", len(out.Warnings))
			}
			return nil
		},
	}
	addPipelineFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the outcome JSON to this file")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when the load has warnings")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached results")
	cmd.Flags().BoolVar(&timings, "timings", false, "print per-stage timings")
	return cmd
}

// load runs one load of path with the configured options.
func (c *CLI) load(cmd *cobra.Command, path string, refresh bool) (*pipeline.Outcome, error) {
	ctx := cmd.Context()
	cfg := c.conf()

	raw, err := readDump(path, cfg.Pipeline.MaxBytes)
	if err != nil {
		return nil, err
	}

	runner := c.newRunner(ctx)
	defer runner.Close()

	opts := cfg.PipelineOptions(c.Logger)
	opts.Refresh = refresh

	prog := newProgress(c.Logger)
	out := spin(ctx, os.Stderr, "Loading "+filepath.Base(path), func() *pipeline.Outcome {
		return pipeline.NewLoader(runner).Load(ctx, raw, opts)
	})
	if out.OK() {
		prog.done("load complete", "nodes", out.Stats.Nodes, "edges", out.Stats.Edges, "run", out.RunID)
	}
	return out, nil
}
