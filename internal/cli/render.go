package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/volvulus/untwist/pkg/errors"
	uio "github.com/volvulus/untwist/pkg/io"
	"github.com/volvulus/untwist/pkg/pipeline"
	"github.com/volvulus/untwist/pkg/project"
	"github.com/volvulus/untwist/pkg/render/nodelink"
)

func (c *CLI) renderCommand() *cobra.Command {
	var (
		format   string
		output   string
		fromJSON bool
		detailed bool
		rankDir  string
	)
	cmd := &cobra.Command{
		Use:   "render <dump>",
		Short: "Render a dump's graph as SVG, DOT or JSON",
		Long: `Render loads a dump and writes its graph. SVG is laid out with Graphviz.
With --from-json the input is a graph previously written by
"render --format json" and is rendered without loading.

Output goes to stdout unless -o is given; SVG defaults to <dump>.svg.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" {
				if err := errors.ValidateOutputPath(output); err != nil {
					return err
				}
			}
			if err := pipeline.ValidateFormat(format); err != nil {
				return err
			}
			if rankDir != nodelink.RankTopBottom && rankDir != nodelink.RankLeftRight {
				return fmt.Errorf("--rankdir must be %s or %s", nodelink.RankTopBottom, nodelink.RankLeftRight)
			}

			ctx := cmd.Context()
			var rg *project.RenderableGraph
			if fromJSON {
				g, err := uio.ImportGraph(args[0])
				if err != nil {
					return err
				}
				rg = g
			} else {
				out, err := c.load(cmd, args[0], false)
				if err != nil {
					return err
				}
				if !out.OK() {
					printFailure(out.Failure)
					return out.Err()
				}
				rg = out.Graph
			}

			runner := c.newRunner(ctx)
			defer runner.Close()
			var data []byte
			err := spin(ctx, os.Stderr, "Rendering "+format, func() error {
				var err error
				data, err = runner.Render(ctx, rg, format, pipeline.RenderOptions{Detailed: detailed, RankDir: rankDir})
				return err
			})
			if err != nil {
				return err
			}

			if output == "" && format == pipeline.FormatSVG && args[0] != "-" {
				output = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])) + ".svg"
			}
			if output == "" {
				_, err := stdout.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Rendered %d nodes, %d edges", len(rg.Nodes), len(rg.Edges))
			printFile(output)
			return nil
		},
	}
	addPipelineFlags(cmd)
	f := cmd.Flags()
	f.StringVarP(&format, "format", "f", pipeline.FormatSVG, "output format: svg, dot or json")
	f.StringVarP(&output, "output", "o", "", "output file")
	f.BoolVar(&fromJSON, "from-json", false, "input is a rendered graph JSON, not a dump")
	f.BoolVar(&detailed, "detailed", false, "include attributes in node labels")
	f.StringVar(&rankDir, "rankdir", nodelink.RankTopBottom, "layout direction: TB or LR")
	return cmd
}
