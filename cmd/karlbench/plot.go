package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/karlbench/karlbench/plot"
	"github.com/karlbench/karlbench/report"
	"github.com/spf13/cobra"
)

func newPlotCmd(logger *slog.Logger) *cobra.Command {
	var (
		input  string
		output string
		title  string
	)

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render plot series as an HTML chart page",
		Long: `Read the series written by "run --plot-out" (or stdin) and render
one throughput chart per device.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var r io.Reader = cmd.InOrStdin()

			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return fmt.Errorf("open plot data: %w", err)
				}
				defer f.Close()

				r = f
			}

			if err := renderPlot(r, output, title); err != nil {
				return err
			}

			logger.InfoContext(cmd.Context(), "chart written",
				slog.String("path", output),
			)

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&input, "input", "-",
		"Plot series JSON file (- for stdin)")
	flags.StringVar(&output, "output", "karlbench.html",
		"HTML file to write")
	flags.StringVar(&title, "title", "karlbench",
		"Page title")

	return cmd
}

func renderPlot(r io.Reader, output, title string) error {
	data, err := report.ReadPlotData(r)
	if err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}

	if err := plot.Render(f, title, data); err != nil {
		f.Close()

		return fmt.Errorf("render chart: %w", err)
	}

	return f.Close()
}
