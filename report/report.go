// Package report formats benchmark results into tables, JSON and the
// series consumed by the plotter.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/karlbench/karlbench/bench"
)

var phaseOrder = []bench.Phase{bench.PhaseGenerate, bench.PhaseWrite, bench.PhaseRead}

// Generate writes a markdown table for the given results.
func Generate(w io.Writer, results []bench.Result) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to report")
	}

	// Header.
	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Device | State | Block Size | Blocks | Seek | Generate "+
		"| Write | Read |")
	fmt.Fprintln(w, "|--------|-------|------------|--------|------|----------"+
		"|-------|------|")

	for _, r := range results {
		fmt.Fprintf(w, "| %s | %s | %s | %d | %d |",
			r.Device,
			r.State,
			humanize.IBytes(uint64(r.Config.BlockSizeBytes)),
			r.Config.BlockCount,
			r.Config.SeekBlocks,
		)

		for _, phase := range phaseOrder {
			pr, ok := r.Phase(phase)
			if !ok {
				fmt.Fprint(w, " - |")

				continue
			}

			fmt.Fprintf(w, " %s in %s (%s) |",
				formatBytes(pr.BytesCopied),
				formatMs(pr.ElapsedMs),
				formatRate(pr.BytesCopied, pr.ElapsedMs),
			)
		}

		fmt.Fprintln(w)
	}

	// Cleanup problems never change the outcome but are worth showing.
	for _, r := range results {
		for _, msg := range r.CleanupErrors {
			fmt.Fprintf(w, "\nCleanup warning (%s): %s\n", r.Device, msg)
		}
	}

	return nil
}

// GenerateJSON writes results as JSON to w.
func GenerateJSON(w io.Writer, results []bench.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(results)
}

func formatMs(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}

	return fmt.Sprintf("%.2fs", float64(ms)/1000)
}

func formatBytes(b int64) string {
	if b <= 0 {
		return "-"
	}

	return humanize.IBytes(uint64(b))
}

func formatRate(b, ms int64) string {
	if b <= 0 || ms <= 0 {
		return "-"
	}

	return humanize.IBytes(uint64(float64(b)*1000/float64(ms))) + "/s"
}
