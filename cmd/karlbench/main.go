// Package main provides the CLI entry point for karlbench, a raw block
// device benchmarking tool.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	root := newRootCmd(logger, level)
	err := root.ExecuteContext(ctx)
	stop()

	if err != nil {
		logger.Error("karlbench failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "karlbench",
		Short: "Raw block device benchmarking tool",
		Long: `Karlbench writes a random payload through a raw block device at a
random offset and reads the same region back, measuring device throughput
outside the filesystem cache.

Benchmarking destroys data on the target device.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if verbose {
				level.Set(slog.LevelDebug)
			}
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")

	root.AddCommand(newRunCmd(logger))
	root.AddCommand(newDevicesCmd(logger))
	root.AddCommand(newPlotCmd(logger))

	return root
}
