package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/karlbench/karlbench/device"
	"github.com/spf13/cobra"
)

func newDevicesCmd(logger *slog.Logger) *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List candidate block devices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listDevices(cmd.Context(), logger, os.Stdout,
				device.ForOS(runtime.GOOS), outputJSON)
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false,
		"Output devices as a JSON array")

	return cmd
}

func listDevices(
	ctx context.Context,
	logger *slog.Logger,
	w io.Writer,
	enumerator device.Enumerator,
	outputJSON bool,
) error {
	devices, err := enumerator.List(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}

	logger.DebugContext(ctx, "listed devices", slog.Int("count", len(devices)))

	if outputJSON {
		if devices == nil {
			devices = []string{}
		}

		return json.NewEncoder(w).Encode(devices)
	}

	for _, d := range devices {
		fmt.Fprintln(w, d)
	}

	return nil
}
