package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/karlbench/karlbench/bench"
	"github.com/karlbench/karlbench/blockcopy"
	"github.com/karlbench/karlbench/config"
	"github.com/karlbench/karlbench/device"
	"github.com/karlbench/karlbench/privilege"
	"github.com/karlbench/karlbench/prompt"
	"github.com/karlbench/karlbench/report"
	"github.com/karlbench/karlbench/seek"
	"github.com/karlbench/karlbench/tempfile"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		configPath      string
		blockSizeMB     int64
		blockCount      int64
		randomSeek      bool
		seed            int64
		randomSource    string
		tempDir         string
		sudo            bool
		devicePath      string
		yes             bool
		progress        bool
		outputJSON      bool
		plotOut         string
		metricsTextfile string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Benchmark a raw block device",
		Long: `Pick a block device, confirm, and run the generate, write and
read-back phases against it. All data on the device may be lost.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := config.Load(configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("block-size-mb") {
				file.BlockSizeMB = blockSizeMB
			}
			if flags.Changed("block-count") {
				file.BlockCount = blockCount
			}
			if flags.Changed("random-seek") {
				file.RandomSeek = randomSeek
			}
			if flags.Changed("seed") {
				file.Seed = seed
			}
			if flags.Changed("random-source") {
				file.RandomSource = randomSource
			}
			if flags.Changed("temp-dir") {
				file.TempDir = tempDir
			}
			if flags.Changed("sudo") {
				file.Sudo = sudo
			}

			if err := file.Validate(); err != nil {
				return err
			}

			if !flags.Changed("progress") {
				progress = isatty.IsTerminal(os.Stderr.Fd()) ||
					isatty.IsCygwinTerminal(os.Stderr.Fd())
			}

			return runBenchmark(cmd.Context(), logger, defaultRunEnv(), runConfig{
				settings:        file,
				device:          devicePath,
				yes:             yes,
				progress:        progress,
				outputJSON:      outputJSON,
				plotOut:         plotOut,
				metricsTextfile: metricsTextfile,
			})
		},
	}

	defaults := config.Default()

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "",
		"Path to a TOML config file")
	flags.Int64Var(&blockSizeMB, "block-size-mb", defaults.BlockSizeMB,
		"Block size in MiB")
	flags.Int64Var(&blockCount, "block-count", defaults.BlockCount,
		"Number of blocks moved per phase")
	flags.BoolVar(&randomSeek, "random-seek", defaults.RandomSeek,
		"Write at a random offset into the device")
	flags.Int64Var(&seed, "seed", defaults.Seed,
		"Random seed for the seek offset (0 = use current time)")
	flags.StringVar(&randomSource, "random-source", defaults.RandomSource,
		"File the payload is read from")
	flags.StringVar(&tempDir, "temp-dir", defaults.TempDir,
		"Directory for scratch files (default: system temp dir)")
	flags.BoolVar(&sudo, "sudo", defaults.Sudo,
		"Run device copies through sudo")
	flags.StringVar(&devicePath, "device", "",
		"Device to benchmark (skip the selection prompt)")
	flags.BoolVarP(&yes, "yes", "y", false,
		"Do not ask for confirmation before writing")
	flags.BoolVar(&progress, "progress", false,
		"Show dd progress (default: when stderr is a terminal)")
	flags.BoolVar(&outputJSON, "json", false,
		"Output results as JSON instead of table")
	flags.StringVar(&plotOut, "plot-out", "",
		"Write plot series JSON to this file")
	flags.StringVar(&metricsTextfile, "metrics-textfile", "",
		"Write Prometheus metrics in text format to this file")

	return cmd
}

type runConfig struct {
	settings        config.Config
	device          string
	yes             bool
	progress        bool
	outputJSON      bool
	plotOut         string
	metricsTextfile string
}

type asker interface {
	Choose(question string, options []string) (string, error)
	Confirm(question string, def bool) (bool, error)
}

// runEnv holds the collaborators of runBenchmark that touch the
// terminal, the OS or devices.
type runEnv struct {
	stdout       io.Writer
	enumerator   device.Enumerator
	openPrompter func() (asker, io.Closer, error)
	newCopier    func(esc privilege.Escalator, logger *slog.Logger) blockcopy.Copier
	sizeProbe    bench.SizeProbe
	gatherer     prometheus.Gatherer
}

func defaultRunEnv() runEnv {
	return runEnv{
		stdout:     os.Stdout,
		enumerator: device.ForOS(runtime.GOOS),
		openPrompter: func() (asker, io.Closer, error) {
			return prompt.NewTerminal()
		},
		newCopier: func(esc privilege.Escalator, logger *slog.Logger) blockcopy.Copier {
			return blockcopy.NewMetricsCopier(blockcopy.NewDD(esc, os.Stderr, logger))
		},
		sizeProbe: device.Size,
		gatherer:  prometheus.DefaultGatherer,
	}
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	env runEnv,
	cfg runConfig,
) error {
	path, ok, err := selectDevice(ctx, logger, env, cfg)
	if err != nil {
		return err
	}

	if !ok {
		fmt.Fprintln(env.stdout, "Exiting!")

		return nil
	}

	settings := cfg.settings

	seed := settings.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	benchCfg, err := bench.NewConfig(
		settings.BlockSizeMB,
		settings.BlockCount,
		settings.RandomSeek,
		seek.NewSeededCalculator(seed),
	)
	if err != nil {
		return fmt.Errorf("build benchmark config: %w", err)
	}

	var esc privilege.Escalator = privilege.None{}
	if settings.Sudo {
		esc = privilege.NewSudo()
	}

	runner := bench.NewRunner(
		env.newCopier(esc, logger),
		tempfile.NewManager(settings.TempDir, esc, logger),
		logger,
	)
	runner.RandomSource = settings.RandomSource
	runner.ReportProgress = cfg.progress
	runner.SizeProbe = env.sizeProbe

	result, runErr := runner.Run(ctx, path, benchCfg)

	// Telemetry is written for aborted runs too.
	if result != nil {
		if err := writeReports(env.stdout, cfg, []bench.Result{*result}); err != nil {
			logger.WarnContext(ctx, "failed to write report",
				slog.String("error", err.Error()),
			)
		}
	}

	if cfg.metricsTextfile != "" {
		if err := prometheus.WriteToTextfile(cfg.metricsTextfile, env.gatherer); err != nil {
			logger.WarnContext(ctx, "failed to write metrics",
				slog.String("path", cfg.metricsTextfile),
				slog.String("error", err.Error()),
			)
		}
	}

	if runErr != nil {
		return fmt.Errorf("benchmark %s: %w", path, runErr)
	}

	return nil
}

// selectDevice returns the device to benchmark and whether the user
// agreed to overwrite it.
func selectDevice(
	ctx context.Context,
	logger *slog.Logger,
	env runEnv,
	cfg runConfig,
) (string, bool, error) {
	if cfg.device != "" && cfg.yes {
		return cfg.device, true, nil
	}

	q, closer, err := env.openPrompter()
	if err != nil {
		return "", false, err
	}
	defer closer.Close()

	path := cfg.device
	if path == "" {
		devices, err := env.enumerator.List(ctx)
		if err != nil {
			return "", false, fmt.Errorf("list devices: %w", err)
		}

		if len(devices) == 0 {
			return "", false, errors.New("no block devices found")
		}

		logger.DebugContext(ctx, "found devices", slog.Any("devices", devices))

		path, err = q.Choose("Which disk should we write to?", devices)
		if errors.Is(err, prompt.ErrAborted) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
	}

	if cfg.yes {
		return path, true, nil
	}

	ok, err := q.Confirm(fmt.Sprintf(
		"Confirm writing to %s? This will permanently delete all data from the disk.", path,
	), false)
	if err != nil {
		return "", false, err
	}

	return path, ok, nil
}

func writeReports(stdout io.Writer, cfg runConfig, results []bench.Result) error {
	var err error
	if cfg.outputJSON {
		err = report.GenerateJSON(stdout, results)
	} else {
		err = report.Generate(stdout, results)
	}

	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	if cfg.plotOut == "" {
		return nil
	}

	f, err := os.Create(cfg.plotOut)
	if err != nil {
		return fmt.Errorf("create plot data: %w", err)
	}

	if err := report.WritePlotData(f, results); err != nil {
		f.Close()

		return fmt.Errorf("write plot data: %w", err)
	}

	return f.Close()
}
