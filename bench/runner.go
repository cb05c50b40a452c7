// Package bench runs the raw-disk benchmark: a random payload is
// written through a block device at a seek offset and the same region
// is read back.
package bench

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/karlbench/karlbench/blockcopy"
	"github.com/karlbench/karlbench/tempfile"
)

// DefaultRandomSource is the OS randomness device payloads are drawn
// from.
const DefaultRandomSource = "/dev/urandom"

// SizeProbe reports the capacity of a device in bytes.
type SizeProbe func(path string) (int64, error)

// Runner drives the generate, write and read-back phases against one
// device.
type Runner struct {
	Copier    blockcopy.Copier
	TempFiles *tempfile.Manager
	// RandomSource is copied into the payload file. Tests substitute a
	// deterministic file.
	RandomSource   string
	ReportProgress bool
	// SizeProbe, when set, is used to warn about offsets past the end
	// of the device. The offset is never clamped.
	SizeProbe SizeProbe
	// OnTransition is called after every state change.
	OnTransition func(from, to State)
	Logger       *slog.Logger
}

// NewRunner creates a Runner reading payloads from DefaultRandomSource.
func NewRunner(
	copier blockcopy.Copier,
	tempFiles *tempfile.Manager,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		Copier:       copier,
		TempFiles:    tempFiles,
		RandomSource: DefaultRandomSource,
		Logger:       logger.With(slog.String("component", "bench")),
	}
}

// Run benchmarks device with cfg. The returned Result is non-nil
// whenever cfg is valid, including on failure. Scratch files are
// removed on every exit path, even when ctx is cancelled; removal
// failures are recorded in Result.CleanupErrors and never replace the
// run's own error.
func (r *Runner) Run(ctx context.Context, device string, cfg Config) (res *Result, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res = &Result{
		ID:        uuid.NewString(),
		Device:    device,
		Config:    cfg,
		State:     StateIdle,
		StartedAt: time.Now(),
	}

	logger := r.Logger.With(
		slog.String("run", res.ID),
		slog.String("device", device),
	)

	logger.InfoContext(ctx, "starting benchmark",
		slog.Int64("block_size_bytes", cfg.BlockSizeBytes),
		slog.Int64("block_count", cfg.BlockCount),
		slog.Int64("seek_blocks", cfg.SeekBlocks),
	)

	scope := r.TempFiles.NewScope()

	defer func() {
		for _, cleanupErr := range scope.Close(context.WithoutCancel(ctx)) {
			res.CleanupErrors = append(res.CleanupErrors, cleanupErr.Error())
		}

		if err != nil {
			r.transition(ctx, logger, res, StateAborted)
			logger.ErrorContext(ctx, "benchmark aborted",
				slog.String("error", err.Error()),
			)

			return
		}

		r.transition(ctx, logger, res, StateDone)
		logger.InfoContext(ctx, "benchmark complete")
	}()

	return res, r.pipeline(ctx, logger, scope, res)
}

func (r *Runner) pipeline(
	ctx context.Context,
	logger *slog.Logger,
	scope *tempfile.Scope,
	res *Result,
) error {
	cfg := res.Config

	// Generate the payload.
	r.transition(ctx, logger, res, StateGeneratingPayload)

	input, err := scope.Acquire("input")
	if err != nil {
		return &PhaseError{Phase: PhaseGenerate, Err: err}
	}

	if err := r.copy(ctx, logger, res, PhaseGenerate, blockcopy.Request{
		Source:      r.RandomSource,
		Destination: input.Path,
	}); err != nil {
		return err
	}

	// Write it through the device.
	r.transition(ctx, logger, res, StateWritingToDevice)
	r.checkCapacity(ctx, logger, res.Device, cfg)

	if err := r.copy(ctx, logger, res, PhaseWrite, blockcopy.Request{
		Source:         input.Path,
		Destination:    res.Device,
		DestSeekBlocks: cfg.SeekBlocks,
		Conversion:     blockcopy.ConversionSyncOnError,
		NoTruncate:     true,
		Elevated:       true,
	}); err != nil {
		return err
	}

	// Read the same region back.
	r.transition(ctx, logger, res, StateReadingFromDevice)

	output, err := scope.AcquireElevated("output")
	if err != nil {
		return &PhaseError{Phase: PhaseRead, Err: err}
	}

	return r.copy(ctx, logger, res, PhaseRead, blockcopy.Request{
		Source:           res.Device,
		Destination:      output.Path,
		SourceSeekBlocks: cfg.SeekBlocks,
		Conversion:       blockcopy.ConversionSyncOnError,
		Elevated:         true,
	})
}

func (r *Runner) copy(
	ctx context.Context,
	logger *slog.Logger,
	res *Result,
	phase Phase,
	req blockcopy.Request,
) error {
	if err := ctx.Err(); err != nil {
		return &PhaseError{Phase: phase, Err: err}
	}

	req.Label = string(phase)
	req.BlockSizeBytes = res.Config.BlockSizeBytes
	req.BlockCount = res.Config.BlockCount
	req.ReportProgress = r.ReportProgress

	logger.InfoContext(ctx, "starting phase",
		slog.String("phase", req.Label),
		slog.String("source", req.Source),
		slog.String("destination", req.Destination),
		slog.Bool("elevated", req.Elevated),
	)

	stats, err := r.Copier.Copy(ctx, req)
	if err != nil {
		return &PhaseError{Phase: phase, Err: err}
	}

	res.Phases = append(res.Phases, PhaseResult{
		Phase:       phase,
		BytesCopied: stats.BytesCopied,
		ElapsedMs:   stats.Elapsed.Milliseconds(),
		Samples:     stats.Samples,
	})

	if want := req.TotalBytes(); stats.BytesCopied != want {
		logger.WarnContext(ctx, "short transfer",
			slog.String("phase", req.Label),
			slog.Int64("bytes", stats.BytesCopied),
			slog.Int64("expected_bytes", want),
		)
	}

	logger.InfoContext(ctx, "phase finished",
		slog.String("phase", req.Label),
		slog.String("bytes", humanize.IBytes(uint64(stats.BytesCopied))),
		slog.Duration("elapsed", stats.Elapsed),
		slog.String("throughput", throughput(stats)),
	)

	return nil
}

func (r *Runner) checkCapacity(ctx context.Context, logger *slog.Logger, device string, cfg Config) {
	if r.SizeProbe == nil {
		return
	}

	size, err := r.SizeProbe(device)
	if err != nil {
		logger.DebugContext(ctx, "cannot determine device size",
			slog.String("error", err.Error()),
		)

		return
	}

	end := (cfg.SeekBlocks + cfg.BlockCount) * cfg.BlockSizeBytes
	if end > size {
		logger.WarnContext(ctx, "write region extends past the end of the device, the write is expected to fail",
			slog.Int64("device_bytes", size),
			slog.Int64("region_end_bytes", end),
		)
	}
}

func (r *Runner) transition(ctx context.Context, logger *slog.Logger, res *Result, to State) {
	from := res.State
	res.State = to

	logger.DebugContext(ctx, "state transition",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)

	if r.OnTransition != nil {
		r.OnTransition(from, to)
	}
}

func throughput(stats blockcopy.Stats) string {
	secs := stats.Elapsed.Seconds()
	if secs <= 0 {
		return "-"
	}

	return fmt.Sprintf("%s/s", humanize.IBytes(uint64(float64(stats.BytesCopied)/secs)))
}
