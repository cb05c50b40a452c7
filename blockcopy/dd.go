package blockcopy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/karlbench/karlbench/privilege"
)

// cLocale keeps dd's status lines in the format the progress parser reads.
const cLocale = "LC_ALL=C"

// DD copies blocks by running dd(1).
type DD struct {
	// Path of the dd binary. Defaults to "dd".
	Path      string
	Escalator privilege.Escalator
	// Progress receives dd's status output for requests with
	// ReportProgress set. May be nil.
	Progress io.Writer
	Logger   *slog.Logger
}

// NewDD creates a DD copier.
func NewDD(esc privilege.Escalator, progress io.Writer, logger *slog.Logger) *DD {
	return &DD{
		Path:      "dd",
		Escalator: esc,
		Progress:  progress,
		Logger:    logger.With(slog.String("component", "dd")),
	}
}

// Args renders the dd operands for req.
func Args(req Request) []string {
	args := []string{
		"if=" + req.Source,
		"of=" + req.Destination,
		"bs=" + strconv.FormatInt(req.BlockSizeBytes, 10),
		"count=" + strconv.FormatInt(req.BlockCount, 10),
	}

	if req.SourceSeekBlocks > 0 {
		args = append(args, "skip="+strconv.FormatInt(req.SourceSeekBlocks, 10))
	}
	if req.DestSeekBlocks > 0 {
		args = append(args, "seek="+strconv.FormatInt(req.DestSeekBlocks, 10))
	}

	conv := ""
	if req.Conversion == ConversionSyncOnError {
		conv = "sync,noerror"
	}
	if req.NoTruncate {
		if conv != "" {
			conv += ","
		}
		conv += "notrunc"
	}
	if conv != "" {
		args = append(args, "conv="+conv)
	}

	if req.ReportProgress {
		args = append(args, "status=progress")
	}

	return args
}

// Copy implements Copier.
func (d *DD) Copy(ctx context.Context, req Request) (Stats, error) {
	if err := req.Validate(); err != nil {
		return Stats{}, err
	}

	path := d.Path
	if path == "" {
		path = "dd"
	}

	name, args := path, Args(req)
	if req.Elevated {
		// sudo resets the environment, so the locale goes on the command line.
		name, args = "env", append([]string{cLocale, path}, args...)
	}

	cmd, err := privilege.Command(ctx, d.Escalator, req.Elevated, name, args...)
	if err != nil {
		return Stats{}, fmt.Errorf("copy %s: %w", req.Label, err)
	}

	cmd.Env = append(os.Environ(), cLocale)

	parser := &progressParser{}
	cmd.Stderr = parser
	if req.ReportProgress && d.Progress != nil {
		cmd.Stderr = io.MultiWriter(parser, d.Progress)
	}

	d.Logger.DebugContext(ctx, "starting copy",
		slog.String("phase", req.Label),
		slog.String("command", cmd.Path),
		slog.Any("args", cmd.Args[1:]),
	)

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)
	parser.Flush()

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			runErr = fmt.Errorf("%w (%w)", runErr, ctxErr)
		}

		return Stats{Elapsed: elapsed}, &CopyFailedError{
			Label:  req.Label,
			Err:    runErr,
			Stderr: parser.Tail(),
		}
	}

	stats := Stats{
		Elapsed: elapsed,
		Samples: parser.Samples(),
	}

	n, ok := parser.Bytes()
	if !ok {
		d.Logger.WarnContext(ctx, "no transfer summary from dd, assuming full copy",
			slog.String("phase", req.Label),
		)

		n = req.TotalBytes()
		stats.Samples = append(stats.Samples, Sample{Seconds: elapsed.Seconds(), Bytes: n})
	}

	stats.BytesCopied = n

	d.Logger.DebugContext(ctx, "copy finished",
		slog.String("phase", req.Label),
		slog.Int64("bytes", n),
		slog.Duration("elapsed", elapsed),
	)

	return stats, nil
}
