// Package blockcopy performs single block-oriented copies between
// files and raw devices. Copies that target a device are destructive
// and are never retried.
package blockcopy

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Conversion selects how the copy treats short blocks and read errors.
type Conversion int

const (
	// ConversionNone aborts on the first error.
	ConversionNone Conversion = iota
	// ConversionSyncOnError pads short blocks with zero bytes and
	// continues past device errors.
	ConversionSyncOnError
)

func (c Conversion) String() string {
	switch c {
	case ConversionNone:
		return "none"
	case ConversionSyncOnError:
		return "sync-on-error"
	default:
		return fmt.Sprintf("Conversion(%d)", int(c))
	}
}

// Request describes one copy. Seek offsets are in blocks, not bytes.
type Request struct {
	Label            string
	Source           string
	Destination      string
	BlockSizeBytes   int64
	BlockCount       int64
	SourceSeekBlocks int64
	DestSeekBlocks   int64
	Conversion       Conversion
	NoTruncate       bool
	Elevated         bool
	ReportProgress   bool
}

// TotalBytes is the number of bytes the request asks to move.
func (r Request) TotalBytes() int64 {
	return r.BlockSizeBytes * r.BlockCount
}

// Validate checks that the request can be executed.
func (r Request) Validate() error {
	switch {
	case r.Source == "":
		return fmt.Errorf("%w: empty source", ErrInvalidRequest)
	case r.Destination == "":
		return fmt.Errorf("%w: empty destination", ErrInvalidRequest)
	case r.BlockSizeBytes <= 0:
		return fmt.Errorf("%w: block size %d", ErrInvalidRequest, r.BlockSizeBytes)
	case r.BlockCount <= 0:
		return fmt.Errorf("%w: block count %d", ErrInvalidRequest, r.BlockCount)
	case r.SourceSeekBlocks < 0 || r.DestSeekBlocks < 0:
		return fmt.Errorf("%w: negative seek", ErrInvalidRequest)
	}

	return nil
}

// Sample is one progress observation: cumulative bytes after Seconds.
type Sample struct {
	Seconds float64 `json:"seconds"`
	Bytes   int64   `json:"bytes"`
}

// Stats summarizes a finished copy.
type Stats struct {
	BytesCopied int64
	Elapsed     time.Duration
	Samples     []Sample
}

// Copier executes block copies. Copy blocks until the copy finished or
// failed.
type Copier interface {
	Copy(ctx context.Context, req Request) (Stats, error)
}

var (
	// ErrCopyFailed matches every CopyFailedError.
	ErrCopyFailed = errors.New("copy failed")
	// ErrInvalidRequest is returned for requests that fail Validate.
	ErrInvalidRequest = errors.New("invalid copy request")
)

// CopyFailedError carries the underlying process or OS error of a
// failed copy together with the tail of the tool's diagnostics.
type CopyFailedError struct {
	Label  string
	Err    error
	Stderr string
}

func (e *CopyFailedError) Error() string {
	msg := fmt.Sprintf("copy %s failed: %v", e.Label, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}

	return msg
}

func (e *CopyFailedError) Unwrap() []error {
	return []error{ErrCopyFailed, e.Err}
}
