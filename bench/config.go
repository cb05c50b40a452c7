package bench

import (
	"fmt"
	"math"

	"github.com/karlbench/karlbench/seek"
)

// BytesPerMB is the unit of the block-size-mb option.
const BytesPerMB = 1 << 20

// Defaults for a benchmark run.
const (
	DefaultBlockSizeMB = 1
	DefaultBlockCount  = 1024
)

// Config fixes the geometry of a run. It is not modified once built.
type Config struct {
	BlockSizeBytes int64 `json:"block_size_bytes"`
	BlockCount     int64 `json:"block_count"`
	SeekBlocks     int64 `json:"seek_blocks"`
}

// NewConfig builds a Config from user-facing parameters, drawing the
// seek offset from calc.
func NewConfig(
	blockSizeMB, blockCount int64,
	randomizeSeek bool,
	calc *seek.Calculator,
) (Config, error) {
	if blockSizeMB <= 0 {
		return Config{}, fmt.Errorf("block size must be positive, got %d MB", blockSizeMB)
	}
	if blockSizeMB > math.MaxInt64/BytesPerMB {
		return Config{}, fmt.Errorf("block size of %d MB is too large", blockSizeMB)
	}

	cfg := Config{
		BlockSizeBytes: blockSizeMB * BytesPerMB,
		BlockCount:     blockCount,
	}

	seekBlocks, err := calc.Blocks(cfg.BlockSizeBytes, randomizeSeek)
	if err != nil {
		return Config{}, fmt.Errorf("compute seek offset: %w", err)
	}

	cfg.SeekBlocks = seekBlocks

	return cfg, cfg.Validate()
}

// TotalBytes is the number of bytes every phase moves.
func (c Config) TotalBytes() int64 {
	return c.BlockSizeBytes * c.BlockCount
}

// Validate checks the invariants of a Config.
func (c Config) Validate() error {
	switch {
	case c.BlockSizeBytes <= 0:
		return fmt.Errorf("block size must be positive, got %d bytes", c.BlockSizeBytes)
	case c.BlockCount <= 0:
		return fmt.Errorf("block count must be positive, got %d", c.BlockCount)
	case c.SeekBlocks < 0:
		return fmt.Errorf("seek offset must not be negative, got %d", c.SeekBlocks)
	case c.BlockCount > math.MaxInt64/c.BlockSizeBytes:
		return fmt.Errorf("%d blocks of %d bytes overflow the byte total", c.BlockCount, c.BlockSizeBytes)
	case c.SeekBlocks > math.MaxInt64/c.BlockSizeBytes-c.BlockCount:
		return fmt.Errorf("region ending at block %d+%d overflows the device offset", c.SeekBlocks, c.BlockCount)
	}

	return nil
}
