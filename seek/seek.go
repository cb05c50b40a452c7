// Package seek derives the block offset a benchmark writes to and
// reads from.
package seek

import (
	"fmt"
	"math/rand"
)

// CapacityCeilingBytes is the virtual device capacity random offsets are
// drawn from. It is not related to the real size of the target, so an
// offset may lie beyond the end of a small device; the copy then fails.
const CapacityCeilingBytes int64 = 100 * 1024 * 1024 * 1024 * 1024

// Generator is the subset of *rand.Rand the calculator needs.
type Generator interface {
	// Generates a number in range [0, n).
	Int63n(n int64) int64
}

var _ Generator = (*rand.Rand)(nil)

// Calculator produces seek offsets in block units.
type Calculator struct {
	rng Generator
}

// NewCalculator creates a Calculator drawing from rng.
func NewCalculator(rng Generator) *Calculator {
	return &Calculator{rng: rng}
}

// NewSeededCalculator creates a Calculator backed by a math/rand
// source seeded with seed.
func NewSeededCalculator(seed int64) *Calculator {
	return NewCalculator(rand.New(rand.NewSource(seed)))
}

// Blocks returns the seek offset for blockSizeBytes. Without
// randomization the offset is always zero.
func (c *Calculator) Blocks(blockSizeBytes int64, randomize bool) (int64, error) {
	if blockSizeBytes <= 0 {
		return 0, fmt.Errorf("block size must be positive, got %d", blockSizeBytes)
	}

	if !randomize {
		return 0, nil
	}

	r := c.rng.Int63n(CapacityCeilingBytes) + 1

	return roundDiv(r, blockSizeBytes), nil
}

// MaxBlocks is the largest offset Blocks can return for blockSizeBytes.
func MaxBlocks(blockSizeBytes int64) int64 {
	return roundDiv(CapacityCeilingBytes, blockSizeBytes)
}

// roundDiv divides two positive integers, rounding half away from zero.
func roundDiv(a, b int64) int64 {
	return (a + b/2) / b
}
