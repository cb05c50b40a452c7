package seek

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fixedGenerator int64

func (g fixedGenerator) Int63n(n int64) int64 {
	return min(int64(g), n-1)
}

func TestBlocksWithoutRandomization(t *testing.T) {
	c := NewCalculator(fixedGenerator(12345))

	for _, bs := range []int64{1, 512, 1 << 20, 64 << 20} {
		for i := 0; i < 10; i++ {
			got, err := c.Blocks(bs, false)
			require.NoError(t, err)
			require.Zero(t, got)
		}
	}
}

func TestBlocksBounds(t *testing.T) {
	c := NewSeededCalculator(42)

	for _, bs := range []int64{1, 3, 512, 4096, 1 << 20, 7 << 20} {
		upper := MaxBlocks(bs)
		for i := 0; i < 1000; i++ {
			got, err := c.Blocks(bs, true)
			require.NoError(t, err)
			require.GreaterOrEqual(t, got, int64(0))
			require.LessOrEqual(t, got, upper)
		}
	}
}

func TestBlocksExtremes(t *testing.T) {
	const mib = 1 << 20

	lowest, err := NewCalculator(fixedGenerator(0)).Blocks(mib, true)
	require.NoError(t, err)
	require.Zero(t, lowest)

	highest, err := NewCalculator(fixedGenerator(CapacityCeilingBytes)).Blocks(mib, true)
	require.NoError(t, err)
	require.Equal(t, int64(100*1024*1024), highest)
	require.Equal(t, MaxBlocks(mib), highest)

	one, err := NewCalculator(fixedGenerator(0)).Blocks(1, true)
	require.NoError(t, err)
	require.Equal(t, int64(1), one)
}

func TestBlocksRounding(t *testing.T) {
	tests := []struct {
		draw int64 // r - 1
		bs   int64
		want int64
	}{
		{draw: 0, bs: 2, want: 1}, // 1/2 rounds up
		{draw: 1, bs: 4, want: 1}, // 2/4 rounds up
		{draw: 0, bs: 4, want: 0}, // 1/4 rounds down
		{draw: 4, bs: 2, want: 3}, // 5/2 rounds up
		{draw: 9, bs: 4, want: 3}, // 10/4 rounds up
		{draw: 8, bs: 4, want: 2}, // 9/4 rounds down
		{draw: 99, bs: 10, want: 10},
	}

	for _, tt := range tests {
		got, err := NewCalculator(fixedGenerator(tt.draw)).Blocks(tt.bs, true)
		require.NoError(t, err)
		require.Equal(t, tt.want, got, "r=%d bs=%d", tt.draw+1, tt.bs)
	}
}

func TestBlocksSeedDeterminism(t *testing.T) {
	a, b := NewSeededCalculator(7), NewSeededCalculator(7)

	for i := 0; i < 20; i++ {
		x, err := a.Blocks(1<<20, true)
		require.NoError(t, err)
		y, err := b.Blocks(1<<20, true)
		require.NoError(t, err)
		require.Equal(t, x, y)
	}
}

func TestBlocksRejectsNonPositiveBlockSize(t *testing.T) {
	c := NewCalculator(fixedGenerator(0))

	_, err := c.Blocks(0, false)
	require.Error(t, err)
	_, err = c.Blocks(-1, true)
	require.Error(t, err)
}
