// Package config loads benchmark defaults from an optional TOML file.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/karlbench/karlbench/bench"
)

// Config holds the settings of a benchmark run. Command-line flags
// override values read from a file.
type Config struct {
	BlockSizeMB  int64  `toml:"block_size_mb"`
	BlockCount   int64  `toml:"block_count"`
	RandomSeek   bool   `toml:"random_seek"`
	Seed         int64  `toml:"seed"`
	RandomSource string `toml:"random_source"`
	TempDir      string `toml:"temp_dir"`
	Sudo         bool   `toml:"sudo"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BlockSizeMB:  bench.DefaultBlockSizeMB,
		BlockCount:   bench.DefaultBlockCount,
		RandomSeek:   true,
		RandomSource: bench.DefaultRandomSource,
		Sudo:         true,
	}
}

// Load reads path on top of the defaults. An empty path yields the
// defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}

		return Config{}, fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	return cfg, cfg.Validate()
}

// Validate checks the values that cannot be defaulted.
func (c Config) Validate() error {
	switch {
	case c.BlockSizeMB <= 0:
		return fmt.Errorf("block_size_mb must be positive, got %d", c.BlockSizeMB)
	case c.BlockCount <= 0:
		return fmt.Errorf("block_count must be positive, got %d", c.BlockCount)
	case c.RandomSource == "":
		return fmt.Errorf("random_source must not be empty")
	}

	return nil
}
