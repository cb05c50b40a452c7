//go:build !linux

package device

import (
	"fmt"
	"os"
)

// Size returns the capacity of a regular file at path. Block devices
// report ErrSizeUnknown.
func Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s: %w", path, ErrSizeUnknown)
	}

	return info.Size(), nil
}
