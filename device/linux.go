package device

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// IOCountersFunc returns per-device I/O statistics keyed by kernel
// device name.
type IOCountersFunc func(ctx context.Context) (map[string]disk.IOCountersStat, error)

// Linux lists whole block disks known to the kernel. Partitions are
// dropped by requiring an entry in SysBlockDir, and RAM disks are
// skipped.
type Linux struct {
	DevDir      string
	SysBlockDir string
	IOCounters  IOCountersFunc
}

// NewLinux creates a Linux enumerator backed by gopsutil.
func NewLinux() *Linux {
	return &Linux{
		DevDir:      "/dev",
		SysBlockDir: "/sys/block",
		IOCounters: func(ctx context.Context) (map[string]disk.IOCountersStat, error) {
			return disk.IOCountersWithContext(ctx)
		},
	}
}

var skippedPrefixes = []string{"ram", "zram"}

// List implements Enumerator.
func (l *Linux) List(ctx context.Context) ([]string, error) {
	counters, err := l.IOCounters(ctx)
	if err != nil {
		return nil, fmt.Errorf("read disk counters: %w", err)
	}

	var names []string

	for name := range counters {
		if skipped(name) {
			continue
		}

		if _, err := os.Stat(filepath.Join(l.SysBlockDir, name)); err != nil {
			continue
		}

		names = append(names, name)
	}

	sortNatural(names)

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(l.DevDir, name)
	}

	return paths, nil
}

func skipped(name string) bool {
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}

	return false
}
