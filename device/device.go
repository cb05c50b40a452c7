// Package device lists candidate raw block devices for the running
// operating system.
package device

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

var (
	// ErrUnsupportedPlatform is returned by enumerators for operating
	// systems without a known listing rule.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrSizeUnknown is returned when a device's capacity cannot be
	// determined on this platform.
	ErrSizeUnknown = errors.New("device size unknown")
)

// Enumerator lists device paths in presentation order.
type Enumerator interface {
	List(ctx context.Context) ([]string, error)
}

// ForOS returns the enumerator for the given GOOS value.
func ForOS(goos string) Enumerator {
	switch goos {
	case "darwin":
		return &Darwin{DevDir: "/dev"}
	case "linux":
		return NewLinux()
	default:
		return Unsupported{GOOS: goos}
	}
}

// Unsupported fails every listing.
type Unsupported struct {
	GOOS string
}

// List implements Enumerator.
func (u Unsupported) List(context.Context) ([]string, error) {
	return nil, fmt.Errorf("list devices on %s: %w", u.GOOS, ErrUnsupportedPlatform)
}

var trailingDigits = regexp.MustCompile(`^(.*?)(\d+)$`)

// sortNatural orders names so that disk2 sorts before disk10.
func sortNatural(names []string) {
	sort.Slice(names, func(i, j int) bool {
		a, b := trailingDigits.FindStringSubmatch(names[i]), trailingDigits.FindStringSubmatch(names[j])
		if a == nil || b == nil || a[1] != b[1] {
			return names[i] < names[j]
		}

		x, _ := strconv.Atoi(a[2])
		y, _ := strconv.Atoi(b[2])

		return x < y
	})
}
