package device

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var darwinDisk = regexp.MustCompile(`^disk[0-9]+$`)

// Darwin lists whole disks (diskN) found in DevDir.
type Darwin struct {
	DevDir string
}

// List implements Enumerator.
func (d *Darwin) List(context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.DevDir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.DevDir, err)
	}

	var names []string

	for _, e := range entries {
		if darwinDisk.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}

	sortNatural(names)

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(d.DevDir, name)
	}

	return paths, nil
}
