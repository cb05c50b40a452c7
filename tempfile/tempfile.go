// Package tempfile hands out scratch files for a benchmark run and
// guarantees their removal.
package tempfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/karlbench/karlbench/privilege"
)

// ErrCleanupFailed matches every error returned by Release.
var ErrCleanupFailed = errors.New("cleanup failed")

// CleanupFailedError reports a scratch file that could not be removed.
type CleanupFailedError struct {
	Path string
	Err  error
}

func (e *CleanupFailedError) Error() string {
	return fmt.Sprintf("remove %s: %v", e.Path, e.Err)
}

func (e *CleanupFailedError) Unwrap() []error {
	return []error{ErrCleanupFailed, e.Err}
}

// File is a scratch file owned by a single run. Elevated files may be
// written by a privileged process and are removed with privileges too.
type File struct {
	Path     string
	Elevated bool
}

// Manager allocates scratch files in Dir (the system temporary
// directory when empty).
type Manager struct {
	Dir       string
	Escalator privilege.Escalator
	Logger    *slog.Logger
}

// NewManager creates a Manager.
func NewManager(dir string, esc privilege.Escalator, logger *slog.Logger) *Manager {
	return &Manager{
		Dir:       dir,
		Escalator: esc,
		Logger:    logger.With(slog.String("component", "tempfile")),
	}
}

// Acquire allocates a unique scratch file.
func (m *Manager) Acquire(prefix string) (File, error) {
	return m.acquire(prefix, false)
}

// AcquireElevated allocates a unique scratch file that is released
// through the escalator.
func (m *Manager) AcquireElevated(prefix string) (File, error) {
	return m.acquire(prefix, true)
}

func (m *Manager) acquire(prefix string, elevated bool) (File, error) {
	f, err := os.CreateTemp(m.Dir, "karlbench-"+prefix+"-*.bin")
	if err != nil {
		return File{}, fmt.Errorf("create temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())

		return File{}, fmt.Errorf("close temp file: %w", err)
	}

	m.Logger.Debug("acquired temp file",
		slog.String("path", f.Name()),
		slog.Bool("elevated", elevated),
	)

	return File{Path: f.Name(), Elevated: elevated}, nil
}

// Release deletes f. A file that is already gone counts as released.
func (m *Manager) Release(ctx context.Context, f File) error {
	if f.Elevated {
		return m.releaseElevated(ctx, f)
	}

	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &CleanupFailedError{Path: f.Path, Err: err}
	}

	return nil
}

func (m *Manager) releaseElevated(ctx context.Context, f File) error {
	cmd, err := privilege.Command(ctx, m.Escalator, true, "rm", "-f", "--", f.Path)
	if err != nil {
		return &CleanupFailedError{Path: f.Path, Err: err}
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}

		return &CleanupFailedError{Path: f.Path, Err: err}
	}

	return nil
}

// Scope tracks the files acquired for one run so they can be released
// together on any exit path.
type Scope struct {
	manager *Manager
	files   []File
}

// NewScope starts an empty Scope.
func (m *Manager) NewScope() *Scope {
	return &Scope{manager: m}
}

// Acquire allocates a file owned by the scope.
func (s *Scope) Acquire(prefix string) (File, error) {
	return s.track(s.manager.Acquire(prefix))
}

// AcquireElevated allocates a privileged-release file owned by the scope.
func (s *Scope) AcquireElevated(prefix string) (File, error) {
	return s.track(s.manager.AcquireElevated(prefix))
}

func (s *Scope) track(f File, err error) (File, error) {
	if err != nil {
		return f, err
	}

	s.files = append(s.files, f)

	return f, nil
}

// Files returns the files acquired so far.
func (s *Scope) Files() []File {
	return append([]File(nil), s.files...)
}

// Close releases every acquired file in reverse order. Failures are
// logged and returned but never stop the remaining releases. Close is
// idempotent.
func (s *Scope) Close(ctx context.Context) []error {
	var errs []error

	for i := len(s.files) - 1; i >= 0; i-- {
		f := s.files[i]
		if err := s.manager.Release(ctx, f); err != nil {
			s.manager.Logger.WarnContext(ctx, "failed to remove temp file",
				slog.String("path", f.Path),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)

			continue
		}

		s.manager.Logger.DebugContext(ctx, "released temp file",
			slog.String("path", f.Path),
		)
	}

	s.files = nil

	return errs
}
