// Package privilege decides how commands that need elevated OS
// privileges are launched. Callers pass an Escalator explicitly so the
// privilege requirement is visible at every call site.
package privilege

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// ErrEscalationUnavailable is returned when a command must run with
// elevated privileges but no escalation mechanism can be used.
var ErrEscalationUnavailable = errors.New("privilege escalation unavailable")

// Escalator rewrites a command line so that it runs with elevated
// privileges.
type Escalator interface {
	Wrap(name string, args []string) (string, []string, error)
}

// Sudo escalates through sudo(8). If the process already runs as root
// the command is left untouched.
type Sudo struct {
	LookPath func(file string) (string, error)
	Geteuid  func() int
}

// NewSudo returns a Sudo escalator backed by the real environment.
func NewSudo() *Sudo {
	return &Sudo{
		LookPath: exec.LookPath,
		Geteuid:  os.Geteuid,
	}
}

// Wrap implements Escalator.
func (s *Sudo) Wrap(name string, args []string) (string, []string, error) {
	if s.Geteuid() == 0 {
		return name, args, nil
	}

	sudo, err := s.LookPath("sudo")
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrEscalationUnavailable, err)
	}

	wrapped := make([]string, 0, len(args)+2)
	wrapped = append(wrapped, "--", name)
	wrapped = append(wrapped, args...)

	return sudo, wrapped, nil
}

// None runs commands unchanged. It is meant for targets the current
// user can already write to, such as file-backed test devices.
type None struct{}

// Wrap implements Escalator.
func (None) Wrap(name string, args []string) (string, []string, error) {
	return name, args, nil
}

// Unavailable refuses every escalation.
type Unavailable struct{}

// Wrap implements Escalator.
func (Unavailable) Wrap(string, []string) (string, []string, error) {
	return "", nil, ErrEscalationUnavailable
}

// cancelGrace bounds how long a cancelled command may take to exit
// after SIGINT before it is killed.
const cancelGrace = 10 * time.Second

// Command builds an exec.Cmd for name and args, escalated through esc
// when elevated is set. Cancelling ctx interrupts the process with
// SIGINT so that sudo forwards the signal to its child.
func Command(
	ctx context.Context,
	esc Escalator,
	elevated bool,
	name string,
	args ...string,
) (*exec.Cmd, error) {
	if elevated {
		var err error

		name, args, err = esc.Wrap(name, args)
		if err != nil {
			return nil, err
		}
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = cancelGrace

	return cmd, nil
}
