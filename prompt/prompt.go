// Package prompt asks the user which device to benchmark and for
// confirmation before anything destructive happens.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
)

// ErrAborted is returned when the user ends input or interrupts a
// prompt.
var ErrAborted = errors.New("aborted by user")

// LineReader reads one line of user input. *readline.Instance
// implements it.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

var _ LineReader = (*readline.Instance)(nil)

// Prompter asks questions on a terminal.
type Prompter struct {
	In  LineReader
	Out io.Writer
}

// NewTerminal creates a Prompter backed by readline on the process
// terminal. The returned closer releases the terminal.
func NewTerminal() (*Prompter, io.Closer, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open terminal: %w", err)
	}

	return &Prompter{In: rl, Out: rl.Stdout()}, rl, nil
}

// Choose presents options and returns the one picked. Invalid answers
// are asked again.
func (p *Prompter) Choose(question string, options []string) (string, error) {
	if len(options) == 0 {
		return "", errors.New("nothing to choose from")
	}

	fmt.Fprintln(p.Out, question)

	for i, opt := range options {
		fmt.Fprintf(p.Out, "  %d) %s\n", i+1, opt)
	}

	p.In.SetPrompt(fmt.Sprintf("Choice [1-%d]: ", len(options)))

	for {
		line, err := p.read()
		if err != nil {
			return "", err
		}

		n, err := strconv.Atoi(line)
		if err == nil && n >= 1 && n <= len(options) {
			return options[n-1], nil
		}

		fmt.Fprintf(p.Out, "Invalid choice %q\n", line)
	}
}

// Confirm asks a yes/no question. An empty answer selects def. Ending
// input counts as no.
func (p *Prompter) Confirm(question string, def bool) (bool, error) {
	hint := "(y/N)"
	if def {
		hint = "(Y/n)"
	}

	p.In.SetPrompt(question + " " + hint + " ")

	for {
		line, err := p.read()
		if errors.Is(err, ErrAborted) {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		switch strings.ToLower(line) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}

		fmt.Fprintln(p.Out, "Please answer yes or no.")
	}
}

func (p *Prompter) read() (string, error) {
	line, err := p.In.Readline()
	if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
		return "", ErrAborted
	}
	if err != nil {
		return "", fmt.Errorf("read answer: %w", err)
	}

	return strings.TrimSpace(line), nil
}
