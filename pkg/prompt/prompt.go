// Package prompt asks the release manager questions on the terminal.
// End of input at any prompt aborts the running command with ErrAborted.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ErrAborted means the user aborted at a prompt.
var ErrAborted = errors.New("aborted by user")

// Prompter asks questions interactively.
type Prompter interface {
	// Confirm asks a yes/no question; the default answer is no.
	Confirm(question string) (bool, error)
	// Input asks for a required value.
	Input(label string) (string, error)
	// Password asks for a required value without echoing it.
	Password(label string) (string, error)
	// Section announces the next step of a long-running workflow.
	Section(title string)
}

// Terminal implements Prompter on a reader and writer, normally stdin and stderr.
type Terminal struct {
	in       *bufio.Reader
	out      io.Writer
	fd       int
	tty      bool
	banner   lipgloss.Style
	readPass func(fd int) ([]byte, error)

	// done aborts waiting prompts; pending is a read still outstanding from an
	// aborted prompt and is consumed by the next one.
	done    <-chan struct{}
	pending chan readResult
}

type readResult struct {
	err   error
	value string
}

// NewTerminal creates a prompter reading from in and writing prompts to out.
// Passwords are hidden when in is a terminal.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	t := &Terminal{
		in:       bufio.NewReader(in),
		out:      out,
		fd:       -1,
		readPass: term.ReadPassword,
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.fd = int(f.Fd())
		t.tty = true
	}
	t.banner = lipgloss.NewRenderer(out).NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		PaddingTop(1)
	return t
}

// WithContext makes prompts return ErrAborted once ctx is done.
func (t *Terminal) WithContext(ctx context.Context) *Terminal {
	t.done = ctx.Done()
	return t
}

// await runs read in the background and waits for it or for cancellation.
func (t *Terminal) await(read func() (string, error)) (string, error) {
	select {
	case <-t.done:
		return "", ErrAborted
	default:
	}

	if t.pending == nil {
		ch := make(chan readResult, 1)
		go func() {
			value, err := read()
			ch <- readResult{value: value, err: err}
		}()
		t.pending = ch
	}

	select {
	case r := <-t.pending:
		t.pending = nil
		return r.value, r.err
	case <-t.done:
		fmt.Fprintln(t.out)
		return "", ErrAborted
	}
}

func (t *Terminal) readLine() (string, error) {
	return t.await(t.readRawLine)
}

// readRawLine returns the next line without its line ending; EOF aborts.
func (t *Terminal) readRawLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if line == "" {
				fmt.Fprintln(t.out)
				return "", ErrAborted
			}
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Confirm implements Prompter.
func (t *Terminal) Confirm(question string) (bool, error) {
	for {
		fmt.Fprintf(t.out, "%s [y/N]: ", question)
		answer, err := t.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true, nil
		case "", "n", "no":
			return false, nil
		default:
			fmt.Fprintln(t.out, "Error: invalid input")
		}
	}
}

// Input implements Prompter.
func (t *Terminal) Input(label string) (string, error) {
	for {
		fmt.Fprintf(t.out, "%s: ", label)
		value, err := t.readLine()
		if err != nil {
			return "", err
		}
		if value = strings.TrimSpace(value); value != "" {
			return value, nil
		}
	}
}

// Password implements Prompter.
func (t *Terminal) Password(label string) (string, error) {
	for {
		fmt.Fprintf(t.out, "%s: ", label)

		var value string
		if t.tty {
			raw, err := t.await(func() (string, error) {
				raw, err := t.readPass(t.fd)
				fmt.Fprintln(t.out)
				if err != nil {
					return "", fmt.Errorf("failed to read password: %w", err)
				}
				return string(raw), nil
			})
			if err != nil {
				return "", err
			}
			value = raw
		} else {
			line, err := t.readLine()
			if err != nil {
				return "", err
			}
			value = line
		}
		if value != "" {
			return value, nil
		}
	}
}

// Section implements Prompter.
func (t *Terminal) Section(title string) {
	fmt.Fprintln(t.out, t.banner.Render("==> "+title))
}
