package prompt

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTerminal(input string) (*Terminal, *strings.Builder) {
	out := &strings.Builder{}
	return NewTerminal(strings.NewReader(input), out), out
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"maybe\ny\n", true},
		{"y", true},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			term, _ := newTestTerminal(tt.input)
			got, err := term.Confirm("Is it ok?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfirmReasksOnInvalidInput(t *testing.T) {
	term, out := newTestTerminal("maybe\nno\n")
	got, err := term.Confirm("Finished?")
	require.NoError(t, err)
	assert.False(t, got)
	assert.Equal(t, 2, strings.Count(out.String(), "Finished? [y/N]: "))
	assert.Contains(t, out.String(), "invalid input")
}

func TestEOFAborts(t *testing.T) {
	term, _ := newTestTerminal("")
	_, err := term.Confirm("Is it ok?")
	require.ErrorIs(t, err, ErrAborted)

	_, err = term.Input("Next version")
	require.ErrorIs(t, err, ErrAborted)

	_, err = term.Password("PyPI Password")
	require.ErrorIs(t, err, ErrAborted)
}

func TestInputRequiresValue(t *testing.T) {
	term, out := newTestTerminal("\n  \n0.18\n")
	got, err := term.Input("Next version")
	require.NoError(t, err)
	assert.Equal(t, "0.18", got)
	assert.Equal(t, 3, strings.Count(out.String(), "Next version: "))
}

func TestPasswordFromPipe(t *testing.T) {
	term, _ := newTestTerminal("s3cret \r\n")
	got, err := term.Password("PyPI Password")
	require.NoError(t, err)
	assert.Equal(t, "s3cret ", got, "passwords are not trimmed")
}

func TestPasswordFromTerminal(t *testing.T) {
	term, out := newTestTerminal("")
	term.tty = true
	term.readPass = func(int) ([]byte, error) { return []byte("hidden"), nil }

	got, err := term.Password("Key passphrase")
	require.NoError(t, err)
	assert.Equal(t, "hidden", got)
	assert.NotContains(t, out.String(), "hidden")
}

func TestSection(t *testing.T) {
	term, out := newTestTerminal("")
	term.Section("Tag and push")
	assert.Contains(t, out.String(), "==> Tag and push")
}

func TestCancelledContextAbortsWaitingPrompt(t *testing.T) {
	in, w := io.Pipe()
	defer w.Close()
	ctx, cancel := context.WithCancel(context.Background())
	term := NewTerminal(in, &strings.Builder{}).WithContext(ctx)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := term.Confirm("Is it ok?")
	require.ErrorIs(t, err, ErrAborted)

	_, err = term.Input("Next version")
	require.ErrorIs(t, err, ErrAborted)
}

func TestPromptWithContextReadsInput(t *testing.T) {
	term, _ := newTestTerminal("y\n0.18\n")
	term.WithContext(context.Background())

	ok, err := term.Confirm("Is it ok?")
	require.NoError(t, err)
	assert.True(t, ok)

	v, err := term.Input("Next version")
	require.NoError(t, err)
	assert.Equal(t, "0.18", v)
}
