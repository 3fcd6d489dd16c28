package publish

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/dustin/go-humanize"
)

// Reporter creates a progress tracker per transfer.
type Reporter interface {
	Start(name string, total int64) Tracker
}

// Tracker receives transfer progress.
type Tracker interface {
	Add(n int64)
	Finish()
}

type nopReporter struct{}

type nopTracker struct{}

// Nop returns a reporter that discards progress.
func Nop() Reporter {
	return nopReporter{}
}

func (nopReporter) Start(string, int64) Tracker { return nopTracker{} }

func (nopTracker) Add(int64) {}

func (nopTracker) Finish() {}

// TerminalProgress draws a progress bar per transfer on a terminal.
type TerminalProgress struct {
	w     io.Writer
	width int
}

// NewTerminalProgress renders bars of the given width to w (usually stderr).
func NewTerminalProgress(w io.Writer, width int) *TerminalProgress {
	if width <= 0 {
		width = 40
	}
	return &TerminalProgress{w: w, width: width}
}

// Start begins a new bar.
func (t *TerminalProgress) Start(name string, total int64) Tracker {
	return &terminalTracker{
		w:     t.w,
		name:  name,
		total: total,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(t.width)),
		last:  -1,
	}
}

type terminalTracker struct {
	w     io.Writer
	bar   progress.Model
	name  string
	total int64
	done  int64
	last  int
	mu    sync.Mutex
}

func (t *terminalTracker) Add(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done += n
	t.draw(false)
}

func (t *terminalTracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.draw(true)
	fmt.Fprintln(t.w)
}

// draw redraws at most once per percent.
func (t *terminalTracker) draw(force bool) {
	percent := 1.0
	if t.total > 0 {
		percent = float64(t.done) / float64(t.total)
	}
	if percent > 1 {
		percent = 1
	}
	step := int(percent * 100)
	if step == t.last && !force {
		return
	}
	t.last = step
	fmt.Fprintf(t.w, "\r%s %s %s / %s", t.name, t.bar.ViewAs(percent),
		humanize.Bytes(uint64(t.done)), humanize.Bytes(uint64(t.total))) //nolint:gosec // sizes are non-negative
}
