package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/wesleyorama2/perfdiff/internal/stats"
	"github.com/wesleyorama2/perfdiff/internal/trial"
)

const clearLine = "\r\033[2K"

// Progress reports trial execution on a status stream, normally stderr.
//
// Every trial gets an "Executing" line when its first attempt completes. On
// a terminal a live line additionally shows the current phase and the
// latest attempt, redrawn in place.
type Progress struct {
	w       io.Writer
	live    bool
	quiet   bool
	scheme  *ColorScheme
	mu      sync.Mutex
	started map[string]bool
	drawn   bool
}

// NewProgress creates a progress reporter writing to w. The live line is
// only drawn when w is a terminal.
func NewProgress(w io.Writer, quiet, noColor bool) *Progress {
	return &Progress{
		w:       w,
		live:    IsTerminal(w),
		quiet:   quiet,
		scheme:  SchemeFor(noColor),
		started: make(map[string]bool),
	}
}

// Update records a finished attempt. It is meant to be used as the runner's
// attempt hook.
func (p *Progress) Update(a trial.Attempt) {
	if p.quiet {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := a.Trial.String()
	if !p.started[key] {
		p.started[key] = true
		p.clear()
		fmt.Fprintf(p.w, "Executing %s\n", p.scheme.Trial.Sprint(key))
	}

	if !p.live {
		return
	}

	status := p.scheme.Success.Sprintf("%.3fms", stats.Milliseconds(a.Result.Duration))
	if a.Result.Failed() {
		status = p.scheme.Error.Sprint("failed")
	}
	fmt.Fprintf(p.w, "%s  %s %s %d/%d  %s", clearLine, a.Trial.Name, a.Phase, a.Index, a.Total, status)
	p.drawn = true
}

// Done removes the live line, if any.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clear()
}

func (p *Progress) clear() {
	if p.drawn {
		fmt.Fprint(p.w, clearLine)
		p.drawn = false
	}
}
