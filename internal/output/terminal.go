package output

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ColorDisabled reports whether colors should be turned off for w, taking
// NO_COLOR, FORCE_COLOR and TERM into account.
func ColorDisabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return true
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return true
	}
	return !IsTerminal(w)
}
