package download

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/projecteru2/apkfetch/types"
)

const (
	defaultBarWidth = 40
	minBarWidth     = 10
)

// renderer prints status changes. On a terminal Downloading redraws one
// line with a bar; elsewhere a line is printed every 10%.
type renderer struct {
	w     io.Writer
	quiet bool
	tty   bool
	width int

	last    types.Status
	decile  int
	drawing bool
}

func newRenderer(w io.Writer, quiet bool) *renderer {
	r := &renderer{w: w, quiet: quiet, width: defaultBarWidth, decile: -1}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.tty = true
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil {
			// Leave room for the brackets and the percentage.
			r.width = max(min(cols-12, defaultBarWidth), minBarWidth) //nolint:mnd
		}
	}
	return r
}

// loop renders statuses until done is closed, then renders final().
func (r *renderer) loop(statuses <-chan types.Status, done <-chan struct{}, final func() types.Status) {
	for {
		select {
		case s, ok := <-statuses:
			if !ok {
				<-done
				r.show(final())
				return
			}
			r.show(s)
		case <-done:
			r.show(final())
			r.endLine()
			return
		}
	}
}

func (r *renderer) show(s types.Status) {
	if r.quiet || s == r.last {
		return
	}
	prev := r.last
	r.last = s
	switch s.State {
	case types.StateIdle:
	case types.StateDownloading:
		if r.tty {
			fmt.Fprintf(r.w, "\r%s", progressBar(s.Fraction, r.width))
			r.drawing = true
			return
		}
		if d := int(s.Fraction * 10); d != r.decile || prev.State != types.StateDownloading { //nolint:mnd
			r.decile = d
			fmt.Fprintf(r.w, "downloading %5.1f%%\n", s.Fraction*100) //nolint:mnd
		}
	case types.StatePaused:
		r.endLine()
		fmt.Fprintln(r.w, "paused")
	case types.StateSucceeded:
		if r.tty {
			fmt.Fprintf(r.w, "\r%s", progressBar(1, r.width))
		}
		r.endLine()
		fmt.Fprintf(r.w, "succeeded: %s\n", s.Location)
	case types.StateFailed:
		r.endLine()
		fmt.Fprintf(r.w, "failed: %s\n", s.Reason)
	}
}

func (r *renderer) endLine() {
	if r.drawing {
		fmt.Fprintln(r.w)
		r.drawing = false
	}
}

// progressBar renders "[####....]  42.0%" with width cells.
func progressBar(fraction float64, width int) string {
	fraction = types.Clamp(fraction)
	filled := int(fraction * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]" +
		fmt.Sprintf(" %5.1f%%", fraction*100) //nolint:mnd
}
