// Package report renders the diagnostic report: section headers and
// aligned key/value lines written to a single output stream.
package report

import (
	"fmt"
	"io"
	"strings"
)

const (
	ruleWidth  = 40
	labelWidth = 22
)

// Printer writes report lines to an underlying writer. It records the
// first write error instead of returning one per call; the report is
// unreliable once any write fails, so callers check Err once at the end.
type Printer struct {
	w     io.Writer
	color bool
	err   error
}

// NewPrinter creates a Printer writing to w. When color is true,
// warning lines are highlighted with ANSI escapes.
func NewPrinter(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color}
}

// Header prints a section header: a blank line, a separator rule, the
// title, and another rule.
func (p *Printer) Header(title string) {
	rule := strings.Repeat("=", ruleWidth)
	p.printf("\n%s\n%s\n%s\n", rule, title, rule)
}

// Report prints one status line with the label left-justified to a
// fixed column width.
func (p *Printer) Report(label, status string) {
	p.printf("%-*s: %s\n", labelWidth, label, status)
}

// Warn prints a visually marked error line. Warnings never change the
// process exit status; they only flag findings the user should act on.
func (p *Printer) Warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.color {
		p.printf("\x1b[1;31m*** ERROR: %s\x1b[0m\n", msg)
	} else {
		p.printf("*** ERROR: %s\n", msg)
	}
}

// Blank prints an empty line.
func (p *Printer) Blank() {
	p.printf("\n")
}

// Err returns the first write error encountered, if any.
func (p *Printer) Err() error {
	return p.err
}

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	if _, err := fmt.Fprintf(p.w, format, args...); err != nil {
		p.err = err
	}
}
