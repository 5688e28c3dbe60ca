// Package ui prints the CLI's human-facing status lines. Results themselves
// are encoded as JSON or YAML by the caller; everything here goes to the
// status stream, normally stderr, so piping results stays clean.
package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes styled status lines to one output
type Printer struct {
	out   io.Writer
	style styles
	quiet bool
}

// NewPrinter creates a printer for out. Colors are used only when out is a
// terminal that supports them.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out, style: newStyles(lipgloss.NewRenderer(out))}
}

// Stderr returns a printer for the process's standard error
func Stderr() *Printer {
	return NewPrinter(os.Stderr)
}

// SetQuiet suppresses everything except errors
func (p *Printer) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// Error prints an error message, with the error appended when err is non-nil
func (p *Printer) Error(msg string, err error) {
	if err != nil {
		msg += ": " + err.Error()
	}
	fmt.Fprintln(p.out, p.style.errs.Render("✗ "+msg))
}

// Success prints a success message
func (p *Printer) Success(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, p.style.success.Render("✓ "+fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func (p *Printer) Warning(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, p.style.warning.Render("! "+fmt.Sprintf(format, args...)))
}

// Info prints a labelled value
func (p *Printer) Info(label, value string) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "%s: %s\n", p.style.label.Render(label), p.style.value.Render(value))
}

// Hint prints a dimmed line
func (p *Printer) Hint(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, p.style.dim.Render(fmt.Sprintf(format, args...)))
}

// Panel prints labelled values inside a bordered box, in label order
func (p *Printer) Panel(title string, values map[string]string) {
	if p.quiet {
		return
	}

	labels := make([]string, 0, len(values))
	width := 0
	for label := range values {
		labels = append(labels, label)
		width = max(width, len(label))
	}
	sort.Strings(labels)

	lines := []string{p.style.label.Render(title)}
	for _, label := range labels {
		padded := label + strings.Repeat(" ", width-len(label))
		lines = append(lines, p.style.dim.Render(padded)+"  "+p.style.value.Render(values[label]))
	}
	fmt.Fprintln(p.out, p.style.panel.Render(strings.Join(lines, "\n")))
}
