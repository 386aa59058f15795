package ui

import (
	"fmt"
	"io"
)

// ANSI escape codes used by the printer.
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
)

// Printer writes human-readable CLI output, with colors on interactive
// terminals and plain text everywhere else.
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter creates a printer for the given writer, detecting whether
// color output is appropriate.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, color: UseColor(w)}
}

// NewPlainPrinter creates a printer that never emits colors.
func NewPlainPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Printf writes a formatted line without decoration.
func (p *Printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Successf writes a success line.
func (p *Printer) Successf(format string, args ...any) {
	p.decorated(ansiGreen, "ok", format, args...)
}

// Warnf writes a warning line.
func (p *Printer) Warnf(format string, args ...any) {
	p.decorated(ansiYellow, "warn", format, args...)
}

// Errorf writes an error line.
func (p *Printer) Errorf(format string, args ...any) {
	p.decorated(ansiRed, "error", format, args...)
}

// Headerf writes a bold section header.
func (p *Printer) Headerf(format string, args ...any) {
	if p.color {
		fmt.Fprintf(p.w, ansiBold+format+ansiReset+"\n", args...)
		return
	}
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Dimf writes de-emphasized detail text.
func (p *Printer) Dimf(format string, args ...any) {
	if p.color {
		fmt.Fprintf(p.w, ansiDim+format+ansiReset+"\n", args...)
		return
	}
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *Printer) decorated(color, label, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.color {
		fmt.Fprintf(p.w, "%s%s:%s %s\n", color, label, ansiReset, msg)
		return
	}
	fmt.Fprintf(p.w, "%s: %s\n", label, msg)
}
