// Package console renders operator-facing output: colored log lines,
// addresses with letters and digits told apart, and beneficiaries with
// human-readable vesting dates.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Printer writes colored lines to an output stream.
type Printer struct {
	w     io.Writer
	amber lipgloss.Style
	green lipgloss.Style
	red   lipgloss.Style
	blue  lipgloss.Style
}

// NewPrinter returns a Printer writing to w. With color false all styles
// render as plain text.
func NewPrinter(w io.Writer, color bool) *Printer {
	r := lipgloss.NewRenderer(w)
	if color {
		r.SetColorProfile(termenv.ANSI)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Printer{
		w:     w,
		amber: r.NewStyle().Foreground(lipgloss.Color("3")),
		green: r.NewStyle().Foreground(lipgloss.Color("2")),
		red:   r.NewStyle().Foreground(lipgloss.Color("1")),
		blue:  r.NewStyle().Foreground(lipgloss.Color("4")),
	}
}

// Discard returns a Printer that drops everything.
func Discard() *Printer {
	return NewPrinter(io.Discard, false)
}

func (p *Printer) Amber(s string) string { return p.amber.Render(s) }
func (p *Printer) Green(s string) string { return p.green.Render(s) }
func (p *Printer) Red(s string) string   { return p.red.Render(s) }
func (p *Printer) Blue(s string) string  { return p.blue.Render(s) }

// Println writes the arguments separated by spaces.
func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.w, a...)
}

// Printf writes a formatted line; a trailing newline is added when missing.
func (p *Printer) Printf(format string, a ...any) {
	line := fmt.Sprintf(format, a...)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	io.WriteString(p.w, line)
}

func (p *Printer) AmberLog(s string) { p.Println(p.Amber(s)) }
func (p *Printer) GreenLog(s string) { p.Println(p.Green(s)) }
func (p *Printer) RedLog(s string)   { p.Println(p.Red(s)) }
func (p *Printer) BlueLog(s string)  { p.Println(p.Blue(s)) }

// Banner prints a green boxed title.
func (p *Printer) Banner(title string) {
	rule := strings.Repeat("*", len(title)+6)
	p.GreenLog(rule)
	p.GreenLog("   " + title)
	p.GreenLog(rule)
}
