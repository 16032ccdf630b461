package cli

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// printer writes the startup display. Plain mode drops the colour codes.
type printer struct {
	w     io.Writer
	plain bool
}

func (p *printer) color(code, s string) string {
	if p.plain {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func (p *printer) banner(name string) {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, p.color("36;1", "  ┌───────────────────────────────────────────┐"))
	fmt.Fprintln(p.w, p.color("36;1", "  │")+"              demoplayer v0.1.0            "+p.color("36;1", "│"))
	fmt.Fprintln(p.w, p.color("36;1", "  └───────────────────────────────────────────┘"))
	fmt.Fprintln(p.w)
	fmt.Fprintf(p.w, "  %s %s\n\n", p.color("1", "demo:"), name)
}

func (p *printer) section(title string) {
	lineLen := 46 - utf8.RuneCountInString(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Fprintln(p.w, p.color("33", "  ── "+title+" "+strings.Repeat("─", lineLen)))
}

func (p *printer) stat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - utf8.RuneCountInString(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Fprintf(p.w, "  %s %s %s\n", label, p.color("90", strings.Repeat("·", dotsLen)), p.color("32", numStr))
}

func (p *printer) ok(msg string) {
	fmt.Fprintf(p.w, "  %s %s\n", p.color("32", "✓"), msg)
}

func (p *printer) ready(msg string) {
	fmt.Fprintf(p.w, "  %s %s\n", p.color("32", "▶"), msg)
}
