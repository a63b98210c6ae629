package output

import (
	"io"
	"os"

	"golang.org/x/term"
)

// ANSI color codes
const (
	colorReset = "\033[0m"
	colorGreen = "\033[32m"
	colorGray  = "\033[90m"
	colorBold  = "\033[1m"
)

// ColorMode determines when to use colored output.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // Auto-detect based on TTY and NO_COLOR
	ColorAlways                  // Always use colors
	ColorNever                   // Never use colors
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// shouldColorize determines if output should be colorized based on mode,
// the NO_COLOR convention and TTY detection.
func shouldColorize(mode ColorMode, w io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	case ColorAuto:
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return false
		}
		if f, ok := w.(*os.File); ok {
			return isTerminal(f)
		}
		return false
	}
	return false
}

// colorizeLabel dims a statistics label.
func colorizeLabel(label string) string {
	return colorGray + label + colorReset
}

// colorizeRatio highlights the reduction ratio: green when tokens were
// saved, bold otherwise.
func colorizeRatio(ratio float64, text string) string {
	if ratio > 0 {
		return colorGreen + text + colorReset
	}
	return colorBold + text + colorReset
}
