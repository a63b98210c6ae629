// Package output renders optimization results. A result is printed in one of
// three mutually exclusive modes: normal (text then statistics), quiet (text
// only, safe for shell substitution) and stats-only.
package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/bimmerbailey/tokenoptimizer/internal/api"
)

// Mode selects what Render prints.
type Mode int

const (
	ModeNormal Mode = iota
	ModeQuiet
	ModeStatsOnly
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeQuiet:
		return "quiet"
	case ModeStatsOnly:
		return "stats-only"
	default:
		return "normal"
	}
}

// ResolveMode maps the -q/-s flags to a Mode. Stats-only wins when both are
// set.
func ResolveMode(quiet, statsOnly bool) Mode {
	switch {
	case statsOnly:
		return ModeStatsOnly
	case quiet:
		return ModeQuiet
	default:
		return ModeNormal
	}
}

// Writer handles writing rendered results.
type Writer struct {
	w     io.Writer
	color ColorMode
}

// New creates a new output Writer.
func New(w io.Writer, color ColorMode) *Writer {
	return &Writer{w: w, color: color}
}

// Render writes res according to mode.
func (wr *Writer) Render(res *api.Result, mode Mode) error {
	switch mode {
	case ModeQuiet:
		return wr.writeText(res.OptimizedText)
	case ModeStatsOnly:
		return wr.writeStats(res)
	default:
		if err := wr.writeText(res.OptimizedText); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(wr.w); err != nil {
			return err
		}
		return wr.writeStats(res)
	}
}

// writeText prints the text followed by exactly one newline.
func (wr *Writer) writeText(text string) error {
	if strings.HasSuffix(text, "\n") {
		_, err := io.WriteString(wr.w, text)
		return err
	}
	_, err := fmt.Fprintln(wr.w, text)
	return err
}

func (wr *Writer) writeStats(res *api.Result) error {
	colorize := shouldColorize(wr.color, wr.w)
	label := func(s string) string {
		if colorize {
			return colorizeLabel(s)
		}
		return s
	}

	ratio := res.ReductionRatio()
	ratioText := fmt.Sprintf("%.2f (%.1f%%)", ratio, ratio*100)
	if colorize {
		ratioText = colorizeRatio(ratio, ratioText)
	}

	tw := tabwriter.NewWriter(wr.w, 0, 4, 1, ' ', 0)
	fmt.Fprintf(tw, "%s\t%d\n", label("Original tokens:"), res.OriginalTokenCount)
	fmt.Fprintf(tw, "%s\t%d\n", label("Optimized tokens:"), res.OptimizedTokenCount)
	fmt.Fprintf(tw, "%s\t%d\n", label("Tokens saved:"), res.TokensSaved())
	fmt.Fprintf(tw, "%s\t%s\n", label("Reduction ratio:"), ratioText)
	if res.CompressionTime > 0 {
		fmt.Fprintf(tw, "%s\t%.2fs\n", label("Compression time:"), res.CompressionTime.Seconds())
	}

	return tw.Flush()
}
