// Package output renders command results as styled text, plain text or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Format selects how results are rendered.
type Format string

const (
	FormatCLI   Format = "cli"
	FormatJSON  Format = "json"
	FormatPlain Format = "plain"
)

// ColorMode controls ANSI styling.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Formatter writes command output.
type Formatter struct {
	Writer    io.Writer
	Format    Format
	ColorMode ColorMode
}

// NewFormatter returns a formatter writing styled text to stdout.
func NewFormatter() *Formatter {
	return &Formatter{Writer: os.Stdout, Format: FormatCLI, ColorMode: ColorAuto}
}

// IsColorEnabled reports whether styling is on. In auto mode only terminals
// get color, and plain output never does.
func (f *Formatter) IsColorEnabled() bool {
	switch f.ColorMode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if f.Format == FormatPlain || f.Format == FormatJSON {
		return false
	}
	file, ok := f.Writer.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

func (f *Formatter) Print(a ...any) {
	fmt.Fprint(f.Writer, a...)
}

func (f *Formatter) Println(a ...any) {
	fmt.Fprintln(f.Writer, a...)
}

func (f *Formatter) Printf(format string, a ...any) {
	fmt.Fprintf(f.Writer, format, a...)
}

// JSON writes v as indented JSON.
func (f *Formatter) JSON(v any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintJSON is JSON under the name the commands use.
func (f *Formatter) PrintJSON(v any) error {
	return f.JSON(v)
}

// FormatDuration renders d to the second, e.g. "42s", "3m 5s", "1h 20m".
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h, m, s := int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	case m > 0 && s > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatG renders a g-force value with two decimals.
func FormatG(g float64) string {
	return fmt.Sprintf("%.2f g", g)
}

// FormatTime renders t in local time.
func FormatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
