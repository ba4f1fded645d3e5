// Package output renders the human-readable output of one-shot commands
// (sync, status, init, backup). Machine consumers use the --json flags
// instead and never go through here.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Icons prefixing result lines.
const (
	iconOK   = "✅"
	iconWarn = "⚠️ "
	iconFail = "❌"
)

// fieldWidth is the column where Field values start, wide enough for
// the longest status label.
const fieldWidth = 22

// Writer renders aligned, icon-prefixed command output.
type Writer struct {
	out io.Writer
}

// New creates a Writer. Write errors are swallowed; this is console
// output.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Status prints msg prefixed by icon, or indented in the icon column
// when icon is empty.
func (w *Writer) Status(icon, msg string) {
	if icon == "" {
		icon = "  "
	}
	_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
}

// Statusf is Status with a format string.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints msg as a completed step.
func (w *Writer) Success(msg string) {
	w.Status(iconOK, msg)
}

// Successf is Success with a format string.
func (w *Writer) Successf(format string, args ...any) {
	w.Status(iconOK, fmt.Sprintf(format, args...))
}

// Warning prints msg as a non-fatal problem.
func (w *Writer) Warning(msg string) {
	w.Status(iconWarn, msg)
}

// Warningf is Warning with a format string.
func (w *Writer) Warningf(format string, args ...any) {
	w.Status(iconWarn, fmt.Sprintf(format, args...))
}

// Error prints msg as a failure.
func (w *Writer) Error(msg string) {
	w.Status(iconFail, msg)
}

// Errorf is Error with a format string.
func (w *Writer) Errorf(format string, args ...any) {
	w.Status(iconFail, fmt.Sprintf(format, args...))
}

// Field prints one aligned "label: value" row of a status listing.
func (w *Writer) Field(label, value string) {
	label += ":"
	pad := fieldWidth - len(label)
	if pad < 1 {
		pad = 1
	}
	_, _ = fmt.Fprintf(w.out, "  %s%s%s\n", label, strings.Repeat(" ", pad), value)
}

// Fieldf is Field with a format string for the value.
func (w *Writer) Fieldf(label, format string, args ...any) {
	w.Field(label, fmt.Sprintf(format, args...))
}

// Code prints content as an indented block with blank lines around it.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintf(w.out, "\n  %s\n\n", strings.ReplaceAll(content, "\n", "\n  "))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}
