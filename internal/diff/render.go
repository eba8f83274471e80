package diff

import (
	"errors"
	"fmt"
	"strings"
)

// Body joins the raw text of the hunk's lines, each newline-terminated,
// re-emitting any attached "\ No newline" metadata lines.
func (h Hunk) Body() string {
	var b strings.Builder
	for _, l := range h.Lines {
		b.WriteString(l.RawText)
		if l.Meta == "" {
			writeEOL(&b, l)
			continue
		}
		b.WriteByte('\n')
		b.WriteString(l.Meta)
		writeEOL(&b, l)
	}
	return b.String()
}

// RawText reconstructs the hunk including its @@ header.
func (h Hunk) RawText() string {
	return h.Header + "\n" + h.Body()
}

// Render reconstructs the file segment: extended headers, then every hunk.
func (fd FileDiff) Render() string {
	var b strings.Builder
	for _, l := range fd.Header {
		b.WriteString(l.RawText)
		writeEOL(&b, l)
	}
	for _, h := range fd.Hunks {
		b.WriteString(h.RawText())
	}
	return b.String()
}

func writeEOL(b *strings.Builder, l Line) {
	if !l.Unterminated {
		b.WriteByte('\n')
	}
}

// CountMismatchError reports a hunk whose body disagrees with its header.
type CountMismatchError struct {
	Header   string
	Side     Side
	Declared int
	Actual   int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("hunk %q: %s side declares %d lines, body has %d", e.Header, e.Side, e.Declared, e.Actual)
}

// Verify checks the header counts against the numbered lines of the body.
// Parse tolerates mismatches; callers that care can surface them.
func (h Hunk) Verify() error {
	var oldN, newN int
	for _, l := range h.Lines {
		if l.OldLineNumber != nil {
			oldN++
		}
		if l.NewLineNumber != nil {
			newN++
		}
	}
	var errs []error
	if oldN != h.OldCount {
		errs = append(errs, &CountMismatchError{Header: h.Header, Side: SideOld, Declared: h.OldCount, Actual: oldN})
	}
	if newN != h.NewCount {
		errs = append(errs, &CountMismatchError{Header: h.Header, Side: SideNew, Declared: h.NewCount, Actual: newN})
	}
	return errors.Join(errs...)
}

// FormatHunkHeader builds an @@ header, omitting counts of 1 the way git does.
func FormatHunkHeader(oldStart, oldCount, newStart, newCount int, section string) string {
	h := fmt.Sprintf("@@ -%s +%s @@", formatRange(oldStart, oldCount), formatRange(newStart, newCount))
	if section != "" {
		h += " " + section
	}
	return h
}

func formatRange(start, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}
