package render

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// ExpandTabs replaces tabs with spaces up to the next multiple of width,
// counting display columns rather than bytes.
func ExpandTabs(s string, width int) string {
	if width <= 0 || !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			n := width - col%width
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col += runewidth.RuneWidth(r)
	}
	return b.String()
}

// Truncate shortens s to at most width display columns, ending with an
// ellipsis when anything was cut. A width <= 0 disables truncation.
func Truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// PadRight pads s with spaces to width display columns.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}
