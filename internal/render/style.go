// Package render turns parsed diffs into terminal text.
package render

import (
	"github.com/charmbracelet/lipgloss"

	"hunkline/internal/diff"
)

var (
	addedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	removedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	hunkStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("37"))
	markerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	oursStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	baseStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	theirsStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	gutterStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	plainStyle     = lipgloss.NewStyle()
	commentStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
	statAddStyle   = addedStyle
	statDelStyle   = removedStyle
	statusStyleFor = map[diff.Status]lipgloss.Style{
		diff.StatusAdded:    addedStyle,
		diff.StatusDeleted:  removedStyle,
		diff.StatusRenamed:  hunkStyle,
		diff.StatusCopied:   hunkStyle,
		diff.StatusConflict: markerStyle,
	}
)

// StyleFor returns the style used for lines of kind k.
func StyleFor(k diff.Kind) lipgloss.Style {
	switch k {
	case diff.KindAdded:
		return addedStyle
	case diff.KindRemoved:
		return removedStyle
	case diff.KindHeader:
		return headerStyle
	case diff.KindConflictStart, diff.KindConflictBaseMarker, diff.KindConflictMiddle, diff.KindConflictEnd:
		return markerStyle
	case diff.KindConflictOurs:
		return oursStyle
	case diff.KindConflictBase:
		return baseStyle
	case diff.KindConflictTheirs:
		return theirsStyle
	default:
		return plainStyle
	}
}

// HunkStyle styles @@ headers.
func HunkStyle() lipgloss.Style { return hunkStyle }

// GutterStyle styles line numbers and other secondary text.
func GutterStyle() lipgloss.Style { return gutterStyle }

// StatusStyle styles a file status label.
func StatusStyle(s diff.Status) lipgloss.Style {
	if st, ok := statusStyleFor[s]; ok {
		return st
	}
	return plainStyle
}
