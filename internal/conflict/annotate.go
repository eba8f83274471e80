// Package conflict finds git conflict markers in diff lines or working-tree
// text and tags the lines of each region as ours, base or theirs.
package conflict

import (
	"strings"

	"hunkline/internal/diff"
)

const markerLen = 7

type scanState int

const (
	stateNormal scanState = iota
	stateOurs
	stateBase
	stateTheirs
)

// isMarker reports whether text is a conflict marker made of ch: exactly
// seven repetitions followed by a space or the end of the line.
func isMarker(text string, ch byte) bool {
	text = strings.TrimSuffix(text, "\r")
	if len(text) < markerLen {
		return false
	}
	for i := 0; i < markerLen; i++ {
		if text[i] != ch {
			return false
		}
	}
	return len(text) == markerLen || text[markerLen] == ' '
}

// classify runs the marker state machine over texts. Lines outside any
// region keep their base kind, and so do the lines of a region left open
// at the end of input. It returns the kinds and the number of complete
// regions.
func classify(texts []string, base []diff.Kind) ([]diff.Kind, int) {
	kinds := make([]diff.Kind, len(texts))
	copy(kinds, base)

	state := stateNormal
	start := -1
	found := 0
	for i, text := range texts {
		switch state {
		case stateNormal:
			if isMarker(text, '<') {
				state = stateOurs
				start = i
				kinds[i] = diff.KindConflictStart
			}
		case stateOurs:
			switch {
			case isMarker(text, '|'):
				state = stateBase
				kinds[i] = diff.KindConflictBaseMarker
			case isMarker(text, '='):
				state = stateTheirs
				kinds[i] = diff.KindConflictMiddle
			default:
				kinds[i] = diff.KindConflictOurs
			}
		case stateBase:
			if isMarker(text, '=') {
				state = stateTheirs
				kinds[i] = diff.KindConflictMiddle
			} else {
				kinds[i] = diff.KindConflictBase
			}
		case stateTheirs:
			if isMarker(text, '>') {
				state = stateNormal
				start = -1
				found++
				kinds[i] = diff.KindConflictEnd
			} else {
				kinds[i] = diff.KindConflictTheirs
			}
		}
	}
	if state != stateNormal && start >= 0 {
		copy(kinds[start:], base[start:])
	}
	return kinds, found
}

// Annotate tags conflict regions found in the hunk lines of fd. Marker text
// is read after the diff marker character, and a region may span hunks.
// The result is a copy; only line kinds and the file status change, so
// marker lines keep the line numbers their diff marker gave them. Only
// AnnotateText produces unnumbered markers.
func Annotate(fd diff.FileDiff) diff.FileDiff {
	out := fd.Clone()

	var texts []string
	var base []diff.Kind
	for _, h := range out.Hunks {
		for _, l := range h.Lines {
			texts = append(texts, l.Text())
			base = append(base, l.OriginKind())
		}
	}
	kinds, found := classify(texts, base)

	i := 0
	for hi := range out.Hunks {
		for li := range out.Hunks[hi].Lines {
			out.Hunks[hi].Lines[li].Kind = kinds[i]
			i++
		}
	}
	if found > 0 {
		out.Status = diff.StatusConflict
	}
	return out
}

// AnnotateText builds a synthetic single-hunk FileDiff from working-tree
// text. Context lines are numbered on both sides, region content on the new
// side only, and marker lines not at all.
func AnnotateText(path, text string) diff.FileDiff {
	texts := splitText(text)
	base := make([]diff.Kind, len(texts))
	for i := range base {
		base[i] = diff.KindUnchanged
	}
	kinds, found := classify(texts, base)

	lines := make([]diff.Line, len(texts))
	var oldCount, newCount int
	for i, raw := range texts {
		pos := i + 1
		l := diff.Line{RawText: raw, Kind: kinds[i]}
		switch {
		case kinds[i] == diff.KindUnchanged:
			l.OldLineNumber = intPtr(pos)
			l.NewLineNumber = intPtr(pos)
			oldCount++
			newCount++
		case !kinds[i].IsMarker():
			l.NewLineNumber = intPtr(pos)
			newCount++
		}
		lines[i] = l
	}

	start := 1
	if len(lines) == 0 {
		start = 0
	}
	oldStart, newStart := start, start
	if oldCount == 0 {
		oldStart = 0
	}
	hunk := diff.Hunk{
		Header:   diff.FormatHunkHeader(oldStart, oldCount, newStart, newCount, ""),
		OldStart: oldStart,
		OldCount: oldCount,
		NewStart: newStart,
		NewCount: newCount,
		Lines:    lines,
	}

	status := diff.StatusModified
	if found > 0 {
		status = diff.StatusConflict
	}
	return diff.FileDiff{
		FromPath: path,
		ToPath:   path,
		Status:   status,
		Hunks:    []diff.Hunk{hunk},
	}
}

// HasMarkers reports whether text contains at least one conflict start
// marker line.
func HasMarkers(text string) bool {
	for _, line := range splitText(text) {
		if isMarker(line, '<') {
			return true
		}
	}
	return false
}

func splitText(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func intPtr(n int) *int {
	return &n
}
