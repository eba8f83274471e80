package conflict

import (
	"strings"

	"hunkline/internal/diff"
)

// Position addresses a line inside a FileDiff.
type Position struct {
	Hunk int `json:"hunk"`
	Line int `json:"line"`
}

// Region is one conflict between a conflictStart and its conflictEnd line.
//
// StartLine and EndLine are 1-based offsets into the file's flattened line
// sequence, markers included. For AnnotateText results they are file line
// numbers.
type Region struct {
	Index       int         `json:"index"`
	Start       Position    `json:"start"`
	End         Position    `json:"end"`
	StartLine   int         `json:"startLine"`
	EndLine     int         `json:"endLine"`
	OursLabel   string      `json:"oursLabel,omitempty"`
	BaseLabel   string      `json:"baseLabel,omitempty"`
	TheirsLabel string      `json:"theirsLabel,omitempty"`
	Ours        []diff.Line `json:"ours"`
	Base        []diff.Line `json:"base,omitempty"`
	Theirs      []diff.Line `json:"theirs"`
}

// Regions derives the conflict regions of an annotated FileDiff from its
// line kinds.
func Regions(fd diff.FileDiff) []Region {
	var regions []Region
	var cur *Region
	pos := 0
	for hi, h := range fd.Hunks {
		for li, l := range h.Lines {
			pos++
			switch l.Kind {
			case diff.KindConflictStart:
				cur = &Region{
					Index:     len(regions),
					Start:     Position{Hunk: hi, Line: li},
					StartLine: pos,
					OursLabel: markerLabel(l.Text()),
				}
			case diff.KindConflictOurs:
				if cur != nil {
					cur.Ours = append(cur.Ours, l)
				}
			case diff.KindConflictBaseMarker:
				if cur != nil {
					cur.BaseLabel = markerLabel(l.Text())
				}
			case diff.KindConflictBase:
				if cur != nil {
					cur.Base = append(cur.Base, l)
				}
			case diff.KindConflictTheirs:
				if cur != nil {
					cur.Theirs = append(cur.Theirs, l)
				}
			case diff.KindConflictEnd:
				if cur != nil {
					cur.End = Position{Hunk: hi, Line: li}
					cur.EndLine = pos
					cur.TheirsLabel = markerLabel(l.Text())
					regions = append(regions, *cur)
					cur = nil
				}
			}
		}
	}
	return regions
}

// CountLines counts the lines covered by regions, marker lines included.
func CountLines(regions []Region) int {
	count := 0
	for _, r := range regions {
		if r.StartLine <= 0 || r.EndLine < r.StartLine {
			continue
		}
		count += r.EndLine - r.StartLine + 1
	}
	return count
}

func markerLabel(text string) string {
	text = strings.TrimSuffix(text, "\r")
	if len(text) <= markerLen {
		return ""
	}
	return strings.TrimSpace(text[markerLen:])
}
