package diff

import "strings"

// HunkAt returns the index of the hunk whose declared range covers line n.
func (fd FileDiff) HunkAt(side Side, n int) (int, bool) {
	for i, h := range fd.Hunks {
		if h.Contains(side, n) {
			return i, true
		}
	}
	return 0, false
}

// LineAt locates the line numbered n on the given side.
func (fd FileDiff) LineAt(side Side, n int) (hunk, line int, ok bool) {
	for hi, h := range fd.Hunks {
		for li, l := range h.Lines {
			if got, has := l.Number(side); has && got == n {
				return hi, li, true
			}
		}
	}
	return 0, 0, false
}

// SplitSegments cuts diff text at every "diff --git" line. Parsing each
// segment separately yields the same files as parsing the whole text.
func SplitSegments(raw string) []string {
	if raw == "" {
		return nil
	}
	var segments []string
	start := 0
	pos := 0
	for pos < len(raw) {
		end := strings.IndexByte(raw[pos:], '\n')
		next := len(raw)
		if end >= 0 {
			next = pos + end + 1
		}
		if pos > start && strings.HasPrefix(raw[pos:], "diff --git ") {
			segments = append(segments, raw[start:pos])
			start = pos
		}
		pos = next
	}
	if start < len(raw) {
		segments = append(segments, raw[start:])
	}
	return segments
}
