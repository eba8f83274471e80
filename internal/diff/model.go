// Package diff parses unified diff text into files, hunks and numbered lines.
package diff

import (
	"fmt"
	"strings"
)

// Kind classifies a single line of diff or file text.
type Kind int

const (
	KindHeader Kind = iota
	KindAdded
	KindRemoved
	KindUnchanged
	KindConflictStart
	KindConflictOurs
	KindConflictBaseMarker
	KindConflictBase
	KindConflictMiddle
	KindConflictTheirs
	KindConflictEnd
)

var kindNames = map[Kind]string{
	KindHeader:             "header",
	KindAdded:              "added",
	KindRemoved:            "removed",
	KindUnchanged:          "unchanged",
	KindConflictStart:      "conflictStart",
	KindConflictOurs:       "conflictOurs",
	KindConflictBaseMarker: "conflictBaseMarker",
	KindConflictBase:       "conflictBase",
	KindConflictMiddle:     "conflictMiddle",
	KindConflictTheirs:     "conflictTheirs",
	KindConflictEnd:        "conflictEnd",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes the kind by name so JSON output stays readable.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown line kind %q", string(text))
}

// IsConflict reports whether the kind belongs to a conflict region,
// markers included.
func (k Kind) IsConflict() bool {
	return k >= KindConflictStart && k <= KindConflictEnd
}

// IsMarker reports whether the kind tags a conflict marker line.
func (k Kind) IsMarker() bool {
	switch k {
	case KindConflictStart, KindConflictBaseMarker, KindConflictMiddle, KindConflictEnd:
		return true
	default:
		return false
	}
}

// Side selects the old (pre-image) or new (post-image) numbering of a diff.
type Side int

const (
	SideOld Side = iota
	SideNew
)

func (s Side) String() string {
	if s == SideOld {
		return "old"
	}
	return "new"
}

// ParseSide maps "old"/"new" (and the -/+ shorthands) to a Side.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "old", "-", "left":
		return SideOld, nil
	case "new", "+", "right":
		return SideNew, nil
	default:
		return SideNew, fmt.Errorf("unknown side %q (must be old or new)", s)
	}
}

// Line is one row of diff or file text.
//
// Added lines carry only NewLineNumber, removed lines only OldLineNumber,
// unchanged lines both. Header lines carry neither, and neither do marker
// lines from AnnotateText. Marker lines tagged inside a diff keep the
// numbers their diff marker gave them.
type Line struct {
	RawText       string `json:"rawText"`
	Kind          Kind   `json:"kind"`
	OldLineNumber *int   `json:"oldLineNumber,omitempty"`
	NewLineNumber *int   `json:"newLineNumber,omitempty"`
	// Meta holds a trailing "\ No newline at end of file" line attached
	// to this line.
	Meta string `json:"meta,omitempty"`
	// Origin is the diff marker character the line was read with, or 0 for
	// lines taken from plain file text.
	Origin byte `json:"-"`
	// Unterminated marks the final line of input (or its Meta line) when
	// the input did not end with a newline.
	Unterminated bool `json:"unterminated,omitempty"`
}

// Text returns the line content without its diff marker character.
func (l Line) Text() string {
	if l.Origin != 0 && len(l.RawText) > 0 && l.RawText[0] == l.Origin {
		return l.RawText[1:]
	}
	return l.RawText
}

// NoNewlineAtEOF reports whether the line is the last one of its file
// and has no terminating newline.
func (l Line) NoNewlineAtEOF() bool {
	return l.Meta != ""
}

// Number returns the line number on the given side.
func (l Line) Number(side Side) (int, bool) {
	p := l.NewLineNumber
	if side == SideOld {
		p = l.OldLineNumber
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// OriginKind returns the kind implied by the diff marker character alone.
func (l Line) OriginKind() Kind {
	switch l.Origin {
	case '+':
		return KindAdded
	case '-':
		return KindRemoved
	default:
		return KindUnchanged
	}
}

// Hunk is a contiguous change region introduced by an @@ header.
type Hunk struct {
	Header   string `json:"header"`
	OldStart int    `json:"oldStart"`
	OldCount int    `json:"oldCount"`
	NewStart int    `json:"newStart"`
	NewCount int    `json:"newCount"`
	// Section is the function context git prints after the closing @@.
	Section string `json:"section,omitempty"`
	Lines   []Line `json:"lines"`
}

// Contains reports whether line n falls inside the hunk's declared range
// on the given side.
func (h Hunk) Contains(side Side, n int) bool {
	start, count := h.NewStart, h.NewCount
	if side == SideOld {
		start, count = h.OldStart, h.OldCount
	}
	return count > 0 && n >= start && n < start+count
}

// Status describes what happened to a file.
type Status string

const (
	StatusAdded    Status = "added"
	StatusModified Status = "modified"
	StatusDeleted  Status = "deleted"
	StatusRenamed  Status = "renamed"
	StatusCopied   Status = "copied"
	StatusConflict Status = "conflict"
)

// LineStats counts added and removed lines of a file.
type LineStats struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// FileDiff holds the changes to one file.
//
// FromPath is empty for added files and ToPath is empty for deleted files.
type FileDiff struct {
	FromPath string `json:"fromPath"`
	ToPath   string `json:"toPath"`
	Status   Status `json:"status"`
	// Binary marks files git reported as binary; they never have hunks.
	Binary  bool   `json:"binary,omitempty"`
	OldMode string `json:"oldMode,omitempty"`
	NewMode string `json:"newMode,omitempty"`
	// Header keeps the extended header lines (diff --git, index, ---/+++)
	// in input order, all tagged KindHeader.
	Header []Line `json:"header,omitempty"`
	Hunks  []Hunk `json:"hunks"`
}

// Path returns the path a consumer should display for the file.
func (fd FileDiff) Path() string {
	if fd.ToPath != "" {
		return fd.ToPath
	}
	return fd.FromPath
}

// LineStats sums added and removed lines across all hunks.
func (fd FileDiff) LineStats() LineStats {
	var st LineStats
	for _, h := range fd.Hunks {
		for _, l := range h.Lines {
			switch l.Kind {
			case KindAdded:
				st.Added++
			case KindRemoved:
				st.Removed++
			}
		}
	}
	return st
}

// Lines returns every hunk line of the file in order.
func (fd FileDiff) Lines() []Line {
	n := 0
	for _, h := range fd.Hunks {
		n += len(h.Lines)
	}
	out := make([]Line, 0, n)
	for _, h := range fd.Hunks {
		out = append(out, h.Lines...)
	}
	return out
}

// Clone returns a deep copy whose hunks and lines can be modified freely.
func (fd FileDiff) Clone() FileDiff {
	out := fd
	if fd.Header != nil {
		out.Header = append([]Line(nil), fd.Header...)
	}
	if fd.Hunks != nil {
		out.Hunks = make([]Hunk, len(fd.Hunks))
		for i, h := range fd.Hunks {
			h.Lines = append([]Line(nil), h.Lines...)
			out.Hunks[i] = h
		}
	}
	return out
}

func intPtr(n int) *int {
	return &n
}
