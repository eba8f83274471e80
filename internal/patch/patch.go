// Package patch builds minimal single-file patches from parsed diffs so a
// hunk, or a few of its lines, can be staged or unstaged on their own.
package patch

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"hunkline/internal/diff"
)

// ErrNothingSelected is returned when a selection holds no added or removed
// lines.
var ErrNothingSelected = errors.New("no changed lines selected")

// ForHunk builds a patch that applies hunk hi of fd and nothing else.
func ForHunk(fd diff.FileDiff, hi int) (string, error) {
	h, err := hunkAt(fd, hi)
	if err != nil {
		return "", err
	}
	all := make([]int, len(h.Lines))
	for i := range all {
		all[i] = i
	}
	return ForLines(fd, hi, all, false)
}

// ForLines builds a patch from the selected line indexes of hunk hi.
//
// A forward patch applies against the pre-image: unselected added lines are
// dropped and unselected removed lines become context. With reverse set the
// patch is meant to be passed through Reverse and applied against the
// post-image, so unselected added lines become context and unselected
// removed lines are dropped instead.
func ForLines(fd diff.FileDiff, hi int, selected []int, reverse bool) (string, error) {
	h, err := hunkAt(fd, hi)
	if err != nil {
		return "", err
	}
	if fd.Binary {
		return "", fmt.Errorf("build patch for %s: binary files cannot be staged by line", fd.Path())
	}
	pick := make(map[int]bool, len(selected))
	for _, idx := range selected {
		if idx < 0 || idx >= len(h.Lines) {
			return "", fmt.Errorf("build patch for %s: line %d out of range", fd.Path(), idx)
		}
		pick[idx] = true
	}

	keep, demote := diff.KindAdded, diff.KindRemoved
	if reverse {
		keep, demote = diff.KindRemoved, diff.KindAdded
	}
	var body []diff.Line
	changed := 0
	for i, l := range h.Lines {
		switch k := l.OriginKind(); {
		case k == keep || k == demote:
			if pick[i] {
				changed++
				body = append(body, l)
			} else if k == demote {
				body = append(body, asContext(l))
			}
		default:
			body = append(body, asContext(l))
		}
	}
	if changed == 0 {
		return "", ErrNothingSelected
	}

	fd = partialStatus(fd, body)
	if reverse {
		oldCount, newCount := countLines(body)
		return renderHunks(fd, []hunkBody{{
			oldStart: singleHunkOldStart(h.NewStart, oldCount, newCount),
			newStart: h.NewStart,
			section:  h.Section,
			lines:    body,
		}}), nil
	}
	return render(fd, h.OldStart, h.Section, body), nil
}

// partialStatus turns an addition or deletion into a modification when the
// selected body leaves content on the side that should be empty.
func partialStatus(fd diff.FileDiff, body []diff.Line) diff.FileDiff {
	oldCount, newCount := countLines(body)
	if (fd.Status == diff.StatusAdded && oldCount > 0) || (fd.Status == diff.StatusDeleted && newCount > 0) {
		fd.Status = diff.StatusModified
		if fd.FromPath == "" {
			fd.FromPath = fd.ToPath
		}
		if fd.ToPath == "" {
			fd.ToPath = fd.FromPath
		}
	}
	return fd
}

// Reverse inverts a patch: paths, modes and line directions swap so that
// applying the result undoes the original.
func Reverse(patch string) string {
	var b strings.Builder
	for _, fd := range diff.Parse(patch) {
		rev := fd.Clone()
		rev.FromPath, rev.ToPath = fd.ToPath, fd.FromPath
		rev.OldMode, rev.NewMode = fd.NewMode, fd.OldMode
		switch fd.Status {
		case diff.StatusAdded:
			rev.Status = diff.StatusDeleted
		case diff.StatusDeleted:
			rev.Status = diff.StatusAdded
		}
		var hunks []hunkBody
		for _, h := range fd.Hunks {
			lines := make([]diff.Line, len(h.Lines))
			for i, l := range h.Lines {
				lines[i] = flip(l)
			}
			hunks = append(hunks, hunkBody{
				oldStart: h.NewStart,
				newStart: h.OldStart,
				section:  h.Section,
				lines:    lines,
			})
		}
		b.WriteString(renderHunks(rev, hunks))
	}
	return b.String()
}

// Check applies patch to original in memory and returns the result. It is a
// dry run for patches about to be handed to git.
func Check(patch string, original []byte) ([]byte, error) {
	files, _, err := gitdiff.Parse(strings.NewReader(patch))
	if err != nil {
		return nil, fmt.Errorf("parse patch: %w", err)
	}
	if len(files) != 1 {
		return nil, fmt.Errorf("check patch: expected 1 file, got %d", len(files))
	}
	var out bytes.Buffer
	if err := gitdiff.Apply(&out, bytes.NewReader(original), files[0]); err != nil {
		return nil, fmt.Errorf("apply patch to %s: %w", files[0].NewName, err)
	}
	return out.Bytes(), nil
}

func hunkAt(fd diff.FileDiff, hi int) (diff.Hunk, error) {
	if hi < 0 || hi >= len(fd.Hunks) {
		return diff.Hunk{}, fmt.Errorf("build patch for %s: hunk %d out of range (%d hunks)", fd.Path(), hi, len(fd.Hunks))
	}
	return fd.Hunks[hi], nil
}

func asContext(l diff.Line) diff.Line {
	return diff.Line{RawText: " " + l.Text(), Kind: diff.KindUnchanged, Meta: l.Meta, Origin: ' '}
}

func flip(l diff.Line) diff.Line {
	text := l.Text()
	switch l.OriginKind() {
	case diff.KindAdded:
		return diff.Line{RawText: "-" + text, Kind: diff.KindRemoved, Meta: l.Meta, Origin: '-'}
	case diff.KindRemoved:
		return diff.Line{RawText: "+" + text, Kind: diff.KindAdded, Meta: l.Meta, Origin: '+'}
	default:
		return asContext(l)
	}
}

type hunkBody struct {
	oldStart int
	newStart int
	section  string
	lines    []diff.Line
}

// render emits one file header and a single hunk starting at oldStart.
func render(fd diff.FileDiff, oldStart int, section string, lines []diff.Line) string {
	return renderHunks(fd, []hunkBody{{oldStart: oldStart, newStart: -1, section: section, lines: lines}})
}

func renderHunks(fd diff.FileDiff, hunks []hunkBody) string {
	var b strings.Builder
	from, to := fd.FromPath, fd.ToPath
	if from == "" {
		from = to
	}
	if to == "" {
		to = from
	}
	fmt.Fprintf(&b, "diff --git %s %s\n", diff.QuotePath("a/"+from), diff.QuotePath("b/"+to))
	switch fd.Status {
	case diff.StatusAdded:
		fmt.Fprintf(&b, "new file mode %s\n", modeOr(fd.NewMode))
	case diff.StatusDeleted:
		fmt.Fprintf(&b, "deleted file mode %s\n", modeOr(fd.OldMode))
	default:
		if fd.OldMode != "" && fd.NewMode != "" && fd.OldMode != fd.NewMode {
			fmt.Fprintf(&b, "old mode %s\nnew mode %s\n", fd.OldMode, fd.NewMode)
		}
	}
	if len(hunks) == 0 {
		return b.String()
	}

	minus, plus := diff.QuotePath("a/"+from), diff.QuotePath("b/"+to)
	if fd.Status == diff.StatusAdded {
		minus = "/dev/null"
	}
	if fd.Status == diff.StatusDeleted {
		plus = "/dev/null"
	}
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", minus, plus)

	for _, h := range hunks {
		oldCount, newCount := countLines(h.lines)
		newStart := h.newStart
		if newStart < 0 {
			newStart = singleHunkNewStart(h.oldStart, oldCount, newCount)
		}
		b.WriteString(diff.FormatHunkHeader(h.oldStart, oldCount, newStart, newCount, h.section))
		b.WriteByte('\n')
		for _, l := range h.lines {
			b.WriteString(l.RawText)
			b.WriteByte('\n')
			if l.Meta != "" {
				b.WriteString(l.Meta)
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}

func countLines(lines []diff.Line) (oldCount, newCount int) {
	for _, l := range lines {
		switch l.OriginKind() {
		case diff.KindAdded:
			newCount++
		case diff.KindRemoved:
			oldCount++
		default:
			oldCount++
			newCount++
		}
	}
	return oldCount, newCount
}

// singleHunkOldStart is the inverse of singleHunkNewStart.
func singleHunkOldStart(newStart, oldCount, newCount int) int {
	switch {
	case newCount == 0:
		return newStart + 1
	case oldCount == 0:
		return newStart - 1
	default:
		return newStart
	}
}

// singleHunkNewStart positions the post-image of a hunk that is the only
// change in its patch.
func singleHunkNewStart(oldStart, oldCount, newCount int) int {
	switch {
	case oldCount == 0:
		return oldStart + 1
	case newCount == 0:
		return oldStart - 1
	default:
		return oldStart
	}
}

func modeOr(mode string) string {
	if mode == "" {
		return "100644"
	}
	return mode
}
