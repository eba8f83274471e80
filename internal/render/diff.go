package render

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"hunkline/internal/diff"
)

// Options controls how diffs are written.
type Options struct {
	// Color enables lipgloss styling. Without it output is plain text.
	Color bool
	// Highlight colours line contents by language; it needs Color.
	Highlight bool
	Style     string
	TabWidth  int
	// Width truncates each line to this many columns; 0 means no limit.
	Width int
	// LineNumbers prefixes each line with its old and new numbers.
	LineNumbers bool
}

func (o Options) style(st interface{ Render(...string) string }, s string) string {
	if !o.Color {
		return s
	}
	return st.Render(s)
}

// WriteFiles writes every file of a parsed diff.
func WriteFiles(w io.Writer, files []diff.FileDiff, opts Options) error {
	for _, fd := range files {
		if err := WriteFile(w, fd, opts); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes one file: its header lines, then each hunk header and
// body.
func WriteFile(w io.Writer, fd diff.FileDiff, opts Options) error {
	var hl *Highlighter
	if opts.Color && opts.Highlight {
		hl = NewHighlighter(fd.Path(), opts.Style)
	}
	var b strings.Builder
	for _, l := range fd.Header {
		b.WriteString(opts.style(headerStyle, Truncate(l.RawText, opts.Width)))
		b.WriteByte('\n')
	}
	if fd.Binary && len(fd.Hunks) == 0 {
		b.WriteString(opts.style(gutterStyle, "(binary file)"))
		b.WriteByte('\n')
	}
	for _, h := range fd.Hunks {
		if h.Header != "" {
			b.WriteString(opts.style(hunkStyle, Truncate(h.Header, opts.Width)))
			b.WriteByte('\n')
		}
		for _, l := range h.Lines {
			b.WriteString(formatLine(l, hl, opts))
			b.WriteByte('\n')
			if l.Meta != "" {
				b.WriteString(opts.style(gutterStyle, l.Meta))
				b.WriteByte('\n')
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// FormatLine renders a single line the way WriteFile does, without
// syntax highlighting.
func FormatLine(l diff.Line, opts Options) string {
	return formatLine(l, nil, opts)
}

func formatLine(l diff.Line, hl *Highlighter, opts Options) string {
	var gutter string
	width := opts.Width
	if opts.LineNumbers {
		gutter = lineNumber(l.OldLineNumber) + " " + lineNumber(l.NewLineNumber) + " "
		if width > 0 {
			width -= len(gutter)
			if width < 1 {
				width = 1
			}
		}
		gutter = opts.style(gutterStyle, gutter)
	}

	prefix := ""
	if l.Origin != 0 {
		prefix = string(l.Origin)
	}
	text := Truncate(prefix+ExpandTabs(l.Text(), opts.TabWidth), width)

	if hl != nil && highlightable(l.Kind) {
		body := strings.TrimPrefix(text, prefix)
		return gutter + opts.style(StyleFor(l.Kind), prefix) + hl.Line(body)
	}
	return gutter + opts.style(StyleFor(l.Kind), text)
}

func highlightable(k diff.Kind) bool {
	switch k {
	case diff.KindAdded, diff.KindRemoved, diff.KindUnchanged,
		diff.KindConflictOurs, diff.KindConflictBase, diff.KindConflictTheirs:
		return true
	default:
		return false
	}
}

func lineNumber(n *int) string {
	if n == nil {
		return strings.Repeat(" ", 5)
	}
	return fmt.Sprintf("%5d", *n)
}

// WriteStat writes a diffstat: one row per file and a summary line.
func WriteStat(w io.Writer, files []diff.FileDiff, opts Options) error {
	nameWidth := 0
	for _, fd := range files {
		if n := len(fd.Path()); n > nameWidth {
			nameWidth = n
		}
	}
	if opts.Width > 0 && nameWidth > opts.Width/2 {
		nameWidth = opts.Width / 2
	}

	var b strings.Builder
	var added, removed int
	for _, fd := range files {
		st := fd.LineStats()
		added += st.Added
		removed += st.Removed
		name := PadRight(Truncate(fd.Path(), nameWidth), nameWidth)
		fmt.Fprintf(&b, " %s | %s %s %s\n", name,
			opts.style(StatusStyle(fd.Status), PadRight(string(fd.Status), 8)),
			opts.style(statAddStyle, "+"+strconv.Itoa(st.Added)),
			opts.style(statDelStyle, "-"+strconv.Itoa(st.Removed)))
	}
	fmt.Fprintf(&b, " %d %s changed, %d insertions(+), %d deletions(-)\n",
		len(files), plural(len(files), "file", "files"), added, removed)
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteNames writes one path per line, prefixed by a status letter.
func WriteNames(w io.Writer, files []diff.FileDiff, opts Options) error {
	var b strings.Builder
	for _, fd := range files {
		letter := "M"
		switch fd.Status {
		case diff.StatusConflict:
			letter = "U"
		case diff.StatusAdded, diff.StatusDeleted, diff.StatusRenamed, diff.StatusCopied:
			letter = strings.ToUpper(string(fd.Status)[:1])
		}
		b.WriteString(opts.style(StatusStyle(fd.Status), letter))
		b.WriteByte(' ')
		if fd.Status == diff.StatusRenamed || fd.Status == diff.StatusCopied {
			b.WriteString(fd.FromPath + " -> ")
		}
		b.WriteString(fd.Path())
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Filter keeps files whose path fuzzily matches query, best matches first.
// An empty query keeps everything in input order.
func Filter(files []diff.FileDiff, query string) []diff.FileDiff {
	query = strings.TrimSpace(query)
	if query == "" {
		return files
	}
	paths := make([]string, len(files))
	for i, fd := range files {
		paths[i] = fd.Path()
	}
	ranks := fuzzy.RankFindFold(query, paths)
	sort.Stable(ranks)
	out := make([]diff.FileDiff, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, files[r.OriginalIndex])
	}
	return out
}

// Comment formats a comment annotation line shown under the line it is
// attached to.
func Comment(id, body string, opts Options) string {
	first, _, _ := strings.Cut(strings.TrimSpace(body), "\n")
	return opts.style(commentStyle, Truncate("    # "+id+": "+first, opts.Width))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
