package diff

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	hunkHeaderRe  = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@(.*)$`)
	looseOldRange = regexp.MustCompile(`-(\d+)(?:,(\d+))?`)
	looseNewRange = regexp.MustCompile(`\+(\d+)(?:,(\d+))?`)
)

const devNull = "/dev/null"

// Parse converts unified diff text into file diffs in input order.
//
// Parse never fails: lines it cannot place are skipped and parsing resumes
// at the next file or hunk header. Empty input yields an empty result.
func Parse(raw string) []FileDiff {
	p := &parser{}
	lines := splitLines(raw)
	for i := 0; i < len(lines); i++ {
		i += p.feed(lines, i)
	}
	p.flushFile()
	if len(lines) > 0 && !strings.HasSuffix(raw, "\n") {
		markUnterminated(p.files, lines[len(lines)-1])
	}
	return p.files
}

// markUnterminated flags the line that held the final, newline-less input
// line so rendering reproduces the input exactly. Skipped input is left
// alone.
func markUnterminated(files []FileDiff, last string) {
	if len(files) == 0 {
		return
	}
	fd := &files[len(files)-1]
	var l *Line
	switch {
	case len(fd.Hunks) > 0:
		h := &fd.Hunks[len(fd.Hunks)-1]
		if len(h.Lines) == 0 {
			return
		}
		l = &h.Lines[len(h.Lines)-1]
	case len(fd.Header) > 0:
		l = &fd.Header[len(fd.Header)-1]
	default:
		return
	}
	if (l.Meta == "" && l.RawText == last) || (l.Meta != "" && l.Meta == last) {
		l.Unterminated = true
	}
}

// splitLines splits on \n without producing a trailing empty element for
// newline-terminated input.
func splitLines(raw string) []string {
	if raw == "" {
		return nil
	}
	raw = strings.TrimSuffix(raw, "\n")
	return strings.Split(raw, "\n")
}

type fileFlags struct {
	added     bool
	deleted   bool
	renamed   bool
	copied    bool
	sawMinus  bool
	sawPlus   bool
	fromGit   bool
	headerEnd bool
}

type parser struct {
	files []FileDiff
	file  *FileDiff
	flags fileFlags

	hunk    *Hunk
	lenient bool
	remOld  int
	remNew  int
	oldNext int
	newNext int
}

// feed consumes lines[i] (and possibly following lines) and returns how many
// extra lines beyond lines[i] were consumed.
func (p *parser) feed(lines []string, i int) int {
	raw := lines[i]
	line := strings.TrimSuffix(raw, "\r")

	if p.inBody(lines, i) {
		p.bodyLine(raw, line)
		return 0
	}
	if p.hunk != nil && p.exhausted() && line != `\` && !strings.HasPrefix(line, `\ `) {
		p.closeHunk()
	}

	switch {
	case strings.HasPrefix(line, "diff --git "):
		p.startFile(true)
		p.header(raw)
		from, to := parseGitHeaderPaths(strings.TrimPrefix(line, "diff --git "))
		p.file.FromPath, p.file.ToPath = from, to
		return 0
	case strings.HasPrefix(line, "--- ") && i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ "):
		if p.file == nil || !p.flags.fromGit || p.flags.sawMinus || p.hunk != nil || len(p.file.Hunks) > 0 {
			p.startFile(false)
		}
		p.closeHunk()
		p.header(raw)
		p.header(lines[i+1])
		p.minusLine(strings.TrimPrefix(line, "--- "))
		p.plusLine(strings.TrimPrefix(strings.TrimSuffix(lines[i+1], "\r"), "+++ "))
		return 1
	case strings.HasPrefix(line, "@@"):
		if p.file == nil {
			p.startFile(false)
		}
		p.startHunk(raw, line)
		return 0
	case line == `\` || strings.HasPrefix(line, `\ `):
		p.attachMeta(raw)
		return 0
	}

	if p.file == nil {
		return 0
	}
	if p.hunk == nil && len(p.file.Hunks) == 0 {
		p.extendedHeader(raw, line)
	}
	return 0
}

// inBody reports whether lines[i] belongs to the current hunk body.
//
// The declared counts only decide ambiguous lines: while they last every
// marked line is body, and once they run out a "--- " line followed by
// "+++ " starts the next file instead. Other marked lines stay in the hunk
// and leave the mismatch for Hunk.Verify to report.
func (p *parser) inBody(lines []string, i int) bool {
	if p.hunk == nil {
		return false
	}
	line := strings.TrimSuffix(lines[i], "\r")
	counted := !p.exhausted()
	if line == "" {
		return counted || p.lenient
	}
	switch line[0] {
	case '+', ' ':
		return true
	case '-':
		if counted {
			return true
		}
		// format-patch signature separator
		if line == "-- " {
			return false
		}
		return !(strings.HasPrefix(line, "--- ") && i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ "))
	}
	return false
}

// exhausted reports whether the hunk's declared counts no longer apply.
func (p *parser) exhausted() bool {
	return p.lenient || (p.remOld <= 0 && p.remNew <= 0)
}

func (p *parser) bodyLine(raw, line string) {
	l := Line{RawText: raw}
	var marker byte = ' '
	if line != "" {
		marker = line[0]
	}
	switch marker {
	case '+':
		l.Kind = KindAdded
		l.Origin = '+'
		l.NewLineNumber = intPtr(p.newNext)
		p.newNext++
		p.remNew--
	case '-':
		l.Kind = KindRemoved
		l.Origin = '-'
		l.OldLineNumber = intPtr(p.oldNext)
		p.oldNext++
		p.remOld--
	default:
		l.Kind = KindUnchanged
		l.Origin = ' '
		l.OldLineNumber = intPtr(p.oldNext)
		l.NewLineNumber = intPtr(p.newNext)
		p.oldNext++
		p.newNext++
		p.remOld--
		p.remNew--
	}
	p.hunk.Lines = append(p.hunk.Lines, l)
}

func (p *parser) attachMeta(raw string) {
	if p.hunk != nil && len(p.hunk.Lines) > 0 {
		p.hunk.Lines[len(p.hunk.Lines)-1].Meta = raw
		return
	}
	if p.file != nil && len(p.file.Hunks) > 0 {
		last := &p.file.Hunks[len(p.file.Hunks)-1]
		if len(last.Lines) > 0 {
			last.Lines[len(last.Lines)-1].Meta = raw
		}
	}
}

func (p *parser) header(raw string) {
	p.file.Header = append(p.file.Header, Line{RawText: raw, Kind: KindHeader})
}

func (p *parser) extendedHeader(raw, line string) {
	p.header(raw)
	switch {
	case strings.HasPrefix(line, "new file mode "):
		p.flags.added = true
		p.file.NewMode = strings.TrimSpace(strings.TrimPrefix(line, "new file mode "))
	case strings.HasPrefix(line, "deleted file mode "):
		p.flags.deleted = true
		p.file.OldMode = strings.TrimSpace(strings.TrimPrefix(line, "deleted file mode "))
	case strings.HasPrefix(line, "old mode "):
		p.file.OldMode = strings.TrimSpace(strings.TrimPrefix(line, "old mode "))
	case strings.HasPrefix(line, "new mode "):
		p.file.NewMode = strings.TrimSpace(strings.TrimPrefix(line, "new mode "))
	case strings.HasPrefix(line, "rename from "):
		p.flags.renamed = true
		if path, ok := decodePath(strings.TrimPrefix(line, "rename from "), ""); ok {
			p.file.FromPath = path
		}
	case strings.HasPrefix(line, "rename to "):
		p.flags.renamed = true
		if path, ok := decodePath(strings.TrimPrefix(line, "rename to "), ""); ok {
			p.file.ToPath = path
		}
	case strings.HasPrefix(line, "copy from "):
		p.flags.copied = true
		if path, ok := decodePath(strings.TrimPrefix(line, "copy from "), ""); ok {
			p.file.FromPath = path
		}
	case strings.HasPrefix(line, "copy to "):
		p.flags.copied = true
		if path, ok := decodePath(strings.TrimPrefix(line, "copy to "), ""); ok {
			p.file.ToPath = path
		}
	case strings.HasPrefix(line, "Binary files ") || strings.HasPrefix(line, "GIT binary patch"):
		p.file.Binary = true
		if strings.HasPrefix(line, "Binary files ") && strings.HasSuffix(line, " differ") {
			p.binaryPaths(strings.TrimSuffix(strings.TrimPrefix(line, "Binary files "), " differ"))
		}
	}
}

// binaryPaths reads "a/x and b/y" from a Binary files line; /dev/null on
// either side marks an addition or deletion.
func (p *parser) binaryPaths(s string) {
	left, right, ok := strings.Cut(s, " and ")
	if !ok {
		return
	}
	if strings.TrimSpace(left) == devNull {
		p.flags.added = true
	}
	if strings.TrimSpace(right) == devNull {
		p.flags.deleted = true
	}
}

func (p *parser) minusLine(token string) {
	p.flags.sawMinus = true
	token = trimTimestamp(token)
	if strings.TrimSpace(token) == devNull {
		p.flags.added = true
		return
	}
	if path, ok := decodePath(token, "a/"); ok {
		p.file.FromPath = path
	}
}

func (p *parser) plusLine(token string) {
	p.flags.sawPlus = true
	token = trimTimestamp(token)
	if strings.TrimSpace(token) == devNull {
		p.flags.deleted = true
		return
	}
	if path, ok := decodePath(token, "b/"); ok {
		p.file.ToPath = path
	}
}

func (p *parser) startFile(fromGit bool) {
	p.flushFile()
	p.file = &FileDiff{Status: StatusModified, Hunks: []Hunk{}}
	p.flags = fileFlags{fromGit: fromGit}
}

func (p *parser) startHunk(raw, line string) {
	p.closeHunk()
	h := Hunk{Header: raw}
	p.lenient = false
	if m := hunkHeaderRe.FindStringSubmatch(line); m != nil {
		h.OldStart = atoi(m[1], 0)
		h.OldCount = optionalCount(m[2])
		h.NewStart = atoi(m[3], 0)
		h.NewCount = optionalCount(m[4])
		h.Section = strings.TrimSpace(m[5])
	} else {
		p.lenient = true
		if m := looseOldRange.FindStringSubmatch(line); m != nil {
			h.OldStart = atoi(m[1], 0)
			h.OldCount = optionalCount(m[2])
		}
		if m := looseNewRange.FindStringSubmatch(line); m != nil {
			h.NewStart = atoi(m[1], 0)
			h.NewCount = optionalCount(m[2])
		}
	}
	p.hunk = &h
	p.remOld, p.remNew = h.OldCount, h.NewCount
	p.oldNext, p.newNext = h.OldStart, h.NewStart
}

func (p *parser) closeHunk() {
	if p.hunk == nil {
		return
	}
	if p.file != nil {
		p.file.Hunks = append(p.file.Hunks, *p.hunk)
	}
	p.hunk = nil
	p.lenient = false
}

func (p *parser) flushFile() {
	p.closeHunk()
	if p.file == nil {
		return
	}
	fd := p.file
	switch {
	case p.flags.renamed:
		fd.Status = StatusRenamed
	case p.flags.copied:
		fd.Status = StatusCopied
	case p.flags.added:
		fd.Status = StatusAdded
	case p.flags.deleted:
		fd.Status = StatusDeleted
	}
	if p.flags.added && !p.flags.renamed && !p.flags.copied {
		if fd.ToPath == "" {
			fd.ToPath = fd.FromPath
		}
		fd.FromPath = ""
	}
	if p.flags.deleted && !p.flags.renamed && !p.flags.copied {
		if fd.FromPath == "" {
			fd.FromPath = fd.ToPath
		}
		fd.ToPath = ""
	}
	p.files = append(p.files, *fd)
	p.file = nil
	p.flags = fileFlags{}
}

func optionalCount(raw string) int {
	if raw == "" {
		return 1
	}
	return atoi(raw, 1)
}

func atoi(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// trimTimestamp drops the tab-separated timestamp non-git diffs append to
// ---/+++ lines.
func trimTimestamp(token string) string {
	if idx := strings.IndexByte(token, '\t'); idx >= 0 && !strings.HasPrefix(token, `"`) {
		return token[:idx]
	}
	return token
}
