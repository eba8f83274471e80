package tui

import (
	"context"
	"fmt"
	"strings"

	"hunkline/internal/config"
	"hunkline/internal/conflict"
	"hunkline/internal/db"
	"hunkline/internal/diff"
	"hunkline/internal/render"
	"hunkline/internal/watch"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// ── Styles ──────────────────────────────────────────────────────────────────

const pad = 2 // horizontal padding on each side

var (
	frameStyle    = lipgloss.NewStyle().Padding(1, pad)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("37"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	commentDot    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")).Render("●")
)

// Backend is what the TUI needs from a work tree.
type Backend interface {
	Diff(ctx context.Context) ([]diff.FileDiff, error)
	StageHunk(ctx context.Context, path string, hunk int) error
	Resolve(ctx context.Context, path string, choice conflict.Choice, region int) error
	Comments(ctx context.Context, path string) ([]db.Comment, error)
}

// ── Model ───────────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the hunkline TUI.
//
// Navigation depth:
//
//	selected < 0   → file list
//	selected >= 0  → file view (hunks, conflicts, comments)
type Model struct {
	backend Backend
	cfg     *config.Config
	updates <-chan watch.Update

	// File list
	files     []diff.FileDiff
	visible   []int // indexes into files that pass the filter
	cursor    int
	filter    string
	filtering bool

	// File view
	selected     int
	rows         []row
	rowCursor    int
	offset       int
	highlighter  *render.Highlighter
	comments     []db.Comment
	commented    map[row]bool
	showComments bool
	commentLines []string

	// Confirmation prompt and action feedback
	confirmAction string // "stage", a conflict.Choice, or "" (none)
	status        string
	actionErr     error

	err    error
	width  int
	height int
}

// row addresses one line of the file view. line is -1 for a hunk header.
type row struct {
	hunk int
	line int
}

// NewModel builds the model. updates may be nil; when set, each update
// replaces the matching file.
func NewModel(backend Backend, cfg *config.Config, updates <-chan watch.Update) Model {
	return Model{backend: backend, cfg: cfg, updates: updates, selected: -1}
}

// ── Messages ────────────────────────────────────────────────────────────────

type filesMsg []diff.FileDiff
type commentsMsg struct {
	path     string
	comments []db.Comment
}
type actionResultMsg struct {
	action string
	err    error
}
type updateMsg watch.Update
type errMsg error

// ── Init / Commands ─────────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	if m.updates != nil {
		return tea.Batch(m.fetchFiles, m.waitForUpdate)
	}
	return m.fetchFiles
}

func (m Model) fetchFiles() tea.Msg {
	files, err := m.backend.Diff(context.Background())
	if err != nil {
		return errMsg(err)
	}
	return filesMsg(files)
}

func (m Model) fetchComments() tea.Msg {
	path := m.files[m.selected].Path()
	comments, err := m.backend.Comments(context.Background(), path)
	if err != nil {
		return errMsg(err)
	}
	return commentsMsg{path: path, comments: comments}
}

func (m Model) waitForUpdate() tea.Msg {
	u, ok := <-m.updates
	if !ok {
		return nil
	}
	return updateMsg(u)
}

func (m Model) executeStage() tea.Msg {
	fd := m.files[m.selected]
	r := m.rows[m.rowCursor]
	if err := m.backend.StageHunk(context.Background(), fd.Path(), r.hunk); err != nil {
		return actionResultMsg{action: "stage", err: err}
	}
	return actionResultMsg{action: "stage"}
}

func (m Model) executeResolve(choice conflict.Choice) tea.Cmd {
	fd := m.files[m.selected]
	region := m.regionAtCursor()
	return func() tea.Msg {
		if err := m.backend.Resolve(context.Background(), fd.Path(), choice, region); err != nil {
			return actionResultMsg{action: string(choice), err: err}
		}
		return actionResultMsg{action: string(choice)}
	}
}

// ── Update ──────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.showComments && m.selected >= 0 {
			m.commentLines = renderComments(m.comments, m.cw())
		}
	case filesMsg:
		m.setFiles(msg)
		m.err = nil
	case commentsMsg:
		// Discard stale response if user navigated away.
		if m.selected < 0 || m.selected >= len(m.files) || m.files[m.selected].Path() != msg.path {
			break
		}
		m.comments = msg.comments
		m.commented = m.commentRows()
		m.commentLines = renderComments(m.comments, m.cw())
	case updateMsg:
		m.applyUpdate(watch.Update(msg))
		return m, m.waitForUpdate
	case actionResultMsg:
		m.confirmAction = ""
		if msg.err != nil {
			// Non-fatal: show error inline on the file view.
			m.actionErr = msg.err
			break
		}
		m.actionErr = nil
		m.status = actionDone(msg.action)
		return m, m.fetchFiles
	case errMsg:
		m.err = msg
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func actionDone(action string) string {
	if action == "stage" {
		return "hunk staged"
	}
	return "took " + action
}

// setFiles replaces the file list, keeping the open file open when it
// still has changes.
func (m *Model) setFiles(files []diff.FileDiff) {
	open := ""
	if m.selected >= 0 && m.selected < len(m.files) {
		open = m.files[m.selected].Path()
	}
	m.files = files
	m.applyFilter()
	m.selected = -1
	if open == "" {
		return
	}
	for i, fd := range files {
		if fd.Path() == open {
			m.openFile(i, true)
			return
		}
	}
	m.closeFile()
}

func (m *Model) applyUpdate(u watch.Update) {
	if u.Err != nil {
		m.actionErr = u.Err
		return
	}
	for i, fd := range m.files {
		if fd.Path() != u.Path {
			continue
		}
		m.files[i] = u.File
		if i == m.selected {
			m.openFile(i, true)
		}
		return
	}
	m.files = append(m.files, u.File)
	m.applyFilter()
}

func (m *Model) applyFilter() {
	filtered := render.Filter(m.files, m.filter)
	index := make(map[string]int, len(m.files))
	for i, fd := range m.files {
		index[fd.Path()] = i
	}
	m.visible = make([]int, 0, len(filtered))
	for _, fd := range filtered {
		m.visible = append(m.visible, index[fd.Path()])
	}
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
}

// openFile switches to the file view. keep preserves the cursor position
// across a reload of the same file.
func (m *Model) openFile(i int, keep bool) {
	fd := m.files[i]
	m.selected = i
	m.rows = buildRows(fd)
	if !keep {
		m.rowCursor, m.offset = 0, 0
		m.showComments = false
		m.comments, m.commented, m.commentLines = nil, nil, nil
	} else {
		m.commented = m.commentRows()
	}
	if m.rowCursor >= len(m.rows) {
		m.rowCursor = max(len(m.rows)-1, 0)
	}
	m.highlighter = nil
	if m.cfg != nil && m.cfg.Render.SyntaxHighlight {
		m.highlighter = render.NewHighlighter(fd.Path(), m.cfg.Render.Style)
	}
	m.clampOffset()
}

func (m *Model) closeFile() {
	m.selected = -1
	m.rows = nil
	m.rowCursor, m.offset = 0, 0
	m.comments, m.commented, m.commentLines = nil, nil, nil
	m.showComments = false
	m.confirmAction = ""
	m.actionErr = nil
}

func buildRows(fd diff.FileDiff) []row {
	var rows []row
	for hi, h := range fd.Hunks {
		if h.Header != "" {
			rows = append(rows, row{hunk: hi, line: -1})
		}
		for li := range h.Lines {
			rows = append(rows, row{hunk: hi, line: li})
		}
	}
	return rows
}

func (m Model) commentRows() map[row]bool {
	if m.selected < 0 || len(m.comments) == 0 {
		return nil
	}
	fd := m.files[m.selected]
	out := make(map[row]bool, len(m.comments))
	for _, c := range m.comments {
		if hi, li, ok := c.Locate(fd); ok {
			out[row{hunk: hi, line: li}] = true
		}
	}
	return out
}

// renderComments renders comment bodies as terminal-styled markdown via
// glamour. Falls back to plain text splitting on error.
func renderComments(comments []db.Comment, width int) []string {
	if len(comments) == 0 {
		return []string{"(no comments)"}
	}
	var b strings.Builder
	for _, c := range comments {
		fmt.Fprintf(&b, "**%s:%d** (%s side) `%s`\n\n%s\n\n", c.Path, c.Line, c.Side, shortID(c.ID), c.Body)
	}
	text := b.String()
	if width < 40 {
		width = 76
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return strings.Split(strings.TrimRight(text, "\n"), "\n")
	}
	rendered, err := r.Render(text)
	if err != nil {
		return strings.Split(strings.TrimRight(text, "\n"), "\n")
	}
	return strings.Split(strings.TrimRight(rendered, "\n"), "\n")
}

// ── Key Handling ────────────────────────────────────────────────────────────

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.filtering {
		return m.handleKeyFilter(msg)
	}
	if key == "q" {
		return m, tea.Quit
	}

	// Confirmation prompt active: handle y/n.
	if m.confirmAction != "" {
		switch key {
		case "y":
			action := m.confirmAction
			if action == "stage" {
				return m, m.executeStage
			}
			return m, m.executeResolve(conflict.Choice(action))
		case "n", "esc":
			m.confirmAction = ""
		}
		return m, nil
	}

	if m.selected >= 0 {
		return m.handleKeyFile(key)
	}
	return m.handleKeyList(key)
}

func (m Model) handleKeyFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.filtering = false
	case tea.KeyEsc:
		m.filtering = false
		m.filter = ""
	case tea.KeyBackspace:
		if r := []rune(m.filter); len(r) > 0 {
			m.filter = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.filter += string(msg.Runes)
	}
	m.applyFilter()
	return m, nil
}

func (m Model) handleKeyList(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor < len(m.visible) {
			m.openFile(m.visible[m.cursor], false)
			return m, m.fetchComments
		}
	case "/":
		m.filtering = true
	case "esc":
		m.filter = ""
		m.applyFilter()
	case "r":
		return m, m.fetchFiles
	}
	return m, nil
}

func (m Model) handleKeyFile(key string) (tea.Model, tea.Cmd) {
	avail := m.scrollHeight()
	fd := m.files[m.selected]
	switch key {
	case "up", "k":
		if m.rowCursor > 0 {
			m.rowCursor--
		}
	case "down", "j":
		if m.rowCursor < len(m.rows)-1 {
			m.rowCursor++
		}
	case "u":
		m.rowCursor = max(m.rowCursor-avail/2, 0)
	case "d":
		m.rowCursor = min(m.rowCursor+avail/2, max(len(m.rows)-1, 0))
	case "n":
		m.rowCursor = m.findRow(1, func(r row) bool { return r.line < 0 })
	case "N":
		m.rowCursor = m.findRow(-1, func(r row) bool { return r.line < 0 })
	case "]":
		m.rowCursor = m.findRow(1, func(r row) bool { return r.line >= 0 && fd.Hunks[r.hunk].Lines[r.line].Kind == diff.KindConflictStart })
	case "[":
		m.rowCursor = m.findRow(-1, func(r row) bool { return r.line >= 0 && fd.Hunks[r.hunk].Lines[r.line].Kind == diff.KindConflictStart })
	case "s":
		if fd.Status == diff.StatusConflict {
			m.actionErr = fmt.Errorf("resolve conflicts before staging %s", fd.Path())
		} else if len(m.rows) > 0 {
			m.confirmAction = "stage"
		}
	case "o", "t", "b", "x":
		if m.regionAtCursor() < 0 {
			m.actionErr = fmt.Errorf("cursor is not inside a conflict region")
			break
		}
		m.confirmAction = string(map[string]conflict.Choice{
			"o": conflict.ChoiceOurs, "t": conflict.ChoiceTheirs, "b": conflict.ChoiceBoth, "x": conflict.ChoiceNone,
		}[key])
	case "c":
		m.showComments = !m.showComments
		if m.showComments {
			m.commentLines = renderComments(m.comments, m.cw())
		}
	case "r":
		return m, m.fetchFiles
	case "esc":
		m.closeFile()
		return m, nil
	}
	m.clampOffset()
	return m, nil
}

// findRow returns the next row in direction dir from the cursor that
// matches, or the cursor itself when none does.
func (m Model) findRow(dir int, match func(row) bool) int {
	for i := m.rowCursor + dir; i >= 0 && i < len(m.rows); i += dir {
		if match(m.rows[i]) {
			return i
		}
	}
	return m.rowCursor
}

// regionAtCursor returns the index of the conflict region under the
// cursor, or -1.
func (m Model) regionAtCursor() int {
	if m.selected < 0 || m.rowCursor >= len(m.rows) {
		return -1
	}
	r := m.rows[m.rowCursor]
	if r.line < 0 {
		return -1
	}
	at := conflict.Position{Hunk: r.hunk, Line: r.line}
	for _, rg := range conflict.Regions(m.files[m.selected]) {
		if !before(at, rg.Start) && !before(rg.End, at) {
			return rg.Index
		}
	}
	return -1
}

func before(a, b conflict.Position) bool {
	if a.Hunk != b.Hunk {
		return a.Hunk < b.Hunk
	}
	return a.Line < b.Line
}

func (m *Model) clampOffset() {
	avail := m.scrollHeight()
	if m.rowCursor < m.offset {
		m.offset = m.rowCursor
	}
	if m.rowCursor >= m.offset+avail {
		m.offset = m.rowCursor - avail + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// ── Views ───────────────────────────────────────────────────────────────────

func (m Model) View() string {
	var content string
	if m.err != nil {
		content = fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err)
	} else if m.selected >= 0 {
		content = m.fileView()
	} else {
		content = m.listView()
	}
	return frameStyle.Render(content)
}

// ── File List ───────────────────────────────────────────────────────────────

func (m Model) listView() string {
	var b strings.Builder
	w := m.cw()

	b.WriteString(titleStyle.Render("HUNKLINE"))
	var added, removed, conflicted int
	for _, fd := range m.files {
		st := fd.LineStats()
		added += st.Added
		removed += st.Removed
		if fd.Status == diff.StatusConflict {
			conflicted++
		}
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d files  +%d -%d  %d conflicted", len(m.files), added, removed, conflicted)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", w)))
	b.WriteString("\n")
	if m.filtering || m.filter != "" {
		b.WriteString(labelStyle.Render("filter: "))
		b.WriteString(m.filter)
		if m.filtering {
			b.WriteString("▏")
		}
		b.WriteString("\n")
	}

	const (
		colStatus = 11
		colStat   = 14
	)
	colPath := w - colStatus - colStat - 2
	if colPath < 20 {
		colPath = 20
	}

	if len(m.visible) == 0 {
		if len(m.files) == 0 {
			b.WriteString(dimStyle.Render("No changes."))
		} else {
			b.WriteString(dimStyle.Render("No files match the filter."))
		}
		b.WriteString("\n")
	} else {
		header := "  " +
			headerStyle.Render(render.PadRight("STATUS", colStatus)) +
			headerStyle.Render(render.PadRight("CHANGES", colStat)) +
			headerStyle.Render("PATH")
		b.WriteString(header)
		b.WriteString("\n")

		for i, idx := range m.visible {
			fd := m.files[idx]
			cursor := "  "
			if i == m.cursor {
				cursor = "> "
			}
			st := fd.LineStats()
			changes := fmt.Sprintf("+%d -%d", st.Added, st.Removed)
			if fd.Binary {
				changes = "binary"
			}
			path := fd.Path()
			if fd.Status == diff.StatusRenamed || fd.Status == diff.StatusCopied {
				path = fd.FromPath + " → " + fd.ToPath
			}
			line := cursor +
				render.StatusStyle(fd.Status).Render(render.PadRight(string(fd.Status), colStatus)) +
				render.PadRight(changes, colStat) +
				render.Truncate(path, colPath)
			if i == m.cursor {
				line = selectedStyle.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString(dimStyle.Render(strings.Repeat("─", w)))
	b.WriteString("\n")
	if m.actionErr != nil {
		b.WriteString(errStyle.Render("Error: " + m.actionErr.Error()))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(labelStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("j/k navigate  enter open  / filter  r refresh  q quit"))
	return b.String()
}

// ── File View ───────────────────────────────────────────────────────────────

func (m Model) fileView() string {
	var b strings.Builder
	w := m.cw()
	fd := m.files[m.selected]

	b.WriteString(titleStyle.Render(fd.Path()))
	b.WriteString("  ")
	b.WriteString(render.StatusStyle(fd.Status).Render(string(fd.Status)))
	if regions := conflict.Regions(fd); len(regions) > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %d conflict regions", len(regions))))
	}
	if len(m.comments) > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %d comments", len(m.comments))))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", w)))
	b.WriteString("\n")

	opts := render.Options{Color: true, LineNumbers: true, Width: w - 4}
	if m.cfg != nil {
		opts.TabWidth = m.cfg.Render.TabWidth
	}
	avail := m.scrollHeight()
	if len(m.rows) == 0 {
		msg := "(no hunks)"
		if fd.Binary {
			msg = "(binary file)"
		}
		b.WriteString(dimStyle.Render(msg))
		b.WriteString("\n")
	}
	end := min(m.offset+avail, len(m.rows))
	for i := m.offset; i < end; i++ {
		r := m.rows[i]
		cursor := "  "
		if i == m.rowCursor {
			cursor = selectedStyle.Render("> ")
		}
		dot := " "
		if m.commented[r] {
			dot = commentDot
		}
		var text string
		if r.line < 0 {
			text = render.HunkStyle().Render(render.Truncate(fd.Hunks[r.hunk].Header, opts.Width))
		} else {
			text = m.highlighter.FormatLine(fd.Hunks[r.hunk].Lines[r.line], opts)
		}
		b.WriteString(cursor + dot + " " + text)
		b.WriteString("\n")
	}

	if m.showComments {
		b.WriteString(dimStyle.Render(strings.Repeat("─", w)))
		b.WriteString("\n")
		for _, line := range m.commentLines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString(dimStyle.Render(strings.Repeat("─", w)))
	b.WriteString("\n")
	switch {
	case m.confirmAction == "stage":
		b.WriteString(selectedStyle.Render(fmt.Sprintf("Stage hunk %d of %s? (y/n)", m.rows[m.rowCursor].hunk+1, fd.Path())))
		b.WriteString("\n")
	case m.confirmAction != "":
		b.WriteString(selectedStyle.Render(fmt.Sprintf("Take %s for region %d? (y/n)", m.confirmAction, m.regionAtCursor()+1)))
		b.WriteString("\n")
	case m.actionErr != nil:
		b.WriteString(errStyle.Render("Error: " + m.actionErr.Error()))
		b.WriteString("\n")
	case m.status != "":
		b.WriteString(labelStyle.Render(m.status))
		b.WriteString("\n")
	}
	pct := scrollPercent(len(m.rows), m.offset, avail)
	if fd.Status == diff.StatusConflict {
		b.WriteString(dimStyle.Render("j/k move  ]/[ conflict  o ours  t theirs  b both  x none  c comments  esc back" + pct))
	} else {
		b.WriteString(dimStyle.Render("j/k move  n/N hunk  s stage  c comments  esc back" + pct))
	}
	return b.String()
}

// ── Helpers ─────────────────────────────────────────────────────────────────

// cw returns content width (terminal width minus frame padding).
func (m Model) cw() int {
	w := m.width - pad*2
	if w < 40 {
		w = 76 // sensible default before first WindowSizeMsg
	}
	return w
}

func (m Model) scrollHeight() int {
	// Reserve lines for chrome: frame padding(2) + title(1) + separators(2) + status(1) + footer(1).
	h := m.height - 7
	if m.showComments {
		h -= len(m.commentLines) + 1
	}
	if h < 5 {
		h = 5
	}
	return h
}

func scrollPercent(total, offset, avail int) string {
	if total <= avail {
		return ""
	}
	mx := total - avail
	return fmt.Sprintf("  [%d%%]", min(offset, mx)*100/mx)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
