package render

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"hunkline/internal/diff"
)

// Highlighter colours source text by the language of one file.
type Highlighter struct {
	lexer     chroma.Lexer
	style     *chroma.Style
	formatter chroma.Formatter
}

// NewHighlighter picks a lexer from the file name. It returns nil when no
// lexer matches, and a nil Highlighter leaves text unchanged.
func NewHighlighter(path, style string) *Highlighter {
	lexer := lexers.Match(path)
	if lexer == nil {
		return nil
	}
	st := styles.Get(style)
	if st == nil {
		st = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	return &Highlighter{lexer: chroma.Coalesce(lexer), style: st, formatter: formatter}
}

// Line highlights a single line. Constructs spanning lines (block comments,
// raw strings) are coloured as if each line stood alone.
func (h *Highlighter) Line(text string) string {
	if h == nil || strings.TrimSpace(text) == "" {
		return text
	}
	iterator, err := h.lexer.Tokenise(nil, text)
	if err != nil {
		return text
	}
	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return text
	}
	// Lexers append a newline to their input; the line has none of its own.
	return strings.ReplaceAll(buf.String(), "\n", "")
}

// Language names the matched lexer, or "" for a nil Highlighter.
func (h *Highlighter) Language() string {
	if h == nil {
		return ""
	}
	return h.lexer.Config().Name
}

// FormatLine renders l like WriteFile does, highlighting its text with h.
func (h *Highlighter) FormatLine(l diff.Line, opts Options) string {
	return formatLine(l, h, opts)
}
