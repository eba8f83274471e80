package render

import (
	"bytes"
	"strings"
	"testing"

	"hunkline/internal/diff"
)

const sample = "diff --git a/cmd/main.go b/cmd/main.go\n" +
	"index 1111111..2222222 100644\n" +
	"--- a/cmd/main.go\n" +
	"+++ b/cmd/main.go\n" +
	"@@ -1,3 +1,3 @@ package main\n" +
	" package main\n" +
	"-\tvar x = 1\n" +
	"+\tvar x = 2\n" +
	" func main() {}\n" +
	"\\ No newline at end of file\n" +
	"diff --git a/docs/readme.md b/docs/readme.md\n" +
	"new file mode 100644\n" +
	"--- /dev/null\n" +
	"+++ b/docs/readme.md\n" +
	"@@ -0,0 +1,2 @@\n" +
	"+# hunkline\n" +
	"+hello\n"

func TestWriteFilePlainRoundTripsWithoutNumbers(t *testing.T) {
	t.Parallel()
	files := diff.Parse(sample)
	var buf bytes.Buffer
	if err := WriteFiles(&buf, files, Options{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() != sample {
		t.Fatalf("plain output differs from input:\n%q\nwant\n%q", buf.String(), sample)
	}
}

func TestWriteFileLineNumbersAndTabs(t *testing.T) {
	t.Parallel()
	fd := diff.Parse(sample)[0]
	var buf bytes.Buffer
	if err := WriteFile(&buf, fd, Options{LineNumbers: true, TabWidth: 4}); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"    1     1  package main",
		"    2       -    var x = 1",
		"          2 +    var x = 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestFormatLineTruncatesToWidth(t *testing.T) {
	t.Parallel()
	l := diff.Line{RawText: "+日本語のテキスト", Kind: diff.KindAdded, Origin: '+'}
	got := FormatLine(l, Options{Width: 8})
	if w := len([]rune(got)); w > 8 {
		t.Fatalf("expected truncated line, got %q", got)
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected ellipsis, got %q", got)
	}
}

func TestExpandTabs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"\tx", 4, "    x"},
		{"ab\tx", 4, "ab  x"},
		{"abcd\tx", 4, "abcd    x"},
		{"no tabs", 4, "no tabs"},
		{"\tx", 0, "\tx"},
	}
	for _, tt := range tests {
		if got := ExpandTabs(tt.in, tt.width); got != tt.want {
			t.Fatalf("ExpandTabs(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestWriteStat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := WriteStat(&buf, diff.Parse(sample), Options{}); err != nil {
		t.Fatalf("stat: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "cmd/main.go    | modified +1 -1") {
		t.Fatalf("unexpected stat row:\n%s", out)
	}
	if !strings.Contains(out, "2 files changed, 3 insertions(+), 1 deletions(-)") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
}

func TestWriteNames(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := WriteNames(&buf, diff.Parse(sample), Options{}); err != nil {
		t.Fatalf("names: %v", err)
	}
	if got, want := buf.String(), "M cmd/main.go\nA docs/readme.md\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFilterRanksFuzzyMatches(t *testing.T) {
	t.Parallel()
	files := []diff.FileDiff{
		{ToPath: "internal/diff/parse.go"},
		{ToPath: "README.md"},
		{ToPath: "internal/patch/patch.go"},
	}
	got := Filter(files, "patch")
	if len(got) != 1 || got[0].Path() != "internal/patch/patch.go" {
		t.Fatalf("unexpected filter result: %+v", got)
	}
	got = Filter(files, "INTgo")
	if len(got) != 2 {
		t.Fatalf("expected case-insensitive fuzzy matches, got %+v", got)
	}
	if len(Filter(files, "  ")) != 3 {
		t.Fatal("empty query should keep all files")
	}
}

func TestHighlighter(t *testing.T) {
	t.Parallel()
	if NewHighlighter("notes.unknown-ext", "monokai") != nil {
		t.Fatal("expected no lexer for unknown extension")
	}
	var none *Highlighter
	if none.Line("x := 1") != "x := 1" || none.Language() != "" {
		t.Fatal("nil highlighter should pass text through")
	}

	h := NewHighlighter("main.go", "monokai")
	if h == nil || h.Language() != "Go" {
		t.Fatalf("expected Go lexer, got %v", h)
	}
	got := h.Line("func main() {}")
	if !strings.Contains(got, "\x1b[") || strings.Contains(got, "\n") {
		t.Fatalf("expected single highlighted line, got %q", got)
	}
}

func TestStyleForConflictKinds(t *testing.T) {
	t.Parallel()
	if StyleFor(diff.KindConflictStart).GetForeground() != StyleFor(diff.KindConflictEnd).GetForeground() {
		t.Fatal("all markers should share one style")
	}
	if StyleFor(diff.KindConflictOurs).GetForeground() == StyleFor(diff.KindConflictTheirs).GetForeground() {
		t.Fatal("ours and theirs should be distinguishable")
	}
}

func TestComment(t *testing.T) {
	t.Parallel()
	got := Comment("abc123", "first line\nsecond", Options{})
	if got != "    # abc123: first line" {
		t.Fatalf("unexpected comment line %q", got)
	}
}
