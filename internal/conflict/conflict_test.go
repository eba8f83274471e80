package conflict

import (
	"errors"
	"reflect"
	"testing"

	"hunkline/internal/diff"
)

func kindsOf(fd diff.FileDiff) []diff.Kind {
	var out []diff.Kind
	for _, l := range fd.Lines() {
		out = append(out, l.Kind)
	}
	return out
}

func TestAnnotateTextTagsRegion(t *testing.T) {
	t.Parallel()
	fd := AnnotateText("foo.txt", "<<<<<<< HEAD\nmine\n=======\ntheirs\n>>>>>>> branch\n")
	want := []diff.Kind{
		diff.KindConflictStart,
		diff.KindConflictOurs,
		diff.KindConflictMiddle,
		diff.KindConflictTheirs,
		diff.KindConflictEnd,
	}
	if got := kindsOf(fd); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected kinds: got %v want %v", got, want)
	}
	if fd.Status != diff.StatusConflict {
		t.Fatalf("expected conflict status, got %s", fd.Status)
	}
}

func TestAnnotateTextNumbersLines(t *testing.T) {
	t.Parallel()
	fd := AnnotateText("foo.txt", "line 1\n<<<<<<< HEAD\nours\n=======\ntheirs\n>>>>>>> branch\nline 2\n")
	lines := fd.Hunks[0].Lines
	if lines[0].OldLineNumber == nil || *lines[0].OldLineNumber != 1 || *lines[0].NewLineNumber != 1 {
		t.Fatalf("expected context line numbered on both sides: %+v", lines[0])
	}
	if lines[1].OldLineNumber != nil || lines[1].NewLineNumber != nil {
		t.Fatalf("expected marker line without numbers: %+v", lines[1])
	}
	if lines[2].OldLineNumber != nil || lines[2].NewLineNumber == nil || *lines[2].NewLineNumber != 3 {
		t.Fatalf("expected ours line numbered on new side only: %+v", lines[2])
	}
	if *lines[6].OldLineNumber != 7 {
		t.Fatalf("expected trailing context at file line 7, got %d", *lines[6].OldLineNumber)
	}
	if err := fd.Hunks[0].Verify(); err != nil {
		t.Fatalf("expected synthetic hunk to verify: %v", err)
	}
}

func TestAnnotateTextSupportsDiff3Style(t *testing.T) {
	t.Parallel()
	fd := AnnotateText("diff3.txt", "<<<<<<< HEAD\nours\n||||||| base\na\n=======\ntheirs\n>>>>>>> branch\n")
	regions := Regions(fd)
	if len(regions) != 1 {
		t.Fatalf("expected 1 conflict region, got %d", len(regions))
	}
	r := regions[0]
	if r.StartLine != 1 || r.EndLine != 7 {
		t.Fatalf("unexpected conflict bounds: %d-%d", r.StartLine, r.EndLine)
	}
	if len(r.Ours) != 1 || r.Ours[0].Text() != "ours" || len(r.Base) != 1 || r.Base[0].Text() != "a" || r.Theirs[0].Text() != "theirs" {
		t.Fatalf("unexpected diff3 payload: %#v", r)
	}
	if r.OursLabel != "HEAD" || r.BaseLabel != "base" || r.TheirsLabel != "branch" {
		t.Fatalf("unexpected labels: %q %q %q", r.OursLabel, r.BaseLabel, r.TheirsLabel)
	}
}

func TestAnnotateTextUnterminatedRegionStaysUnchanged(t *testing.T) {
	t.Parallel()
	fd := AnnotateText("broken.txt", "a\n<<<<<<< HEAD\nours\n=======\ntheirs\n")
	for i, k := range kindsOf(fd) {
		if k != diff.KindUnchanged {
			t.Fatalf("line %d: expected unchanged, got %s", i, k)
		}
	}
	if fd.Status != diff.StatusModified {
		t.Fatalf("expected modified status, got %s", fd.Status)
	}
}

func TestAnnotateTextStrayMarkersAreText(t *testing.T) {
	t.Parallel()
	fd := AnnotateText("stray.txt", "=======\n>>>>>>> x\n<<<<<<<< eight\n")
	for i, k := range kindsOf(fd) {
		if k != diff.KindUnchanged {
			t.Fatalf("line %d: expected unchanged, got %s", i, k)
		}
	}
}

func TestAnnotateDiffMode(t *testing.T) {
	t.Parallel()
	raw := "diff --git a/f.go b/f.go\n--- a/f.go\n+++ b/f.go\n@@ -1,2 +1,7 @@\n x\n+<<<<<<< HEAD\n+a\n+=======\n+b\n+>>>>>>> topic\n y\n"
	fd := diff.Parse(raw)[0]
	got := Annotate(fd)
	want := []diff.Kind{
		diff.KindUnchanged,
		diff.KindConflictStart,
		diff.KindConflictOurs,
		diff.KindConflictMiddle,
		diff.KindConflictTheirs,
		diff.KindConflictEnd,
		diff.KindUnchanged,
	}
	if k := kindsOf(got); !reflect.DeepEqual(k, want) {
		t.Fatalf("unexpected kinds: got %v want %v", k, want)
	}
	if got.Status != diff.StatusConflict {
		t.Fatalf("expected conflict status, got %s", got.Status)
	}
	if fd.Hunks[0].Lines[1].Kind != diff.KindAdded {
		t.Fatalf("expected input to be left untouched")
	}
	if got.Render() != raw {
		t.Fatalf("annotation changed raw text")
	}
	if n, ok := got.Hunks[0].Lines[1].Number(diff.SideNew); !ok || n != 2 {
		t.Fatalf("expected start marker to keep new line 2, got %d %v", n, ok)
	}
}

func TestAnnotateDiffModeRollsBackToDiffKinds(t *testing.T) {
	t.Parallel()
	fd := diff.Parse("@@ -1,1 +1,2 @@\n-old\n+<<<<<<< HEAD\n+a\n")[0]
	got := Annotate(fd)
	want := []diff.Kind{diff.KindRemoved, diff.KindAdded, diff.KindAdded}
	if k := kindsOf(got); !reflect.DeepEqual(k, want) {
		t.Fatalf("unexpected kinds: got %v want %v", k, want)
	}
	if got.Status != diff.StatusModified {
		t.Fatalf("expected status to stay modified, got %s", got.Status)
	}
}

func TestAnnotateIsIdempotent(t *testing.T) {
	t.Parallel()
	raw := "@@ -1,4 +1,8 @@\n a\n+<<<<<<< HEAD\n+b\n+=======\n+c\n+>>>>>>> x\n-d\n e\n f\n"
	once := Annotate(diff.Parse(raw)[0])
	twice := Annotate(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("annotate is not idempotent:\n%#v\n%#v", once, twice)
	}

	text := AnnotateText("t.txt", "<<<<<<< HEAD\nx\n=======\ny\n>>>>>>> z\n")
	if again := Annotate(text); !reflect.DeepEqual(kindsOf(again), kindsOf(text)) {
		t.Fatalf("re-annotating text result changed kinds")
	}
}

func TestRegionsSupportsMultipleRegions(t *testing.T) {
	t.Parallel()
	fd := AnnotateText("bar.txt", "<<<<<<< HEAD\n1\n=======\n2\n>>>>>>> branch\nmid\n<<<<<<< HEAD\nA\n=======\nB\n>>>>>>> branch\n")
	regions := Regions(fd)
	if len(regions) != 2 {
		t.Fatalf("expected 2 conflict regions, got %d", len(regions))
	}
	if regions[0].Ours[0].Text() != "1" || regions[1].Ours[0].Text() != "A" {
		t.Fatalf("unexpected ours payloads: %q %q", regions[0].Ours[0].Text(), regions[1].Ours[0].Text())
	}
	if regions[1].Index != 1 || regions[1].Start.Line != 6 {
		t.Fatalf("unexpected second region: %+v", regions[1])
	}
}

func TestHasMarkers(t *testing.T) {
	t.Parallel()
	if !HasMarkers("x\n<<<<<<< HEAD\n") {
		t.Fatal("expected marker detection")
	}
	if HasMarkers("plain text") {
		t.Fatal("did not expect marker detection")
	}
	if HasMarkers("<<<<<<<<< not a marker") {
		t.Fatal("did not expect over-long marker to count")
	}
}

func TestCountLines(t *testing.T) {
	t.Parallel()
	regions := []Region{
		{StartLine: 2, EndLine: 6},
		{StartLine: 12, EndLine: 14},
	}
	if got := CountLines(regions); got != 8 {
		t.Fatalf("expected 8 lines, got %d", got)
	}
}

func TestResolveChoices(t *testing.T) {
	t.Parallel()
	text := "top\n<<<<<<< HEAD\nmine\n||||||| base\norig\n=======\nyours\n>>>>>>> topic\nbottom\n"
	cases := []struct {
		choice Choice
		want   string
	}{
		{ChoiceOurs, "top\nmine\nbottom\n"},
		{ChoiceTheirs, "top\nyours\nbottom\n"},
		{ChoiceBoth, "top\nmine\nyours\nbottom\n"},
		{ChoiceNone, "top\nbottom\n"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(string(tc.choice), func(t *testing.T) {
			t.Parallel()
			got, err := ResolveAll(text, tc.choice)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestResolveSingleRegionKeepsOthers(t *testing.T) {
	t.Parallel()
	text := "<<<<<<< HEAD\n1\n=======\n2\n>>>>>>> b\n<<<<<<< HEAD\nA\r\n=======\r\nB\r\n>>>>>>> b"
	got, err := Resolve(text, ChoiceTheirs, 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := "<<<<<<< HEAD\n1\n=======\n2\n>>>>>>> b\nB"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestResolveMissingRegion(t *testing.T) {
	t.Parallel()
	_, err := Resolve("<<<<<<< HEAD\n1\n=======\n2\n>>>>>>> b\n", ChoiceOurs, 3)
	if !errors.Is(err, ErrRegionNotFound) {
		t.Fatalf("expected ErrRegionNotFound, got %v", err)
	}
	got, err := ResolveAll("no conflicts\n", ChoiceOurs)
	if err != nil || got != "no conflicts\n" {
		t.Fatalf("expected text unchanged, got %q %v", got, err)
	}
	if _, err := ParseChoice("mine"); err == nil {
		t.Fatal("expected unknown choice error")
	}
}
