package conflict

import (
	"errors"
	"fmt"
	"strings"

	"hunkline/internal/diff"
)

// ErrRegionNotFound is returned when a resolution names a region index the
// text does not have.
var ErrRegionNotFound = errors.New("conflict region not found")

// Choice selects which side of a region survives resolution.
type Choice string

const (
	ChoiceOurs   Choice = "ours"
	ChoiceTheirs Choice = "theirs"
	ChoiceBoth   Choice = "both"
	ChoiceNone   Choice = "none"
)

// ParseChoice validates a user-supplied choice.
func ParseChoice(s string) (Choice, error) {
	switch c := Choice(strings.ToLower(strings.TrimSpace(s))); c {
	case ChoiceOurs, ChoiceTheirs, ChoiceBoth, ChoiceNone:
		return c, nil
	default:
		return "", fmt.Errorf("unknown choice %q (must be ours, theirs, both or none)", s)
	}
}

// Resolve rewrites the region at index (or every region when index is -1)
// keeping the chosen side. Base sections and marker lines of resolved
// regions are dropped; other text, including line endings, is kept as is.
func Resolve(text string, choice Choice, index int) (string, error) {
	if _, err := ParseChoice(string(choice)); err != nil {
		return "", err
	}
	lines := strings.SplitAfter(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	texts := make([]string, len(lines))
	base := make([]diff.Kind, len(lines))
	for i, l := range lines {
		texts[i] = strings.TrimSuffix(l, "\n")
		base[i] = diff.KindUnchanged
	}
	kinds, found := classify(texts, base)
	if index < -1 || index >= found {
		return "", fmt.Errorf("resolve region %d of %d: %w", index, found, ErrRegionNotFound)
	}

	var b strings.Builder
	var ours, theirs []string
	region := -1
	selected := false
	for i, kind := range kinds {
		line := lines[i]
		if kind == diff.KindConflictStart {
			region++
			selected = index == -1 || index == region
			ours, theirs = nil, nil
		}
		if !kind.IsConflict() || !selected {
			b.WriteString(line)
			continue
		}
		switch kind {
		case diff.KindConflictOurs:
			ours = append(ours, line)
		case diff.KindConflictTheirs:
			theirs = append(theirs, line)
		case diff.KindConflictEnd:
			if choice == ChoiceOurs || choice == ChoiceBoth {
				writeAll(&b, ours)
			}
			if choice == ChoiceTheirs || choice == ChoiceBoth {
				writeAll(&b, theirs)
			}
		}
	}

	out := b.String()
	if !strings.HasSuffix(text, "\n") && strings.HasSuffix(out, "\n") {
		out = strings.TrimSuffix(strings.TrimSuffix(out, "\n"), "\r")
	}
	return out, nil
}

// ResolveAll resolves every region of text with the same choice.
func ResolveAll(text string, choice Choice) (string, error) {
	return Resolve(text, choice, -1)
}

func writeAll(b *strings.Builder, lines []string) {
	for _, l := range lines {
		b.WriteString(l)
	}
}
