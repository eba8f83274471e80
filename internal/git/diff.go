package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// DiffOptions selects what `git diff` compares.
type DiffOptions struct {
	// Cached diffs the index against HEAD instead of the work tree against
	// the index.
	Cached bool
	// Rev compares against a commit instead of the index.
	Rev string
	// ContextLines is passed as -U when non-nil.
	ContextLines *int
	// Renames turns rename detection on (-M) or off (--no-renames) when
	// non-nil; otherwise git's configuration decides.
	Renames *bool
	// IncludeUntracked marks untracked files intent-to-add first so they
	// show up as additions.
	IncludeUntracked bool
	Paths            []string
}

func (o DiffOptions) args() []string {
	args := []string{"diff", "--no-color", "--no-ext-diff"}
	if o.ContextLines != nil {
		args = append(args, "-U"+strconv.Itoa(*o.ContextLines))
	}
	if o.Renames != nil {
		if *o.Renames {
			args = append(args, "-M")
		} else {
			args = append(args, "--no-renames")
		}
	}
	if o.Cached {
		args = append(args, "--cached")
	}
	if o.Rev != "" {
		args = append(args, o.Rev)
	}
	args = append(args, "--")
	return append(args, o.Paths...)
}

// Diff returns the raw unified diff selected by opts.
func Diff(ctx context.Context, dir string, opts DiffOptions) (string, error) {
	if opts.IncludeUntracked && !opts.Cached {
		// Diagnostics from add -N are discarded so they never reach a terminal UI.
		_, _, _ = runGitOutputAndErr(ctx, dir, "add", "-N", ".")
	}
	out, err := runGitRawOutput(ctx, dir, opts.args()...)
	if err != nil {
		return "", fmt.Errorf("diff: %w", err)
	}
	return string(out), nil
}

// Show returns the patch introduced by a commit, preceded by its header.
func Show(ctx context.Context, dir, rev string) (string, error) {
	rev = strings.TrimSpace(rev)
	if rev == "" {
		rev = "HEAD"
	}
	out, err := runGitRawOutput(ctx, dir, "show", "--no-color", "--no-ext-diff", "--patch", rev, "--")
	if err != nil {
		return "", fmt.Errorf("show %s: %w", rev, err)
	}
	return string(out), nil
}

// StashShow returns the patch stored in a stash entry; an empty ref means
// the latest entry.
func StashShow(ctx context.Context, dir, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		ref = "stash@{0}"
	}
	out, err := runGitRawOutput(ctx, dir, "stash", "show", "--patch", "--no-color", "--no-ext-diff", ref)
	if err != nil {
		return "", fmt.Errorf("stash show %s: %w", ref, err)
	}
	return string(out), nil
}

// StashEntry is one line of `git stash list`.
type StashEntry struct {
	Ref     string
	Subject string
}

// StashList returns the stash entries, newest first.
func StashList(ctx context.Context, dir string) ([]StashEntry, error) {
	out, err := runGitOutput(ctx, dir, "stash", "list", "--format=%gd%x00%s")
	if err != nil {
		return nil, fmt.Errorf("stash list: %w", err)
	}
	entries := []StashEntry{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		ref, subject, _ := strings.Cut(line, "\x00")
		entries = append(entries, StashEntry{Ref: ref, Subject: subject})
	}
	return entries, nil
}
