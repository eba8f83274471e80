package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Operation names the multi-step git command a repository is in the middle of.
type Operation string

const (
	OperationNone       Operation = ""
	OperationMerge      Operation = "merge"
	OperationRebase     Operation = "rebase"
	OperationCherryPick Operation = "cherry-pick"
	OperationRevert     Operation = "revert"
)

// InProgress reports which operation, if any, left conflicts behind in dir.
func InProgress(ctx context.Context, dir string) (Operation, error) {
	gd, err := gitDir(ctx, dir)
	if err != nil {
		return OperationNone, err
	}
	for _, p := range []string{"rebase-merge", "rebase-apply"} {
		if st, err := os.Stat(filepath.Join(gd, p)); err == nil && st.IsDir() {
			return OperationRebase, nil
		}
	}
	checks := []struct {
		file string
		op   Operation
	}{
		{"MERGE_HEAD", OperationMerge},
		{"CHERRY_PICK_HEAD", OperationCherryPick},
		{"REVERT_HEAD", OperationRevert},
	}
	for _, c := range checks {
		if _, err := os.Stat(filepath.Join(gd, c.file)); err == nil {
			return c.op, nil
		}
	}
	return OperationNone, nil
}

// ConfigureConflictStyle sets merge.conflictStyle ("merge", "diff3" or
// "zdiff3") for the repository.
func ConfigureConflictStyle(ctx context.Context, dir, style string) error {
	switch style {
	case "merge", "diff3", "zdiff3":
	default:
		return fmt.Errorf("unsupported conflict style %q", style)
	}
	return runGit(ctx, dir, "config", "merge.conflictStyle", style)
}

// ConflictedFiles returns files with unresolved conflicts.
func ConflictedFiles(ctx context.Context, dir string) ([]string, error) {
	out, err := runGitOutput(ctx, dir, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, fmt.Errorf("find conflicted files: %w", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) == 1 && strings.TrimSpace(lines[0]) == "" {
		return []string{}, nil
	}
	return lines, nil
}

// StageFiles stages multiple files in a single git add call.
func StageFiles(ctx context.Context, dir string, files ...string) error {
	if len(files) == 0 {
		return nil
	}
	args := make([]string, 0, len(files)+2)
	args = append(args, "add", "--")
	args = append(args, files...)
	return runGit(ctx, dir, args...)
}

// CheckoutSide replaces conflicted files with one side of the merge
// ("ours" or "theirs").
func CheckoutSide(ctx context.Context, dir, side string, files ...string) error {
	if side != "ours" && side != "theirs" {
		return fmt.Errorf("checkout side %q: must be ours or theirs", side)
	}
	if len(files) == 0 {
		return nil
	}
	args := append([]string{"checkout", "--" + side, "--"}, files...)
	if err := runGit(ctx, dir, args...); err != nil {
		return fmt.Errorf("checkout %s: %w", side, err)
	}
	return nil
}

// RecreateConflict rewrites files with fresh conflict markers in the given
// style, undoing any partial resolution.
func RecreateConflict(ctx context.Context, dir, style string, files ...string) error {
	if style == "" {
		style = "merge"
	}
	if len(files) == 0 {
		return nil
	}
	args := append([]string{"checkout", "--conflict=" + style, "--"}, files...)
	if err := runGit(ctx, dir, args...); err != nil {
		return fmt.Errorf("recreate conflict: %w", err)
	}
	return nil
}
