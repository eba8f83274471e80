package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"hunkline/internal/conflict"
	"hunkline/internal/db"
	"hunkline/internal/diff"
)

func initRepo(t *testing.T) string {
	t.Helper()
	repo := filepath.Join(t.TempDir(), "repo")
	runGitCmd(t, "", "init", repo)
	runGitCmd(t, repo, "config", "user.email", "test@example.com")
	runGitCmd(t, repo, "config", "user.name", "Test User")
	runGitCmd(t, repo, "config", "commit.gpgsign", "false")
	writeFile(t, repo, "README.md", "hello\n")
	runGitCmd(t, repo, "add", "README.md")
	runGitCmd(t, repo, "commit", "-m", "init")
	runGitCmd(t, repo, "branch", "-M", "main")
	return repo
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func runGitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, string(out))
	}
	return string(out)
}

func numbered(n int, replace map[int]string) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if s, ok := replace[i]; ok {
			b.WriteString(s + "\n")
			continue
		}
		fmt.Fprintf(&b, "line %d\n", i)
	}
	return b.String()
}

func openRepo(t *testing.T, dir string) (*Repo, *db.Store) {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "hunkline.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	r, err := Open(context.Background(), dir, nil, store)
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	return r, store
}

func TestStageHunkStagesOnlyThatHunk(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := initRepo(t)
	writeFile(t, dir, "list.txt", numbered(20, nil))
	runGitCmd(t, dir, "add", "list.txt")
	runGitCmd(t, dir, "commit", "-m", "list")
	writeFile(t, dir, "list.txt", numbered(20, map[int]string{2: "line two", 18: "line eighteen"}))

	r, _ := openRepo(t, dir)
	files, err := r.Diff(ctx, r.DiffOptions(false, "", "list.txt"))
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(files) != 1 || len(files[0].Hunks) != 2 {
		t.Fatalf("expected one file with two hunks, got %+v", files)
	}

	if err := r.StageHunk(ctx, "list.txt", 0, false); err != nil {
		t.Fatalf("stage hunk: %v", err)
	}
	cached := runGitCmd(t, dir, "diff", "--cached")
	if !strings.Contains(cached, "+line two") || strings.Contains(cached, "+line eighteen") {
		t.Fatalf("expected only the first hunk staged:\n%s", cached)
	}

	if err := r.StageHunk(ctx, "list.txt", 0, true); err != nil {
		t.Fatalf("unstage hunk: %v", err)
	}
	if cached := runGitCmd(t, dir, "diff", "--cached"); cached != "" {
		t.Fatalf("expected nothing staged, got:\n%s", cached)
	}
}

func TestStageLinesStagesSelection(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := initRepo(t)
	writeFile(t, dir, "README.md", "hello\nfirst\nsecond\n")

	r, _ := openRepo(t, dir)
	// Hunk lines: " hello", "+first", "+second".
	if err := r.StageLines(ctx, "README.md", 0, []int{2}, false); err != nil {
		t.Fatalf("stage lines: %v", err)
	}
	if got := runGitCmd(t, dir, "show", ":README.md"); got != "hello\nsecond\n" {
		t.Fatalf("unexpected index content %q", got)
	}
}

func TestStageLinesReverseUnstagesSelection(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := initRepo(t)
	writeFile(t, dir, "README.md", "hello\nfirst\nsecond\n")

	r, _ := openRepo(t, dir)
	if err := r.StageHunk(ctx, "README.md", 0, false); err != nil {
		t.Fatalf("stage hunk: %v", err)
	}
	// Staged hunk lines: " hello", "+first", "+second".
	if err := r.StageLines(ctx, "README.md", 0, []int{1}, true); err != nil {
		t.Fatalf("unstage lines: %v", err)
	}
	if got := runGitCmd(t, dir, "show", ":README.md"); got != "hello\nsecond\n" {
		t.Fatalf("unexpected index content %q", got)
	}
}

func TestStageLinesOfDeletedFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := initRepo(t)
	writeFile(t, dir, "gone.txt", "a\nb\n")
	runGitCmd(t, dir, "add", "gone.txt")
	runGitCmd(t, dir, "commit", "-m", "gone")
	if err := os.Remove(filepath.Join(dir, "gone.txt")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	r, _ := openRepo(t, dir)
	if err := r.StageLines(ctx, "gone.txt", 0, []int{0}, false); err != nil {
		t.Fatalf("stage lines: %v", err)
	}
	if got := runGitCmd(t, dir, "show", ":gone.txt"); got != "b\n" {
		t.Fatalf("unexpected index content %q", got)
	}
}

func TestStageHunkErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := initRepo(t)
	writeFile(t, dir, "README.md", "changed\n")
	r, _ := openRepo(t, dir)

	if err := r.StageHunk(ctx, "missing.txt", 0, false); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if err := r.StageHunk(ctx, "README.md", 3, false); !errors.Is(err, ErrHunkNotFound) {
		t.Fatalf("expected ErrHunkNotFound, got %v", err)
	}
}

func conflictedRepo(t *testing.T) string {
	t.Helper()
	repo := initRepo(t)
	runGitCmd(t, repo, "checkout", "-b", "topic")
	writeFile(t, repo, "README.md", "topic\n")
	runGitCmd(t, repo, "commit", "-am", "topic change")
	runGitCmd(t, repo, "checkout", "main")
	writeFile(t, repo, "README.md", "main\n")
	runGitCmd(t, repo, "commit", "-am", "main change")
	cmd := exec.Command("git", "merge", "topic")
	cmd.Dir = repo
	if err := cmd.Run(); err == nil {
		t.Fatal("expected merge conflict")
	}
	return repo
}

func TestDiffAnnotatesConflictedFiles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := conflictedRepo(t)
	writeFile(t, dir, "notes.txt", "untracked\n")
	r, _ := openRepo(t, dir)

	files, err := r.Diff(ctx, r.DiffOptions(false, ""))
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(files) != 1 || files[0].Path() != "README.md" || files[0].Status != diff.StatusConflict {
		t.Fatalf("expected annotated README.md, got %+v", files)
	}
	regions := conflict.Regions(files[0])
	if len(regions) != 1 || regions[0].OursLabel != "HEAD" || regions[0].TheirsLabel != "topic" {
		t.Fatalf("unexpected regions: %+v", regions)
	}
}

func TestResolveTakesSideAndRecords(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := conflictedRepo(t)
	r, store := openRepo(t, dir)

	remaining, err := r.Resolve(ctx, "README.md", conflict.ChoiceTheirs, -1, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected no remaining regions, got %d", remaining)
	}
	data, err := os.ReadFile(filepath.Join(dir, "README.md"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "topic\n" {
		t.Fatalf("expected theirs, got %q", string(data))
	}
	if out := runGitCmd(t, dir, "diff", "--name-only", "--diff-filter=U"); strings.TrimSpace(out) != "" {
		t.Fatalf("expected file staged, still unmerged: %s", out)
	}

	recorded, err := store.ListResolutions(ctx, r.Dir, "README.md", 0)
	if err != nil {
		t.Fatalf("list resolutions: %v", err)
	}
	if len(recorded) != 1 || recorded[0].Choice != "theirs" || recorded[0].RegionIndex != -1 {
		t.Fatalf("unexpected resolutions: %+v", recorded)
	}

	if _, err := r.Resolve(ctx, "README.md", conflict.ChoiceOurs, -1, false); !errors.Is(err, ErrNotConflicted) {
		t.Fatalf("expected ErrNotConflicted, got %v", err)
	}
}

func TestCheckoutAndRecreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := conflictedRepo(t)
	r, store := openRepo(t, dir)

	if err := r.Checkout(ctx, "ours", "README.md"); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "README.md"))
	if string(data) != "main\n" {
		t.Fatalf("expected ours, got %q", string(data))
	}
	recorded, err := store.ListResolutions(ctx, r.Dir, "", 0)
	if err != nil || len(recorded) != 1 || recorded[0].Choice != "checkout-ours" {
		t.Fatalf("unexpected resolutions: %+v %v", recorded, err)
	}

	if err := r.Recreate(ctx, "README.md"); err != nil {
		t.Fatalf("recreate: %v", err)
	}
	data, _ = os.ReadFile(filepath.Join(dir, "README.md"))
	if !conflict.HasMarkers(string(data)) {
		t.Fatalf("expected markers after recreate, got %q", string(data))
	}
}

func TestCommentsRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := initRepo(t)
	writeFile(t, dir, "README.md", "hello\nworld\n")
	r, _ := openRepo(t, dir)

	files, err := r.Diff(ctx, r.DiffOptions(false, ""))
	if err != nil || len(files) != 1 {
		t.Fatalf("diff: %+v %v", files, err)
	}
	id, err := r.AddComment(ctx, files[0], 0, 1, "needs a capital W")
	if err != nil {
		t.Fatalf("add comment: %v", err)
	}
	comments, err := r.Comments(ctx, "README.md", false)
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	if len(comments) != 1 || comments[0].ID != id || comments[0].Line != 2 || comments[0].AnchorText != "world" {
		t.Fatalf("unexpected comments: %+v", comments)
	}
}
