package git

import (
	"context"
	"strings"
	"testing"
)

func TestApplyCachedStagesAndUnstages(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := initRepo(t)
	writeFile(t, repo, "README.md", "hello\nstaged line\n")

	patch, err := Diff(ctx, repo, DiffOptions{})
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if err := ApplyCached(ctx, repo, patch, false); err != nil {
		t.Fatalf("apply cached: %v", err)
	}
	staged, err := ShowIndexFile(ctx, repo, "README.md")
	if err != nil {
		t.Fatalf("show index file: %v", err)
	}
	if string(staged) != "hello\nstaged line\n" {
		t.Fatalf("unexpected staged content %q", staged)
	}

	if err := ApplyCached(ctx, repo, patch, true); err != nil {
		t.Fatalf("unstage: %v", err)
	}
	if out := runGitCmdOutput(t, repo, "diff", "--cached"); out != "" {
		t.Fatalf("expected nothing staged, got:\n%s", out)
	}

	if err := ApplyCached(ctx, repo, "  \n", false); err == nil {
		t.Fatal("expected empty patch error")
	}
}

func TestShowIndexFileMissing(t *testing.T) {
	t.Parallel()
	data, err := ShowIndexFile(context.Background(), initRepo(t), "nope.txt")
	if err != nil || data != nil {
		t.Fatalf("expected nil content for missing file, got %q %v", data, err)
	}
}

func TestWorktreeFileRoundTrip(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	if err := WriteWorktreeFile(repo, "README.md", []byte("rewritten\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := ReadWorktreeFile(repo, "README.md")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "rewritten\n" {
		t.Fatalf("unexpected content %q", data)
	}
	if _, err := ReadWorktreeFile(repo, "../outside.txt"); err == nil || !strings.Contains(err.Error(), "outside") {
		t.Fatalf("expected outside-root error, got %v", err)
	}
}
