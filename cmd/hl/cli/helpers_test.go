package cli

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func captureStdout(t *testing.T, fn func() error) string {
	t.Helper()
	prevStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("create pipe: %v", err)
	}
	os.Stdout = w
	runErr := fn()
	if err := w.Close(); err != nil {
		t.Fatalf("close write pipe: %v", err)
	}
	os.Stdout = prevStdout

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read stdout: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close read pipe: %v", err)
	}
	if runErr != nil {
		t.Fatalf("run command: %v", runErr)
	}
	return string(out)
}

// useRepo points the command globals at repo and a throwaway config whose
// database lives in the test's temp dir.
func useRepo(t *testing.T, repo string) {
	t.Helper()
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "hunkline.toml")
	content := "db_path = \"" + filepath.ToSlash(filepath.Join(tmp, "hunkline.db")) + "\"\n\n[render]\nsyntax_highlight = false\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	prevCfgPath, prevRepoDir, prevJSON, prevNoColor := cfgPath, repoDir, jsonOut, noColor
	cfgPath, repoDir, jsonOut, noColor = configPath, repo, false, true
	t.Cleanup(func() {
		cfgPath, repoDir, jsonOut, noColor = prevCfgPath, prevRepoDir, prevJSON, prevNoColor
	})
}

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
