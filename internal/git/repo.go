package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

const redactedValue = "[REDACTED]"

var (
	urlPattern         = regexp.MustCompile(`https?://[^\s"'` + "`" + `]+`)
	knownTokenPatterns = []*regexp.Regexp{
		regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{20,}`),
		regexp.MustCompile(`github_pat_[A-Za-z0-9_]{20,}`),
		regexp.MustCompile(`glpat-[A-Za-z0-9_-]{20,}`),
		regexp.MustCompile(`xox[baprs]-[A-Za-z0-9-]{10,}`),
		regexp.MustCompile(`oauth2:[^@/\s]+@`),
	}
)

// ErrNotRepository is returned when a directory is not inside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

type gitRunOptions struct {
	env     []string
	secrets []string
	stdin   io.Reader
}

// RepoRoot returns the top-level directory of the work tree containing dir.
func RepoRoot(ctx context.Context, dir string) (string, error) {
	stdout, stderr, err := runGitOutputAndErr(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		if strings.Contains(stderr, "not a git repository") {
			return "", fmt.Errorf("%s: %w", dir, ErrNotRepository)
		}
		return "", formatGitCommandError([]string{"rev-parse", "--show-toplevel"}, []byte(stderr), err, nil)
	}
	return strings.TrimSpace(stdout), nil
}

// LatestCommit returns the HEAD commit SHA in the given directory.
func LatestCommit(ctx context.Context, dir string) (string, error) {
	out, err := runGitOutput(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// gitDir returns the absolute .git directory for dir. Linked worktrees have
// theirs outside the work tree.
func gitDir(ctx context.Context, dir string) (string, error) {
	out, err := runGitOutput(ctx, dir, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", err
	}
	return filepath.Clean(strings.TrimSpace(out)), nil
}

func runGit(ctx context.Context, dir string, args ...string) error {
	return runGitWithOptions(ctx, dir, gitRunOptions{}, args...)
}

// runGitWithInput feeds input to git on stdin, for commands reading "-".
func runGitWithInput(ctx context.Context, dir, input string, args ...string) error {
	return runGitWithOptions(ctx, dir, gitRunOptions{stdin: strings.NewReader(input)}, args...)
}

func runGitWithOptions(ctx context.Context, dir string, opts gitRunOptions, args ...string) error {
	cmd := command(ctx, dir, opts, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return formatGitCommandError(args, out, err, opts.secrets)
	}
	return nil
}

func runGitOutputAndErr(ctx context.Context, dir string, args ...string) (string, string, error) {
	return runGitOutputAndErrWithOptions(ctx, dir, gitRunOptions{}, args...)
}

func runGitOutputAndErrWithOptions(ctx context.Context, dir string, opts gitRunOptions, args ...string) (string, string, error) {
	cmd := command(ctx, dir, opts, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return redactSensitiveText(stdout.String(), opts.secrets), redactSensitiveText(stderr.String(), opts.secrets), err
}

func runGitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	return runGitOutputWithOptions(ctx, dir, gitRunOptions{}, args...)
}

// runGitRawOutput returns stdout untouched. File contents and diffs must not
// pass through redaction, which would corrupt them.
func runGitRawOutput(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := command(ctx, dir, gitRunOptions{}, args...)
	out, err := cmd.Output()
	if err != nil {
		return nil, formatGitCommandError(args, exitStderr(nil, err), err, nil)
	}
	return out, nil
}

func runGitOutputWithOptions(ctx context.Context, dir string, opts gitRunOptions, args ...string) (string, error) {
	cmd := command(ctx, dir, opts, args...)
	out, err := cmd.Output()
	if err != nil {
		return "", formatGitCommandError(args, exitStderr(out, err), err, opts.secrets)
	}
	return redactSensitiveText(string(out), opts.secrets), nil
}

func command(ctx context.Context, dir string, opts gitRunOptions, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	if len(opts.env) > 0 {
		cmd.Env = append(cmd.Environ(), opts.env...)
	}
	if opts.stdin != nil {
		cmd.Stdin = opts.stdin
	}
	return cmd
}

func exitStderr(out []byte, err error) []byte {
	msg := out
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		if len(msg) > 0 && msg[len(msg)-1] != '\n' {
			msg = append(msg, '\n')
		}
		msg = append(msg, exitErr.Stderr...)
	}
	return msg
}

func formatGitCommandError(args []string, out []byte, err error, secrets []string) error {
	cmdText := redactSensitiveText(strings.Join(args, " "), secrets)
	msg := strings.TrimSpace(redactSensitiveText(string(out), secrets))
	if msg != "" {
		return fmt.Errorf("git %s: %w: %s", cmdText, err, msg)
	}
	return fmt.Errorf("git %s: %w", cmdText, err)
}

func redactSensitiveText(msg string, secrets []string) string {
	if msg == "" {
		return msg
	}
	redacted := msg
	for _, secret := range dedupeNonEmpty(secrets...) {
		redacted = strings.ReplaceAll(redacted, secret, redactedValue)
	}
	redacted = redactURLUserInfo(redacted)
	for _, pattern := range knownTokenPatterns {
		redacted = pattern.ReplaceAllString(redacted, redactedValue)
	}
	return redacted
}

func redactURLUserInfo(msg string) string {
	return urlPattern.ReplaceAllStringFunc(msg, func(match string) string {
		parsed, err := url.Parse(match)
		if err != nil {
			return match
		}
		if parsed.User == nil {
			return match
		}
		parsed.User = nil
		return parsed.String()
	})
}

func dedupeNonEmpty(values ...string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
