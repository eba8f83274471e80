package git

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"hunkline/internal/safepath"
)

// ApplyCached applies patch to the index only, leaving the work tree alone.
// With reverse set the patch is unapplied, which unstages it.
func ApplyCached(ctx context.Context, dir, patch string, reverse bool) error {
	if strings.TrimSpace(patch) == "" {
		return fmt.Errorf("apply: empty patch")
	}
	args := []string{"apply", "--cached", "--recount", "--whitespace=nowarn"}
	if reverse {
		args = append(args, "--reverse")
	}
	args = append(args, "-")
	return runGitWithInput(ctx, dir, patch, args...)
}

// ShowIndexFile returns the staged contents of path. A path missing from
// the index yields nil content and no error.
func ShowIndexFile(ctx context.Context, dir, path string) ([]byte, error) {
	stdout, stderr, err := runGitOutputAndErr(ctx, dir, "ls-files", "--stage", "--", path)
	if err != nil {
		return nil, formatGitCommandError([]string{"ls-files", "--stage", path}, []byte(stderr), err, nil)
	}
	if strings.TrimSpace(stdout) == "" {
		return nil, nil
	}
	out, err := runGitRawOutput(ctx, dir, "show", ":"+path)
	if err != nil {
		return nil, fmt.Errorf("read index file %s: %w", path, err)
	}
	return out, nil
}

// ReadWorktreeFile reads a repository-relative file from the work tree.
func ReadWorktreeFile(dir, rel string) ([]byte, error) {
	path, err := safepath.Join(dir, rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return data, nil
}

// WriteWorktreeFile replaces a repository-relative file, keeping its mode.
func WriteWorktreeFile(dir, rel string, data []byte) error {
	path, err := safepath.Join(dir, rel)
	if err != nil {
		return err
	}
	mode := fs.FileMode(0o644)
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", rel, err)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}
