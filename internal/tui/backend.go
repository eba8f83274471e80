package tui

import (
	"context"

	"hunkline/internal/conflict"
	"hunkline/internal/db"
	"hunkline/internal/diff"
	"hunkline/internal/git"
	"hunkline/internal/workspace"
)

// RepoBackend serves the TUI from a work tree.
type RepoBackend struct {
	Repo *workspace.Repo
	Opts git.DiffOptions
}

func (b RepoBackend) Diff(ctx context.Context) ([]diff.FileDiff, error) {
	return b.Repo.Diff(ctx, b.Opts)
}

func (b RepoBackend) StageHunk(ctx context.Context, path string, hunk int) error {
	return b.Repo.StageHunk(ctx, path, hunk, b.Opts.Cached)
}

// Resolve stages the file once its last region is resolved.
func (b RepoBackend) Resolve(ctx context.Context, path string, choice conflict.Choice, region int) error {
	_, err := b.Repo.Resolve(ctx, path, choice, region, true)
	return err
}

func (b RepoBackend) Comments(ctx context.Context, path string) ([]db.Comment, error) {
	return b.Repo.Comments(ctx, path, false)
}
