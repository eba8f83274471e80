// Package workspace ties the parser, the conflict annotator and patch
// building to one git work tree and its comment store.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"hunkline/internal/config"
	"hunkline/internal/conflict"
	"hunkline/internal/db"
	"hunkline/internal/diff"
	"hunkline/internal/git"
	"hunkline/internal/patch"
	"hunkline/internal/worker"
)

var (
	// ErrFileNotFound is returned when a path has no changes in the diff
	// an operation needs.
	ErrFileNotFound = errors.New("file not in diff")
	// ErrHunkNotFound is returned for a hunk index outside the file.
	ErrHunkNotFound = errors.New("hunk not found")
	// ErrNotConflicted is returned when resolving a file without markers.
	ErrNotConflicted = errors.New("file has no conflict markers")
)

// Repo is a work tree plus the settings and store used to act on it.
type Repo struct {
	Dir   string
	cfg   *config.Config
	store *db.Store
	pool  *worker.Pool
}

// Open resolves the work tree containing dir. store may be nil, in which
// case comments are unavailable and resolutions go unrecorded.
func Open(ctx context.Context, dir string, cfg *config.Config, store *db.Store) (*Repo, error) {
	root, err := git.RepoRoot(ctx, dir)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		if cfg, err = config.Default(); err != nil {
			return nil, err
		}
	}
	return &Repo{Dir: root, cfg: cfg, store: store, pool: worker.NewPool(cfg.Diff.MaxWorkers)}, nil
}

func (r *Repo) Store() *db.Store { return r.store }

// DiffOptions fills in the configured context lines and rename detection.
func (r *Repo) DiffOptions(cached bool, rev string, paths ...string) git.DiffOptions {
	return git.DiffOptions{
		Cached:       cached,
		Rev:          rev,
		ContextLines: r.cfg.Diff.ContextLines,
		Renames:      r.cfg.Diff.RenameDetection,
		Paths:        paths,
	}
}

// Diff runs git diff and parses the result. Unmerged paths are replaced by
// their annotated work-tree text, since git only offers combined diffs for
// them.
func (r *Repo) Diff(ctx context.Context, opts git.DiffOptions) ([]diff.FileDiff, error) {
	raw, err := git.Diff(ctx, r.Dir, opts)
	if err != nil {
		return nil, err
	}
	files, err := r.pool.ParseAll(ctx, raw)
	if err != nil {
		return nil, err
	}
	if opts.Cached || opts.Rev != "" {
		return files, nil
	}

	conflicted, err := git.ConflictedFiles(ctx, r.Dir)
	if err != nil {
		return nil, err
	}
	if len(conflicted) == 0 {
		return files, nil
	}
	if len(opts.Paths) > 0 {
		conflicted = slices.DeleteFunc(conflicted, func(p string) bool { return !slices.Contains(opts.Paths, p) })
	}
	files = slices.DeleteFunc(files, func(fd diff.FileDiff) bool { return slices.Contains(conflicted, fd.Path()) })
	annotated, err := r.Conflicts(ctx, conflicted)
	if err != nil {
		return nil, err
	}
	return append(files, annotated...), nil
}

// Parse parses raw diff text with the configured worker pool.
func (r *Repo) Parse(ctx context.Context, raw string) ([]diff.FileDiff, error) {
	return r.pool.ParseAll(ctx, raw)
}

// Conflicts annotates the given work-tree files, or every unmerged file
// when paths is empty.
func (r *Repo) Conflicts(ctx context.Context, paths []string) ([]diff.FileDiff, error) {
	if len(paths) == 0 {
		var err error
		if paths, err = git.ConflictedFiles(ctx, r.Dir); err != nil {
			return nil, err
		}
	}
	return r.pool.AnnotateFiles(ctx, r.readFile, paths)
}

func (r *Repo) readFile(path string) ([]byte, error) {
	return git.ReadWorktreeFile(r.Dir, path)
}

// StageHunk stages hunk hi of path's work-tree changes. With reverse set it
// unstages hunk hi of path's staged changes instead.
func (r *Repo) StageHunk(ctx context.Context, path string, hi int, reverse bool) error {
	fd, err := r.changedFile(ctx, path, reverse)
	if err != nil {
		return err
	}
	if hi < 0 || hi >= len(fd.Hunks) {
		return fmt.Errorf("stage %s hunk %d of %d: %w", path, hi, len(fd.Hunks), ErrHunkNotFound)
	}
	p, err := patch.ForHunk(fd, hi)
	if err != nil {
		return err
	}
	return r.apply(ctx, path, p, reverse)
}

// StageLines stages only the selected lines of hunk hi, by index within the
// hunk.
func (r *Repo) StageLines(ctx context.Context, path string, hi int, lines []int, reverse bool) error {
	fd, err := r.changedFile(ctx, path, reverse)
	if err != nil {
		return err
	}
	if hi < 0 || hi >= len(fd.Hunks) {
		return fmt.Errorf("stage %s hunk %d of %d: %w", path, hi, len(fd.Hunks), ErrHunkNotFound)
	}
	p, err := patch.ForLines(fd, hi, lines, reverse)
	if err != nil {
		return err
	}
	return r.apply(ctx, path, p, reverse)
}

// apply dry-runs the patch against the index copy of path before handing
// it to git, so a stale diff fails without touching the index.
func (r *Repo) apply(ctx context.Context, path, p string, reverse bool) error {
	index, err := git.ShowIndexFile(ctx, r.Dir, path)
	if err != nil {
		return err
	}
	check := p
	if reverse {
		check = patch.Reverse(p)
	}
	if _, err := patch.Check(check, index); err != nil {
		return fmt.Errorf("stage %s: %w", path, err)
	}
	if err := git.ApplyCached(ctx, r.Dir, p, reverse); err != nil {
		return fmt.Errorf("stage %s: %w", path, err)
	}
	slog.Debug("applied patch to index", "path", path, "reverse", reverse)
	return nil
}

func (r *Repo) changedFile(ctx context.Context, path string, cached bool) (diff.FileDiff, error) {
	raw, err := git.Diff(ctx, r.Dir, r.DiffOptions(cached, "", path))
	if err != nil {
		return diff.FileDiff{}, err
	}
	for _, fd := range diff.Parse(raw) {
		if fd.Path() == path {
			return fd, nil
		}
	}
	return diff.FileDiff{}, fmt.Errorf("%s: %w", path, ErrFileNotFound)
}

// Resolve rewrites path with the chosen side of one region (or all of them
// when region is -1) and records the choice. It returns how many regions
// remain; stage adds the file to the index once none do.
func (r *Repo) Resolve(ctx context.Context, path string, choice conflict.Choice, region int, stage bool) (int, error) {
	data, err := r.readFile(path)
	if err != nil {
		return 0, err
	}
	text := string(data)
	if !conflict.HasMarkers(text) {
		return 0, fmt.Errorf("resolve %s: %w", path, ErrNotConflicted)
	}
	resolved, err := conflict.Resolve(text, choice, region)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := git.WriteWorktreeFile(r.Dir, path, []byte(resolved)); err != nil {
		return 0, err
	}
	r.recordResolution(ctx, path, region, string(choice))

	remaining := len(conflict.Regions(conflict.AnnotateText(path, resolved)))
	if remaining == 0 && stage {
		if err := git.StageFiles(ctx, r.Dir, path); err != nil {
			return 0, err
		}
	}
	return remaining, nil
}

// Checkout takes one side of the merge for whole files and stages them.
func (r *Repo) Checkout(ctx context.Context, side string, paths ...string) error {
	if err := git.CheckoutSide(ctx, r.Dir, side, paths...); err != nil {
		return err
	}
	if err := git.StageFiles(ctx, r.Dir, paths...); err != nil {
		return err
	}
	for _, p := range paths {
		r.recordResolution(ctx, p, -1, "checkout-"+side)
	}
	return nil
}

// Recreate restores conflict markers in the configured style.
func (r *Repo) Recreate(ctx context.Context, paths ...string) error {
	return git.RecreateConflict(ctx, r.Dir, r.cfg.Conflict.Style, paths...)
}

func (r *Repo) recordResolution(ctx context.Context, path string, region int, choice string) {
	if r.store == nil {
		return
	}
	_, err := r.store.RecordResolution(ctx, db.Resolution{Repo: r.Dir, Path: path, RegionIndex: region, Choice: choice})
	if err != nil {
		slog.Warn("record resolution", "path", path, "error", err)
	}
}

// Comments lists open comments on path, or on every file when path is "".
func (r *Repo) Comments(ctx context.Context, path string, includeResolved bool) ([]db.Comment, error) {
	if r.store == nil {
		return nil, nil
	}
	return r.store.ListComments(ctx, r.Dir, path, includeResolved)
}

// AddComment anchors a comment to line li of hunk hi of fd.
func (r *Repo) AddComment(ctx context.Context, fd diff.FileDiff, hi, li int, body string) (string, error) {
	if r.store == nil {
		return "", errors.New("add comment: no comment store")
	}
	a, err := db.AnchorFor(fd, hi, li)
	if err != nil {
		return "", err
	}
	return r.store.AddComment(ctx, r.Dir, a, body)
}
