package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"strings"

	"golang.org/x/sync/errgroup"

	"hunkline/internal/conflict"
	"hunkline/internal/diff"
)

// Pool parses diff segments and conflicted files on up to n goroutines.
type Pool struct {
	n int
}

// NewPool returns a pool of n workers; n <= 0 means one per CPU.
func NewPool(n int) *Pool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return &Pool{n: n}
}

// ParseAll splits raw at file boundaries, parses the segments concurrently
// and returns the files in input order. Segments carrying conflict markers
// are annotated. A segment whose parse panics is logged and skipped.
func (p *Pool) ParseAll(ctx context.Context, raw string) ([]diff.FileDiff, error) {
	segments := diff.SplitSegments(raw)
	results := make([][]diff.FileDiff, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.n)
	for i, seg := range segments {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.parseSegment(i, seg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files := make([]diff.FileDiff, 0, len(segments))
	for _, r := range results {
		files = append(files, r...)
	}
	return files, nil
}

func (p *Pool) parseSegment(idx int, seg string) (files []diff.FileDiff) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("parse worker panic", "segment", idx, "panic", r, "stack", string(debug.Stack()))
			files = nil
		}
	}()

	files = diff.Parse(seg)
	if strings.Contains(seg, "<<<<<<<") {
		for i := range files {
			files[i] = conflict.Annotate(files[i])
		}
	}
	return files
}

// ReadFunc loads the working-tree contents of a repository-relative path.
type ReadFunc func(path string) ([]byte, error)

// AnnotateFiles reads and annotates each path concurrently, in input order.
// The first read error cancels the remaining work.
func (p *Pool) AnnotateFiles(ctx context.Context, read ReadFunc, paths []string) ([]diff.FileDiff, error) {
	results := make([]diff.FileDiff, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.n)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := read(path)
			if err != nil {
				return fmt.Errorf("annotate %s: %w", path, err)
			}
			results[i] = conflict.AnnotateText(path, string(data))
			slog.Debug("annotated file", "path", path, "status", results[i].Status)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
