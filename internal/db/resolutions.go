package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrInvalidResolution is returned for a choice or region index the
// resolutions table does not accept.
var ErrInvalidResolution = errors.New("invalid resolution")

// Resolution records how a conflict region (or, with RegionIndex -1, a whole
// file) was resolved.
type Resolution struct {
	ID          int64
	Repo        string
	Path        string
	RegionIndex int
	Choice      string
	CreatedAt   string
}

func (s *Store) RecordResolution(ctx context.Context, r Resolution) (int64, error) {
	res, err := s.Writer.ExecContext(ctx, `
INSERT INTO resolutions(repo, path, region_index, choice, created_at)
VALUES(?, ?, ?, ?, ?)`, r.Repo, r.Path, r.RegionIndex, r.Choice, nowRFC3339())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintCheck {
			return 0, fmt.Errorf("record resolution %q for %s region %d: %w", r.Choice, r.Path, r.RegionIndex, ErrInvalidResolution)
		}
		return 0, fmt.Errorf("record resolution for %s: %w", r.Path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record resolution for %s: %w", r.Path, err)
	}
	return id, nil
}

// ListResolutions returns resolutions for repo, newest first; an empty path
// lists every file.
func (s *Store) ListResolutions(ctx context.Context, repo, path string, limit int) ([]Resolution, error) {
	q := `SELECT id, repo, path, region_index, choice, created_at FROM resolutions WHERE repo = ?`
	args := []any{repo}
	if path != "" {
		q += ` AND path = ?`
		args = append(args, path)
	}
	q += ` ORDER BY id DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.Reader.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list resolutions: %w", err)
	}
	defer rows.Close()

	var out []Resolution
	for rows.Next() {
		var r Resolution
		if err := rows.Scan(&r.ID, &r.Repo, &r.Path, &r.RegionIndex, &r.Choice, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan resolution: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
