package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"hunkline/internal/diff"
)

var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrInvalidAnchor   = errors.New("comment anchor must name a numbered line")
)

// Anchor pins a comment to one numbered line of a file diff.
type Anchor struct {
	Path       string
	Side       diff.Side
	Line       int
	HunkHeader string
	// Text is the line content without its diff marker, used to find the
	// line again after the diff moves.
	Text string
}

// AnchorFor builds the anchor for line li of hunk hi. Lines with a new-side
// number anchor there; removed lines anchor on the old side.
func AnchorFor(fd diff.FileDiff, hi, li int) (Anchor, error) {
	if hi < 0 || hi >= len(fd.Hunks) || li < 0 || li >= len(fd.Hunks[hi].Lines) {
		return Anchor{}, fmt.Errorf("anchor %s hunk %d line %d: %w", fd.Path(), hi, li, ErrInvalidAnchor)
	}
	h := fd.Hunks[hi]
	l := h.Lines[li]
	a := Anchor{Path: fd.Path(), HunkHeader: h.Header, Text: l.Text()}
	if n, ok := l.Number(diff.SideNew); ok {
		a.Side, a.Line = diff.SideNew, n
		return a, nil
	}
	if n, ok := l.Number(diff.SideOld); ok {
		a.Side, a.Line = diff.SideOld, n
		return a, nil
	}
	return Anchor{}, fmt.Errorf("anchor %s hunk %d line %d (%s): %w", fd.Path(), hi, li, l.Kind, ErrInvalidAnchor)
}

type Comment struct {
	ID         string
	Repo       string
	Path       string
	Side       diff.Side
	Line       int
	HunkHeader string
	AnchorText string
	Body       string
	CreatedAt  string
	ResolvedAt string
}

func (c Comment) Resolved() bool {
	return c.ResolvedAt != ""
}

// Locate finds the comment's line in fd: at its recorded number when the text
// still matches, otherwise at the nearest line on the same side with the
// same text.
func (c Comment) Locate(fd diff.FileDiff) (hunk, line int, ok bool) {
	if hi, li, found := fd.LineAt(c.Side, c.Line); found && fd.Hunks[hi].Lines[li].Text() == c.AnchorText {
		return hi, li, true
	}
	best := -1
	for hi, h := range fd.Hunks {
		for li, l := range h.Lines {
			n, has := l.Number(c.Side)
			if !has || l.Text() != c.AnchorText {
				continue
			}
			dist := n - c.Line
			if dist < 0 {
				dist = -dist
			}
			if best < 0 || dist < best {
				best, hunk, line, ok = dist, hi, li, true
			}
		}
	}
	return hunk, line, ok
}

// AddComment stores a comment on the anchored line and returns its id.
func (s *Store) AddComment(ctx context.Context, repo string, a Anchor, body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("add comment: body is empty")
	}
	id := uuid.NewString()
	const q = `
INSERT INTO comments(id, repo, path, side, line, hunk_header, anchor_text, body, created_at)
VALUES(?,?,?,?,?,?,?,?,?)`
	_, err := s.Writer.ExecContext(ctx, q, id, repo, a.Path, a.Side.String(), a.Line, a.HunkHeader, a.Text, body, nowRFC3339())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintCheck {
			return "", fmt.Errorf("add comment on %s:%d: %w", a.Path, a.Line, ErrInvalidAnchor)
		}
		return "", fmt.Errorf("add comment: %w", err)
	}
	return id, nil
}

// ListComments returns comments for repo, optionally narrowed to one path,
// ordered by path and line.
func (s *Store) ListComments(ctx context.Context, repo, path string, includeResolved bool) ([]Comment, error) {
	q := `
SELECT id, repo, path, side, line, hunk_header, anchor_text, body, created_at, COALESCE(resolved_at, '')
FROM comments WHERE repo = ?`
	args := []any{repo}
	if path != "" {
		q += ` AND path = ?`
		args = append(args, path)
	}
	if !includeResolved {
		q += ` AND resolved_at IS NULL`
	}
	q += ` ORDER BY path ASC, line ASC, created_at ASC`

	rows, err := s.Reader.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetComment loads one comment by id or id prefix.
func (s *Store) GetComment(ctx context.Context, id string) (Comment, error) {
	comments, err := s.findComments(ctx, id)
	if err != nil {
		return Comment{}, err
	}
	switch len(comments) {
	case 0:
		return Comment{}, fmt.Errorf("get comment %s: %w", id, ErrCommentNotFound)
	case 1:
		return comments[0], nil
	default:
		return Comment{}, fmt.Errorf("get comment %s: prefix matches %d comments", id, len(comments))
	}
}

func (s *Store) findComments(ctx context.Context, idPrefix string) ([]Comment, error) {
	idPrefix = strings.TrimSpace(idPrefix)
	if idPrefix == "" {
		return nil, nil
	}
	rows, err := s.Reader.QueryContext(ctx, `
SELECT id, repo, path, side, line, hunk_header, anchor_text, body, created_at, COALESCE(resolved_at, '')
FROM comments WHERE id = ? OR id LIKE ? ORDER BY id LIMIT 2`, idPrefix, idPrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("find comment: %w", err)
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		if c.ID == idPrefix {
			return []Comment{c}, nil
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ResolveComment marks a comment resolved. Resolving twice is a no-op.
func (s *Store) ResolveComment(ctx context.Context, id string) error {
	c, err := s.GetComment(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.Writer.ExecContext(ctx,
		`UPDATE comments SET resolved_at = COALESCE(resolved_at, ?) WHERE id = ?`, nowRFC3339(), c.ID)
	if err != nil {
		return fmt.Errorf("resolve comment %s: %w", c.ID, err)
	}
	return nil
}

// DeleteComment removes a comment.
func (s *Store) DeleteComment(ctx context.Context, id string) error {
	res, err := s.Writer.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete comment %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete comment %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete comment %s: %w", id, ErrCommentNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComment(r rowScanner) (Comment, error) {
	var c Comment
	var side string
	if err := r.Scan(&c.ID, &c.Repo, &c.Path, &side, &c.Line, &c.HunkHeader, &c.AnchorText, &c.Body, &c.CreatedAt, &c.ResolvedAt); err != nil {
		return Comment{}, fmt.Errorf("scan comment: %w", err)
	}
	var err error
	if c.Side, err = diff.ParseSide(side); err != nil {
		return Comment{}, fmt.Errorf("scan comment %s: %w", c.ID, err)
	}
	return c, nil
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
