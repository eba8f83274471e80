package db

import (
	"fmt"
	"strings"
)

const schemaVersion = 1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER NOT NULL,
    applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE TABLE IF NOT EXISTS comments (
    id          TEXT PRIMARY KEY,
    repo        TEXT NOT NULL,
    path        TEXT NOT NULL,
    side        TEXT NOT NULL CHECK(side IN ('old', 'new')),
    line        INTEGER NOT NULL CHECK(line > 0),
    hunk_header TEXT NOT NULL DEFAULT '',
    anchor_text TEXT NOT NULL DEFAULT '',
    body        TEXT NOT NULL CHECK(length(trim(body)) > 0),
    created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
    resolved_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_comments_repo_path ON comments(repo, path);

CREATE TABLE IF NOT EXISTS resolutions (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    repo         TEXT NOT NULL,
    path         TEXT NOT NULL,
    region_index INTEGER NOT NULL CHECK(region_index >= -1),
    choice       TEXT NOT NULL CHECK(choice IN ('ours', 'theirs', 'both', 'none', 'checkout-ours', 'checkout-theirs')),
    created_at   TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_resolutions_repo_path ON resolutions(repo, path);
`

func (s *Store) createSchema() error {
	if _, err := s.Writer.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	var count int
	if err := s.Writer.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		return fmt.Errorf("check schema version: %w", err)
	}
	if count == 0 {
		if _, err := s.Writer.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("insert schema version: %w", err)
		}
	}
	return nil
}

func (s *Store) tableSQL(table string) (string, error) {
	var sqlText string
	if err := s.Reader.QueryRow(`SELECT COALESCE(sql,'') FROM sqlite_master WHERE type='table' AND name = ?`, table).Scan(&sqlText); err != nil {
		return "", fmt.Errorf("load %s table SQL: %w", table, err)
	}
	return strings.ToLower(sqlText), nil
}
