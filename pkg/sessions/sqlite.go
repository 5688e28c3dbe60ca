package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	username TEXT PRIMARY KEY,
	cookies  TEXT NOT NULL,
	saved_at TEXT NOT NULL
)`

// SQLiteStore keeps records in a sqlite database table
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	// sqlite serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create session table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the record for username
func (s *SQLiteStore) Get(ctx context.Context, username string) (*Record, error) {
	var cookies, savedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT cookies, saved_at FROM sessions WHERE username = ?`, username,
	).Scan(&cookies, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	record := &Record{Username: username}
	if err := json.Unmarshal([]byte(cookies), &record.Cookies); err != nil {
		return nil, fmt.Errorf("failed to parse session cookies: %w", err)
	}
	if record.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
		return nil, fmt.Errorf("failed to parse session time: %w", err)
	}
	return record, nil
}

// Put inserts or replaces the record
func (s *SQLiteStore) Put(ctx context.Context, record *Record) error {
	if err := validate(record); err != nil {
		return err
	}
	cookies, err := json.Marshal(record.Cookies)
	if err != nil {
		return fmt.Errorf("failed to marshal session cookies: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (username, cookies, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET cookies = excluded.cookies, saved_at = excluded.saved_at`,
		record.Username, string(cookies), record.SavedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Delete removes the record for username
func (s *SQLiteStore) Delete(ctx context.Context, username string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE username = ?`, username); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List returns the stored usernames in sorted order
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT username FROM sessions ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
