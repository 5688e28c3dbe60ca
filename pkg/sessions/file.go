package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const fileExt = ".json"

// FileStore keeps one JSON file per username in a directory
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore creates a file store rooted at dir, creating it if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(username string) (string, error) {
	if username == "" || username != filepath.Base(username) || strings.HasPrefix(username, ".") {
		return "", ErrInvalidRecord
	}
	return filepath.Join(f.dir, username+fileExt), nil
}

// Get reads the record for username
func (f *FileStore) Get(_ context.Context, username string) (*Record, error) {
	p, err := f.path(username)
	if err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	content, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var record Record
	if err := json.Unmarshal(content, &record); err != nil {
		return nil, fmt.Errorf("failed to parse session file %s: %w", p, err)
	}
	return &record, nil
}

// Put writes the record through a temporary file so readers never see a
// partial write
func (f *FileStore) Put(_ context.Context, record *Record) error {
	if err := validate(record); err != nil {
		return err
	}
	p, err := f.path(record.Username)
	if err != nil {
		return err
	}

	content, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, content, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return os.Rename(tmp, p)
}

// Delete removes the file for username
func (f *FileStore) Delete(_ context.Context, username string) error {
	p, err := f.path(username)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List returns the usernames with a session file
func (f *FileStore) List(_ context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), fileExt))
	}
	sort.Strings(names)
	return names, nil
}
