package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"igfeed/pkg/instagram"
	"igfeed/pkg/logger"
)

// Checkpoint is how far one feed of one target has been read
type Checkpoint struct {
	Feed      string           `json:"feed"`
	Target    string           `json:"target"`
	Cursor    instagram.Cursor `json:"cursor"`
	Fetched   int              `json:"fetched"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Version   int              `json:"version"`
}

const formatVersion = 1

// Exhausted reports whether the feed was read to its end
func (c *Checkpoint) Exhausted() bool {
	return !c.Cursor.IsZero() && !c.Cursor.HasMore
}

// Manager stores one JSON file per feed and target in a directory
type Manager struct {
	dir string
	log logger.Logger
}

func NewManager(dir string, log logger.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{dir: dir, log: log.WithField("component", "checkpoint")}, nil
}

func fileSafe(r rune) rune {
	if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune(".-_", r) {
		return r
	}
	return '_'
}

// file maps a feed and target to its checkpoint file. Targets that differ
// only in unsafe characters share a file; Load tells them apart.
func (m *Manager) file(feed, target string) string {
	return filepath.Join(m.dir, feed+"_"+strings.Map(fileSafe, target)+".checkpoint.json")
}

// Load returns the checkpoint of a feed, or nil, nil when there is none
func (m *Manager) Load(feed, target string) (*Checkpoint, error) {
	data, err := os.ReadFile(m.file(feed, target))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	cp := new(Checkpoint)
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if cp.Feed != feed || cp.Target != target {
		return nil, nil
	}

	m.log.DebugWithFields("Checkpoint loaded", map[string]interface{}{
		"feed":     feed,
		"target":   target,
		"fetched":  cp.Fetched,
		"has_more": cp.Cursor.HasMore,
	})
	return cp, nil
}

// Record moves a feed's checkpoint to cursor and adds fetched to its total,
// creating the checkpoint on first use
func (m *Manager) Record(feed, target string, cursor instagram.Cursor, fetched int) (*Checkpoint, error) {
	cp, err := m.Load(feed, target)
	if err != nil {
		return nil, err
	}
	if cp == nil {
		cp = &Checkpoint{Feed: feed, Target: target, CreatedAt: time.Now(), Version: formatVersion}
	}
	cp.Cursor = cursor
	cp.Fetched += fetched
	if err := m.Save(cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// Save writes cp, replacing any previous file in one rename
func (m *Manager) Save(cp *Checkpoint) error {
	cp.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := writeFileAtomic(m.file(cp.Feed, cp.Target), data); err != nil {
		return err
	}
	m.log.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"feed":    cp.Feed,
		"target":  cp.Target,
		"fetched": cp.Fetched,
		"cursor":  cp.Cursor.Value,
	})
	return nil
}

// Delete forgets a feed's position. Deleting a missing checkpoint is not an error.
func (m *Manager) Delete(feed, target string) error {
	err := os.Remove(m.file(feed, target))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	m.log.DebugWithFields("Checkpoint deleted", map[string]interface{}{"feed": feed, "target": target})
	return nil
}

func (m *Manager) Exists(feed, target string) bool {
	_, err := os.Stat(m.file(feed, target))
	return err == nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}
