package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"igfeed/pkg/instagram"
)

const (
	tempSuffix     = ".tmp"
	metadataSuffix = ".json"
)

// Asset is one file of a post
type Asset struct {
	// Name is the file name inside the archive directory
	Name string
	URL  string
}

// Assets lists the files of a media in download order. Entries without a URL
// are left out.
func Assets(m instagram.Media) []Asset {
	var out []Asset
	add := func(name, rawURL, fallbackExt string) {
		if rawURL == "" {
			return
		}
		out = append(out, Asset{Name: name + extension(rawURL, fallbackExt), URL: rawURL})
	}

	if len(m.Carousel) > 0 {
		for i, child := range m.Carousel {
			name := fmt.Sprintf("%s_%d", m.ShortCode, i+1)
			if child.Video != nil {
				add(name, videoURL(child.Video), ".mp4")
				continue
			}
			add(name, imageURL(child.Images), ".jpg")
		}
		return out
	}

	if m.Video != nil {
		add(m.ShortCode, videoURL(m.Video), ".mp4")
	}
	add(m.ShortCode, imageURL(m.Images), ".jpg")
	return out
}

func imageURL(img instagram.Images) string {
	for _, u := range []string{img.High, img.Standard, img.Low, img.Thumbnail} {
		if u != "" {
			return u
		}
	}
	return ""
}

func videoURL(v *instagram.Video) string {
	if v.StandardResolutionURL != "" {
		return v.StandardResolutionURL
	}
	if v.LowResolutionURL != "" {
		return v.LowResolutionURL
	}
	return v.LowBandwidthURL
}

// extension takes the file extension from the URL path, ignoring the query
// string CDN URLs are signed with
func extension(rawURL, fallback string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	switch ext := strings.ToLower(path.Ext(u.Path)); ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".heic", ".mp4", ".mov":
		return ext
	default:
		return fallback
	}
}

// Manager handles archive file operations and duplicate detection
type Manager struct {
	dir   string
	saved map[string]bool
	mu    sync.RWMutex
}

// NewManager creates a storage manager for dir, creating it if needed
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	manager := &Manager{
		dir:   dir,
		saved: make(map[string]bool),
	}

	// Scan existing files for duplicate detection
	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

// scanExistingFiles records the assets already present in the directory.
// Leftover temporary files are removed.
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		switch {
		case entry.IsDir(), strings.HasSuffix(name, metadataSuffix):
		case strings.HasSuffix(name, tempSuffix):
			os.Remove(filepath.Join(m.dir, name))
		default:
			m.saved[name] = true
		}
	}
	return nil
}

// Has reports whether the asset file name is already stored
func (m *Manager) Has(name string) bool {
	m.mu.RLock()
	saved := m.saved[name]
	m.mu.RUnlock()
	if saved {
		return true
	}
	if checkName(name) != nil {
		return false
	}

	if _, err := os.Stat(filepath.Join(m.dir, name)); err != nil {
		return false
	}
	m.mu.Lock()
	m.saved[name] = true
	m.mu.Unlock()
	return true
}

// Save stores the asset read from r under name
func (m *Manager) Save(name string, r io.Reader) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := m.writeAtomic(name, r); err != nil {
		return err
	}

	m.mu.Lock()
	m.saved[name] = true
	m.mu.Unlock()
	return nil
}

// SaveMetadata writes the media record as <code>.json, replacing an older one
func (m *Manager) SaveMetadata(media instagram.Media) error {
	if media.ShortCode == "" {
		return fmt.Errorf("media %q has no short code", media.ID)
	}
	data, err := json.MarshalIndent(media, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	name := media.ShortCode + metadataSuffix
	if err := checkName(name); err != nil {
		return err
	}
	return m.writeAtomic(name, bytes.NewReader(data))
}

func (m *Manager) writeAtomic(name string, r io.Reader) error {
	filename := filepath.Join(m.dir, name)

	tempFile := filename + tempSuffix
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// checkName keeps every write inside the archive directory
func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid asset name %q", name)
	}
	return nil
}

// Dir returns the archive directory path
func (m *Manager) Dir() string {
	return m.dir
}

// Count returns the number of stored assets
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.saved)
}
