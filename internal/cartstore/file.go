package cartstore

import (
	"fmt"
	"os"
	"path/filepath"

	"storefront/internal/models"
)

const cartFileName = "cart.json"

// FileStore mirrors the cart to a JSON file under a profile-local data
// directory. This is the default backend for a single-profile deployment.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed cart store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, cartFileName)}, nil
}

// Load reads the last-saved cart. A missing file or corrupt content reads
// as an empty cart.
func (s *FileStore) Load() []models.CartLine {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	return decodeLines(data)
}

// Save overwrites the stored cart with a full serialization. The write goes
// through a temp file and rename so a crash mid-write cannot leave a
// half-written mirror behind.
func (s *FileStore) Save(lines []models.CartLine) error {
	data, err := encodeLines(lines)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cart mirror: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace cart mirror: %w", err)
	}
	return nil
}

// Clear removes the stored cart entirely.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cart mirror: %w", err)
	}
	return nil
}
