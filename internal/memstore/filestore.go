package memstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps each named document as <dataDir>/<name>.json.
type FileStore struct {
	dataDir string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the data directory if needed.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("memstore: create data dir: %w", err)
	}
	return &FileStore{dataDir: dataDir}, nil
}

func (f *FileStore) path(name string) string {
	// Document names are internal identifiers, but flatten separators
	// anyway so a name can never escape the data directory.
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	return filepath.Join(f.dataDir, name+".json")
}

// Read implements Store. Missing or corrupt files leave v untouched.
func (f *FileStore) Read(name string, v any) error {
	data, err := os.ReadFile(f.path(name))
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return nil
	}
	return nil
}

// Write implements Store. The document is written to a temp file first and
// renamed into place so a crash mid-write never corrupts the previous copy.
func (f *FileStore) Write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("memstore: marshal %s: %w", name, err)
	}

	target := f.path(name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("memstore: write %s: %w", name, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("memstore: replace %s: %w", name, err)
	}
	return nil
}
