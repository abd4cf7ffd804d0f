package cadence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps the cadence as the entire contents of a small state file.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed cadence store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Read returns the stored cadence, or the default when the file is absent.
func (s *FileStore) Read(ctx context.Context) (Cadence, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Default, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read cadence file: %w", err)
	}

	value := strings.ToUpper(strings.TrimSpace(string(data)))
	if value == "" {
		return Default, nil
	}
	return Cadence(value), nil
}

// Write overwrites the state file with the new cadence.
func (s *FileStore) Write(ctx context.Context, c Cadence) error {
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create cadence directory: %w", err)
		}
	}

	value := strings.ToUpper(string(c))
	if err := os.WriteFile(s.path, []byte(value+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write cadence file: %w", err)
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}
