package storage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Storage holds task documents on disk under a validated root. Keys are
// relative paths of the form <task-id>/<uuid>_<name>.
type Storage struct {
	validator *PathValidator
}

func New(root string) (*Storage, error) {
	validator, err := NewPathValidator(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(validator.RootAbs(), 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	return &Storage{validator: validator}, nil
}

func (s *Storage) RootAbs() string {
	return s.validator.RootAbs()
}

func (s *Storage) Resolve(key string) (string, error) {
	return s.validator.ResolveKey(key)
}

// Save streams reader contents to the key's path, creating parent
// directories as needed. Returns the number of bytes written.
func (s *Storage) Save(key string, reader io.Reader) (int64, error) {
	resolved, err := s.Resolve(key)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return 0, fmt.Errorf("create document directory: %w", err)
	}

	file, err := os.OpenFile(resolved, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return 0, fmt.Errorf("create document file %q: %w", key, err)
	}
	defer file.Close()

	written, err := io.Copy(file, reader)
	if err != nil {
		_ = os.Remove(resolved)
		return 0, fmt.Errorf("write document %q: %w", key, err)
	}

	return written, nil
}

func (s *Storage) Open(key string) (*os.File, fs.FileInfo, error) {
	resolved, err := s.Resolve(key)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		return nil, nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, err
	}

	return file, info, nil
}

func (s *Storage) Remove(key string) error {
	resolved, err := s.Resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(resolved); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove document %q: %w", key, err)
	}

	return nil
}
