package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var _ OffsetStore = (*FileStore)(nil)

// FileStore keeps the offset as decimal text in a single file.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) ReadOffset(_ context.Context) (int64, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	text := strings.TrimSpace(string(raw))
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, &ParseError{Source: s.path, Raw: text, Err: err}
	}
	return v, nil
}

func (s *FileStore) WriteOffset(_ context.Context, seconds int64) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &WriteError{Source: s.path, Err: err}
		}
	}
	if err := os.WriteFile(s.path, []byte(strconv.FormatInt(seconds, 10)), 0o644); err != nil {
		return &WriteError{Source: s.path, Err: err}
	}
	return nil
}
