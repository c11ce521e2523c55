package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore — долговременное хранилище в JSON-файле (аналог localStorage).
// Файл создаётся с правами 0600 и перезаписывается атомарно через rename.
type FileStore struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

// NewFileStore открывает файл сессии; отсутствующий файл — пустая сессия.
func NewFileStore(path string) (*FileStore, error) {
	const op = "session/NewFileStore"

	if path == "" {
		return nil, fmt.Errorf("%s: empty path", op)
	}

	s := &FileStore{path: path, data: make(map[string]string)}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(b) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(b, &s.data); err != nil {
		return nil, fmt.Errorf("%s: decode %s: %w", op, path, err)
	}

	if s.data == nil {
		s.data = make(map[string]string)
	}

	return s, nil
}

// Path — путь к файлу сессии.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[key]
	return v, ok, nil
}

func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.data[key]
	s.data[key] = value

	if err := s.flush(); err != nil {
		if had {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return err
	}

	return nil
}

func (s *FileStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := s.data[k]; ok {
			removed[k] = v
			delete(s.data, k)
		}
	}

	if len(removed) == 0 {
		return nil
	}

	if err := s.flush(); err != nil {
		for k, v := range removed {
			s.data[k] = v
		}
		return err
	}

	return nil
}

func (s *FileStore) Close() error { return nil }

// flush пишет снимок во временный файл рядом и переименовывает его.
func (s *FileStore) flush() error {
	const op = "session/FileStore.flush"

	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
