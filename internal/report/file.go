package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileSink пишет отчёты в локальный каталог.
type FileSink struct {
	Dir string
}

func (s FileSink) Save(_ context.Context, name string, data []byte) (string, error) {
	const op = "report/FileSink.Save"

	dir := s.Dir
	if dir == "" {
		dir = "."
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return path, nil
}
