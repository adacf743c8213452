package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore keeps the table as a single JSON document on disk.
type FileStore struct {
	path   string
	logger *slog.Logger
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:   path,
		logger: slog.Default().With("component", "feedback-file", "path", path),
	}
}

// Load reads the table. A missing file is an empty table; so is a file
// that fails to parse, which is logged and left in place until the next
// Save overwrites it.
func (s *FileStore) Load(ctx context.Context) (Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading feedback file: %w", err)
	}
	t := Table{}
	if err := json.Unmarshal(data, &t); err != nil {
		s.logger.Warn("feedback file is corrupt, starting empty", "error", err)
		return Table{}, nil
	}
	for kw, docs := range t {
		if docs == nil {
			delete(t, kw)
		}
	}
	return t, nil
}

// Save writes the table to a temporary file in the same directory and
// renames it over the previous copy.
func (s *FileStore) Save(ctx context.Context, t Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding feedback: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating feedback dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".feedback-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing feedback: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing feedback: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing feedback temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing feedback file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
