package data

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/target/surveystats/internal/core"
	"github.com/target/surveystats/internal/domain/model"
)

// FileResultStore writes each artifact to <dir>/<id>.json.
type FileResultStore struct {
	dir string
}

// NewFileResultStore creates dir if needed and returns a store rooted there.
func NewFileResultStore(dir string) (*FileResultStore, error) {
	if dir == "" {
		return nil, ErrResultStoreNotConfigured
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	return &FileResultStore{dir: dir}, nil
}

func (s *FileResultStore) path(id int64) string {
	return filepath.Join(s.dir, strconv.FormatInt(id, 10)+artifactExt)
}

// Write persists artifact via a temp file and rename so readers never see a partial file.
func (s *FileResultStore) Write(_ context.Context, id int64, artifact []byte) error {
	if err := validateJobID(id); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+strconv.FormatInt(id, 10)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp result: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(artifact); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write result %d: %w", id, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync result %d: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close result %d: %w", id, err)
	}
	if err := os.Rename(tmpName, s.path(id)); err != nil {
		cleanup()
		return fmt.Errorf("publish result %d: %w", id, err)
	}
	return nil
}

// Read loads the artifact for id.
func (s *FileResultStore) Read(_ context.Context, id int64) ([]byte, error) {
	b, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, model.ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read result %d: %w", id, err)
	}
	return b, nil
}

// LastJobID returns the highest id among the published artifacts in the directory.
func (s *FileResultStore) LastJobID(_ context.Context) (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("list results dir: %w", err)
	}
	var last int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := parseJobID(e.Name(), artifactExt); ok {
			last = max(last, id)
		}
	}
	return last, nil
}

var (
	_ core.ResultStore   = (*FileResultStore)(nil)
	_ core.ResultCatalog = (*FileResultStore)(nil)
)
