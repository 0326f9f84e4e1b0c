package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const fileMode = 0o644

// writeFile is replaced in tests to simulate a failing disk.
var writeFile = os.WriteFile

// FileStore keeps products in memory and rewrites the whole backing file,
// a pretty-printed JSON array, after every successful mutation.
//
// Only one process should own the file: a concurrent writer elsewhere is
// silently overwritten on the next save.
type FileStore struct {
	*engine
	path string
}

// OpenFileStore creates path holding an empty array when it does not exist
// and loads it. A file that cannot be read or is not a JSON array yields an
// empty store. Records of the array that do not decode as products are
// skipped one by one. Both problems are logged, not returned.
func OpenFileStore(path string, log *zap.Logger) (*FileStore, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if err := ensureFile(path); err != nil {
		return nil, fmt.Errorf("init product file: %w", err)
	}

	items, err := loadProducts(path, log)
	if err != nil {
		log.Warn("product file unreadable, starting empty", zap.String("path", path), zap.Error(err))
		items = nil
	}

	s := &FileStore{path: path}
	s.engine = newEngine(items, s.save, log)

	log.Info("product file loaded",
		zap.String("path", path),
		zap.Int("products", len(s.items)),
		zap.Int64("next_id", s.nextID),
	)
	return s, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Ping(ctx context.Context) error {
	_, err := os.Stat(s.path)
	return err
}

func (s *FileStore) save(items []Product) error {
	if err := writeProducts(s.path, items); err != nil {
		return &SaveError{Path: s.path, Err: err}
	}
	return nil
}

func ensureFile(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte("[]"), fileMode)
}

func loadProducts(path string, log *zap.Logger) ([]Product, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []json.RawMessage
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, err
	}

	items := make([]Product, 0, len(records))
	for i, raw := range records {
		var p Product
		if err := json.Unmarshal(raw, &p); err != nil {
			log.Warn("skipping unreadable product record",
				zap.String("path", path),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		items = append(items, p)
	}
	return items, nil
}

// writeProducts writes to a sibling temp file and renames it over path, so
// readers never observe a half-written array.
func writeProducts(path string, items []Product) error {
	if items == nil {
		items = []Product{}
	}

	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	if err := writeFile(tmp, b, fileMode); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
