// Package local implements store.Store on the local filesystem.
package local

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kbukum/gfnkit/errors"
	"github.com/kbukum/gfnkit/logger"
	"github.com/kbukum/gfnkit/store"
)

func init() {
	store.RegisterFactory(store.ProviderLocal, func(_ context.Context, cfg store.Config, log *logger.Logger) (store.Store, error) {
		s, err := NewStore(cfg.BasePath)
		if err != nil {
			return nil, err
		}
		log.Debug("local store ready", logger.Fields("base_path", s.basePath))
		return s, nil
	})
}

// Store keeps each object as a file under a base directory.
type Store struct {
	basePath string
}

// NewStore creates the base directory if needed and returns a store rooted there.
func NewStore(basePath string) (*Store, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, errors.IO("resolve", basePath, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, errors.IO("create", abs, err)
	}
	return &Store{basePath: abs}, nil
}

// BasePath returns the absolute root directory.
func (s *Store) BasePath() string { return s.basePath }

// fullPath maps key to a file below the base directory. Keys that would
// escape it are rejected.
func (s *Store) fullPath(key string) (string, error) {
	key = strings.TrimSpace(key)
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", errors.InvalidInput("key", "object key must not contain ..")
		}
	}
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", errors.InvalidInput("key", "empty object key")
	}
	return filepath.Join(s.basePath, filepath.FromSlash(clean[1:])), nil
}

// Put writes data to a temporary file and renames it into place, so readers
// never observe a partial archive.
func (s *Store) Put(_ context.Context, key string, data []byte) error {
	full, err := s.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return errors.IO("create", filepath.Dir(full), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return errors.IO("write", key, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // write error takes precedence
		return errors.IO("write", key, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.IO("write", key, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return errors.IO("write", key, err)
	}
	return nil
}

// Get reads the file stored under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	full, err := s.fullPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, errors.IO("read", key, err)
	}
	return data, nil
}

// Delete removes the file stored under key. Returns nil if it does not exist.
func (s *Store) Delete(_ context.Context, key string) error {
	full, err := s.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return errors.IO("delete", key, err)
	}
	return nil
}

// Exists checks whether a file is stored under key.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	full, err := s.fullPath(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.IO("stat", key, err)
	}
	return !info.IsDir(), nil
}

// List returns every file whose slash-separated relative path starts with prefix.
func (s *Store) List(_ context.Context, prefix string) ([]store.ObjectInfo, error) {
	objects := []store.ObjectInfo{}
	err := filepath.WalkDir(s.basePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, store.ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, errors.IO("list", prefix, err)
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].Key < objects[j].Key
	})
	return objects, nil
}

// compile-time check
var _ store.Store = (*Store)(nil)
