// Package file provides a JSON-file-per-key implementation of the storage
// capability, the closest analog to the host webview's localStorage.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KVStore persists each key as one file under dir. Writes go through a
// temp file and rename so a crash never leaves a half-written payload.
type KVStore struct {
	dir string
}

func NewKVStore(dir string) (*KVStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &KVStore{dir: dir}, nil
}

func (s *KVStore) Get(_ context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return string(data), true, nil
}

func (s *KVStore) Set(_ context.Context, key, value string) error {
	target := s.path(key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

func (s *KVStore) path(key string) string {
	// keys use a ":" namespace; flatten for the filesystem
	name := strings.NewReplacer(":", "_", "/", "_").Replace(key)
	return filepath.Join(s.dir, name+".json")
}
