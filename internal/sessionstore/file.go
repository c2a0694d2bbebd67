package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hlong026/WeKnow-design/internal/session"
	"sigs.k8s.io/yaml"
)

// FileStore keeps one snapshot as YAML on disk.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the snapshot file location.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Load(ctx context.Context) (*session.Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, session.ErrNoSnapshot
		}
		return nil, err
	}
	raw, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to convert YAML to JSON: %w", err)
	}
	return session.DecodeSnapshot(raw)
}

func (f *FileStore) Save(ctx context.Context, snap *session.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	data, err := yaml.JSONToYAML(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) Clear(ctx context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (f *FileStore) Close() error {
	return nil
}
