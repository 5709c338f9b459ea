// Package snapshot persists the pre-migration forum configuration to disk.
// The file doubles as the crash-recovery marker for the config swap protocol.
package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

func (s *FileStore) Load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "snapshot: read %q", s.path)
	}
	var config map[string]string
	if err := json.Unmarshal(raw, &config); err != nil {
		return nil, errors.Wrapf(err, "snapshot: parse %q", s.path)
	}
	if config == nil {
		config = map[string]string{}
	}
	return config, nil
}

func (s *FileStore) Save(config map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrapf(err, "snapshot: mkdir for %q", s.path)
	}
	raw, err := json.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "snapshot: serialize config")
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return errors.Wrapf(err, "snapshot: write %q", s.path)
	}
	return nil
}

func (s *FileStore) Delete() error {
	if err := os.Remove(s.path); err != nil {
		return errors.Wrapf(err, "snapshot: remove %q", s.path)
	}
	return nil
}
