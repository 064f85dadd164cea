package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// ErrNotExist is returned by Read when the file is absent.
var ErrNotExist = errors.New("storage: file does not exist")

// LocalStorage persists files on disk under a base directory.
type LocalStorage struct {
	fs      afero.Fs
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle on the OS filesystem.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	return NewStorage(afero.NewOsFs(), baseDir)
}

// NewStorage builds storage on an arbitrary afero filesystem (in-memory in tests).
func NewStorage(fsys afero.Fs, baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./data"
	}
	if err := fsys.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{fs: fsys, baseDir: baseDir}, nil
}

// WriteAtomic replaces the file in one step: the bytes land in a sibling temp
// file which is then renamed over the target, so readers never see a partial file.
func (s *LocalStorage) WriteAtomic(filename string, data []byte, perm os.FileMode) error {
	path := s.resolve(filename)
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("prepare storage directory: %w", err)
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := afero.WriteFile(s.fs, tmp, data, perm); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replace %s: %w", filename, err)
	}
	return nil
}

// Read returns the file contents or ErrNotExist.
func (s *LocalStorage) Read(filename string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.resolve(filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	return data, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(filename string) error {
	if err := s.fs.Remove(s.resolve(filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", filename, err)
	}
	return nil
}

// Path exposes the resolved path (useful for debugging).
func (s *LocalStorage) Path(filename string) string {
	return s.resolve(filename)
}

func (s *LocalStorage) resolve(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(s.baseDir, filename)
}
