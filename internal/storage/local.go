package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// LocalFileStore keeps files in a single directory of an afero filesystem.
type LocalFileStore struct {
	fs  afero.Fs
	dir string
}

// NewLocalFileStore stores files under dir on the OS filesystem.
func NewLocalFileStore(dir string) *LocalFileStore {
	return NewLocalFileStoreFs(afero.NewOsFs(), dir)
}

// NewLocalFileStoreFs stores files under dir on fs.
func NewLocalFileStoreFs(fs afero.Fs, dir string) *LocalFileStore {
	return &LocalFileStore{fs: fs, dir: dir}
}

func (s *LocalFileStore) path(name string) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}

// Save writes r to name, creating the upload directory on first use.
func (s *LocalFileStore) Save(_ context.Context, name string, r io.Reader) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.dir, err)
	}
	if err := afero.WriteReader(s.fs, p, r); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Open returns a reader for name.
func (s *LocalFileStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// Remove deletes name if it exists.
func (s *LocalFileStore) Remove(_ context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// Exists reports whether name is present.
func (s *LocalFileStore) Exists(name string) (bool, error) {
	p, err := s.path(name)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, p)
}
