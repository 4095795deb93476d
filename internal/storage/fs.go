package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const tempPattern = ".zettelnav-tmp-*"

// ErrOutsideRoot is returned for paths that resolve outside the directory.
var ErrOutsideRoot = errors.New("storage: path outside corpus directory")

// FS is a Provider on the local disk.
type FS struct {
	dir string
}

var _ Provider = (*FS)(nil)

// NewFS opens an existing directory.
func NewFS(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	switch {
	case err != nil:
		return nil, fmt.Errorf("storage: open %s: %w", abs, err)
	case !info.IsDir():
		return nil, fmt.Errorf("storage: %s is not a directory", abs)
	}
	return &FS{dir: abs}, nil
}

// Dir returns the absolute directory.
func (f *FS) Dir() string { return f.dir }

// Abs maps a relative path to its location on disk.
func (f *FS) Abs(path string) (string, error) {
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	full := filepath.Join(f.dir, path)
	if full != f.dir && !strings.HasPrefix(full, f.dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return full, nil
}

func (f *FS) Read(path string) ([]byte, error) {
	full, err := f.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

func (f *FS) Write(path string, content []byte) error {
	full, err := f.Abs(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for %s: %w", path, err)
	}
	if err := replaceFile(full, content); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	return nil
}

// replaceFile stages content in a synced sibling temp file and renames it
// over target.
func replaceFile(target string, content []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), tempPattern)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}
