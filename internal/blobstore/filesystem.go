package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxNameAttempts bounds the base_N.ext search for a free filename.
const maxNameAttempts = 10000

var _ Store = (*Filesystem)(nil)

// Filesystem stores blobs as plain files in one directory. Keys are the
// stored filenames; a name already taken gets a numeric suffix
// (deck.pptx, deck_1.pptx, deck_2.pptx, ...).
type Filesystem struct {
	dir string
}

// NewFilesystem creates dir if needed and returns a store rooted there.
func NewFilesystem(dir string) (*Filesystem, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &Filesystem{dir: dir}, nil
}

// Put writes data under name, or the first free base_N.ext variant.
func (f *Filesystem) Put(_ context.Context, name string, data []byte) (string, error) {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		// O_EXCL reserves the name so concurrent uploads never share a file.
		file, err := os.OpenFile(filepath.Join(f.dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create blob: %w", err)
		}
		if _, err := file.Write(data); err != nil {
			file.Close()
			os.Remove(file.Name())
			return "", fmt.Errorf("write blob: %w", err)
		}
		if err := file.Close(); err != nil {
			os.Remove(file.Name())
			return "", fmt.Errorf("close blob: %w", err)
		}
		return candidate, nil
	}
	return "", fmt.Errorf("no free name for %q after %d attempts", name, maxNameAttempts)
}

// Get reads the blob stored under key.
func (f *Filesystem) Get(_ context.Context, key string) ([]byte, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// Delete removes the blob stored under key.
func (f *Filesystem) Delete(_ context.Context, key string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("blob %s: %w", key, ErrNotFound)
		}
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// Close is a no-op for the filesystem store.
func (f *Filesystem) Close() error { return nil }

// path resolves a key, rejecting anything that is not a bare filename.
func (f *Filesystem) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || key == ".." || key == "." {
		return "", fmt.Errorf("blob %q: %w", key, ErrNotFound)
	}
	return filepath.Join(f.dir, key), nil
}
