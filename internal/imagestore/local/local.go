package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vbonduro/breedchat/internal/imagestore"
)

// extensions maps the image types chat uploads are sniffed as onto the file
// extension a key carries. Anything else is stored as jpeg.
var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store keeps each image in its own file under dir. A key is the file name:
// a random uuid followed by the extension for its MIME type.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Save streams r into a temporary file and renames it into place, so a
// reader never sees a partially written image.
func (s *Store) Save(ctx context.Context, mimeType string, r io.Reader) (string, error) {
	ext, ok := extensions[mimeType]
	if !ok {
		ext = extensions["image/jpeg"]
	}
	key := uuid.NewString() + ext

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp image: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		return "", discard(tmp, fmt.Errorf("failed to write image: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return "", discard(nil, fmt.Errorf("failed to flush image %s: %w", tmp.Name(), err), tmp.Name())
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, key)); err != nil {
		return "", discard(nil, fmt.Errorf("failed to store image: %w", err), tmp.Name())
	}
	return key, nil
}

// discard cleans up after a failed Save and folds any cleanup failure into
// cause.
func discard(f *os.File, cause error, paths ...string) error {
	errs := []error{cause}
	if f != nil {
		errs = append(errs, f.Close())
		paths = append(paths, f.Name())
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	path, mimeType, err := s.resolve(key)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", imagestore.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image %s: %w", key, err)
	}
	return f, mimeType, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	path, _, err := s.resolve(key)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return imagestore.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete image %s: %w", key, err)
	}
	return nil
}

// resolve accepts only keys Save can produce, which keeps every lookup
// inside dir, and returns the file path and MIME type for key.
func (s *Store) resolve(key string) (string, string, error) {
	ext := filepath.Ext(key)
	if _, err := uuid.Parse(strings.TrimSuffix(key, ext)); err != nil {
		return "", "", imagestore.ErrInvalidKey
	}
	for mimeType, e := range extensions {
		if e == ext {
			return filepath.Join(s.dir, key), mimeType, nil
		}
	}
	return "", "", imagestore.ErrInvalidKey
}
