// Package imagestore keeps the images users attach to chat messages so a
// session's history can show them again.
package imagestore

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound   = errors.New("image not found")
	ErrInvalidKey = errors.New("invalid image key")
)

type ImageStore interface {
	Save(ctx context.Context, mimeType string, r io.Reader) (key string, err error)
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}
