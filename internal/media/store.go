// Package media stores uploaded source files (video/audio) and hands out
// URLs the remote sync API can fetch them from.
package media

import (
	"context"
	"errors"
	"io"
)

// Store defines operations for persisting uploaded media.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) ([]byte, error)
	GetURL(ctx context.Context, key string) (string, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

var ErrNotFound = errors.New("media object not found")
