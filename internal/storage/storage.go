// Package storage keeps uploaded files (product images) outside the
// database. Documents reference objects by URL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidKey = errors.New("invalid object key")

// Object is a stored file and the URL clients download it from.
type Object struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (Object, error)
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

// ProductImageKey places an image under its owner, named by upload time.
func ProductImageKey(ownerID uuid.UUID, at time.Time, ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("products/%s/%d%s", ownerID, at.UnixMilli(), ext)
}

func cleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	return path.Clean(key), nil
}
