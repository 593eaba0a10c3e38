package core

import (
	"context"
	"io"
)

// FileStorage stores uploaded files and returns their public URL.
type FileStorage interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}
