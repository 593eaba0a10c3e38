package storagesvc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
)

// MemoryFile is a file kept by MemoryStorage.
type MemoryFile struct {
	ContentType string
	Data        []byte
}

// MemoryStorage keeps files in memory. Used in DEV & TEST.
type MemoryStorage struct {
	BaseURL string

	mutex sync.RWMutex
	files map[string]MemoryFile
}

var _ core.FileStorage = (*MemoryStorage)(nil)

func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{BaseURL: baseURL, files: make(map[string]MemoryFile)}
}

func (s *MemoryStorage) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", errors.Wrap(err, "reading file")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.files[key] = MemoryFile{ContentType: contentType, Data: buf.Bytes()}
	return s.URL(key), nil
}

func (s *MemoryStorage) URL(key string) string {
	return fmt.Sprintf("%s/%s", s.BaseURL, key)
}

// File returns the file stored under key.
func (s *MemoryStorage) File(key string) (MemoryFile, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	f, ok := s.files[key]
	return f, ok
}

// Keys returns the keys of every stored file.
func (s *MemoryStorage) Keys() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	keys := make([]string, 0, len(s.files))
	for k := range s.files {
		keys = append(keys, k)
	}
	return keys
}
