package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
)

// MemoryUploader keeps objects in memory. It backs local runs without R2
// credentials and the tests.
type MemoryUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	base    *url.URL
}

func NewMemoryUploader(publicBaseURL string) *MemoryUploader {
	base, _ := url.Parse(publicBaseURL + "/")
	return &MemoryUploader{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
		base:    base,
	}
}

func (u *MemoryUploader) Upload(_ context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("failed to read upload body (key: %s): %w", key, err)
	}
	u.mu.Lock()
	u.objects[key] = buf.Bytes()
	u.types[key] = contentType
	u.mu.Unlock()
	return &UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *MemoryUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	delete(u.objects, key)
	delete(u.types, key)
	u.mu.Unlock()
	return nil
}

func (u *MemoryUploader) GetPublicURL(key string) string {
	return publicURL(u.base, key)
}

// Object returns a stored object and its content type.
func (u *MemoryUploader) Object(key string) ([]byte, string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	b, ok := u.objects[key]
	return b, u.types[key], ok
}
