// Package storage holds the object storage used for university logos.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

var ErrUnsupportedContentType = errors.New("unsupported content type")

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

var logoExtensions = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// LogoKey builds the object key for a university logo upload.
func LogoKey(universityID, contentType string, at time.Time) (string, error) {
	ext, ok := logoExtensions[strings.ToLower(contentType)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContentType, contentType)
	}
	return path.Join("logos", "universities", universityID, fmt.Sprintf("%d%s", at.Unix(), ext)), nil
}
