// Package store defines the hierarchical document store the rest of the
// application reads and writes through. Paths are slash separated
// ("universities/{id}", "players/{id}") and every document is a JSON object.
//
// Three backends implement Store: Postgres (default, LISTEN/NOTIFY change feed),
// Redis (pub/sub change feed) and an in-memory map used by tests and local runs.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

var (
	ErrNotFound         = errors.New("store: path not found")
	ErrPermissionDenied = errors.New("store: permission denied")
	ErrInvalidPath      = errors.New("store: invalid path")
)

// Action describes what happened to a document.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Change is delivered to subscribers. Value is nil for deletions.
type Change struct {
	Path   string          `json:"path"`
	Action Action          `json:"action"`
	Value  json.RawMessage `json:"value,omitempty"`
	At     time.Time       `json:"at"`
}

// Key returns the last segment of the change path.
func (c Change) Key() string {
	return Base(c.Path)
}

// ChangeFunc receives change notifications. It is called from the backend's
// dispatch goroutine (or synchronously for the memory backend) and must not block
// for long.
type ChangeFunc func(Change)

type Store interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	// List returns the immediate children of path keyed by their last segment.
	List(ctx context.Context, path string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, path string, value any) error
	// Update merges the top-level fields of partial into the existing document.
	Update(ctx context.Context, path string, partial map[string]any) error
	// Remove deletes path and every descendant. Removing a missing path is not an error.
	Remove(ctx context.Context, path string) error
	// Push stores value under a freshly generated key below path and returns the key.
	Push(ctx context.Context, path string, value any) (string, error)
	// SetMany applies all writes atomically. A nil value removes the path.
	SetMany(ctx context.Context, writes map[string]any) error
	// Subscribe registers fn for changes at path or below it.
	Subscribe(path string, fn ChangeFunc) (unsubscribe func())
	Close() error
}

// Join builds a path from segments, skipping empty ones.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// Clean normalises a path and rejects empty segments or wildcard characters.
func Clean(path string) (string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return "", ErrInvalidPath
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." || seg == ".." || strings.ContainsAny(seg, "%*#$[]") {
			return "", ErrInvalidPath
		}
	}
	return path, nil
}

// Parent returns the path one level up, or "" for a top-level path.
func Parent(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}

// Base returns the last segment of a path.
func Base(path string) string {
	i := strings.LastIndex(path, "/")
	return path[i+1:]
}

// Depth counts path segments.
func Depth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, "/") + 1
}

// IsWithin reports whether path equals prefix or lies below it.
func IsWithin(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Decode unmarshals a raw document into dst.
func Decode(raw json.RawMessage, dst any) error {
	return json.Unmarshal(raw, dst)
}

func encode(value any) (json.RawMessage, error) {
	if raw, ok := value.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(value)
}

// mergeDocument applies a shallow merge of partial onto raw.
func mergeDocument(raw json.RawMessage, partial map[string]any) (json.RawMessage, error) {
	doc := map[string]json.RawMessage{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
	}
	for k, v := range partial {
		if v == nil {
			delete(doc, k)
			continue
		}
		b, err := encode(v)
		if err != nil {
			return nil, err
		}
		doc[k] = b
	}
	return json.Marshal(doc)
}
