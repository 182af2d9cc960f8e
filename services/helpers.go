package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhsfuk/dharmic-games/store"
)

func newID() string {
	return uuid.NewString()
}

// storeError maps store level failures shared by every service.
func storeError(op string, err error) error {
	if errors.Is(err, store.ErrPermissionDenied) {
		return fmt.Errorf("%w: %s: %w", ErrStorePermissionDenied, op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// cleanList trims entries and drops empty ones and case-insensitive duplicates.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
