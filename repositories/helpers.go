package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/nhsfuk/dharmic-games/store"
)

// Batch collects writes to several documents and commits them in one
// atomic SetMany.
type Batch struct {
	st     store.Store
	writes map[string]any
}

func NewBatch(st store.Store) *Batch {
	return &Batch{st: st, writes: make(map[string]any)}
}

func (b *Batch) Set(path string, value any) {
	b.writes[path] = value
}

// Remove deletes path and its subtree when the batch commits.
func (b *Batch) Remove(path string) {
	b.writes[path] = nil
}

func (b *Batch) Len() int {
	return len(b.writes)
}

// Paths returns the staged paths in order.
func (b *Batch) Paths() []string {
	out := make([]string, 0, len(b.writes))
	for p := range b.writes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (b *Batch) Commit(ctx context.Context) error {
	if len(b.writes) == 0 {
		return nil
	}
	if err := b.st.SetMany(ctx, b.writes); err != nil {
		return fmt.Errorf("commit %d writes: %w", len(b.writes), err)
	}
	return nil
}

// mapStoreError turns store lookups that cannot match a document into notFound.
func mapStoreError(err, notFound error) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidPath) {
		return notFound
	}
	return err
}

func getDocument[T any](ctx context.Context, st store.Store, path string, notFound error) (*T, error) {
	raw, err := st.Get(ctx, path)
	if err != nil {
		return nil, mapStoreError(err, notFound)
	}
	var v T
	if err := store.Decode(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &v, nil
}

type keyed[T any] struct {
	Key   string
	Value T
}

// listDocuments decodes the children of path in key order. Children that are
// not valid documents of type T are skipped.
func listDocuments[T any](ctx context.Context, st store.Store, path string) ([]keyed[T], error) {
	children, err := st.List(ctx, path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	keys := make([]string, 0, len(children))
	for k := range children {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]keyed[T], 0, len(keys))
	for _, k := range keys {
		var v T
		if err := store.Decode(children[k], &v); err != nil {
			continue
		}
		out = append(out, keyed[T]{Key: k, Value: v})
	}
	return out, nil
}

func values[T any](in []keyed[T]) []T {
	out := make([]T, len(in))
	for i, kv := range in {
		out[i] = kv.Value
	}
	return out
}

func exists(ctx context.Context, st store.Store, path string) (bool, error) {
	_, err := st.Get(ctx, path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return false, err
}
