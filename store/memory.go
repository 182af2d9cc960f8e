package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/nhsfuk/dharmic-games/metrics"
)

const backendMemory = "memory"

// MemoryStore keeps documents in a map. Changes are delivered synchronously
// after the write lock is released.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]json.RawMessage
	denied []string
	subs   *subscribers
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]json.RawMessage),
		subs: newSubscribers(),
		now:  time.Now,
	}
}

// Deny makes every operation on prefix (and below) fail with ErrPermissionDenied.
func (m *MemoryStore) Deny(prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied = append(m.denied, strings.Trim(prefix, "/"))
}

// Allow lifts every Deny.
func (m *MemoryStore) Allow() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied = nil
}

func (m *MemoryStore) checkAccess(path string) error {
	for _, p := range m.denied {
		if IsWithin(path, p) {
			return ErrPermissionDenied
		}
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, path string) (raw json.RawMessage, err error) {
	defer func() { metrics.ObserveStoreOp(backendMemory, "get", err) }()
	path, err = Clean(path)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkAccess(path); err != nil {
		return nil, err
	}
	doc, ok := m.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRaw(doc), nil
}

func (m *MemoryStore) List(_ context.Context, path string) (children map[string]json.RawMessage, err error) {
	defer func() { metrics.ObserveStoreOp(backendMemory, "list", err) }()
	path, err = Clean(path)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkAccess(path); err != nil {
		return nil, err
	}
	children = make(map[string]json.RawMessage)
	for p, doc := range m.docs {
		if Parent(p) == path {
			children[Base(p)] = copyRaw(doc)
		}
	}
	return children, nil
}

func (m *MemoryStore) Set(ctx context.Context, path string, value any) error {
	return m.SetMany(ctx, map[string]any{path: value})
}

func (m *MemoryStore) Update(_ context.Context, path string, partial map[string]any) (err error) {
	defer func() { metrics.ObserveStoreOp(backendMemory, "update", err) }()
	path, err = Clean(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if err := m.checkAccess(path); err != nil {
		m.mu.Unlock()
		return err
	}
	existing, ok := m.docs[path]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	merged, err := mergeDocument(existing, partial)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.docs[path] = merged
	m.mu.Unlock()

	m.subs.dispatch(Change{Path: path, Action: ActionUpdated, Value: copyRaw(merged), At: m.now()})
	return nil
}

func (m *MemoryStore) Remove(ctx context.Context, path string) error {
	return m.SetMany(ctx, map[string]any{path: nil})
}

func (m *MemoryStore) Push(ctx context.Context, path string, value any) (string, error) {
	key := uuid.NewString()
	if err := m.Set(ctx, Join(path, key), value); err != nil {
		return "", err
	}
	return key, nil
}

func (m *MemoryStore) SetMany(_ context.Context, writes map[string]any) (err error) {
	defer func() { metrics.ObserveStoreOp(backendMemory, "set", err) }()

	paths := make([]string, 0, len(writes))
	encoded := make(map[string]json.RawMessage, len(writes))
	for p, v := range writes {
		clean, err := Clean(p)
		if err != nil {
			return err
		}
		paths = append(paths, clean)
		if v == nil {
			continue
		}
		raw, err := encode(v)
		if err != nil {
			return err
		}
		encoded[clean] = raw
	}
	sort.Strings(paths)

	m.mu.Lock()
	for _, p := range paths {
		if err := m.checkAccess(p); err != nil {
			m.mu.Unlock()
			return err
		}
	}

	now := m.now()
	var changes []Change
	for _, p := range paths {
		raw, isWrite := encoded[p]
		if !isWrite {
			removed := make([]string, 0)
			for existing := range m.docs {
				if IsWithin(existing, p) {
					removed = append(removed, existing)
				}
			}
			sort.Strings(removed)
			for _, r := range removed {
				delete(m.docs, r)
				changes = append(changes, Change{Path: r, Action: ActionDeleted, At: now})
			}
			continue
		}
		action := ActionCreated
		if _, ok := m.docs[p]; ok {
			action = ActionUpdated
		}
		m.docs[p] = raw
		changes = append(changes, Change{Path: p, Action: action, Value: copyRaw(raw), At: now})
	}
	m.mu.Unlock()

	m.subs.dispatch(changes...)
	return nil
}

func (m *MemoryStore) Subscribe(path string, fn ChangeFunc) func() {
	return m.subs.add(strings.Trim(path, "/"), fn)
}

func (m *MemoryStore) Close() error { return nil }

func copyRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
