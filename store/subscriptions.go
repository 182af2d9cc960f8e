package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/nhsfuk/dharmic-games/metrics"
)

type subscription struct {
	id     uint64
	prefix string
	fn     ChangeFunc
}

// subscribers is the path-prefix registry shared by all backends.
type subscribers struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]subscription
}

func newSubscribers() *subscribers {
	return &subscribers{subs: make(map[uint64]subscription)}
}

func (s *subscribers) add(prefix string, fn ChangeFunc) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = subscription{id: id, prefix: prefix, fn: fn}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *subscribers) matching(path string) []ChangeFunc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fns := make([]ChangeFunc, 0, len(s.subs))
	// Stable order keeps delivery deterministic across calls.
	for id := uint64(1); id <= s.nextID; id++ {
		sub, ok := s.subs[id]
		if !ok {
			continue
		}
		if IsWithin(path, sub.prefix) {
			fns = append(fns, sub.fn)
		}
	}
	return fns
}

func (s *subscribers) any(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if IsWithin(path, sub.prefix) {
			return true
		}
	}
	return false
}

func (s *subscribers) dispatch(changes ...Change) {
	for _, c := range changes {
		for _, fn := range s.matching(c.Path) {
			fn(c)
		}
	}
}

type notificationPayload struct {
	Path   string `json:"path"`
	Action Action `json:"action"`
}

// dispatchNotification turns a {path, action} notification from a remote change
// feed into a Change, re-reading the document for creates and updates.
func dispatchNotification(
	ctx context.Context,
	subs *subscribers,
	get func(context.Context, string) (json.RawMessage, error),
	payload string,
	backend string,
	logger *slog.Logger,
	at time.Time,
) {
	var p notificationPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		logger.Warn("malformed store notification", slog.String("payload", payload), slog.Any("error", err))
		return
	}
	if !subs.any(p.Path) {
		return
	}

	change := Change{Path: p.Path, Action: p.Action, At: at}
	if p.Action != ActionDeleted {
		raw, err := get(ctx, p.Path)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				logger.Warn("failed to load changed document", slog.String("path", p.Path), slog.Any("error", err))
			}
			return
		}
		change.Value = raw
	}
	metrics.StoreChangesDispatched.WithLabelValues(backend, string(p.Action)).Inc()
	subs.dispatch(change)
}
