// Package realtime fans store changes out to the UI regions that depend on them,
// both in process (Notifier) and over WebSocket (Hub).
package realtime

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/nhsfuk/dharmic-games/metrics"
)

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Update is the envelope every listener receives.
type Update struct {
	Type      EntityType `json:"type"`
	Action    Action     `json:"action"`
	ID        string     `json:"id,omitempty"`
	Data      any        `json:"data,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Affects   []string   `json:"affects"`
	Degraded  bool       `json:"degraded,omitempty"`
	Notice    string     `json:"notice,omitempty"`
}

// Touches reports whether component should see u.
func (u Update) Touches(component string) bool {
	return component == Wildcard || slices.Contains(u.Affects, component)
}

// Listener handles one update. A returned error is logged, never propagated.
type Listener func(Update) error

type registration struct {
	component string
	listener  Listener
}

// Notifier is the process-wide dispatch point. Construct one in main and pass it
// to whatever publishes or consumes updates.
type Notifier struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]registration
	logger    *slog.Logger
	now       func() time.Time
}

func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		listeners: make(map[uint64]registration),
		logger:    logger,
		now:       time.Now,
	}
}

// NewUpdate builds an envelope with Affects filled from the static table.
func (n *Notifier) NewUpdate(t EntityType, action Action, id string, data any) Update {
	return Update{
		Type:      t,
		Action:    action,
		ID:        id,
		Data:      data,
		Timestamp: n.now().UTC(),
		Affects:   AffectsFor(t),
	}
}

// Subscribe registers listener for component. The returned func removes it and
// is safe to call more than once.
func (n *Notifier) Subscribe(component string, listener Listener) func() {
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.listeners[id] = registration{component: component, listener: listener}
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.listeners, id)
			n.mu.Unlock()
		})
	}
}

// Publish delivers u synchronously, in subscription order, to every listener
// whose component u touches. It returns the number of listeners invoked.
func (n *Notifier) Publish(u Update) int {
	if u.Timestamp.IsZero() {
		u.Timestamp = n.now().UTC()
	}
	if u.Affects == nil {
		u.Affects = AffectsFor(u.Type)
	}

	targets := n.targets(u)
	metrics.UpdatesPublished.WithLabelValues(string(u.Type)).Inc()
	if u.Degraded {
		metrics.DegradedUpdates.WithLabelValues(string(u.Type)).Inc()
	}

	for _, r := range targets {
		if err := deliver(r.listener, u); err != nil {
			metrics.ListenerFailures.WithLabelValues(r.component).Inc()
			n.logger.Error("update listener failed",
				slog.String("component", r.component),
				slog.String("type", string(u.Type)),
				slog.String("action", string(u.Action)),
				slog.Any("error", err),
			)
		}
	}
	return len(targets)
}

func (n *Notifier) targets(u Update) []registration {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]registration, 0, len(n.listeners))
	for id := uint64(1); id <= n.nextID; id++ {
		r, ok := n.listeners[id]
		if ok && u.Touches(r.component) {
			out = append(out, r)
		}
	}
	return out
}

func deliver(l Listener, u Update) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("listener panic: %v", rec)
		}
	}()
	return l(u)
}
