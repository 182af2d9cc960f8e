package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/nhsfuk/dharmic-games/metrics"
)

const backendRedis = "redis"

// RedisStore keeps each document as a JSON string and tracks the tree shape with
// one set of child segments per parent path. Writes publish {path, action} on a
// pub/sub channel that Listen turns into Changes.
type RedisStore struct {
	c       *goredis.Client
	prefix  string
	subs    *subscribers
	logger  *slog.Logger
	now     func() time.Time
	channel string
}

func NewRedisStore(c *goredis.Client, keyPrefix string, logger *slog.Logger) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "dg"
	}
	return &RedisStore{
		c:       c,
		prefix:  keyPrefix,
		subs:    newSubscribers(),
		logger:  logger,
		now:     time.Now,
		channel: keyPrefix + ":changes",
	}
}

func (s *RedisStore) docKey(path string) string      { return s.prefix + ":doc:" + path }
func (s *RedisStore) childrenKey(path string) string { return s.prefix + ":children:" + path }

func (s *RedisStore) Get(ctx context.Context, path string) (raw json.RawMessage, err error) {
	defer func() { metrics.ObserveStoreOp(backendRedis, "get", err) }()
	path, err = Clean(path)
	if err != nil {
		return nil, err
	}
	b, err := s.c.Get(ctx, s.docKey(path)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return json.RawMessage(b), nil
}

func (s *RedisStore) List(ctx context.Context, path string) (children map[string]json.RawMessage, err error) {
	defer func() { metrics.ObserveStoreOp(backendRedis, "list", err) }()
	path, err = Clean(path)
	if err != nil {
		return nil, err
	}
	members, err := s.c.SMembers(ctx, s.childrenKey(path)).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	children = make(map[string]json.RawMessage, len(members))
	if len(members) == 0 {
		return children, nil
	}
	sort.Strings(members)
	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = s.docKey(Join(path, m))
	}
	values, err := s.c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// Intermediate segment without its own document.
			continue
		}
		children[members[i]] = json.RawMessage(str)
	}
	return children, nil
}

func (s *RedisStore) Set(ctx context.Context, path string, value any) error {
	return s.SetMany(ctx, map[string]any{path: value})
}

func (s *RedisStore) Update(ctx context.Context, path string, partial map[string]any) (err error) {
	defer func() { metrics.ObserveStoreOp(backendRedis, "update", err) }()
	path, err = Clean(path)
	if err != nil {
		return err
	}
	key := s.docKey(path)

	return s.c.Watch(ctx, func(tx *goredis.Tx) error {
		existing, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return ErrNotFound
			}
			return fmt.Errorf("update %s: %w", path, err)
		}
		merged, err := mergeDocument(existing, partial)
		if err != nil {
			return fmt.Errorf("update %s: merge: %w", path, err)
		}
		payload, _ := json.Marshal(notificationPayload{Path: path, Action: ActionUpdated})
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, string(merged), 0)
			pipe.Publish(ctx, s.channel, string(payload))
			return nil
		})
		return err
	}, key)
}

func (s *RedisStore) Remove(ctx context.Context, path string) error {
	return s.SetMany(ctx, map[string]any{path: nil})
}

func (s *RedisStore) Push(ctx context.Context, path string, value any) (string, error) {
	key := uuid.NewString()
	if err := s.Set(ctx, Join(path, key), value); err != nil {
		return "", err
	}
	return key, nil
}

func (s *RedisStore) SetMany(ctx context.Context, writes map[string]any) (err error) {
	defer func() { metrics.ObserveStoreOp(backendRedis, "set", err) }()

	paths := make([]string, 0, len(writes))
	encoded := make(map[string]json.RawMessage, len(writes))
	for p, v := range writes {
		clean, cerr := Clean(p)
		if cerr != nil {
			return cerr
		}
		paths = append(paths, clean)
		if v == nil {
			continue
		}
		raw, eerr := encode(v)
		if eerr != nil {
			return fmt.Errorf("encode %s: %w", clean, eerr)
		}
		encoded[clean] = raw
	}
	sort.Strings(paths)

	// Read phase: existence for created/updated and the subtrees to remove.
	existed := make(map[string]bool, len(paths))
	removals := make(map[string][]string)
	for _, p := range paths {
		if _, isWrite := encoded[p]; isWrite {
			n, xerr := s.c.Exists(ctx, s.docKey(p)).Result()
			if xerr != nil {
				return fmt.Errorf("exists %s: %w", p, xerr)
			}
			existed[p] = n > 0
			continue
		}
		subtree, serr := s.subtree(ctx, p)
		if serr != nil {
			return serr
		}
		removals[p] = subtree
	}

	_, err = s.c.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, p := range paths {
			if subtree, isRemoval := removals[p]; isRemoval {
				for _, d := range subtree {
					pipe.Del(ctx, s.docKey(d), s.childrenKey(d))
					payload, _ := json.Marshal(notificationPayload{Path: d, Action: ActionDeleted})
					pipe.Publish(ctx, s.channel, string(payload))
				}
				if parent := Parent(p); parent != "" {
					pipe.SRem(ctx, s.childrenKey(parent), Base(p))
				}
				continue
			}
			pipe.Set(ctx, s.docKey(p), string(encoded[p]), 0)
			for child := p; Parent(child) != ""; child = Parent(child) {
				pipe.SAdd(ctx, s.childrenKey(Parent(child)), Base(child))
			}
			action := ActionCreated
			if existed[p] {
				action = ActionUpdated
			}
			payload, _ := json.Marshal(notificationPayload{Path: p, Action: action})
			pipe.Publish(ctx, s.channel, string(payload))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set: %w", err)
	}
	return nil
}

// subtree returns path and every descendant reachable through the children sets.
func (s *RedisStore) subtree(ctx context.Context, path string) ([]string, error) {
	out := []string{}
	queue := []string{path}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		out = append(out, p)
		members, err := s.c.SMembers(ctx, s.childrenKey(p)).Result()
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
		sort.Strings(members)
		for _, m := range members {
			queue = append(queue, Join(p, m))
		}
	}
	return out, nil
}

func (s *RedisStore) Subscribe(path string, fn ChangeFunc) func() {
	return s.subs.add(strings.Trim(path, "/"), fn)
}

// Listen consumes the change channel until ctx is cancelled.
func (s *RedisStore) Listen(ctx context.Context) error {
	sub := s.c.Subscribe(ctx, s.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.channel, err)
	}
	s.logger.Info("store change listener started", slog.String("channel", s.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("store change listener stopped")
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis change channel closed")
			}
			dispatchNotification(ctx, s.subs, s.Get, msg.Payload, backendRedis, s.logger, s.now())
		}
	}
}

func (s *RedisStore) Close() error {
	return s.c.Close()
}
