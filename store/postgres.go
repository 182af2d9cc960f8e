package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nhsfuk/dharmic-games/metrics"
)

const (
	backendPostgres = "postgres"

	// ChangesChannel is the NOTIFY channel written by the documents trigger.
	ChangesChannel = "store_changes"

	listenerPingInterval = 90 * time.Second
)

// pq error code for insufficient_privilege.
const pqInsufficientPrivilege = "42501"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `_`, `\_`, `%`, `\%`)

type documentRow struct {
	Path  string `db:"path"`
	Value []byte `db:"value"`
}

// PostgresStore keeps every document as a JSONB row keyed by path.
// Changes are picked up from LISTEN/NOTIFY, so writes made by other instances
// reach this instance's subscribers as well.
type PostgresStore struct {
	db     *sqlx.DB
	dsn    string
	subs   *subscribers
	logger *slog.Logger
	now    func() time.Time
}

func NewPostgresStore(db *sqlx.DB, dsn string, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		dsn:    dsn,
		subs:   newSubscribers(),
		logger: logger,
		now:    time.Now,
	}
}

func (s *PostgresStore) Get(ctx context.Context, path string) (raw json.RawMessage, err error) {
	defer func() { metrics.ObserveStoreOp(backendPostgres, "get", err) }()
	path, err = Clean(path)
	if err != nil {
		return nil, err
	}
	var value []byte
	err = s.db.GetContext(ctx, &value, `SELECT value FROM documents WHERE path = $1`, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, mapPostgresError(fmt.Errorf("get %s: %w", path, err))
	}
	return json.RawMessage(value), nil
}

func (s *PostgresStore) List(ctx context.Context, path string) (children map[string]json.RawMessage, err error) {
	defer func() { metrics.ObserveStoreOp(backendPostgres, "list", err) }()
	path, err = Clean(path)
	if err != nil {
		return nil, err
	}
	var rows []documentRow
	err = s.db.SelectContext(ctx, &rows, `SELECT path, value FROM documents WHERE parent = $1 ORDER BY path`, path)
	if err != nil {
		return nil, mapPostgresError(fmt.Errorf("list %s: %w", path, err))
	}
	children = make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		children[Base(row.Path)] = json.RawMessage(row.Value)
	}
	return children, nil
}

func (s *PostgresStore) Set(ctx context.Context, path string, value any) error {
	return s.SetMany(ctx, map[string]any{path: value})
}

func (s *PostgresStore) Update(ctx context.Context, path string, partial map[string]any) (err error) {
	defer func() { metrics.ObserveStoreOp(backendPostgres, "update", err) }()
	path, err = Clean(path)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapPostgresError(fmt.Errorf("update %s: begin: %w", path, err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var existing []byte
	err = tx.GetContext(ctx, &existing, `SELECT value FROM documents WHERE path = $1 FOR UPDATE`, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return mapPostgresError(fmt.Errorf("update %s: select: %w", path, err))
	}

	merged, err := mergeDocument(existing, partial)
	if err != nil {
		return fmt.Errorf("update %s: merge: %w", path, err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE documents SET value = $2::jsonb, updated_at = NOW() WHERE path = $1`,
		path, string(merged),
	); err != nil {
		return mapPostgresError(fmt.Errorf("update %s: %w", path, err))
	}

	if err = tx.Commit(); err != nil {
		return mapPostgresError(fmt.Errorf("update %s: commit: %w", path, err))
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, path string) error {
	return s.SetMany(ctx, map[string]any{path: nil})
}

func (s *PostgresStore) Push(ctx context.Context, path string, value any) (string, error) {
	key := uuid.NewString()
	if err := s.Set(ctx, Join(path, key), value); err != nil {
		return "", err
	}
	return key, nil
}

func (s *PostgresStore) SetMany(ctx context.Context, writes map[string]any) (err error) {
	defer func() { metrics.ObserveStoreOp(backendPostgres, "set", err) }()

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

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapPostgresError(fmt.Errorf("begin: %w", err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, p := range paths {
		raw, isWrite := encoded[p]
		if !isWrite {
			if _, err = tx.ExecContext(ctx,
				`DELETE FROM documents WHERE path = $1 OR path LIKE $2`,
				p, likeEscaper.Replace(p)+"/%",
			); err != nil {
				return mapPostgresError(fmt.Errorf("remove %s: %w", p, err))
			}
			continue
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO documents (path, parent, value)
			VALUES ($1, $2, $3::jsonb)
			ON CONFLICT (path) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
			p, Parent(p), string(raw),
		); err != nil {
			return mapPostgresError(fmt.Errorf("set %s: %w", p, err))
		}
	}

	if err = tx.Commit(); err != nil {
		return mapPostgresError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (s *PostgresStore) Subscribe(path string, fn ChangeFunc) func() {
	return s.subs.add(strings.Trim(path, "/"), fn)
}

// Listen consumes NOTIFY events until ctx is cancelled. It blocks and is meant
// to run in its own goroutine.
func (s *PostgresStore) Listen(ctx context.Context) error {
	listener := pq.NewListener(s.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			s.logger.Warn("store listener event", slog.Int("event", int(ev)), slog.Any("error", err))
		}
	})
	defer listener.Close()

	if err := listener.Listen(ChangesChannel); err != nil {
		return fmt.Errorf("listen %s: %w", ChangesChannel, err)
	}
	s.logger.Info("store change listener started", slog.String("channel", ChangesChannel))

	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("store change listener stopped")
			return ctx.Err()
		case n := <-listener.Notify:
			if n == nil {
				// Connection was re-established; notifications in between are lost.
				s.logger.Warn("store listener reconnected")
				continue
			}
			s.handleNotification(ctx, n.Extra)
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					s.logger.Warn("store listener ping failed", slog.Any("error", err))
				}
			}()
		}
	}
}

func (s *PostgresStore) handleNotification(ctx context.Context, payload string) {
	dispatchNotification(ctx, s.subs, s.Get, payload, backendPostgres, s.logger, s.now())
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func mapPostgresError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqInsufficientPrivilege {
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}
	return err
}
