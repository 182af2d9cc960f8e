package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/realtime"
	"github.com/nhsfuk/dharmic-games/repositories"
	"github.com/nhsfuk/dharmic-games/store"
)

const (
	syncChangeTimeout = 10 * time.Second

	standingsUnavailableNotice = "League table could not be refreshed; showing the last known standings."
	playersUnavailableNotice   = "Player list could not be loaded right now."
)

// ChangePayload is the Data of every update published by the sync service.
type ChangePayload struct {
	Value     any               `json:"value,omitempty"`
	Standings []models.Standing `json:"standings,omitempty"`
	Players   *PlayerList       `json:"players,omitempty"`
}

// SyncService turns store changes into notifier updates.
type SyncService interface {
	Start(ctx context.Context)
	Stop()
}

type syncService struct {
	st        store.Store
	notifier  *realtime.Notifier
	standings StandingsService
	players   PlayerService
	logger    *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel []func()
}

var syncedCollections = map[string]realtime.EntityType{
	repositories.PathUniversities:  realtime.TypeUniversity,
	repositories.PathPlayers:       realtime.TypePlayer,
	repositories.PathMatches:       realtime.TypeMatch,
	repositories.PathLiveScores:    realtime.TypeScore,
	repositories.PathAdminRequests: realtime.TypeAdminRequest,
}

func NewSyncService(
	st store.Store,
	notifier *realtime.Notifier,
	standings StandingsService,
	players PlayerService,
	logger *slog.Logger,
) SyncService {
	return &syncService{
		st:        st,
		notifier:  notifier,
		standings: standings,
		players:   players,
		logger:    logger,
	}
}

// Start subscribes once per synced collection. Calling it twice is a no-op.
func (s *syncService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	s.ctx = ctx
	for collection, entity := range syncedCollections {
		s.cancel = append(s.cancel, s.st.Subscribe(collection, s.handler(entity)))
	}
	s.logger.Info("store sync started", slog.Int("collections", len(syncedCollections)))
}

func (s *syncService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, unsubscribe := range s.cancel {
		unsubscribe()
	}
	s.cancel = nil
}

func (s *syncService) handler(entity realtime.EntityType) store.ChangeFunc {
	return func(c store.Change) {
		// Roster mirrors and other nested documents are not entities.
		if store.Depth(c.Path) != 2 {
			return
		}
		s.mu.Lock()
		parent := s.ctx
		s.mu.Unlock()
		if parent == nil {
			parent = context.Background()
		}
		ctx, cancel := context.WithTimeout(parent, syncChangeTimeout)
		defer cancel()

		s.notifier.Publish(s.updateFor(ctx, entity, c))
	}
}

func (s *syncService) updateFor(ctx context.Context, entity realtime.EntityType, c store.Change) realtime.Update {
	u := s.notifier.NewUpdate(entity, realtime.Action(c.Action), c.Key(), nil)
	payload := ChangePayload{Value: s.snapshot(entity, c)}

	switch entity {
	case realtime.TypeUniversity, realtime.TypeMatch, realtime.TypeScore:
		standings, err := s.standings.Recompute(ctx)
		if err != nil {
			s.logger.Error("failed to recompute standings after change",
				slog.String("path", c.Path), slog.Any("error", err))
			u.Degraded = true
			u.Notice = standingsUnavailableNotice
			payload.Standings = s.standings.Latest()
			break
		}
		payload.Standings = standings

	case realtime.TypePlayer:
		list, err := s.players.List(ctx, models.PlayerFilter{})
		if err != nil {
			s.logger.Error("failed to reload players after change",
				slog.String("path", c.Path), slog.Any("error", err))
			u.Degraded = true
			u.Notice = playersUnavailableNotice
			payload.Value = nil
			break
		}
		if list.Degraded {
			s.logger.Warn("players index unreadable, served from university rosters",
				slog.Int("players", len(list.Players)))
			u.Degraded = true
			u.Notice = list.Notice
		}
		payload.Players = list
	}

	u.Data = payload
	return u
}

// snapshot decodes the changed document. Deletes carry no value.
func (s *syncService) snapshot(entity realtime.EntityType, c store.Change) any {
	if c.Action == store.ActionDeleted || c.Value == nil {
		return nil
	}
	var (
		v   any
		err error
	)
	switch entity {
	case realtime.TypeUniversity:
		var u models.University
		err = store.Decode(c.Value, &u)
		u.ID = c.Key()
		v = u
	case realtime.TypePlayer:
		var p models.Player
		err = store.Decode(c.Value, &p)
		v = p
	case realtime.TypeMatch:
		var m models.Match
		err = store.Decode(c.Value, &m)
		v = m
	case realtime.TypeScore:
		var ls models.LiveScore
		err = store.Decode(c.Value, &ls)
		v = ls
	case realtime.TypeAdminRequest:
		var r models.AdminRequest
		err = store.Decode(c.Value, &r)
		r.ID = c.Key()
		v = r.Public()
	}
	if err != nil {
		s.logger.Warn("undecodable document in change feed",
			slog.String("path", c.Path), slog.Any("error", err))
		return nil
	}
	return v
}
