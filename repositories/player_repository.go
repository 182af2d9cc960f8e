package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/store"
)

var ErrPlayerNotFound = errors.New("player not found")

// walkConcurrency bounds parallel roster reads during a fallback walk.
const walkConcurrency = 8

// RosterSport marks a sport that has players under a university.
type RosterSport struct {
	Sport string `json:"sport"`
}

// MirrorEntry is a university scoped player copy and where it lives.
type MirrorEntry struct {
	Path   string
	Player models.Player
}

// PlayerRepository keeps every player twice: in the flat players index and in
// the roster of its university and sport. Writes touch both in one batch.
type PlayerRepository interface {
	GetByID(ctx context.Context, id string) (*models.Player, error)
	List(ctx context.Context) ([]models.Player, error)
	// ListFromRosters rebuilds the player list from university rosters. It is
	// the slow path used when the index cannot be read.
	ListFromRosters(ctx context.Context) ([]models.Player, error)
	ListMirrors(ctx context.Context) ([]MirrorEntry, error)
	Save(ctx context.Context, previous, p *models.Player) error
	Delete(ctx context.Context, p *models.Player) error

	StageSave(b *Batch, previous, p *models.Player)
	StageDelete(b *Batch, p *models.Player)
	StageIndex(b *Batch, p *models.Player)
	StageMirror(b *Batch, p *models.Player)
}

type storePlayerRepository struct {
	st store.Store
}

func NewPlayerRepository(st store.Store) PlayerRepository {
	return &storePlayerRepository{st: st}
}

func (r *storePlayerRepository) GetByID(ctx context.Context, id string) (*models.Player, error) {
	return getDocument[models.Player](ctx, r.st, PlayerPath(id), ErrPlayerNotFound)
}

func (r *storePlayerRepository) List(ctx context.Context) ([]models.Player, error) {
	docs, err := listDocuments[models.Player](ctx, r.st, PathPlayers)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return values(docs), nil
}

func (r *storePlayerRepository) ListFromRosters(ctx context.Context) ([]models.Player, error) {
	entries, err := r.ListMirrors(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(entries))
	players := make([]models.Player, 0, len(entries))
	for _, e := range entries {
		if seen[e.Player.ID] {
			continue
		}
		seen[e.Player.ID] = true
		players = append(players, e.Player)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players, nil
}

func (r *storePlayerRepository) ListMirrors(ctx context.Context) ([]MirrorEntry, error) {
	universities, err := r.st.List(ctx, PathUniversities)
	if err != nil {
		return nil, fmt.Errorf("failed to list universities for roster walk: %w", err)
	}

	var (
		mu      sync.Mutex
		entries []MirrorEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(walkConcurrency)
	for uid := range universities {
		uid := uid
		g.Go(func() error {
			found, err := r.universityMirrors(gctx, uid)
			if err != nil {
				return err
			}
			mu.Lock()
			entries = append(entries, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (r *storePlayerRepository) universityMirrors(ctx context.Context, universityID string) ([]MirrorEntry, error) {
	sportsPath := store.Join(UniversityPath(universityID), "sports")
	sports, err := r.st.List(ctx, sportsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster sports of %s: %w", universityID, err)
	}
	var out []MirrorEntry
	for sportKey := range sports {
		playersPath := store.Join(sportsPath, sportKey, "players")
		docs, err := listDocuments[models.Player](ctx, r.st, playersPath)
		if err != nil {
			return nil, fmt.Errorf("failed to list roster %s: %w", playersPath, err)
		}
		for _, d := range docs {
			out = append(out, MirrorEntry{Path: store.Join(playersPath, d.Key), Player: d.Value})
		}
	}
	return out, nil
}

func (r *storePlayerRepository) Save(ctx context.Context, previous, p *models.Player) error {
	b := NewBatch(r.st)
	r.StageSave(b, previous, p)
	if err := b.Commit(ctx); err != nil {
		return fmt.Errorf("failed to save player %s: %w", p.ID, err)
	}
	return nil
}

func (r *storePlayerRepository) Delete(ctx context.Context, p *models.Player) error {
	b := NewBatch(r.st)
	r.StageDelete(b, p)
	if err := b.Commit(ctx); err != nil {
		return fmt.Errorf("failed to delete player %s: %w", p.ID, err)
	}
	return nil
}

// StageSave writes the index and the mirror, removing the previous mirror when
// the player moved to another university or sport.
func (r *storePlayerRepository) StageSave(b *Batch, previous, p *models.Player) {
	r.StageIndex(b, p)
	r.StageMirror(b, p)
	if previous != nil {
		oldPath := PlayerMirrorPath(previous.UniversityID, previous.Sport, previous.ID)
		if oldPath != PlayerMirrorPath(p.UniversityID, p.Sport, p.ID) {
			b.Remove(oldPath)
		}
	}
}

func (r *storePlayerRepository) StageDelete(b *Batch, p *models.Player) {
	b.Remove(PlayerPath(p.ID))
	b.Remove(PlayerMirrorPath(p.UniversityID, p.Sport, p.ID))
}

func (r *storePlayerRepository) StageIndex(b *Batch, p *models.Player) {
	b.Set(PlayerPath(p.ID), p)
}

func (r *storePlayerRepository) StageMirror(b *Batch, p *models.Player) {
	b.Set(RosterSportPath(p.UniversityID, p.Sport), RosterSport{Sport: p.Sport})
	b.Set(PlayerMirrorPath(p.UniversityID, p.Sport, p.ID), p)
}
