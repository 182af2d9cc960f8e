package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/store"
)

var ErrLiveScoreNotFound = errors.New("live score not found")

type LiveScoreRepository interface {
	GetByMatchID(ctx context.Context, matchID string) (*models.LiveScore, error)
	List(ctx context.Context) ([]models.LiveScore, error)

	StageSave(b *Batch, ls *models.LiveScore)
	StageDelete(b *Batch, matchID string)
}

type storeLiveScoreRepository struct {
	st store.Store
}

func NewLiveScoreRepository(st store.Store) LiveScoreRepository {
	return &storeLiveScoreRepository{st: st}
}

func (r *storeLiveScoreRepository) GetByMatchID(ctx context.Context, matchID string) (*models.LiveScore, error) {
	return getDocument[models.LiveScore](ctx, r.st, LiveScorePath(matchID), ErrLiveScoreNotFound)
}

func (r *storeLiveScoreRepository) List(ctx context.Context) ([]models.LiveScore, error) {
	docs, err := listDocuments[models.LiveScore](ctx, r.st, PathLiveScores)
	if err != nil {
		return nil, fmt.Errorf("failed to list live scores: %w", err)
	}
	return values(docs), nil
}

func (r *storeLiveScoreRepository) StageSave(b *Batch, ls *models.LiveScore) {
	b.Set(LiveScorePath(ls.MatchID), ls)
}

func (r *storeLiveScoreRepository) StageDelete(b *Batch, matchID string) {
	b.Remove(LiveScorePath(matchID))
}
