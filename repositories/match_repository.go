package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/store"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	Create(ctx context.Context, m *models.Match) error
	GetByID(ctx context.Context, id string) (*models.Match, error)
	List(ctx context.Context) ([]models.Match, error)
	Update(ctx context.Context, m *models.Match) error
	Delete(ctx context.Context, id string) error

	StageSave(b *Batch, m *models.Match)
	StageDelete(b *Batch, id string)
}

type storeMatchRepository struct {
	st store.Store
}

func NewMatchRepository(st store.Store) MatchRepository {
	return &storeMatchRepository{st: st}
}

func (r *storeMatchRepository) Create(ctx context.Context, m *models.Match) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if err := r.st.Set(ctx, MatchPath(m.ID), m); err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

func (r *storeMatchRepository) GetByID(ctx context.Context, id string) (*models.Match, error) {
	return getDocument[models.Match](ctx, r.st, MatchPath(id), ErrMatchNotFound)
}

func (r *storeMatchRepository) List(ctx context.Context) ([]models.Match, error) {
	docs, err := listDocuments[models.Match](ctx, r.st, PathMatches)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return values(docs), nil
}

func (r *storeMatchRepository) Update(ctx context.Context, m *models.Match) error {
	found, err := exists(ctx, r.st, MatchPath(m.ID))
	if err != nil {
		return mapStoreError(err, ErrMatchNotFound)
	}
	if !found {
		return ErrMatchNotFound
	}
	if err := r.st.Set(ctx, MatchPath(m.ID), m); err != nil {
		return fmt.Errorf("failed to update match %s: %w", m.ID, err)
	}
	return nil
}

func (r *storeMatchRepository) Delete(ctx context.Context, id string) error {
	found, err := exists(ctx, r.st, MatchPath(id))
	if err != nil {
		return mapStoreError(err, ErrMatchNotFound)
	}
	if !found {
		return ErrMatchNotFound
	}
	b := NewBatch(r.st)
	r.StageDelete(b, id)
	return b.Commit(ctx)
}

func (r *storeMatchRepository) StageSave(b *Batch, m *models.Match) {
	b.Set(MatchPath(m.ID), m)
}

// StageDelete also drops the live score of the match.
func (r *storeMatchRepository) StageDelete(b *Batch, id string) {
	b.Remove(MatchPath(id))
	b.Remove(LiveScorePath(id))
}
