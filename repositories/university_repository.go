package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/store"
)

var (
	ErrUniversityNotFound = errors.New("university not found")
	ErrUniversityExists   = errors.New("university already exists")
)

type UniversityRepository interface {
	Create(ctx context.Context, u *models.University) error
	GetByID(ctx context.Context, id string) (*models.University, error)
	GetByName(ctx context.Context, name string) (*models.University, error)
	List(ctx context.Context) ([]models.University, error)
	Update(ctx context.Context, u *models.University) error
	Patch(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error

	StageSave(b *Batch, u *models.University)
	StageDelete(b *Batch, id string)
}

type storeUniversityRepository struct {
	st store.Store
}

func NewUniversityRepository(st store.Store) UniversityRepository {
	return &storeUniversityRepository{st: st}
}

func (r *storeUniversityRepository) Create(ctx context.Context, u *models.University) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	found, err := exists(ctx, r.st, UniversityPath(u.ID))
	if err != nil {
		return fmt.Errorf("failed to check university %s: %w", u.ID, err)
	}
	if found {
		return ErrUniversityExists
	}
	if err := r.st.Set(ctx, UniversityPath(u.ID), u); err != nil {
		return fmt.Errorf("failed to create university: %w", err)
	}
	return nil
}

func (r *storeUniversityRepository) GetByID(ctx context.Context, id string) (*models.University, error) {
	return getDocument[models.University](ctx, r.st, UniversityPath(id), ErrUniversityNotFound)
}

// GetByName matches names case-insensitively, ignoring surrounding space.
func (r *storeUniversityRepository) GetByName(ctx context.Context, name string) (*models.University, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for i := range all {
		if strings.ToLower(strings.TrimSpace(all[i].Name)) == want {
			return &all[i], nil
		}
	}
	return nil, ErrUniversityNotFound
}

func (r *storeUniversityRepository) List(ctx context.Context) ([]models.University, error) {
	docs, err := listDocuments[models.University](ctx, r.st, PathUniversities)
	if err != nil {
		return nil, fmt.Errorf("failed to list universities: %w", err)
	}
	return values(docs), nil
}

func (r *storeUniversityRepository) Update(ctx context.Context, u *models.University) error {
	found, err := exists(ctx, r.st, UniversityPath(u.ID))
	if err != nil {
		return mapStoreError(err, ErrUniversityNotFound)
	}
	if !found {
		return ErrUniversityNotFound
	}
	if err := r.st.Set(ctx, UniversityPath(u.ID), u); err != nil {
		return fmt.Errorf("failed to update university %s: %w", u.ID, err)
	}
	return nil
}

func (r *storeUniversityRepository) Patch(ctx context.Context, id string, fields map[string]any) error {
	if err := r.st.Update(ctx, UniversityPath(id), fields); err != nil {
		return mapStoreError(err, ErrUniversityNotFound)
	}
	return nil
}

// Delete removes the university document together with its roster subtree.
func (r *storeUniversityRepository) Delete(ctx context.Context, id string) error {
	found, err := exists(ctx, r.st, UniversityPath(id))
	if err != nil {
		return mapStoreError(err, ErrUniversityNotFound)
	}
	if !found {
		return ErrUniversityNotFound
	}
	return r.st.Remove(ctx, UniversityPath(id))
}

func (r *storeUniversityRepository) StageSave(b *Batch, u *models.University) {
	b.Set(UniversityPath(u.ID), u)
}

func (r *storeUniversityRepository) StageDelete(b *Batch, id string) {
	b.Remove(UniversityPath(id))
}
