package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/store"
)

var ErrAdminRequestNotFound = errors.New("admin request not found")

type AdminRequestRepository interface {
	Create(ctx context.Context, req *models.AdminRequest) error
	GetByID(ctx context.Context, id string) (*models.AdminRequest, error)
	List(ctx context.Context) ([]models.AdminRequest, error)
	Update(ctx context.Context, req *models.AdminRequest) error

	StageSave(b *Batch, req *models.AdminRequest)
}

type storeAdminRequestRepository struct {
	st store.Store
}

func NewAdminRequestRepository(st store.Store) AdminRequestRepository {
	return &storeAdminRequestRepository{st: st}
}

// Create pushes the request under a generated key, which becomes its ID.
func (r *storeAdminRequestRepository) Create(ctx context.Context, req *models.AdminRequest) error {
	req.ID = ""
	key, err := r.st.Push(ctx, PathAdminRequests, req)
	if err != nil {
		return fmt.Errorf("failed to create admin request: %w", err)
	}
	req.ID = key
	return nil
}

func (r *storeAdminRequestRepository) GetByID(ctx context.Context, id string) (*models.AdminRequest, error) {
	req, err := getDocument[models.AdminRequest](ctx, r.st, AdminRequestPath(id), ErrAdminRequestNotFound)
	if err != nil {
		return nil, err
	}
	req.ID = id
	return req, nil
}

func (r *storeAdminRequestRepository) List(ctx context.Context) ([]models.AdminRequest, error) {
	docs, err := listDocuments[models.AdminRequest](ctx, r.st, PathAdminRequests)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin requests: %w", err)
	}
	out := make([]models.AdminRequest, len(docs))
	for i, d := range docs {
		out[i] = d.Value
		out[i].ID = d.Key
	}
	return out, nil
}

func (r *storeAdminRequestRepository) Update(ctx context.Context, req *models.AdminRequest) error {
	found, err := exists(ctx, r.st, AdminRequestPath(req.ID))
	if err != nil {
		return mapStoreError(err, ErrAdminRequestNotFound)
	}
	if !found {
		return ErrAdminRequestNotFound
	}
	return r.st.Set(ctx, AdminRequestPath(req.ID), req)
}

func (r *storeAdminRequestRepository) StageSave(b *Batch, req *models.AdminRequest) {
	b.Set(AdminRequestPath(req.ID), req)
}
