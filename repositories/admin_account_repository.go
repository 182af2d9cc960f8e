package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/store"
	"github.com/nhsfuk/dharmic-games/utils"
)

var (
	ErrAdminNotFound      = errors.New("admin account not found")
	ErrAdminEmailConflict = errors.New("admin email conflict")
)

type AdminAccountRepository interface {
	Create(ctx context.Context, a *models.AdminAccount) error
	GetByID(ctx context.Context, id string) (*models.AdminAccount, error)
	GetByEmail(ctx context.Context, email string) (*models.AdminAccount, error)
	List(ctx context.Context) ([]models.AdminAccount, error)
	Update(ctx context.Context, a *models.AdminAccount) error
	Delete(ctx context.Context, id string) error

	StageSave(b *Batch, a *models.AdminAccount)
}

type storeAdminAccountRepository struct {
	st store.Store
}

func NewAdminAccountRepository(st store.Store) AdminAccountRepository {
	return &storeAdminAccountRepository{st: st}
}

func (r *storeAdminAccountRepository) Create(ctx context.Context, a *models.AdminAccount) error {
	a.Email = utils.NormalizeEmail(a.Email)
	if _, err := r.GetByEmail(ctx, a.Email); err == nil {
		return ErrAdminEmailConflict
	} else if !errors.Is(err, ErrAdminNotFound) {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := r.st.Set(ctx, AdminPath(a.ID), a); err != nil {
		return fmt.Errorf("failed to create admin account: %w", err)
	}
	return nil
}

func (r *storeAdminAccountRepository) GetByID(ctx context.Context, id string) (*models.AdminAccount, error) {
	return getDocument[models.AdminAccount](ctx, r.st, AdminPath(id), ErrAdminNotFound)
}

func (r *storeAdminAccountRepository) GetByEmail(ctx context.Context, email string) (*models.AdminAccount, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	email = utils.NormalizeEmail(email)
	for i := range all {
		if all[i].Email == email {
			return &all[i], nil
		}
	}
	return nil, ErrAdminNotFound
}

func (r *storeAdminAccountRepository) List(ctx context.Context) ([]models.AdminAccount, error) {
	docs, err := listDocuments[models.AdminAccount](ctx, r.st, PathAdmins)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin accounts: %w", err)
	}
	return values(docs), nil
}

func (r *storeAdminAccountRepository) Update(ctx context.Context, a *models.AdminAccount) error {
	a.Email = utils.NormalizeEmail(a.Email)
	if other, err := r.GetByEmail(ctx, a.Email); err == nil && other.ID != a.ID {
		return ErrAdminEmailConflict
	}
	found, err := exists(ctx, r.st, AdminPath(a.ID))
	if err != nil {
		return mapStoreError(err, ErrAdminNotFound)
	}
	if !found {
		return ErrAdminNotFound
	}
	return r.st.Set(ctx, AdminPath(a.ID), a)
}

func (r *storeAdminAccountRepository) Delete(ctx context.Context, id string) error {
	found, err := exists(ctx, r.st, AdminPath(id))
	if err != nil {
		return mapStoreError(err, ErrAdminNotFound)
	}
	if !found {
		return ErrAdminNotFound
	}
	return r.st.Remove(ctx, AdminPath(id))
}

func (r *storeAdminAccountRepository) StageSave(b *Batch, a *models.AdminAccount) {
	a.Email = utils.NormalizeEmail(a.Email)
	b.Set(AdminPath(a.ID), a)
}
