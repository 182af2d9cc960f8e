package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/repositories"
	"github.com/nhsfuk/dharmic-games/store"
	"github.com/nhsfuk/dharmic-games/utils"
)

type AdminService interface {
	SubmitRequest(ctx context.Context, input SubmitAdminRequestInput) (*models.AdminRequest, error)
	ListRequests(ctx context.Context, status *models.AdminRequestStatus) ([]models.AdminRequest, error)
	ApproveRequest(ctx context.Context, id, reviewerID, note string) (*models.AdminAccount, error)
	RejectRequest(ctx context.Context, id, reviewerID, note string) (*models.AdminRequest, error)

	ResolveRole(ctx context.Context, accountID string) (*models.AdminAccount, error)
	ListAccounts(ctx context.Context) ([]models.AdminAccount, error)
	CreateAccount(ctx context.Context, input CreateAdminAccountInput) (*models.AdminAccount, error)
	UpdateAccount(ctx context.Context, actorID, id string, input UpdateAdminAccountInput) (*models.AdminAccount, error)
	DeleteAccount(ctx context.Context, actorID, id string) error

	Authenticate(ctx context.Context, email, password string) (*models.AdminAccount, error)
	// BootstrapSuperAdmin creates the configured super admin when no account
	// uses that email yet. It reports whether an account was created.
	BootstrapSuperAdmin(ctx context.Context, email, password string) (bool, error)
}

type SubmitAdminRequestInput struct {
	Email         string          `json:"email" validate:"required,email"`
	Name          string          `json:"name" validate:"required,min=2,max=100"`
	Password      string          `json:"password" validate:"required,min=8,max=72"`
	UniversityID  string          `json:"university_id"`
	RequestedRole models.UserRole `json:"requested_role" validate:"required,oneof=admin university_admin"`
	Reason        string          `json:"reason" validate:"omitempty,max=500"`
}

type CreateAdminAccountInput struct {
	Email        string          `json:"email" validate:"required,email"`
	Name         string          `json:"name" validate:"required,min=2,max=100"`
	Password     string          `json:"password" validate:"required,min=8,max=72"`
	Role         models.UserRole `json:"role" validate:"required,oneof=super_admin admin university_admin"`
	UniversityID string          `json:"university_id"`
}

type UpdateAdminAccountInput struct {
	Email        *string          `json:"email" validate:"omitempty,email"`
	Name         *string          `json:"name" validate:"omitempty,min=2,max=100"`
	Password     *string          `json:"password" validate:"omitempty,min=8,max=72"`
	Role         *models.UserRole `json:"role" validate:"omitempty,oneof=super_admin admin university_admin"`
	UniversityID *string          `json:"university_id"`
}

type adminService struct {
	st             store.Store
	requestRepo    repositories.AdminRequestRepository
	accountRepo    repositories.AdminAccountRepository
	universityRepo repositories.UniversityRepository
	mailer         Mailer
	logger         *slog.Logger
	now            func() time.Time
}

// NewAdminService accepts a nil mailer; decisions are then not emailed.
func NewAdminService(
	st store.Store,
	requestRepo repositories.AdminRequestRepository,
	accountRepo repositories.AdminAccountRepository,
	universityRepo repositories.UniversityRepository,
	mailer Mailer,
	logger *slog.Logger,
) AdminService {
	return &adminService{
		st:             st,
		requestRepo:    requestRepo,
		accountRepo:    accountRepo,
		universityRepo: universityRepo,
		mailer:         mailer,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *adminService) SubmitRequest(ctx context.Context, input SubmitAdminRequestInput) (*models.AdminRequest, error) {
	input.Email = utils.NormalizeEmail(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	input.UniversityID = strings.TrimSpace(input.UniversityID)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := s.checkUniversityScope(ctx, input.RequestedRole, input.UniversityID); err != nil {
		return nil, err
	}

	if _, err := s.accountRepo.GetByEmail(ctx, input.Email); err == nil {
		return nil, ErrAdminEmailConflict
	} else if !errors.Is(err, repositories.ErrAdminNotFound) {
		return nil, storeError("check admin email", err)
	}

	existing, err := s.requestRepo.List(ctx)
	if err != nil {
		return nil, storeError("list admin requests", err)
	}
	for _, r := range existing {
		if r.Status == models.AdminRequestPending && r.Email == input.Email {
			return nil, ErrAdminRequestDuplicate
		}
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	req := &models.AdminRequest{
		Email:         input.Email,
		Name:          input.Name,
		UniversityID:  input.UniversityID,
		RequestedRole: input.RequestedRole,
		Reason:        strings.TrimSpace(input.Reason),
		PasswordHash:  hash,
		Status:        models.AdminRequestPending,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, storeError("submit admin request", err)
	}
	public := req.Public()
	return &public, nil
}

func (s *adminService) ListRequests(ctx context.Context, status *models.AdminRequestStatus) ([]models.AdminRequest, error) {
	all, err := s.requestRepo.List(ctx)
	if err != nil {
		return nil, storeError("list admin requests", err)
	}
	out := make([]models.AdminRequest, 0, len(all))
	for _, r := range all {
		if status != nil && r.Status != *status {
			continue
		}
		out = append(out, r.Public())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ApproveRequest creates the account and marks the request approved in one write.
func (s *adminService) ApproveRequest(ctx context.Context, id, reviewerID, note string) (*models.AdminAccount, error) {
	req, err := s.pendingRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.accountRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrAdminEmailConflict
	} else if !errors.Is(err, repositories.ErrAdminNotFound) {
		return nil, storeError("check admin email", err)
	}

	now := s.now().UTC()
	account := &models.AdminAccount{
		ID:           newID(),
		Email:        req.Email,
		Name:         req.Name,
		Role:         req.RequestedRole,
		UniversityID: req.UniversityID,
		PasswordHash: req.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	req.Status = models.AdminRequestApproved
	req.ReviewedBy = reviewerID
	req.ReviewNote = strings.TrimSpace(note)
	req.ReviewedAt = &now
	req.PasswordHash = ""

	b := repositories.NewBatch(s.st)
	s.accountRepo.StageSave(b, account)
	s.requestRepo.StageSave(b, req)
	if err := b.Commit(ctx); err != nil {
		return nil, storeError("approve admin request "+id, err)
	}

	s.notify(*req)
	public := account.Public()
	return &public, nil
}

func (s *adminService) RejectRequest(ctx context.Context, id, reviewerID, note string) (*models.AdminRequest, error) {
	req, err := s.pendingRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	req.Status = models.AdminRequestRejected
	req.ReviewedBy = reviewerID
	req.ReviewNote = strings.TrimSpace(note)
	req.ReviewedAt = &now
	req.PasswordHash = ""

	if err := s.requestRepo.Update(ctx, req); err != nil {
		return nil, storeError("reject admin request "+id, err)
	}
	s.notify(*req)
	public := req.Public()
	return &public, nil
}

func (s *adminService) ResolveRole(ctx context.Context, accountID string) (*models.AdminAccount, error) {
	a, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	public := a.Public()
	return &public, nil
}

func (s *adminService) ListAccounts(ctx context.Context) ([]models.AdminAccount, error) {
	all, err := s.accountRepo.List(ctx)
	if err != nil {
		return nil, storeError("list admin accounts", err)
	}
	out := make([]models.AdminAccount, len(all))
	for i, a := range all {
		out[i] = a.Public()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *adminService) CreateAccount(ctx context.Context, input CreateAdminAccountInput) (*models.AdminAccount, error) {
	input.Email = utils.NormalizeEmail(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	input.UniversityID = strings.TrimSpace(input.UniversityID)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := s.checkUniversityScope(ctx, input.Role, input.UniversityID); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	now := s.now().UTC()
	a := &models.AdminAccount{
		Email:        input.Email,
		Name:         input.Name,
		Role:         input.Role,
		UniversityID: input.UniversityID,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accountRepo.Create(ctx, a); err != nil {
		if errors.Is(err, repositories.ErrAdminEmailConflict) {
			return nil, ErrAdminEmailConflict
		}
		return nil, storeError("create admin account", err)
	}
	public := a.Public()
	return &public, nil
}

func (s *adminService) UpdateAccount(ctx context.Context, actorID, id string, input UpdateAdminAccountInput) (*models.AdminAccount, error) {
	if input.Email != nil {
		email := utils.NormalizeEmail(*input.Email)
		input.Email = &email
	}
	input.Name = trimmed(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	a, err := s.account(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Role != nil && *input.Role != models.RoleSuperAdmin && a.Role == models.RoleSuperAdmin {
		if actorID == id {
			return nil, fmt.Errorf("%w: cannot demote yourself", ErrForbiddenOperation)
		}
		if err := s.ensureAnotherSuperAdmin(ctx, id); err != nil {
			return nil, err
		}
	}

	if input.Email != nil {
		a.Email = *input.Email
	}
	if input.Name != nil {
		a.Name = *input.Name
	}
	if input.Role != nil {
		a.Role = *input.Role
	}
	if input.UniversityID != nil {
		a.UniversityID = strings.TrimSpace(*input.UniversityID)
	}
	if err := s.checkUniversityScope(ctx, a.Role, a.UniversityID); err != nil {
		return nil, err
	}
	if input.Password != nil {
		hash, err := utils.HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		a.PasswordHash = hash
	}
	a.UpdatedAt = s.now().UTC()

	if err := s.accountRepo.Update(ctx, a); err != nil {
		switch {
		case errors.Is(err, repositories.ErrAdminEmailConflict):
			return nil, ErrAdminEmailConflict
		case errors.Is(err, repositories.ErrAdminNotFound):
			return nil, ErrAdminNotFound
		}
		return nil, storeError("update admin account "+id, err)
	}
	public := a.Public()
	return &public, nil
}

func (s *adminService) DeleteAccount(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return ErrCannotDeleteSelf
	}
	a, err := s.account(ctx, id)
	if err != nil {
		return err
	}
	if a.Role == models.RoleSuperAdmin {
		if err := s.ensureAnotherSuperAdmin(ctx, id); err != nil {
			return err
		}
	}
	if err := s.accountRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrAdminNotFound) {
			return ErrAdminNotFound
		}
		return storeError("delete admin account "+id, err)
	}
	return nil
}

func (s *adminService) Authenticate(ctx context.Context, email, password string) (*models.AdminAccount, error) {
	a, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrAdminNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeError("look up admin account", err)
	}
	if !utils.CheckPasswordHash(password, a.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	public := a.Public()
	return &public, nil
}

func (s *adminService) BootstrapSuperAdmin(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	if _, err := s.accountRepo.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, repositories.ErrAdminNotFound) {
		return false, storeError("look up super admin", err)
	}
	_, err := s.CreateAccount(ctx, CreateAdminAccountInput{
		Email:    email,
		Name:     "Super Admin",
		Password: password,
		Role:     models.RoleSuperAdmin,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *adminService) pendingRequest(ctx context.Context, id string) (*models.AdminRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrAdminRequestNotFound) {
			return nil, ErrAdminRequestNotFound
		}
		return nil, storeError("get admin request "+id, err)
	}
	if req.Status.Decided() {
		return nil, ErrAdminRequestDecided
	}
	return req, nil
}

func (s *adminService) account(ctx context.Context, id string) (*models.AdminAccount, error) {
	a, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrAdminNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, storeError("get admin account "+id, err)
	}
	return a, nil
}

func (s *adminService) ensureAnotherSuperAdmin(ctx context.Context, excludeID string) error {
	all, err := s.accountRepo.List(ctx)
	if err != nil {
		return storeError("list admin accounts", err)
	}
	for _, a := range all {
		if a.ID != excludeID && a.Role == models.RoleSuperAdmin {
			return nil
		}
	}
	return ErrLastSuperAdmin
}

// checkUniversityScope requires university admins to name an existing university.
func (s *adminService) checkUniversityScope(ctx context.Context, role models.UserRole, universityID string) error {
	if role != models.RoleUniversityAdmin {
		return nil
	}
	if universityID == "" {
		return fieldError("university_id", "is required for university admins")
	}
	if _, err := s.universityRepo.GetByID(ctx, universityID); err != nil {
		if errors.Is(err, repositories.ErrUniversityNotFound) {
			return fieldError("university_id", "does not match a university")
		}
		return storeError("get university "+universityID, err)
	}
	return nil
}

func (s *adminService) notify(req models.AdminRequest) {
	if s.mailer == nil || req.Email == "" {
		return
	}
	if err := s.mailer.SendAdminDecision(req); err != nil {
		s.logger.Error("failed to email admin request decision",
			slog.String("request_id", req.ID),
			slog.String("status", string(req.Status)),
			slog.Any("error", err),
		)
	}
}
