package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/repositories"
	"github.com/nhsfuk/dharmic-games/storage"
	"github.com/nhsfuk/dharmic-games/store"
)

type UniversityService interface {
	Create(ctx context.Context, input CreateUniversityInput) (*models.University, error)
	GetByID(ctx context.Context, id string) (*models.University, error)
	List(ctx context.Context, zone string) ([]models.University, error)
	Update(ctx context.Context, id string, input UpdateUniversityInput) (*models.University, error)
	Delete(ctx context.Context, id string) error
	UploadLogo(ctx context.Context, id, contentType string, file io.Reader) (*models.University, error)
	// Resolve finds a university by ID or name, staging a placeholder into b
	// when a name matches nothing. Unknown IDs are not found.
	Resolve(ctx context.Context, b *repositories.Batch, ref, zone string) (*models.University, error)
}

type CreateUniversityInput struct {
	Name         string         `json:"name" validate:"required,min=2,max=120"`
	Zone         string         `json:"zone" validate:"required,max=60"`
	Abbreviation string         `json:"abbreviation" validate:"omitempty,max=12"`
	Sports       []string       `json:"sports" validate:"dive,required,max=40"`
	RosterSizes  map[string]int `json:"roster_sizes" validate:"omitempty,dive,gte=0,lte=100"`
}

type UpdateUniversityInput struct {
	Name         *string        `json:"name" validate:"omitempty,min=2,max=120"`
	Zone         *string        `json:"zone" validate:"omitempty,max=60"`
	Abbreviation *string        `json:"abbreviation" validate:"omitempty,max=12"`
	Sports       *[]string      `json:"sports" validate:"omitempty,dive,required,max=40"`
	RosterSizes  map[string]int `json:"roster_sizes" validate:"omitempty,dive,gte=0,lte=100"`
	Competing    *bool          `json:"competing"`
	Withdrawn    *bool          `json:"withdrawn"`
}

type universityService struct {
	universityRepo repositories.UniversityRepository
	playerRepo     repositories.PlayerRepository
	matchRepo      repositories.MatchRepository
	st             store.Store
	uploader       storage.FileUploader
	logger         *slog.Logger
	now            func() time.Time
}

// NewUniversityService accepts a nil uploader; logo uploads are then refused.
func NewUniversityService(
	st store.Store,
	universityRepo repositories.UniversityRepository,
	playerRepo repositories.PlayerRepository,
	matchRepo repositories.MatchRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) UniversityService {
	return &universityService{
		universityRepo: universityRepo,
		playerRepo:     playerRepo,
		matchRepo:      matchRepo,
		st:             st,
		uploader:       uploader,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *universityService) Create(ctx context.Context, input CreateUniversityInput) (*models.University, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Zone = strings.TrimSpace(input.Zone)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	existing, err := s.universityRepo.GetByName(ctx, input.Name)
	switch {
	case err == nil && existing.Registered():
		return nil, ErrUniversityNameConflict
	case err == nil:
		// A placeholder first seen in a match registers under its existing ID.
		existing.Zone = input.Zone
		existing.Abbreviation = strings.TrimSpace(input.Abbreviation)
		existing.Sports = cleanList(input.Sports)
		existing.RosterSizes = input.RosterSizes
		existing.Competing = len(existing.Sports) > 0
		existing.UpdatedAt = now
		if err := s.universityRepo.Update(ctx, existing); err != nil {
			return nil, storeError("register placeholder university", err)
		}
		return s.withLogoURL(existing), nil
	case !errors.Is(err, repositories.ErrUniversityNotFound):
		return nil, storeError("check university name", err)
	}

	u := &models.University{
		Name:         input.Name,
		Zone:         input.Zone,
		Abbreviation: strings.TrimSpace(input.Abbreviation),
		Sports:       cleanList(input.Sports),
		RosterSizes:  input.RosterSizes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.Competing = len(u.Sports) > 0
	if err := s.universityRepo.Create(ctx, u); err != nil {
		return nil, storeError("create university", err)
	}
	return u, nil
}

func (s *universityService) GetByID(ctx context.Context, id string) (*models.University, error) {
	u, err := s.universityRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUniversityNotFound) {
			return nil, ErrUniversityNotFound
		}
		return nil, storeError("get university "+id, err)
	}
	return s.withLogoURL(u), nil
}

func (s *universityService) List(ctx context.Context, zone string) ([]models.University, error) {
	all, err := s.universityRepo.List(ctx)
	if err != nil {
		return nil, storeError("list universities", err)
	}
	out := make([]models.University, 0, len(all))
	for i := range all {
		if zone != "" && !strings.EqualFold(all[i].Zone, zone) {
			continue
		}
		out = append(out, *s.withLogoURL(&all[i]))
	}
	return out, nil
}

func (s *universityService) Update(ctx context.Context, id string, input UpdateUniversityInput) (*models.University, error) {
	input.Name = trimmed(input.Name)
	input.Zone = trimmed(input.Zone)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && !strings.EqualFold(*input.Name, u.Name) {
		other, err := s.universityRepo.GetByName(ctx, *input.Name)
		if err == nil && other.ID != u.ID {
			return nil, ErrUniversityNameConflict
		}
		if err != nil && !errors.Is(err, repositories.ErrUniversityNotFound) {
			return nil, storeError("check university name", err)
		}
	}

	if input.Name != nil {
		u.Name = *input.Name
	}
	if input.Zone != nil {
		u.Zone = *input.Zone
	}
	if input.Abbreviation != nil {
		u.Abbreviation = strings.TrimSpace(*input.Abbreviation)
	}
	if input.Sports != nil {
		sports := cleanList(*input.Sports)
		if len(sports) == 0 && u.Registered() {
			return nil, fieldError("sports", "a registered university must keep at least one sport")
		}
		u.Sports = sports
	}
	if input.RosterSizes != nil {
		u.RosterSizes = input.RosterSizes
	}
	if input.Competing != nil {
		u.Competing = *input.Competing
	}
	if input.Withdrawn != nil {
		u.Withdrawn = *input.Withdrawn
		if u.Withdrawn {
			u.Competing = false
		}
	}
	u.UpdatedAt = s.now().UTC()
	u.LogoURL = nil

	if err := s.universityRepo.Update(ctx, u); err != nil {
		if errors.Is(err, repositories.ErrUniversityNotFound) {
			return nil, ErrUniversityNotFound
		}
		return nil, storeError("update university "+id, err)
	}
	return s.withLogoURL(u), nil
}

// Delete removes the university, its roster and the index entries of its
// players in one write. Universities that appear in matches are kept.
func (s *universityService) Delete(ctx context.Context, id string) error {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	matches, err := s.matchRepo.List(ctx)
	if err != nil {
		return storeError("list matches", err)
	}
	for _, m := range matches {
		if m.Involves(id) {
			return ErrUniversityInUse
		}
	}

	b := repositories.NewBatch(s.st)
	s.universityRepo.StageDelete(b, id)

	players, err := s.playerRepo.List(ctx)
	if err != nil && !errors.Is(err, store.ErrPermissionDenied) {
		return storeError("list players", err)
	}
	if err != nil {
		players, err = s.playerRepo.ListFromRosters(ctx)
		if err != nil {
			return storeError("walk rosters", err)
		}
	}
	for i := range players {
		if players[i].UniversityID == id {
			s.playerRepo.StageDelete(b, &players[i])
		}
	}

	if err := b.Commit(ctx); err != nil {
		return storeError("delete university "+id, err)
	}
	if u.LogoKey != nil && s.uploader != nil {
		s.deleteLogo(ctx, id, *u.LogoKey)
	}
	return nil
}

func (s *universityService) UploadLogo(ctx context.Context, id, contentType string, file io.Reader) (*models.University, error) {
	if s.uploader == nil {
		return nil, ErrLogoUploadDisabled
	}
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key, err := storage.LogoKey(id, contentType, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLogoType, contentType)
	}
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload logo for university %s: %w", id, err)
	}

	oldKey := u.LogoKey
	if err := s.universityRepo.Patch(ctx, id, map[string]any{
		"logo_key":   key,
		"updated_at": s.now().UTC(),
	}); err != nil {
		s.deleteLogo(ctx, id, key)
		return nil, storeError("save logo for university "+id, err)
	}
	if oldKey != nil && *oldKey != key {
		s.deleteLogo(ctx, id, *oldKey)
	}

	u.LogoKey = &key
	return s.withLogoURL(u), nil
}

func (s *universityService) Resolve(ctx context.Context, b *repositories.Batch, ref, zone string) (*models.University, error) {
	ref = strings.TrimSpace(ref)
	if !strings.Contains(ref, "/") {
		u, err := s.universityRepo.GetByID(ctx, ref)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, repositories.ErrUniversityNotFound) {
			return nil, storeError("resolve university", err)
		}
		if _, perr := uuid.Parse(ref); perr == nil {
			return nil, fmt.Errorf("%w: %s", ErrUniversityNotFound, ref)
		}
	}

	u, err := s.universityRepo.GetByName(ctx, ref)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repositories.ErrUniversityNotFound) {
		return nil, storeError("resolve university", err)
	}

	now := s.now().UTC()
	placeholder := &models.University{
		ID:        newID(),
		Name:      ref,
		Zone:      zone,
		Sports:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.universityRepo.StageSave(b, placeholder)
	return placeholder, nil
}

func (s *universityService) deleteLogo(ctx context.Context, universityID, key string) {
	if err := s.uploader.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete logo object",
			slog.String("university_id", universityID),
			slog.String("key", key),
			slog.Any("error", err),
		)
	}
}

func (s *universityService) withLogoURL(u *models.University) *models.University {
	if s.uploader != nil && u.LogoKey != nil && *u.LogoKey != "" {
		url := s.uploader.GetPublicURL(*u.LogoKey)
		u.LogoURL = &url
	}
	return u
}
