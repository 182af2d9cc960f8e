package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/repositories"
	"github.com/nhsfuk/dharmic-games/store"
)

// DegradedPlayersNotice is shown when the player list was rebuilt from rosters.
const DegradedPlayersNotice = "Player list is loading from university rosters; some details may be delayed."

type PlayerService interface {
	Register(ctx context.Context, input RegisterPlayerInput) (*models.Player, error)
	GetByID(ctx context.Context, id string) (*models.Player, error)
	List(ctx context.Context, filter models.PlayerFilter) (*PlayerList, error)
	Update(ctx context.Context, id string, input UpdatePlayerInput) (*models.Player, error)
	CheckIn(ctx context.Context, id string, checkedIn bool) (*models.Player, error)
	Delete(ctx context.Context, id string) error
}

// PlayerList is a player listing plus whether it came from the fallback walk.
type PlayerList struct {
	Players  []models.Player `json:"players"`
	Degraded bool            `json:"degraded"`
	Notice   string          `json:"notice,omitempty"`
}

type RegisterPlayerInput struct {
	Name         string `json:"name" validate:"required,min=2,max=100"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"omitempty,max=30"`
	Sport        string `json:"sport" validate:"required,max=40"`
	UniversityID string `json:"university_id" validate:"required"`
}

type UpdatePlayerInput struct {
	Name         *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Phone        *string `json:"phone" validate:"omitempty,max=30"`
	Sport        *string `json:"sport" validate:"omitempty,max=40"`
	UniversityID *string `json:"university_id"`
}

type playerService struct {
	playerRepo     repositories.PlayerRepository
	universityRepo repositories.UniversityRepository
	now            func() time.Time
}

func NewPlayerService(playerRepo repositories.PlayerRepository, universityRepo repositories.UniversityRepository) PlayerService {
	return &playerService{
		playerRepo:     playerRepo,
		universityRepo: universityRepo,
		now:            time.Now,
	}
}

func (s *playerService) Register(ctx context.Context, input RegisterPlayerInput) (*models.Player, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	u, sport, err := s.eligibleUniversity(ctx, input.UniversityID, input.Sport)
	if err != nil {
		return nil, err
	}
	if err := s.checkRosterSpace(ctx, u, sport, ""); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &models.Player{
		ID:           newID(),
		Name:         input.Name,
		Email:        input.Email,
		Phone:        strings.TrimSpace(input.Phone),
		Sport:        sport,
		UniversityID: u.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.playerRepo.Save(ctx, nil, p); err != nil {
		return nil, storeError("register player", err)
	}
	return p, nil
}

func (s *playerService) GetByID(ctx context.Context, id string) (*models.Player, error) {
	p, err := s.playerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, storeError("get player "+id, err)
	}
	return p, nil
}

// List reads the players index. When the index is not readable it walks the
// university rosters instead and flags the result as degraded.
func (s *playerService) List(ctx context.Context, filter models.PlayerFilter) (*PlayerList, error) {
	result := &PlayerList{}
	players, err := s.playerRepo.List(ctx)
	if errors.Is(err, store.ErrPermissionDenied) {
		players, err = s.playerRepo.ListFromRosters(ctx)
		result.Degraded = true
		result.Notice = DegradedPlayersNotice
	}
	if err != nil {
		return nil, storeError("list players", err)
	}

	result.Players = make([]models.Player, 0, len(players))
	for _, p := range players {
		if filter.Matches(p) {
			result.Players = append(result.Players, p)
		}
	}
	sort.SliceStable(result.Players, func(i, j int) bool {
		a, b := result.Players[i], result.Players[j]
		if !strings.EqualFold(a.Name, b.Name) {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
		return a.ID < b.ID
	})
	return result, nil
}

func (s *playerService) Update(ctx context.Context, id string, input UpdatePlayerInput) (*models.Player, error) {
	input.Name = trimmed(input.Name)
	input.Email = trimmed(input.Email)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	previous, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p := *previous

	if input.Name != nil {
		p.Name = *input.Name
	}
	if input.Email != nil {
		p.Email = *input.Email
	}
	if input.Phone != nil {
		p.Phone = strings.TrimSpace(*input.Phone)
	}

	universityID := p.UniversityID
	if input.UniversityID != nil {
		universityID = strings.TrimSpace(*input.UniversityID)
	}
	sport := p.Sport
	if input.Sport != nil {
		sport = *input.Sport
	}
	if universityID != p.UniversityID || !models.SameSport(sport, p.Sport) {
		u, resolved, err := s.eligibleUniversity(ctx, universityID, sport)
		if err != nil {
			return nil, err
		}
		if err := s.checkRosterSpace(ctx, u, resolved, p.ID); err != nil {
			return nil, err
		}
		p.UniversityID = u.ID
		p.Sport = resolved
	}
	p.UpdatedAt = s.now().UTC()

	if err := s.playerRepo.Save(ctx, previous, &p); err != nil {
		return nil, storeError("update player "+id, err)
	}
	return &p, nil
}

func (s *playerService) CheckIn(ctx context.Context, id string, checkedIn bool) (*models.Player, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p.CheckedIn = checkedIn
	if checkedIn {
		p.CheckedInAt = &now
	} else {
		p.CheckedInAt = nil
	}
	p.UpdatedAt = now

	if err := s.playerRepo.Save(ctx, nil, p); err != nil {
		return nil, storeError("check in player "+id, err)
	}
	return p, nil
}

func (s *playerService) Delete(ctx context.Context, id string) error {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.playerRepo.Delete(ctx, p); err != nil {
		return storeError("delete player "+id, err)
	}
	return nil
}

// eligibleUniversity returns the university and its own spelling of sport.
func (s *playerService) eligibleUniversity(ctx context.Context, universityID, sport string) (*models.University, string, error) {
	u, err := s.universityRepo.GetByID(ctx, universityID)
	if err != nil {
		if errors.Is(err, repositories.ErrUniversityNotFound) {
			return nil, "", ErrUniversityNotFound
		}
		return nil, "", storeError("get university "+universityID, err)
	}
	if u.Withdrawn {
		return nil, "", fieldError("university_id", "university has withdrawn")
	}
	for _, registered := range u.Sports {
		if models.SameSport(registered, sport) {
			return u, models.SportKey(registered), nil
		}
	}
	return nil, "", ErrPlayerSportNotRegistered
}

func (s *playerService) checkRosterSpace(ctx context.Context, u *models.University, sport, exclude string) error {
	limit := 0
	for k, n := range u.RosterSizes {
		if models.SameSport(k, sport) {
			limit = n
		}
	}
	if limit <= 0 {
		return nil
	}

	list, err := s.List(ctx, models.PlayerFilter{UniversityID: u.ID, Sport: sport})
	if err != nil {
		return err
	}
	count := 0
	for _, p := range list.Players {
		if p.ID != exclude {
			count++
		}
	}
	if count >= limit {
		return ErrRosterFull
	}
	return nil
}
