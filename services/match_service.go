package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/repositories"
	"github.com/nhsfuk/dharmic-games/scoring"
	"github.com/nhsfuk/dharmic-games/store"
)

type MatchService interface {
	Create(ctx context.Context, input CreateMatchInput) (*models.MatchView, error)
	GetByID(ctx context.Context, id string) (*models.MatchView, error)
	List(ctx context.Context, filter models.MatchFilter) ([]models.MatchView, error)
	Update(ctx context.Context, id string, input UpdateMatchInput) (*models.MatchView, error)
	Delete(ctx context.Context, id string) error

	Start(ctx context.Context, id string) (*models.MatchView, error)
	UpdateScore(ctx context.Context, id string, input ScoreInput) (*models.MatchView, error)
	Complete(ctx context.Context, id string, final *ScoreInput) (*models.MatchView, error)
	Cancel(ctx context.Context, id string, reason string) (*models.MatchView, error)
	CorrectScore(ctx context.Context, id string, input ScoreInput) (*models.MatchView, error)

	// LiveScores returns the scoreboard entries of matches in progress.
	LiveScores(ctx context.Context) ([]models.LiveScore, error)
}

type CreateMatchInput struct {
	// Team1 and Team2 accept a university ID or a display name.
	Team1       string    `json:"team1" validate:"required,max=120"`
	Team2       string    `json:"team2" validate:"required,max=120"`
	Sport       string    `json:"sport" validate:"required,max=40"`
	Venue       string    `json:"venue" validate:"required,max=120"`
	Zone        string    `json:"zone" validate:"omitempty,max=60"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Notes       string    `json:"notes" validate:"omitempty,max=500"`
}

type UpdateMatchInput struct {
	Venue       *string    `json:"venue" validate:"omitempty,max=120"`
	Zone        *string    `json:"zone" validate:"omitempty,max=60"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Notes       *string    `json:"notes" validate:"omitempty,max=500"`
}

type ScoreInput struct {
	Team1        int                  `json:"team1" validate:"gte=0,lte=10000"`
	Team2        int                  `json:"team2" validate:"gte=0,lte=10000"`
	Team1Wickets *int                 `json:"team1_wickets" validate:"omitempty,gte=0,lte=10"`
	Team2Wickets *int                 `json:"team2_wickets" validate:"omitempty,gte=0,lte=10"`
	Substitution *models.Substitution `json:"substitution"`
}

type matchService struct {
	st             store.Store
	matchRepo      repositories.MatchRepository
	universityRepo repositories.UniversityRepository
	liveScoreRepo  repositories.LiveScoreRepository
	universities   UniversityService
	now            func() time.Time
}

func NewMatchService(
	st store.Store,
	matchRepo repositories.MatchRepository,
	universityRepo repositories.UniversityRepository,
	liveScoreRepo repositories.LiveScoreRepository,
	universities UniversityService,
) MatchService {
	return &matchService{
		st:             st,
		matchRepo:      matchRepo,
		universityRepo: universityRepo,
		liveScoreRepo:  liveScoreRepo,
		universities:   universities,
		now:            time.Now,
	}
}

func (s *matchService) Create(ctx context.Context, input CreateMatchInput) (*models.MatchView, error) {
	input.Team1 = strings.TrimSpace(input.Team1)
	input.Team2 = strings.TrimSpace(input.Team2)
	input.Venue = strings.TrimSpace(input.Venue)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if input.ScheduledAt.Before(now) {
		return nil, ErrMatchInPast
	}

	b := repositories.NewBatch(s.st)
	team1, err := s.universities.Resolve(ctx, b, input.Team1, input.Zone)
	if err != nil {
		return nil, err
	}
	team2, err := s.universities.Resolve(ctx, b, input.Team2, input.Zone)
	if err != nil {
		return nil, err
	}
	if team1.ID == team2.ID || strings.EqualFold(team1.Name, team2.Name) {
		return nil, ErrMatchSameTeams
	}

	m := &models.Match{
		ID:          newID(),
		Team1ID:     team1.ID,
		Team2ID:     team2.ID,
		Sport:       input.Sport,
		Venue:       input.Venue,
		Zone:        input.Zone,
		ScheduledAt: input.ScheduledAt.UTC(),
		Status:      models.MatchStatusScheduled,
		Notes:       input.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.matchRepo.StageSave(b, m)
	if err := b.Commit(ctx); err != nil {
		return nil, storeError("create match", err)
	}
	return &models.MatchView{Match: *m, Team1Name: team1.Name, Team2Name: team2.Name}, nil
}

func (s *matchService) GetByID(ctx context.Context, id string) (*models.MatchView, error) {
	m, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, m)
}

func (s *matchService) List(ctx context.Context, filter models.MatchFilter) ([]models.MatchView, error) {
	matches, err := s.matchRepo.List(ctx)
	if err != nil {
		return nil, storeError("list matches", err)
	}
	names, err := s.names(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.MatchView, 0, len(matches))
	for _, m := range matches {
		if !filter.Matches(m) {
			continue
		}
		out = append(out, models.MatchView{Match: m, Team1Name: names[m.Team1ID], Team2Name: names[m.Team2ID]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *matchService) LiveScores(ctx context.Context) ([]models.LiveScore, error) {
	scores, err := s.liveScoreRepo.List(ctx)
	if err != nil {
		return nil, storeError("list live scores", err)
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].MatchID < scores[j].MatchID })
	return scores, nil
}

func (s *matchService) Update(ctx context.Context, id string, input UpdateMatchInput) (*models.MatchView, error) {
	input.Venue = trimmed(input.Venue)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	m, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MatchStatusScheduled {
		return nil, ErrMatchNotEditable
	}

	if input.Venue != nil {
		if *input.Venue == "" {
			return nil, fieldError("venue", "is required")
		}
		m.Venue = *input.Venue
	}
	if input.Zone != nil {
		m.Zone = strings.TrimSpace(*input.Zone)
	}
	if input.ScheduledAt != nil {
		if input.ScheduledAt.Before(s.now()) {
			return nil, ErrMatchInPast
		}
		m.ScheduledAt = input.ScheduledAt.UTC()
	}
	if input.Notes != nil {
		m.Notes = *input.Notes
	}
	m.UpdatedAt = s.now().UTC()

	if err := s.matchRepo.Update(ctx, m); err != nil {
		return nil, storeError("update match "+id, err)
	}
	return s.view(ctx, m)
}

// Delete removes the match and its live score. Deleting a completed match
// re-derives the stats of both universities.
func (s *matchService) Delete(ctx context.Context, id string) error {
	m, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	b := repositories.NewBatch(s.st)
	s.matchRepo.StageDelete(b, id)
	s.liveScoreRepo.StageDelete(b, id)

	if m.Status == models.MatchStatusCompleted {
		matches, err := s.matchRepo.List(ctx)
		if err != nil {
			return storeError("list matches", err)
		}
		remaining := make([]models.Match, 0, len(matches))
		for _, other := range matches {
			if other.ID != id {
				remaining = append(remaining, other)
			}
		}
		if err := s.stageStats(ctx, b, m, remaining); err != nil {
			return err
		}
	}

	if err := b.Commit(ctx); err != nil {
		return storeError("delete match "+id, err)
	}
	return nil
}

func (s *matchService) Start(ctx context.Context, id string) (*models.MatchView, error) {
	m, err := s.transition(ctx, id, models.MatchStatusLive)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	m.Score = scoring.ZeroScore(m.Sport)
	m.StartedAt = &now
	m.UpdatedAt = now

	b := repositories.NewBatch(s.st)
	s.matchRepo.StageSave(b, m)
	s.liveScoreRepo.StageSave(b, liveScoreOf(m, now))
	if err := b.Commit(ctx); err != nil {
		return nil, storeError("start match "+id, err)
	}
	return s.view(ctx, m)
}

func (s *matchService) UpdateScore(ctx context.Context, id string, input ScoreInput) (*models.MatchView, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	m, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MatchStatusLive {
		return nil, ErrMatchNotLive
	}

	now := s.now().UTC()
	if err := applyScore(m, input, now); err != nil {
		return nil, err
	}
	m.UpdatedAt = now

	b := repositories.NewBatch(s.st)
	s.matchRepo.StageSave(b, m)
	s.liveScoreRepo.StageSave(b, liveScoreOf(m, now))
	if err := b.Commit(ctx); err != nil {
		return nil, storeError("update score for match "+id, err)
	}
	return s.view(ctx, m)
}

// Complete freezes the score and writes the match together with the
// re-derived stats of both universities.
func (s *matchService) Complete(ctx context.Context, id string, final *ScoreInput) (*models.MatchView, error) {
	if final != nil {
		if err := validateInput(*final); err != nil {
			return nil, err
		}
	}
	m, err := s.transition(ctx, id, models.MatchStatusCompleted)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if final != nil {
		if err := applyScore(m, *final, now); err != nil {
			return nil, err
		}
	}
	if m.Score == "" {
		m.Score = scoring.ZeroScore(m.Sport)
	}
	m.CompletedAt = &now
	m.UpdatedAt = now

	return s.saveCompleted(ctx, m, "complete match "+id)
}

func (s *matchService) Cancel(ctx context.Context, id string, reason string) (*models.MatchView, error) {
	m, err := s.transition(ctx, id, models.MatchStatusCancelled)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	m.CancelledAt = &now
	m.UpdatedAt = now
	if reason = strings.TrimSpace(reason); reason != "" {
		m.Notes = reason
	}

	b := repositories.NewBatch(s.st)
	s.matchRepo.StageSave(b, m)
	s.liveScoreRepo.StageDelete(b, id)
	if err := b.Commit(ctx); err != nil {
		return nil, storeError("cancel match "+id, err)
	}
	return s.view(ctx, m)
}

func (s *matchService) CorrectScore(ctx context.Context, id string, input ScoreInput) (*models.MatchView, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	m, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MatchStatusCompleted {
		return nil, ErrMatchNotCompleted
	}

	now := s.now().UTC()
	if err := applyScore(m, input, now); err != nil {
		return nil, err
	}
	m.UpdatedAt = now

	return s.saveCompleted(ctx, m, "correct score for match "+id)
}

func (s *matchService) saveCompleted(ctx context.Context, m *models.Match, op string) (*models.MatchView, error) {
	matches, err := s.matchRepo.List(ctx)
	if err != nil {
		return nil, storeError("list matches", err)
	}
	replaced := false
	for i := range matches {
		if matches[i].ID == m.ID {
			matches[i] = *m
			replaced = true
		}
	}
	if !replaced {
		matches = append(matches, *m)
	}

	b := repositories.NewBatch(s.st)
	s.matchRepo.StageSave(b, m)
	s.liveScoreRepo.StageDelete(b, m.ID)
	if err := s.stageStats(ctx, b, m, matches); err != nil {
		return nil, err
	}
	if err := b.Commit(ctx); err != nil {
		return nil, storeError(op, err)
	}
	return s.view(ctx, m)
}

// stageStats writes the stats of both sides of m as derived from matches.
func (s *matchService) stageStats(ctx context.Context, b *repositories.Batch, m *models.Match, matches []models.Match) error {
	for _, uid := range []string{m.Team1ID, m.Team2ID} {
		u, err := s.universityRepo.GetByID(ctx, uid)
		if errors.Is(err, repositories.ErrUniversityNotFound) {
			continue
		}
		if err != nil {
			return storeError("get university "+uid, err)
		}
		u.Stats = scoring.StatsFor(uid, matches)
		u.UpdatedAt = s.now().UTC()
		s.universityRepo.StageSave(b, u)
	}
	return nil
}

func (s *matchService) transition(ctx context.Context, id string, next models.MatchStatus) (*models.Match, error) {
	m, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrMatchInvalidStatusTransition, m.Status, next)
	}
	m.Status = next
	return m, nil
}

func (s *matchService) get(ctx context.Context, id string) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, storeError("get match "+id, err)
	}
	return m, nil
}

func (s *matchService) view(ctx context.Context, m *models.Match) (*models.MatchView, error) {
	names, err := s.names(ctx)
	if err != nil {
		return nil, err
	}
	return &models.MatchView{Match: *m, Team1Name: names[m.Team1ID], Team2Name: names[m.Team2ID]}, nil
}

func (s *matchService) names(ctx context.Context) (map[string]string, error) {
	universities, err := s.universityRepo.List(ctx)
	if err != nil {
		return nil, storeError("list universities", err)
	}
	names := make(map[string]string, len(universities))
	for _, u := range universities {
		names[u.ID] = u.Name
	}
	return names, nil
}

func applyScore(m *models.Match, input ScoreInput, at time.Time) error {
	if input.Substitution != nil && input.Substitution.Team != 1 && input.Substitution.Team != 2 {
		return fieldError("substitution.team", "must be 1 or 2")
	}
	m.Score = scoring.FormatScore(m.Sport, input.Team1, input.Team2)

	if input.Team1Wickets == nil && input.Team2Wickets == nil && input.Substitution == nil {
		return nil
	}
	if m.Stats == nil {
		m.Stats = &models.MatchStats{}
	}
	if input.Team1Wickets != nil {
		m.Stats.Team1Wickets = input.Team1Wickets
	}
	if input.Team2Wickets != nil {
		m.Stats.Team2Wickets = input.Team2Wickets
	}
	if input.Substitution != nil {
		sub := *input.Substitution
		sub.At = at
		m.Stats.Substitutions = append(m.Stats.Substitutions, sub)
	}
	return nil
}

func liveScoreOf(m *models.Match, at time.Time) *models.LiveScore {
	return &models.LiveScore{
		MatchID:   m.ID,
		Sport:     m.Sport,
		Team1ID:   m.Team1ID,
		Team2ID:   m.Team2ID,
		Score:     m.Score,
		Stats:     m.Stats,
		UpdatedAt: at,
	}
}
