package services

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nhsfuk/dharmic-games/metrics"
	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/repositories"
	"github.com/nhsfuk/dharmic-games/scoring"
)

type StandingsService interface {
	// Recompute loads every match and university, ranks them and replaces the
	// cached table.
	Recompute(ctx context.Context) ([]models.Standing, error)
	Leaderboard(ctx context.Context, zone string) ([]models.Standing, error)
	ForUniversity(ctx context.Context, universityID string) (*models.Standing, error)
	// Latest returns the table from the last recompute without touching the store.
	Latest() []models.Standing
}

type standingsService struct {
	matchRepo      repositories.MatchRepository
	universityRepo repositories.UniversityRepository
	logger         *slog.Logger
	now            func() time.Time

	mu       sync.RWMutex
	latest   []models.Standing
	latestAt time.Time
}

func NewStandingsService(
	matchRepo repositories.MatchRepository,
	universityRepo repositories.UniversityRepository,
	logger *slog.Logger,
) StandingsService {
	return &standingsService{
		matchRepo:      matchRepo,
		universityRepo: universityRepo,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *standingsService) Recompute(ctx context.Context) ([]models.Standing, error) {
	start := time.Now()
	defer metrics.ObserveRecompute(start)
	loadedAt := s.now()

	var (
		matches      []models.Match
		universities []models.University
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.List(gctx)
		if err != nil {
			return storeError("list matches", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		universities, err = s.universityRepo.List(gctx)
		if err != nil {
			return storeError("list universities", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	standings, issues := scoring.AggregateWithIssues(matches, universities)
	for _, issue := range issues {
		s.logger.Warn("completed match has an unparsable score, counted as 0-0",
			slog.String("match_id", issue.MatchID),
			slog.String("sport", issue.Sport),
			slog.String("score", issue.Raw),
			slog.Any("error", issue.Err),
		)
	}
	metrics.ScoreParseIssues.Add(float64(len(issues)))

	// An older load finishing late must not replace a newer table.
	s.mu.Lock()
	if s.latest == nil || !loadedAt.Before(s.latestAt) {
		s.latest = standings
		s.latestAt = loadedAt
	}
	s.mu.Unlock()

	return cloneStandings(standings), nil
}

// Leaderboard ranks within a zone when one is given. Matches against
// universities from other zones still count.
func (s *standingsService) Leaderboard(ctx context.Context, zone string) ([]models.Standing, error) {
	standings, err := s.Recompute(ctx)
	if err != nil {
		return nil, err
	}
	if zone == "" {
		return standings, nil
	}

	out := make([]models.Standing, 0, len(standings))
	for _, st := range standings {
		if strings.EqualFold(st.Zone, zone) {
			out = append(out, st)
		}
	}
	scoring.Rank(out)
	return out, nil
}

func (s *standingsService) ForUniversity(ctx context.Context, universityID string) (*models.Standing, error) {
	standings, err := s.Recompute(ctx)
	if err != nil {
		return nil, err
	}
	for i := range standings {
		if standings[i].UniversityID == universityID {
			return &standings[i], nil
		}
	}
	return nil, ErrUniversityNotFound
}

func (s *standingsService) Latest() []models.Standing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneStandings(s.latest)
}

func cloneStandings(in []models.Standing) []models.Standing {
	if in == nil {
		return []models.Standing{}
	}
	out := make([]models.Standing, len(in))
	copy(out, in)
	return out
}
