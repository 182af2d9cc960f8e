package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/repositories"
)

type DashboardService interface {
	GetStats(ctx context.Context) (*DashboardResult, error)
}

// DashboardResult carries the stats cards plus the degraded flag of the
// player count.
type DashboardResult struct {
	models.DashboardStats
	Degraded bool   `json:"degraded,omitempty"`
	Notice   string `json:"notice,omitempty"`
}

type dashboardService struct {
	universityRepo repositories.UniversityRepository
	matchRepo      repositories.MatchRepository
	requestRepo    repositories.AdminRequestRepository
	players        PlayerService
}

func NewDashboardService(
	universityRepo repositories.UniversityRepository,
	matchRepo repositories.MatchRepository,
	requestRepo repositories.AdminRequestRepository,
	players PlayerService,
) DashboardService {
	return &dashboardService{
		universityRepo: universityRepo,
		matchRepo:      matchRepo,
		requestRepo:    requestRepo,
		players:        players,
	}
}

func (s *dashboardService) GetStats(ctx context.Context) (*DashboardResult, error) {
	var (
		universities []models.University
		matches      []models.Match
		requests     []models.AdminRequest
		players      *PlayerList
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		if universities, err = s.universityRepo.List(gctx); err != nil {
			return storeError("list universities", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if matches, err = s.matchRepo.List(gctx); err != nil {
			return storeError("list matches", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if requests, err = s.requestRepo.List(gctx); err != nil {
			return storeError("list admin requests", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		players, err = s.players.List(gctx, models.PlayerFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &DashboardResult{
		DashboardStats: models.DashboardStats{
			MatchesByStatus: map[models.MatchStatus]int{
				models.MatchStatusScheduled: 0,
				models.MatchStatusLive:      0,
				models.MatchStatusCompleted: 0,
				models.MatchStatusCancelled: 0,
			},
		},
		Degraded: players.Degraded,
		Notice:   players.Notice,
	}
	for _, u := range universities {
		if !u.Registered() {
			continue
		}
		res.UniversitiesTotal++
		if u.Competing && !u.Withdrawn {
			res.UniversitiesCompeting++
		}
		if u.Withdrawn {
			res.UniversitiesWithdrawn++
		}
	}
	res.PlayersTotal = len(players.Players)
	for _, p := range players.Players {
		if p.CheckedIn {
			res.PlayersCheckedIn++
		}
	}
	for _, m := range matches {
		res.MatchesByStatus[m.Status]++
	}
	for _, r := range requests {
		if r.Status == models.AdminRequestPending {
			res.PendingAdminRequests++
		}
	}
	return res, nil
}
