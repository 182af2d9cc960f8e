package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/repositories"
	"github.com/nhsfuk/dharmic-games/store"
)

func (e *testEnv) scheduled(t *testing.T, team1, team2, sport string) *models.MatchView {
	t.Helper()
	m, err := e.matches.Create(context.Background(), CreateMatchInput{
		Team1: team1, Team2: team2, Sport: sport, Venue: "Main hall", Zone: "North",
		ScheduledAt: time.Now().Add(48 * time.Hour),
	})
	require.NoError(t, err)
	return m
}

func TestMatchService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leeds := env.university(t, "Leeds", "North", "Football")

	_, err := env.matches.Create(ctx, CreateMatchInput{
		Team1: leeds.ID, Team2: "leeds", Sport: "Football", Venue: "Pitch",
		ScheduledAt: time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, ErrMatchSameTeams)

	_, err = env.matches.Create(ctx, CreateMatchInput{
		Team1: leeds.ID, Team2: "York", Sport: "Football", Venue: "Pitch",
		ScheduledAt: time.Now().Add(-time.Hour),
	})
	assert.ErrorIs(t, err, ErrMatchInPast)

	_, err = env.matches.Create(ctx, CreateMatchInput{Team1: leeds.ID, Team2: "York", Sport: "Football"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "venue")
	assert.Contains(t, verr.Fields, "scheduled_at")

	all, err := env.universityRepo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "rejected matches must not leave placeholders behind")
}

func TestMatchService_CreateRejectsUnknownUniversityID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leeds := env.university(t, "Leeds", "North", "Football")
	stale := uuid.NewString()

	_, err := env.matches.Create(ctx, CreateMatchInput{
		Team1: leeds.ID, Team2: stale, Sport: "Football", Venue: "Pitch",
		ScheduledAt: time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, ErrUniversityNotFound)

	all, err := env.universityRepo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, leeds.ID, all[0].ID)

	matches, err := env.matchRepo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMatchService_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leeds := env.university(t, "Leeds", "North", "Football")
	york := env.university(t, "York", "North", "Football")
	m := env.scheduled(t, leeds.ID, york.Name, "Football")
	assert.Equal(t, models.MatchStatusScheduled, m.Status)
	assert.Equal(t, york.ID, m.Team2ID)

	_, err := env.matches.UpdateScore(ctx, m.ID, ScoreInput{Team1: 1})
	assert.ErrorIs(t, err, ErrMatchNotLive)
	_, err = env.matches.Complete(ctx, m.ID, nil)
	assert.ErrorIs(t, err, ErrMatchInvalidStatusTransition)

	live, err := env.matches.Start(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusLive, live.Status)
	assert.Equal(t, "0-0", live.Score)
	assert.NotNil(t, live.StartedAt)

	ls, err := env.liveScoreRepo.GetByMatchID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "0-0", ls.Score)

	scores, err := env.matches.LiveScores(ctx)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, m.ID, scores[0].MatchID)

	_, err = env.matches.Update(ctx, m.ID, UpdateMatchInput{})
	assert.ErrorIs(t, err, ErrMatchNotEditable)

	live, err = env.matches.UpdateScore(ctx, m.ID, ScoreInput{
		Team1: 2, Team2: 1,
		Substitution: &models.Substitution{Team: 1, Out: "Asha", In: "Mira", Minute: 60},
	})
	require.NoError(t, err)
	assert.Equal(t, "2-1", live.Score)
	require.NotNil(t, live.Stats)
	require.Len(t, live.Stats.Substitutions, 1)
	assert.False(t, live.Stats.Substitutions[0].At.IsZero())

	ls, err = env.liveScoreRepo.GetByMatchID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "2-1", ls.Score)

	done, err := env.matches.Complete(ctx, m.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, done.Status)
	assert.Equal(t, "2-1", done.Score, "completion without a final score keeps the live score")
	assert.NotNil(t, done.CompletedAt)

	_, err = env.liveScoreRepo.GetByMatchID(ctx, m.ID)
	assert.ErrorIs(t, err, repositories.ErrLiveScoreNotFound)

	gotLeeds, err := env.universities.GetByID(ctx, leeds.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UniversityStats{Wins: 1, Points: 3, MatchesPlayed: 1}, gotLeeds.Stats)
	gotYork, err := env.universities.GetByID(ctx, york.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UniversityStats{Losses: 1, MatchesPlayed: 1}, gotYork.Stats)

	// Terminal: no way back to live, no cancellation.
	_, err = env.matches.Start(ctx, m.ID)
	assert.ErrorIs(t, err, ErrMatchInvalidStatusTransition)
	_, err = env.matches.Cancel(ctx, m.ID, "")
	assert.ErrorIs(t, err, ErrMatchInvalidStatusTransition)
	_, err = env.matches.UpdateScore(ctx, m.ID, ScoreInput{Team1: 5})
	assert.ErrorIs(t, err, ErrMatchNotLive)
}

func TestMatchService_CricketUsesSlashScores(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leeds := env.university(t, "Leeds", "North", "Cricket")
	york := env.university(t, "York", "North", "Cricket")
	m := env.scheduled(t, leeds.ID, york.ID, "Cricket")

	live, err := env.matches.Start(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "0/0", live.Score)

	wickets := 7
	done, err := env.matches.Complete(ctx, m.ID, &ScoreInput{Team1: 145, Team2: 150, Team2Wickets: &wickets})
	require.NoError(t, err)
	assert.Equal(t, "145/150", done.Score)
	require.NotNil(t, done.Stats)
	assert.Equal(t, 7, *done.Stats.Team2Wickets)

	gotYork, err := env.universities.GetByID(ctx, york.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, gotYork.Stats.Points)
}

func TestMatchService_CancelRemovesLiveScore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leeds := env.university(t, "Leeds", "North", "Football")
	york := env.university(t, "York", "North", "Football")

	scheduled := env.scheduled(t, leeds.ID, york.ID, "Football")
	cancelled, err := env.matches.Cancel(ctx, scheduled.ID, "  waterlogged pitch ")
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCancelled, cancelled.Status)
	assert.Equal(t, "waterlogged pitch", cancelled.Notes)
	assert.NotNil(t, cancelled.CancelledAt)

	live := env.scheduled(t, leeds.ID, york.ID, "Football")
	_, err = env.matches.Start(ctx, live.ID)
	require.NoError(t, err)
	_, err = env.matches.Cancel(ctx, live.ID, "")
	require.NoError(t, err)
	_, err = env.liveScoreRepo.GetByMatchID(ctx, live.ID)
	assert.ErrorIs(t, err, repositories.ErrLiveScoreNotFound)

	_, err = env.matches.Start(ctx, live.ID)
	assert.ErrorIs(t, err, ErrMatchInvalidStatusTransition)
}

func TestMatchService_CorrectScoreAndDeleteRederiveStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leeds := env.university(t, "Leeds", "North", "Football")
	york := env.university(t, "York", "North", "Football")
	m := env.scheduled(t, leeds.ID, york.ID, "Football")

	_, err := env.matches.CorrectScore(ctx, m.ID, ScoreInput{Team1: 1})
	assert.ErrorIs(t, err, ErrMatchNotCompleted)

	_, err = env.matches.Start(ctx, m.ID)
	require.NoError(t, err)
	_, err = env.matches.Complete(ctx, m.ID, &ScoreInput{Team1: 3, Team2: 0})
	require.NoError(t, err)

	corrected, err := env.matches.CorrectScore(ctx, m.ID, ScoreInput{Team1: 1, Team2: 1})
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, corrected.Status)
	assert.Equal(t, "1-1", corrected.Score)

	gotLeeds, err := env.universities.GetByID(ctx, leeds.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UniversityStats{Draws: 1, Points: 1, MatchesPlayed: 1}, gotLeeds.Stats)

	require.NoError(t, env.matches.Delete(ctx, m.ID))
	_, err = env.matches.GetByID(ctx, m.ID)
	assert.ErrorIs(t, err, ErrMatchNotFound)

	gotLeeds, err = env.universities.GetByID(ctx, leeds.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UniversityStats{}, gotLeeds.Stats)
}

func TestMatchService_ListFiltersAndOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leeds := env.university(t, "Leeds", "North", "Football", "Cricket")
	york := env.university(t, "York", "North", "Football", "Cricket")

	later, err := env.matches.Create(ctx, CreateMatchInput{
		Team1: leeds.ID, Team2: york.ID, Sport: "Cricket", Venue: "Oval",
		ScheduledAt: time.Now().Add(72 * time.Hour),
	})
	require.NoError(t, err)
	sooner := env.scheduled(t, leeds.ID, york.ID, "Football")
	_, err = env.matches.Start(ctx, sooner.ID)
	require.NoError(t, err)

	all, err := env.matches.List(ctx, models.MatchFilter{UniversityID: york.ID})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, sooner.ID, all[0].ID)
	assert.Equal(t, "Leeds", all[0].Team1Name)
	assert.Equal(t, "York", all[0].Team2Name)

	live := models.MatchStatusLive
	onlyLive, err := env.matches.List(ctx, models.MatchFilter{Status: &live})
	require.NoError(t, err)
	require.Len(t, onlyLive, 1)
	assert.Equal(t, sooner.ID, onlyLive[0].ID)

	cricket, err := env.matches.List(ctx, models.MatchFilter{Sport: "cricket"})
	require.NoError(t, err)
	require.Len(t, cricket, 1)
	assert.Equal(t, later.ID, cricket[0].ID)

	venue := "  Headingley "
	updated, err := env.matches.Update(ctx, later.ID, UpdateMatchInput{Venue: &venue})
	require.NoError(t, err)
	assert.Equal(t, "Headingley", updated.Venue)

	past := time.Now().Add(-time.Hour)
	_, err = env.matches.Update(ctx, later.ID, UpdateMatchInput{ScheduledAt: &past})
	assert.ErrorIs(t, err, ErrMatchInPast)
}

func TestMatchService_ReportsStoreDenial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.st.Deny(repositories.PathMatches)

	_, err := env.matches.List(ctx, models.MatchFilter{})
	assert.ErrorIs(t, err, ErrStorePermissionDenied)
	assert.ErrorIs(t, err, store.ErrPermissionDenied)
}
