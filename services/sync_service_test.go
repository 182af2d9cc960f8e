package services

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/realtime"
	"github.com/nhsfuk/dharmic-games/repositories"
	"github.com/nhsfuk/dharmic-games/store"
)

type recorder struct {
	updates []realtime.Update
}

func (r *recorder) listen(u realtime.Update) error {
	r.updates = append(r.updates, u)
	return nil
}

func (r *recorder) ofType(t realtime.EntityType) []realtime.Update {
	var out []realtime.Update
	for _, u := range r.updates {
		if u.Type == t {
			out = append(out, u)
		}
	}
	return out
}

func TestSyncService_MatchChangesReachLeagueTable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.sync.Start(ctx)
	defer env.sync.Stop()

	league := &recorder{}
	env.notifier.Subscribe(realtime.ComponentLeagueTable, league.listen)

	leeds := env.university(t, "Leeds", "North", "Football")
	york := env.university(t, "York", "North", "Football")
	require.Len(t, league.ofType(realtime.TypeUniversity), 2)

	league.updates = nil
	env.play(t, leeds.ID, york.ID, "Football", 1, 0)

	matchUpdates := league.ofType(realtime.TypeMatch)
	require.NotEmpty(t, matchUpdates)
	last := matchUpdates[len(matchUpdates)-1]
	payload, ok := last.Data.(ChangePayload)
	require.True(t, ok)
	require.Len(t, payload.Standings, 2)
	assert.Equal(t, "Leeds", payload.Standings[0].University)
	assert.Equal(t, 3, payload.Standings[0].Points)
	m, ok := payload.Value.(models.Match)
	require.True(t, ok)
	assert.Equal(t, models.MatchStatusCompleted, m.Status)

	scores := league.ofType(realtime.TypeScore)
	require.NotEmpty(t, scores)
	assert.Equal(t, realtime.ActionDeleted, scores[len(scores)-1].Action, "completion removes the live score")
}

func TestSyncService_AdminRequestSkipsLeagueTable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.sync.Start(ctx)
	defer env.sync.Stop()

	league := &recorder{}
	requests := &recorder{}
	env.notifier.Subscribe(realtime.ComponentLeagueTable, league.listen)
	env.notifier.Subscribe(realtime.ComponentAdminRequests, requests.listen)

	_, err := env.admin.SubmitRequest(ctx, SubmitAdminRequestInput{
		Email: "asha@example.org", Name: "Asha", Password: "long-enough-pw", RequestedRole: models.RoleAdmin,
	})
	require.NoError(t, err)

	assert.Empty(t, league.updates)
	require.Len(t, requests.updates, 1)
	payload := requests.updates[0].Data.(ChangePayload)
	req, ok := payload.Value.(models.AdminRequest)
	require.True(t, ok)
	assert.Equal(t, "asha@example.org", req.Email)
	assert.Empty(t, req.PasswordHash)
	assert.Equal(t, requests.updates[0].ID, req.ID)
}

func TestSyncService_IgnoresRosterMirrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leeds := env.university(t, "Leeds", "North", "Football")
	env.sync.Start(ctx)
	defer env.sync.Stop()

	all := &recorder{}
	env.notifier.Subscribe(realtime.Wildcard, all.listen)

	env.player(t, "Asha", leeds.ID, "Football")

	assert.Len(t, all.ofType(realtime.TypePlayer), 1)
	assert.Empty(t, all.ofType(realtime.TypeUniversity), "roster writes below a university are not university changes")

	env.sync.Stop()
	env.player(t, "Mira", leeds.ID, "Football")
	assert.Len(t, all.ofType(realtime.TypePlayer), 1)
}

func TestSyncService_DegradedPlayerUpdates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leeds := env.university(t, "Leeds", "North", "Football")
	p := env.player(t, "Asha", leeds.ID, "Football")
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	change := store.Change{Path: repositories.PlayerPath(p.ID), Action: store.ActionUpdated, Value: raw}

	svc := NewSyncService(env.st, env.notifier, env.standings, env.players, env.logger).(*syncService)

	env.st.Deny(repositories.PathPlayers)
	u := svc.updateFor(ctx, realtime.TypePlayer, change)
	assert.True(t, u.Degraded)
	assert.Equal(t, DegradedPlayersNotice, u.Notice)
	payload := u.Data.(ChangePayload)
	require.NotNil(t, payload.Players)
	require.Len(t, payload.Players.Players, 1)
	assert.Equal(t, p.ID, payload.Players.Players[0].ID)
	assert.Equal(t, p.ID, u.ID)

	env.st.Deny(repositories.PathUniversities)
	u = svc.updateFor(ctx, realtime.TypePlayer, change)
	assert.True(t, u.Degraded)
	assert.Equal(t, playersUnavailableNotice, u.Notice)
	payload = u.Data.(ChangePayload)
	assert.Nil(t, payload.Players)
	assert.Nil(t, payload.Value)
}

func TestSyncService_StandingsFailureFallsBackToLatest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.university(t, "Leeds", "North", "Football")
	_, err := env.standings.Recompute(ctx)
	require.NoError(t, err)

	svc := NewSyncService(env.st, env.notifier, env.standings, env.players, env.logger).(*syncService)
	env.st.Deny(repositories.PathMatches)

	u := svc.updateFor(ctx, realtime.TypeMatch, store.Change{Path: "matches/m1", Action: store.ActionDeleted})
	assert.True(t, u.Degraded)
	assert.Equal(t, standingsUnavailableNotice, u.Notice)
	payload := u.Data.(ChangePayload)
	assert.Len(t, payload.Standings, 1)
	assert.Nil(t, payload.Value)
}
