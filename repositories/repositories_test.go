package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/store"
)

func TestPlayerRepository_SaveWritesIndexAndMirror(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	repo := NewPlayerRepository(st)

	p := &models.Player{ID: "p1", Name: "Asha", Sport: "Table Tennis", UniversityID: "u1"}
	require.NoError(t, repo.Save(ctx, nil, p))

	_, err := st.Get(ctx, "players/p1")
	require.NoError(t, err)
	_, err = st.Get(ctx, "universities/u1/sports/tabletennis/players/p1")
	require.NoError(t, err)

	moved := *p
	moved.UniversityID = "u2"
	require.NoError(t, repo.Save(ctx, p, &moved))

	_, err = st.Get(ctx, "universities/u1/sports/tabletennis/players/p1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Get(ctx, "universities/u2/sports/tabletennis/players/p1")
	assert.NoError(t, err)
}

func TestPlayerRepository_ListFromRostersWhenIndexDenied(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	unis := NewUniversityRepository(st)
	players := NewPlayerRepository(st)

	require.NoError(t, unis.Create(ctx, &models.University{ID: "u1", Name: "Oxford", Sports: []string{"Football"}}))
	require.NoError(t, unis.Create(ctx, &models.University{ID: "u2", Name: "Leeds", Sports: []string{"Cricket", "Football"}}))
	for _, p := range []*models.Player{
		{ID: "p1", Name: "Asha", Sport: "Football", UniversityID: "u1"},
		{ID: "p2", Name: "Dev", Sport: "Cricket", UniversityID: "u2"},
		{ID: "p3", Name: "Mira", Sport: "Football", UniversityID: "u2"},
	} {
		require.NoError(t, players.Save(ctx, nil, p))
	}

	st.Deny(PathPlayers)
	_, err := players.List(ctx)
	require.ErrorIs(t, err, store.ErrPermissionDenied)

	got, err := players.ListFromRosters(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"p1", "p2", "p3"}, []string{got[0].ID, got[1].ID, got[2].ID})

	list, err := unis.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2, "roster documents are not universities")
}

func TestPlayerRepository_DeleteRemovesBothCopies(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	repo := NewPlayerRepository(st)
	p := &models.Player{ID: "p1", Sport: "Football", UniversityID: "u1"}
	require.NoError(t, repo.Save(ctx, nil, p))

	require.NoError(t, repo.Delete(ctx, p))

	_, err := repo.GetByID(ctx, "p1")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	mirrors, err := repo.ListMirrors(ctx)
	require.NoError(t, err)
	assert.Empty(t, mirrors)
}

func TestAdminRequestRepository_PushAssignsID(t *testing.T) {
	ctx := context.Background()
	repo := NewAdminRequestRepository(store.NewMemoryStore())

	req := &models.AdminRequest{Email: "a@b.org", Status: models.AdminRequestPending}
	require.NoError(t, repo.Create(ctx, req))
	require.NotEmpty(t, req.ID)

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, req.ID, list[0].ID)

	_, err = repo.GetByID(ctx, "bad$id")
	assert.ErrorIs(t, err, ErrAdminRequestNotFound)
}

func TestAdminAccountRepository_EmailIsUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewAdminAccountRepository(store.NewMemoryStore())

	require.NoError(t, repo.Create(ctx, &models.AdminAccount{Email: " Admin@NHSF.org.uk", Role: models.RoleAdmin}))
	err := repo.Create(ctx, &models.AdminAccount{Email: "admin@nhsf.org.uk", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, ErrAdminEmailConflict)

	got, err := repo.GetByEmail(ctx, "ADMIN@nhsf.org.uk")
	require.NoError(t, err)
	assert.Equal(t, "admin@nhsf.org.uk", got.Email)

	assert.ErrorIs(t, repo.Delete(ctx, "missing"), ErrAdminNotFound)
}

func TestMatchRepository_DeleteDropsLiveScore(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	matches := NewMatchRepository(st)
	scores := NewLiveScoreRepository(st)

	m := &models.Match{Team1ID: "a", Team2ID: "b", Sport: "Football", Status: models.MatchStatusLive}
	require.NoError(t, matches.Create(ctx, m))
	b := NewBatch(st)
	scores.StageSave(b, &models.LiveScore{MatchID: m.ID, Score: "1-0", UpdatedAt: time.Now()})
	require.NoError(t, b.Commit(ctx))

	require.NoError(t, matches.Delete(ctx, m.ID))

	_, err := scores.GetByMatchID(ctx, m.ID)
	assert.ErrorIs(t, err, ErrLiveScoreNotFound)
	assert.ErrorIs(t, matches.Delete(ctx, m.ID), ErrMatchNotFound)
}

func TestReferenceRepository_SeedMarker(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	repo := NewReferenceRepository(st)

	m, err := repo.SeedMarker(ctx)
	require.NoError(t, err)
	assert.Nil(t, m)

	b := NewBatch(st)
	repo.StageZone(b, models.Zone{Name: "North West"})
	repo.StageSeedMarker(b, SeedMarker{Version: 1, SeededAt: time.Now()})
	require.NoError(t, b.Commit(ctx))

	zones, err := repo.ListZones(ctx)
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, "north-west", zones[0].Key)

	m, err = repo.SeedMarker(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Version)
}
