package realtime

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifier_LeagueTableSeesMatchesButNotAdminRequests(t *testing.T) {
	n := NewNotifier(discardLogger())

	var got []Update
	n.Subscribe(ComponentLeagueTable, func(u Update) error {
		got = append(got, u)
		return nil
	})

	n.Publish(n.NewUpdate(TypeMatch, ActionUpdated, "m1", map[string]string{"status": "completed"}))
	n.Publish(n.NewUpdate(TypeAdminRequest, ActionCreated, "r1", nil))

	require.Len(t, got, 1)
	assert.Equal(t, TypeMatch, got[0].Type)
	assert.Contains(t, got[0].Affects, ComponentLeagueTable)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestNotifier_FailingListenersDoNotStopDelivery(t *testing.T) {
	n := NewNotifier(discardLogger())

	var order []string
	n.Subscribe(ComponentTeamsPage, func(Update) error {
		order = append(order, "first")
		panic("boom")
	})
	n.Subscribe(ComponentTeamsPage, func(Update) error {
		order = append(order, "second")
		return errors.New("render failed")
	})
	n.Subscribe(ComponentLiveResults, func(Update) error {
		order = append(order, "third")
		return nil
	})

	var delivered int
	assert.NotPanics(t, func() {
		delivered = n.Publish(n.NewUpdate(TypeUniversity, ActionUpdated, "u1", nil))
	})
	assert.Equal(t, 3, delivered)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestNotifier_WildcardAndUnsubscribe(t *testing.T) {
	n := NewNotifier(discardLogger())

	var all, scoreboard int
	unsubscribe := n.Subscribe(Wildcard, func(Update) error { all++; return nil })
	n.Subscribe(ComponentScoreboard, func(Update) error { scoreboard++; return nil })

	n.Publish(n.NewUpdate(TypeAdminRequest, ActionCreated, "r1", nil))
	n.Publish(n.NewUpdate(TypeScore, ActionUpdated, "m1", nil))
	unsubscribe()
	unsubscribe()
	n.Publish(n.NewUpdate(TypeScore, ActionUpdated, "m1", nil))

	assert.Equal(t, 2, all)
	assert.Equal(t, 2, scoreboard)
}

func TestNotifier_PublishFillsMissingEnvelopeFields(t *testing.T) {
	n := NewNotifier(discardLogger())
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return fixed }

	var got Update
	n.Subscribe(ComponentCheckIn, func(u Update) error { got = u; return nil })

	n.Publish(Update{Type: TypePlayer, Action: ActionUpdated, ID: "p1", Degraded: true, Notice: "limited"})

	assert.Equal(t, fixed, got.Timestamp)
	assert.Equal(t, AffectsFor(TypePlayer), got.Affects)
	assert.True(t, got.Degraded)
}

func TestAffectsFor(t *testing.T) {
	assert.Equal(t, []string{"teams-page", "league-table", "stats-cards", "admin-dashboard", "live-results"}, AffectsFor(TypeUniversity))
	assert.NotContains(t, AffectsFor(TypeAdminRequest), ComponentLeagueTable)
	assert.Empty(t, AffectsFor("unknown"))

	a := AffectsFor(TypeMatch)
	a[0] = "mutated"
	assert.Equal(t, ComponentLeagueTable, AffectsFor(TypeMatch)[0])

	assert.True(t, KnownComponent(ComponentScoreboard))
	assert.True(t, KnownComponent(Wildcard))
	assert.False(t, KnownComponent("sidebar"))
}
