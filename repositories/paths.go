package repositories

import (
	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/store"
)

// Top-level collections.
const (
	PathUniversities  = "universities"
	PathPlayers       = "players"
	PathMatches       = "matches"
	PathLiveScores    = "liveScores"
	PathAdminRequests = "adminRequests"
	PathAdmins        = "admins"
	PathReference     = "reference"
)

func UniversityPath(id string) string { return store.Join(PathUniversities, id) }
func PlayerPath(id string) string     { return store.Join(PathPlayers, id) }
func MatchPath(id string) string      { return store.Join(PathMatches, id) }
func LiveScorePath(id string) string  { return store.Join(PathLiveScores, id) }
func AdminPath(id string) string      { return store.Join(PathAdmins, id) }

func AdminRequestPath(id string) string { return store.Join(PathAdminRequests, id) }

// RosterSportPath is the marker document for one sport in a university roster.
func RosterSportPath(universityID, sport string) string {
	return store.Join(UniversityPath(universityID), "sports", models.SportKey(sport))
}

// PlayerMirrorPath is the university scoped copy of a player.
func PlayerMirrorPath(universityID, sport, playerID string) string {
	return store.Join(RosterSportPath(universityID, sport), "players", playerID)
}

func SportPath(key string) string { return store.Join(PathReference, "sports", key) }
func ZonePath(key string) string  { return store.Join(PathReference, "zones", key) }
