package realtime

type EntityType string

const (
	TypeUniversity   EntityType = "university"
	TypePlayer       EntityType = "player"
	TypeMatch        EntityType = "match"
	TypeScore        EntityType = "score"
	TypeAdminRequest EntityType = "admin_request"
)

// UI regions that consume updates.
const (
	ComponentTeamsPage           = "teams-page"
	ComponentLeagueTable         = "league-table"
	ComponentStatsCards          = "stats-cards"
	ComponentAdminDashboard      = "admin-dashboard"
	ComponentLiveResults         = "live-results"
	ComponentPlayersPage         = "players-page"
	ComponentCheckIn             = "check-in"
	ComponentSchedule            = "schedule"
	ComponentScoreboard          = "scoreboard"
	ComponentAdminRequests       = "admin-requests"
	ComponentSuperAdminDashboard = "super-admin-dashboard"

	// Wildcard receives every update regardless of Affects.
	Wildcard = "*"
)

var affects = map[EntityType][]string{
	TypeUniversity: {
		ComponentTeamsPage, ComponentLeagueTable, ComponentStatsCards,
		ComponentAdminDashboard, ComponentLiveResults,
	},
	TypePlayer: {
		ComponentPlayersPage, ComponentTeamsPage, ComponentStatsCards,
		ComponentAdminDashboard, ComponentCheckIn,
	},
	TypeMatch: {
		ComponentLeagueTable, ComponentLiveResults, ComponentSchedule,
		ComponentStatsCards, ComponentAdminDashboard,
	},
	TypeScore: {
		ComponentLiveResults, ComponentLeagueTable, ComponentScoreboard,
	},
	TypeAdminRequest: {
		ComponentAdminRequests, ComponentSuperAdminDashboard,
	},
}

// AffectsFor returns the components that depend on entity type t.
// The returned slice is a copy.
func AffectsFor(t EntityType) []string {
	return append([]string(nil), affects[t]...)
}

// KnownComponent reports whether c is a component some entity type affects,
// or the wildcard.
func KnownComponent(c string) bool {
	if c == Wildcard {
		return true
	}
	for _, components := range affects {
		for _, known := range components {
			if known == c {
				return true
			}
		}
	}
	return false
}
