package models

type DashboardStats struct {
	UniversitiesTotal     int                 `json:"universities_total"`
	UniversitiesCompeting int                 `json:"universities_competing"`
	UniversitiesWithdrawn int                 `json:"universities_withdrawn"`
	PlayersTotal          int                 `json:"players_total"`
	PlayersCheckedIn      int                 `json:"players_checked_in"`
	MatchesByStatus       map[MatchStatus]int `json:"matches_by_status"`
	PendingAdminRequests  int                 `json:"pending_admin_requests"`
}
