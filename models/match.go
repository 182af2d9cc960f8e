package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusCancelled MatchStatus = "cancelled"
)

// Forward-only lifecycle. Completed and cancelled are terminal.
var matchTransitions = map[MatchStatus][]MatchStatus{
	MatchStatusScheduled: {MatchStatusLive, MatchStatusCancelled},
	MatchStatusLive:      {MatchStatusCompleted, MatchStatusCancelled},
	MatchStatusCompleted: {},
	MatchStatusCancelled: {},
}

func (s MatchStatus) Valid() bool {
	_, ok := matchTransitions[s]
	return ok
}

// CanTransitionTo reports whether a match may move from s to next.
func (s MatchStatus) CanTransitionTo(next MatchStatus) bool {
	for _, allowed := range matchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// HasScore reports whether the score string carries meaning in this status.
func (s MatchStatus) HasScore() bool {
	return s == MatchStatusLive || s == MatchStatusCompleted
}

type Substitution struct {
	Team   int       `json:"team"` // 1 or 2
	Out    string    `json:"out"`
	In     string    `json:"in"`
	Minute int       `json:"minute,omitempty"`
	At     time.Time `json:"at"`
}

// MatchStats holds sport specific extras alongside the score string.
type MatchStats struct {
	Team1Wickets  *int           `json:"team1_wickets,omitempty"`
	Team2Wickets  *int           `json:"team2_wickets,omitempty"`
	Substitutions []Substitution `json:"substitutions,omitempty"`
}

type Match struct {
	ID          string      `json:"id"`
	Team1ID     string      `json:"team1_id"`
	Team2ID     string      `json:"team2_id"`
	Sport       string      `json:"sport"`
	Venue       string      `json:"venue"`
	Zone        string      `json:"zone,omitempty"`
	ScheduledAt time.Time   `json:"scheduled_at"`
	Status      MatchStatus `json:"status"`
	Score       string      `json:"score,omitempty"`
	Stats       *MatchStats `json:"stats,omitempty"`
	Notes       string      `json:"notes,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Involves reports whether the university takes part in the match.
func (m Match) Involves(universityID string) bool {
	return m.Team1ID == universityID || m.Team2ID == universityID
}

// Opponent returns the other side's university ID.
func (m Match) Opponent(universityID string) string {
	if m.Team1ID == universityID {
		return m.Team2ID
	}
	return m.Team1ID
}

// MatchView is a match with participant display names resolved at read time.
type MatchView struct {
	Match
	Team1Name string `json:"team1_name"`
	Team2Name string `json:"team2_name"`
}

// LiveScore mirrors the running score of a live match for scoreboard consumers.
type LiveScore struct {
	MatchID   string      `json:"match_id"`
	Sport     string      `json:"sport"`
	Team1ID   string      `json:"team1_id"`
	Team2ID   string      `json:"team2_id"`
	Score     string      `json:"score"`
	Stats     *MatchStats `json:"stats,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type MatchFilter struct {
	Status       *MatchStatus
	Sport        string
	Zone         string
	UniversityID string
}

func (f MatchFilter) Matches(m Match) bool {
	if f.Status != nil && m.Status != *f.Status {
		return false
	}
	if f.Sport != "" && !SameSport(m.Sport, f.Sport) {
		return false
	}
	if f.Zone != "" && m.Zone != f.Zone {
		return false
	}
	if f.UniversityID != "" && !m.Involves(f.UniversityID) {
		return false
	}
	return true
}
