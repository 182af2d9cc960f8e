package models

import (
	"fmt"
	"time"
)

type MatchResult string

const (
	ResultWin  MatchResult = "W"
	ResultLoss MatchResult = "L"
	ResultDraw MatchResult = "D"
)

// Streak counts consecutive identical results ending with the latest match.
type Streak struct {
	Result MatchResult `json:"result,omitempty"`
	Count  int         `json:"count"`
}

func (s Streak) String() string {
	if s.Count == 0 {
		return "-"
	}
	return fmt.Sprintf("%s%d", s.Result, s.Count)
}

// MatchSummary is a match seen from one university's side.
type MatchSummary struct {
	MatchID     string      `json:"match_id"`
	OpponentID  string      `json:"opponent_id"`
	Opponent    string      `json:"opponent"`
	Sport       string      `json:"sport"`
	Venue       string      `json:"venue,omitempty"`
	Status      MatchStatus `json:"status"`
	Score       string      `json:"score,omitempty"`
	Result      MatchResult `json:"result,omitempty"`
	ScheduledAt time.Time   `json:"scheduled_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	IsHomeTeam  bool        `json:"is_home_team"`
}

// Standing is a derived leaderboard row. It is never persisted as a source of truth.
type Standing struct {
	Rank            int            `json:"rank"`
	UniversityID    string         `json:"university_id"`
	University      string         `json:"university"`
	Abbreviation    string         `json:"abbreviation,omitempty"`
	Zone            string         `json:"zone"`
	Withdrawn       bool           `json:"withdrawn"`
	Wins            int            `json:"wins"`
	Losses          int            `json:"losses"`
	Draws           int            `json:"draws"`
	Points          int            `json:"points"`
	MatchesPlayed   int            `json:"matches_played"`
	WinRate         int            `json:"win_rate"`
	AverageScore    float64        `json:"average_score"`
	Streak          Streak         `json:"streak"`
	RecentMatches   []MatchSummary `json:"recent_matches"`
	LiveMatches     []MatchSummary `json:"live_matches"`
	UpcomingMatches []MatchSummary `json:"upcoming_matches"`
}

// Stats projects the aggregate back onto the persisted university counters.
func (s Standing) Stats() UniversityStats {
	return UniversityStats{
		Wins:          s.Wins,
		Losses:        s.Losses,
		Draws:         s.Draws,
		Points:        s.Points,
		MatchesPlayed: s.MatchesPlayed,
	}
}
