package models

import (
	"strings"
	"time"
)

type ScoreFormat string

const (
	ScoreFormatDash  ScoreFormat = "dash"  // "A-B"
	ScoreFormatSlash ScoreFormat = "slash" // "A/B", cricket runs
)

// Sport is reference data seeded once per deployment.
type Sport struct {
	Key          string      `json:"key"`
	Name         string      `json:"name"`
	PointsPerWin int         `json:"points_per_win"`
	ScoreFormat  ScoreFormat `json:"score_format"`
}

// Zone groups universities that share a tournament date and bracket.
type Zone struct {
	Key            string    `json:"key"`
	Name           string    `json:"name"`
	TournamentDate time.Time `json:"tournament_date"`
}

// SportKey normalises a sport name: lower case, no spaces, hyphens or underscores.
func SportKey(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(name)))
}

func SameSport(a, b string) bool {
	return SportKey(a) == SportKey(b)
}
