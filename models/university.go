package models

import "time"

type UniversityStats struct {
	Wins          int `json:"wins"`
	Losses        int `json:"losses"`
	Draws         int `json:"draws"`
	Points        int `json:"points"`
	MatchesPlayed int `json:"matches_played"`
}

type University struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Zone         string          `json:"zone"`
	Abbreviation string          `json:"abbreviation,omitempty"`
	Sports       []string        `json:"sports"`
	RosterSizes  map[string]int  `json:"roster_sizes,omitempty"`
	Competing    bool            `json:"competing"`
	Withdrawn    bool            `json:"withdrawn"`
	Stats        UniversityStats `json:"stats"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	LogoKey *string `json:"logo_key,omitempty"`
	LogoURL *string `json:"logo_url,omitempty"`
}

// Registered reports whether the university has signed up for at least one
// sport. Placeholders created from match records have none.
func (u University) Registered() bool {
	return len(u.Sports) > 0
}

func (u University) PlaysSport(sport string) bool {
	for _, s := range u.Sports {
		if SameSport(s, sport) {
			return true
		}
	}
	return false
}
