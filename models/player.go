package models

import "time"

type Player struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Sport        string     `json:"sport"`
	UniversityID string     `json:"university_id"`
	CheckedIn    bool       `json:"checked_in"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type PlayerFilter struct {
	UniversityID string
	Sport        string
	CheckedIn    *bool
}

func (f PlayerFilter) Matches(p Player) bool {
	if f.UniversityID != "" && p.UniversityID != f.UniversityID {
		return false
	}
	if f.Sport != "" && !SameSport(p.Sport, f.Sport) {
		return false
	}
	if f.CheckedIn != nil && p.CheckedIn != *f.CheckedIn {
		return false
	}
	return true
}
