package scoring

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/nhsfuk/dharmic-games/models"
)

const (
	recentLimit   = 5
	upcomingLimit = 5
)

// ScoreIssue records a completed match whose score could not be parsed and was
// therefore counted as 0-0.
type ScoreIssue struct {
	MatchID string
	Sport   string
	Raw     string
	Err     error
}

// Aggregate ranks every registered university by its completed matches.
func Aggregate(matches []models.Match, universities []models.University) []models.Standing {
	standings, _ := AggregateWithIssues(matches, universities)
	return standings
}

// AggregateWithIssues is Aggregate plus the list of unparsable completed scores.
// Universities without any sport are placeholders and are left out. Opponent
// names are resolved against the full universities list, placeholders included.
func AggregateWithIssues(matches []models.Match, universities []models.University) ([]models.Standing, []ScoreIssue) {
	names := make(map[string]string, len(universities))
	for _, u := range universities {
		names[u.ID] = u.Name
	}
	byUniversity := matchesByUniversity(matches)

	var issues []ScoreIssue
	reported := make(map[string]bool)

	standings := make([]models.Standing, 0, len(universities))
	for _, u := range universities {
		if !u.Registered() {
			continue
		}
		t := tally(u.ID, byUniversity[u.ID])
		for _, issue := range t.issues {
			if !reported[issue.MatchID] {
				reported[issue.MatchID] = true
				issues = append(issues, issue)
			}
		}

		standings = append(standings, models.Standing{
			UniversityID:    u.ID,
			University:      u.Name,
			Abbreviation:    u.Abbreviation,
			Zone:            u.Zone,
			Withdrawn:       u.Withdrawn,
			Wins:            t.wins,
			Losses:          t.losses,
			Draws:           t.draws,
			Points:          t.points,
			MatchesPlayed:   len(t.completed),
			WinRate:         winRate(t.wins, len(t.completed)),
			AverageScore:    averageScore(t.points, len(t.completed)),
			Streak:          t.streak,
			RecentMatches:   summarize(u.ID, t.completed, recentLimit, t.results, names),
			LiveMatches:     summarize(u.ID, t.live, 0, nil, names),
			UpcomingMatches: summarize(u.ID, t.scheduled, upcomingLimit, nil, names),
		})
	}

	Rank(standings)
	sort.Slice(issues, func(i, j int) bool { return issues[i].MatchID < issues[j].MatchID })
	return standings, issues
}

// Rank sorts standings by points, then wins, then name and ID, and assigns
// 1-based ranks.
func Rank(standings []models.Standing) {
	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		an, bn := strings.ToLower(a.University), strings.ToLower(b.University)
		if an != bn {
			return an < bn
		}
		return a.UniversityID < b.UniversityID
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
}

// StatsFor computes the persisted counters for one university from the full
// match list. Unlike Aggregate it does not require the university to be registered.
func StatsFor(universityID string, matches []models.Match) models.UniversityStats {
	t := tally(universityID, matchesByUniversity(matches)[universityID])
	return models.UniversityStats{
		Wins:          t.wins,
		Losses:        t.losses,
		Draws:         t.draws,
		Points:        t.points,
		MatchesPlayed: len(t.completed),
	}
}

// ResultFor returns the outcome of a parsed score from universityID's side.
func ResultFor(m models.Match, universityID string, score Score) models.MatchResult {
	side := 2
	if m.Team1ID == universityID {
		side = 1
	}
	switch score.Winner() {
	case 0:
		return models.ResultDraw
	case side:
		return models.ResultWin
	}
	return models.ResultLoss
}

type aggregate struct {
	completed []models.Match
	live      []models.Match
	scheduled []models.Match
	results   map[string]models.MatchResult

	wins, losses, draws, points int
	streak                      models.Streak
	issues                      []ScoreIssue
}

func tally(universityID string, matches []models.Match) aggregate {
	t := aggregate{results: make(map[string]models.MatchResult)}
	for _, m := range matches {
		switch m.Status {
		case models.MatchStatusCompleted:
			t.completed = append(t.completed, m)
		case models.MatchStatusLive:
			t.live = append(t.live, m)
		case models.MatchStatusScheduled:
			t.scheduled = append(t.scheduled, m)
		}
	}

	// Newest first for recent results and the streak.
	sort.Slice(t.completed, func(i, j int) bool {
		a, b := completedAt(t.completed[i]), completedAt(t.completed[j])
		if !a.Equal(b) {
			return a.After(b)
		}
		return t.completed[i].ID < t.completed[j].ID
	})
	sortBySchedule(t.live)
	sortBySchedule(t.scheduled)

	for _, m := range t.completed {
		score, err := ParseScore(m.Sport, m.Score)
		if err != nil {
			t.issues = append(t.issues, ScoreIssue{MatchID: m.ID, Sport: m.Sport, Raw: m.Score, Err: err})
		}
		result := ResultFor(m, universityID, score)
		t.results[m.ID] = result
		t.points += PointsFor(m.Sport, result)
		switch result {
		case models.ResultWin:
			t.wins++
		case models.ResultLoss:
			t.losses++
		default:
			t.draws++
		}
	}

	for _, m := range t.completed {
		r := t.results[m.ID]
		if t.streak.Count > 0 && r != t.streak.Result {
			break
		}
		t.streak.Result = r
		t.streak.Count++
	}
	return t
}

func matchesByUniversity(matches []models.Match) map[string][]models.Match {
	out := make(map[string][]models.Match)
	for _, m := range matches {
		// A match against itself carries no result.
		if m.Team1ID == m.Team2ID {
			continue
		}
		if m.Team1ID != "" {
			out[m.Team1ID] = append(out[m.Team1ID], m)
		}
		if m.Team2ID != "" {
			out[m.Team2ID] = append(out[m.Team2ID], m)
		}
	}
	return out
}

func sortBySchedule(ms []models.Match) {
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].ScheduledAt.Equal(ms[j].ScheduledAt) {
			return ms[i].ScheduledAt.Before(ms[j].ScheduledAt)
		}
		return ms[i].ID < ms[j].ID
	})
}

func completedAt(m models.Match) time.Time {
	if m.CompletedAt != nil {
		return *m.CompletedAt
	}
	return m.ScheduledAt
}

func summarize(universityID string, ms []models.Match, limit int, results map[string]models.MatchResult, names map[string]string) []models.MatchSummary {
	if limit > 0 && len(ms) > limit {
		ms = ms[:limit]
	}
	out := make([]models.MatchSummary, 0, len(ms))
	for _, m := range ms {
		opponent := m.Opponent(universityID)
		s := models.MatchSummary{
			MatchID:     m.ID,
			OpponentID:  opponent,
			Opponent:    names[opponent],
			Sport:       m.Sport,
			Venue:       m.Venue,
			Status:      m.Status,
			ScheduledAt: m.ScheduledAt,
			CompletedAt: m.CompletedAt,
			IsHomeTeam:  m.Team1ID == universityID,
		}
		if m.Status.HasScore() {
			s.Score = m.Score
		}
		if results != nil {
			s.Result = results[m.ID]
		}
		out = append(out, s)
	}
	return out
}

func winRate(wins, played int) int {
	if played == 0 {
		return 0
	}
	return int(math.Round(float64(wins) / float64(played) * 100))
}

func averageScore(points, played int) float64 {
	return math.Round(float64(points)/float64(max(played, 1))*10) / 10
}
