package scoring

import "github.com/nhsfuk/dharmic-games/models"

const (
	DefaultPointsPerWin = 3
	PointsPerDraw       = 1
)

// Keys are models.SportKey normalised names.
var pointsPerWin = map[string]int{
	"football":    3,
	"basketball":  3,
	"volleyball":  3,
	"kabaddi":     3,
	"khokho":      3,
	"netball":     3,
	"badminton":   2,
	"tennis":      2,
	"tabletennis": 2,
	"cricket":     4,
}

// PointsForWin returns the points a winner earns in sport.
func PointsForWin(sport string) int {
	if p, ok := pointsPerWin[models.SportKey(sport)]; ok {
		return p
	}
	return DefaultPointsPerWin
}

// PointsFor returns what a university earns for a single completed result.
func PointsFor(sport string, result models.MatchResult) int {
	switch result {
	case models.ResultWin:
		return PointsForWin(sport)
	case models.ResultDraw:
		return PointsPerDraw
	}
	return 0
}

// Sports lists the reference sports with their scoring policy.
func Sports() []models.Sport {
	names := []string{
		"Football", "Basketball", "Volleyball", "Kabaddi", "Kho-Kho", "Netball",
		"Badminton", "Tennis", "Table Tennis", "Cricket",
	}
	out := make([]models.Sport, 0, len(names))
	for _, name := range names {
		format := models.ScoreFormatDash
		if Delimiter(name) == "/" {
			format = models.ScoreFormatSlash
		}
		out = append(out, models.Sport{
			Key:          models.SportKey(name),
			Name:         name,
			PointsPerWin: PointsForWin(name),
			ScoreFormat:  format,
		})
	}
	return out
}
