// Package scoring turns match records into ranked university standings.
// Everything here is pure: no package state, inputs are never mutated.
package scoring

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nhsfuk/dharmic-games/models"
)

var (
	ErrEmptyScore     = errors.New("score is empty")
	ErrWrongDelimiter = errors.New("score uses the wrong delimiter for this sport")
	ErrNotNumeric     = errors.New("score side is not a non-negative integer")
)

// Score is a parsed two-sided result, Team1 first.
type Score struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

// Winner returns 1 or 2 for the winning side and 0 for a draw.
func (s Score) Winner() int {
	switch {
	case s.Team1 > s.Team2:
		return 1
	case s.Team2 > s.Team1:
		return 2
	}
	return 0
}

// ParseError describes a score string that could not be read.
type ParseError struct {
	Sport string
	Raw   string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s score %q: %v", e.Sport, e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Delimiter returns the separator used in score strings for sport.
// Cricket records runs as "A/B", everything else as "A-B".
func Delimiter(sport string) string {
	if models.SportKey(sport) == "cricket" {
		return "/"
	}
	return "-"
}

// ParseScore reads a score string. On failure it returns a zero Score together
// with a *ParseError, so callers that only want the numbers can ignore the error.
func ParseScore(sport, raw string) (Score, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Score{}, &ParseError{Sport: sport, Raw: raw, Err: ErrEmptyScore}
	}

	delim := Delimiter(sport)
	left, right, ok := strings.Cut(trimmed, delim)
	if !ok {
		return Score{}, &ParseError{Sport: sport, Raw: raw, Err: ErrWrongDelimiter}
	}

	a, err := parseSide(left)
	if err != nil {
		return Score{}, &ParseError{Sport: sport, Raw: raw, Err: err}
	}
	b, err := parseSide(right)
	if err != nil {
		return Score{}, &ParseError{Sport: sport, Raw: raw, Err: err}
	}
	return Score{Team1: a, Team2: b}, nil
}

// ScoreOrZero is ParseScore with the error dropped.
func ScoreOrZero(sport, raw string) Score {
	s, _ := ParseScore(sport, raw)
	return s
}

func parseSide(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrNotNumeric
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrNotNumeric
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrNotNumeric
	}
	return n, nil
}

// FormatScore renders a score in the sport's notation.
func FormatScore(sport string, team1, team2 int) string {
	return strconv.Itoa(team1) + Delimiter(sport) + strconv.Itoa(team2)
}

// ZeroScore is the score a match starts with when it goes live.
func ZeroScore(sport string) string {
	return FormatScore(sport, 0, 0)
}
