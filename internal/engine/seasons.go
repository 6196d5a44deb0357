// Calendar: one turn a year at first, then a spring and an autumn turn.
package engine

import "fmt"

// Calendar constants.
const (
	FirstYear      = 1492
	TwoSeasonsYear = 1600 // First year with two turns
	yearsOfOneTurn = TwoSeasonsYear - FirstYear
)

// Season is the part of the year a turn falls in.
type Season uint8

const (
	SeasonYear Season = iota // Whole-year turns before TwoSeasonsYear
	SeasonSpring
	SeasonAutumn
)

// SeasonName returns a human-readable season name.
func SeasonName(s Season) string {
	switch s {
	case SeasonSpring:
		return "Spring"
	case SeasonAutumn:
		return "Autumn"
	default:
		return ""
	}
}

// TurnDate returns the year and season of a turn. Turn 1 is FirstYear.
func TurnDate(turn int) (year int, season Season) {
	if turn < 1 {
		turn = 1
	}
	if turn <= yearsOfOneTurn {
		return FirstYear + turn - 1, SeasonYear
	}
	k := turn - yearsOfOneTurn - 1
	if k%2 == 0 {
		return TwoSeasonsYear + k/2, SeasonSpring
	}
	return TwoSeasonsYear + k/2, SeasonAutumn
}

// DateString renders a turn as "1534" or "Autumn 1623".
func DateString(turn int) string {
	year, season := TurnDate(turn)
	if season == SeasonYear {
		return fmt.Sprint(year)
	}
	return fmt.Sprintf("%s %d", SeasonName(season), year)
}
