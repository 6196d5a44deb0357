// Package social provides players, diplomatic stance and tension, colonies,
// native settlements, and the buildings inside them.
package social

// Tension measures how hostile a player (or a native settlement) feels
// towards another player. It runs from 0 to TensionMax.
type Tension struct {
	Value int `json:"value"`
}

// Tension deltas applied by game events.
const (
	TensionAddMinor              = 100
	TensionAddNormal             = 200
	TensionAddMajor              = 300
	TensionAddLandTaken          = 200
	TensionAddUnitDestroyed      = 400
	TensionAddSettlementAttacked = 500
	TensionAddWarInciter         = 250
	TensionAddCapitalAttacked    = 1000
)

// Upper bounds of each tension level.
const (
	TensionHappy      = 100
	TensionContent    = 600
	TensionDispleased = 700
	TensionAngry      = 800
	TensionHateful    = 1000

	TensionMax = TensionHateful
)

// TensionSurrendered is the value a defeated tribe's tension is reset to.
const TensionSurrendered = (TensionContent + TensionHappy) / 2

// Level is the named band a tension value falls in.
type Level uint8

const (
	LevelHappy Level = iota
	LevelContent
	LevelDispleased
	LevelAngry
	LevelHateful
)

func (l Level) String() string {
	switch l {
	case LevelHappy:
		return "happy"
	case LevelContent:
		return "content"
	case LevelDispleased:
		return "displeased"
	case LevelAngry:
		return "angry"
	default:
		return "hateful"
	}
}

// Level returns the band the current value falls in.
func (t Tension) Level() Level {
	switch {
	case t.Value <= TensionHappy:
		return LevelHappy
	case t.Value <= TensionContent:
		return LevelContent
	case t.Value <= TensionDispleased:
		return LevelDispleased
	case t.Value <= TensionAngry:
		return LevelAngry
	default:
		return LevelHateful
	}
}

// Modify adds delta, clamped to the valid range, and reports whether the
// level changed.
func (t *Tension) Modify(delta int) bool {
	before := t.Level()
	t.Value = min(max(t.Value+delta, 0), TensionMax)
	return t.Level() != before
}

// Decay returns the natural per-turn reduction for the current value.
func (t Tension) Decay() int {
	if t.Value == 0 {
		return 0
	}
	return min(t.Value, 4+t.Value/100)
}

// Stance is the diplomatic relationship between two players.
type Stance uint8

const (
	StanceUncontacted Stance = iota
	StancePeace
	StanceCeaseFire
	StanceAlliance
	StanceWar
)

func (s Stance) String() string {
	switch s {
	case StanceUncontacted:
		return "uncontacted"
	case StancePeace:
		return "peace"
	case StanceCeaseFire:
		return "cease-fire"
	case StanceAlliance:
		return "alliance"
	case StanceWar:
		return "war"
	default:
		return "unknown"
	}
}

// ParseStance maps a stance name back to its value.
func ParseStance(name string) (Stance, bool) {
	for s := StanceUncontacted; s <= StanceWar; s++ {
		if s.String() == name {
			return s, true
		}
	}
	return StanceUncontacted, false
}

// CeaseFireTurns is how long a cease-fire holds before reverting to war.
const CeaseFireTurns = 16
