package combat

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidEncounter is raised for an attacker/defender pairing that
	// is neither a unit attack nor a bombardment.
	ErrInvalidEncounter = errors.New("invalid combat encounter")
	// ErrMalformedOutcome is raised for an outcome that does not start
	// with exactly one primary result, or repeats an effect.
	ErrMalformedOutcome = errors.New("malformed combat outcome")
	// ErrInapplicableEffect is raised when an outcome names an effect whose
	// preconditions do not hold for the encounter.
	ErrInapplicableEffect = errors.New("combat effect does not apply")
)

// Effect is one element of a combat outcome.
type Effect uint8

const (
	NoResult Effect = iota
	Win
	Lose

	AutoequipUnit
	BurnMissions
	CaptureAutoequip
	CaptureColony
	CaptureConvert
	CaptureEquip
	CaptureUnit
	DamageColonyShips
	DamageShipAttack
	DamageShipBombard
	DemoteUnit
	DestroyColony
	DestroySettlement
	EvadeAttack
	EvadeBombard
	LootShip
	LoseAutoequip
	LoseEquip
	PillageColony
	PromoteUnit
	SinkColonyShips
	SinkShipAttack
	SinkShipBombard
	SlaughterUnit

	numEffects
)

var effectNames = [numEffects]string{
	"no_result", "win", "lose",
	"autoequip_unit", "burn_missions", "capture_autoequip", "capture_colony",
	"capture_convert", "capture_equip", "capture_unit", "damage_colony_ships",
	"damage_ship_attack", "damage_ship_bombard", "demote_unit", "destroy_colony",
	"destroy_settlement", "evade_attack", "evade_bombard", "loot_ship",
	"lose_autoequip", "lose_equip", "pillage_colony", "promote_unit",
	"sink_colony_ships", "sink_ship_attack", "sink_ship_bombard", "slaughter_unit",
}

func (e Effect) String() string {
	if e < numEffects {
		return effectNames[e]
	}
	return "unknown"
}

// Primary reports whether e is one of the three top-level results.
func (e Effect) Primary() bool {
	return e <= Lose
}

// ParseEffect maps a name back to an effect.
func ParseEffect(name string) (Effect, bool) {
	for i, n := range effectNames {
		if n == name {
			return Effect(i), true
		}
	}
	return 0, false
}

// Outcome is an ordered list of effects: one primary result followed by
// sub-effects applied in order.
type Outcome []Effect

func (o Outcome) String() string {
	parts := make([]string, len(o))
	for i, e := range o {
		parts[i] = e.String()
	}
	return strings.Join(parts, ",")
}

// Primary returns the outcome's leading result.
func (o Outcome) Primary() Effect {
	if len(o) == 0 {
		return NoResult
	}
	return o[0]
}

// Has reports whether the outcome contains e.
func (o Outcome) Has(e Effect) bool {
	for _, x := range o {
		if x == e {
			return true
		}
	}
	return false
}
