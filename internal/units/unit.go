package units

import (
	"github.com/talgya/colonyserver/internal/economy"
	"github.com/talgya/colonyserver/internal/world"
)

// ID is a unique identifier for a unit within one game.
type ID uint64

// Location says where a unit currently is.
type Location uint8

const (
	OnTile        Location = iota // Standing on Coord
	InSettlement                  // Working inside the settlement on Coord
	OnCarrier                     // Aboard Carrier
	AtTradingPost                 // Docked at the overseas trading post
	Sailing                       // Between the map and the trading post
)

// State is the unit's standing order.
type State uint8

const (
	StateActive State = iota
	StateFortify
	StateFortified
	StateSentry
	StateInRepair
)

// AttackOrder queues an attack executed during the unit's own turn.
type AttackOrder struct {
	Target world.HexCoord `json:"target"`
}

// Unit is the server's record of one unit. It holds plain data only; the
// engine and combat packages apply the rules.
type Unit struct {
	ID    ID             `json:"id"`
	Type  TypeID         `json:"type"`
	Owner world.PlayerID `json:"owner"`
	Role  Role           `json:"role"`

	Coord      world.HexCoord     `json:"coord"`
	Location   Location           `json:"location"`
	Settlement world.SettlementID `json:"settlement,omitempty"` // Set while InSettlement
	Building   uint64             `json:"building,omitempty"`   // Work site inside the settlement, 0 for land
	Carrier    ID                 `json:"carrier,omitempty"`

	// Natives belong to the settlement that raised them.
	HomeSettlement world.SettlementID `json:"home_settlement,omitempty"`

	MovesLeft int   `json:"moves_left"`
	HitPoints int   `json:"hit_points"`
	State     State `json:"state"`

	Cargo    economy.Inventory `json:"cargo"`
	Treasure int               `json:"treasure,omitempty"`

	Experience    int `json:"experience"`
	TrainingTurns int `json:"training_turns,omitempty"` // Turns taught so far while a student
	SailTurns     int `json:"sail_turns,omitempty"`     // Turns left while Sailing

	Orders   *AttackOrder `json:"orders,omitempty"`
	Disposed bool         `json:"-"`
}

// New creates a unit of the given type with full moves and hit points.
func New(id ID, t TypeID, owner world.PlayerID, at world.HexCoord) *Unit {
	ut := Lookup(t)
	return &Unit{
		ID:        id,
		Type:      t,
		Owner:     owner,
		Coord:     at,
		MovesLeft: ut.Moves,
		HitPoints: ut.HitPoints,
	}
}

// UnitType returns the catalogue entry for the unit.
func (u *Unit) UnitType() *UnitType {
	return Lookup(u.Type)
}

// Has reports whether the unit's type carries the ability.
func (u *Unit) Has(a Ability) bool {
	return u.UnitType().Has(a)
}

// IsNaval reports whether the unit is a ship.
func (u *Unit) IsNaval() bool {
	return u.Has(AbilityNaval)
}

// Offence is the base attack strength, type plus role.
func (u *Unit) Offence() int {
	o := u.UnitType().Offence + roles[u.Role].offence
	if u.Role.Military() && u.Has(AbilityExpertSoldier) {
		o += o / 2
	}
	return o
}

// Defence is the base defence strength, type plus role.
func (u *Unit) Defence() int {
	d := u.UnitType().Defence + roles[u.Role].defence
	if u.State == StateFortified {
		d += d / 2
	}
	return d
}

// IsOffensive reports whether the unit can start an attack.
func (u *Unit) IsOffensive() bool {
	return u.Offence() > 0
}

// IsMilitary reports whether the unit is a combat unit rather than a civilian.
func (u *Unit) IsMilitary() bool {
	return u.Role.Military() || (u.UnitType().Offence > 0 && !u.IsNaval() && !u.Has(AbilityNative))
}

// CanBeCaptured reports whether losing a fight hands the unit to the winner.
func (u *Unit) CanBeCaptured() bool {
	return u.Has(AbilityCanBeCaptured) && !u.Role.Military()
}

// InitialMoves is the move allowance at the start of a turn.
func (u *Unit) InitialMoves() int {
	return u.UnitType().Moves + roles[u.Role].moves
}

// LineOfSight is the radius the unit reveals.
func (u *Unit) LineOfSight() int {
	los := u.UnitType().LineOfSight
	if u.Role == RoleScout {
		los++
	}
	return los
}

// OnMap reports whether the unit occupies a map tile, on foot, aboard, or in a settlement.
func (u *Unit) OnMap() bool {
	return u.Location == OnTile || u.Location == InSettlement || u.Location == OnCarrier
}

// Damaged reports whether the ship is laid up for repair.
func (u *Unit) Damaged() bool {
	return u.State == StateInRepair
}

// CargoSpaceLeft is the number of free cargo holds.
func (u *Unit) CargoSpaceLeft() int {
	return u.UnitType().Space - u.Cargo.Slots()
}

// ChangeType switches the unit to another catalogue entry, keeping damage
// proportional.
func (u *Unit) ChangeType(t TypeID) {
	u.Type = t
	if hp := Lookup(t).HitPoints; u.HitPoints > hp || u.HitPoints == 0 {
		u.HitPoints = hp
	}
}
