package combat

import (
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

// Combatant is one side of an encounter: a unit, or a settlement firing its
// guns. The set of variants is closed.
type Combatant interface {
	OwnerID() world.PlayerID
	Position() world.HexCoord
	isCombatant()
}

// UnitCombatant is a unit attacking or defending.
type UnitCombatant struct {
	Unit *units.Unit
}

func (c UnitCombatant) OwnerID() world.PlayerID  { return c.Unit.Owner }
func (c UnitCombatant) Position() world.HexCoord { return c.Unit.Coord }
func (UnitCombatant) isCombatant()               {}

// SettlementCombatant is a settlement bombarding a ship.
type SettlementCombatant struct {
	Settlement social.Settlement
}

func (c SettlementCombatant) OwnerID() world.PlayerID  { return c.Settlement.OwnerID() }
func (c SettlementCombatant) Position() world.HexCoord { return c.Settlement.Center() }
func (SettlementCombatant) isCombatant()               {}

// Unit wraps u as a combatant.
func Unit(u *units.Unit) Combatant { return UnitCombatant{Unit: u} }

// Settlement wraps s as a combatant.
func Settlement(s social.Settlement) Combatant { return SettlementCombatant{Settlement: s} }
