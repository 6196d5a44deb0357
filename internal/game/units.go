package game

import (
	"slices"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

// NewUnit creates a unit standing on at and registers it.
func (g *Game) NewUnit(t units.TypeID, owner world.PlayerID, at world.HexCoord) *units.Unit {
	g.nextUnit++
	u := units.New(g.nextUnit, t, owner, at)
	g.units[u.ID] = u
	return u
}

// AddUnit registers an existing unit, for example one loaded from storage.
func (g *Game) AddUnit(u *units.Unit) {
	g.units[u.ID] = u
	if u.ID > g.nextUnit {
		g.nextUnit = u.ID
	}
}

// DisposeUnit removes a unit, and everything it carries, from the game.
func (g *Game) DisposeUnit(u *units.Unit, cs *changes.Set) {
	if u.Disposed {
		return
	}
	for _, c := range g.Carried(u.ID) {
		g.DisposeUnit(c, cs)
	}
	g.detach(u)
	u.Disposed = true
	delete(g.units, u.ID)
	if cs != nil {
		cs.Remove(changes.Perhaps().Always(u.Owner), changes.UnitRef(uint64(u.ID)), u.Coord)
	}
}

// detach takes a unit out of whatever settlement, building, or mission holds it.
func (g *Game) detach(u *units.Unit) {
	switch s := g.settlements[u.Settlement].(type) {
	case *social.Colony:
		s.RemoveUnit(u.ID)
		if b := s.BuildingByID(u.Building); b != nil {
			b.Workers = slices.DeleteFunc(b.Workers, func(id units.ID) bool { return id == u.ID })
		}
	case *social.NativeSettlement:
		s.RemoveUnit(u.ID)
	}
	for _, s := range g.settlements {
		if ns, ok := s.(*social.NativeSettlement); ok && ns.Missionary == u.ID {
			ns.Missionary = 0
		}
	}
	u.Settlement = world.NoSettlement
	u.Building = 0
	u.Carrier = 0
	u.Location = units.OnTile
}

// JoinSettlement moves a unit inside a settlement as a resident. A colony
// worker is placed in building, or on the land when building is zero.
func (g *Game) JoinSettlement(u *units.Unit, s social.Settlement, building uint64) {
	g.detach(u)
	u.Coord = s.Center()
	u.Location = units.InSettlement
	u.Settlement = s.SettlementID()
	switch s := s.(type) {
	case *social.Colony:
		s.AddUnit(u.ID)
		if b := s.BuildingByID(building); b != nil {
			b.Workers = append(b.Workers, u.ID)
			u.Building = building
		}
	case *social.NativeSettlement:
		s.AddUnit(u.ID)
	}
}

// Embark puts a unit aboard a carrier.
func (g *Game) Embark(u, carrier *units.Unit) {
	g.detach(u)
	u.Coord = carrier.Coord
	u.Location = units.OnCarrier
	u.Carrier = carrier.ID
}

// MoveUnit relocates a unit and its cargo to another tile, leaving any
// settlement it was in. Both tiles are refreshed for onlookers.
func (g *Game) MoveUnit(u *units.Unit, to world.HexCoord, cs *changes.Set) {
	from := u.Coord
	g.detach(u)
	g.setCoord(u, to)
	if cs == nil {
		return
	}
	cs.Move(changes.Perhaps().Always(u.Owner), changes.UnitRef(uint64(u.ID)), from, to)
	g.UpdateTile(from, cs)
	g.UpdateTile(to, cs)
}

func (g *Game) setCoord(u *units.Unit, to world.HexCoord) {
	u.Coord = to
	for _, c := range g.Carried(u.ID) {
		c.Coord = to
	}
}

// ChangeUnitOwner hands a unit (and its passengers) to another player.
func (g *Game) ChangeUnitOwner(u *units.Unit, owner world.PlayerID, cs *changes.Set) {
	old := u.Owner
	u.Owner = owner
	u.Orders = nil
	u.State = units.StateActive
	for _, c := range g.Carried(u.ID) {
		g.ChangeUnitOwner(c, owner, cs)
	}
	if cs != nil {
		cs.Update(changes.Perhaps().Always(old).Always(owner), changes.UnitRef(uint64(u.ID)), u.Coord, u)
	}
}

// UpdateUnit queues a full refresh of a unit for its owner and onlookers.
func (g *Game) UpdateUnit(u *units.Unit, cs *changes.Set) {
	cs.Update(changes.Perhaps().Always(u.Owner), changes.UnitRef(uint64(u.ID)), u.Coord, u)
}

// UpdateTile queues a refresh of the tile at coord for everyone who sees it.
func (g *Game) UpdateTile(coord world.HexCoord, cs *changes.Set) {
	if t := g.Map.Get(coord); t != nil {
		cs.Update(changes.Perhaps(), changes.TileRef(), coord, t)
	}
}

// DefenderAt picks the unit that defends coord: the strongest defender on
// the tile or in its settlement, ties broken by id. Ships in port do not
// defend a land tile.
func (g *Game) DefenderAt(coord world.HexCoord) *units.Unit {
	land := false
	if t := g.Map.Get(coord); t != nil {
		land = t.IsLand()
	}
	var best *units.Unit
	for _, u := range g.units {
		if u.Coord != coord || u.Location == units.OnCarrier || !u.OnMap() {
			continue
		}
		if land && u.IsNaval() {
			continue
		}
		if best == nil || betterDefender(u, best) {
			best = u
		}
	}
	return best
}

func betterDefender(a, b *units.Unit) bool {
	if a.IsMilitary() != b.IsMilitary() {
		return a.IsMilitary()
	}
	if a.Defence() != b.Defence() {
		return a.Defence() > b.Defence()
	}
	return a.ID < b.ID
}

// NavalUnitsIn returns the ships docked in a colony, ordered by id.
func (g *Game) NavalUnitsIn(c *social.Colony) []*units.Unit {
	var out []*units.Unit
	for _, u := range g.UnitsAt(c.Coord) {
		if u.IsNaval() && u.Owner == c.Owner {
			out = append(out, u)
		}
	}
	return out
}

// RepairLocation finds where a damaged ship goes: the nearest colony of its
// owner with docks other than exclude, else the owner's trading post. ok is
// false when there is nowhere to go and the ship is lost.
func (g *Game) RepairLocation(ship *units.Unit, exclude world.SettlementID) (colony *social.Colony, tradingPost bool, ok bool) {
	best := -1
	for _, s := range g.SettlementsOf(ship.Owner) {
		c, isColony := s.(*social.Colony)
		if !isColony || !c.HasDocks() || c.ID == exclude {
			continue
		}
		if d := world.Distance(ship.Coord, c.Coord); best < 0 || d < best {
			best, colony = d, c
		}
	}
	if colony != nil {
		return colony, false, true
	}
	if p := g.Player(ship.Owner); p != nil && p.TradingPost != nil {
		return nil, true, true
	}
	return nil, false, false
}

// SendForRepair lays a damaged ship up at its repair location. Cargo and
// passengers are lost. Returns false if the ship had to be sunk instead.
func (g *Game) SendForRepair(ship *units.Unit, exclude world.SettlementID, cs *changes.Set) bool {
	colony, tradingPost, ok := g.RepairLocation(ship, exclude)
	if !ok {
		g.DisposeUnit(ship, cs)
		return false
	}
	for _, c := range g.Carried(ship.ID) {
		g.DisposeUnit(c, cs)
	}
	ship.Cargo.Clear()
	ship.HitPoints = 1
	ship.State = units.StateInRepair
	ship.MovesLeft = 0
	ship.Orders = nil
	from := ship.Coord
	switch {
	case colony != nil:
		g.MoveUnit(ship, colony.Coord, cs)
	case tradingPost:
		g.detach(ship)
		ship.Location = units.AtTradingPost
		cs.Remove(changes.Perhaps().Except(ship.Owner), changes.UnitRef(uint64(ship.ID)), from)
		g.UpdateTile(from, cs)
	}
	g.UpdateUnit(ship, cs)
	return true
}
