package game

import (
	"sort"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

// FoundColony creates a colony with the starting buildings and claims the
// free land around it.
func (g *Game) FoundColony(owner world.PlayerID, name string, at world.HexCoord) *social.Colony {
	g.nextSettlement++
	c := social.NewColony(g.nextSettlement, name, owner, at)
	for _, bt := range social.StartingBuildings {
		c.Buildings = append(c.Buildings, &social.Building{ID: g.NextBuildingID(), Type: bt})
	}
	g.AddSettlement(c)
	return c
}

// FoundNativeSettlement creates a native settlement and claims its land.
func (g *Game) FoundNativeSettlement(owner world.PlayerID, name string, at world.HexCoord, capital bool) *social.NativeSettlement {
	g.nextSettlement++
	s := social.NewNativeSettlement(g.nextSettlement, name, owner, at, capital)
	g.AddSettlement(s)
	return s
}

// AddSettlement registers a settlement, marks its centre tile, and claims
// the free land in its radius.
func (g *Game) AddSettlement(s social.Settlement) {
	id := s.SettlementID()
	g.settlements[id] = s
	if id > g.nextSettlement {
		g.nextSettlement = id
	}
	if p := g.Player(s.OwnerID()); p != nil {
		p.AddSettlement(id)
	}
	if t := g.Map.Get(s.Center()); t != nil {
		t.Settlement = id
		g.Map.Claim(t, s.OwnerID(), id)
	}
	g.ClaimFreeTiles(s)
}

// RestoreSettlement registers a settlement loaded from storage. The map and
// the owner's settlement list are expected to be restored already.
func (g *Game) RestoreSettlement(s social.Settlement) {
	id := s.SettlementID()
	g.settlements[id] = s
	if id > g.nextSettlement {
		g.nextSettlement = id
	}
	if c, ok := s.(*social.Colony); ok {
		for _, b := range c.Buildings {
			g.nextBuilding = max(g.nextBuilding, b.ID)
		}
	}
}

// ClaimFreeTiles gives a settlement every unowned land tile in its radius.
func (g *Game) ClaimFreeTiles(s social.Settlement) []*world.Tile {
	var claimed []*world.Tile
	for _, t := range g.Map.Within(s.Center(), s.Radius()) {
		if t.IsLand() && t.Free() {
			g.Map.Claim(t, s.OwnerID(), s.SettlementID())
			claimed = append(claimed, t)
		}
	}
	return claimed
}

// ReassignTiles hands the land worked by s to the nearest other settlement
// of owner that reaches it, or releases it when none does. The centre tile
// is left alone when keepCenter is set.
func (g *Game) ReassignTiles(s social.Settlement, owner world.PlayerID, keepCenter bool, cs *changes.Set) {
	var neighbours []social.Settlement
	for _, other := range g.SettlementsOf(owner) {
		if other.SettlementID() != s.SettlementID() {
			neighbours = append(neighbours, other)
		}
	}

	for _, t := range g.Map.OwnedBy(s.SettlementID()) {
		if keepCenter && t.Coord == s.Center() {
			continue
		}
		var heir social.Settlement
		best := 0
		for _, n := range neighbours {
			d := world.Distance(t.Coord, n.Center())
			if d > n.Radius() {
				continue
			}
			if heir == nil || d < best || (d == best && n.SettlementID() < heir.SettlementID()) {
				heir, best = n, d
			}
		}
		if heir != nil {
			g.Map.Claim(t, heir.OwnerID(), heir.SettlementID())
		} else {
			g.Map.Release(t)
		}
		if cs != nil {
			g.UpdateTile(t.Coord, cs)
		}
	}
}

// DisposeSettlement removes a settlement, its residents, and its claim on
// the land. Land passes to neighbouring settlements of the same owner.
func (g *Game) DisposeSettlement(s social.Settlement, cs *changes.Set) {
	owner := s.OwnerID()
	for _, id := range append([]units.ID(nil), s.Residents()...) {
		if u := g.units[id]; u != nil {
			g.DisposeUnit(u, cs)
		}
	}
	if ns, ok := s.(*social.NativeSettlement); ok && ns.Missionary != 0 {
		if m := g.units[ns.Missionary]; m != nil {
			g.DisposeUnit(m, cs)
		}
	}
	g.ReassignTiles(s, owner, false, cs)
	if t := g.Map.Get(s.Center()); t != nil {
		t.Settlement = world.NoSettlement
	}
	if p := g.Player(owner); p != nil {
		p.RemoveSettlement(s.SettlementID())
	}
	delete(g.settlements, s.SettlementID())
	switch s := s.(type) {
	case *social.Colony:
		s.Disposed = true
	case *social.NativeSettlement:
		s.Disposed = true
	}
	if cs != nil {
		cs.Remove(changes.Perhaps().Always(owner), changes.SettlementRef(s.SettlementID()), s.Center())
		g.UpdateTile(s.Center(), cs)
	}
}

// ChangeColonyOwner hands a colony and its colonists to a new owner. The
// former owner's outlying land goes to its neighbouring colonies first; the
// colony then claims whatever is left free around it.
func (g *Game) ChangeColonyOwner(c *social.Colony, owner world.PlayerID, cs *changes.Set) {
	old := c.Owner
	g.ReassignTiles(c, old, true, cs)

	if p := g.Player(old); p != nil {
		p.RemoveSettlement(c.ID)
	}
	c.Owner = owner
	c.BuildQueue = nil
	if p := g.Player(owner); p != nil {
		p.AddSettlement(c.ID)
	}
	if t := g.Map.Get(c.Coord); t != nil {
		g.Map.Claim(t, owner, c.ID)
	}
	for _, id := range c.Units {
		if u := g.units[id]; u != nil {
			g.ChangeUnitOwner(u, owner, cs)
		}
	}
	claimed := g.ClaimFreeTiles(c)
	if cs == nil {
		return
	}
	for _, t := range claimed {
		g.UpdateTile(t.Coord, cs)
	}
	cs.Update(changes.Perhaps().Always(old).Always(owner), changes.SettlementRef(c.ID), c.Coord, c)
}

// Plunder is the gold a conqueror takes from a colony: the owner's
// treasury in proportion to the colony's share of the owner's colonists.
func (g *Game) Plunder(c *social.Colony) int {
	p := g.Player(c.Owner)
	if p == nil || p.Gold <= 0 {
		return 0
	}
	total := g.ColonyPopulation(c.Owner)
	if total == 0 {
		return 0
	}
	return p.Gold * len(c.Units) / total
}

// NearestSettlements returns up to n settlements of owner ordered by
// distance from coord, ties broken by id.
func (g *Game) NearestSettlements(owner world.PlayerID, from world.HexCoord, n int) []social.Settlement {
	candidates := g.SettlementsOf(owner)
	sort.SliceStable(candidates, func(i, j int) bool {
		di := world.Distance(from, candidates[i].Center())
		dj := world.Distance(from, candidates[j].Center())
		if di != dj {
			return di < dj
		}
		return candidates[i].SettlementID() < candidates[j].SettlementID()
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}
