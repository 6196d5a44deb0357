package game

import (
	"testing"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

func TestFoundColonyClaimsFreeLand(t *testing.T) {
	g, a, _ := twoPlayerGame()
	c := g.FoundColony(a.ID, "Fort Orange", world.HexCoord{})
	owned := g.Map.OwnedBy(c.ID)
	if len(owned) != 7 {
		t.Fatalf("colony owns %d tiles, want 7", len(owned))
	}
	if g.Map.Get(world.HexCoord{}).Settlement != c.ID {
		t.Fatalf("centre tile not marked")
	}
	if len(a.Settlements) != 1 || a.Settlements[0] != c.ID {
		t.Fatalf("player settlement list = %v", a.Settlements)
	}
	if len(c.Buildings) != len(social.StartingBuildings) {
		t.Fatalf("colony has %d buildings", len(c.Buildings))
	}
}

func TestChangeColonyOwnerReassignsOutlyingLand(t *testing.T) {
	g, a, b := twoPlayerGame()
	target := g.FoundColony(a.ID, "Target", world.HexCoord{Q: 0, R: 0})
	// Neighbour two tiles east shares (1,0) with the target.
	neighbour := g.FoundColony(a.ID, "Neighbour", world.HexCoord{Q: 2, R: 0})
	for i := 0; i < 2; i++ {
		u := g.NewUnit(units.TypeFreeColonist, a.ID, target.Coord)
		g.JoinSettlement(u, target, 0)
	}

	shared := world.HexCoord{Q: 1, R: 0}
	if g.Map.Get(shared).OwningSettlement != target.ID {
		t.Fatalf("setup: shared tile should belong to the first colony")
	}

	cs := changes.New()
	g.ChangeColonyOwner(target, b.ID, cs)

	if target.Owner != b.ID || len(a.Settlements) != 1 || len(b.Settlements) != 1 {
		t.Fatalf("ownership not transferred: owner=%d a=%v b=%v", target.Owner, a.Settlements, b.Settlements)
	}
	if got := g.Map.Get(shared); got.OwningSettlement != neighbour.ID || got.Owner != a.ID {
		t.Fatalf("shared tile went to settlement %d owner %d", got.OwningSettlement, got.Owner)
	}
	if got := g.Map.Get(target.Coord); got.Owner != b.ID || got.OwningSettlement != target.ID {
		t.Fatalf("centre tile owner %d settlement %d", got.Owner, got.OwningSettlement)
	}
	west := g.Map.Get(world.HexCoord{Q: -1, R: 0})
	if west.Owner != b.ID || west.OwningSettlement != target.ID {
		t.Fatalf("unreachable tile should be reclaimed by the captured colony, got owner %d", west.Owner)
	}
	for _, id := range target.Units {
		if g.Unit(id).Owner != b.ID {
			t.Fatalf("colonist %d still owned by %d", id, g.Unit(id).Owner)
		}
	}
}

func TestDisposeSettlementRemovesResidents(t *testing.T) {
	g := New(plainsMap(5))
	natives := social.NewPlayer(3, "Arawak", "arawak", social.KindNative, 0)
	g.AddPlayer(natives)
	camp := g.FoundNativeSettlement(natives.ID, "Camp", world.HexCoord{}, false)
	other := g.FoundNativeSettlement(natives.ID, "Other", world.HexCoord{Q: 2, R: 0}, false)
	brave := g.NewUnit(units.TypeBrave, natives.ID, camp.Coord)
	g.JoinSettlement(brave, camp, 0)

	g.DisposeSettlement(camp, changes.New())

	if g.Settlement(camp.ID) != nil || !camp.Disposed {
		t.Fatalf("settlement still registered")
	}
	if g.Unit(brave.ID) != nil || !brave.Disposed {
		t.Fatalf("resident survived disposal")
	}
	if g.Map.Get(camp.Coord).Settlement != world.NoSettlement || !g.Map.Get(camp.Coord).Free() {
		t.Fatalf("centre tile still claimed")
	}
	if got := g.Map.Get(world.HexCoord{Q: 1, R: 0}).OwningSettlement; got != other.ID {
		t.Fatalf("tile in reach of the other camp went to %d", got)
	}
	if len(natives.Settlements) != 1 {
		t.Fatalf("settlement list = %v", natives.Settlements)
	}
}

func TestPlunderIsProportional(t *testing.T) {
	g, a, _ := twoPlayerGame()
	big := g.FoundColony(a.ID, "Big", world.HexCoord{Q: -3, R: 0})
	small := g.FoundColony(a.ID, "Small", world.HexCoord{Q: 3, R: 0})
	for i := 0; i < 3; i++ {
		g.JoinSettlement(g.NewUnit(units.TypeFreeColonist, a.ID, big.Coord), big, 0)
	}
	g.JoinSettlement(g.NewUnit(units.TypeFreeColonist, a.ID, small.Coord), small, 0)

	if got := g.Plunder(small); got != 250 {
		t.Fatalf("plunder = %d, want 250", got)
	}
}

func TestDisposeCarrierDisposesPassengers(t *testing.T) {
	g, a, _ := twoPlayerGame()
	ship := g.NewUnit(units.TypeCaravel, a.ID, world.HexCoord{Q: 4, R: 0})
	passenger := g.NewUnit(units.TypeFreeColonist, a.ID, ship.Coord)
	g.Embark(passenger, ship)

	g.DisposeUnit(ship, changes.New())
	if g.Unit(passenger.ID) != nil {
		t.Fatalf("passenger outlived its ship")
	}
}

func TestSeesAroundUnits(t *testing.T) {
	g, a, b := twoPlayerGame()
	g.NewUnit(units.TypeSeasonedScout, a.ID, world.HexCoord{})
	if !g.Sees(a.ID, world.HexCoord{Q: 2, R: 0}) {
		t.Fatalf("scout should see two tiles away")
	}
	if g.Sees(b.ID, world.HexCoord{}) {
		t.Fatalf("player without units sees nothing")
	}
}
