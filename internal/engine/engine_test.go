package engine

import (
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/economy"
	"github.com/talgya/colonyserver/internal/game"
	"github.com/talgya/colonyserver/internal/interaction"
	"github.com/talgya/colonyserver/internal/session"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

const (
	dutch  world.PlayerID = 1
	french world.PlayerID = 2
	arawak world.PlayerID = 3
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newGame() *game.Game {
	m := world.NewMap(8)
	for q := -8; q <= 8; q++ {
		for r := -8; r <= 8; r++ {
			c := world.HexCoord{Q: q, R: r}
			if m.InBounds(c) {
				m.Set(&world.Tile{Coord: c, Terrain: world.TerrainPlains})
			}
		}
	}
	g := game.New(m)
	g.AddPlayer(social.NewPlayer(dutch, "Dutch", "dutch", social.KindColonial, 1000))
	g.AddPlayer(social.NewPlayer(french, "French", "french", social.KindColonial, 1000))
	return g
}

// settle founds a colony with one colonist on the land and one in the
// carpenter's house.
func settle(g *game.Game, owner world.PlayerID, name string, at world.HexCoord) *social.Colony {
	c := g.FoundColony(owner, name, at)
	g.JoinSettlement(g.NewUnit(units.TypeFreeColonist, owner, at), c, 0)
	g.JoinSettlement(g.NewUnit(units.TypeFreeColonist, owner, at), c, c.Building(social.BuildingCarpenterHouse).ID)
	return c
}

type tracer struct {
	order []EntityRef
	index map[EntityRef]int
}

func trace(e *Engine) *tracer {
	t := &tracer{index: make(map[EntityRef]int)}
	e.Trace = func(r EntityRef) {
		t.index[r] = len(t.order)
		t.order = append(t.order, r)
	}
	return t
}

func (t *tracer) count(r EntityRef) int {
	n := 0
	for _, o := range t.order {
		if o == r {
			n++
		}
	}
	return n
}

func TestCascadeOrderTwoPlayersTwoColonies(t *testing.T) {
	g := newGame()
	e := New(g, nil, interaction.Timeouts{})
	colonies := []*social.Colony{
		settle(g, dutch, "Nieuw Amsterdam", world.HexCoord{Q: 0, R: 0}),
		settle(g, dutch, "Fort Oranje", world.HexCoord{Q: 4, R: 0}),
		settle(g, french, "Quebec", world.HexCoord{Q: 0, R: -4}),
		settle(g, french, "Montreal", world.HexCoord{Q: 0, R: 4}),
	}
	scout := g.NewUnit(units.TypeSeasonedScout, french, world.HexCoord{Q: -3, R: 0})
	tr := trace(e)

	e.AdvanceTurn(rand.New(rand.NewSource(1)), quiet, changes.New())

	if tr.order[0] != (EntityRef{Kind: EntityWorld}) {
		t.Fatalf("first entity = %v, want world", tr.order[0])
	}
	for _, p := range []world.PlayerID{dutch, french} {
		if n := tr.count(EntityRef{Kind: EntityPlayer, ID: uint64(p)}); n != 1 {
			t.Fatalf("player %d advanced %d times", p, n)
		}
		if n := tr.count(EntityRef{Kind: EntityTradingPost, ID: uint64(p)}); n != 1 {
			t.Fatalf("trading post of %d advanced %d times", p, n)
		}
	}
	dutchAt := tr.index[EntityRef{Kind: EntityPlayer, ID: uint64(dutch)}]
	frenchAt := tr.index[EntityRef{Kind: EntityPlayer, ID: uint64(french)}]
	if dutchAt >= frenchAt {
		t.Fatalf("players out of order: dutch %d, french %d", dutchAt, frenchAt)
	}

	for _, c := range colonies {
		at, ok := tr.index[colonyRef(c)]
		if !ok {
			t.Fatalf("%s never advanced", c.Name)
		}
		owner := dutchAt
		if c.Owner == french {
			owner = frenchAt
		}
		if at < owner {
			t.Errorf("%s advanced before its owner", c.Name)
		}
		for _, b := range c.Buildings {
			r := EntityRef{Kind: EntityBuilding, ID: b.ID}
			if tr.count(r) != 1 || tr.index[r] < at {
				t.Errorf("%s: building %s advanced %d times at %d, colony at %d", c.Name, b.Type, tr.count(r), tr.index[r], at)
			}
		}
		for _, id := range c.Units {
			r := EntityRef{Kind: EntityUnit, ID: uint64(id)}
			if tr.count(r) != 1 || tr.index[r] < at {
				t.Errorf("%s: resident %d advanced %d times at %d, colony at %d", c.Name, id, tr.count(r), tr.index[r], at)
			}
		}
	}
	if tr.count(unitRef(scout)) != 1 || tr.index[unitRef(scout)] < frenchAt {
		t.Errorf("free unit not advanced within its owner's turn")
	}
	if g.Turn != 2 {
		t.Fatalf("turn = %d, want 2", g.Turn)
	}
}

func TestStarvedColonySkipsItsSubtree(t *testing.T) {
	g := newGame()
	doomedAt := world.HexCoord{Q: -4, R: 0}
	g.Map.Get(doomedAt).Terrain = world.TerrainTundra
	for _, n := range doomedAt.Neighbors() {
		g.Map.Get(n).Terrain = world.TerrainOcean
	}
	doomed := g.FoundColony(dutch, "Roanoke", doomedAt)
	settler := g.NewUnit(units.TypeFreeColonist, dutch, doomedAt)
	g.JoinSettlement(settler, doomed, doomed.Building(social.BuildingTownHall).ID)
	sibling := settle(g, dutch, "Jamestown", world.HexCoord{Q: 4, R: 0})
	e := New(g, nil, interaction.Timeouts{})
	tr := trace(e)

	stats := e.AdvanceTurn(rand.New(rand.NewSource(1)), quiet, changes.New())

	if !doomed.Disposed || g.Settlement(doomed.ID) != nil {
		t.Fatal("starved colony still stands")
	}
	if stats.Starved != 1 {
		t.Errorf("starved = %d, want 1", stats.Starved)
	}
	if tr.count(colonyRef(doomed)) != 1 {
		t.Fatal("starved colony was not advanced")
	}
	for _, b := range doomed.Buildings {
		if tr.count(EntityRef{Kind: EntityBuilding, ID: b.ID}) != 0 {
			t.Errorf("building %s of the starved colony advanced", b.Type)
		}
	}
	if tr.count(unitRef(settler)) != 0 {
		t.Error("dead settler advanced")
	}
	if tr.count(colonyRef(sibling)) != 1 {
		t.Error("sibling colony skipped")
	}
	if g.MustPlayer(dutch).Dead {
		t.Error("player with a remaining colony eliminated")
	}
}

func TestAdvancingTwicePanics(t *testing.T) {
	g := newGame()
	e := New(g, nil, interaction.Timeouts{})
	u := g.NewUnit(units.TypeFreeColonist, dutch, world.HexCoord{})
	c := &cascade{Engine: e, ledger: make(ledger), stats: &TurnStats{}}
	rng := rand.New(rand.NewSource(1))

	c.unit(u, rng, quiet, changes.New())
	defer func() {
		err, ok := recover().(error)
		if !ok || !errors.Is(err, ErrAdvancedTwice) {
			t.Fatalf("recovered %v, want ErrAdvancedTwice", err)
		}
	}()
	c.unit(u, rng, quiet, changes.New())
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestTurnEndCompletesSessions(t *testing.T) {
	g := newGame()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	g.Sessions.SetClock(clock.Now)
	e := New(g, nil, interaction.Timeouts{Mercenaries: time.Minute})
	envoy := g.NewUnit(units.TypeFreeColonist, dutch, world.HexCoord{})
	cs := changes.New()

	treaty, err := e.Interact.ProposeTreaty(envoy, french, world.NoSettlement, session.Agreement{Terms: []session.Term{
		{Kind: session.TermStance, Stance: social.StancePeace},
	}}, cs)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	offer, err := e.Interact.OfferMercenaries(french, dutch, []session.MercenaryUnit{{Type: units.TypeVeteranSoldier}}, 500, world.HexCoord{}, cs)
	if err != nil {
		t.Fatalf("offer: %v", err)
	}
	clock.now = clock.now.Add(time.Hour)

	cs = changes.New()
	stats := e.AdvanceTurn(rand.New(rand.NewSource(1)), quiet, cs)

	if g.Sessions.Len() != 0 {
		t.Fatalf("%d sessions left open", g.Sessions.Len())
	}
	if offer.Result() != session.ResultTimedOut || stats.Expired != 1 {
		t.Errorf("offer result %v, expired %d", offer.Result(), stats.Expired)
	}
	if treaty.Result() != session.ResultForced || stats.Forced != 1 {
		t.Errorf("treaty result %v, forced %d", treaty.Result(), stats.Forced)
	}
	all := cs.Changes()
	if last := all[len(all)-1]; last.Kind != changes.KindNewTurn || last.Turn != 2 {
		t.Fatalf("last change %v turn %d, want new turn 2", last.Kind, last.Turn)
	}
}

func TestQueuedAttackRunsOnAttackersTurn(t *testing.T) {
	g := newGame()
	e := New(g, nil, interaction.Timeouts{})
	attacker := g.NewUnit(units.TypeVeteranSoldier, dutch, world.HexCoord{Q: 0, R: 0})
	attacker.Role = units.RoleSoldier
	g.NewUnit(units.TypeFreeColonist, french, world.HexCoord{Q: 1, R: 0})
	attacker.Orders = &units.AttackOrder{Target: world.HexCoord{Q: 1, R: 0}}
	stray := g.NewUnit(units.TypeVeteranSoldier, dutch, world.HexCoord{Q: -3, R: 0})
	stray.Role = units.RoleSoldier
	stray.Orders = &units.AttackOrder{Target: world.HexCoord{Q: -5, R: 0}}
	cs := changes.New()

	stats := e.AdvanceTurn(rand.New(rand.NewSource(3)), quiet, cs)

	if stats.Attacks != 1 {
		t.Fatalf("attacks = %d, want 1", stats.Attacks)
	}
	if attacker.Orders != nil || stray.Orders != nil {
		t.Error("orders not cleared")
	}
	if !g.MustPlayer(dutch).AtWarWith(french) {
		t.Error("attack did not start a war")
	}
	failed := false
	for _, m := range cs.Messages(g.Observer(dutch)) {
		failed = failed || m.Type == changes.MessageFailure
	}
	if !failed {
		t.Error("refused attack not reported")
	}
}

func TestNativesDeclareWarWhenHateful(t *testing.T) {
	g := newGame()
	natives := social.NewPlayer(arawak, "Arawak", "arawak", social.KindNative, 0)
	g.AddPlayer(natives)
	g.FoundNativeSettlement(arawak, "Tainos", world.HexCoord{Q: 5, R: -2}, false)
	settle(g, dutch, "Nieuw Amsterdam", world.HexCoord{})
	settle(g, french, "Quebec", world.HexCoord{Q: -4, R: 0})
	natives.SetStance(dutch, social.StancePeace)
	natives.SetStance(french, social.StancePeace)
	natives.SetTension(dutch, social.TensionMax)
	e := New(g, nil, interaction.Timeouts{})

	e.AdvanceTurn(rand.New(rand.NewSource(1)), quiet, changes.New())

	if !natives.AtWarWith(dutch) || !g.MustPlayer(dutch).AtWarWith(arawak) {
		t.Fatal("hateful natives did not go to war")
	}
	if natives.AtWarWith(french) {
		t.Fatal("natives went to war with a player they tolerate")
	}
}

func TestColonyGrowsAndBuilds(t *testing.T) {
	g := newGame()
	c := settle(g, dutch, "Nieuw Amsterdam", world.HexCoord{})
	c.Goods[economy.GoodsFood] = FoodToGrow
	c.Goods[economy.GoodsHammers] = 52
	c.Goods[economy.GoodsLumber] = 10
	c.BuildQueue = []social.BuildItem{{Building: social.BuildingDocks}, {Building: social.BuildingFortress}}
	e := New(g, nil, interaction.Timeouts{})
	cs := changes.New()

	stats := e.AdvanceTurn(rand.New(rand.NewSource(1)), quiet, cs)

	if stats.Born != 1 || len(c.Units) != 3 {
		t.Errorf("born %d, population %d", stats.Born, len(c.Units))
	}
	if !c.HasDocks() || stats.Built != 1 {
		t.Fatalf("docks not built")
	}
	if got := c.Goods[economy.GoodsHammers]; got != social.BaseProductionPerWorker {
		t.Errorf("hammers after building = %d, want %d from the carpenter", got, social.BaseProductionPerWorker)
	}

	e.AdvanceTurn(rand.New(rand.NewSource(2)), quiet, cs)
	if len(c.BuildQueue) != 0 {
		t.Fatalf("fortress still queued in a colony of %d", len(c.Units))
	}
	notReady := false
	for _, m := range cs.Messages(g.Observer(dutch)) {
		notReady = notReady || (m.Type == changes.MessageFailure && m.Key == "model.colony.notReady")
	}
	if !notReady {
		t.Error("owner not told the fortress cannot be built")
	}
}

func TestSchoolhouseNeedsAStudent(t *testing.T) {
	g := newGame()
	c := g.FoundColony(dutch, "Nieuw Amsterdam", world.HexCoord{})
	school := &social.Building{ID: g.NextBuildingID(), Type: social.BuildingSchoolhouse}
	c.Buildings = append(c.Buildings, school)
	teacher := g.NewUnit(units.TypeExpertFarmer, dutch, c.Coord)
	g.JoinSettlement(teacher, c, school.ID)
	e := New(g, nil, interaction.Timeouts{})
	cs := changes.New()

	e.AdvanceTurn(rand.New(rand.NewSource(1)), quiet, cs)

	found := false
	for _, m := range cs.Messages(g.Observer(dutch)) {
		found = found || m.Key == "model.building.noStudent"
	}
	if !found {
		t.Fatal("no-student failure not reported")
	}

	servant := g.NewUnit(units.TypeIndenturedServant, dutch, c.Coord)
	g.JoinSettlement(servant, c, 0)
	for range social.TeachingTurns {
		e.AdvanceTurn(rand.New(rand.NewSource(1)), quiet, changes.New())
	}
	if servant.Type != units.TypeFreeColonist {
		t.Fatalf("servant is now %s", servant.UnitType().Name)
	}
}

func TestEliminatedPlayerLeavesTheCascade(t *testing.T) {
	g := newGame()
	settle(g, dutch, "Nieuw Amsterdam", world.HexCoord{})
	e := New(g, nil, interaction.Timeouts{})
	tr := trace(e)

	e.AdvanceTurn(rand.New(rand.NewSource(1)), quiet, changes.New())

	if !g.MustPlayer(french).Dead {
		t.Fatal("player with nothing left not eliminated")
	}
	if tr.count(EntityRef{Kind: EntityTradingPost, ID: uint64(french)}) != 0 {
		t.Error("eliminated player's trading post advanced")
	}
	tr.order, tr.index = nil, make(map[EntityRef]int)
	e.AdvanceTurn(rand.New(rand.NewSource(1)), quiet, changes.New())
	if tr.count(EntityRef{Kind: EntityPlayer, ID: uint64(french)}) != 0 {
		t.Error("eliminated player advanced again")
	}
}

func TestDateString(t *testing.T) {
	for turn, want := range map[int]string{
		1:   "1492",
		108: "1599",
		109: "Spring 1600",
		110: "Autumn 1600",
		113: "Spring 1602",
	} {
		if got := DateString(turn); got != want {
			t.Errorf("DateString(%d) = %q, want %q", turn, got, want)
		}
	}
}

func TestExpiringCeaseFiresInPlayerOrder(t *testing.T) {
	g := newGame()
	settle(g, dutch, "Nieuw Amsterdam", world.HexCoord{})
	for id, name := range map[world.PlayerID]string{4: "English", 5: "Spanish", 6: "Swedish"} {
		g.AddPlayer(social.NewPlayer(id, name, name, social.KindColonial, 0))
	}
	d := g.MustPlayer(dutch)
	others := []world.PlayerID{french, 4, 5, 6}
	for _, id := range others {
		d.SetStance(id, social.StanceCeaseFire)
		g.MustPlayer(id).SetStance(dutch, social.StanceCeaseFire)
		d.CeaseFire[id] = 1
	}

	cs := changes.New()
	New(g, nil, interaction.Timeouts{}).AdvanceTurn(rand.New(rand.NewSource(1)), quiet, cs)

	var got []world.PlayerID
	for _, c := range cs.Changes() {
		if c.Kind == changes.KindStance && c.Stance.First == dutch {
			got = append(got, c.Stance.Second)
		}
	}
	if len(got) != len(others) {
		t.Fatalf("stance changes with %v", got)
	}
	for i, id := range others {
		if got[i] != id {
			t.Fatalf("cease-fires ended in order %v, want %v", got, others)
		}
	}
	if !d.AtWarWith(4) || len(d.CeaseFire) != 0 {
		t.Fatalf("stance %s, %d cease-fires left", d.Stance(4), len(d.CeaseFire))
	}
}
