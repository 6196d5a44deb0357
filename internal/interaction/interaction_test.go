package interaction

import (
	"errors"
	"testing"
	"time"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/economy"
	"github.com/talgya/colonyserver/internal/game"
	"github.com/talgya/colonyserver/internal/session"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

const (
	dutch   world.PlayerID = 1
	french  world.PlayerID = 2
	arawak  world.PlayerID = 3
	royalty world.PlayerID = 4
)

var (
	origin = world.HexCoord{Q: 0, R: 0}
	east   = world.HexCoord{Q: 1, R: 0}
)

func newGame() *game.Game {
	m := world.NewMap(6)
	for q := -6; q <= 6; q++ {
		for r := -6; r <= 6; r++ {
			c := world.HexCoord{Q: q, R: r}
			if m.InBounds(c) {
				m.Set(&world.Tile{Coord: c, Terrain: world.TerrainPlains})
			}
		}
	}
	g := game.New(m)
	g.AddPlayer(social.NewPlayer(dutch, "Dutch", "dutch", social.KindColonial, 1000))
	g.AddPlayer(social.NewPlayer(french, "French", "french", social.KindColonial, 600))
	g.AddPlayer(social.NewPlayer(arawak, "Arawak", "arawak", social.KindNative, 500))
	g.AddPlayer(social.NewPlayer(royalty, "Crown", "royal", social.KindRoyal, 0))
	return g
}

func soldier(g *game.Game, owner world.PlayerID, at world.HexCoord) *units.Unit {
	u := g.NewUnit(units.TypeFreeColonist, owner, at)
	u.Role = units.RoleSoldier
	return u
}

func hasMessage(cs *changes.Set, g *game.Game, p world.PlayerID, t changes.MessageType) bool {
	for _, m := range cs.Messages(g.Observer(p)) {
		if m.Type == t {
			return true
		}
	}
	return false
}

func TestTreatyAcceptedAppliesTerms(t *testing.T) {
	g := newGame()
	h := New(g, Timeouts{})
	g.FoundColony(french, "Quebec", east)
	envoy := soldier(g, dutch, origin)
	cs := changes.New()

	s, err := h.ProposeTreaty(envoy, french, world.NoSettlement, session.Agreement{Terms: []session.Term{
		{Kind: session.TermStance, Stance: social.StancePeace},
		{Kind: session.TermGold, From: dutch, Amount: 100},
	}}, cs)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := h.Respond(s, dutch, true, cs); !errors.Is(err, ErrNotParty) {
		t.Fatalf("proposer answering own proposal: got %v", err)
	}
	if err := h.Respond(s, french, true, cs); err != nil {
		t.Fatalf("respond: %v", err)
	}

	if got := g.MustPlayer(dutch).Stance(french); got != social.StancePeace {
		t.Errorf("dutch stance = %v, want peace", got)
	}
	if got := g.MustPlayer(french).Stance(dutch); got != social.StancePeace {
		t.Errorf("french stance = %v, want peace", got)
	}
	if g.MustPlayer(dutch).Gold != 900 || g.MustPlayer(french).Gold != 700 {
		t.Errorf("gold = %d/%d, want 900/700", g.MustPlayer(dutch).Gold, g.MustPlayer(french).Gold)
	}
	if envoy.MovesLeft != 0 {
		t.Errorf("envoy kept %d moves", envoy.MovesLeft)
	}
	if err := h.Respond(s, french, true, cs); !errors.Is(err, ErrClosed) {
		t.Fatalf("second answer: got %v", err)
	}
}

func TestTreatyRejectedLeavesStateAlone(t *testing.T) {
	g := newGame()
	h := New(g, Timeouts{})
	envoy := soldier(g, dutch, origin)
	cs := changes.New()

	s, err := h.ProposeTreaty(envoy, french, world.NoSettlement, session.Agreement{Terms: []session.Term{
		{Kind: session.TermGold, From: dutch, Amount: 250},
	}}, cs)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := h.Respond(s, french, false, cs); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if g.MustPlayer(dutch).Gold != 1000 {
		t.Errorf("rejected treaty moved gold: %d", g.MustPlayer(dutch).Gold)
	}
	if !hasMessage(cs, g, dutch, changes.MessageDiplomacy) {
		t.Error("proposer not told of the rejection")
	}
}

func TestCounterTreatyAlternatesUntilBreakdown(t *testing.T) {
	g := newGame()
	h := New(g, Timeouts{})
	envoy := soldier(g, dutch, origin)
	cs := changes.New()
	peace := session.Agreement{Terms: []session.Term{{Kind: session.TermStance, Stance: social.StancePeace}}}

	s, err := h.ProposeTreaty(envoy, french, world.NoSettlement, peace, cs)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	d := s.Payload().(*session.Diplomacy)
	if err := h.CounterTreaty(s, dutch, peace, cs); !errors.Is(err, ErrNotParty) {
		t.Fatalf("counter by the asking side: got %v", err)
	}
	for d.Rounds < MaxTreatyRounds {
		by := d.Recipient
		if err := h.CounterTreaty(s, by, peace, cs); err != nil {
			t.Fatalf("round %d: %v", d.Rounds, err)
		}
		if d.Proposer != by {
			t.Fatalf("round %d: proposer %d, want %d", d.Rounds, d.Proposer, by)
		}
	}
	if err := h.CounterTreaty(s, d.Recipient, peace, cs); !errors.Is(err, ErrRefused) {
		t.Fatalf("counter past the limit: got %v", err)
	}
	if !s.Completed() || s.Result() != session.ResultRejected {
		t.Fatalf("session completed=%v result=%v", s.Completed(), s.Result())
	}
}

func TestProposalNeedsAffordableTerms(t *testing.T) {
	g := newGame()
	h := New(g, Timeouts{})
	envoy := soldier(g, french, origin)
	cs := changes.New()

	_, err := h.ProposeTreaty(envoy, dutch, world.NoSettlement, session.Agreement{Terms: []session.Term{
		{Kind: session.TermGold, From: french, Amount: 5000},
	}}, cs)
	if !errors.Is(err, ErrInsufficientGold) {
		t.Fatalf("got %v, want ErrInsufficientGold", err)
	}
	if g.Sessions.Len() != 0 {
		t.Fatalf("refused proposal left %d sessions", g.Sessions.Len())
	}
	if !hasMessage(cs, g, french, changes.MessageFailure) {
		t.Error("no failure message for the proposer")
	}
}

func TestTradeAllowsEachActionOnce(t *testing.T) {
	g := newGame()
	h := New(g, Timeouts{})
	ns := g.FoundNativeSettlement(arawak, "Tainos", east, false)
	ns.Goods.Add(economy.GoodsFurs, 100)
	ns.SetAlarm(dutch, 400)
	wagon := g.NewUnit(units.TypeWagonTrain, dutch, origin)
	wagon.Cargo.Add(economy.GoodsMuskets, 50)
	cs := changes.New()

	s, err := h.OpenTrade(wagon, ns, cs)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if again, err := h.OpenTrade(wagon, ns, cs); err != nil || again != s {
		t.Fatalf("reopen returned %v, %v", again, err)
	}
	if !ns.Contacted[dutch] {
		t.Error("settlement not marked as contacted")
	}

	if err := h.Buy(s, dutch, economy.GoodsFurs, 50, cs); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if got := g.MustPlayer(dutch).Gold; got != 1000-NativeAsk(ns, economy.GoodsFurs, 50) {
		t.Errorf("gold after buying = %d", got)
	}
	if err := h.Buy(s, dutch, economy.GoodsFurs, 10, cs); !errors.Is(err, ErrAlreadyDone) {
		t.Fatalf("second buy: got %v", err)
	}
	if err := h.Sell(s, dutch, economy.GoodsMuskets, 20, cs); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if err := h.Gift(s, dutch, economy.GoodsMuskets, 40, cs); !errors.Is(err, ErrInsufficientGoods) {
		t.Fatalf("gift of more than carried: got %v", err)
	}
	if err := h.Gift(s, dutch, economy.GoodsMuskets, 10, cs); err != nil {
		t.Fatalf("gift: %v", err)
	}
	if err := h.Sell(s, french, economy.GoodsMuskets, 1, cs); !errors.Is(err, ErrNotParty) {
		t.Fatalf("outsider selling: got %v", err)
	}
	if err := h.CloseTrade(s, dutch, cs); err != nil {
		t.Fatalf("close: %v", err)
	}

	if wagon.Cargo[economy.GoodsFurs] != 50 || wagon.Cargo[economy.GoodsMuskets] != 20 {
		t.Errorf("cargo = furs %d muskets %d", wagon.Cargo[economy.GoodsFurs], wagon.Cargo[economy.GoodsMuskets])
	}
	if wagon.MovesLeft != 0 {
		t.Errorf("trader kept %d moves", wagon.MovesLeft)
	}
	if got := ns.Alarm[dutch].Value; got != 400-GiftGoodwill {
		t.Errorf("alarm after gift = %d", got)
	}
	if err := h.Buy(s, dutch, economy.GoodsFurs, 1, cs); !errors.Is(err, ErrClosed) {
		t.Fatalf("buy after closing: got %v", err)
	}
}

func TestTradeRefusedWhenAngry(t *testing.T) {
	g := newGame()
	h := New(g, Timeouts{})
	ns := g.FoundNativeSettlement(arawak, "Tainos", east, false)
	ns.SetAlarm(french, social.TensionAngry)
	wagon := g.NewUnit(units.TypeWagonTrain, french, origin)
	cs := changes.New()

	if _, err := h.OpenTrade(wagon, ns, cs); !errors.Is(err, ErrRefused) {
		t.Fatalf("got %v, want ErrRefused", err)
	}
	if g.Sessions.Len() != 0 {
		t.Fatal("hostile settlement opened a session")
	}
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestDemandTimesOutAsRejection(t *testing.T) {
	g := newGame()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	g.Sessions.SetClock(clock.Now)
	h := New(g, Timeouts{NativeDemand: time.Minute})
	c := g.FoundColony(dutch, "Nieuw Amsterdam", origin)
	home := g.FoundNativeSettlement(arawak, "Tainos", world.HexCoord{Q: 3, R: 0}, false)
	brave := g.NewUnit(units.TypeBrave, arawak, east)
	brave.HomeSettlement = home.ID
	cs := changes.New()

	if _, err := h.DemandGoods(brave, c, economy.GoodsFood, 0, 100, cs); err != nil {
		t.Fatalf("demand: %v", err)
	}
	if !hasMessage(cs, g, dutch, changes.MessageDemand) {
		t.Error("colony owner not told of the demand")
	}
	if n := g.Sessions.ExpireDue(cs); n != 0 {
		t.Fatalf("expired %d sessions before the deadline", n)
	}
	clock.now = clock.now.Add(2 * time.Minute)
	if n := g.Sessions.ExpireDue(cs); n != 1 {
		t.Fatalf("expired %d sessions, want 1", n)
	}

	if g.MustPlayer(dutch).Gold != 1000 {
		t.Errorf("unanswered demand took gold")
	}
	if got := g.MustPlayer(arawak).Tension(dutch).Value; got != social.TensionAddMajor {
		t.Errorf("tension = %d, want %d", got, social.TensionAddMajor)
	}
	if got := home.Alarm[dutch].Value; got != social.TensionAddMajor {
		t.Errorf("home alarm = %d, want %d", got, social.TensionAddMajor)
	}
	if brave.MovesLeft != 0 {
		t.Errorf("brave kept %d moves", brave.MovesLeft)
	}
}

func TestDemandAcceptedDeliversGoodsHome(t *testing.T) {
	g := newGame()
	h := New(g, Timeouts{})
	c := g.FoundColony(dutch, "Nieuw Amsterdam", origin)
	c.Goods.Add(economy.GoodsMuskets, 100)
	home := g.FoundNativeSettlement(arawak, "Tainos", world.HexCoord{Q: 3, R: 0}, false)
	brave := g.NewUnit(units.TypeBrave, arawak, east)
	brave.HomeSettlement = home.ID
	g.MustPlayer(arawak).SetTension(dutch, 400)
	cs := changes.New()

	s, err := h.DemandGoods(brave, c, economy.GoodsMuskets, 50, 0, cs)
	if err != nil {
		t.Fatalf("demand: %v", err)
	}
	if err := h.Respond(s, dutch, true, cs); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if c.Goods[economy.GoodsMuskets] != 50 || home.Goods[economy.GoodsMuskets] != 50 {
		t.Errorf("muskets colony=%d home=%d", c.Goods[economy.GoodsMuskets], home.Goods[economy.GoodsMuskets])
	}
	if got := g.MustPlayer(arawak).Tension(dutch).Value; got != 400-social.TensionAddNormal {
		t.Errorf("tension = %d", got)
	}
}

func TestDemandNeedsOneOfGoodsOrGold(t *testing.T) {
	g := newGame()
	h := New(g, Timeouts{})
	c := g.FoundColony(dutch, "Nieuw Amsterdam", origin)
	brave := g.NewUnit(units.TypeBrave, arawak, east)

	if _, err := h.DemandGoods(brave, c, economy.GoodsFurs, 10, 10, changes.New()); !errors.Is(err, ErrRefused) {
		t.Fatalf("got %v", err)
	}
}

func TestMercenariesRequireGold(t *testing.T) {
	g := newGame()
	h := New(g, Timeouts{})
	offer := []session.MercenaryUnit{
		{Type: units.TypeVeteranSoldier, Role: units.RoleSoldier},
		{Type: units.TypeArtillery},
	}
	cs := changes.New()

	poor, err := h.OfferMercenaries(royalty, french, offer, 1000, origin, cs)
	if err != nil {
		t.Fatalf("offer: %v", err)
	}
	if err := h.Respond(poor, french, true, cs); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if len(g.UnitsOf(french)) != 0 || g.MustPlayer(french).Gold != 600 {
		t.Fatalf("unaffordable offer still hired troops")
	}
	if !hasMessage(cs, g, french, changes.MessageFailure) {
		t.Error("no failure message for the unaffordable offer")
	}

	rich, err := h.OfferMercenaries(royalty, dutch, offer, 1000, origin, cs)
	if err != nil {
		t.Fatalf("offer: %v", err)
	}
	if err := h.Respond(rich, dutch, true, cs); err != nil {
		t.Fatalf("respond: %v", err)
	}
	hired := g.UnitsOf(dutch)
	if len(hired) != 2 || g.MustPlayer(dutch).Gold != 0 {
		t.Fatalf("hired %d units, gold %d", len(hired), g.MustPlayer(dutch).Gold)
	}
	for _, u := range hired {
		if u.Type == units.TypeVeteranSoldier && u.Role != units.RoleSoldier {
			t.Errorf("veteran arrived as %v", u.Role)
		}
		if u.Coord != origin {
			t.Errorf("unit landed at %v", u.Coord)
		}
	}
}

func TestTributeOncePerTurn(t *testing.T) {
	g := newGame()
	h := New(g, Timeouts{})
	ns := g.FoundNativeSettlement(arawak, "Tainos", east, false)
	ns.Treasure = 500
	cs := changes.New()

	gold, err := h.DemandTribute(soldier(g, dutch, origin), ns, cs)
	if err != nil {
		t.Fatalf("tribute: %v", err)
	}
	if gold != 50 || g.MustPlayer(dutch).Gold != 1050 || ns.Treasure != 450 {
		t.Fatalf("tribute %d, gold %d, treasure %d", gold, g.MustPlayer(dutch).Gold, ns.Treasure)
	}
	if got := ns.Alarm[dutch].Value; got != social.TensionAddMinor {
		t.Errorf("alarm = %d, want %d", got, social.TensionAddMinor)
	}
	if _, err := h.DemandTribute(soldier(g, dutch, origin), ns, cs); !errors.Is(err, ErrAlreadyDone) {
		t.Fatalf("second tribute: got %v", err)
	}
}

func TestTributeRefusedByAlarmedSettlement(t *testing.T) {
	g := newGame()
	h := New(g, Timeouts{})
	ns := g.FoundNativeSettlement(arawak, "Tainos", east, true)
	ns.Treasure = 500
	ns.SetAlarm(french, social.TensionDispleased)
	u := soldier(g, french, origin)

	gold, err := h.DemandTribute(u, ns, changes.New())
	if err != nil || gold != 0 {
		t.Fatalf("got %d, %v", gold, err)
	}
	if got := ns.Alarm[french].Value; got != social.TensionDispleased+social.TensionAddNormal {
		t.Errorf("alarm = %d", got)
	}
	if u.MovesLeft != 0 {
		t.Errorf("unit kept %d moves", u.MovesLeft)
	}

	unarmed := g.NewUnit(units.TypeFreeColonist, dutch, origin)
	if _, err := h.DemandTribute(unarmed, ns, changes.New()); !errors.Is(err, ErrRefused) {
		t.Fatalf("unarmed demand: got %v", err)
	}
}

func TestWithdraw(t *testing.T) {
	g := newGame()
	h := New(g, Timeouts{})
	envoy := soldier(g, dutch, origin)
	cs := changes.New()
	s, err := h.ProposeTreaty(envoy, french, world.NoSettlement, session.Agreement{Terms: []session.Term{
		{Kind: session.TermStance, Stance: social.StancePeace},
	}}, cs)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := h.Withdraw(s, royalty, cs); !errors.Is(err, ErrNotParty) {
		t.Fatalf("outsider withdraw: got %v", err)
	}
	if err := h.Withdraw(s, dutch, cs); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if s.Result() != session.ResultRejected {
		t.Fatalf("result = %v", s.Result())
	}
	if got := g.MustPlayer(dutch).Stance(french); got == social.StancePeace {
		t.Fatal("withdrawn treaty took effect")
	}
}
