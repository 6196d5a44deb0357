package combat

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/economy"
	"github.com/talgya/colonyserver/internal/game"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

func label(u *units.Unit) string {
	if u.Role == units.RoleDefault {
		return u.UnitType().Name
	}
	return fmt.Sprintf("%s (%s)", u.UnitType().Name, u.Role)
}

func gold(n int) string {
	return humanize.Comma(int64(n))
}

func (enc *encounter) tell(p world.PlayerID, key, format string, args ...any) {
	enc.cs.Message(changes.Only(p), changes.Messagef(changes.MessageCombat, "model.combat."+key, format, args...))
}

func (enc *encounter) announce(key, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	enc.cs.Message(changes.All(), changes.Message{Type: changes.MessageCombat, Key: "model.combat." + key, Text: text})
	enc.g.EmitEvent(game.Event{Player: enc.attackerPlayer.ID, Description: text, Category: "combat"})
}

func (enc *encounter) updateGold(p *social.Player) {
	enc.cs.Partial(changes.Only(p.ID), changes.PlayerRef(p.ID), world.HexCoord{}, map[string]any{"gold": p.Gold})
}

func (enc *encounter) updateColony(c *social.Colony) {
	enc.cs.Update(changes.Only(c.Owner), changes.SettlementRef(c.ID), c.Coord, c)
}

// homeOf is the native settlement a unit belongs to, if any.
func (enc *encounter) homeOf(u *units.Unit) *social.NativeSettlement {
	if ns, ok := enc.g.SettlementAt(u.Coord).(*social.NativeSettlement); ok && ns.Owner == u.Owner {
		return ns
	}
	return enc.g.NativeSettlement(u.HomeSettlement)
}

// slaughterTension is how much a unit's death angers its side. Only the
// settlement on the tile where it fell counts, not the unit's home.
func (enc *encounter) slaughterTension(u *units.Unit) int {
	switch s := enc.g.SettlementAt(u.Coord).(type) {
	case *social.NativeSettlement:
		if s.Capital {
			return social.TensionAddCapitalAttacked
		}
		return social.TensionAddSettlementAttacked
	case *social.Colony:
		return social.TensionAddNormal
	}
	return social.TensionAddUnitDestroyed
}

func (enc *encounter) autoequipUnit() {
	enc.autoequipped = true
	enc.tell(enc.defenderPlayer.ID, "autoequipUnit", "%s in %s takes up arms", label(enc.defender), enc.colony.Name)
}

func (enc *encounter) burnMissions() {
	a, d := enc.attackerPlayer, enc.defenderPlayer
	burned := 0
	for _, s := range enc.g.SettlementsOf(a.ID) {
		ns, ok := s.(*social.NativeSettlement)
		if !ok || ns.Missionary == 0 {
			continue
		}
		if m := enc.g.Unit(ns.Missionary); m != nil && m.Owner == d.ID {
			enc.g.DisposeUnit(m, enc.cs)
			enc.cs.Update(changes.Perhaps(), changes.SettlementRef(ns.ID), ns.Coord, ns)
			burned++
		}
	}
	if burned > 0 {
		enc.tell(d.ID, "burnMissions", "The %s have burned %d of your missions", a.Name, burned)
	}
}

// takeGoods gives seized goods to a unit, upgrading its role when they are
// arms it can use, or else to its home settlement's stores.
func (enc *encounter) takeGoods(u *units.Unit, eq units.Equipment) {
	if role, ok := u.Role.Capture(eq.Goods); ok {
		u.Role = role
		enc.tell(u.Owner, "captureEquip", "%s seizes %s and becomes %s", u.UnitType().Name, eq.Goods, role)
		return
	}
	if ns := enc.homeOf(u); ns != nil {
		ns.Goods.Add(eq.Goods, eq.Amount)
	}
}

func (enc *encounter) captureAutoequip() {
	c := enc.colony
	eq := units.AutoequipGoods
	c.Goods.Remove(eq.Goods, eq.Amount)
	enc.autoequipLost = true
	enc.takeGoods(enc.attacker, eq)
	enc.tell(enc.defenderPlayer.ID, "captureAutoequip", "The %s seized %d %s from %s",
		enc.attackerPlayer.Name, eq.Amount, eq.Goods, c.Name)
	enc.updateColony(c)
}

func (enc *encounter) captureColony() {
	a, d := enc.attackerPlayer, enc.defenderPlayer
	c := enc.colony

	plunder := enc.g.Plunder(c)
	a.ModifyGold(plunder)
	d.ModifyGold(-plunder)
	enc.plunder += plunder

	for _, u := range enc.g.UnitsAt(c.Coord) {
		if u.Owner != d.ID {
			continue
		}
		if u.IsNaval() {
			enc.g.SendForRepair(u, c.ID, enc.cs)
		} else {
			enc.g.ChangeUnitOwner(u, a.ID, enc.cs)
		}
	}
	enc.g.ChangeColonyOwner(c, a.ID, enc.cs)
	enc.relocate = true

	enc.updateGold(a)
	enc.updateGold(d)
	enc.tell(a.ID, "captureColony.win", "You have captured %s and plundered %s gold", c.Name, gold(plunder))
	enc.tell(d.ID, "captureColony.lose", "%s has been captured by the %s, who took %s gold", c.Name, a.Name, gold(plunder))
	enc.g.EmitEvent(game.Event{
		Player:      a.ID,
		Description: fmt.Sprintf("%s captured %s from %s", a.Name, c.Name, d.Name),
		Category:    "combat",
	})
}

func (enc *encounter) captureConvert() {
	u := enc.g.NewUnit(units.TypeIndianConvert, enc.attackerPlayer.ID, enc.attacker.Coord)
	enc.g.UpdateUnit(u, enc.cs)
	enc.tell(enc.attackerPlayer.ID, "captureConvert", "A convert from %s has joined you", enc.native.Name)
}

func (enc *encounter) captureEquip() {
	for _, eq := range enc.loser.Role.Lost() {
		enc.takeGoods(enc.winner, eq)
	}
}

func (enc *encounter) captureUnit() {
	u := enc.loser
	old := u.Owner
	enc.g.ChangeUnitOwner(u, enc.winnerPlayer.ID, enc.cs)
	if t := u.UnitType().CaptureAs; t != units.TypeNone {
		u.ChangeType(t)
	}
	enc.g.MoveUnit(u, enc.winner.Coord, enc.cs)
	u.MovesLeft = 0
	enc.tell(enc.winnerPlayer.ID, "captureUnit.win", "You have captured a %s", label(u))
	enc.tell(old, "captureUnit.lose", "Your %s has been captured by the %s", label(u), enc.winnerPlayer.Name)
}

func (enc *encounter) damageColonyShips() {
	c := enc.colony
	damaged, sunk := 0, 0
	for _, ship := range enc.g.NavalUnitsIn(c) {
		if enc.g.SendForRepair(ship, c.ID, enc.cs) {
			damaged++
		} else {
			sunk++
		}
	}
	if damaged+sunk > 0 {
		enc.tell(c.Owner, "damageColonyShips", "%d ships in %s were damaged and %d lost", damaged, c.Name, sunk)
	}
}

func (enc *encounter) sinkColonyShips() {
	c := enc.colony
	sunk := 0
	for _, ship := range enc.g.NavalUnitsIn(c) {
		enc.g.DisposeUnit(ship, enc.cs)
		sunk++
	}
	if sunk > 0 {
		enc.tell(c.Owner, "sinkColonyShips", "%d ships in %s were sunk", sunk, c.Name)
	}
}

func (enc *encounter) opponentOf(ship *units.Unit) world.PlayerID {
	if ship.Owner == enc.attackerPlayer.ID {
		return enc.defenderPlayer.ID
	}
	return enc.attackerPlayer.ID
}

func (enc *encounter) damageShip(ship *units.Unit) {
	owner, name := ship.Owner, label(ship)
	if enc.g.SendForRepair(ship, world.NoSettlement, enc.cs) {
		enc.tell(owner, "damageShip", "Your %s has been damaged and sent for repair", name)
	} else {
		enc.tell(owner, "damageShip.sunk", "Your %s was damaged with nowhere to repair and has sunk", name)
	}
	enc.tell(enc.opponentOf(ship), "damageShip.enemy", "The enemy %s has been damaged", name)
}

func (enc *encounter) sinkShip(ship *units.Unit) {
	owner, name := ship.Owner, label(ship)
	other := enc.opponentOf(ship)
	enc.g.DisposeUnit(ship, enc.cs)
	enc.tell(owner, "sinkShip", "Your %s has been sunk", name)
	enc.tell(other, "sinkShip.enemy", "The enemy %s has been sunk", name)
}

func (enc *encounter) demoteUnit() {
	u := enc.loser
	before := label(u)
	u.ChangeType(u.UnitType().DemoteTo)
	enc.tell(u.Owner, "demoteUnit", "Your %s has been reduced to %s", before, label(u))
}

func (enc *encounter) destroyColony() {
	a, d := enc.attackerPlayer, enc.defenderPlayer
	c := enc.colony

	plunder := enc.g.Plunder(c)
	a.ModifyGold(plunder)
	d.ModifyGold(-plunder)
	enc.plunder += plunder

	for _, u := range enc.g.UnitsAt(c.Coord) {
		if u.Owner != d.ID {
			continue
		}
		if u.IsNaval() {
			enc.g.SendForRepair(u, c.ID, enc.cs)
		} else {
			enc.g.DisposeUnit(u, enc.cs)
		}
	}
	enc.g.DisposeSettlement(c, enc.cs)
	enc.addTension(true, -social.TensionAddNormal)

	enc.updateGold(a)
	enc.updateGold(d)
	enc.announce("destroyColony", "The %s have burned %s to the ground", a.Name, c.Name)
}

func (enc *encounter) destroySettlement() {
	a, d := enc.attackerPlayer, enc.defenderPlayer
	ns := enc.native
	at := ns.Coord

	lo, hi := ns.PlunderRange()
	treasure := lo
	if hi > lo {
		treasure += enc.rng.Intn(hi - lo + 1)
	}
	if ns.Capital {
		enc.burnedCapital = true
		enc.addTension(false, social.TensionAddCapitalAttacked)
	} else {
		enc.addTension(false, social.TensionAddSettlementAttacked)
	}

	for _, u := range enc.g.UnitsAt(at) {
		if u.Owner == d.ID {
			enc.g.DisposeUnit(u, enc.cs)
		}
	}
	enc.g.DisposeSettlement(ns, enc.cs)
	if treasure > 0 {
		tt := enc.g.NewUnit(units.TypeTreasureTrain, a.ID, at)
		tt.Treasure = treasure
		enc.g.UpdateUnit(tt, enc.cs)
		enc.tell(a.ID, "destroySettlement.treasure", "Treasure worth %s gold recovered from %s", gold(treasure), ns.Name)
	}
	enc.relocate = true
	enc.announce("destroySettlement", "The %s have destroyed the %s settlement of %s", a.Name, d.Name, ns.Name)
}

func (enc *encounter) evade() {
	name := label(enc.defender)
	enc.tell(enc.defenderPlayer.ID, "evade", "Your %s evaded the attack", name)
	enc.tell(enc.attackerPlayer.ID, "evade.enemy", "The enemy %s evaded", name)
}

func (enc *encounter) lootShip() {
	w, l := enc.winner, enc.loser
	space := w.UnitType().Space
	taken := 0
	for _, g := range l.Cargo.Holds() {
		own := (w.Cargo[g] + economy.CargoSlot - 1) / economy.CargoSlot
		room := (space-(w.Cargo.Slots()-own))*economy.CargoSlot - w.Cargo[g]
		if room <= 0 {
			continue
		}
		n := l.Cargo.Remove(g, min(room, l.Cargo[g]))
		w.Cargo.Add(g, n)
		taken += n
	}
	if taken > 0 {
		enc.tell(w.Owner, "lootShip", "Your %s took %d goods from the enemy %s", label(w), taken, label(l))
		enc.tell(l.Owner, "lootShip.lose", "Your %s was looted", label(l))
	}
}

func (enc *encounter) loseAutoequip() {
	c := enc.colony
	eq := units.AutoequipGoods
	c.Goods.Remove(eq.Goods, eq.Amount)
	enc.autoequipLost = true
	enc.tell(c.Owner, "loseAutoequip", "%s lost %d %s defending itself", c.Name, eq.Amount, eq.Goods)
	enc.updateColony(c)
}

func (enc *encounter) loseEquip() {
	u := enc.loser
	before := label(u)
	u.Role = u.Role.Downgrade()
	enc.tell(u.Owner, "loseEquip", "Your %s has been reduced to %s", before, label(u))
}

// pillageColony takes one thing from the colony: a building, a stock of
// goods, a ship, or some gold, whichever the dice pick among those present.
func (enc *encounter) pillageColony() {
	a, d := enc.attackerPlayer, enc.defenderPlayer
	c := enc.colony
	enc.addTension(true, -social.TensionAddNormal)

	var options []func() string
	if bs := c.Damageable(); len(bs) > 0 {
		options = append(options, func() string {
			b := bs[enc.rng.Intn(len(bs))]
			for _, id := range c.RemoveBuilding(b) {
				if u := enc.g.Unit(id); u != nil {
					u.Building = 0
				}
			}
			return fmt.Sprintf("the %s was destroyed", b.Type)
		})
	}
	var stock []economy.GoodsType
	for _, g := range c.Goods.Holds() {
		if g.Storable() {
			stock = append(stock, g)
		}
	}
	if len(stock) > 0 {
		options = append(options, func() string {
			g := stock[enc.rng.Intn(len(stock))]
			n := c.Goods.Remove(g, min(economy.CargoSlot, (c.Goods[g]+1)/2))
			if ns := enc.homeOf(enc.attacker); ns != nil {
				ns.Goods.Add(g, n)
			}
			return fmt.Sprintf("%d %s were stolen", n, g)
		})
	}
	if ships := enc.g.NavalUnitsIn(c); len(ships) > 0 {
		options = append(options, func() string {
			ship := ships[enc.rng.Intn(len(ships))]
			enc.g.SendForRepair(ship, c.ID, enc.cs)
			return fmt.Sprintf("a %s was damaged", label(ship))
		})
	}
	if d.Gold > 0 {
		options = append(options, func() string {
			n := max(1, enc.g.Plunder(c)/2)
			n = min(n, d.Gold)
			d.ModifyGold(-n)
			a.ModifyGold(n)
			enc.updateGold(a)
			enc.updateGold(d)
			return fmt.Sprintf("%s gold was taken", gold(n))
		})
	}

	if len(options) == 0 {
		enc.tell(d.ID, "pillageColony.nothing", "The %s raided %s but found nothing to take", a.Name, c.Name)
		return
	}
	what := options[enc.rng.Intn(len(options))]()
	enc.updateColony(c)
	enc.tell(d.ID, "pillageColony", "The %s pillaged %s: %s", a.Name, c.Name, what)
}

func (enc *encounter) promoteUnit() {
	u := enc.winner
	before := label(u)
	u.ChangeType(u.UnitType().PromoteTo)
	enc.tell(u.Owner, "promoteUnit", "Your %s has been promoted to %s", before, label(u))
}

func (enc *encounter) slaughterUnit() {
	u := enc.loser
	loserAttacked := u == enc.attacker
	delta := enc.slaughterTension(u)
	enc.addTension(!loserAttacked, -social.TensionAddNormal)
	enc.addTension(loserAttacked, delta)

	name, owner := label(u), u.Owner
	enc.g.DisposeUnit(u, enc.cs)
	enc.tell(owner, "slaughterUnit", "Your %s has been slain", name)
	enc.tell(enc.winnerPlayer.ID, "slaughterUnit.enemy", "The enemy %s has been slain", name)
}
