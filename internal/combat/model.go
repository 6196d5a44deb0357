package combat

import (
	"math/rand"

	"github.com/talgya/colonyserver/internal/game"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

// Model decides how an encounter turns out. The outcome it returns must
// be applicable to the encounter as it stands.
type Model interface {
	Generate(g *game.Game, attacker, defender Combatant, rng *rand.Rand) Outcome
}

// SimpleModel weighs offence against defence and builds the sub-effects a
// result implies.
type SimpleModel struct{}

const (
	evadeChance   = 0.3 // Share of failed naval attacks the defender escapes
	promoteChance = 5   // One in this many victories earns a promotion
	convertChance = 3   // One in this many settlement victories wins a convert
	attackBonus   = 1.5
)

// WinProbability is the attacker's chance of winning outright.
func (SimpleModel) WinProbability(g *game.Game, attacker, defender Combatant) float64 {
	off := offencePower(attacker)
	if off <= 0 {
		return 0
	}
	def := defencePower(g, defender)
	return off / (off + def)
}

func offencePower(c Combatant) float64 {
	switch c := c.(type) {
	case UnitCombatant:
		off := float64(c.Unit.Offence())
		if c.Unit.Role.Military() || c.Unit.IsNaval() {
			off *= attackBonus
		}
		return off
	case SettlementCombatant:
		if col, ok := c.Settlement.(*social.Colony); ok {
			return float64(col.DefenceBonus()) / 25
		}
	}
	return 0
}

func defencePower(g *game.Game, c Combatant) float64 {
	uc, ok := c.(UnitCombatant)
	if !ok {
		return 1
	}
	u := uc.Unit
	def := float64(u.Defence())
	if col, ok := g.SettlementAt(u.Coord).(*social.Colony); ok && col.Owner == u.Owner {
		if canAutoequip(u, col) {
			def++
		}
		def *= 1 + float64(col.DefenceBonus())/100
	} else if t := g.Map.Get(u.Coord); t != nil && !u.IsNaval() {
		def *= 1 + float64(t.Terrain.DefenceBonus())/100
	}
	return max(def, 0.1)
}

// Generate rolls the dice and lists the effects of the result.
func (m SimpleModel) Generate(g *game.Game, attacker, defender Combatant, rng *rand.Rand) Outcome {
	dc, ok := defender.(UnitCombatant)
	if !ok {
		return Outcome{NoResult}
	}
	d := dc.Unit
	p := m.WinProbability(g, attacker, defender)
	r := rng.Float64()

	if _, ok := attacker.(SettlementCombatant); ok {
		if r >= p {
			return Outcome{NoResult, EvadeBombard}
		}
		if repairable(g, d, world.NoSettlement) {
			return Outcome{Win, DamageShipBombard}
		}
		return Outcome{Win, SinkShipBombard}
	}

	a := attacker.(UnitCombatant).Unit
	b := &builder{
		g:   g,
		rng: rng,
		a:   a,
		d:   d,
		ap:  g.MustPlayer(a.Owner),
		dp:  g.MustPlayer(d.Owner),
	}
	switch s := g.SettlementAt(d.Coord).(type) {
	case *social.Colony:
		if s.Owner == d.Owner {
			b.colony = s
		}
	case *social.NativeSettlement:
		if s.Owner == d.Owner {
			b.native = s
		}
	}

	switch {
	case r < p:
		b.out = Outcome{Win}
	case d.IsNaval() && r < p+(1-p)*evadeChance:
		return Outcome{NoResult, EvadeAttack}
	default:
		b.out = Outcome{Lose}
	}
	if b.colony != nil && canAutoequip(d, b.colony) {
		b.autoequip = true
		b.add(AutoequipUnit)
	}
	if b.out.Primary() == Win {
		b.win()
	} else {
		b.lose()
	}
	return b.out
}

type builder struct {
	g      *game.Game
	rng    *rand.Rand
	a, d   *units.Unit
	ap, dp *social.Player
	colony *social.Colony
	native *social.NativeSettlement

	autoequip bool
	out       Outcome
}

func (b *builder) add(e ...Effect) {
	b.out = append(b.out, e...)
}

func repairable(g *game.Game, ship *units.Unit, exclude world.SettlementID) bool {
	_, _, ok := g.RepairLocation(ship, exclude)
	return ok
}

func (b *builder) shipLoss(winner, loser *units.Unit) {
	if winner.IsNaval() && !loser.Cargo.IsEmpty() {
		b.add(LootShip)
	}
	if repairable(b.g, loser, world.NoSettlement) {
		b.add(DamageShipAttack)
	} else {
		b.add(SinkShipAttack)
	}
}

// unitLoss covers a land unit beaten outside the special settlement cases.
func (b *builder) unitLoss(winner, loser *units.Unit, wp *social.Player) {
	switch {
	case len(loser.Role.Lost()) > 0:
		if wp.IsNative() && !winner.IsNaval() && winner.Has(units.AbilityCanBeEquipped) {
			b.add(CaptureEquip)
		}
		b.add(LoseEquip)
	case winner == b.a && wp.IsEuropean() && !winner.IsNaval() &&
		loser.CanBeCaptured() && loser.Location == units.OnTile:
		b.add(CaptureUnit)
	case loser.UnitType().DemoteTo != units.TypeNone:
		b.add(DemoteUnit)
	default:
		b.add(SlaughterUnit)
	}
}

func (b *builder) promote(winner *units.Unit) {
	if winner.Role.Military() && winner.UnitType().PromoteTo != units.TypeNone && b.rng.Intn(promoteChance) == 0 {
		b.add(PromoteUnit)
	}
}

func (b *builder) colonyShips() {
	ships := b.g.NavalUnitsIn(b.colony)
	if len(ships) == 0 {
		return
	}
	for _, s := range ships {
		if repairable(b.g, s, b.colony.ID) {
			b.add(DamageColonyShips)
			return
		}
	}
	b.add(SinkColonyShips)
}

func (b *builder) hasMissions() bool {
	for _, s := range b.g.SettlementsOf(b.ap.ID) {
		ns, ok := s.(*social.NativeSettlement)
		if !ok || ns.Missionary == 0 {
			continue
		}
		if m := b.g.Unit(ns.Missionary); m != nil && m.Owner == b.dp.ID {
			return true
		}
	}
	return false
}

func (b *builder) win() {
	a, d := b.a, b.d
	switch {
	case d.IsNaval():
		b.shipLoss(a, d)

	case b.colony != nil && b.dp.IsEuropean() && !a.IsNaval():
		switch {
		case b.autoequip && b.ap.IsNative():
			b.add(CaptureAutoequip)
		case b.autoequip:
			b.add(LoseAutoequip)
		case d.IsMilitary():
			b.unitLoss(a, d, b.ap)
		case b.ap.IsEuropean():
			b.colonyShips()
			b.add(CaptureColony)
		case b.ap.IsNative() && len(b.colony.Units) > 1:
			b.add(PillageColony)
		case b.ap.IsNative():
			if b.hasMissions() {
				b.add(BurnMissions)
			}
			b.colonyShips()
			b.add(DestroyColony)
		default:
			b.unitLoss(a, d, b.ap)
		}

	case b.native != nil && b.ap.IsEuropean() && b.dp.IsNative() && !a.IsNaval():
		defenders := len(b.native.Units)
		for _, u := range b.g.UnitsAt(b.native.Coord) {
			if u.Owner == d.Owner {
				defenders++
			}
		}
		switch {
		case len(d.Role.Lost()) > 0:
			b.unitLoss(a, d, b.ap)
		case defenders > 1:
			if b.rng.Intn(convertChance) == 0 {
				b.add(CaptureConvert)
			}
			b.add(SlaughterUnit)
		default:
			b.add(SlaughterUnit, DestroySettlement)
		}

	default:
		b.unitLoss(a, d, b.ap)
	}
	b.promote(a)
}

func (b *builder) lose() {
	a, d := b.a, b.d
	if a.IsNaval() {
		b.shipLoss(d, a)
	} else {
		b.unitLoss(d, a, b.dp)
	}
	b.promote(d)
}
