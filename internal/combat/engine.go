// Package combat resolves attacks and bombardments. An outcome is chosen by
// a Model; Resolve then applies it to the game, writing every visible
// consequence to a change set.
package combat

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/game"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

// Engine applies combat outcomes to one game.
type Engine struct {
	game  *game.Game
	model Model
}

// New creates a combat engine. A nil model selects SimpleModel.
func New(g *game.Game, m Model) *Engine {
	if m == nil {
		m = SimpleModel{}
	}
	return &Engine{game: g, model: m}
}

// Report summarizes what a resolution did.
type Report struct {
	Bombard bool
	Primary Effect
	Applied Outcome

	// Tension deltas accumulated for each side, before clamping.
	AttackerTension int
	DefenderTension int

	Plunder             int  // Gold moved from defender to attacker
	BurnedNativeCapital bool // A tribe's capital fell and the tribe surrendered
	StanceChanged       bool
}

// encounter is the working state of one resolution.
type encounter struct {
	g   *game.Game
	rng *rand.Rand
	cs  *changes.Set

	bombard bool
	primary Effect

	attacker, defender *units.Unit // attacker is nil when bombarding
	battery            social.Settlement
	attackerPlayer     *social.Player
	defenderPlayer     *social.Player
	tile               *world.Tile // Defender's tile

	colony *social.Colony           // Colony on the defender's tile
	native *social.NativeSettlement // Native settlement on the defender's tile

	winner, loser             *units.Unit
	winnerPlayer, loserPlayer *social.Player

	attackerTension, defenderTension int
	attackerTouched, defenderTouched bool

	autoequipped  bool
	autoequipLost bool
	relocate      bool
	burnedCapital bool
	plunder       int
	applied       [numEffects]bool
}

// Resolve applies outcome to the encounter between attacker and defender.
// A nil outcome is generated by the engine's model. The outcome must begin
// with a primary result, and every sub-effect must apply to the encounter;
// violations are programming errors and panic.
func (e *Engine) Resolve(attacker, defender Combatant, outcome Outcome, rng *rand.Rand, cs *changes.Set) Report {
	enc := e.classify(attacker, defender)
	enc.rng, enc.cs = rng, cs
	if outcome == nil {
		outcome = e.model.Generate(e.game, attacker, defender, rng)
	}

	if len(outcome) == 0 || !outcome[0].Primary() {
		panic(fmt.Errorf("%w: %v", ErrMalformedOutcome, outcome))
	}
	enc.primary = outcome[0]
	enc.assignSides()
	enc.animate()

	for _, eff := range outcome[1:] {
		if eff.Primary() || eff >= numEffects || enc.applied[eff] {
			panic(fmt.Errorf("%w: %v", ErrMalformedOutcome, outcome))
		}
		if !enc.applies(eff) {
			panic(fmt.Errorf("%w: %s in %s", ErrInapplicableEffect, eff, outcome))
		}
		enc.applied[eff] = true
		enc.apply(eff)
	}

	enc.primaryTension()
	changed := enc.settleRelations()
	enc.afterMath()

	slog.Debug("combat resolved",
		"outcome", outcome.String(),
		"attacker", enc.attackerPlayer.Name,
		"defender", enc.defenderPlayer.Name,
		"at", enc.tile.Coord)

	return Report{
		Bombard:             enc.bombard,
		Primary:             enc.primary,
		Applied:             append(Outcome(nil), outcome...),
		AttackerTension:     enc.attackerTension,
		DefenderTension:     enc.defenderTension,
		Plunder:             enc.plunder,
		BurnedNativeCapital: enc.burnedCapital,
		StanceChanged:       changed,
	}
}

// classify works out whether the pairing is an attack or a bombardment.
func (e *Engine) classify(attacker, defender Combatant) *encounter {
	enc := &encounter{g: e.game}
	def, ok := defender.(UnitCombatant)
	if !ok || def.Unit == nil || def.Unit.Disposed {
		panic(fmt.Errorf("%w: defender %T", ErrInvalidEncounter, defender))
	}
	enc.defender = def.Unit

	switch a := attacker.(type) {
	case UnitCombatant:
		if a.Unit == nil || a.Unit.Disposed {
			panic(fmt.Errorf("%w: attacker unit is gone", ErrInvalidEncounter))
		}
		enc.attacker = a.Unit
	case SettlementCombatant:
		c, isColony := a.Settlement.(*social.Colony)
		if !isColony || !enc.defender.IsNaval() {
			panic(fmt.Errorf("%w: only colonies bombard, and only ships", ErrInvalidEncounter))
		}
		enc.bombard = true
		enc.battery = c
	default:
		panic(fmt.Errorf("%w: attacker %T", ErrInvalidEncounter, attacker))
	}

	if attacker.OwnerID() == defender.OwnerID() {
		panic(fmt.Errorf("%w: player %d attacking itself", ErrInvalidEncounter, attacker.OwnerID()))
	}
	enc.attackerPlayer = e.game.MustPlayer(attacker.OwnerID())
	enc.defenderPlayer = e.game.MustPlayer(defender.OwnerID())
	enc.tile = e.game.Map.Get(enc.defender.Coord)
	if enc.tile == nil {
		panic(fmt.Errorf("%w: defender off the map at %v", ErrInvalidEncounter, enc.defender.Coord))
	}
	switch s := e.game.SettlementAt(enc.tile.Coord).(type) {
	case *social.Colony:
		enc.colony = s
	case *social.NativeSettlement:
		enc.native = s
	}
	return enc
}

// assignSides names the winner and loser of a unit attack. Nobody loses a
// no-result or a bombardment in the unit sense.
func (enc *encounter) assignSides() {
	if enc.bombard {
		return
	}
	switch enc.primary {
	case Win:
		enc.winner, enc.loser = enc.attacker, enc.defender
		enc.winnerPlayer, enc.loserPlayer = enc.attackerPlayer, enc.defenderPlayer
	case Lose:
		enc.winner, enc.loser = enc.defender, enc.attacker
		enc.winnerPlayer, enc.loserPlayer = enc.defenderPlayer, enc.attackerPlayer
	}
}

// animate queues the attack animation for onlookers and the losing side.
func (enc *encounter) animate() {
	var attackerRef changes.Ref
	var from world.HexCoord
	if enc.bombard {
		attackerRef = changes.SettlementRef(enc.battery.SettlementID())
		from = enc.battery.Center()
	} else {
		attackerRef = changes.UnitRef(uint64(enc.attacker.ID))
		from = enc.attacker.Coord
	}
	loser := enc.defenderPlayer.ID
	if enc.primary == Lose {
		loser = enc.attackerPlayer.ID
	}
	enc.cs.Attack(changes.Perhaps().Always(loser), changes.Attack{
		Attacker: attackerRef,
		Defender: changes.UnitRef(uint64(enc.defender.ID)),
		From:     from,
		To:       enc.tile.Coord,
		Success:  enc.primary == Win,
	})
}

func (enc *encounter) isAttack() bool { return !enc.bombard }

func (enc *encounter) decided() bool { return enc.isAttack() && enc.primary != NoResult }

func (enc *encounter) won() bool { return enc.isAttack() && enc.primary == Win }

func (enc *encounter) loserAlive() bool {
	return enc.loser != nil && !enc.loser.Disposed
}

// colonyIntact reports whether the defender's colony is still standing and
// still the defender's.
func (enc *encounter) colonyIntact() bool {
	return enc.colony != nil && !enc.colony.Disposed && enc.colony.Owner == enc.defenderPlayer.ID
}

func (enc *encounter) nativeIntact() bool {
	return enc.native != nil && !enc.native.Disposed
}

func (enc *encounter) europeanVsNative() bool {
	return enc.attackerPlayer.IsEuropean() && enc.defenderPlayer.IsNative()
}

func (enc *encounter) nativeVsEuropean() bool {
	return enc.attackerPlayer.IsNative() && enc.defenderPlayer.IsEuropean()
}

// applies is the precondition table of the sub-effects.
func (enc *encounter) applies(eff Effect) bool {
	switch eff {
	case AutoequipUnit:
		return enc.isAttack() && enc.colonyIntact() && canAutoequip(enc.defender, enc.colony)
	case BurnMissions:
		return enc.won() && enc.nativeVsEuropean()
	case CaptureAutoequip:
		return enc.won() && enc.autoequipped && !enc.autoequipLost && enc.attackerPlayer.IsNative()
	case CaptureColony:
		return enc.won() && enc.colonyIntact() && !enc.attacker.IsNaval() &&
			enc.attackerPlayer.IsEuropean() && enc.defenderPlayer.IsEuropean()
	case CaptureConvert:
		return enc.won() && enc.nativeIntact() && enc.europeanVsNative()
	case CaptureEquip:
		return enc.decided() && enc.loserAlive() && !enc.winner.Disposed && enc.winnerPlayer.IsNative() &&
			!enc.winner.IsNaval() && enc.winner.Has(units.AbilityCanBeEquipped) &&
			len(enc.loser.Role.Lost()) > 0
	case CaptureUnit:
		return enc.won() && enc.loserAlive() && enc.loser.CanBeCaptured() && !enc.loser.IsNaval() &&
			!enc.attacker.IsNaval() && enc.loser.Location == units.OnTile &&
			enc.attackerPlayer.IsEuropean()
	case DamageColonyShips, SinkColonyShips:
		return enc.won() && enc.colonyIntact()
	case DamageShipAttack, SinkShipAttack:
		return enc.decided() && enc.loserAlive() && enc.loser.IsNaval()
	case DamageShipBombard, SinkShipBombard:
		return enc.bombard && enc.primary == Win && !enc.defender.Disposed
	case DemoteUnit:
		return enc.decided() && enc.loserAlive() && enc.loser.UnitType().DemoteTo != units.TypeNone
	case DestroyColony, PillageColony:
		return enc.won() && enc.colonyIntact() && enc.nativeVsEuropean()
	case DestroySettlement:
		return enc.won() && enc.nativeIntact() && enc.europeanVsNative()
	case EvadeAttack:
		return enc.isAttack() && enc.primary == NoResult && enc.defender.IsNaval()
	case EvadeBombard:
		return enc.bombard && enc.primary == NoResult
	case LootShip:
		return enc.decided() && enc.loserAlive() && enc.loser.IsNaval() && enc.winner.IsNaval() && !enc.winner.Disposed
	case LoseAutoequip:
		return enc.won() && enc.autoequipped && !enc.autoequipLost
	case LoseEquip:
		return enc.decided() && enc.loserAlive() && len(enc.loser.Role.Lost()) > 0
	case PromoteUnit:
		return enc.decided() && !enc.winner.Disposed && enc.winner.Role.Military() &&
			enc.winner.UnitType().PromoteTo != units.TypeNone
	case SlaughterUnit:
		return enc.decided() && enc.loserAlive()
	}
	return false
}

// canAutoequip reports whether u can take up the colony's arms.
func canAutoequip(u *units.Unit, c *social.Colony) bool {
	return u.Settlement == c.ID && u.Location == units.InSettlement &&
		!u.Role.Military() && u.Has(units.AbilityCanBeEquipped) &&
		c.Goods.Has(units.AutoequipGoods.Goods, units.AutoequipGoods.Amount)
}

func (enc *encounter) apply(eff Effect) {
	switch eff {
	case AutoequipUnit:
		enc.autoequipUnit()
	case BurnMissions:
		enc.burnMissions()
	case CaptureAutoequip:
		enc.captureAutoequip()
	case CaptureColony:
		enc.captureColony()
	case CaptureConvert:
		enc.captureConvert()
	case CaptureEquip:
		enc.captureEquip()
	case CaptureUnit:
		enc.captureUnit()
	case DamageColonyShips:
		enc.damageColonyShips()
	case DamageShipAttack:
		enc.damageShip(enc.loser)
	case DamageShipBombard:
		enc.damageShip(enc.defender)
	case DemoteUnit:
		enc.demoteUnit()
	case DestroyColony:
		enc.destroyColony()
	case DestroySettlement:
		enc.destroySettlement()
	case EvadeAttack, EvadeBombard:
		enc.evade()
	case LootShip:
		enc.lootShip()
	case LoseAutoequip:
		enc.loseAutoequip()
	case LoseEquip:
		enc.loseEquip()
	case PillageColony:
		enc.pillageColony()
	case PromoteUnit:
		enc.promoteUnit()
	case SinkColonyShips:
		enc.sinkColonyShips()
	case SinkShipAttack:
		enc.sinkShip(enc.loser)
	case SinkShipBombard:
		enc.sinkShip(enc.defender)
	case SlaughterUnit:
		enc.slaughterUnit()
	}
}

// addTension accumulates a delta for the attacking or defending side.
func (enc *encounter) addTension(attackerSide bool, delta int) {
	if attackerSide {
		enc.attackerTension += delta
		enc.attackerTouched = true
	} else {
		enc.defenderTension += delta
		enc.defenderTouched = true
	}
}

// primaryTension adds the plain win/lose grudge for a side that no
// sub-effect has already given a reason to feel something.
func (enc *encounter) primaryTension() {
	if enc.bombard {
		return
	}
	switch enc.primary {
	case Win:
		if !enc.defenderTouched {
			enc.addTension(false, social.TensionAddNormal)
		}
	case Lose:
		if !enc.attackerTouched {
			enc.addTension(true, social.TensionAddNormal)
		}
	}
}

// settleRelations updates stance and tension after the effects have run.
func (enc *encounter) settleRelations() bool {
	a, d := enc.attackerPlayer, enc.defenderPlayer
	switch {
	case enc.attacker != nil && enc.attacker.Has(units.AbilityPiracy):
		if !d.AttackedByPrivateers {
			d.AttackedByPrivateers = true
			enc.cs.Partial(changes.Only(d.ID), changes.PlayerRef(d.ID), world.HexCoord{},
				map[string]any{"attacked_by_privateers": true})
		}
		return false

	case enc.burnedCapital:
		d.SetTension(a.ID, social.TensionSurrendered)
		for _, s := range enc.g.SettlementsOf(d.ID) {
			if ns, ok := s.(*social.NativeSettlement); ok {
				ns.SetAlarm(a.ID, social.TensionSurrendered)
			}
		}
		if enc.attackerTension != 0 {
			a.ModifyTension(d.ID, enc.attackerTension)
		}
		return enc.setStance(social.StancePeace)

	case a.IsEuropean() && d.IsEuropean():
		return enc.setStance(social.StanceWar)
	}

	if enc.attackerTension != 0 {
		enc.modifyTension(a, d.ID, enc.attacker, enc.attackerTension)
	}
	if enc.defenderTension != 0 {
		enc.modifyTension(d, a.ID, enc.defender, enc.defenderTension)
	}
	return false
}

// modifyTension applies a delta to p's tension towards other and, for a
// native unit, to the alarm of the settlement it belongs to.
func (enc *encounter) modifyTension(p *social.Player, other world.PlayerID, u *units.Unit, delta int) {
	p.ModifyTension(other, delta)
	if !p.IsNative() || u == nil {
		return
	}
	if ns := enc.homeOf(u); ns != nil {
		ns.ModifyAlarm(other, delta)
	}
}

// setStance moves both players to s and announces it if anything changed.
func (enc *encounter) setStance(s social.Stance) bool {
	a, d := enc.attackerPlayer, enc.defenderPlayer
	changed := a.SetStance(d.ID, s)
	if d.SetStance(a.ID, s) {
		changed = true
	}
	if !changed {
		return false
	}
	enc.cs.StanceChange(changes.All(), a.ID, d.ID, s.String())
	enc.cs.Message(changes.All(), changes.Messagef(changes.MessageDiplomacy, "model.stance."+s.String(),
		"%s and %s are now at %s", a.Name, d.Name, s))
	enc.g.EmitEvent(game.Event{
		Player:      a.ID,
		Description: fmt.Sprintf("%s and %s are now at %s", a.Name, d.Name, s),
		Category:    "diplomacy",
	})
	return true
}

// afterMath settles the attacker's position and moves and refreshes both
// units for their owners.
func (enc *encounter) afterMath() {
	if enc.bombard {
		if !enc.defender.Disposed {
			enc.g.UpdateUnit(enc.defender, enc.cs)
		}
		return
	}
	a := enc.attacker
	if !a.Disposed {
		if enc.relocate && a.Coord != enc.tile.Coord {
			enc.g.MoveUnit(a, enc.tile.Coord, enc.cs)
		}
		if a.Has(units.AbilityMultipleAttacks) {
			a.MovesLeft = max(0, a.MovesLeft-enc.tile.Terrain.MoveCost())
		} else {
			a.MovesLeft = 0
		}
		a.State = units.StateActive
		enc.g.UpdateUnit(a, enc.cs)
	}
	if d := enc.defender; !d.Disposed {
		enc.g.UpdateUnit(d, enc.cs)
	}
}
