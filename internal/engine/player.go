// Player turn: tension decay, native moods, cease-fire expiry, elimination.
package engine

import (
	"fmt"
	"log/slog"
	"maps"
	"math/rand"
	"slices"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/game"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/world"
)

func (c *cascade) player(p *social.Player, rng *rand.Rand, log *slog.Logger, cs *changes.Set) {
	c.enter(playerRef(p))

	for other, t := range p.Tensions {
		p.ModifyTension(other, -t.Decay())
	}
	if p.IsNative() {
		c.nativeMood(p, log, cs)
	}
	c.ceaseFires(p, log, cs)
	if c.eliminated(p, log, cs) {
		return
	}

	for _, id := range slices.Clone(p.Settlements) {
		switch s := c.Game.Settlement(id).(type) {
		case *social.Colony:
			if s.Owner == p.ID && !c.ledger.done(colonyRef(s)) {
				c.colony(s, rng, log.With("colony", s.Name), cs)
			}
		case *social.NativeSettlement:
			if s.Owner == p.ID && !c.ledger.done(nativeRef(s)) {
				c.nativeSettlement(s, rng, log.With("settlement", s.Name), cs)
			}
		}
	}
	for _, u := range c.Game.UnitsOf(p.ID) {
		if u.Disposed || u.Owner != p.ID || c.ledger.done(unitRef(u)) {
			continue
		}
		c.unit(u, rng, log, cs)
	}
	if p.TradingPost != nil {
		c.tradingPost(p, rng, log, cs)
	}
}

// nativeMood turns a tribe's tension into war or peace with each colonial
// player it knows.
func (c *cascade) nativeMood(p *social.Player, log *slog.Logger, cs *changes.Set) {
	for _, other := range c.Game.LivePlayers() {
		if !other.IsEuropean() {
			continue
		}
		stance := p.Stance(other.ID)
		level := p.Tension(other.ID).Level()
		switch {
		case stance == social.StanceUncontacted:
		case stance != social.StanceWar && level == social.LevelHateful:
			c.changeStance(p, other, social.StanceWar, cs)
			c.tell(cs, other.ID, changes.MessageDiplomacy, "model.diplomacy.nativeWar",
				"The %s have had enough of the %s and declare war", p.Name, other.Name)
			c.Game.EmitEvent(game.Event{Player: p.ID, Category: "native",
				Description: fmt.Sprintf("%s declared war on %s", p.Name, other.Name)})
			log.Info("natives declare war", "on", other.Name, "tension", p.Tension(other.ID).Value)
		case stance == social.StanceWar && level <= social.LevelContent:
			c.changeStance(p, other, social.StancePeace, cs)
			c.tell(cs, other.ID, changes.MessageDiplomacy, "model.diplomacy.nativePeace",
				"The %s offer peace to the %s", p.Name, other.Name)
			log.Info("natives make peace", "with", other.Name)
		}
	}
}

func (c *cascade) ceaseFires(p *social.Player, log *slog.Logger, cs *changes.Set) {
	for _, other := range slices.Sorted(maps.Keys(p.CeaseFire)) {
		turns := p.CeaseFire[other]
		if turns > 1 {
			p.CeaseFire[other] = turns - 1
			continue
		}
		delete(p.CeaseFire, other)
		o := c.Game.Player(other)
		if o == nil || p.Stance(other) != social.StanceCeaseFire {
			continue
		}
		c.changeStance(p, o, social.StanceWar, cs)
		c.tell(cs, p.ID, changes.MessageDiplomacy, "model.diplomacy.ceaseFireEnded",
			"The cease-fire with the %s has ended", o.Name)
		c.tell(cs, o.ID, changes.MessageDiplomacy, "model.diplomacy.ceaseFireEnded",
			"The cease-fire with the %s has ended", p.Name)
		log.Info("cease-fire expired", "with", o.Name)
	}
}

func (c *cascade) changeStance(a, b *social.Player, s social.Stance, cs *changes.Set) {
	changed := a.SetStance(b.ID, s)
	if b.SetStance(a.ID, s) {
		changed = true
	}
	if changed {
		cs.StanceChange(changes.All(), a.ID, b.ID, s.String())
	}
}

// eliminated checks whether p has anything left to play with. The crown's
// forces arrive on demand and are never eliminated here.
func (c *cascade) eliminated(p *social.Player, log *slog.Logger, cs *changes.Set) bool {
	switch p.Kind {
	case social.KindRoyal:
		return false
	case social.KindNative:
		if len(p.Settlements) > 0 {
			return false
		}
	default:
		if len(p.Settlements) > 0 || len(c.Game.UnitsOf(p.ID)) > 0 {
			return false
		}
	}
	for _, u := range c.Game.UnitsOf(p.ID) {
		c.Game.DisposeUnit(u, cs)
	}
	c.Game.Eliminate(p)
	cs.Partial(changes.All(), changes.PlayerRef(p.ID), world.HexCoord{}, map[string]any{"dead": true})
	cs.Message(changes.All(), changes.Messagef(changes.MessageInfo, "model.player.dead",
		"The %s have been eliminated", p.Name))
	c.Game.EmitEvent(game.Event{Player: p.ID, Category: "player",
		Description: fmt.Sprintf("%s eliminated", p.Name)})
	log.Info("player eliminated")
	return true
}
