package engine

import (
	"log/slog"
	"math/rand"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/units"
)

// unit restores a unit's moves and carries out its standing orders.
// Queued attacks run here, on the attacker's own turn.
func (c *cascade) unit(u *units.Unit, rng *rand.Rand, log *slog.Logger, cs *changes.Set) {
	c.enter(unitRef(u))

	switch {
	case u.Location == units.Sailing:
		u.SailTurns = max(u.SailTurns-1, 0)
		u.MovesLeft = 0
		return
	case u.Damaged():
		u.MovesLeft = 0
		return
	}
	u.MovesLeft = u.InitialMoves()
	if u.State == units.StateFortify {
		u.State = units.StateFortified
		c.Game.UpdateUnit(u, cs)
	}

	if u.Orders == nil {
		return
	}
	target := u.Orders.Target
	u.Orders = nil
	if u.Location != units.OnTile {
		return
	}
	rep, err := c.Combat.Attack(u, target, rng, cs)
	if err != nil {
		c.tell(cs, u.Owner, changes.MessageFailure, "model.unit.attackFailed", "%v", err)
		log.Debug("queued attack refused", "unit", u.ID, "err", err)
		return
	}
	c.stats.Attacks++
	log.Debug("queued attack", "unit", u.ID, "target", target, "result", rep.Primary)
}
