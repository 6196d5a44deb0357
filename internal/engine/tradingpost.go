package engine

import (
	"log/slog"
	"math/rand"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

// tradingPost lets the overseas market recover, drifts the recruit price
// back down, and handles ships arriving or laid up there.
func (c *cascade) tradingPost(p *social.Player, _ *rand.Rand, log *slog.Logger, cs *changes.Set) {
	c.enter(EntityRef{Kind: EntityTradingPost, ID: uint64(p.ID)})

	tp := p.TradingPost
	tp.Market.Recover()
	if tp.RecruitPrice > tp.RecruitLowerCap {
		tp.RecruitPrice = max(tp.RecruitLowerCap, tp.RecruitPrice-social.RecruitPriceDecay)
	}

	for _, u := range c.Game.UnitsOf(p.ID) {
		switch {
		case u.Location == units.Sailing && u.SailTurns == 0:
			u.Location = units.AtTradingPost
			c.Game.UpdateUnit(u, cs)
			c.tell(cs, p.ID, changes.MessageInfo, "model.unit.arrivedAtPost",
				"Your %s has arrived at the trading post", u.UnitType().Name)
			log.Debug("ship arrived at trading post", "unit", u.ID)
		case u.Location == units.AtTradingPost && u.Damaged():
			if c.repair(u) {
				c.tell(cs, p.ID, changes.MessageInfo, "model.unit.repaired",
					"Your %s has been repaired at the trading post", u.UnitType().Name)
			}
			c.Game.UpdateUnit(u, cs)
		}
	}
	cs.Partial(changes.Only(p.ID), changes.PlayerRef(p.ID), world.HexCoord{}, map[string]any{
		"recruit_price": tp.RecruitPrice,
	})
}
