package interaction

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/economy"
	"github.com/talgya/colonyserver/internal/session"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

// DemandGoods has a native unit demand goods, or gold when amount is zero,
// from a neighbouring colony. The colony's owner answers through Respond.
func (h *Handler) DemandGoods(brave *units.Unit, c *social.Colony, g economy.GoodsType, amount, gold int, cs *changes.Set) (*session.Session, error) {
	natives := h.game.MustPlayer(brave.Owner)
	victim := h.game.MustPlayer(c.Owner)
	switch {
	case !natives.IsNative() || !victim.IsEuropean():
		return nil, fmt.Errorf("%w: only natives make demands of colonies", ErrRefused)
	case world.Distance(brave.Coord, c.Coord) > 1:
		return nil, fmt.Errorf("%w: %s is too far away", ErrRefused, c.Name)
	case (amount > 0) == (gold > 0):
		return nil, fmt.Errorf("%w: demand either goods or gold", ErrRefused)
	}
	d := &session.NativeDemand{
		Brave:   brave.ID,
		Colony:  c.ID,
		Natives: natives.ID,
		Victim:  victim.ID,
		Goods:   g,
		Amount:  amount,
		Gold:    gold,
	}
	s, err := h.begin(session.UnitParty(brave.ID), session.SettlementParty(c.ID), d, h.timeouts.NativeDemand)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefused, err)
	}
	what := fmt.Sprintf("%d %s", amount, g)
	if gold > 0 {
		what = humanize.Comma(int64(gold)) + " gold"
	}
	h.tell(cs, victim.ID, changes.MessageDemand, "model.demand.goods",
		"A %s brave at %s demands %s", natives.Name, c.Name, what)
	return s, nil
}

func (h *Handler) completeDemand(d *session.NativeDemand, res session.Result, cs *changes.Set) {
	natives, victim := h.game.Player(d.Natives), h.game.Player(d.Victim)
	c := h.game.Colony(d.Colony)
	brave := h.game.Unit(d.Brave)
	if natives == nil || victim == nil || c == nil || c.Owner != d.Victim {
		return
	}
	if brave != nil {
		brave.MovesLeft = 0
	}

	paid := false
	if res.Accepted() {
		switch {
		case d.Gold > 0 && victim.CheckGold(d.Gold):
			victim.ModifyGold(-d.Gold)
			natives.ModifyGold(d.Gold)
			h.updateGold(cs, victim.ID)
			paid = true
		case d.Amount > 0 && c.Goods.Has(d.Goods, d.Amount):
			c.Goods.Remove(d.Goods, d.Amount)
			if home := h.homeOf(brave); home != nil {
				home.Goods.Add(d.Goods, d.Amount)
			}
			cs.Update(changes.Only(c.Owner), changes.SettlementRef(c.ID), c.Coord, c)
			paid = true
		}
	}

	delta := social.TensionAddMajor
	if paid {
		delta = -social.TensionAddNormal
		h.tell(cs, victim.ID, changes.MessageDemand, "model.demand.accepted", "The %s leave %s satisfied", natives.Name, c.Name)
	} else {
		h.tell(cs, victim.ID, changes.MessageDemand, "model.demand.rejected", "The %s leave %s in anger", natives.Name, c.Name)
	}
	natives.ModifyTension(victim.ID, delta)
	if home := h.homeOf(brave); home != nil {
		home.ModifyAlarm(victim.ID, delta)
	}
}

func (h *Handler) homeOf(u *units.Unit) *social.NativeSettlement {
	if u == nil {
		return nil
	}
	return h.game.NativeSettlement(u.HomeSettlement)
}
