package interaction

import (
	"fmt"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/economy"
	"github.com/talgya/colonyserver/internal/session"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

// GiftGoodwill is how much a gift calms the receiving settlement.
const GiftGoodwill = social.TensionAddNormal

// OpenTrade starts, or returns the already running, trading visit of u at
// a native settlement.
func (h *Handler) OpenTrade(u *units.Unit, ns *social.NativeSettlement, cs *changes.Set) (*session.Session, error) {
	a, b := session.UnitParty(u.ID), session.SettlementParty(ns.ID)
	if s := h.game.Sessions.Lookup(session.KindTrade, a, b); s != nil {
		return s, nil
	}
	trader := h.game.MustPlayer(u.Owner)
	natives := h.game.MustPlayer(ns.Owner)
	switch {
	case !trader.IsEuropean():
		return nil, h.fail(cs, u.Owner, fmt.Errorf("%w: only colonial traders", ErrRefused))
	case u.UnitType().Space == 0:
		return nil, h.fail(cs, u.Owner, fmt.Errorf("%w: %s carries no goods", ErrRefused, u.UnitType().Name))
	case u.MovesLeft <= 0:
		return nil, h.fail(cs, u.Owner, fmt.Errorf("%w: no moves left", ErrRefused))
	case !world.Adjacent(u.Coord, ns.Coord):
		return nil, h.fail(cs, u.Owner, fmt.Errorf("%w: not next to %s", ErrRefused, ns.Name))
	case natives.AtWarWith(trader.ID) || ns.Alarm[trader.ID].Level() >= social.LevelAngry:
		h.tell(cs, u.Owner, changes.MessageDiplomacy, "model.trade.hostile", "The people of %s refuse to trade with you", ns.Name)
		return nil, fmt.Errorf("%w: %s is hostile", ErrRefused, ns.Name)
	}
	s, err := h.game.Sessions.TryBegin(a, b, &session.Trade{
		Unit:       u.ID,
		Settlement: ns.ID,
		Trader:     trader.ID,
		Natives:    natives.ID,
	})
	if err != nil {
		return nil, h.fail(cs, u.Owner, fmt.Errorf("%w: %v", ErrRefused, err))
	}
	ns.Contacted[trader.ID] = true
	h.tell(cs, u.Owner, changes.MessageInfo, "model.trade.open", "The people of %s are willing to trade", ns.Name)
	return s, nil
}

// NativeAsk is what a settlement charges for amount of g.
func NativeAsk(ns *social.NativeSettlement, g economy.GoodsType, amount int) int {
	base := economy.BasePrice(g) * amount
	return base + base/2
}

// NativeBid is what a settlement pays for amount of g. Goods it wants
// fetch a multiple.
func NativeBid(ns *social.NativeSettlement, g economy.GoodsType, amount int) int {
	return economy.BasePrice(g) * amount * ns.WantsGoods(g) / 2
}

// trade resolves the participants of a running trade session.
func (h *Handler) trade(s *session.Session, by world.PlayerID) (*session.Trade, *units.Unit, *social.NativeSettlement, error) {
	t, ok := s.Payload().(*session.Trade)
	if !ok || s.Completed() {
		return nil, nil, nil, ErrClosed
	}
	if by != t.Trader {
		return nil, nil, nil, ErrNotParty
	}
	u := h.game.Unit(t.Unit)
	ns := h.game.NativeSettlement(t.Settlement)
	if u == nil || ns == nil {
		return nil, nil, nil, ErrClosed
	}
	return t, u, ns, nil
}

// Buy purchases goods from the settlement.
func (h *Handler) Buy(s *session.Session, by world.PlayerID, g economy.GoodsType, amount int, cs *changes.Set) error {
	t, u, ns, err := h.trade(s, by)
	if err != nil {
		return h.fail(cs, by, err)
	}
	trader, natives := h.game.MustPlayer(t.Trader), h.game.MustPlayer(t.Natives)
	price := NativeAsk(ns, g, amount)
	switch {
	case t.Bought:
		return h.fail(cs, by, ErrAlreadyDone)
	case amount <= 0 || !ns.Goods.Has(g, amount):
		return h.fail(cs, by, fmt.Errorf("%w: %s has no %d %s", ErrInsufficientGoods, ns.Name, amount, g))
	case !fits(u, g, amount):
		return h.fail(cs, by, fmt.Errorf("%w: no room aboard", ErrRefused))
	case !trader.CheckGold(price):
		return h.fail(cs, by, fmt.Errorf("%w: %d needed", ErrInsufficientGold, price))
	}
	ns.Goods.Remove(g, amount)
	u.Cargo.Add(g, amount)
	trader.ModifyGold(-price)
	natives.ModifyGold(price)
	t.Bought = true
	h.updateGold(cs, trader.ID)
	h.game.UpdateUnit(u, cs)
	return nil
}

// Sell sells goods from the unit's hold to the settlement.
func (h *Handler) Sell(s *session.Session, by world.PlayerID, g economy.GoodsType, amount int, cs *changes.Set) error {
	t, u, ns, err := h.trade(s, by)
	if err != nil {
		return h.fail(cs, by, err)
	}
	trader, natives := h.game.MustPlayer(t.Trader), h.game.MustPlayer(t.Natives)
	price := NativeBid(ns, g, amount)
	switch {
	case t.Sold:
		return h.fail(cs, by, ErrAlreadyDone)
	case amount <= 0 || !u.Cargo.Has(g, amount):
		return h.fail(cs, by, fmt.Errorf("%w: not carrying %d %s", ErrInsufficientGoods, amount, g))
	case !natives.CheckGold(price):
		return h.fail(cs, by, fmt.Errorf("%w: %s cannot afford %d", ErrInsufficientGold, ns.Name, price))
	}
	u.Cargo.Remove(g, amount)
	ns.Goods.Add(g, amount)
	natives.ModifyGold(-price)
	trader.ModifyGold(price)
	t.Sold = true
	h.updateGold(cs, trader.ID)
	h.game.UpdateUnit(u, cs)
	return nil
}

// Gift hands goods to the settlement for nothing.
func (h *Handler) Gift(s *session.Session, by world.PlayerID, g economy.GoodsType, amount int, cs *changes.Set) error {
	t, u, ns, err := h.trade(s, by)
	if err != nil {
		return h.fail(cs, by, err)
	}
	switch {
	case t.Gifted:
		return h.fail(cs, by, ErrAlreadyDone)
	case amount <= 0 || !u.Cargo.Has(g, amount):
		return h.fail(cs, by, fmt.Errorf("%w: not carrying %d %s", ErrInsufficientGoods, amount, g))
	}
	u.Cargo.Remove(g, amount)
	ns.Goods.Add(g, amount)
	t.Gifted = true
	h.game.UpdateUnit(u, cs)
	return nil
}

// CloseTrade ends the visit.
func (h *Handler) CloseTrade(s *session.Session, by world.PlayerID, cs *changes.Set) error {
	return h.Respond(s, by, true, cs)
}

// fits reports whether u has room for amount more of g.
func fits(u *units.Unit, g economy.GoodsType, amount int) bool {
	after := u.Cargo
	after.Add(g, amount)
	return after.Slots() <= u.UnitType().Space
}

func (h *Handler) completeTrade(t *session.Trade, _ session.Result, cs *changes.Set) {
	ns := h.game.NativeSettlement(t.Settlement)
	if t.ActionTaken() {
		if u := h.game.Unit(t.Unit); u != nil {
			u.MovesLeft = 0
			h.game.UpdateUnit(u, cs)
		}
	}
	if ns == nil {
		return
	}
	if t.Gifted {
		ns.ModifyAlarm(t.Trader, -GiftGoodwill)
		if natives := h.game.Player(t.Natives); natives != nil {
			natives.ModifyTension(t.Trader, -GiftGoodwill/2)
		}
	}
	h.tell(cs, t.Trader, changes.MessageInfo, "model.trade.closed", "Trading at %s is over", ns.Name)
}
