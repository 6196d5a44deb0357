package interaction

import (
	"fmt"
	"strings"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/economy"
	"github.com/talgya/colonyserver/internal/game"
	"github.com/talgya/colonyserver/internal/session"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

// MaxTreatyRounds ends a negotiation that keeps being countered.
const MaxTreatyRounds = 5

// ProposeTreaty opens a negotiation carried by u with the recipient player,
// optionally at one of the recipient's settlements.
func (h *Handler) ProposeTreaty(u *units.Unit, recipient world.PlayerID, settlement world.SettlementID, ag session.Agreement, cs *changes.Set) (*session.Session, error) {
	proposer := h.game.MustPlayer(u.Owner)
	r := h.game.Player(recipient)
	if r == nil || r.Dead || recipient == u.Owner {
		return nil, h.fail(cs, u.Owner, fmt.Errorf("%w: no one to negotiate with", ErrRefused))
	}
	if settlement != world.NoSettlement {
		s := h.game.Settlement(settlement)
		if s == nil || s.OwnerID() != recipient || world.Distance(u.Coord, s.Center()) > 1 {
			return nil, h.fail(cs, u.Owner, fmt.Errorf("%w: not at a settlement of %s", ErrRefused, r.Name))
		}
	}
	d := &session.Diplomacy{
		Proposer:   u.Owner,
		Recipient:  recipient,
		Unit:       u.ID,
		Settlement: settlement,
		Agreement:  ag,
		Rounds:     1,
	}
	if err := h.checkTerms(d); err != nil {
		return nil, h.fail(cs, u.Owner, err)
	}
	s, err := h.begin(session.UnitParty(u.ID), session.PlayerParty(recipient), d, h.timeouts.Diplomacy)
	if err != nil {
		return nil, h.fail(cs, u.Owner, fmt.Errorf("%w: %v", ErrRefused, err))
	}
	h.tell(cs, recipient, changes.MessageDiplomacy, "model.diplomacy.proposal",
		"The %s propose a treaty: %s", proposer.Name, describe(h.game, ag))
	return s, nil
}

// CounterTreaty replaces the terms on the table. Only the party being
// asked may counter; the other side is then asked in turn.
func (h *Handler) CounterTreaty(s *session.Session, by world.PlayerID, ag session.Agreement, cs *changes.Set) error {
	d, ok := s.Payload().(*session.Diplomacy)
	if !ok || s.Completed() {
		return h.fail(cs, by, ErrClosed)
	}
	if by != d.Recipient {
		return h.fail(cs, by, ErrNotParty)
	}
	if d.Rounds >= MaxTreatyRounds {
		s.Complete(session.ResultRejected, cs)
		return h.fail(cs, by, fmt.Errorf("%w: negotiations have broken down", ErrRefused))
	}
	next := *d
	next.Proposer, next.Recipient = d.Recipient, d.Proposer
	next.Agreement = ag
	next.Rounds++
	if err := h.checkTerms(&next); err != nil {
		return h.fail(cs, by, err)
	}
	*d = next
	h.tell(cs, d.Recipient, changes.MessageDiplomacy, "model.diplomacy.counter",
		"The %s counter with: %s", h.game.MustPlayer(by).Name, describe(h.game, ag))
	return nil
}

// checkTerms verifies every clause can be honoured right now.
func (h *Handler) checkTerms(d *session.Diplomacy) error {
	if len(d.Agreement.Terms) == 0 {
		return fmt.Errorf("%w: a treaty needs terms", ErrRefused)
	}
	for _, t := range d.Agreement.Terms {
		if t.Kind != session.TermStance && t.From != d.Proposer && t.From != d.Recipient {
			return fmt.Errorf("%w: term names an outsider", ErrRefused)
		}
		switch t.Kind {
		case session.TermStance:
			if t.Stance == social.StanceUncontacted {
				return fmt.Errorf("%w: cannot agree to be strangers", ErrRefused)
			}
		case session.TermGold:
			if t.Amount <= 0 {
				return fmt.Errorf("%w: gold amount must be positive", ErrRefused)
			}
			if !h.game.MustPlayer(t.From).CheckGold(t.Amount) {
				return fmt.Errorf("%w: %s cannot pay %d", ErrInsufficientGold, h.game.MustPlayer(t.From).Name, t.Amount)
			}
		case session.TermGoods:
			src, _ := h.goodsStores(d, t.From)
			if t.Amount <= 0 || src == nil || !src.Has(t.Goods, t.Amount) {
				return fmt.Errorf("%w: %d %s not available", ErrInsufficientGoods, t.Amount, t.Goods)
			}
		case session.TermColony:
			c := h.game.Colony(t.Colony)
			if c == nil || c.Owner != t.From {
				return fmt.Errorf("%w: colony %d is not %d's to give", ErrRefused, t.Colony, t.From)
			}
		}
	}
	return nil
}

// goodsStores returns the inventory from gives goods out of and the one the
// other side receives into: the negotiating unit's hold and the settlement's
// warehouse.
func (h *Handler) goodsStores(d *session.Diplomacy, from world.PlayerID) (src, dst *economy.Inventory) {
	var unitStore, settlementStore *economy.Inventory
	u := h.game.Unit(d.Unit)
	if u != nil {
		unitStore = &u.Cargo
	}
	switch s := h.game.Settlement(d.Settlement).(type) {
	case *social.Colony:
		settlementStore = &s.Goods
	case *social.NativeSettlement:
		settlementStore = &s.Goods
	}
	if u != nil && u.Owner == from {
		return unitStore, settlementStore
	}
	return settlementStore, unitStore
}

func other(d *session.Diplomacy, p world.PlayerID) world.PlayerID {
	if p == d.Proposer {
		return d.Recipient
	}
	return d.Proposer
}

func (h *Handler) completeDiplomacy(d *session.Diplomacy, res session.Result, cs *changes.Set) {
	a, b := h.game.Player(d.Proposer), h.game.Player(d.Recipient)
	if a == nil || b == nil {
		return
	}
	if u := h.game.Unit(d.Unit); u != nil {
		u.MovesLeft = 0
	}
	if !res.Accepted() {
		for _, p := range []world.PlayerID{a.ID, b.ID} {
			h.tell(cs, p, changes.MessageDiplomacy, "model.diplomacy."+strings.ReplaceAll(res.String(), " ", ""),
				"The treaty between the %s and the %s was not concluded (%s)", a.Name, b.Name, res)
		}
		return
	}
	if err := h.checkTerms(d); err != nil {
		for _, p := range []world.PlayerID{a.ID, b.ID} {
			h.tell(cs, p, changes.MessageFailure, "model.diplomacy.broken", "The treaty could not be honoured: %v", err)
		}
		return
	}
	for _, t := range d.Agreement.Terms {
		h.applyTerm(d, t, cs)
	}
	for _, p := range []world.PlayerID{a.ID, b.ID} {
		h.tell(cs, p, changes.MessageDiplomacy, "model.diplomacy.accepted",
			"The %s and the %s have signed a treaty: %s", a.Name, b.Name, describe(h.game, d.Agreement))
	}
	h.game.EmitEvent(game.Event{
		Player:      a.ID,
		Description: fmt.Sprintf("%s and %s signed a treaty", a.Name, b.Name),
		Category:    "diplomacy",
	})
}

func (h *Handler) applyTerm(d *session.Diplomacy, t session.Term, cs *changes.Set) {
	switch t.Kind {
	case session.TermStance:
		a, b := h.game.MustPlayer(d.Proposer), h.game.MustPlayer(d.Recipient)
		changed := a.SetStance(b.ID, t.Stance)
		if b.SetStance(a.ID, t.Stance) {
			changed = true
		}
		if changed {
			cs.StanceChange(changes.All(), a.ID, b.ID, t.Stance.String())
		}
	case session.TermGold:
		to := other(d, t.From)
		h.game.MustPlayer(t.From).ModifyGold(-t.Amount)
		h.game.MustPlayer(to).ModifyGold(t.Amount)
		h.updateGold(cs, t.From)
		h.updateGold(cs, to)
	case session.TermGoods:
		src, dst := h.goodsStores(d, t.From)
		if src == nil || dst == nil {
			return
		}
		dst.Add(t.Goods, src.Remove(t.Goods, t.Amount))
	case session.TermColony:
		if c := h.game.Colony(t.Colony); c != nil {
			h.game.ChangeColonyOwner(c, other(d, t.From), cs)
		}
	}
}

// describe renders an agreement for a message.
func describe(g *game.Game, ag session.Agreement) string {
	name := func(p world.PlayerID) string {
		if pl := g.Player(p); pl != nil {
			return pl.Name
		}
		return fmt.Sprint(p)
	}
	parts := make([]string, 0, len(ag.Terms))
	for _, t := range ag.Terms {
		switch t.Kind {
		case session.TermStance:
			parts = append(parts, t.Stance.String())
		case session.TermGold:
			parts = append(parts, fmt.Sprintf("%s pay %d gold", name(t.From), t.Amount))
		case session.TermGoods:
			parts = append(parts, fmt.Sprintf("%s hand over %d %s", name(t.From), t.Amount, t.Goods))
		case session.TermColony:
			label := fmt.Sprint(t.Colony)
			if c := g.Colony(t.Colony); c != nil {
				label = c.Name
			}
			parts = append(parts, fmt.Sprintf("%s cede %s", name(t.From), label))
		}
	}
	return strings.Join(parts, "; ")
}
