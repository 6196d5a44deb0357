package interaction

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/session"
	"github.com/talgya/colonyserver/internal/world"
)

// OfferMercenaries offers troops to a player for a price. Accepted troops
// land at the given tile.
func (h *Handler) OfferMercenaries(from, to world.PlayerID, offer []session.MercenaryUnit, price int, at world.HexCoord, cs *changes.Set) (*session.Session, error) {
	p := h.game.Player(to)
	if p == nil || p.Dead || !p.IsEuropean() || len(offer) == 0 || price <= 0 {
		return nil, fmt.Errorf("%w: invalid mercenary offer", ErrRefused)
	}
	m := &session.Mercenaries{Player: to, Units: offer, Price: price, At: at}
	s, err := h.begin(session.PlayerParty(from), session.PlayerParty(to), m, h.timeouts.Mercenaries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefused, err)
	}
	h.tell(cs, to, changes.MessageDiplomacy, "model.mercenaries.offer",
		"%d mercenary units offer their service for %s gold", len(offer), humanize.Comma(int64(price)))
	return s, nil
}

func (h *Handler) completeMercenaries(m *session.Mercenaries, res session.Result, cs *changes.Set) {
	p := h.game.Player(m.Player)
	if p == nil {
		return
	}
	if !res.Accepted() {
		h.tell(cs, p.ID, changes.MessageInfo, "model.mercenaries.declined", "The mercenaries have gone elsewhere")
		return
	}
	if !p.CheckGold(m.Price) {
		h.tell(cs, p.ID, changes.MessageFailure, "model.mercenaries.unaffordable",
			"You cannot afford the mercenaries' price of %s gold", humanize.Comma(int64(m.Price)))
		return
	}
	p.ModifyGold(-m.Price)
	h.updateGold(cs, p.ID)
	for _, mu := range m.Units {
		u := h.game.NewUnit(mu.Type, p.ID, m.At)
		u.Role = mu.Role
		u.MovesLeft = u.InitialMoves()
		h.game.UpdateUnit(u, cs)
	}
	h.tell(cs, p.ID, changes.MessageInfo, "model.mercenaries.hired", "%d mercenary units have joined you", len(m.Units))
}
