package interaction

import (
	"fmt"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

// DemandTribute has an armed colonial unit demand gold from a native
// settlement. A settlement that is at most content pays from its treasure;
// an angrier one refuses and grows more alarmed. Each settlement pays at
// most once a turn.
func (h *Handler) DemandTribute(u *units.Unit, ns *social.NativeSettlement, cs *changes.Set) (int, error) {
	p := h.game.MustPlayer(u.Owner)
	switch {
	case !p.IsEuropean() || !u.IsOffensive():
		return 0, h.fail(cs, u.Owner, fmt.Errorf("%w: only armed colonial units demand tribute", ErrRefused))
	case u.MovesLeft <= 0 || !world.Adjacent(u.Coord, ns.Coord):
		return 0, h.fail(cs, u.Owner, fmt.Errorf("%w: not in position", ErrRefused))
	case ns.LastTribute == h.game.Turn:
		return 0, h.fail(cs, u.Owner, fmt.Errorf("%w: %s has already paid this turn", ErrAlreadyDone, ns.Name))
	}
	u.MovesLeft = 0
	ns.Contacted[p.ID] = true

	if ns.Alarm[p.ID].Level() > social.LevelContent {
		ns.ModifyAlarm(p.ID, social.TensionAddNormal)
		h.tell(cs, p.ID, changes.MessageDemand, "model.tribute.refused", "The people of %s refuse to pay", ns.Name)
		return 0, nil
	}
	gold := ns.Treasure / 10
	if ns.Capital {
		gold *= 2
	}
	gold = min(gold, ns.Treasure)
	ns.Treasure -= gold
	ns.LastTribute = h.game.Turn
	ns.ModifyAlarm(p.ID, social.TensionAddMinor)
	p.ModifyGold(gold)
	h.updateGold(cs, p.ID)
	if gold == 0 {
		h.tell(cs, p.ID, changes.MessageDemand, "model.tribute.poor", "The people of %s have nothing to give", ns.Name)
	} else {
		h.tell(cs, p.ID, changes.MessageDemand, "model.tribute.paid", "The people of %s pay %d gold in tribute", ns.Name, gold)
	}
	return gold, nil
}
