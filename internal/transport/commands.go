package transport

import (
	"errors"
	"fmt"

	"github.com/talgya/colonyserver/internal/economy"
	"github.com/talgya/colonyserver/internal/engine"
	"github.com/talgya/colonyserver/internal/game"
	"github.com/talgya/colonyserver/internal/session"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

// ErrBadCommand is returned for commands naming things the player does not
// own or that do not exist.
var ErrBadCommand = errors.New("bad command")

// Execute applies cmd on behalf of pid. It must run on the game loop.
func Execute(env *engine.Env, pid world.PlayerID, cmd Command) (any, error) {
	g, cs := env.Game, env.Changes
	h := env.Engine.Interact

	switch cmd.Type {
	case CmdAttack:
		u, err := ownUnit(g, pid, cmd.Unit)
		if err != nil {
			return nil, err
		}
		rep, err := env.Engine.Combat.Attack(u, *cmd.Target, env.Rand, cs)
		if err != nil {
			return nil, err
		}
		return map[string]string{"result": rep.Primary.String()}, nil

	case CmdQueueAttack:
		u, err := ownUnit(g, pid, cmd.Unit)
		if err != nil {
			return nil, err
		}
		u.Orders = &units.AttackOrder{Target: *cmd.Target}
		return nil, nil

	case CmdProposeTreaty:
		u, err := ownUnit(g, pid, cmd.Unit)
		if err != nil {
			return nil, err
		}
		s, err := h.ProposeTreaty(u, cmd.Recipient, cmd.Settlement, session.Agreement{Terms: cmd.Terms}, cs)
		if err != nil {
			return nil, err
		}
		return s.Key(), nil

	case CmdOpenTrade:
		u, err := ownUnit(g, pid, cmd.Unit)
		if err != nil {
			return nil, err
		}
		ns, err := nativeSettlement(g, cmd.Settlement)
		if err != nil {
			return nil, err
		}
		s, err := h.OpenTrade(u, ns, cs)
		if err != nil {
			return nil, err
		}
		return s.Key(), nil

	case CmdTribute:
		u, err := ownUnit(g, pid, cmd.Unit)
		if err != nil {
			return nil, err
		}
		ns, err := nativeSettlement(g, cmd.Settlement)
		if err != nil {
			return nil, err
		}
		gold, err := h.DemandTribute(u, ns, cs)
		if err != nil {
			return nil, err
		}
		return map[string]int{"gold": gold}, nil
	}

	s, err := findSession(g, cmd.Session)
	if err != nil {
		return nil, err
	}
	goods := economy.GoodsType(cmd.Goods)
	switch cmd.Type {
	case CmdCounterTreaty:
		return nil, h.CounterTreaty(s, pid, session.Agreement{Terms: cmd.Terms}, cs)
	case CmdRespond:
		return nil, h.Respond(s, pid, cmd.Accept, cs)
	case CmdWithdraw:
		return nil, h.Withdraw(s, pid, cs)
	case CmdBuy:
		return nil, h.Buy(s, pid, goods, cmd.Amount, cs)
	case CmdSell:
		return nil, h.Sell(s, pid, goods, cmd.Amount, cs)
	case CmdGift:
		return nil, h.Gift(s, pid, goods, cmd.Amount, cs)
	case CmdCloseTrade:
		return nil, h.CloseTrade(s, pid, cs)
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrBadCommand, cmd.Type)
}

func ownUnit(g *game.Game, pid world.PlayerID, id uint64) (*units.Unit, error) {
	u := g.Unit(units.ID(id))
	if u == nil || u.Owner != pid {
		return nil, fmt.Errorf("%w: no unit %d of yours", ErrBadCommand, id)
	}
	return u, nil
}

func nativeSettlement(g *game.Game, id world.SettlementID) (*social.NativeSettlement, error) {
	ns := g.NativeSettlement(id)
	if ns == nil {
		return nil, fmt.Errorf("%w: no native settlement %d", ErrBadCommand, id)
	}
	return ns, nil
}

func findSession(g *game.Game, key session.Key) (*session.Session, error) {
	for _, s := range g.Sessions.Active() {
		if s.Key() == key {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: no open session %q", ErrBadCommand, key)
}
