// Package interaction implements the multi-step exchanges between players:
// treaty negotiation, trading visits, native demands, and mercenary offers.
// Each exchange lives in a session of the game's registry; the Handler
// supplies the completion body for every session kind.
package interaction

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/game"
	"github.com/talgya/colonyserver/internal/session"
	"github.com/talgya/colonyserver/internal/world"
)

// Domain failures. They are returned to the caller and reported to the
// acting player; game state is left untouched.
var (
	ErrRefused           = errors.New("refused")
	ErrNotParty          = errors.New("not a party to this session")
	ErrClosed            = errors.New("session already complete")
	ErrAlreadyDone       = errors.New("already done during this visit")
	ErrInsufficientGold  = errors.New("insufficient gold")
	ErrInsufficientGoods = errors.New("insufficient goods")
)

// Timeouts bounds how long a player may take to answer. Zero means the
// session waits until the end of the turn.
type Timeouts struct {
	Diplomacy    time.Duration
	NativeDemand time.Duration
	Mercenaries  time.Duration
}

// Handler runs interactions for one game.
type Handler struct {
	game     *game.Game
	timeouts Timeouts
}

// New creates a handler and installs it as the completion body of the
// game's session registry.
func New(g *game.Game, t Timeouts) *Handler {
	h := &Handler{game: g, timeouts: t}
	g.Sessions.SetCompleter(h.Complete)
	return h
}

// Complete is the registry's completion function. It runs once per session.
func (h *Handler) Complete(s *session.Session, res session.Result, cs *changes.Set) {
	switch p := s.Payload().(type) {
	case *session.Diplomacy:
		h.completeDiplomacy(p, res, cs)
	case *session.Trade:
		h.completeTrade(p, res, cs)
	case *session.NativeDemand:
		h.completeDemand(p, res, cs)
	case *session.Mercenaries:
		h.completeMercenaries(p, res, cs)
	default:
		panic(fmt.Sprintf("interaction: no completion for %T", p))
	}
	slog.Debug("session completed", "key", s.Key(), "result", res.String())
}

// Respond answers a session on behalf of the party it is waiting for.
func (h *Handler) Respond(s *session.Session, by world.PlayerID, accept bool, cs *changes.Set) error {
	if s.Completed() {
		return h.fail(cs, by, ErrClosed)
	}
	if responder(s.Payload()) != by {
		return h.fail(cs, by, ErrNotParty)
	}
	res := session.ResultRejected
	if accept {
		res = session.ResultAccepted
	}
	if !s.Complete(res, cs) {
		return h.fail(cs, by, ErrClosed)
	}
	return nil
}

// Withdraw lets either party walk away. It is a rejection.
func (h *Handler) Withdraw(s *session.Session, by world.PlayerID, cs *changes.Set) error {
	if !involves(s.Payload(), by) {
		return h.fail(cs, by, ErrNotParty)
	}
	if !s.Complete(session.ResultRejected, cs) {
		return h.fail(cs, by, ErrClosed)
	}
	return nil
}

// responder is the player a session is waiting on.
func responder(p session.Payload) world.PlayerID {
	switch p := p.(type) {
	case *session.Diplomacy:
		return p.Recipient
	case *session.Trade:
		return p.Trader
	case *session.NativeDemand:
		return p.Victim
	case *session.Mercenaries:
		return p.Player
	}
	return world.NoPlayer
}

func involves(p session.Payload, pid world.PlayerID) bool {
	switch p := p.(type) {
	case *session.Diplomacy:
		return p.Proposer == pid || p.Recipient == pid
	case *session.Trade:
		return p.Trader == pid || p.Natives == pid
	case *session.NativeDemand:
		return p.Natives == pid || p.Victim == pid
	case *session.Mercenaries:
		return p.Player == pid
	}
	return false
}

// begin registers a session, timed when a timeout is configured.
func (h *Handler) begin(a, b session.Party, p session.Payload, timeout time.Duration) (*session.Session, error) {
	if timeout > 0 {
		return h.game.Sessions.TryBeginTimed(a, b, p, timeout)
	}
	return h.game.Sessions.TryBegin(a, b, p)
}

// fail reports a domain failure to the player and returns it.
func (h *Handler) fail(cs *changes.Set, p world.PlayerID, err error) error {
	cs.Message(changes.Only(p), changes.Messagef(changes.MessageFailure, "model.interaction.failure", "%v", err))
	return err
}

func (h *Handler) tell(cs *changes.Set, p world.PlayerID, t changes.MessageType, key, format string, args ...any) {
	cs.Message(changes.Only(p), changes.Messagef(t, key, format, args...))
}

func (h *Handler) updateGold(cs *changes.Set, pid world.PlayerID) {
	if p := h.game.Player(pid); p != nil {
		cs.Partial(changes.Only(pid), changes.PlayerRef(pid), world.HexCoord{}, map[string]any{"gold": p.Gold})
	}
}
