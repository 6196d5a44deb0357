// Simulation ties the game state to the turn cascade and the components
// that mutate it between turns.
package engine

import (
	"log/slog"
	"math/rand"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/combat"
	"github.com/talgya/colonyserver/internal/game"
	"github.com/talgya/colonyserver/internal/interaction"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

// Engine advances one game. It must only be used from the game's loop.
type Engine struct {
	Game     *game.Game
	Combat   *combat.Engine
	Interact *interaction.Handler

	// Trace, when set, is called as each entity starts its turn.
	Trace func(EntityRef)

	// Stats of the most recently completed turn.
	Stats TurnStats
}

// TurnStats summarises one turn.
type TurnStats struct {
	Turn         int `json:"turn"`
	Players      int `json:"players"`
	Settlements  int `json:"settlements"`
	Units        int `json:"units"`
	Born         int `json:"born"`
	Starved      int `json:"starved"`
	Built        int `json:"built"`
	Attacks      int `json:"attacks"`
	Bombardments int `json:"bombardments"`
	Expired      int `json:"expired"` // Timed sessions that ran out during world bookkeeping
	Forced       int `json:"forced"`  // Sessions force-completed at turn end
}

// New creates an engine for g with the given combat model and session
// timeouts. A nil model uses combat.SimpleModel.
func New(g *game.Game, model combat.Model, t interaction.Timeouts) *Engine {
	return &Engine{
		Game:     g,
		Combat:   combat.New(g, model),
		Interact: interaction.New(g, t),
	}
}

// cascade is one turn in progress.
type cascade struct {
	*Engine
	ledger ledger
	stats  *TurnStats
}

// AdvanceTurn runs the full turn cascade: world bookkeeping, then every live
// player with its settlements, their buildings and residents, its remaining
// units, and its trading post. The turn counter then advances, every open
// session is force-completed, and the new turn is announced.
func (e *Engine) AdvanceTurn(rng *rand.Rand, log *slog.Logger, cs *changes.Set) TurnStats {
	g := e.Game
	c := &cascade{
		Engine: e,
		ledger: make(ledger),
		stats:  &TurnStats{Turn: g.Turn},
	}

	c.world(rng, log, cs)
	for _, p := range g.LivePlayers() {
		if c.ledger.done(playerRef(p)) {
			continue
		}
		c.player(p, rng, log.With("player", p.Name), cs)
	}

	g.Turn++
	c.stats.Forced = g.Sessions.CompleteAll(cs)
	cs.NewTurn(g.Turn)

	c.stats.Players = len(g.LivePlayers())
	c.stats.Settlements = len(g.AllSettlements())
	c.stats.Units = len(g.AllUnits())
	e.Stats = *c.stats

	log.Info("turn complete",
		"turn", c.stats.Turn,
		"date", DateString(c.stats.Turn),
		"players", c.stats.Players,
		"settlements", c.stats.Settlements,
		"units", c.stats.Units,
		"born", c.stats.Born,
		"starved", c.stats.Starved,
		"attacks", c.stats.Attacks,
		"sessions_forced", c.stats.Forced,
	)
	return e.Stats
}

func (c *cascade) enter(r EntityRef) {
	c.ledger.enter(r)
	if c.Trace != nil {
		c.Trace(r)
	}
}

// world is the turn's opening bookkeeping.
func (c *cascade) world(_ *rand.Rand, log *slog.Logger, cs *changes.Set) {
	c.enter(EntityRef{Kind: EntityWorld})
	c.stats.Expired = c.Game.Sessions.ExpireDue(cs)
	log.Debug("turn started", "turn", c.Game.Turn, "date", DateString(c.Game.Turn), "sessions", c.Game.Sessions.Len())
}

func playerRef(p *social.Player) EntityRef {
	return EntityRef{Kind: EntityPlayer, ID: uint64(p.ID)}
}

func unitRef(u *units.Unit) EntityRef {
	return EntityRef{Kind: EntityUnit, ID: uint64(u.ID)}
}

// tell queues a message for one player.
func (c *cascade) tell(cs *changes.Set, p world.PlayerID, t changes.MessageType, key, format string, args ...any) {
	cs.Message(changes.Only(p), changes.Messagef(t, key, format, args...))
}
