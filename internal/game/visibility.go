package game

import (
	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/world"
)

// Sees reports whether a player currently has eyes on coord: one of its
// units within line of sight, or one of its settlements within its radius
// plus one.
func (g *Game) Sees(pid world.PlayerID, coord world.HexCoord) bool {
	for _, s := range g.SettlementsOf(pid) {
		if world.Distance(s.Center(), coord) <= s.Radius()+1 {
			return true
		}
	}
	for _, u := range g.units {
		if u.Owner != pid || !u.OnMap() {
			continue
		}
		if world.Distance(u.Coord, coord) <= u.LineOfSight() {
			return true
		}
	}
	return false
}

// Observer returns the visibility view of one player.
func (g *Game) Observer(pid world.PlayerID) changes.Observer {
	return changes.Viewer{ID: pid, Sees: func(c world.HexCoord) bool { return g.Sees(pid, c) }}
}

// Observers returns a view for every live player, in player order, followed
// by the players eliminated since the last call to ForgetEliminated.
func (g *Game) Observers() []changes.Observer {
	var out []changes.Observer
	for _, p := range g.LivePlayers() {
		out = append(out, g.Observer(p.ID))
	}
	for _, id := range g.eliminated {
		out = append(out, g.Observer(id))
	}
	return out
}

// Eliminate marks p dead. It keeps observing until the changes of the
// current tick have been delivered.
func (g *Game) Eliminate(p *social.Player) {
	if p.Dead {
		return
	}
	p.Dead = true
	g.eliminated = append(g.eliminated, p.ID)
}

// ForgetEliminated drops the players eliminated since the last delivery
// from Observers.
func (g *Game) ForgetEliminated() {
	g.eliminated = nil
}
