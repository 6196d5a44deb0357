package changes

import (
	"slices"

	"github.com/talgya/colonyserver/internal/world"
)

// Observer is a player as seen by the visibility policy.
type Observer interface {
	PlayerID() world.PlayerID
	CanSee(world.HexCoord) bool
}

// Viewer adapts a player id and a visibility function to Observer.
type Viewer struct {
	ID   world.PlayerID
	Sees func(world.HexCoord) bool
}

func (v Viewer) PlayerID() world.PlayerID { return v.ID }

func (v Viewer) CanSee(c world.HexCoord) bool {
	return v.Sees != nil && v.Sees(c)
}

type scopeKind uint8

const (
	scopeAll scopeKind = iota
	scopeOnly
	scopePerhaps
)

// Scope decides which players receive a change.
type Scope struct {
	kind   scopeKind
	player world.PlayerID
	always []world.PlayerID
	except []world.PlayerID
}

// All sends the change to every player.
func All() Scope { return Scope{kind: scopeAll} }

// Only sends the change to one player.
func Only(p world.PlayerID) Scope { return Scope{kind: scopeOnly, player: p} }

// Perhaps sends the change to players who can see one of its tiles.
func Perhaps() Scope { return Scope{kind: scopePerhaps} }

// Always adds a player who receives the change regardless of visibility.
func (s Scope) Always(p world.PlayerID) Scope {
	s.always = append(slices.Clone(s.always), p)
	return s
}

// Except removes a player from the audience.
func (s Scope) Except(p world.PlayerID) Scope {
	s.except = append(slices.Clone(s.except), p)
	return s
}

// includes reports whether obs is in the audience of a change touching tiles.
func (s Scope) includes(obs Observer, tiles []world.HexCoord) bool {
	id := obs.PlayerID()
	if slices.Contains(s.except, id) {
		return false
	}
	if slices.Contains(s.always, id) {
		return true
	}
	switch s.kind {
	case scopeAll:
		return true
	case scopeOnly:
		return s.player == id
	default:
		for _, t := range tiles {
			if obs.CanSee(t) {
				return true
			}
		}
		return false
	}
}

func (s Scope) String() string {
	switch s.kind {
	case scopeAll:
		return "all"
	case scopeOnly:
		return "only"
	default:
		return "perhaps"
	}
}
