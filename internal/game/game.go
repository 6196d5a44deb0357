// Package game holds the state of one running game and the mutation helpers
// shared by combat, diplomacy, and the turn cascade.
package game

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/colonyserver/internal/session"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

// Game is one game instance. It is owned by a single game loop and is not
// safe for concurrent use; only Sessions may be touched from elsewhere.
type Game struct {
	ID      uuid.UUID
	Map     *world.Map
	Turn    int
	Players []*social.Player // Processing order
	Events  []Event          // Recent notable events, oldest first

	// Sessions holds this game's interaction sessions.
	Sessions *session.Registry

	settlements map[world.SettlementID]social.Settlement
	units       map[units.ID]*units.Unit

	// Players eliminated since the last delivery. They still observe the
	// changes of the tick that removed them.
	eliminated []world.PlayerID

	nextUnit       units.ID
	nextSettlement world.SettlementID
	nextBuilding   uint64
}

// Event is a notable occurrence kept for the status API and the message log.
type Event struct {
	Turn        int            `json:"turn"`
	Player      world.PlayerID `json:"player,omitempty"`
	Description string         `json:"description"`
	Category    string         `json:"category"` // "combat", "diplomacy", "colony", "native", ...
}

// MaxEvents bounds the in-memory event history.
const MaxEvents = 1000

// New creates an empty game on the given map.
func New(m *world.Map) *Game {
	return &Game{
		ID:          uuid.New(),
		Map:         m,
		Turn:        1,
		Sessions:    session.NewRegistry(nil),
		settlements: make(map[world.SettlementID]social.Settlement),
		units:       make(map[units.ID]*units.Unit),
	}
}

// EmitEvent appends to the event history, trimming the oldest entries.
func (g *Game) EmitEvent(e Event) {
	if e.Turn == 0 {
		e.Turn = g.Turn
	}
	g.Events = append(g.Events, e)
	if len(g.Events) > MaxEvents {
		g.Events = g.Events[len(g.Events)-MaxEvents:]
	}
}

// AddPlayer appends a player to the processing order.
func (g *Game) AddPlayer(p *social.Player) {
	g.Players = append(g.Players, p)
}

// Player returns the player with the given id, or nil.
func (g *Game) Player(id world.PlayerID) *social.Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// MustPlayer is Player for ids that must exist.
func (g *Game) MustPlayer(id world.PlayerID) *social.Player {
	p := g.Player(id)
	if p == nil {
		panic(fmt.Sprintf("game: no player %d", id))
	}
	return p
}

// LivePlayers returns players that are still in the game, in order.
func (g *Game) LivePlayers() []*social.Player {
	var out []*social.Player
	for _, p := range g.Players {
		if !p.Dead {
			out = append(out, p)
		}
	}
	return out
}

// Settlement returns the settlement with the given id, or nil.
func (g *Game) Settlement(id world.SettlementID) social.Settlement {
	return g.settlements[id]
}

// Colony returns the colony with the given id, or nil.
func (g *Game) Colony(id world.SettlementID) *social.Colony {
	c, _ := g.settlements[id].(*social.Colony)
	return c
}

// NativeSettlement returns the native settlement with the given id, or nil.
func (g *Game) NativeSettlement(id world.SettlementID) *social.NativeSettlement {
	s, _ := g.settlements[id].(*social.NativeSettlement)
	return s
}

// SettlementAt returns the settlement centred on coord, or nil.
func (g *Game) SettlementAt(coord world.HexCoord) social.Settlement {
	t := g.Map.Get(coord)
	if t == nil || t.Settlement == world.NoSettlement {
		return nil
	}
	return g.settlements[t.Settlement]
}

// SettlementsOf returns a player's settlements in processing order.
func (g *Game) SettlementsOf(pid world.PlayerID) []social.Settlement {
	p := g.Player(pid)
	if p == nil {
		return nil
	}
	out := make([]social.Settlement, 0, len(p.Settlements))
	for _, id := range p.Settlements {
		if s := g.settlements[id]; s != nil {
			out = append(out, s)
		}
	}
	return out
}

// AllSettlements returns every settlement ordered by id.
func (g *Game) AllSettlements() []social.Settlement {
	out := make([]social.Settlement, 0, len(g.settlements))
	for _, s := range g.settlements {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SettlementID() < out[j].SettlementID() })
	return out
}

// Unit returns a live unit, or nil.
func (g *Game) Unit(id units.ID) *units.Unit {
	return g.units[id]
}

// AllUnits returns every live unit ordered by id.
func (g *Game) AllUnits() []*units.Unit {
	out := make([]*units.Unit, 0, len(g.units))
	for _, u := range g.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UnitsOf returns a player's live units ordered by id.
func (g *Game) UnitsOf(pid world.PlayerID) []*units.Unit {
	var out []*units.Unit
	for _, u := range g.units {
		if u.Owner == pid {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UnitsAt returns the units standing on coord outside any settlement,
// ordered by id. Units aboard a carrier are not included.
func (g *Game) UnitsAt(coord world.HexCoord) []*units.Unit {
	var out []*units.Unit
	for _, u := range g.units {
		if u.Location == units.OnTile && u.Coord == coord {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Carried returns the units aboard carrier, ordered by id.
func (g *Game) Carried(carrier units.ID) []*units.Unit {
	var out []*units.Unit
	for _, u := range g.units {
		if u.Location == units.OnCarrier && u.Carrier == carrier {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ColonyPopulation is the number of colonists living in a player's colonies.
func (g *Game) ColonyPopulation(pid world.PlayerID) int {
	n := 0
	for _, s := range g.SettlementsOf(pid) {
		if c, ok := s.(*social.Colony); ok {
			n += len(c.Units)
		}
	}
	return n
}

// NextBuildingID allocates a building identifier.
func (g *Game) NextBuildingID() uint64 {
	g.nextBuilding++
	return g.nextBuilding
}
