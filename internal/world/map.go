package world

import (
	"fmt"
	"sort"
)

// Map holds the complete hex grid world state.
type Map struct {
	Tiles  map[HexCoord]*Tile `json:"-"` // All tiles keyed by coordinate
	Radius int                `json:"radius"`
}

// NewMap creates an empty map with the given radius.
// A hex grid of radius R contains hexes where max(|q|, |r|, |s|) <= R.
func NewMap(radius int) *Map {
	return &Map{
		Tiles:  make(map[HexCoord]*Tile),
		Radius: radius,
	}
}

// Get returns the tile at the given coordinate, or nil if out of bounds.
func (m *Map) Get(coord HexCoord) *Tile {
	return m.Tiles[coord]
}

// Set places a tile at the given coordinate.
func (m *Map) Set(t *Tile) {
	m.Tiles[t.Coord] = t
}

// InBounds returns true if the coordinate is within the map radius.
func (m *Map) InBounds(coord HexCoord) bool {
	return max(abs(coord.Q), abs(coord.R), abs(coord.S())) <= m.Radius
}

// Within returns the tiles no further than radius from center, sorted so
// that callers iterate in a stable order.
func (m *Map) Within(center HexCoord, radius int) []*Tile {
	var out []*Tile
	for q := -radius; q <= radius; q++ {
		for r := max(-radius, -q-radius); r <= min(radius, -q+radius); r++ {
			if t := m.Get(HexCoord{Q: center.Q + q, R: center.R + r}); t != nil {
				out = append(out, t)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Coord.Less(out[j].Coord) })
	return out
}

// OwnedBy returns every tile worked by the given settlement, in stable order.
func (m *Map) OwnedBy(id SettlementID) []*Tile {
	var out []*Tile
	for _, t := range m.Tiles {
		if t.OwningSettlement == id {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Coord.Less(out[j].Coord) })
	return out
}

// Claim hands a tile to a player and settlement.
func (m *Map) Claim(t *Tile, owner PlayerID, settlement SettlementID) {
	t.Owner = owner
	t.OwningSettlement = settlement
}

// Release returns a tile to the wild.
func (m *Map) Release(t *Tile) {
	t.Owner = NoPlayer
	t.OwningSettlement = NoSettlement
}

// TileCount returns the total number of tiles in the map.
func (m *Map) TileCount() int {
	return len(m.Tiles)
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(radius=%d, tiles=%d)", m.Radius, m.TileCount())
}
