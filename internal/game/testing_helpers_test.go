package game

import (
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/world"
)

// plainsMap builds an all-plains map so tests control every tile.
func plainsMap(radius int) *world.Map {
	m := world.NewMap(radius)
	for q := -radius; q <= radius; q++ {
		for r := -radius; r <= radius; r++ {
			c := world.HexCoord{Q: q, R: r}
			if m.InBounds(c) {
				m.Set(&world.Tile{Coord: c, Terrain: world.TerrainPlains})
			}
		}
	}
	return m
}

func twoPlayerGame() (*Game, *social.Player, *social.Player) {
	g := New(plainsMap(6))
	a := social.NewPlayer(1, "Dutch", "dutch", social.KindColonial, 1000)
	b := social.NewPlayer(2, "French", "french", social.KindColonial, 600)
	g.AddPlayer(a)
	g.AddPlayer(b)
	return g, a, b
}
