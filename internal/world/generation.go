// Map generation. The New World is a noise-shaped landmass that fills the
// western side of the map and falls away into the high seas in the east,
// where ships from Europe arrive.
package world

import (
	"math"
	"math/rand"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds map generation parameters.
type GenConfig struct {
	Radius        int     // Hex radius; 16 gives 817 tiles
	Seed          int64   // Same seed, same map
	SeaLevel      float64 // Elevation below which a tile is ocean (0..1)
	MountainLevel float64 // Elevation above which a tile is mountain (0..1)
}

// layers are the three noise fields a map is sampled from.
type layers struct {
	height, wet, warm opensimplex.Noise
}

func newLayers(seed int64) layers {
	return layers{
		height: opensimplex.NewNormalized(seed),
		wet:    opensimplex.NewNormalized(seed ^ 0x5eed),
		warm:   opensimplex.NewNormalized(seed ^ 0xc0ffee),
	}
}

// Generate builds a map with terrain. It is deterministic in cfg.
func Generate(cfg GenConfig) *Map {
	l := newLayers(cfg.Seed)
	m := NewMap(cfg.Radius)
	span := float64(cfg.Radius)

	for q := -cfg.Radius; q <= cfg.Radius; q++ {
		for r := -cfg.Radius; r <= cfg.Radius; r++ {
			coord := HexCoord{Q: q, R: r}
			if !m.InBounds(coord) {
				continue
			}
			x, y := coord.center()

			h := fractal(l.height, x, y, 5, 0.09)
			// East of the coast line the sea deepens towards Europe.
			h -= math.Max(0, x/span-0.35) * 0.9
			// A thin band of ocean rings the whole map.
			if Distance(coord, HexCoord{}) >= cfg.Radius-1 {
				h = 0
			}
			h = clamp01(h)

			// Cold towards both poles, cooler with height.
			lat := math.Abs(y) / span
			warm := clamp01(0.55*fractal(l.warm, x, y, 2, 0.05) + 0.6*(1-lat) - 0.25*h)
			wet := fractal(l.wet, x, y, 3, 0.07)

			m.Set(&Tile{
				Coord:       coord,
				Terrain:     classify(h, wet, warm, cfg),
				Elevation:   h,
				Rainfall:    wet,
				Temperature: warm,
			})
		}
	}

	shoreline(m)
	carveRivers(m, rand.New(rand.NewSource(cfg.Seed+1)))
	return m
}

// center converts axial coordinates to the cartesian centre of the hex.
func (h HexCoord) center() (x, y float64) {
	return float64(h.Q) + float64(h.R)/2, float64(h.R) * math.Sqrt(3) / 2
}

func classify(h, wet, warm float64, cfg GenConfig) Terrain {
	switch {
	case h < cfg.SeaLevel:
		return TerrainOcean
	case h > cfg.MountainLevel:
		return TerrainMountain
	case warm < 0.3:
		return TerrainTundra
	case wet < 0.3 && warm > 0.6:
		return TerrainDesert
	case wet > 0.68 && h < cfg.SeaLevel+0.15:
		return TerrainSwamp
	case wet > 0.5:
		return TerrainForest
	default:
		return TerrainPlains
	}
}

// shoreline turns low land bordering the ocean into coast, where colonies
// can build docks.
func shoreline(m *Map) {
	var shore []*Tile
	for coord, t := range m.Tiles {
		if !t.IsLand() || t.Terrain == TerrainMountain {
			continue
		}
		for _, n := range coord.Neighbors() {
			if nt := m.Get(n); nt != nil && nt.Terrain == TerrainOcean {
				shore = append(shore, t)
				break
			}
		}
	}
	for _, t := range shore {
		if t.Terrain != TerrainSwamp {
			t.Terrain = TerrainCoast
		}
	}
}

// carveRivers runs water downhill from a few highland springs. A river
// stops at the sea, at another river, or in a hollow.
func carveRivers(m *Map, rng *rand.Rand) {
	var springs []HexCoord
	for coord, t := range m.Tiles {
		if t.IsLand() && t.Elevation > 0.6 {
			springs = append(springs, coord)
		}
	}
	sort.Slice(springs, func(i, j int) bool { return springs[i].Less(springs[j]) })
	rng.Shuffle(len(springs), func(i, j int) { springs[i], springs[j] = springs[j], springs[i] })

	want := min(max(len(springs)/10, 2), 8)
	for _, spring := range springs[:min(want, len(springs))] {
		flow(m, spring)
	}
}

func flow(m *Map, spring HexCoord) {
	at := spring
	for range 4 * m.Radius {
		switch t := m.Get(at); {
		case t.Terrain == TerrainRiver && at != spring:
			return
		case t.Terrain != TerrainMountain:
			t.Terrain = TerrainRiver
		}
		next, ok := downhill(m, at)
		if !ok {
			return
		}
		if nt := m.Get(next); !nt.IsLand() || nt.Terrain == TerrainCoast {
			return
		}
		at = next
	}
}

// downhill returns the lowest neighbour below at, ties broken by position.
func downhill(m *Map, at HexCoord) (HexCoord, bool) {
	best, ok := at, false
	lowest := m.Get(at).Elevation
	for _, n := range at.Neighbors() {
		t := m.Get(n)
		if t == nil {
			continue
		}
		if t.Elevation < lowest || (ok && t.Elevation == lowest && n.Less(best)) {
			best, lowest, ok = n, t.Elevation, true
		}
	}
	return best, ok
}

// fractal sums octaves of noise into 0..1.
func fractal(n opensimplex.Noise, x, y float64, octaves int, freq float64) float64 {
	var sum, norm float64
	amp := 1.0
	for range octaves {
		sum += n.Eval2(x*freq, y*freq) * amp
		norm += amp
		amp /= 2
		freq *= 2
	}
	return sum / norm
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
