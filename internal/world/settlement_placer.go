// Settlement placement: scores land tiles and proposes starting sites for
// native tribes and colonial landings.
package world

import (
	"math/rand"
	"sort"
	"strings"
)

// SiteKind says who a proposed site is for.
type SiteKind uint8

const (
	SiteNative   SiteKind = iota // Native settlement; the first of a tribe is its capital
	SiteColonial                 // Coastal landing for a colonizing player
)

// Site holds the parameters for an initial settlement placement.
type Site struct {
	Coord   HexCoord
	Kind    SiteKind
	Tribe   int // Index of the tribe or colonial player the site belongs to
	Capital bool
	Score   float64 // Desirability score
	Name    string
}

// PlacementConfig controls how many sites are proposed.
type PlacementConfig struct {
	Tribes              int
	SettlementsPerTribe int
	Colonials           int
}

type scoredTile struct {
	coord HexCoord
	score float64
}

// PlaceSites finds locations for the starting settlements. Native tribes
// get clusters of inland sites, colonial players get the best remaining
// coastal tiles. The result is deterministic for a given map and seed.
func PlaceSites(m *Map, seed int64, cfg PlacementConfig) []Site {
	rng := rand.New(rand.NewSource(seed + 200))

	var candidates []scoredTile
	for coord, t := range m.Tiles {
		if !t.IsLand() {
			continue
		}
		if s := siteScore(m, coord, t); s > 0 {
			candidates = append(candidates, scoredTile{coord, s})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].coord.Less(candidates[j].coord)
	})

	var sites []Site
	taken := make(map[HexCoord]bool)
	const (
		minCapitalDist = 6
		minCampDist    = 3
		maxCampSpread  = 5
		minColonyDist  = 5
	)

	// Capitals first, spread apart; then each tribe's camps around its capital.
	var capitals []Site
	for _, c := range candidates {
		if len(capitals) >= cfg.Tribes {
			break
		}
		if tooClose(c.coord, capitals, minCapitalDist) {
			continue
		}
		taken[c.coord] = true
		capitals = append(capitals, Site{
			Coord:   c.coord,
			Kind:    SiteNative,
			Tribe:   len(capitals),
			Capital: true,
			Score:   c.score,
		})
	}
	sites = append(sites, capitals...)

	for _, capital := range capitals {
		placed := 1
		for _, c := range candidates {
			if placed >= cfg.SettlementsPerTribe {
				break
			}
			if taken[c.coord] || Distance(c.coord, capital.Coord) > maxCampSpread ||
				tooClose(c.coord, sites, minCampDist) {
				continue
			}
			taken[c.coord] = true
			sites = append(sites, Site{
				Coord: c.coord,
				Kind:  SiteNative,
				Tribe: capital.Tribe,
				Score: c.score,
			})
			placed++
		}
	}

	// Colonial landings prefer coast, away from the natives.
	colonies := 0
	for _, c := range candidates {
		if colonies >= cfg.Colonials {
			break
		}
		if m.Get(c.coord).Terrain != TerrainCoast || taken[c.coord] ||
			tooClose(c.coord, sites, minColonyDist) {
			continue
		}
		taken[c.coord] = true
		sites = append(sites, Site{
			Coord: c.coord,
			Kind:  SiteColonial,
			Tribe: colonies,
			Score: c.score,
		})
		colonies++
	}

	used := make(map[string]bool, len(sites))
	for i := range sites {
		sites[i].Name = siteName(rng, sites[i].Kind, used)
	}

	return sites
}

// siteScore rates a tile for a settlement: good food around it, access to
// water, and a mix of land to work. Mountains and ocean never qualify.
func siteScore(m *Map, coord HexCoord, t *Tile) float64 {
	var base float64
	switch t.Terrain {
	case TerrainCoast:
		base = 4
	case TerrainRiver:
		base = 3.5
	case TerrainPlains:
		base = 3
	case TerrainForest:
		base = 1.5
	case TerrainDesert, TerrainSwamp, TerrainTundra:
		base = 0.5
	default:
		return 0
	}

	var food, water int
	kinds := make(map[Terrain]struct{})
	for _, nt := range m.Within(coord, 1) {
		if nt.Coord == coord {
			continue
		}
		food += nt.Terrain.FoodYield()
		switch nt.Terrain {
		case TerrainOcean, TerrainRiver:
			water++
		default:
			kinds[nt.Terrain] = struct{}{}
		}
	}
	return base + 0.1*float64(food) + 0.25*float64(len(kinds)) + 0.2*float64(min(water, 2))
}

func tooClose(coord HexCoord, existing []Site, minDist int) bool {
	for _, s := range existing {
		if Distance(coord, s.Coord) < minDist {
			return true
		}
	}
	return false
}

var (
	nativeSyllables = []string{
		"ca", "ho", "ta", "wa", "ni", "ko", "sa", "mi", "te", "ya",
		"qua", "che", "no", "ra", "pa", "shi", "ke", "lo", "tu", "ma",
	}
	colonyPrefixes = []string{"New ", "Fort ", "Port ", "San ", "St. ", "Cape ", ""}
	colonyRoots    = []string{
		"Haven", "Amsterdam", "Orange", "Providence", "Jamestown", "Plymouth",
		"Augustine", "Louis", "Royal", "Charles", "Mary", "Hope", "Harbour",
		"Albany", "Salem", "Concord", "Rochelle", "Bristol", "Lucia", "Marco",
	}
)

// siteName makes up a name fitting who the site is for. Names are unique
// within used.
func siteName(rng *rand.Rand, kind SiteKind, used map[string]bool) string {
	for {
		var name string
		if kind == SiteNative {
			n := 2 + rng.Intn(2)
			for i := 0; i < n; i++ {
				name += nativeSyllables[rng.Intn(len(nativeSyllables))]
			}
			name = strings.ToUpper(name[:1]) + name[1:]
		} else {
			name = colonyPrefixes[rng.Intn(len(colonyPrefixes))] + colonyRoots[rng.Intn(len(colonyRoots))]
		}
		if !used[name] {
			used[name] = true
			return name
		}
	}
}
