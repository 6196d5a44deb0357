// Package world provides the hex grid, terrain, tile ownership, and the
// identity types shared by everything that can own land.
// Uses axial coordinates (q, r) for the hex grid.
package world

// PlayerID identifies a player within one game. Zero means "nobody".
type PlayerID uint32

// NoPlayer is the owner of unclaimed land.
const NoPlayer PlayerID = 0

// SettlementID identifies a colony or native settlement. Zero means none.
type SettlementID uint64

// NoSettlement marks a tile with no owning or centred settlement.
const NoSettlement SettlementID = 0

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// Terrain types for hex tiles.
type Terrain uint8

const (
	TerrainPlains   Terrain = iota // Farmland, sugar, cotton
	TerrainForest                  // Lumber and furs
	TerrainMountain                // Ore and silver, strong defence
	TerrainCoast                   // Fish, docks
	TerrainRiver                   // Faster travel, production bonus
	TerrainDesert                  // Poor yields
	TerrainSwamp                   // Tobacco, slow travel
	TerrainTundra                  // Furs, poor food
	TerrainOcean                   // Ships only
)

// Tile represents a single hex on the world map together with its ownership.
type Tile struct {
	Coord   HexCoord `json:"coord"`
	Terrain Terrain  `json:"terrain"`

	// Elevation and climate data (set during world generation).
	Elevation   float64 `json:"elevation"`   // 0.0 (sea level) to 1.0 (peak)
	Rainfall    float64 `json:"rainfall"`    // 0.0 (arid) to 1.0 (tropical)
	Temperature float64 `json:"temperature"` // 0.0 (frozen) to 1.0 (hot)

	// Owner is the player holding the land; OwningSettlement is the
	// settlement working it. Both are zero for free land.
	Owner            PlayerID     `json:"owner,omitempty"`
	OwningSettlement SettlementID `json:"owning_settlement,omitempty"`

	// Settlement centred on this tile, if any.
	Settlement SettlementID `json:"settlement,omitempty"`
}

var terrainNames = [...]string{
	TerrainPlains:   "plains",
	TerrainForest:   "forest",
	TerrainMountain: "mountain",
	TerrainCoast:    "coast",
	TerrainRiver:    "river",
	TerrainDesert:   "desert",
	TerrainSwamp:    "swamp",
	TerrainTundra:   "tundra",
	TerrainOcean:    "ocean",
}

func (t Terrain) String() string {
	if int(t) < len(terrainNames) {
		return terrainNames[t]
	}
	return "unknown"
}

// IsLand reports whether land units can stand on the tile.
func (t *Tile) IsLand() bool {
	return t.Terrain != TerrainOcean
}

// Free reports whether no player owns the tile.
func (t *Tile) Free() bool {
	return t.Owner == NoPlayer
}

// MovePointsPerTile is the cost of one basic move. Unit moves are counted
// in thirds so that roads and rivers can discount partial moves.
const MovePointsPerTile = 3

// MoveCost returns the move points needed to enter a tile of this terrain.
func (t Terrain) MoveCost() int {
	switch t {
	case TerrainPlains, TerrainCoast, TerrainDesert, TerrainTundra, TerrainOcean:
		return MovePointsPerTile
	case TerrainRiver:
		return 1
	case TerrainForest, TerrainSwamp:
		return 2 * MovePointsPerTile
	case TerrainMountain:
		return 3 * MovePointsPerTile
	default:
		return MovePointsPerTile
	}
}

// DefenceBonus returns the percentage defence modifier for units on this terrain.
func (t Terrain) DefenceBonus() int {
	switch t {
	case TerrainForest, TerrainSwamp:
		return 50
	case TerrainMountain:
		return 150
	default:
		return 0
	}
}

// FoodYield is the base food a worked tile of this terrain produces per turn.
func (t Terrain) FoodYield() int {
	switch t {
	case TerrainPlains, TerrainRiver:
		return 5
	case TerrainCoast:
		return 4
	case TerrainForest, TerrainSwamp:
		return 2
	case TerrainTundra, TerrainDesert:
		return 1
	default:
		return 0
	}
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent hex coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = HexCoord{Q: h.Q + dir.Q, R: h.R + dir.R}
	}
	return result
}

// Adjacent reports whether two coordinates are neighbours.
func Adjacent(a, b HexCoord) bool {
	return Distance(a, b) == 1
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	// Max of the three absolute differences in cube coordinates.
	return max(dq, dr, ds)
}

// Less orders coordinates by row then column, for deterministic iteration.
func (h HexCoord) Less(o HexCoord) bool {
	if h.R != o.R {
		return h.R < o.R
	}
	return h.Q < o.Q
}
