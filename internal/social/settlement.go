package social

import (
	"slices"

	"github.com/talgya/colonyserver/internal/economy"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

// Settlement is either a *Colony or a *NativeSettlement. The set of
// variants is closed; callers switch on the concrete type.
type Settlement interface {
	SettlementID() world.SettlementID
	OwnerID() world.PlayerID
	Center() world.HexCoord
	Label() string
	Radius() int
	Residents() []units.ID
	isSettlement()
}

// settlementBase carries the fields every settlement has.
type settlementBase struct {
	ID       world.SettlementID `json:"id"`
	Name     string             `json:"name"`
	Owner    world.PlayerID     `json:"owner"`
	Coord    world.HexCoord     `json:"coord"`
	Units    []units.ID         `json:"units"` // Residents in processing order
	Goods    economy.Inventory  `json:"goods"`
	Disposed bool               `json:"-"`
}

func (b *settlementBase) SettlementID() world.SettlementID { return b.ID }
func (b *settlementBase) OwnerID() world.PlayerID          { return b.Owner }
func (b *settlementBase) Center() world.HexCoord           { return b.Coord }
func (b *settlementBase) Label() string                    { return b.Name }
func (b *settlementBase) Residents() []units.ID            { return b.Units }
func (b *settlementBase) isSettlement()                    {}

// AddUnit appends a resident.
func (b *settlementBase) AddUnit(id units.ID) {
	if !slices.Contains(b.Units, id) {
		b.Units = append(b.Units, id)
	}
}

// RemoveUnit drops a resident.
func (b *settlementBase) RemoveUnit(id units.ID) {
	b.Units = slices.DeleteFunc(b.Units, func(u units.ID) bool { return u == id })
}

// Colony is a settlement founded by a colonizing player.
type Colony struct {
	settlementBase
	Buildings  []*Building `json:"buildings"`
	BuildQueue []BuildItem `json:"build_queue"`
	Liberty    int         `json:"liberty"`
}

// BuildItem is one entry of a colony's construction queue: either a
// building or a unit.
type BuildItem struct {
	Building BuildingType `json:"building,omitempty"`
	Unit     units.TypeID `json:"unit,omitempty"`
}

// IsUnit reports whether the item produces a unit.
func (b BuildItem) IsUnit() bool {
	return b.Unit != units.TypeNone
}

// NewColony creates an empty colony.
func NewColony(id world.SettlementID, name string, owner world.PlayerID, at world.HexCoord) *Colony {
	return &Colony{settlementBase: settlementBase{ID: id, Name: name, Owner: owner, Coord: at}}
}

// Radius is the colony's working radius.
func (c *Colony) Radius() int { return 1 }

// Building returns the colony's building of type t, or nil.
func (c *Colony) Building(t BuildingType) *Building {
	for _, b := range c.Buildings {
		if b.Type == t {
			return b
		}
	}
	return nil
}

// BuildingByID returns a building by its identifier, or nil.
func (c *Colony) BuildingByID(id uint64) *Building {
	for _, b := range c.Buildings {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// RemoveBuilding demolishes a building and returns its workers to the land.
func (c *Colony) RemoveBuilding(b *Building) []units.ID {
	c.Buildings = slices.DeleteFunc(c.Buildings, func(x *Building) bool { return x == b })
	return b.Workers
}

// DefenceBonus is the best fortification bonus the colony has.
func (c *Colony) DefenceBonus() int {
	best := 0
	for _, b := range c.Buildings {
		best = max(best, b.Type.Info().Defence)
	}
	return best
}

// CanBombard reports whether the colony's fortifications can fire on ships.
func (c *Colony) CanBombard() bool {
	for _, b := range c.Buildings {
		if b.Type.Info().Bombard {
			return true
		}
	}
	return false
}

// HasDocks reports whether ships can be repaired here.
func (c *Colony) HasDocks() bool {
	return c.Building(BuildingDocks) != nil
}

// WarehouseCapacity is the most of any one storable goods the colony keeps.
func (c *Colony) WarehouseCapacity() int {
	if c.Building(BuildingWarehouse) != nil {
		return 200
	}
	return 100
}

// Damageable lists the buildings pillage could wreck, in building order.
func (c *Colony) Damageable() []*Building {
	var out []*Building
	for _, b := range c.Buildings {
		if b.Type.Info().Damageable {
			out = append(out, b)
		}
	}
	return out
}

// NativeSettlement is a camp, village, or city of a native tribe.
type NativeSettlement struct {
	settlementBase
	Capital bool `json:"capital"`

	// Alarm is the settlement's own tension towards each player.
	Alarm     map[world.PlayerID]Tension `json:"alarm"`
	Contacted map[world.PlayerID]bool    `json:"contacted"`

	Missionary      units.ID             `json:"missionary,omitempty"`
	LearnableSkill  units.TypeID         `json:"learnable_skill,omitempty"`
	Wanted          [3]economy.GoodsType `json:"wanted"`
	ConvertProgress int                  `json:"convert_progress"`
	LastTribute     int                  `json:"last_tribute"` // Turn tribute was last paid
	Treasure        int                  `json:"treasure"`     // Plunder base
}

// NewNativeSettlement creates a settlement with no alarm towards anybody.
func NewNativeSettlement(id world.SettlementID, name string, owner world.PlayerID, at world.HexCoord, capital bool) *NativeSettlement {
	return &NativeSettlement{
		settlementBase: settlementBase{ID: id, Name: name, Owner: owner, Coord: at},
		Capital:        capital,
		Alarm:          make(map[world.PlayerID]Tension),
		Contacted:      make(map[world.PlayerID]bool),
	}
}

// Radius is the settlement's land radius. Capitals claim more.
func (s *NativeSettlement) Radius() int {
	if s.Capital {
		return 2
	}
	return 1
}

// ModifyAlarm adds delta to the settlement's alarm towards p and returns it.
func (s *NativeSettlement) ModifyAlarm(p world.PlayerID, delta int) Tension {
	t := s.Alarm[p]
	t.Modify(delta)
	s.Alarm[p] = t
	return t
}

// SetAlarm overwrites the alarm towards p.
func (s *NativeSettlement) SetAlarm(p world.PlayerID, value int) {
	s.Alarm[p] = Tension{Value: min(max(value, 0), TensionMax)}
}

// PlunderRange is the treasure a conqueror can carry off.
func (s *NativeSettlement) PlunderRange() (lo, hi int) {
	base := s.Treasure
	if s.Capital {
		base *= 2
	}
	return base / 2, base
}

// WantsGoods returns the price multiplier the settlement applies to g:
// 3 for its first wish, 2 for the second, and so on, 1 otherwise.
func (s *NativeSettlement) WantsGoods(g economy.GoodsType) int {
	for i, w := range s.Wanted {
		if w == g {
			return len(s.Wanted) - i
		}
	}
	return 1
}
