// Colony turn: food, growth and starvation, horses, coastal defence,
// construction, storage, then the colony's buildings and residents.
package engine

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/economy"
	"github.com/talgya/colonyserver/internal/game"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

// ErrUnknownBuildable is raised for a build queue entry naming a unit
// type colonies cannot build.
var ErrUnknownBuildable = errors.New("unknown buildable")

// Colony growth constants.
const (
	FoodPerColonist   = 2
	FoodToGrow        = 200
	ExpertFarmerBonus = 2
	HorsesToBreed     = 2  // Fewest horses that breed
	HorseBreedDivisor = 10 // One foal per this many horses, plus one
)

type unitCost struct {
	hammers int
	tools   int
	docks   bool
}

var buildableUnits = map[units.TypeID]unitCost{
	units.TypeWagonTrain:  {hammers: 40},
	units.TypeArtillery:   {hammers: 192, tools: 40},
	units.TypeCaravel:     {hammers: 128, tools: 40, docks: true},
	units.TypeMerchantman: {hammers: 192, tools: 80, docks: true},
	units.TypeGalleon:     {hammers: 320, tools: 100, docks: true},
	units.TypePrivateer:   {hammers: 256, tools: 100, docks: true},
	units.TypeFrigate:     {hammers: 512, tools: 200, docks: true},
}

// BuildCost returns the hammers and tools an item needs. Unknown items panic.
func BuildCost(item social.BuildItem) (hammers, tools int) {
	if item.IsUnit() {
		cost, ok := buildableUnits[item.Unit]
		if !ok {
			panic(fmt.Errorf("%w: unit type %d", ErrUnknownBuildable, item.Unit))
		}
		return cost.hammers, cost.tools
	}
	info := item.Building.Info()
	return info.Hammers, info.Tools
}

func colonyRef(c *social.Colony) EntityRef {
	return EntityRef{Kind: EntityColony, ID: uint64(c.ID)}
}

func (c *cascade) colony(col *social.Colony, rng *rand.Rand, log *slog.Logger, cs *changes.Set) {
	c.enter(colonyRef(col))

	surplus, alive := c.feedColony(col, log, cs)
	if !alive {
		return
	}
	c.breedHorses(col, surplus)
	if col.CanBombard() {
		c.stats.Bombardments += len(c.Combat.Bombard(col, rng, cs))
	}
	c.build(col, log, cs)
	c.storeGoods(col, cs)
	cs.Update(changes.Only(col.Owner), changes.SettlementRef(col.ID), col.Coord, col)

	for _, b := range slices.Clone(col.Buildings) {
		c.building(col, b, log, cs)
	}
	for _, id := range slices.Clone(col.Units) {
		if u := c.Game.Unit(id); u != nil && !c.ledger.done(unitRef(u)) {
			c.unit(u, rng, log, cs)
		}
	}
}

// feedColony grows or starves the colony. It reports false when the last
// colonist starved and the colony is gone.
func (c *cascade) feedColony(col *social.Colony, log *slog.Logger, cs *changes.Set) (surplus int, alive bool) {
	surplus = c.colonyFood(col) - len(col.Units)*FoodPerColonist
	col.Goods[economy.GoodsFood] += surplus

	switch {
	case col.Goods[economy.GoodsFood] < 0:
		col.Goods[economy.GoodsFood] = 0
		if len(col.Units) == 0 {
			break
		}
		victim := c.Game.Unit(col.Units[len(col.Units)-1])
		c.Game.DisposeUnit(victim, cs)
		c.stats.Starved++
		log.Info("colonist starved", "population", len(col.Units))
		if len(col.Units) == 0 {
			c.tell(cs, col.Owner, changes.MessageWarning, "model.colony.starved",
				"The last colonists of %s have starved and the colony is abandoned", col.Name)
			c.Game.EmitEvent(game.Event{Player: col.Owner, Category: "colony",
				Description: fmt.Sprintf("%s starved", col.Name)})
			c.Game.DisposeSettlement(col, cs)
			return surplus, false
		}
		c.tell(cs, col.Owner, changes.MessageWarning, "model.colony.colonistStarved",
			"A colonist in %s has starved", col.Name)
	case col.Goods[economy.GoodsFood] >= FoodToGrow:
		col.Goods[economy.GoodsFood] -= FoodToGrow
		u := c.Game.NewUnit(units.TypeFreeColonist, col.Owner, col.Coord)
		c.Game.JoinSettlement(u, col, 0)
		c.stats.Born++
		c.tell(cs, col.Owner, changes.MessageInfo, "model.colony.newColonist",
			"A new colonist has been born in %s", col.Name)
	}
	return surplus, true
}

// colonyFood is the food the colony's land yields: the centre tile plus the
// best remaining owned tile for each colonist working the land.
func (c *cascade) colonyFood(col *social.Colony) int {
	food := 0
	var land []*world.Tile
	for _, t := range c.Game.Map.OwnedBy(col.ID) {
		if t.Coord == col.Coord {
			food += t.Terrain.FoodYield()
		} else {
			land = append(land, t)
		}
	}
	slices.SortFunc(land, func(a, b *world.Tile) int {
		if d := cmp.Compare(b.Terrain.FoodYield(), a.Terrain.FoodYield()); d != 0 {
			return d
		}
		if a.Coord.Less(b.Coord) {
			return -1
		}
		return 1
	})
	for _, id := range col.Units {
		u := c.Game.Unit(id)
		if u == nil || u.Building != 0 || len(land) == 0 {
			continue
		}
		food += land[0].Terrain.FoodYield()
		land = land[1:]
		if ut := u.UnitType(); ut.IsExpert && ut.Expertise == economy.GoodsFood {
			food += ExpertFarmerBonus
		}
	}
	return food
}

func (c *cascade) breedHorses(col *social.Colony, surplus int) {
	horses := col.Goods[economy.GoodsHorses]
	if horses < HorsesToBreed || surplus <= 0 {
		return
	}
	col.Goods.Add(economy.GoodsHorses, min(horses/HorseBreedDivisor+1, surplus))
}

// build works on the head of the build queue. Items the colony is not ready
// for are dropped with a message to the owner.
func (c *cascade) build(col *social.Colony, log *slog.Logger, cs *changes.Set) {
	if len(col.BuildQueue) == 0 {
		return
	}
	item := col.BuildQueue[0]
	hammers, tools := BuildCost(item)
	name := buildName(item)
	if reason := c.notReady(col, item); reason != "" {
		col.BuildQueue = col.BuildQueue[1:]
		c.tell(cs, col.Owner, changes.MessageFailure, "model.colony.notReady",
			"%s cannot build %s: %s", col.Name, name, reason)
		return
	}
	if !col.Goods.Has(economy.GoodsHammers, hammers) {
		return
	}
	if !col.Goods.Has(economy.GoodsTools, tools) {
		c.tell(cs, col.Owner, changes.MessageWarning, "model.colony.needTools",
			"%s needs %d tools to complete %s", col.Name, tools, name)
		return
	}
	col.Goods.Remove(economy.GoodsHammers, hammers)
	col.Goods.Remove(economy.GoodsTools, tools)
	col.BuildQueue = col.BuildQueue[1:]

	if item.IsUnit() {
		u := c.Game.NewUnit(item.Unit, col.Owner, col.Coord)
		c.Game.UpdateUnit(u, cs)
	} else {
		info := item.Building.Info()
		if info.HasRequirement && info.Defence > 0 {
			if old := col.Building(info.Requires); old != nil {
				col.RemoveBuilding(old)
			}
		}
		col.Buildings = append(col.Buildings, &social.Building{ID: c.Game.NextBuildingID(), Type: item.Building})
	}
	c.stats.Built++
	c.tell(cs, col.Owner, changes.MessageInfo, "model.colony.buildingCompleted", "%s has completed %s", col.Name, name)
	log.Info("construction complete", "item", name)
}

func buildName(item social.BuildItem) string {
	if item.IsUnit() {
		return units.Lookup(item.Unit).Name
	}
	return item.Building.String()
}

// notReady explains why the colony cannot build item yet, or returns "".
func (c *cascade) notReady(col *social.Colony, item social.BuildItem) string {
	if item.IsUnit() {
		if buildableUnits[item.Unit].docks && !col.HasDocks() {
			return "it needs docks"
		}
		return ""
	}
	info := item.Building.Info()
	switch {
	case col.Building(item.Building) != nil:
		return "it already stands"
	case len(col.Units) < info.MinPopulation:
		return fmt.Sprintf("it needs %d colonists", info.MinPopulation)
	case info.HasRequirement && col.Building(info.Requires) == nil:
		return fmt.Sprintf("it needs a %s", info.Requires)
	}
	return ""
}

// storeGoods discards whatever exceeds the colony's warehouse capacity.
func (c *cascade) storeGoods(col *social.Colony, cs *changes.Set) {
	limit := col.WarehouseCapacity()
	for g := range economy.NumGoods {
		gt := economy.GoodsType(g)
		if !gt.Storable() || col.Goods[g] <= limit {
			continue
		}
		waste := col.Goods[g] - limit
		col.Goods[g] = limit
		c.tell(cs, col.Owner, changes.MessageWarning, "model.colony.warehouseWaste",
			"%d %s wasted in %s for lack of storage", waste, gt, col.Name)
	}
}
